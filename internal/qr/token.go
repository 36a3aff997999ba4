// Package qr produces and verifies the signed payloads embedded in ticket QR
// codes. A gate scanner can check authenticity offline with the shared secret
// before any database lookup happens.
package qr

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidPayload = errors.New("invalid or tampered qr payload")

type Claims struct {
	TicketNumber     string `json:"tkt"`
	BookingReference string `json:"bkg"`
	jwt.RegisteredClaims
}

type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign binds a ticket and its booking into an HS256 token. The validity
// window is deliberately not encoded as exp/nbf: window enforcement happens in
// the atomic validation update, so a scan outside the window can be reported
// as such instead of as a broken payload.
func (s *Signer) Sign(ticketNumber, bookingReference string) (string, error) {
	claims := Claims{
		TicketNumber:     ticketNumber,
		BookingReference: bookingReference,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			IssuedAt: jwt.NewNumericDate(time.Now().UTC()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Signer) Verify(payload string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(payload, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidPayload
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidPayload
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.TicketNumber == "" || claims.BookingReference == "" {
		return nil, ErrInvalidPayload
	}
	return claims, nil
}
