package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/havenbay/booking-engine/internal/service"
	amqp "github.com/rabbitmq/amqp091-go"
)

// PaymentMessage is what the payment collaborator publishes on payment.* keys.
type PaymentMessage struct {
	BookingReference string `json:"booking_reference"`
	PaymentReference string `json:"payment_reference"`
	Reason           string `json:"reason,omitempty"`
}

type PaymentConsumer struct {
	bookingSvc service.BookingService
}

func NewPaymentConsumer(bookingSvc service.BookingService) *PaymentConsumer {
	return &PaymentConsumer{bookingSvc: bookingSvc}
}

// Start listens for payment outcomes and drives the booking state machine.
func (pc *PaymentConsumer) Start(msgs <-chan amqp.Delivery) {
	go func() {
		for msg := range msgs {
			pc.handleMessage(msg)
		}
		log.Println("[PaymentConsumer] channel closed, stopping consumer")
	}()
}

func (pc *PaymentConsumer) handleMessage(msg amqp.Delivery) {
	var pm PaymentMessage
	if err := json.Unmarshal(msg.Body, &pm); err != nil {
		log.Printf("[PaymentConsumer] failed to unmarshal: %v", err)
		msg.Nack(false, false)
		return
	}
	if pm.BookingReference == "" {
		log.Printf("[PaymentConsumer] message without booking_reference, dropping")
		msg.Nack(false, false)
		return
	}

	ctx := context.Background()
	var err error
	switch msg.RoutingKey {
	case "payment.confirmed":
		_, err = pc.bookingSvc.ConfirmBooking(ctx, pm.BookingReference, pm.PaymentReference)
	case "payment.failed":
		reason := pm.Reason
		if reason == "" {
			reason = "PAYMENT_FAILED"
		}
		_, err = pc.bookingSvc.CancelBooking(ctx, pm.BookingReference, "system", reason)
	default:
		log.Printf("[PaymentConsumer] ignoring routing key %s", msg.RoutingKey)
		msg.Ack(false)
		return
	}

	if err != nil {
		// State rejections mean the booking already moved on (expired, already
		// confirmed, already cancelled). Retrying cannot change the outcome.
		if errors.Is(err, service.ErrInvalidTransition) ||
			errors.Is(err, service.ErrLockExpired) ||
			errors.Is(err, service.ErrBookingNotFound) ||
			errors.Is(err, service.ErrCancellationDeadlinePassed) {
			log.Printf("[PaymentConsumer] %s for %s: %v", msg.RoutingKey, pm.BookingReference, err)
			msg.Ack(false)
			return
		}
		log.Printf("[PaymentConsumer] %s for %s failed: %v", msg.RoutingKey, pm.BookingReference, err)
		msg.Nack(false, true) // requeue
		return
	}

	log.Printf("[PaymentConsumer] processed %s for %s", msg.RoutingKey, pm.BookingReference)
	msg.Ack(false)
}
