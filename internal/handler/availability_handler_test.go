package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/havenbay/booking-engine/internal/dto"
	"github.com/havenbay/booking-engine/internal/models"
	"github.com/havenbay/booking-engine/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

type mockAvailabilityService struct {
	getFn    func(ctx context.Context, resourceID string, date time.Time, timeslot string) (*models.AvailabilitySlot, error)
	rangeFn  func(ctx context.Context, resourceID string, start, end time.Time) ([]models.AvailabilitySlot, error)
	upsertFn func(ctx context.Context, slot *models.AvailabilitySlot) error
}

func (m *mockAvailabilityService) GetAvailability(ctx context.Context, resourceID string, date time.Time, timeslot string) (*models.AvailabilitySlot, error) {
	return m.getFn(ctx, resourceID, date, timeslot)
}
func (m *mockAvailabilityService) GetAvailabilityRange(ctx context.Context, resourceID string, start, end time.Time) ([]models.AvailabilitySlot, error) {
	return m.rangeFn(ctx, resourceID, start, end)
}
func (m *mockAvailabilityService) UpsertSlot(ctx context.Context, slot *models.AvailabilitySlot) error {
	return m.upsertFn(ctx, slot)
}

func getRequest(e *echo.Echo, target string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestGetAvailability_Handler_Success(t *testing.T) {
	date := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	svc := &mockAvailabilityService{
		getFn: func(ctx context.Context, resourceID string, d time.Time, timeslot string) (*models.AvailabilitySlot, error) {
			return &models.AvailabilitySlot{
				ResourceID:             resourceID,
				Date:                   d,
				TotalCapacity:          10,
				BookedCapacity:         3,
				ReservedCapacity:       2,
				BasePrice:              850,
				DynamicPriceMultiplier: 1.2,
				IsActive:               true,
			}, nil
		},
	}

	e := echo.New()
	c, rec := getRequest(e, "/api/v1/availability/temple-tour?date=2026-09-10")
	c.SetParamNames("resource")
	c.SetParamValues("temple-tour")

	h := NewAvailabilityHandler(svc)
	err := h.GetAvailability(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp dto.AvailabilityResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, date.Format("2006-01-02"), resp.Date)
	assert.Equal(t, 5, resp.Available)
	assert.Equal(t, 1020.0, resp.FinalPrice)
	assert.False(t, resp.IsSoldOut)
}

func TestGetAvailability_Handler_NotFound(t *testing.T) {
	svc := &mockAvailabilityService{
		getFn: func(ctx context.Context, resourceID string, d time.Time, timeslot string) (*models.AvailabilitySlot, error) {
			return nil, service.ErrSlotNotFound
		},
	}

	e := echo.New()
	c, _ := getRequest(e, "/api/v1/availability/missing?date=2026-09-10")
	c.SetParamNames("resource")
	c.SetParamValues("missing")

	h := NewAvailabilityHandler(svc)
	err := h.GetAvailability(c)

	he, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Code)
}

func TestGetAvailability_Handler_MissingDate(t *testing.T) {
	e := echo.New()
	c, _ := getRequest(e, "/api/v1/availability/temple-tour")
	c.SetParamNames("resource")
	c.SetParamValues("temple-tour")

	h := NewAvailabilityHandler(nil)
	err := h.GetAvailability(c)

	he, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestGetAvailabilityRange_Handler_Success(t *testing.T) {
	svc := &mockAvailabilityService{
		rangeFn: func(ctx context.Context, resourceID string, start, end time.Time) ([]models.AvailabilitySlot, error) {
			return []models.AvailabilitySlot{
				{ResourceID: resourceID, Date: start, TotalCapacity: 10, IsActive: true, DynamicPriceMultiplier: 1},
				{ResourceID: resourceID, Date: end, TotalCapacity: 10, BookedCapacity: 10, IsActive: true, DynamicPriceMultiplier: 1},
			}, nil
		},
	}

	e := echo.New()
	c, rec := getRequest(e, "/api/v1/availability/temple-tour/range?start=2026-09-10&end=2026-09-11")
	c.SetParamNames("resource")
	c.SetParamValues("temple-tour")

	h := NewAvailabilityHandler(svc)
	err := h.GetAvailabilityRange(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Items []dto.AvailabilityResponse `json:"items"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Items, 2)
	assert.False(t, resp.Items[0].IsSoldOut)
	assert.True(t, resp.Items[1].IsSoldOut)
}

func TestGetAvailabilityRange_Handler_EndBeforeStart(t *testing.T) {
	e := echo.New()
	c, _ := getRequest(e, "/api/v1/availability/temple-tour/range?start=2026-09-11&end=2026-09-10")
	c.SetParamNames("resource")
	c.SetParamValues("temple-tour")

	h := NewAvailabilityHandler(nil)
	err := h.GetAvailabilityRange(c)

	he, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestUpsertSlot_Handler_AppliesDefaults(t *testing.T) {
	var captured *models.AvailabilitySlot
	svc := &mockAvailabilityService{
		upsertFn: func(ctx context.Context, slot *models.AvailabilitySlot) error {
			captured = slot
			return nil
		},
	}

	e := echo.New()
	body := `{"date":"2026-09-10","total_capacity":15,"base_price":850}`
	c, rec := postJSON(e, "/api/v1/availability/temple-tour", body)
	c.SetParamNames("resource")
	c.SetParamValues("temple-tour")

	h := NewAvailabilityHandler(svc)
	err := h.UpsertSlot(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "temple-tour", captured.ResourceID)
	assert.Equal(t, 1.0, captured.DynamicPriceMultiplier)
	assert.Equal(t, 1, captured.MinBooking)
	assert.Equal(t, 10, captured.MaxBooking)
	assert.True(t, captured.IsActive)
}

func TestUpsertSlot_Handler_NegativeCapacity(t *testing.T) {
	e := echo.New()
	c, _ := postJSON(e, "/api/v1/availability/temple-tour", `{"date":"2026-09-10","total_capacity":-1}`)
	c.SetParamNames("resource")
	c.SetParamValues("temple-tour")

	h := NewAvailabilityHandler(nil)
	err := h.UpsertSlot(c)

	he, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}
