package services_test

import (
	"context"
	"errors"
	"testing"

	"shelflife/internal/events"
	"shelflife/internal/models"
	"shelflife/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// productAt builds a product expiring offset days after fixedNow.
func productAt(id string, offset int) models.Product {
	return models.Product{
		ID:             id,
		Name:           id,
		ProductionDate: "2024-01-01",
		ExpiryDate:     fixedNow.AddDate(0, 0, offset).Format("2006-01-02"),
	}
}

func TestSelectNearExpiry_Window(t *testing.T) {
	products := []models.Product{
		productAt("plus8", 8),
		productAt("plus3", 3),
		productAt("minus1", -1),
		productAt("plus7", 7),
		productAt("today", 0),
	}

	items := services.SelectNearExpiry(context.Background(), products, fixedNow, 7, nil)

	require.Len(t, items, 3)
	assert.Equal(t, []string{"today", "plus3", "plus7"}, []string{items[0].ID, items[1].ID, items[2].ID})
	assert.Equal(t, []int{0, 3, 7}, []int{items[0].DaysLeft, items[1].DaysLeft, items[2].DaysLeft})
	assert.Equal(t, "2026-10-21", items[1].ExpiryDate)
}

func TestSelectNearExpiry_OrdersByDateNotText(t *testing.T) {
	// Legacy rows in a non-canonical form still sort by the date they denote.
	products := []models.Product{
		{ID: "b", Name: "b", ExpiryDate: "10/20/2026"},
		{ID: "a", Name: "a", ExpiryDate: "2026-10-25"},
		{ID: "c", Name: "c", ExpiryDate: "Oct 19, 2026"},
	}

	items := services.SelectNearExpiry(context.Background(), products, fixedNow, 7, nil)

	require.Len(t, items, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{items[0].ID, items[1].ID, items[2].ID})
	assert.Equal(t, "10/20/2026", items[1].ExpiryDate)
}

func TestSelectNearExpiry_SkipsUnparseableDates(t *testing.T) {
	sink := &recordingSink{}
	products := []models.Product{
		productAt("first", 1),
		{ID: "broken", Name: "Broken", ExpiryDate: "soon-ish"},
		productAt("last", 2),
	}

	items := services.SelectNearExpiry(context.Background(), products, fixedNow, 7, sink)

	require.Len(t, items, 2)
	assert.Equal(t, "first", items[0].ID)
	assert.Equal(t, "last", items[1].ID)
	require.Len(t, sink.events, 1)
	assert.Equal(t, events.NearExpiryInvalidDate, sink.events[0].Name)
	assert.Equal(t, events.LevelWarn, sink.events[0].Level)
	assert.Equal(t, "broken", sink.events[0].Fields["product_id"])
}

func TestSelectNearExpiry_StableForEqualDates(t *testing.T) {
	products := []models.Product{productAt("x", 2), productAt("y", 2), productAt("z", 2)}

	items := services.SelectNearExpiry(context.Background(), products, fixedNow, 7, nil)

	assert.Equal(t, []string{"x", "y", "z"}, []string{items[0].ID, items[1].ID, items[2].ID})
}

func TestSelectNearExpiry_CustomWindow(t *testing.T) {
	products := []models.Product{productAt("today", 0), productAt("plus1", 1), productAt("plus30", 30)}

	assert.Len(t, services.SelectNearExpiry(context.Background(), products, fixedNow, 0, nil), 1)
	assert.Len(t, services.SelectNearExpiry(context.Background(), products, fixedNow, 30, nil), 3)
	assert.Empty(t, services.SelectNearExpiry(context.Background(), products, fixedNow, -1, nil))
	assert.NotNil(t, services.SelectNearExpiry(context.Background(), nil, fixedNow, 7, nil))
}

func TestProductService_GetNearExpiry(t *testing.T) {
	mockRepo := new(MockProductRepository)
	sink := &recordingSink{}
	service := newService(mockRepo, txFor(mockRepo), sink)

	mockRepo.On("GetAll", mock.Anything).Return([]models.Product{productAt("plus3", 3), productAt("plus9", 9)}, nil).Once()

	items := service.GetNearExpiry(context.Background(), services.DefaultNearExpiryDays)
	require.Len(t, items, 1)
	assert.Equal(t, "plus3", items[0].ID)
	assert.Empty(t, sink.events)
	mockRepo.AssertExpectations(t)
}

func TestProductService_GetNearExpiry_FailsSoft(t *testing.T) {
	mockRepo := new(MockProductRepository)
	sink := &recordingSink{}
	service := newService(mockRepo, txFor(mockRepo), sink)

	mockRepo.On("GetAll", mock.Anything).Return(nil, errors.New("connection refused")).Once()

	items := service.GetNearExpiry(context.Background(), services.DefaultNearExpiryDays)

	assert.NotNil(t, items)
	assert.Empty(t, items)
	require.Len(t, sink.events, 1)
	assert.Equal(t, events.NearExpiryFailed, sink.events[0].Name)
	assert.Equal(t, events.LevelError, sink.events[0].Level)
	mockRepo.AssertExpectations(t)
}
