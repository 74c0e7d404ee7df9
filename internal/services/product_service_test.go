package services_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"shelflife/internal/events"
	"shelflife/internal/models"
	"shelflife/internal/repositories"
	"shelflife/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProductRepository is a mock implementation of repositories.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) Create(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// passthroughTx hands the mock repository to fn and returns fn's error.
type passthroughTx struct {
	repo repositories.ProductRepository
}

func (tx passthroughTx) WithinTx(_ context.Context, fn func(repositories.ProductRepository) error) error {
	return fn(tx.repo)
}

func txFor(repo repositories.ProductRepository) repositories.TxManager {
	return passthroughTx{repo: repo}
}

// recordingSink keeps every event it receives.
type recordingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (s *recordingSink) Emit(_ context.Context, e events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Name
	}
	return out
}

var fixedNow = time.Date(2026, 10, 18, 10, 30, 0, 0, time.UTC)

func newService(repo repositories.ProductRepository, txm repositories.TxManager, sink events.Sink) *services.ProductService {
	return services.NewProductService(repo, txm, sink, services.WithClock(func() time.Time { return fixedNow }))
}

func TestProductService_CreateProduct(t *testing.T) {
	mockRepo := new(MockProductRepository)
	sink := &recordingSink{}
	service := newService(mockRepo, txFor(mockRepo), sink)

	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Product")).
		Run(func(args mock.Arguments) { args.Get(1).(*models.Product).ID = "p-1" }).
		Return(nil).Once()

	product, err := service.CreateProduct(context.Background(), services.ProductInput{
		Name:           "  Milk & <Honey>  ",
		ProductionDate: "2024-01-01",
		ExpiryDate:     "Jan 10, 2024",
	})

	require.NoError(t, err)
	assert.Equal(t, "p-1", product.ID)
	assert.Equal(t, "Milk &amp; &lt;Honey&gt;", product.Name)
	assert.Equal(t, "2024-01-01", product.ProductionDate)
	assert.Equal(t, "2024-01-10", product.ExpiryDate)
	assert.Equal(t, []string{events.ProductCreated}, sink.names())
	mockRepo.AssertExpectations(t)
}

func TestProductService_CreateProduct_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		input    services.ProductInput
		expected error
		reason   string
	}{
		{
			name:     "Empty name",
			input:    services.ProductInput{Name: "", ProductionDate: "2024-01-01", ExpiryDate: "2024-01-10"},
			expected: services.ErrNameRequired,
			reason:   "name_required",
		},
		{
			name:     "Whitespace name",
			input:    services.ProductInput{Name: "   ", ProductionDate: "2024-01-01", ExpiryDate: "2024-01-10"},
			expected: services.ErrNameRequired,
			reason:   "name_required",
		},
		{
			name:     "Name too long",
			input:    services.ProductInput{Name: strings.Repeat("a", 101), ProductionDate: "2024-01-01", ExpiryDate: "2024-01-10"},
			expected: services.ErrNameTooLong,
			reason:   "name_too_long",
		},
		{
			name:     "Name error wins over date error",
			input:    services.ProductInput{Name: "", ProductionDate: "garbage", ExpiryDate: ""},
			expected: services.ErrNameRequired,
			reason:   "name_required",
		},
		{
			name:     "Malformed production date",
			input:    services.ProductInput{Name: "Milk", ProductionDate: "not-a-date", ExpiryDate: "2024-01-10"},
			expected: services.ErrInvalidDates,
			reason:   "invalid_date",
		},
		{
			name:     "Missing expiry date",
			input:    services.ProductInput{Name: "Milk", ProductionDate: "2024-01-01", ExpiryDate: ""},
			expected: services.ErrInvalidDates,
			reason:   "invalid_date",
		},
		{
			name:     "Far future expiry",
			input:    services.ProductInput{Name: "Honey", ProductionDate: "2024-01-01", ExpiryDate: "2036-10-18"},
			expected: services.ErrDateTooFar,
			reason:   "date_too_far",
		},
		{
			name:     "Expiry equal to production",
			input:    services.ProductInput{Name: "Yogurt", ProductionDate: "2024-06-01", ExpiryDate: "2024-06-01"},
			expected: services.ErrExpiryNotAfterProduction,
			reason:   "expiry_not_after_production",
		},
		{
			name:     "Expiry before production",
			input:    services.ProductInput{Name: "Yogurt", ProductionDate: "2024-06-01", ExpiryDate: "2024-05-31"},
			expected: services.ErrExpiryNotAfterProduction,
			reason:   "expiry_not_after_production",
		},
		{
			name:     "Same day written differently",
			input:    services.ProductInput{Name: "Yogurt", ProductionDate: "2024-06-01", ExpiryDate: "June 1, 2024"},
			expected: services.ErrExpiryNotAfterProduction,
			reason:   "expiry_not_after_production",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockProductRepository)
			sink := &recordingSink{}
			service := newService(mockRepo, txFor(mockRepo), sink)

			product, err := service.CreateProduct(context.Background(), tt.input)

			assert.Nil(t, product)
			assert.ErrorIs(t, err, tt.expected)
			assert.ErrorIs(t, err, services.ErrValidation)
			require.Len(t, sink.events, 1)
			assert.Equal(t, events.ProductCreateRejected, sink.events[0].Name)
			assert.Equal(t, tt.reason, sink.events[0].Fields["reason"])
			mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestProductService_CreateProduct_NameLimitCountsCharacters(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := newService(mockRepo, txFor(mockRepo), nil)

	mockRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	// 100 two-byte characters are within the limit.
	_, err := service.CreateProduct(context.Background(), services.ProductInput{
		Name:           strings.Repeat("ح", 100),
		ProductionDate: "2024-01-01",
		ExpiryDate:     "2024-01-10",
	})
	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestProductService_CreateProduct_StoreFailure(t *testing.T) {
	mockRepo := new(MockProductRepository)
	sink := &recordingSink{}
	service := newService(mockRepo, txFor(mockRepo), sink)

	mockRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("database error")).Once()

	product, err := service.CreateProduct(context.Background(), services.ProductInput{
		Name:           "Milk",
		ProductionDate: "2024-01-01",
		ExpiryDate:     "2024-01-10",
	})

	assert.Nil(t, product)
	assert.ErrorIs(t, err, services.ErrPersistence)
	assert.NotErrorIs(t, err, services.ErrValidation)
	assert.Contains(t, err.Error(), "database error")
	assert.Equal(t, []string{events.ProductCreateFailed}, sink.names())
	mockRepo.AssertExpectations(t)
}

func TestProductService_DeleteProduct(t *testing.T) {
	mockRepo := new(MockProductRepository)
	sink := &recordingSink{}
	service := newService(mockRepo, txFor(mockRepo), sink)

	// Test successful deletion
	mockRepo.On("GetByID", mock.Anything, "1").Return(&models.Product{ID: "1", Name: "Milk"}, nil).Once()
	mockRepo.On("Delete", mock.Anything, "1").Return(nil).Once()
	err := service.DeleteProduct(context.Background(), "1")
	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)

	// Test deletion of an unknown product
	mockRepo.On("GetByID", mock.Anything, "99").Return(nil, repositories.ErrProductNotFound).Once()
	err = service.DeleteProduct(context.Background(), "99")
	assert.ErrorIs(t, err, repositories.ErrProductNotFound)
	mockRepo.AssertNotCalled(t, "Delete", mock.Anything, "99")

	// Test store failure
	mockRepo.On("GetByID", mock.Anything, "2").Return(&models.Product{ID: "2", Name: "Bread"}, nil).Once()
	mockRepo.On("Delete", mock.Anything, "2").Return(errors.New("database error")).Once()
	err = service.DeleteProduct(context.Background(), "2")
	assert.ErrorIs(t, err, services.ErrPersistence)
	assert.NotErrorIs(t, err, repositories.ErrProductNotFound)

	assert.Equal(t, []string{events.ProductDeleted, events.ProductNotFound, events.ProductDeleteFailed}, sink.names())
	mockRepo.AssertExpectations(t)
}

func TestProductService_ListProducts(t *testing.T) {
	mockRepo := new(MockProductRepository)
	sink := &recordingSink{}
	service := newService(mockRepo, txFor(mockRepo), sink)

	expectedProducts := []models.Product{
		{ID: "1", Name: "Milk", ExpiryDate: "2024-01-10"},
		{ID: "2", Name: "Cheese", ExpiryDate: "2024-03-01"},
	}
	mockRepo.On("GetAll", mock.Anything).Return(expectedProducts, nil).Once()

	products, err := service.ListProducts(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, expectedProducts, products)

	mockRepo.On("GetAll", mock.Anything).Return(nil, errors.New("database error")).Once()
	products, err = service.ListProducts(context.Background())
	assert.Error(t, err)
	assert.Nil(t, products)
	assert.Equal(t, []string{events.ProductListFailed}, sink.names())
	mockRepo.AssertExpectations(t)
}

func TestProductService_GetProduct(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := newService(mockRepo, txFor(mockRepo), nil)

	expectedProduct := &models.Product{ID: "1", Name: "Milk"}
	mockRepo.On("GetByID", mock.Anything, "1").Return(expectedProduct, nil).Once()
	product, err := service.GetProduct(context.Background(), "1")
	assert.NoError(t, err)
	assert.Equal(t, expectedProduct, product)

	mockRepo.On("GetByID", mock.Anything, "99").Return(nil, repositories.ErrProductNotFound).Once()
	product, err = service.GetProduct(context.Background(), "99")
	assert.ErrorIs(t, err, repositories.ErrProductNotFound)
	assert.Nil(t, product)
	mockRepo.AssertExpectations(t)
}

func TestProductService_GetProduct_StoreFailure(t *testing.T) {
	mockRepo := new(MockProductRepository)
	sink := &recordingSink{}
	service := newService(mockRepo, txFor(mockRepo), sink)

	mockRepo.On("GetByID", mock.Anything, "1").Return(nil, repositories.ErrProductNotFound).Once()
	_, err := service.GetProduct(context.Background(), "1")
	assert.ErrorIs(t, err, repositories.ErrProductNotFound)
	assert.Empty(t, sink.events)

	mockRepo.On("GetByID", mock.Anything, "2").Return(nil, errors.New("connection reset")).Once()
	product, err := service.GetProduct(context.Background(), "2")
	assert.Error(t, err)
	assert.Nil(t, product)
	require.Len(t, sink.events, 1)
	assert.Equal(t, events.ProductGetFailed, sink.events[0].Name)
	assert.Equal(t, events.LevelError, sink.events[0].Level)
	assert.Equal(t, "2", sink.events[0].Fields["product_id"])
	mockRepo.AssertExpectations(t)
}
