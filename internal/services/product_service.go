package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"shelflife/internal/dates"
	"shelflife/internal/events"
	"shelflife/internal/models"
	"shelflife/internal/repositories"

	"github.com/go-playground/validator/v10"
)

// MaxNameLength is the longest accepted product name, in characters, after trimming.
const MaxNameLength = 100

// ErrValidation is wrapped by every input rejection.
var ErrValidation = errors.New("validation failed")

var (
	ErrNameRequired             = fmt.Errorf("%w: name is required", ErrValidation)
	ErrNameTooLong              = fmt.Errorf("%w: name exceeds %d characters", ErrValidation, MaxNameLength)
	ErrInvalidDates             = fmt.Errorf("%w: invalid date format", ErrValidation)
	ErrDateTooFar               = fmt.Errorf("%w: date is too far in the future", ErrInvalidDates)
	ErrExpiryNotAfterProduction = fmt.Errorf("%w: expiry date must be after production date", ErrValidation)
)

// ErrPersistence wraps store failures. The change was rolled back.
var ErrPersistence = errors.New("failed to persist change")

// ProductInput is the raw submission for a new product.
type ProductInput struct {
	Name           string `json:"name" form:"name" validate:"required,max=100"`
	ProductionDate string `json:"production_date" form:"production_date" validate:"required"`
	ExpiryDate     string `json:"expiry_date" form:"expiry_date" validate:"required"`
}

// ProductService handles business logic related to products.
type ProductService struct {
	repo     repositories.ProductRepository
	txm      repositories.TxManager
	sink     events.Sink
	validate *validator.Validate
	now      func() time.Time
}

// Option configures a ProductService.
type Option func(*ProductService)

// WithClock replaces time.Now. The location of the returned time is the
// location dates are interpreted in.
func WithClock(now func() time.Time) Option {
	return func(s *ProductService) { s.now = now }
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository, txm repositories.TxManager, sink events.Sink, opts ...Option) *ProductService {
	if sink == nil {
		sink = events.Nop{}
	}
	s := &ProductService{
		repo:     repo,
		txm:      txm,
		sink:     sink,
		validate: validator.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the service clock's current time.
func (s *ProductService) Now() time.Time {
	return s.now()
}

// ListProducts returns all products, earliest expiry first.
func (s *ProductService) ListProducts(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.GetAll(ctx)
	if err != nil {
		s.sink.Emit(ctx, events.Error(events.ProductListFailed, map[string]any{"err": err}))
		return nil, err
	}
	return products, nil
}

// GetProduct retrieves a single product by its ID. An unknown ID yields
// repositories.ErrProductNotFound without an event.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, repositories.ErrProductNotFound) {
			s.sink.Emit(ctx, events.Error(events.ProductGetFailed, map[string]any{
				"product_id": id,
				"err":        err,
			}))
		}
		return nil, err
	}
	return product, nil
}

// CreateProduct validates the input and stores the product in a transaction.
// Input problems are returned as errors wrapping ErrValidation, store failures
// as errors wrapping ErrPersistence.
func (s *ProductService) CreateProduct(ctx context.Context, input ProductInput) (*models.Product, error) {
	input.Name = strings.TrimSpace(input.Name)

	product, err := s.buildProduct(input)
	if err != nil {
		s.sink.Emit(ctx, events.Warn(events.ProductCreateRejected, map[string]any{
			"reason": rejectionReason(err),
			"name":   input.Name,
		}))
		return nil, err
	}

	err = s.txm.WithinTx(ctx, func(repo repositories.ProductRepository) error {
		return repo.Create(ctx, product)
	})
	if err != nil {
		s.sink.Emit(ctx, events.Error(events.ProductCreateFailed, map[string]any{
			"name": input.Name,
			"err":  err,
		}))
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	s.sink.Emit(ctx, events.Info(events.ProductCreated, map[string]any{
		"product_id":  product.ID,
		"name":        input.Name,
		"expiry_date": product.ExpiryDate,
	}))
	return product, nil
}

func (s *ProductService) buildProduct(input ProductInput) (*models.Product, error) {
	if err := s.validate.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return nil, classify(verrs)
	}

	now := s.now()
	production, err := dates.Validate(input.ProductionDate, now)
	if err != nil {
		return nil, dateError(err)
	}
	expiry, err := dates.Validate(input.ExpiryDate, now)
	if err != nil {
		return nil, dateError(err)
	}

	p, _ := dates.ParseCanonical(production, now.Location())
	e, _ := dates.ParseCanonical(expiry, now.Location())
	if !e.After(p) {
		return nil, ErrExpiryNotAfterProduction
	}

	return &models.Product{
		Name:           html.EscapeString(input.Name),
		ProductionDate: production,
		ExpiryDate:     expiry,
	}, nil
}

// classify reports name problems before date problems.
func classify(verrs validator.ValidationErrors) error {
	for _, fe := range verrs {
		if fe.Field() != "Name" {
			continue
		}
		if fe.Tag() == "required" {
			return ErrNameRequired
		}
		return ErrNameTooLong
	}
	return ErrInvalidDates
}

func dateError(err error) error {
	if errors.Is(err, dates.ErrFutureDate) {
		return ErrDateTooFar
	}
	return ErrInvalidDates
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrNameRequired):
		return "name_required"
	case errors.Is(err, ErrNameTooLong):
		return "name_too_long"
	case errors.Is(err, ErrDateTooFar):
		return "date_too_far"
	case errors.Is(err, ErrInvalidDates):
		return "invalid_date"
	case errors.Is(err, ErrExpiryNotAfterProduction):
		return "expiry_not_after_production"
	default:
		return "invalid"
	}
}

// DeleteProduct looks the product up and deletes it in one transaction. An
// unknown ID yields repositories.ErrProductNotFound; store failures leave the
// product in place and wrap ErrPersistence.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	var deleted *models.Product
	err := s.txm.WithinTx(ctx, func(repo repositories.ProductRepository) error {
		product, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		deleted = product
		return repo.Delete(ctx, id)
	})

	switch {
	case errors.Is(err, repositories.ErrProductNotFound):
		s.sink.Emit(ctx, events.Warn(events.ProductNotFound, map[string]any{"product_id": id}))
		return err
	case err != nil:
		s.sink.Emit(ctx, events.Error(events.ProductDeleteFailed, map[string]any{
			"product_id": id,
			"err":        err,
		}))
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	s.sink.Emit(ctx, events.Info(events.ProductDeleted, map[string]any{
		"product_id": id,
		"name":       html.UnescapeString(deleted.Name),
	}))
	return nil
}

// GetNearExpiry lists all products and selects those expiring within days.
// It never fails: when the products cannot be listed the error is reported
// to the sink and an empty slice is returned.
func (s *ProductService) GetNearExpiry(ctx context.Context, days int) []models.NearExpiryItem {
	products, err := s.repo.GetAll(ctx)
	if err != nil {
		s.sink.Emit(ctx, events.Error(events.NearExpiryFailed, map[string]any{"err": err}))
		return []models.NearExpiryItem{}
	}
	return SelectNearExpiry(ctx, products, s.now(), days, s.sink)
}
