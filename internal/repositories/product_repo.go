package repositories

import (
	"context"
	"errors"

	"shelflife/internal/models"
)

// ErrProductNotFound is returned when no product has the requested ID.
var ErrProductNotFound = errors.New("product not found")

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	// GetAll returns every product ordered by expiry date, earliest first.
	GetAll(ctx context.Context) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	// Create assigns the ID and creation time before storing the product.
	Create(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// TxManager runs fn inside a transaction. Every change fn makes through the
// repository it receives is committed when fn returns nil and rolled back
// otherwise.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(repo ProductRepository) error) error
}
