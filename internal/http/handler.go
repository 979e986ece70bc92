package http

import (
	"context"
	"time"

	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/credentials"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/session"
	"go.uber.org/zap"
)

// Catalog is the read-only part of the backend the storefront proxies.
type Catalog interface {
	SearchProducts(ctx context.Context, params backend.SearchParams) (backend.ProductPage, error)
	GetProduct(ctx context.Context, productID string) (*backend.Product, error)
	ListCategories(ctx context.Context) ([]backend.Category, error)
	ListOrders(ctx context.Context, cred credentials.Credential) ([]backend.Order, error)
}

// Accounts covers registration and the profile of the signed-in user.
type Accounts interface {
	Register(ctx context.Context, reg backend.Registration) error
	GetUserByEmail(ctx context.Context, cred credentials.Credential, email string) (*backend.User, error)
	UpdateUser(ctx context.Context, cred credentials.Credential, userID string, update backend.UserUpdate) error
	UploadAvatar(ctx context.Context, cred credentials.Credential, userID string, image backend.File) error
}

type Handler struct {
	sessions *session.Manager
	catalog  Catalog
	accounts Accounts
	timeout  time.Duration
	logger   *zap.Logger
}

func NewHandler(sessions *session.Manager, catalog Catalog, accounts Accounts, timeout time.Duration, l *zap.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		catalog:  catalog,
		accounts: accounts,
		timeout:  timeout,
		logger:   logger.OrNop(l),
	}
}
