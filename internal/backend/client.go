// Package backend is the typed facade over the external marketplace backend.
// Everything behind it (soil analysis, crop scoring, inventory, payment,
// persistence) is opaque to this repository.
package backend

import (
	"context"

	"farmsmart/internal/domain"
)

// Operation names, used in errors, logs and failure injection.
const (
	OpGetProfile  = "getCallerUserProfile"
	OpSaveProfile = "saveCallerUserProfile"
	OpAnalyzeSoil = "analyzeSoilImage"
	OpAdvisory    = "getSmartCropAdvisory"
	OpGetProducts = "getProductsByLocation"
	OpGetListings = "getCropListingsByLocation"
	OpAddProduct  = "addProduct"
	OpAddListing  = "addCropListing"
	OpCheckout    = "checkout"
	OpGetOrders   = "getOrders"
	OpGetRole     = "getCallerUserRole"
	OpAssignRole  = "assignCallerUserRole"
)

// Client is the set of remote calls the client relies on. All of them may
// fail; failures are reported as *Error.
type Client interface {
	// GetCallerUserProfile returns nil without error when no profile exists yet.
	GetCallerUserProfile(ctx context.Context) (*domain.UserProfile, error)
	SaveCallerUserProfile(ctx context.Context, p domain.UserProfile) error

	AnalyzeSoilImage(ctx context.Context, image []byte) (domain.SoilAnalysisResult, error)
	GetSmartCropAdvisory(ctx context.Context, params domain.CropAdvisoryParams) (domain.CropRecommendation, error)

	// An empty location returns every entry.
	GetProductsByLocation(ctx context.Context, location string) ([]domain.Product, error)
	GetCropListingsByLocation(ctx context.Context, location string) ([]domain.CropListing, error)
	AddProduct(ctx context.Context, p domain.NewProduct) (string, error)
	AddCropListing(ctx context.Context, l domain.NewCropListing) (string, error)

	Checkout(ctx context.Context, req domain.CheckoutRequest) (*domain.Order, error)
	GetOrders(ctx context.Context, userID string) ([]domain.Order, error)

	GetCallerUserRole(ctx context.Context) (domain.UserRole, error)
	AssignCallerUserRole(ctx context.Context, user string, role domain.UserRole) error
}

// Caller identifies who a facade view speaks for. An empty principal is an
// anonymous caller.
type Caller interface {
	Principal() string
	Token() string
}

// Error is the single failure shape of the facade.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return "backend " + e.Op + ": " + e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

type anonymous struct{}

func (anonymous) Principal() string { return "" }
func (anonymous) Token() string     { return "" }

func callerOrAnonymous(c Caller) Caller {
	if c == nil {
		return anonymous{}
	}
	return c
}
