// Package listing submits new marketplace entries and reads the product and
// crop listing collections.
package listing

import (
	"context"
	"strings"

	"farmsmart/internal/backend"
	"farmsmart/internal/domain"
	"farmsmart/internal/notify"
	"farmsmart/internal/query"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ProductsKey = query.Key{"products"}
	ListingsKey = query.Key{"cropListings"}
)

const allLocations = "all"

type authenticator interface {
	Require() (string, error)
	Principal() string
}

type Service struct {
	client   backend.Client
	auth     authenticator
	cache    *query.Cache
	notifier notify.Notifier
	logger   *zap.Logger
}

func New(client backend.Client, auth authenticator, cache *query.Cache, n notify.Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, auth: auth, cache: cache, notifier: n, logger: logger}
}

// ProductForm is the add-product form as typed. Price stays a string until
// validated.
type ProductForm struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Location    string `json:"location"`
}

type ListingForm struct {
	CropName     string `json:"cropName"`
	Quantity     string `json:"quantity"`
	PricePerUnit string `json:"pricePerUnit"`
	Location     string `json:"location"`
}

// ValidateProduct reports the first failing field, as the form does.
func ValidateProduct(f ProductForm) (domain.NewProduct, error) {
	if strings.TrimSpace(f.Name) == "" {
		return domain.NewProduct{}, domain.FieldErrors{"name": "Please enter a product name."}
	}
	if strings.TrimSpace(f.Description) == "" {
		return domain.NewProduct{}, domain.FieldErrors{"description": "Please enter a product description."}
	}
	price, ok := positive(f.Price)
	if !ok {
		return domain.NewProduct{}, domain.FieldErrors{"price": "Please enter a valid price."}
	}
	if strings.TrimSpace(f.Location) == "" {
		return domain.NewProduct{}, domain.FieldErrors{"location": "Please enter your location."}
	}
	return domain.NewProduct{
		Name:        strings.TrimSpace(f.Name),
		Description: strings.TrimSpace(f.Description),
		Price:       price,
		Location:    strings.TrimSpace(f.Location),
	}, nil
}

func ValidateListing(f ListingForm) (domain.NewCropListing, error) {
	if strings.TrimSpace(f.CropName) == "" {
		return domain.NewCropListing{}, domain.FieldErrors{"cropName": "Please enter crop name."}
	}
	qty, ok := positive(f.Quantity)
	if !ok {
		return domain.NewCropListing{}, domain.FieldErrors{"quantity": "Please enter a valid quantity."}
	}
	price, ok := positive(f.PricePerUnit)
	if !ok {
		return domain.NewCropListing{}, domain.FieldErrors{"pricePerUnit": "Please enter a valid price per unit."}
	}
	if strings.TrimSpace(f.Location) == "" {
		return domain.NewCropListing{}, domain.FieldErrors{"location": "Please enter your location."}
	}
	q, _ := qty.Float64()
	return domain.NewCropListing{
		CropName:     strings.TrimSpace(f.CropName),
		Quantity:     q,
		PricePerUnit: price,
		Location:     strings.TrimSpace(f.Location),
	}, nil
}

func positive(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

// SubmitProduct validates, creates the product and invalidates every cached
// product collection. The new entry shows up on the next fetch.
func (s *Service) SubmitProduct(ctx context.Context, f ProductForm) (string, error) {
	if _, err := s.auth.Require(); err != nil {
		return "", err
	}
	p, err := ValidateProduct(f)
	if err != nil {
		return "", err
	}
	id, err := s.client.AddProduct(ctx, p)
	if err != nil {
		s.logger.Warn("add product failed", zap.String("name", p.Name), zap.Error(err))
		s.notifier.Error("Failed to add product. Please try again.")
		return "", err
	}
	s.cache.Invalidate(ProductsKey)
	s.logger.Info("product added", zap.String("id", id), zap.String("seller", s.auth.Principal()))
	s.notifier.Success(`"` + p.Name + `" listed successfully!`)
	return id, nil
}

func (s *Service) SubmitListing(ctx context.Context, f ListingForm) (string, error) {
	if _, err := s.auth.Require(); err != nil {
		return "", err
	}
	l, err := ValidateListing(f)
	if err != nil {
		return "", err
	}
	id, err := s.client.AddCropListing(ctx, l)
	if err != nil {
		s.logger.Warn("add crop listing failed", zap.String("crop", l.CropName), zap.Error(err))
		s.notifier.Error("Failed to add listing. Please try again.")
		return "", err
	}
	s.cache.Invalidate(ListingsKey)
	s.logger.Info("crop listing added", zap.String("id", id), zap.String("farmer", s.auth.Principal()))
	s.notifier.Success(`"` + l.CropName + `" listed successfully!`)
	return id, nil
}

// Products returns products at location, or all of them for "".
func (s *Service) Products(ctx context.Context, location string) ([]domain.Product, error) {
	location = strings.TrimSpace(location)
	return query.Fetch(ctx, s.cache, locationKey(ProductsKey, location), func(ctx context.Context) ([]domain.Product, error) {
		return s.client.GetProductsByLocation(ctx, location)
	})
}

func (s *Service) Listings(ctx context.Context, location string) ([]domain.CropListing, error) {
	location = strings.TrimSpace(location)
	return query.Fetch(ctx, s.cache, locationKey(ListingsKey, location), func(ctx context.Context) ([]domain.CropListing, error) {
		return s.client.GetCropListingsByLocation(ctx, location)
	})
}

// MyProducts filters the full collection down to the caller's own entries.
func (s *Service) MyProducts(ctx context.Context) ([]domain.Product, error) {
	principal, err := s.auth.Require()
	if err != nil {
		return nil, err
	}
	all, err := s.Products(ctx, "")
	if err != nil {
		return nil, err
	}
	return FilterMine(all, principal), nil
}

func (s *Service) MyListings(ctx context.Context) ([]domain.CropListing, error) {
	principal, err := s.auth.Require()
	if err != nil {
		return nil, err
	}
	all, err := s.Listings(ctx, "")
	if err != nil {
		return nil, err
	}
	return FilterMine(all, principal), nil
}

func locationKey(prefix query.Key, location string) query.Key {
	if location == "" {
		location = allLocations
	}
	return append(append(query.Key{}, prefix...), location)
}

// FilterMine keeps the entries owned by owner, in their original order.
func FilterMine[T domain.Owned](all []T, owner string) []T {
	out := make([]T, 0, len(all))
	if owner == "" {
		return out
	}
	for _, e := range all {
		if e.OwnerID() == owner {
			out = append(out, e)
		}
	}
	return out
}

// SearchProducts matches term against name and description, ignoring case.
func SearchProducts(ps []domain.Product, term string) []domain.Product {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return ps
	}
	out := make([]domain.Product, 0, len(ps))
	for _, p := range ps {
		if strings.Contains(strings.ToLower(p.Name), term) || strings.Contains(strings.ToLower(p.Description), term) {
			out = append(out, p)
		}
	}
	return out
}

// SearchListings matches term against crop name and location, ignoring case.
func SearchListings(ls []domain.CropListing, term string) []domain.CropListing {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return ls
	}
	out := make([]domain.CropListing, 0, len(ls))
	for _, l := range ls {
		if strings.Contains(strings.ToLower(l.CropName), term) || strings.Contains(strings.ToLower(l.Location), term) {
			out = append(out, l)
		}
	}
	return out
}
