package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"farmsmart/internal/domain"
	"github.com/google/uuid"
)

// Memory is an in-process marketplace used in dev mode and tests. It keeps
// everything in maps and never touches the network.
type Memory struct {
	mu       sync.Mutex
	products []domain.Product
	listings []domain.CropListing
	orders   []domain.Order
	profiles map[string]domain.UserProfile
	roles    map[string]domain.UserRole
	failures map[string]error
	calls    map[string]int
	confirm  func() string

	SoilResult domain.SoilAnalysisResult
	Advisory   domain.CropRecommendation
}

func NewMemory() *Memory {
	return &Memory{
		profiles: make(map[string]domain.UserProfile),
		roles:    make(map[string]domain.UserRole),
		failures: make(map[string]error),
		calls:    make(map[string]int),
		confirm: func() string {
			return "FS-" + strings.ToUpper(uuid.NewString()[:8])
		},
		SoilResult: domain.SoilAnalysisResult{
			RecommendedCrops: []string{"Maize", "Beans", "Sorghum"},
			PreventionTips:   []string{"Rotate crops each season", "Add organic matter before planting"},
		},
		Advisory: domain.CropRecommendation{
			Crops:                []string{"Cassava", "Groundnuts"},
			SustainablePractices: []string{"Mulch to retain moisture", "Intercrop with legumes"},
			RiskReductionTips:    []string{"Plant drought tolerant varieties", "Stagger planting dates"},
		},
	}
}

func (m *Memory) ForCaller(c Caller) Client {
	return &memoryCaller{m: m, caller: callerOrAnonymous(c)}
}

// Fail makes every subsequent call of op fail with err. A nil err clears it.
func (m *Memory) Fail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// Calls reports how many times op was invoked, failed calls included.
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// SetConfirmation overrides the confirmation number generator.
func (m *Memory) SetConfirmation(fn func() string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirm = fn
}

func (m *Memory) SeedProducts(ps ...domain.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = append(m.products, ps...)
}

func (m *Memory) SeedListings(ls ...domain.CropListing) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings = append(m.listings, ls...)
}

func (m *Memory) SetProfile(principal string, p domain.UserProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[principal] = p
}

// enter records the call and returns the injected failure, if any. The caller
// must hold m.mu.
func (m *Memory) enter(op string) error {
	m.calls[op]++
	if err, ok := m.failures[op]; ok {
		return &Error{Op: op, Err: err}
	}
	return nil
}

var errAnonymous = errors.New("anonymous caller")

type memoryCaller struct {
	m      *Memory
	caller Caller
}

func (c *memoryCaller) begin(ctx context.Context, op string, needsPrincipal bool) error {
	if err := c.m.enter(op); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return &Error{Op: op, Err: err}
	}
	if needsPrincipal && c.caller.Principal() == "" {
		return &Error{Op: op, Err: errAnonymous}
	}
	return nil
}

func (c *memoryCaller) GetCallerUserProfile(ctx context.Context) (*domain.UserProfile, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if err := c.begin(ctx, OpGetProfile, false); err != nil {
		return nil, err
	}
	p, ok := c.m.profiles[c.caller.Principal()]
	if !ok || c.caller.Principal() == "" {
		return nil, nil
	}
	return &p, nil
}

func (c *memoryCaller) SaveCallerUserProfile(ctx context.Context, p domain.UserProfile) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if err := c.begin(ctx, OpSaveProfile, true); err != nil {
		return err
	}
	c.m.profiles[c.caller.Principal()] = p
	return nil
}

func (c *memoryCaller) AnalyzeSoilImage(ctx context.Context, image []byte) (domain.SoilAnalysisResult, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if err := c.begin(ctx, OpAnalyzeSoil, true); err != nil {
		return domain.SoilAnalysisResult{}, err
	}
	if len(image) == 0 {
		return domain.SoilAnalysisResult{}, &Error{Op: OpAnalyzeSoil, Err: errors.New("empty image")}
	}
	return c.m.SoilResult, nil
}

func (c *memoryCaller) GetSmartCropAdvisory(ctx context.Context, params domain.CropAdvisoryParams) (domain.CropRecommendation, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if err := c.begin(ctx, OpAdvisory, false); err != nil {
		return domain.CropRecommendation{}, err
	}
	return c.m.Advisory, nil
}

func (c *memoryCaller) GetProductsByLocation(ctx context.Context, location string) ([]domain.Product, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if err := c.begin(ctx, OpGetProducts, false); err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(c.m.products))
	for _, p := range c.m.products {
		if location == "" || strings.EqualFold(p.Location, location) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *memoryCaller) GetCropListingsByLocation(ctx context.Context, location string) ([]domain.CropListing, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if err := c.begin(ctx, OpGetListings, false); err != nil {
		return nil, err
	}
	out := make([]domain.CropListing, 0, len(c.m.listings))
	for _, l := range c.m.listings {
		if location == "" || strings.EqualFold(l.Location, location) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (c *memoryCaller) AddProduct(ctx context.Context, p domain.NewProduct) (string, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if err := c.begin(ctx, OpAddProduct, true); err != nil {
		return "", err
	}
	id := uuid.NewString()
	c.m.products = append(c.m.products, domain.Product{
		ID:          id,
		Name:        p.Name,
		Description: p.Description,
		Seller:      c.caller.Principal(),
		Price:       p.Price,
		Location:    p.Location,
	})
	return id, nil
}

func (c *memoryCaller) AddCropListing(ctx context.Context, l domain.NewCropListing) (string, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if err := c.begin(ctx, OpAddListing, true); err != nil {
		return "", err
	}
	id := uuid.NewString()
	c.m.listings = append(c.m.listings, domain.CropListing{
		ID:           id,
		CropName:     l.CropName,
		Quantity:     l.Quantity,
		PricePerUnit: l.PricePerUnit,
		Location:     l.Location,
		Farmer:       c.caller.Principal(),
	})
	return id, nil
}

func (c *memoryCaller) Checkout(ctx context.Context, req domain.CheckoutRequest) (*domain.Order, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if err := c.begin(ctx, OpCheckout, true); err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, &Error{Op: OpCheckout, Err: errors.New("no items")}
	}
	order := domain.Order{
		Status:             "confirmed",
		Total:              req.Total,
		PaymentMethod:      req.PaymentMethod,
		UserID:             c.caller.Principal(),
		ConfirmationNumber: c.m.confirm(),
		Items:              append([]domain.StoreItem(nil), req.Items...),
	}
	c.m.orders = append(c.m.orders, order)
	return &order, nil
}

func (c *memoryCaller) GetOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if err := c.begin(ctx, OpGetOrders, false); err != nil {
		return nil, err
	}
	out := []domain.Order{}
	for _, o := range c.m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (c *memoryCaller) GetCallerUserRole(ctx context.Context) (domain.UserRole, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if err := c.begin(ctx, OpGetRole, false); err != nil {
		return "", err
	}
	principal := c.caller.Principal()
	if principal == "" {
		return domain.RoleGuest, nil
	}
	if r, ok := c.m.roles[principal]; ok {
		return r, nil
	}
	return domain.RoleUser, nil
}

func (c *memoryCaller) AssignCallerUserRole(ctx context.Context, user string, role domain.UserRole) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if err := c.begin(ctx, OpAssignRole, true); err != nil {
		return err
	}
	if _, err := domain.ParseUserRole(string(role)); err != nil {
		return &Error{Op: OpAssignRole, Err: err}
	}
	// The first principal to assign roles becomes admin, as on a fresh backend.
	if len(c.m.roles) == 0 {
		c.m.roles[c.caller.Principal()] = domain.RoleAdmin
	}
	if c.m.roles[c.caller.Principal()] != domain.RoleAdmin {
		return &Error{Op: OpAssignRole, Err: fmt.Errorf("%s is not an admin", c.caller.Principal())}
	}
	c.m.roles[user] = role
	return nil
}
