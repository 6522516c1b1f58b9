package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"farmsmart/internal/domain"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const maxResponseBytes = 4 << 20

// HTTP talks JSON to the marketplace backend. One HTTP value is shared by all
// browser sessions; ForCaller returns a view that authenticates as one of them.
type HTTP struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  *zap.Logger
}

func NewHTTP(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTP {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
	h.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "marketplace-backend",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// 4xx answers mean the backend is up.
			var se *statusError
			return err == nil || (errors.As(err, &se) && se.code < http.StatusInternalServerError)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("backend circuit state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return h
}

func (h *HTTP) ForCaller(c Caller) Client {
	return &httpCaller{h: h, caller: callerOrAnonymous(c)}
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("unexpected status %d", e.code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.code, e.body)
}

type httpCaller struct {
	h      *HTTP
	caller Caller
}

type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
}

func (c *httpCaller) do(ctx context.Context, r request, out any) error {
	raw, err := c.h.breaker.Execute(func() ([]byte, error) {
		target := c.h.baseURL + r.path
		if len(r.query) > 0 {
			target += "?" + r.query.Encode()
		}
		var body io.Reader
		if r.body != nil {
			body = bytes.NewReader(r.body)
		}
		req, err := http.NewRequestWithContext(ctx, r.method, target, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if r.contentType != "" {
			req.Header.Set("Content-Type", r.contentType)
		}
		if tok := c.caller.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}

		resp, err := c.h.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusMultipleChoices {
			return nil, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(data))}
		}
		return data, nil
	})
	if err != nil {
		c.h.logger.Warn("backend call failed", zap.String("op", r.op), zap.Error(err))
		return &Error{Op: r.op, Err: err}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Op: r.op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func jsonRequest(op, method, path string, in any) (request, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return request{}, &Error{Op: op, Err: fmt.Errorf("encode request: %w", err)}
	}
	return request{op: op, method: method, path: path, body: body, contentType: "application/json"}, nil
}

type idResponse struct {
	ID string `json:"id"`
}

type roleBody struct {
	Role domain.UserRole `json:"role"`
}

func (c *httpCaller) GetCallerUserProfile(ctx context.Context) (*domain.UserProfile, error) {
	var out *domain.UserProfile
	if err := c.do(ctx, request{op: OpGetProfile, method: http.MethodGet, path: "/profile"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *httpCaller) SaveCallerUserProfile(ctx context.Context, p domain.UserProfile) error {
	req, err := jsonRequest(OpSaveProfile, http.MethodPut, "/profile", p)
	if err != nil {
		return err
	}
	return c.do(ctx, req, nil)
}

func (c *httpCaller) AnalyzeSoilImage(ctx context.Context, image []byte) (domain.SoilAnalysisResult, error) {
	var out domain.SoilAnalysisResult
	err := c.do(ctx, request{
		op:          OpAnalyzeSoil,
		method:      http.MethodPost,
		path:        "/soil-analysis",
		body:        image,
		contentType: "application/octet-stream",
	}, &out)
	return out, err
}

func (c *httpCaller) GetSmartCropAdvisory(ctx context.Context, params domain.CropAdvisoryParams) (domain.CropRecommendation, error) {
	var out domain.CropRecommendation
	req, err := jsonRequest(OpAdvisory, http.MethodPost, "/advisory", params)
	if err != nil {
		return out, err
	}
	err = c.do(ctx, req, &out)
	return out, err
}

func (c *httpCaller) GetProductsByLocation(ctx context.Context, location string) ([]domain.Product, error) {
	var out []domain.Product
	err := c.do(ctx, request{
		op:     OpGetProducts,
		method: http.MethodGet,
		path:   "/products",
		query:  url.Values{"location": []string{location}},
	}, &out)
	return out, err
}

func (c *httpCaller) GetCropListingsByLocation(ctx context.Context, location string) ([]domain.CropListing, error) {
	var out []domain.CropListing
	err := c.do(ctx, request{
		op:     OpGetListings,
		method: http.MethodGet,
		path:   "/crop-listings",
		query:  url.Values{"location": []string{location}},
	}, &out)
	return out, err
}

func (c *httpCaller) AddProduct(ctx context.Context, p domain.NewProduct) (string, error) {
	req, err := jsonRequest(OpAddProduct, http.MethodPost, "/products", p)
	if err != nil {
		return "", err
	}
	var out idResponse
	if err := c.do(ctx, req, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *httpCaller) AddCropListing(ctx context.Context, l domain.NewCropListing) (string, error) {
	req, err := jsonRequest(OpAddListing, http.MethodPost, "/crop-listings", l)
	if err != nil {
		return "", err
	}
	var out idResponse
	if err := c.do(ctx, req, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *httpCaller) Checkout(ctx context.Context, in domain.CheckoutRequest) (*domain.Order, error) {
	req, err := jsonRequest(OpCheckout, http.MethodPost, "/checkout", in)
	if err != nil {
		return nil, err
	}
	var out domain.Order
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	if out.ConfirmationNumber == "" {
		return nil, &Error{Op: OpCheckout, Err: errors.New("response carries no confirmation number")}
	}
	return &out, nil
}

func (c *httpCaller) GetOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	var out []domain.Order
	err := c.do(ctx, request{
		op:     OpGetOrders,
		method: http.MethodGet,
		path:   "/orders",
		query:  url.Values{"userId": []string{userID}},
	}, &out)
	return out, err
}

func (c *httpCaller) GetCallerUserRole(ctx context.Context) (domain.UserRole, error) {
	var out roleBody
	if err := c.do(ctx, request{op: OpGetRole, method: http.MethodGet, path: "/role"}, &out); err != nil {
		return "", err
	}
	role, err := domain.ParseUserRole(string(out.Role))
	if err != nil {
		return "", &Error{Op: OpGetRole, Err: err}
	}
	return role, nil
}

func (c *httpCaller) AssignCallerUserRole(ctx context.Context, user string, role domain.UserRole) error {
	req, err := jsonRequest(OpAssignRole, http.MethodPut, "/users/"+url.PathEscape(user)+"/role", roleBody{Role: role})
	if err != nil {
		return err
	}
	return c.do(ctx, req, nil)
}
