package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"farmsmart/internal/domain"
	"go.uber.org/zap"
)

// HTTPProvider exchanges an assertion for a delegation at a remote identity
// service. Create one per browser session.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
	issuer  *Issuer
	logger  *zap.Logger

	mu      sync.Mutex
	current Delegation
}

func NewHTTPProvider(baseURL string, client *http.Client, issuer *Issuer, logger *zap.Logger) *HTTPProvider {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		issuer:  issuer,
		logger:  logger,
	}
}

type loginRequest struct {
	Assertion string `json:"assertion"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (p *HTTPProvider) Login(ctx context.Context, assertion string) (Delegation, error) {
	p.mu.Lock()
	live := p.current.Live(p.issuer.now())
	p.mu.Unlock()
	if live {
		return Delegation{}, domain.ErrAlreadyAuthenticated
	}

	body, err := json.Marshal(loginRequest{Assertion: assertion})
	if err != nil {
		return Delegation{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/login", bytes.NewReader(body))
	if err != nil {
		return Delegation{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return Delegation{}, fmt.Errorf("identity login: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict:
		return Delegation{}, domain.ErrAlreadyAuthenticated
	case resp.StatusCode >= http.StatusMultipleChoices:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Delegation{}, fmt.Errorf("identity login: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Delegation{}, fmt.Errorf("identity login: decode: %w", err)
	}
	d, err := p.issuer.Parse(out.Token)
	if err != nil {
		return Delegation{}, err
	}

	p.mu.Lock()
	p.current = d
	p.mu.Unlock()
	p.logger.Debug("identity delegation issued", zap.String("principal", d.Principal), zap.Time("expires_at", d.ExpiresAt))
	return d, nil
}

// Logout forgets the local delegation even when the remote call fails.
func (p *HTTPProvider) Logout(ctx context.Context) error {
	p.mu.Lock()
	token := p.current.Token
	p.current = Delegation{}
	p.mu.Unlock()
	if token == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/logout", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("identity logout: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("identity logout: status %d", resp.StatusCode)
	}
	return nil
}
