package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"farmsmart/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuer_SignParse(t *testing.T) {
	iss := NewIssuer("secret")
	d, err := iss.Sign("farmer-1", time.Hour)
	require.NoError(t, err)

	got, err := iss.Parse(d.Token)
	require.NoError(t, err)
	assert.Equal(t, "farmer-1", got.Principal)
	assert.True(t, got.Live(time.Now()))
}

func TestIssuer_RejectsForeignAndExpiredTokens(t *testing.T) {
	iss := NewIssuer("secret")

	other, err := NewIssuer("other").Sign("farmer-1", time.Hour)
	require.NoError(t, err)
	_, err = iss.Parse(other.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := iss.Sign("farmer-1", -time.Minute)
	require.NoError(t, err)
	_, err = iss.Parse(expired.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "x"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = iss.Parse(none)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDevProvider_AlreadyAuthenticatedUntilLogout(t *testing.T) {
	p := NewDevProvider(NewIssuer("secret"), time.Hour)
	ctx := context.Background()

	d, err := p.Login(ctx, "farmer-1")
	require.NoError(t, err)
	assert.Equal(t, "farmer-1", d.Principal)

	_, err = p.Login(ctx, "farmer-1")
	assert.ErrorIs(t, err, domain.ErrAlreadyAuthenticated)

	require.NoError(t, p.Logout(ctx))
	_, err = p.Login(ctx, "")
	require.NoError(t, err)
}

func TestHTTPProvider_LoginLogout(t *testing.T) {
	iss := NewIssuer("secret")
	loggedOut := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			var req loginRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			d, err := iss.Sign(req.Assertion, time.Hour)
			require.NoError(t, err)
			_ = json.NewEncoder(w).Encode(loginResponse{Token: d.Token})
		case "/logout":
			loggedOut = r.Header.Get("Authorization") != ""
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, srv.Client(), iss, nil)
	ctx := context.Background()

	d, err := p.Login(ctx, "farmer-1")
	require.NoError(t, err)
	assert.Equal(t, "farmer-1", d.Principal)

	_, err = p.Login(ctx, "farmer-1")
	assert.True(t, errors.Is(err, domain.ErrAlreadyAuthenticated))

	require.NoError(t, p.Logout(ctx))
	assert.True(t, loggedOut)
}

func TestHTTPProvider_ConflictMeansAlreadyAuthenticated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, srv.Client(), NewIssuer("secret"), nil)
	_, err := p.Login(context.Background(), "farmer-1")
	assert.ErrorIs(t, err, domain.ErrAlreadyAuthenticated)
}
