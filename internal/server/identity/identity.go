// Package identity talks to the external identity provider that owns the
// bootstrap credential of every account.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/lootshop/internal/common"
	"github.com/dmitrijs2005/lootshop/internal/netx"
	"github.com/google/uuid"
)

type Provider interface {
	CreateAccount(ctx context.Context, email, password string) (string, error)
	DeleteAccount(ctx context.Context, id string) error
}

// HTTPProvider uses the provider's admin REST API with a service key.
type HTTPProvider struct {
	client     *http.Client
	baseURL    string
	serviceKey string
}

func NewHTTPProvider(client *http.Client, baseURL, serviceKey string) *HTTPProvider {
	return &HTTPProvider{client: client, baseURL: strings.TrimRight(baseURL, "/"), serviceKey: serviceKey}
}

type createAccountRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	EmailConfirm bool   `json:"email_confirm"`
}

type account struct {
	ID string `json:"id"`
}

func (p *HTTPProvider) headers() http.Header {
	h := netx.Bearer(p.serviceKey)
	h.Set("apikey", p.serviceKey)
	return h
}

// CreateAccount registers email with the provider, already confirmed at that
// layer.
func (p *HTTPProvider) CreateAccount(ctx context.Context, email, password string) (string, error) {
	var out account
	req := createAccountRequest{Email: email, Password: password, EmailConfirm: true}

	if err := netx.DoJSON(ctx, p.client, http.MethodPost, p.baseURL+"/admin/users", p.headers(), req, &out); err != nil {
		if isConflict(err) {
			return "", fmt.Errorf("%w: create account: %w", common.ErrDuplicateUser, err)
		}
		return "", fmt.Errorf("%w: create account: %w", common.ErrIdentityProvider, err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: create account: empty id", common.ErrIdentityProvider)
	}
	return out.ID, nil
}

func (p *HTTPProvider) DeleteAccount(ctx context.Context, id string) error {
	endpoint := p.baseURL + "/admin/users/" + url.PathEscape(id)
	if err := netx.DoJSON(ctx, p.client, http.MethodDelete, endpoint, p.headers(), nil, nil); err != nil {
		return fmt.Errorf("%w: delete account: %w", common.ErrIdentityProvider, err)
	}
	return nil
}

// isConflict reports whether the provider refused the account because the
// email is already registered there.
func isConflict(err error) bool {
	var se *netx.StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode == http.StatusConflict || se.StatusCode == http.StatusUnprocessableEntity
}

// NoopProvider stands in when no provider is configured. Accounts exist only
// in the local store.
type NoopProvider struct{}

func (NoopProvider) CreateAccount(context.Context, string, string) (string, error) {
	return uuid.NewString(), nil
}

func (NoopProvider) DeleteAccount(context.Context, string) error {
	return nil
}
