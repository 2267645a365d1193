package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/lootshop/internal/authz"
	"github.com/dmitrijs2005/lootshop/internal/client/models"
	"github.com/dmitrijs2005/lootshop/internal/common"
	"github.com/dmitrijs2005/lootshop/internal/netx"
)

// HTTPClient implements Client against the JSON API.
type HTTPClient struct {
	baseURL    string
	http       *http.Client
	cookieName string
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       netx.NewClient(timeout),
		cookieName: common.SessionCookieName,
	}
}

type authRequest struct {
	Action          string                 `json:"action"`
	Username        string                 `json:"username,omitempty"`
	Email           string                 `json:"email,omitempty"`
	Password        string                 `json:"password,omitempty"`
	ConfirmPassword *string                `json:"confirmPassword,omitempty"`
	FavoriteGame    string                 `json:"favorite_game,omitempty"`
	OTP             string                 `json:"otp,omitempty"`
	UserID          string                 `json:"userId,omitempty"`
	Updates         *models.ProfileChanges `json:"updates,omitempty"`
	NewPassword     *string                `json:"newPassword,omitempty"`
}

type envelope struct {
	Success       bool                 `json:"success"`
	Message       string               `json:"message"`
	User          *models.User         `json:"user"`
	Profile       *models.Profile      `json:"profile"`
	Authorization *authz.Authorization `json:"authorization"`
	Email         string               `json:"email"`
	Error         string               `json:"error"`
	Code          string               `json:"code"`
	TimeRemaining *int                 `json:"timeRemaining"`
}

func (c *HTTPClient) call(ctx context.Context, token string, req authRequest) (*envelope, *http.Response, error) {
	var out envelope
	resp, err := netx.Exchange(ctx, c.http, http.MethodPost, c.baseURL+"/api/auth", netx.Bearer(token), req, &out)
	if err != nil {
		return nil, resp, c.mapError(err)
	}
	return &out, resp, nil
}

// mapError turns a failed exchange into a common sentinel. Anything that is
// not an API error envelope means the server could not be reached.
func (c *HTTPClient) mapError(err error) error {
	var se *netx.StatusError
	if !errors.As(err, &se) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var env envelope
	if jerr := json.Unmarshal(se.Body, &env); jerr != nil || env.Code == "" {
		if se.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%w: status %d", ErrUnavailable, se.StatusCode)
		}
		return fmt.Errorf("%w: status %d", common.ErrorInternal, se.StatusCode)
	}
	return decodeEnvelopeError(&env)
}

func decodeEnvelopeError(env *envelope) error {
	kind := common.ErrorForCode(env.Code)
	wait := 0
	if env.TimeRemaining != nil {
		wait = *env.TimeRemaining
	}

	switch {
	case errors.Is(kind, common.ErrEmailNotVerified):
		return &common.VerificationRequiredError{Email: env.Email, RetryAfter: wait}
	case errors.Is(kind, common.ErrRateLimited):
		return &common.RetryAfterError{Err: common.ErrRateLimited, Seconds: wait}
	case errors.Is(kind, common.ErrValidation):
		reason := strings.TrimPrefix(env.Error, common.ErrValidation.Error()+": ")
		return common.Validationf("%s", reason)
	default:
		return kind
	}
}

func (c *HTTPClient) Register(ctx context.Context, in models.Registration) (*models.User, int, error) {
	env, _, err := c.call(ctx, "", authRequest{
		Action:          "register",
		Username:        in.Username,
		Email:           in.Email,
		Password:        in.Password,
		ConfirmPassword: in.ConfirmPassword,
		FavoriteGame:    in.FavoriteGame,
	})
	if err != nil {
		return nil, 0, err
	}
	remaining := 0
	if env.TimeRemaining != nil {
		remaining = *env.TimeRemaining
	}
	return env.User, remaining, nil
}

func (c *HTTPClient) VerifyOTP(ctx context.Context, email, code string) (*models.User, error) {
	env, _, err := c.call(ctx, "", authRequest{Action: "verify_otp", Email: email, OTP: code})
	if err != nil {
		return nil, err
	}
	return env.User, nil
}

func (c *HTTPClient) ResendOTP(ctx context.Context, email string) (int, error) {
	env, _, err := c.call(ctx, "", authRequest{Action: "resend_otp", Email: email})
	if err != nil {
		return 0, err
	}
	if env.TimeRemaining == nil {
		return 0, nil
	}
	return *env.TimeRemaining, nil
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	env, resp, err := c.call(ctx, "", authRequest{Action: "login", Email: email, Password: password})
	if err != nil {
		return nil, "", err
	}
	for _, ck := range resp.Cookies() {
		if ck.Name == c.cookieName && ck.Value != "" {
			return env.User, ck.Value, nil
		}
	}
	return nil, "", fmt.Errorf("%w: login response without session cookie", common.ErrorInternal)
}

func (c *HTTPClient) Logout(ctx context.Context, token string) error {
	_, _, err := c.call(ctx, token, authRequest{Action: "logout"})
	return err
}

func (c *HTTPClient) GetProfile(ctx context.Context, token, userID string) (*models.Profile, error) {
	env, _, err := c.call(ctx, token, authRequest{Action: "get_profile", UserID: userID})
	if err != nil {
		return nil, err
	}
	return env.Profile, nil
}

func (c *HTTPClient) ResetPassword(ctx context.Context, email string) error {
	_, _, err := c.call(ctx, "", authRequest{Action: "reset_password", Email: email})
	return err
}

func (c *HTTPClient) UpdateProfile(ctx context.Context, token string, changes models.ProfileChanges, newPassword *string) (*models.User, error) {
	env, _, err := c.call(ctx, token, authRequest{Action: "update_profile", Updates: &changes, NewPassword: newPassword})
	if err != nil {
		return nil, err
	}
	return env.User, nil
}

func (c *HTTPClient) AdminStatus(ctx context.Context, token string) (authz.Authorization, error) {
	env, _, err := c.call(ctx, token, authRequest{Action: "admin_status"})
	if err != nil {
		return authz.Authorization{}, err
	}
	if env.Authorization == nil {
		return authz.Authorization{}, fmt.Errorf("%w: empty authorization", common.ErrorInternal)
	}
	return *env.Authorization, nil
}

// Ping probes /health.
func (c *HTTPClient) Ping(ctx context.Context) error {
	if err := netx.DoJSON(ctx, c.http, http.MethodGet, c.baseURL+"/health", nil, nil, nil); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
