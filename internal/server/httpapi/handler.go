package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/lootshop/internal/authz"
	"github.com/dmitrijs2005/lootshop/internal/common"
	"github.com/dmitrijs2005/lootshop/internal/logging"
	"github.com/dmitrijs2005/lootshop/internal/server/auth"
	"github.com/dmitrijs2005/lootshop/internal/server/models"
	"github.com/dmitrijs2005/lootshop/internal/server/services"
	"github.com/dmitrijs2005/lootshop/internal/timex"
)

const maxBodyBytes = 1 << 16

// AuthService is the workflow the handlers drive.
type AuthService interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.RegisterResult, error)
	VerifyOTP(ctx context.Context, email, code string) (*models.PublicUser, error)
	ResendOTP(ctx context.Context, email string) (int, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	Logout(ctx context.Context, token string)
	Authenticate(ctx context.Context, token string) (*auth.Claims, error)
	UpdateSession(ctx context.Context, callerID, targetID string, patch models.UserPatch) (*models.PublicUser, error)
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	ResetPassword(ctx context.Context, email string) error
	UpdateProfile(ctx context.Context, callerID, targetID string, in services.ProfileUpdate) (*models.PublicUser, error)
	AdminSession(ctx context.Context, token string) (authz.Authorization, error)
}

// CookieConfig describes the session cookie set on login.
type CookieConfig struct {
	Name   string
	Secure bool
}

// authRequest is the union of every action's fields.
type authRequest struct {
	Action          string            `json:"action"`
	Username        string            `json:"username"`
	Email           string            `json:"email"`
	Password        string            `json:"password"`
	ConfirmPassword *string           `json:"confirmPassword"`
	FavoriteGame    string            `json:"favorite_game"`
	OTP             string            `json:"otp"`
	UserID          string            `json:"userId"`
	Updates         *models.UserPatch `json:"updates"`
	NewPassword     *string           `json:"newPassword"`
}

type authHandler struct {
	svc    AuthService
	cookie CookieConfig
	now    timex.Clock
	logger logging.Logger
}

type actionFunc func(w http.ResponseWriter, r *http.Request, req *authRequest) error

func (h *authHandler) actions() map[string]actionFunc {
	return map[string]actionFunc{
		"register":       h.register,
		"verify_otp":     h.verifyOTP,
		"resend_otp":     h.resendOTP,
		"login":          h.login,
		"logout":         h.logout,
		"update_session": h.updateSession,
		"get_profile":    h.getProfile,
		"reset_password": h.resetPassword,
		"update_profile": h.updateProfile,
		"admin_status":   h.adminStatus,
	}
}

// ServeHTTP decodes the request and dispatches on its action.
func (h *authHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, common.Validationf("malformed request body"))
		return
	}

	action, found := h.actions()[req.Action]
	if !found {
		writeError(w, common.Validationf("unknown action %q", req.Action))
		return
	}

	h.logger.Debug(r.Context(), "Auth request", "action", req.Action)

	if err := action(w, r, &req); err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error(r.Context(), "Auth action failed", "action", req.Action, "error", err)
		} else {
			h.logger.Info(r.Context(), "Auth action rejected", "action", req.Action, "code", common.ErrorCode(err))
		}
		writeError(w, err)
	}
}

func (h *authHandler) register(w http.ResponseWriter, r *http.Request, req *authRequest) error {
	res, err := h.svc.Register(r.Context(), services.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		FavoriteGame:    req.FavoriteGame,
	})
	if err != nil {
		return err
	}
	remaining := res.TimeRemaining
	ok(w, envelope{
		Message:       "Registration successful. Check your email for the verification code.",
		User:          &res.User,
		TimeRemaining: &remaining,
	})
	return nil
}

func (h *authHandler) verifyOTP(w http.ResponseWriter, r *http.Request, req *authRequest) error {
	user, err := h.svc.VerifyOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		return err
	}
	ok(w, envelope{Message: "Email verified successfully", User: user})
	return nil
}

func (h *authHandler) resendOTP(w http.ResponseWriter, r *http.Request, req *authRequest) error {
	remaining, err := h.svc.ResendOTP(r.Context(), req.Email)
	if err != nil {
		return err
	}
	ok(w, envelope{Message: "A new verification code has been sent", TimeRemaining: &remaining})
	return nil
}

func (h *authHandler) login(w http.ResponseWriter, r *http.Request, req *authRequest) error {
	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	http.SetCookie(w, auth.SessionCookie(h.cookie.Name, res.Token, res.ExpiresAt, h.now(), h.cookie.Secure))
	ok(w, envelope{Message: "Login successful", User: &res.User})
	return nil
}

func (h *authHandler) logout(w http.ResponseWriter, r *http.Request, _ *authRequest) error {
	h.svc.Logout(r.Context(), sessionToken(r, h.cookie.Name))
	http.SetCookie(w, auth.ClearedSessionCookie(h.cookie.Name, h.cookie.Secure))
	ok(w, envelope{Message: "Logged out"})
	return nil
}

func (h *authHandler) updateSession(w http.ResponseWriter, r *http.Request, req *authRequest) error {
	claims, err := h.caller(r)
	if err != nil {
		return err
	}
	if req.Updates == nil || req.Updates.Empty() {
		return common.Validationf("no updates provided")
	}
	user, err := h.svc.UpdateSession(r.Context(), claims.UserID(), req.UserID, *req.Updates)
	if err != nil {
		return err
	}
	ok(w, envelope{Message: "Session updated", User: user})
	return nil
}

func (h *authHandler) getProfile(w http.ResponseWriter, r *http.Request, req *authRequest) error {
	claims, err := h.caller(r)
	if err != nil {
		return err
	}
	id := req.UserID
	if id == "" {
		id = claims.UserID()
	}
	profile, err := h.svc.GetProfile(r.Context(), id)
	if err != nil {
		return err
	}
	ok(w, envelope{Profile: profile})
	return nil
}

func (h *authHandler) resetPassword(w http.ResponseWriter, r *http.Request, req *authRequest) error {
	if err := h.svc.ResetPassword(r.Context(), req.Email); err != nil {
		return err
	}
	ok(w, envelope{Message: "A temporary password has been sent to your email"})
	return nil
}

func (h *authHandler) updateProfile(w http.ResponseWriter, r *http.Request, req *authRequest) error {
	claims, err := h.caller(r)
	if err != nil {
		return err
	}
	in := services.ProfileUpdate{NewPassword: req.NewPassword}
	if req.Updates != nil {
		in.Username, in.Email, in.FavoriteGame = req.Updates.Username, req.Updates.Email, req.Updates.FavoriteGame
	}
	if in.Username == nil && in.Email == nil && in.FavoriteGame == nil && in.NewPassword == nil {
		return common.Validationf("no updates provided")
	}
	user, err := h.svc.UpdateProfile(r.Context(), claims.UserID(), req.UserID, in)
	if err != nil {
		return err
	}
	ok(w, envelope{Message: "Profile updated", User: user})
	return nil
}

func (h *authHandler) adminStatus(w http.ResponseWriter, r *http.Request, _ *authRequest) error {
	authz, err := h.svc.AdminSession(r.Context(), sessionToken(r, h.cookie.Name))
	if err != nil {
		return err
	}
	ok(w, envelope{Authorization: &authz})
	return nil
}

// caller authenticates the request's session credential.
func (h *authHandler) caller(r *http.Request) (*auth.Claims, error) {
	token := sessionToken(r, h.cookie.Name)
	if token == "" {
		return nil, common.ErrInvalidSession
	}
	claims, err := h.svc.Authenticate(r.Context(), token)
	if err != nil {
		if errors.Is(err, common.ErrSessionExpired) {
			return nil, err
		}
		return nil, common.ErrInvalidSession
	}
	return claims, nil
}
