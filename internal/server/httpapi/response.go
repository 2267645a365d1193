package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/lootshop/internal/authz"
	"github.com/dmitrijs2005/lootshop/internal/common"
	"github.com/dmitrijs2005/lootshop/internal/server/models"
)

// envelope is the body of every API response.
type envelope struct {
	Success       bool                 `json:"success"`
	Message       string               `json:"message,omitempty"`
	User          *models.PublicUser   `json:"user,omitempty"`
	Profile       *models.Profile      `json:"profile,omitempty"`
	Authorization *authz.Authorization `json:"authorization,omitempty"`
	Email         string               `json:"email,omitempty"`
	Error         string               `json:"error,omitempty"`
	Code          string               `json:"code,omitempty"`
	TimeRemaining *int                 `json:"timeRemaining,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func ok(w http.ResponseWriter, body envelope) {
	body.Success = true
	writeJSON(w, http.StatusOK, body)
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrValidation),
		errors.Is(err, common.ErrDuplicateUser),
		errors.Is(err, common.ErrAlreadyVerified),
		errors.Is(err, common.ErrInvalidOrExpiredCode):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrInvalidSession),
		errors.Is(err, common.ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrEmailNotVerified),
		errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrUserNotFound),
		errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage is what the caller sees. Validation reasons are shown in
// full; every other kind shows only its sentinel text so wrapped driver or
// provider details stay in the logs.
func publicMessage(err error) string {
	if errors.Is(err, common.ErrValidation) {
		return err.Error()
	}
	kind := common.ErrorForCode(common.ErrorCode(err))
	return kind.Error()
}

func writeError(w http.ResponseWriter, err error) {
	body := envelope{
		Error: publicMessage(err),
		Code:  common.ErrorCode(err),
	}

	var vr *common.VerificationRequiredError
	if errors.As(err, &vr) {
		body.Email = vr.Email
	}
	if wait, ok := common.RetryAfter(err); ok {
		body.TimeRemaining = &wait
	}

	writeJSON(w, statusFor(err), body)
}
