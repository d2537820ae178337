package http

import (
	"errors"
	"net/http"

	"github.com/cowritehq/cowrite/internal/identity/domain"
	"github.com/cowritehq/cowrite/internal/identity/service"
	"github.com/cowritehq/cowrite/pkg/httpx"
	"github.com/cowritehq/cowrite/pkg/slogx"
)

// genericResetMessage is returned whether or not the address has an
// account, so the endpoint can't be used to enumerate users.
const genericResetMessage = "If an account with that email exists, we've sent password reset instructions."

const invalidResetMessage = "Invalid or expired reset link"

type ForgotPasswordHandler struct {
	PasswordResetService *service.PasswordResetService
}

// ServeHTTP godoc
//
//	@Summary		Forgot Password Endpoint
//	@Description	Request a password reset link for an email address
//	@Description	Always returns the same generic message regardless of whether the account exists
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ForgotPasswordRequest	true	"email"
//	@Success		200		{object}	MessageResponse			"message"
//	@Failure		400		{object}	ErrorResponse			"error, error_description"
//	@Router			/v1/auth/forgot-password [post].
func (h *ForgotPasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req ForgotPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "email is required",
		})
		return
	}

	if err := h.PasswordResetService.RequestReset(ctx, req.Email); err != nil {
		// Internal failures still get the generic message; anything else
		// would leak whether the account exists.
		log.Error("failed to process reset request", "err", err)
	}

	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: genericResetMessage})
}

type ValidateResetHandler struct {
	PasswordResetService *service.PasswordResetService
}

// ServeHTTP godoc
//
//	@Summary		Validate Reset Token Endpoint
//	@Description	Check whether a reset token is live and reveal the account email for the reset form
//	@Tags			Auth
//	@Produce		json
//	@Param			token	path		string					true	"reset token from the emailed link"
//	@Success		200		{object}	ValidateResetResponse	"valid, email"
//	@Failure		422		{object}	ValidateResetResponse	"valid, error"
//	@Router			/v1/auth/reset-password/{token} [get].
func (h *ValidateResetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, err := h.PasswordResetService.ValidateToken(ctx, r.PathValue("token"))
	if err != nil {
		if !errors.Is(err, service.ErrResetTokenInvalid) {
			log.Error("failed to validate reset token", "err", err)
		}
		httpx.WriteJSON(w, http.StatusUnprocessableEntity, ValidateResetResponse{
			Valid: false,
			Error: invalidResetMessage,
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, ValidateResetResponse{
		Valid: true,
		Email: user.Email,
	})
}

type ResetPasswordHandler struct {
	PasswordResetService *service.PasswordResetService
}

// ServeHTTP godoc
//
//	@Summary		Reset Password Endpoint
//	@Description	Consume a reset token and set a new password
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			token	path		string					true	"reset token from the emailed link"
//	@Param			request	body		ResetPasswordRequest	true	"password and confirmation"
//	@Success		200		{object}	MessageResponse			"message"
//	@Failure		400		{object}	ErrorResponse			"error, error_description"
//	@Failure		422		{object}	ErrorResponse			"error, error_description"
//	@Router			/v1/auth/reset-password/{token} [post].
func (h *ResetPasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req ResetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Password != req.PasswordConfirmation {
		httpx.WriteJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:            "password_mismatch",
			ErrorDescription: "Password and confirmation do not match",
		})
		return
	}

	_, err := h.PasswordResetService.ResetPassword(ctx, r.PathValue("token"), req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrResetTokenInvalid):
			httpx.WriteJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
				Error:            "invalid_token",
				ErrorDescription: invalidResetMessage,
			})
		case errors.Is(err, domain.ErrPasswordTooShort):
			httpx.WriteJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
				Error:            "invalid_password",
				ErrorDescription: "Password must be at least 8 characters",
			})
		default:
			log.Error("failed to reset password", "err", err)
			httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
				Error:            "server_error",
				ErrorDescription: "Failed to reset password",
			})
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Password has been reset."})
}
