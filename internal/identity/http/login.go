package http

import (
	"errors"
	"net/http"

	"github.com/cowritehq/cowrite/internal/identity/service"
	"github.com/cowritehq/cowrite/pkg/httpx"
	"github.com/cowritehq/cowrite/pkg/slogx"
)

type LoginHandler struct {
	UserService    *service.UserService
	SessionService *service.SessionService
}

// ServeHTTP godoc
//
//	@Summary		Login Endpoint
//	@Description	Authenticate with email and password and receive a session token
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		LoginRequest	true	"email and password"
//	@Success		200		{object}	LoginResponse	"token, user"
//	@Failure		400		{object}	ErrorResponse	"error, error_description"
//	@Failure		401		{object}	ErrorResponse	"error, error_description"
//	@Router			/v1/auth/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "email and password are required",
		})
		return
	}

	user, err := h.UserService.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			httpx.WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
				Error:            "invalid_credentials",
				ErrorDescription: "Invalid email or password",
			})
			return
		}
		log.Error("login failed", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:            "server_error",
			ErrorDescription: "Failed to authenticate",
		})
		return
	}

	token, err := h.SessionService.Issue(user)
	if err != nil {
		log.Error("failed to issue session", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:            "server_error",
			ErrorDescription: "Failed to issue session",
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, LoginResponse{
		Token: token,
		User:  userSummary(user),
	})
}
