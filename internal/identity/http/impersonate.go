package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/cowritehq/cowrite/internal/identity/service"
	"github.com/cowritehq/cowrite/pkg/httpx"
	"github.com/cowritehq/cowrite/pkg/slogx"
)

type ImpersonateHandler struct {
	ImpersonationService *service.ImpersonationService
	UserService          *service.UserService
}

// ServeHTTP godoc
//
//	@Summary		Impersonate Invited User Endpoint
//	@Description	Mint a session for the user an invitation targets, provisioning the account on first use
//	@Description	Super admin only; super-admin accounts can never be the target
//	@Tags			Invitations
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string				true	"invitation id"
//	@Success		200	{object}	ImpersonateResponse	"message, token, user, user_created"
//	@Failure		403	{object}	ErrorResponse		"error, error_description"
//	@Failure		404	{object}	ErrorResponse		"error, error_description"
//	@Router			/v1/admin/invitations/{id}/impersonate [post].
func (h *ImpersonateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	acting, ok := actingUser(ctx, h.UserService, w)
	if !ok {
		return
	}

	result, err := h.ImpersonationService.Impersonate(ctx, acting, r.PathValue("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotAuthorized):
			httpx.WriteJSON(w, http.StatusForbidden, ErrorResponse{
				Error:            "forbidden",
				ErrorDescription: "Super admin access required",
			})
		case errors.Is(err, service.ErrImpersonationForbidden):
			httpx.WriteJSON(w, http.StatusForbidden, ErrorResponse{
				Error:            "forbidden",
				ErrorDescription: "Cannot impersonate a super admin",
			})
		case errors.Is(err, service.ErrInvitationNotFound):
			httpx.WriteJSON(w, http.StatusNotFound, ErrorResponse{
				Error:            "not_found",
				ErrorDescription: "Invitation not found",
			})
		default:
			log.Error("failed to impersonate", "err", err)
			httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
				Error:            "server_error",
				ErrorDescription: "Failed to impersonate",
			})
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, ImpersonateResponse{
		Message:     fmt.Sprintf("Now impersonating %s (%s)", result.User.Name, result.User.Email),
		Token:       result.Token,
		User:        userSummary(result.User),
		UserCreated: result.UserCreated,
	})
}
