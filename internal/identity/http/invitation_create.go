package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/cowritehq/cowrite/internal/identity/domain"
	"github.com/cowritehq/cowrite/internal/identity/service"
	"github.com/cowritehq/cowrite/pkg/httpx"
	"github.com/cowritehq/cowrite/pkg/slogx"
)

type InvitationCreateHandler struct {
	InvitationService *service.InvitationService
	UserService       *service.UserService
}

// ServeHTTP godoc
//
//	@Summary		Create Invitation Endpoint
//	@Description	Mint an invitation for an email address to join a circle
//	@Description	The raw invitation token is returned exactly once in this response
//	@Tags			Invitations
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"circle id"
//	@Param			request	body		CreateInvitationRequest		true	"email and optional ttl_hours"
//	@Success		201		{object}	CreateInvitationResponse	"invitation, token"
//	@Failure		403		{object}	ErrorResponse				"error, error_description"
//	@Failure		404		{object}	ErrorResponse				"error, error_description"
//	@Failure		422		{object}	ErrorResponse				"error, error_description"
//	@Router			/v1/admin/circles/{id}/invitations [post].
func (h *InvitationCreateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	acting, ok := actingUser(ctx, h.UserService, w)
	if !ok {
		return
	}

	var req CreateInvitationRequest
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

	ttl := time.Duration(req.TTLHours) * time.Hour
	inv, token, err := h.InvitationService.CreateInvitation(ctx, acting, r.PathValue("id"), req.Email, ttl)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotAuthorized):
			httpx.WriteJSON(w, http.StatusForbidden, ErrorResponse{
				Error:            "forbidden",
				ErrorDescription: "Not allowed to invite to this circle",
			})
		case errors.Is(err, service.ErrCircleNotFound):
			httpx.WriteJSON(w, http.StatusNotFound, ErrorResponse{
				Error:            "not_found",
				ErrorDescription: "Circle not found",
			})
		case errors.Is(err, domain.ErrInvalidEmail):
			httpx.WriteJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
				Error:            "invalid_email",
				ErrorDescription: "Email address is not valid",
			})
		default:
			log.Error("failed to create invitation", "err", err)
			httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
				Error:            "server_error",
				ErrorDescription: "Failed to create invitation",
			})
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, CreateInvitationResponse{
		Invitation: invitationResponse(inv, time.Now().UTC()),
		Token:      token,
	})
}
