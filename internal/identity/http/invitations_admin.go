package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/cowritehq/cowrite/internal/identity/service"
	"github.com/cowritehq/cowrite/pkg/httpx"
	"github.com/cowritehq/cowrite/pkg/slogx"
)

type InvitationListHandler struct {
	InvitationService *service.InvitationService
	UserService       *service.UserService
}

// ServeHTTP godoc
//
//	@Summary		List Invitations Endpoint
//	@Description	List all invitations newest-first with circle and inviter summaries
//	@Description	Each entry carries the persisted status and the derived expired flag
//	@Tags			Invitations
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		InvitationResponse	"invitations"
//	@Failure		403	{object}	ErrorResponse		"error, error_description"
//	@Router			/v1/admin/invitations [get].
func (h *InvitationListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	acting, ok := actingUser(ctx, h.UserService, w)
	if !ok {
		return
	}

	details, err := h.InvitationService.ListInvitations(ctx, acting)
	if err != nil {
		if errors.Is(err, service.ErrNotAuthorized) {
			httpx.WriteJSON(w, http.StatusForbidden, ErrorResponse{
				Error:            "forbidden",
				ErrorDescription: "Super admin access required",
			})
			return
		}
		log.Error("failed to list invitations", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:            "server_error",
			ErrorDescription: "Failed to list invitations",
		})
		return
	}

	now := time.Now().UTC()
	out := make([]InvitationResponse, 0, len(details))
	for _, d := range details {
		out = append(out, invitationDetailResponse(d, now))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

type InvitationGetHandler struct {
	InvitationService *service.InvitationService
	UserService       *service.UserService
}

// ServeHTTP godoc
//
//	@Summary		Get Invitation Endpoint
//	@Description	Fetch one invitation with its circle and inviter summaries
//	@Tags			Invitations
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string				true	"invitation id"
//	@Success		200	{object}	InvitationResponse	"invitation"
//	@Failure		403	{object}	ErrorResponse		"error, error_description"
//	@Failure		404	{object}	ErrorResponse		"error, error_description"
//	@Router			/v1/admin/invitations/{id} [get].
func (h *InvitationGetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	acting, ok := actingUser(ctx, h.UserService, w)
	if !ok {
		return
	}

	detail, err := h.InvitationService.GetInvitation(ctx, acting, r.PathValue("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotAuthorized):
			httpx.WriteJSON(w, http.StatusForbidden, ErrorResponse{
				Error:            "forbidden",
				ErrorDescription: "Super admin access required",
			})
		case errors.Is(err, service.ErrInvitationNotFound):
			httpx.WriteJSON(w, http.StatusNotFound, ErrorResponse{
				Error:            "not_found",
				ErrorDescription: "Invitation not found",
			})
		default:
			log.Error("failed to fetch invitation", "err", err)
			httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
				Error:            "server_error",
				ErrorDescription: "Failed to fetch invitation",
			})
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, invitationDetailResponse(detail, time.Now().UTC()))
}
