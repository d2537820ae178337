package http

import (
	"errors"
	"net/http"

	"github.com/cowritehq/cowrite/internal/identity/domain"
	"github.com/cowritehq/cowrite/internal/identity/service"
	"github.com/cowritehq/cowrite/pkg/httpx"
	"github.com/cowritehq/cowrite/pkg/slogx"
)

type InvitationRedeemHandler struct {
	InvitationService *service.InvitationService
	SessionService    *service.SessionService
}

// ServeHTTP godoc
//
//	@Summary		Redeem Invitation Endpoint
//	@Description	Accept a circle invitation token, creating the account if it doesn't exist yet
//	@Description	Returns a session token for the (possibly new) member
//	@Tags			Invitations
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RedeemInvitationRequest		true	"token plus name/password for a new account"
//	@Success		200		{object}	RedeemInvitationResponse	"token, user, user_created, circle"
//	@Failure		404		{object}	ErrorResponse				"error, error_description"
//	@Failure		409		{object}	ErrorResponse				"error, error_description"
//	@Failure		422		{object}	ErrorResponse				"error, error_description"
//	@Router			/v1/invitations/redeem [post].
func (h *InvitationRedeemHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req RedeemInvitationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Token == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "token is required",
		})
		return
	}

	result, err := h.InvitationService.RedeemInvitation(ctx, req.Token, req.Name, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvitationNotFound):
			httpx.WriteJSON(w, http.StatusNotFound, ErrorResponse{
				Error:            "not_found",
				ErrorDescription: "Invitation not found",
			})
		case errors.Is(err, service.ErrInvitationExpired):
			httpx.WriteJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
				Error:            "expired",
				ErrorDescription: "Invitation has expired",
			})
		case errors.Is(err, service.ErrInvitationAccepted):
			httpx.WriteJSON(w, http.StatusConflict, ErrorResponse{
				Error:            "invalid_state",
				ErrorDescription: "Invitation has already been accepted",
			})
		case errors.Is(err, domain.ErrInvalidName):
			httpx.WriteJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
				Error:            "invalid_name",
				ErrorDescription: "Name must be between 2 and 100 characters",
			})
		case errors.Is(err, domain.ErrPasswordTooShort):
			httpx.WriteJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
				Error:            "invalid_password",
				ErrorDescription: "Password must be at least 8 characters",
			})
		default:
			log.Error("failed to redeem invitation", "err", err)
			httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
				Error:            "server_error",
				ErrorDescription: "Failed to redeem invitation",
			})
		}
		return
	}

	token, err := h.SessionService.Issue(result.User)
	if err != nil {
		log.Error("failed to issue session after redemption", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:            "server_error",
			ErrorDescription: "Failed to issue session",
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, RedeemInvitationResponse{
		Token:       token,
		User:        userSummary(result.User),
		UserCreated: result.UserCreated,
		CircleID:    result.Circle.ID,
		CircleName:  result.Circle.Name,
	})
}
