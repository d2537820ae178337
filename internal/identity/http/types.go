package http

import (
	"time"

	"github.com/cowritehq/cowrite/internal/identity/domain"
)

// ErrorResponse is the uniform error body for every endpoint.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// UserSummary is the public shape of a user record.
type UserSummary struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	SuperAdmin bool   `json:"is_super_admin"`
}

func userSummary(u domain.User) UserSummary {
	return UserSummary{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		SuperAdmin: u.SuperAdmin,
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  UserSummary `json:"user"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// MessageResponse carries a human-readable status message.
type MessageResponse struct {
	Message string `json:"message"`
}

type ValidateResetResponse struct {
	Valid bool   `json:"valid"`
	Email string `json:"email,omitempty"`
	Error string `json:"error,omitempty"`
}

type ResetPasswordRequest struct {
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type RedeemInvitationRequest struct {
	Token    string `json:"token"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type RedeemInvitationResponse struct {
	Token       string      `json:"token"`
	User        UserSummary `json:"user"`
	UserCreated bool        `json:"user_created"`
	CircleID    string      `json:"circle_id"`
	CircleName  string      `json:"circle_name"`
}

type CreateInvitationRequest struct {
	Email    string `json:"email"`
	TTLHours int    `json:"ttl_hours,omitempty"`
}

type CreateInvitationResponse struct {
	Invitation InvitationResponse `json:"invitation"`
	Token      string             `json:"token"`
}

// InvitationResponse exposes an invitation with its persisted status and
// the derived expired flag side by side.
type InvitationResponse struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	CircleID     string    `json:"circle_id"`
	CircleName   string    `json:"circle_name,omitempty"`
	InviterName  string    `json:"inviter_name,omitempty"`
	InviterEmail string    `json:"inviter_email,omitempty"`
	Status       string    `json:"status"`
	Expired      bool      `json:"expired"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

func invitationResponse(inv domain.Invitation, now time.Time) InvitationResponse {
	return InvitationResponse{
		ID:        inv.ID,
		Email:     inv.Email,
		CircleID:  inv.CircleID,
		Status:    string(inv.Status),
		Expired:   inv.Expired(now),
		ExpiresAt: inv.ExpiresAt,
		CreatedAt: inv.CreatedAt,
	}
}

func invitationDetailResponse(d domain.InvitationDetail, now time.Time) InvitationResponse {
	resp := invitationResponse(d.Invitation, now)
	resp.CircleName = d.CircleName
	resp.InviterName = d.InviterName
	resp.InviterEmail = d.InviterEmail
	return resp
}

type ImpersonateResponse struct {
	Message     string      `json:"message"`
	Token       string      `json:"token"`
	User        UserSummary `json:"user"`
	UserCreated bool        `json:"user_created"`
}

type HealthChecks struct {
	Database string `json:"database,omitempty"`
	Signer   string `json:"signer,omitempty"`
}

type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}
