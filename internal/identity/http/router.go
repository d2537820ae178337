package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cowritehq/cowrite/internal/identity/domain"
	"github.com/cowritehq/cowrite/internal/identity/service"
	"github.com/cowritehq/cowrite/internal/identity/store"
	"github.com/cowritehq/cowrite/pkg/httpx"
	"github.com/cowritehq/cowrite/pkg/jwtx"
	"github.com/cowritehq/cowrite/pkg/slogx"

	_ "github.com/cowritehq/cowrite/api/identity" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store                store.Store
	UserService          *service.UserService
	SessionService       *service.SessionService
	PasswordResetService *service.PasswordResetService
	InvitationService    *service.InvitationService
	ImpersonationService *service.ImpersonationService
}

func NewRouter(
	keys *jwtx.KeySet,
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerInvitations()
	r.registerAdmin()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			CoWrite Identity Service API
//	@version		0.1.0
//	@description	Identity core for the CoWrite collaborative writing platform: login sessions,
//	@description	password resets, circle invitations, and admin impersonation.
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT session token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	loginHandler := &LoginHandler{
		UserService:    r.UserService,
		SessionService: r.SessionService,
	}
	forgotHandler := &ForgotPasswordHandler{
		PasswordResetService: r.PasswordResetService,
	}
	validateHandler := &ValidateResetHandler{
		PasswordResetService: r.PasswordResetService,
	}
	resetHandler := &ResetPasswordHandler{
		PasswordResetService: r.PasswordResetService,
	}

	// Credential endpoints carry the strict per-IP limit
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(loginHandler, httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /v1/auth/forgot-password",
		httpx.Chain(forgotHandler, httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("GET /v1/auth/reset-password/{token}",
		httpx.Chain(validateHandler, httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /v1/auth/reset-password/{token}",
		httpx.Chain(resetHandler, httpx.RateLimitByIP(httpx.StrictLimit)))
}

func (r *Router) registerInvitations() {
	redeemHandler := &InvitationRedeemHandler{
		InvitationService: r.InvitationService,
		SessionService:    r.SessionService,
	}

	r.Mux.Handle("POST /v1/invitations/redeem",
		httpx.Chain(redeemHandler, httpx.RateLimitByIP(httpx.StrictLimit)))
}

func (r *Router) registerAdmin() {
	listHandler := &InvitationListHandler{
		InvitationService: r.InvitationService,
		UserService:       r.UserService,
	}
	getHandler := &InvitationGetHandler{
		InvitationService: r.InvitationService,
		UserService:       r.UserService,
	}
	impersonateHandler := &ImpersonateHandler{
		ImpersonationService: r.ImpersonationService,
		UserService:          r.UserService,
	}
	createHandler := &InvitationCreateHandler{
		InvitationService: r.InvitationService,
		UserService:       r.UserService,
	}

	authed := func(h http.Handler) http.Handler {
		return httpx.Chain(h,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("GET /v1/admin/invitations", authed(listHandler))
	r.Mux.Handle("GET /v1/admin/invitations/{id}", authed(getHandler))
	r.Mux.Handle("POST /v1/admin/invitations/{id}/impersonate", authed(impersonateHandler))
	r.Mux.Handle("POST /v1/admin/circles/{id}/invitations", authed(createHandler))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit)))
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			httpx.RateLimitByIP(httpx.LenientLimit)))
}

// decodeJSON reads a JSON request body into dst, writing a 400 and
// returning false on failure.
func decodeJSON(w http.ResponseWriter, req *http.Request, dst any) bool {
	if err := json.NewDecoder(req.Body).Decode(dst); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Invalid JSON body",
		})
		return false
	}
	return true
}

// actingUser resolves the authenticated user injected by AuthnMiddleware.
// Writes a 401 and returns false when the context carries no usable user.
func actingUser(ctx context.Context, users *service.UserService, w http.ResponseWriter) (domain.User, bool) {
	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		httpx.WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:            "unauthorized",
			ErrorDescription: "Authentication required",
		})
		return domain.User{}, false
	}

	u, err := users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
				Error:            "unauthorized",
				ErrorDescription: "Account no longer exists",
			})
			return domain.User{}, false
		}
		slogx.FromContext(ctx).Error("failed to resolve acting user", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:            "server_error",
			ErrorDescription: "Failed to resolve user",
		})
		return domain.User{}, false
	}
	return u, true
}
