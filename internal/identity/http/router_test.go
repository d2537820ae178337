package http_test

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cowritehq/cowrite/internal/identity/domain"
	identityhttp "github.com/cowritehq/cowrite/internal/identity/http"
	"github.com/cowritehq/cowrite/internal/identity/notify"
	"github.com/cowritehq/cowrite/internal/identity/service"
	"github.com/cowritehq/cowrite/internal/identity/store"
	"github.com/cowritehq/cowrite/internal/identity/store/drivers/sqlite"
	"github.com/cowritehq/cowrite/pkg/cryptox"
	"github.com/cowritehq/cowrite/pkg/idx"
	"github.com/cowritehq/cowrite/pkg/jwtx"
	"github.com/cowritehq/cowrite/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "identity-http-test")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type testEnv struct {
	store  store.Store
	server *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := jwtx.NewSignerEdDSA("test-key", priv)
	require.NoError(t, err)

	keys := jwtx.NewKeySet()
	keys.AddSigner(signer)
	verifier := jwtx.NewVerifierEdDSA(keys, "cowrite-test")

	logger := slogx.New(slogx.Config{Service: "identity-test", Level: "error", Format: "text"})

	sessions := &service.SessionService{Signer: signer, Issuer: "cowrite-test", TTL: time.Hour}
	mailer := notify.NewLogMailer("http://localhost:3000")

	router := identityhttp.NewRouter(keys, verifier, "test", st, logger)
	router.UserService = &service.UserService{Store: st}
	router.SessionService = sessions
	router.PasswordResetService = &service.PasswordResetService{Store: st, Mailer: mailer}
	router.InvitationService = &service.InvitationService{Store: st, Mailer: mailer}
	router.ImpersonationService = &service.ImpersonationService{Store: st, Sessions: sessions}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testEnv{store: st, server: srv}
}

func (e *testEnv) seedUser(t *testing.T, email, password string, superAdmin bool) string {
	t.Helper()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	now := time.Now().UTC()
	id := idx.New().String()
	err = e.store.Users().CreateUser(context.Background(), userRecord(id, email, hash, superAdmin, now))
	require.NoError(t, err)
	return id
}

func (e *testEnv) postJSON(t *testing.T, path, bearer string, body any) *http.Response {
	t.Helper()

	buf, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, bytes.NewReader(buf))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *testEnv) getJSON(t *testing.T, path, bearer string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, e.server.URL+path, nil)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func userRecord(id, email, hash string, superAdmin bool, now time.Time) domain.User {
	return domain.User{
		ID:           id,
		Email:        domain.NormalizeEmail(email),
		Name:         domain.DisplayNameFromEmail(email),
		PasswordHash: hash,
		SuperAdmin:   superAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func circleRecord(id, name, createdBy string, now time.Time) domain.Circle {
	return domain.Circle{
		ID:        id,
		Name:      name,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestLoginEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "writer@example.com", "correct-horse", false)

	t.Run("valid login returns a session and user", func(t *testing.T) {
		resp := env.postJSON(t, "/v1/auth/login", "", map[string]string{
			"email":    "writer@example.com",
			"password": "correct-horse",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body identityhttp.LoginResponse
		decodeBody(t, resp, &body)
		require.NotEmpty(t, body.Token)
		require.Equal(t, "writer@example.com", body.User.Email)
	})

	t.Run("wrong password is a 401", func(t *testing.T) {
		resp := env.postJSON(t, "/v1/auth/login", "", map[string]string{
			"email":    "writer@example.com",
			"password": "wrong",
		})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("missing fields is a 400", func(t *testing.T) {
		resp := env.postJSON(t, "/v1/auth/login", "", map[string]string{"email": "writer@example.com"})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestForgotPasswordEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "writer@example.com", "correct-horse", false)

	// Known and unknown addresses produce byte-identical responses.
	known := env.postJSON(t, "/v1/auth/forgot-password", "", map[string]string{"email": "writer@example.com"})
	unknown := env.postJSON(t, "/v1/auth/forgot-password", "", map[string]string{"email": "nobody@example.com"})

	require.Equal(t, http.StatusOK, known.StatusCode)
	require.Equal(t, http.StatusOK, unknown.StatusCode)

	var knownBody, unknownBody identityhttp.MessageResponse
	decodeBody(t, known, &knownBody)
	decodeBody(t, unknown, &unknownBody)
	require.Equal(t, knownBody, unknownBody)
	require.Contains(t, knownBody.Message, "If an account with that email exists")
}

func TestResetPasswordEndpoint(t *testing.T) {
	env := newTestEnv(t)

	t.Run("unknown token", func(t *testing.T) {
		resp := env.getJSON(t, "/v1/auth/reset-password/no-such-token", "")
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

		var body identityhttp.ValidateResetResponse
		decodeBody(t, resp, &body)
		require.False(t, body.Valid)
		require.Equal(t, "Invalid or expired reset link", body.Error)
	})

	t.Run("mismatched confirmation", func(t *testing.T) {
		resp := env.postJSON(t, "/v1/auth/reset-password/whatever", "", map[string]string{
			"password":              "brand-new-password",
			"password_confirmation": "something-else",
		})
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})
}

func TestAdminEndpointsRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	resp := env.getJSON(t, "/v1/admin/invitations", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.getJSON(t, "/v1/admin/invitations", "not-a-token")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestInvitationFlowOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "admin@example.com", "admin-password", true)

	// Login as the admin.
	loginResp := env.postJSON(t, "/v1/auth/login", "", map[string]string{
		"email":    "admin@example.com",
		"password": "admin-password",
	})
	require.Equal(t, http.StatusOK, loginResp.StatusCode)
	var login identityhttp.LoginResponse
	decodeBody(t, loginResp, &login)

	// Seed a circle directly; circle CRUD is not part of this service.
	circleID := idx.New().String()
	now := time.Now().UTC()
	require.NoError(t, env.store.Circles().CreateCircle(context.Background(), circleRecord(circleID, "Night Writers", login.User.ID, now)))

	// Mint an invitation.
	createResp := env.postJSON(t, "/v1/admin/circles/"+circleID+"/invitations", login.Token, map[string]any{
		"email": "new@example.com",
	})
	require.Equal(t, http.StatusCreated, createResp.StatusCode)
	var created identityhttp.CreateInvitationResponse
	decodeBody(t, createResp, &created)
	require.NotEmpty(t, created.Token)
	require.Equal(t, "pending", created.Invitation.Status)

	// It shows up in the listing with summaries.
	listResp := env.getJSON(t, "/v1/admin/invitations", login.Token)
	require.Equal(t, http.StatusOK, listResp.StatusCode)
	var list []identityhttp.InvitationResponse
	decodeBody(t, listResp, &list)
	require.Len(t, list, 1)
	require.Equal(t, "Night Writers", list[0].CircleName)
	require.False(t, list[0].Expired)

	// Redeem it as the invited user.
	redeemResp := env.postJSON(t, "/v1/invitations/redeem", "", map[string]string{
		"token":    created.Token,
		"name":     "New Writer",
		"password": "fresh-password",
	})
	require.Equal(t, http.StatusOK, redeemResp.StatusCode)
	var redeemed identityhttp.RedeemInvitationResponse
	decodeBody(t, redeemResp, &redeemed)
	require.True(t, redeemed.UserCreated)
	require.NotEmpty(t, redeemed.Token)
	require.Equal(t, circleID, redeemed.CircleID)

	// A second redemption conflicts.
	again := env.postJSON(t, "/v1/invitations/redeem", "", map[string]string{
		"token":    created.Token,
		"name":     "New Writer",
		"password": "fresh-password",
	})
	require.Equal(t, http.StatusConflict, again.StatusCode)

	// Impersonation still works on the accepted invitation.
	impResp := env.postJSON(t, "/v1/admin/invitations/"+created.Invitation.ID+"/impersonate", login.Token, nil)
	require.Equal(t, http.StatusOK, impResp.StatusCode)
	var imp identityhttp.ImpersonateResponse
	decodeBody(t, impResp, &imp)
	require.False(t, imp.UserCreated)
	require.Contains(t, imp.Message, "Now impersonating")
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	live := env.getJSON(t, "/livez", "")
	require.Equal(t, http.StatusOK, live.StatusCode)

	ready := env.getJSON(t, "/readyz", "")
	require.Equal(t, http.StatusOK, ready.StatusCode)

	var body identityhttp.HealthResponse
	decodeBody(t, ready, &body)
	require.Equal(t, "ok", body.Status)
	require.NotNil(t, body.Checks)
	require.Equal(t, "ok", body.Checks.Database)
}
