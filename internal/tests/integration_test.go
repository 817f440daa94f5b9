//go:build integration

package tests

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"era-vendors-api/internal"
	"era-vendors-api/internal/auth"
	"era-vendors-api/internal/config"
	"era-vendors-api/internal/models"
	"era-vendors-api/internal/store"
	"era-vendors-api/internal/testutil"
	"era-vendors-api/internal/vendorpage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const password = "integration-password"

type env struct {
	db      *sql.DB
	vendors *store.PostgresStore
	server  *internal.Server
}

func setup(t *testing.T) *env {
	t.Helper()
	testutil.RequireIntegration(t)

	db := testutil.NewTestDB(t)
	testutil.ResetSchema(t, db)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO users (email, password_hash, first_name, last_name, roles)
		VALUES ($1, $2, 'Dana', 'Buyer', '{admin}')`, "dana@example.com", string(hash))
	require.NoError(t, err)

	cfg := &config.Config{
		JWTSecret:   "supersecretkeyforintegrationtestingonly",
		JWTIssuer:   "era-vendors-api",
		JWTAudience: "era-vendors-api",
		JWTExpiry:   time.Hour,
	}
	vendors := store.NewPostgresStore(db, zap.NewNop())
	srv, err := internal.NewServer(cfg, vendors, store.NewPostgresUserStore(db), zap.NewNop())
	require.NoError(t, err)

	return &env{db: db, vendors: vendors, server: srv}
}

func (e *env) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.server.Router.ServeHTTP(w, req)
	return w
}

func (e *env) login(t *testing.T) string {
	t.Helper()
	w := e.request(t, http.MethodPost, "/auth/login", "", models.LoginRequest{Email: "dana@example.com", Password: password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestHealthEndpoint(t *testing.T) {
	e := setup(t)

	w := e.request(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestUnauthorizedAccess(t *testing.T) {
	e := setup(t)

	assert.Equal(t, http.StatusUnauthorized, e.request(t, http.MethodGet, "/vendors", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, e.request(t, http.MethodGet, "/vendors", "invalid-token", nil).Code)
}

func TestLoginRecordsLastLogin(t *testing.T) {
	e := setup(t)
	e.login(t)

	var last sql.NullTime
	require.NoError(t, e.db.QueryRow(`SELECT last_login_at FROM users WHERE email = $1`, "dana@example.com").Scan(&last))
	assert.True(t, last.Valid)
}

func TestVendorLifecycle(t *testing.T) {
	e := setup(t)
	token := e.login(t)

	w := e.request(t, http.MethodPost, "/vendors", token, map[string]string{"name": "Acme"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.Vendor
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, models.Placeholder, created.Email)
	require.Len(t, created.History, 1)
	assert.Equal(t, "Dana Buyer", created.History[0].User)

	w = e.request(t, http.MethodPut, "/vendors/"+created.ID, token, map[string]string{"phone": "555-0100"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.Vendor
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "555-0100", updated.Phone)
	assert.Equal(t, "Acme", updated.Name)
	require.Len(t, updated.History, 2)
	assert.Equal(t, "Updated phone", updated.History[0].Action)

	w = e.request(t, http.MethodPost, "/vendors/bulk-delete", token, map[string][]string{"ids": {created.ID, "unknown"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"deleted":1}`, w.Body.String())

	assert.Equal(t, http.StatusNotFound, e.request(t, http.MethodGet, "/vendors/"+created.ID, token, nil).Code)

	var orphans int
	require.NoError(t, e.db.QueryRow(`SELECT count(*) FROM vendor_history WHERE vendor_id = $1`, created.ID).Scan(&orphans))
	assert.Zero(t, orphans)
}

func TestUpdateUnknownVendor(t *testing.T) {
	e := setup(t)

	_, err := e.vendors.Update(context.Background(), models.Vendor{ID: "missing"}, "Dana")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPageFollowsPostgresStore(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	var failures []error
	page, err := vendorpage.New(ctx, e.vendors, auth.StaticUser("Dana"),
		vendorpage.WithErrorHandler(func(op string, err error) { failures = append(failures, fmt.Errorf("%s: %w", op, err)) }))
	require.NoError(t, err)
	defer page.Close()

	for _, name := range []string{"A", "B", "C"} {
		page.OpenAdd()
		require.NoError(t, page.UpdateField(models.FieldName, name))
		require.NoError(t, page.SubmitForm(ctx))
	}
	require.Empty(t, failures)
	require.Len(t, page.Vendors(), 3)

	page.ToggleAll()
	require.NoError(t, page.DeleteSelected())
	assert.Equal(t, vendorpage.ConfirmPending, page.DeleteState())
	require.NoError(t, page.ConfirmDelete(ctx))

	assert.Empty(t, failures)
	assert.Empty(t, page.Vendors())
	assert.Empty(t, page.Selected())
	assert.Equal(t, vendorpage.Idle, page.DeleteState())
}
