package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tamasbrandstadter/banking-gateway/internal/web"
)

func TestLogin(t *testing.T) {
	app := newTestApp(t, false)

	w := app.do(t, http.MethodPost, "/login", "", map[string]string{"email": "ada@bank.test", "password": "secret"})

	require.Equal(t, http.StatusOK, w.Code)

	var resp loginResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "Ada", resp.FirstName)
	assert.Equal(t, "ada@bank.test", resp.Email)

	// accounts are preloaded on login
	assert.Equal(t, 1, app.bank.count("GET /accounts/user/7"))
}

func TestLoginWrongPassword(t *testing.T) {
	app := newTestApp(t, false)

	w := app.do(t, http.MethodPost, "/login", "", map[string]string{"email": "ada@bank.test", "password": "nope"})

	if e, a := http.StatusUnauthorized, w.Code; e != a {
		t.Errorf("expected status code: %v, got status code: %v", e, a)
	}

	var resp web.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "Invalid email or password", resp.Error)
}

func TestLoginMissingFields(t *testing.T) {
	app := newTestApp(t, false)

	w := app.do(t, http.MethodPost, "/login", "", map[string]string{"email": "ada@bank.test"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, app.bank.count("POST /auth/login"))
}

func TestRoutesRequireSession(t *testing.T) {
	app := newTestApp(t, false)

	for _, path := range []string{"/accounts", "/accounts/1/balance", "/transactions?accountNumber=11111111"} {
		w := app.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)

		w = app.do(t, http.MethodGet, path, "unknown-session", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestLogout(t *testing.T) {
	app := newTestApp(t, false)
	sid := app.login(t)

	w := app.do(t, http.MethodPost, "/logout", sid, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = app.do(t, http.MethodGet, "/accounts", sid, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
