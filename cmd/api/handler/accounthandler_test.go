package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tamasbrandstadter/banking-gateway/cmd/api/account"
)

func TestFindAccounts(t *testing.T) {
	app := newTestApp(t, false)
	sid := app.login(t)

	w := app.do(t, http.MethodGet, "/accounts", sid, nil)

	if e, a := http.StatusOK, w.Code; e != a {
		t.Fatalf("expected status code: %v, got status code: %v", e, a)
	}

	var got []account.Summary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))

	want := []account.Summary{
		{ID: 1, MaskedNumber: "****1111", Type: account.Debit, Balance: "500.00", DisplayBalance: "£500.00", Status: account.Open},
		{ID: 2, MaskedNumber: "****2222", Type: account.Savings, Balance: "0.00", DisplayBalance: "£0.00", Status: account.Open},
		{ID: 3, MaskedNumber: "****3333", Type: account.Credit, Balance: "20.00", DisplayBalance: "£20.00", Status: account.Closed},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected difference in response body:\n%v", diff)
	}

	// served from the snapshot loaded at login
	assert.Equal(t, 1, app.bank.count("GET /accounts/user/7"))
}

func TestFindAccountsRefresh(t *testing.T) {
	app := newTestApp(t, false)
	sid := app.login(t)

	w := app.do(t, http.MethodGet, "/accounts?refresh=true", sid, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, app.bank.count("GET /accounts/user/7"))
}

func TestGetBalance(t *testing.T) {
	app := newTestApp(t, false)
	sid := app.login(t)
	app.bank.balance = "612.5"

	w := app.do(t, http.MethodGet, "/accounts/1/balance", sid, nil)

	require.Equal(t, http.StatusOK, w.Code)

	var got balanceResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, balanceResponse{AccountID: 1, MaskedNumber: "****1111", Balance: "612.50", DisplayBalance: "£612.50"}, got)
}

func TestGetBalanceUnknownAccount(t *testing.T) {
	app := newTestApp(t, false)
	sid := app.login(t)

	w := app.do(t, http.MethodGet, "/accounts/9/balance", sid, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(t, http.MethodGet, "/accounts/abc/balance", sid, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCloseAccountWithBalance(t *testing.T) {
	app := newTestApp(t, false)
	sid := app.login(t)

	w := app.do(t, http.MethodPatch, "/accounts/1/status", sid, map[string]string{"status": "CLOSED"})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, 0, app.bank.count("PATCH /accounts/7/1/status"))
}

func TestCloseEmptyAccount(t *testing.T) {
	app := newTestApp(t, false)
	sid := app.login(t)

	w := app.do(t, http.MethodPatch, "/accounts/2/status", sid, map[string]string{"status": "closed"})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"status":"CLOSED"}`, string(app.bank.body("PATCH /accounts/7/2/status")))

	var got account.Summary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, account.Closed, got.Status)

	w = app.do(t, http.MethodGet, "/accounts", sid, nil)
	var summaries []account.Summary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&summaries))
	assert.Equal(t, account.Closed, summaries[1].Status)
}

func TestUpdateStatusUnsupported(t *testing.T) {
	app := newTestApp(t, false)
	sid := app.login(t)

	w := app.do(t, http.MethodPatch, "/accounts/2/status", sid, map[string]string{"status": "FROZEN"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateAccount(t *testing.T) {
	app := newTestApp(t, false)
	sid := app.login(t)

	w := app.do(t, http.MethodPost, "/accounts", sid, map[string]string{"accountType": "savings"})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.JSONEq(t, `{"accountType":"SAVINGS"}`, string(app.bank.body("POST /accounts/7")))

	var got account.Summary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, account.Summary{ID: 4, MaskedNumber: "****4444", Type: account.Savings, Balance: "0.00", DisplayBalance: "£0.00", Status: account.Open}, got)

	assert.Equal(t, 2, app.bank.count("GET /accounts/user/7"))
}

func TestCreateAccountUnsupportedType(t *testing.T) {
	app := newTestApp(t, false)
	sid := app.login(t)

	w := app.do(t, http.MethodPost, "/accounts", sid, map[string]string{"accountType": "checking"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, app.bank.count("POST /accounts/7"))
}

func TestCreateAccountUnreadableAcknowledgement(t *testing.T) {
	app := newTestApp(t, false)
	sid := app.login(t)
	app.bank.unreadableAck = true

	w := app.do(t, http.MethodPost, "/accounts", sid, map[string]string{"accountType": "DEBIT"})

	assert.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, 2, app.bank.count("GET /accounts/user/7"))
}

func TestUpdateAccountType(t *testing.T) {
	app := newTestApp(t, false)
	sid := app.login(t)

	w := app.do(t, http.MethodPatch, "/accounts/1", sid, map[string]string{"accountType": "savings"})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"accountType":"SAVINGS"}`, string(app.bank.body("PATCH /accounts/7/1")))

	w = app.do(t, http.MethodGet, "/accounts", sid, nil)
	var summaries []account.Summary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&summaries))
	assert.Equal(t, account.Savings, summaries[0].Type)
}

func TestUpdateAccountTypeRejectedLocally(t *testing.T) {
	app := newTestApp(t, false)
	sid := app.login(t)

	tests := map[string]struct {
		path string
		typ  string
	}{
		"unsupported type": {"/accounts/1", "CHECKING"},
		"closed account":   {"/accounts/3", "DEBIT"},
		"same type":        {"/accounts/1", "debit"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			w := app.do(t, http.MethodPatch, tc.path, sid, map[string]string{"accountType": tc.typ})
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}

	assert.Equal(t, 0, app.bank.count("PATCH /accounts/7/1"))
	assert.Equal(t, 0, app.bank.count("PATCH /accounts/7/3"))
}
