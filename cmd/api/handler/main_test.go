package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/tamasbrandstadter/banking-gateway/cmd/api/notification"
	"github.com/tamasbrandstadter/banking-gateway/cmd/api/reconcile"
	"github.com/tamasbrandstadter/banking-gateway/cmd/api/session"
	"github.com/tamasbrandstadter/banking-gateway/cmd/api/transaction"
	"github.com/tamasbrandstadter/banking-gateway/internal/bankapi"
	"github.com/tamasbrandstadter/banking-gateway/internal/cache"
	"github.com/tamasbrandstadter/banking-gateway/internal/testcache"
	"github.com/tamasbrandstadter/banking-gateway/internal/testdb"
	"github.com/tamasbrandstadter/banking-gateway/internal/testmq"
)

const userID = 7

const accountsBody = `[
	{"id":1,"accountNumber":"11111111","accountType":"debit","balance":500,"status":"open"},
	{"id":2,"accountNumber":"22222222","accountType":"SAVINGS","balance":"0.00","status":"OPEN"},
	{"id":3,"accountNumber":"33333333","accountType":"CREDIT","balance":"20.00","status":"CLOSED"}
]`

// bank is a stand-in for the remote banking API.
type bank struct {
	mu       sync.Mutex
	requests map[string]int
	bodies   map[string][]byte

	balance       string
	mutationCode  int
	mutationBody  string
	unreadableAck bool
}

func newBank() *bank {
	return &bank{
		requests:     map[string]int{},
		bodies:       map[string][]byte{},
		balance:      "500.00",
		mutationCode: http.StatusOK,
	}
}

func (b *bank) count(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[key]
}

func (b *bank) body(key string) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bodies[key]
}

func (b *bank) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	key := r.Method + " " + r.URL.Path

	b.mu.Lock()
	b.requests[key]++
	b.bodies[key] = body
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch key {
	case "POST /auth/login":
		var req bankapi.LoginRequest
		_ = json.Unmarshal(body, &req)
		if req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("Invalid email or password"))
			return
		}
		fmt.Fprintf(w, `{"id":%d,"firstName":"Ada","email":"%s","token":"jwt-token"}`, userID, req.Email)
	case "POST /auth/register":
		var req bankapi.RegisterRequest
		_ = json.Unmarshal(body, &req)
		if req.Email == "ada@bank.test" {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte("User already exists"))
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(bankapi.User{ID: 8, Email: req.Email, FirstName: req.FirstName, PhoneNumber: req.PhoneNumber})
	case fmt.Sprintf("GET /user/%d", userID):
		fmt.Fprintf(w, `{"id":%d,"email":"ada@bank.test","firstName":"Ada","lastName":"Lovelace","phoneNumber":"07700900123"}`, userID)
	case fmt.Sprintf("PUT /user/%d", userID):
		var req bankapi.ProfileUpdate
		_ = json.Unmarshal(body, &req)
		_ = json.NewEncoder(w).Encode(bankapi.User{ID: userID, Email: req.Email, FirstName: req.FirstName, LastName: req.LastName, PhoneNumber: req.PhoneNumber})
	case fmt.Sprintf("POST /user/%d/address", userID), fmt.Sprintf("GET /user/%d/address", userID):
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
		}
		fmt.Fprintf(w, `{"id":3,"street":"1 Main St","city":"London","postCode":"N1 9GU","country":"UK","userId":%d}`, userID)
	case fmt.Sprintf("POST /accounts/%d", userID):
		if b.unreadableAck {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`created`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":4,"accountNumber":"44444444","accountType":"savings","balance":0,"status":"open"}`))
	case fmt.Sprintf("PATCH /accounts/%d/1", userID):
		_, _ = w.Write([]byte(`{"id":1,"accountNumber":"11111111","accountType":"SAVINGS","balance":500,"status":"OPEN"}`))
	case "GET /transaction-categories":
		_, _ = w.Write([]byte(`[
			{"id":1,"name":"General Deposit","description":"Default deposit","categoryType":"income","system":true},
			{"id":2,"name":"Groceries","description":"Food shopping","categoryType":"expense","system":false}
		]`))
	case fmt.Sprintf("GET /accounts/user/%d", userID):
		_, _ = w.Write([]byte(accountsBody))
	case fmt.Sprintf("GET /accounts/%d/1/balance", userID):
		fmt.Fprintf(w, `{"accountNumber":"11111111","balance":"%s"}`, b.balance)
	case fmt.Sprintf("PATCH /accounts/%d/2/status", userID):
		_, _ = w.Write([]byte(`{"id":2,"accountNumber":"22222222","accountType":"SAVINGS","balance":"0.00","status":"CLOSED"}`))
	case fmt.Sprintf("POST /transactions/%d/deposit", userID),
		fmt.Sprintf("POST /transactions/%d/withdraw", userID),
		fmt.Sprintf("POST /transactions/%d/transfer", userID):
		if b.mutationCode != http.StatusOK {
			w.WriteHeader(b.mutationCode)
			_, _ = w.Write([]byte(b.mutationBody))
			return
		}
		if b.unreadableAck {
			_, _ = w.Write([]byte(`{"id":99,"transactionNumber":`))
			return
		}
		_, _ = w.Write([]byte(`{"id":99,"transactionNumber":"TX-99","transactionType":"DEPOSIT","accountNumber":"11111111",` +
			`"amount":100.00,"balanceAfterTransaction":600.00,"description":"general deposit","createdAt":"2024-03-01T10:00:00Z"}`))
	case fmt.Sprintf("GET /transactions/%d/account", userID):
		_, _ = w.Write([]byte(`[
			{"id":1,"transactionNumber":"TX-1","transactionType":"DEPOSIT","amount":"100.00","description":"salary","createdAt":"2024-03-01T10:00:00Z"},
			{"id":2,"transactionNumber":"TX-2","transactionType":"WITHDRAWAL","amount":"25.00","description":"groceries","createdAt":"2024-03-02T10:00:00Z"}
		]`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("Not found"))
	}
}

type testApp struct {
	handler   *Application
	bank      *bank
	publisher *testmq.Publisher
	snapshots *cache.Snapshots
	mock      sqlmock.Sqlmock
}

func newTestApp(t *testing.T, withDB bool) *testApp {
	t.Helper()

	b := newBank()
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	client := bankapi.NewClient(bankapi.Config{BaseURL: srv.URL, Timeout: 2 * time.Second, ReadAttempts: 1})

	redis, _ := testcache.Open(t)
	sessions := session.NewStore(redis.Store, time.Hour)
	snapshots := cache.NewSnapshots(redis.Store, time.Hour)

	pub := &testmq.Publisher{}
	reconciler := reconcile.New(client, snapshots, notification.NewNotifier(pub))
	validator := transaction.NewValidator(client, reconciler, transaction.DefaultLimits())

	app := &testApp{bank: b, publisher: pub, snapshots: snapshots}

	var db *sqlx.DB
	if withDB {
		db, app.mock = testdb.Mock(t)
	}

	app.handler = NewApplication(client, sessions, reconciler, validator, db)
	return app
}

func (a *testApp) login(t *testing.T) string {
	t.Helper()

	w := a.do(t, http.MethodPost, "/login", "", map[string]string{"email": "ada@bank.test", "password": "secret"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp loginResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotEmpty(t, resp.SessionID)

	return resp.SessionID
}

func (a *testApp) do(t *testing.T, method, path, sessionID string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, path, body)
	require.NoError(t, err)
	if sessionID != "" {
		req.Header.Set("Authorization", "Bearer "+sessionID)
	}

	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

