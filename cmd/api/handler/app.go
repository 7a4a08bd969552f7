package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tamasbrandstadter/banking-gateway/cmd/api/account"
	"github.com/tamasbrandstadter/banking-gateway/cmd/api/reconcile"
	"github.com/tamasbrandstadter/banking-gateway/cmd/api/session"
	"github.com/tamasbrandstadter/banking-gateway/cmd/api/transaction"
	"github.com/tamasbrandstadter/banking-gateway/internal/bankapi"
	"github.com/tamasbrandstadter/banking-gateway/internal/web"
)

const (
	register       = "/register"
	login          = "/login"
	logout         = "/logout"
	profilePath    = "/profile"
	addressPath    = "/profile/address"
	accounts       = "/accounts"
	accountByID    = "/accounts/:id"
	accountBalance = "/accounts/:id/balance"
	accountStatus  = "/accounts/:id/status"
	deposits       = "/deposits"
	withdrawals    = "/withdrawals"
	transfers      = "/transfers"
	transactions   = "/transactions"
	categories     = "/categories"
	auditRecords   = "/audit"
)

// Remote is everything the gateway asks of the banking API.
type Remote interface {
	transaction.Remote
	session.Authenticator
	reconcile.Remote
	Register(ctx context.Context, req bankapi.RegisterRequest) (bankapi.User, error)
	Profile(ctx context.Context, auth bankapi.Auth) (bankapi.User, error)
	UpdateProfile(ctx context.Context, auth bankapi.Auth, p bankapi.ProfileUpdate) (bankapi.User, error)
	CreateAddress(ctx context.Context, auth bankapi.Auth, req bankapi.AddressRequest) (bankapi.Address, error)
	Address(ctx context.Context, auth bankapi.Auth) (bankapi.Address, error)
	CreateAccount(ctx context.Context, auth bankapi.Auth, t account.Type) (account.Account, error)
	UpdateAccountType(ctx context.Context, auth bankapi.Auth, accountID int64, t account.Type) (account.Account, error)
	UpdateAccountStatus(ctx context.Context, auth bankapi.Auth, accountID int64, status account.Status) (account.Account, error)
	Transactions(ctx context.Context, auth bankapi.Auth, accountNumber string) ([]bankapi.Transaction, error)
	Categories(ctx context.Context, auth bankapi.Auth) ([]bankapi.Category, error)
}

type Application struct {
	Remote     Remote
	Sessions   *session.Store
	Reconciler *reconcile.Reconciler
	Validator  *transaction.Validator
	DB         *sqlx.DB

	handler http.Handler
}

func (a *Application) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

// NewApplication wires the routes. db may be nil, submissions are then not audited.
func NewApplication(remote Remote, sessions *session.Store, reconciler *reconcile.Reconciler, validator *transaction.Validator, db *sqlx.DB) *Application {
	app := Application{
		Remote:     remote,
		Sessions:   sessions,
		Reconciler: reconciler,
		Validator:  validator,
		DB:         db,
	}

	router := httprouter.New()
	router.HandlerFunc(http.MethodPost, register, app.Register)
	router.HandlerFunc(http.MethodPost, login, app.Login)
	router.HandlerFunc(http.MethodPost, logout, app.authenticated(app.Logout))
	router.HandlerFunc(http.MethodGet, profilePath, app.authenticated(app.GetProfile))
	router.HandlerFunc(http.MethodPut, profilePath, app.authenticated(app.UpdateProfile))
	router.HandlerFunc(http.MethodGet, addressPath, app.authenticated(app.GetAddress))
	router.HandlerFunc(http.MethodPost, addressPath, app.authenticated(app.CreateAddress))
	router.HandlerFunc(http.MethodGet, accounts, app.authenticated(app.FindAccounts))
	router.HandlerFunc(http.MethodPost, accounts, app.authenticated(app.CreateAccount))
	router.HandlerFunc(http.MethodPatch, accountByID, app.authenticated(app.UpdateType))
	router.HandlerFunc(http.MethodGet, accountBalance, app.authenticated(app.GetBalance))
	router.HandlerFunc(http.MethodPatch, accountStatus, app.authenticated(app.UpdateStatus))
	router.HandlerFunc(http.MethodPost, deposits, app.authenticated(app.Deposit))
	router.HandlerFunc(http.MethodPost, withdrawals, app.authenticated(app.Withdraw))
	router.HandlerFunc(http.MethodPost, transfers, app.authenticated(app.Transfer))
	router.HandlerFunc(http.MethodGet, transactions, app.authenticated(app.FindTransactions))
	router.HandlerFunc(http.MethodGet, categories, app.authenticated(app.FindCategories))
	if db != nil {
		router.HandlerFunc(http.MethodGet, auditRecords, app.authenticated(app.FindAuditRecords))
	}

	app.handler = router
	return &app
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

func (a *Application) authenticated(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := bearer(r)
		if id == "" {
			web.RespondError(w, http.StatusUnauthorized, "missing session token")
			return
		}

		sess, err := a.Sessions.Load(r.Context(), id)
		if err != nil {
			if errors.Cause(err) == session.ErrNotFound {
				web.RespondError(w, http.StatusUnauthorized, "session expired, please sign in again")
				return
			}
			web.RespondError(w, http.StatusInternalServerError, err.Error())
			return
		}

		next(w, r, sess)
	}
}

func bearer(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// respondRemoteError maps a failed remote call to a response, keeping the remote message.
func respondRemoteError(w http.ResponseWriter, err error, fallback string) {
	var apiErr *bankapi.Error
	if !errors.As(err, &apiErr) {
		web.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	switch {
	case apiErr.Unavailable():
		web.RespondError(w, http.StatusServiceUnavailable, apiErr.Message)
	case apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden:
		web.RespondError(w, apiErr.Status, apiErr.Message)
	case apiErr.Status == http.StatusNotFound || apiErr.Status == http.StatusConflict:
		web.RespondError(w, apiErr.Status, apiErr.Message)
	default:
		msg := apiErr.Message
		if msg == "" {
			msg = fallback
		}
		web.RespondError(w, http.StatusBadRequest, msg)
	}
}

type acceptedResponse struct {
	Message string `json:"message"`
}

// respondUnreadable answers a mutation the remote side accepted with a reply
// that could not be decoded. It reports false for any other error.
func respondUnreadable(w http.ResponseWriter, err error) bool {
	var malformed *bankapi.MalformedResponseError
	if !errors.As(err, &malformed) {
		return false
	}

	log.WithError(err).Warn("remote accepted request with an unreadable answer")
	web.Respond(w, http.StatusAccepted, acceptedResponse{Message: "Request accepted, refresh to see the result."})
	return true
}
