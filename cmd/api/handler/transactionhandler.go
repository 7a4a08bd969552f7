package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tamasbrandstadter/banking-gateway/cmd/api/audit"
	"github.com/tamasbrandstadter/banking-gateway/cmd/api/session"
	"github.com/tamasbrandstadter/banking-gateway/cmd/api/transaction"
	"github.com/tamasbrandstadter/banking-gateway/internal/amount"
	"github.com/tamasbrandstadter/banking-gateway/internal/bankapi"
	"github.com/tamasbrandstadter/banking-gateway/internal/web"
)

const (
	defaultAuditLimit = 20
	maxAuditLimit     = 100
	maxAuditAmount    = 64
)

func (a *Application) Deposit(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req transaction.DepositRequest
	if err := web.Decode(r, &req); err != nil {
		web.RespondError(w, http.StatusBadRequest, "invalid request payload, unable to parse")
		return
	}

	snap, err := a.Reconciler.Snapshot(r.Context(), sess.Auth())
	if err != nil {
		respondRemoteError(w, err, "Failed to load accounts.")
		return
	}

	tx, err := a.Validator.SubmitDeposit(r.Context(), sess.Auth(), req, snap)
	a.record(r.Context(), sess, transaction.Deposit, "", req.ToAccount, req.Amount, err)
	a.respondOutcome(w, tx, err)
}

func (a *Application) Withdraw(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req transaction.WithdrawalRequest
	if err := web.Decode(r, &req); err != nil {
		web.RespondError(w, http.StatusBadRequest, "invalid request payload, unable to parse")
		return
	}

	snap, err := a.Reconciler.Snapshot(r.Context(), sess.Auth())
	if err != nil {
		respondRemoteError(w, err, "Failed to load accounts.")
		return
	}

	tx, err := a.Validator.SubmitWithdrawal(r.Context(), sess.Auth(), req, snap)
	a.record(r.Context(), sess, transaction.Withdrawal, req.FromAccount, "", req.Amount, err)
	a.respondOutcome(w, tx, err)
}

func (a *Application) Transfer(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req transaction.TransferRequest
	if err := web.Decode(r, &req); err != nil {
		web.RespondError(w, http.StatusBadRequest, "invalid request payload, unable to parse")
		return
	}

	snap, err := a.Reconciler.Snapshot(r.Context(), sess.Auth())
	if err != nil {
		respondRemoteError(w, err, "Failed to load accounts.")
		return
	}

	tx, err := a.Validator.SubmitTransfer(r.Context(), sess.Auth(), req, snap)
	a.record(r.Context(), sess, transaction.Transfer, req.FromAccount, req.ToAccount, req.Amount, err)
	a.respondOutcome(w, tx, err)
}

func (a *Application) respondOutcome(w http.ResponseWriter, tx bankapi.Transaction, err error) {
	res := transaction.Outcome(tx, err)
	if res.Success {
		web.Respond(w, http.StatusOK, res)
		return
	}

	code := http.StatusBadRequest

	var rej *transaction.Rejection
	if errors.As(err, &rej) {
		switch {
		case rej.Local():
			code = http.StatusUnprocessableEntity
		case rej.Unavailable():
			code = http.StatusServiceUnavailable
		}
	}

	web.Respond(w, code, res)
}

// record writes the audit trail of a submission. It never affects the response.
func (a *Application) record(ctx context.Context, sess *session.Session, kind transaction.Kind, from, to, rawAmount string, err error) {
	if a.DB == nil {
		return
	}

	res := transaction.Outcome(bankapi.Transaction{}, err)

	amt := strings.TrimSpace(rawAmount)
	if parsed, perr := amount.Parse(amt); perr == nil {
		amt = parsed.String()
	}
	if len(amt) > maxAuditAmount {
		amt = amt[:maxAuditAmount]
	}

	rec := &audit.Record{
		UserID:      sess.UserID,
		Kind:        string(kind),
		FromAccount: strings.TrimSpace(from),
		ToAccount:   strings.TrimSpace(to),
		Amount:      amt,
		Success:     res.Success,
		Reason:      string(res.Reason),
		Message:     res.Message,
	}

	if err := audit.SaveRecord(ctx, a.DB, rec); err != nil {
		log.WithError(err).Errorf("audit of %s for user %d failed", kind, sess.UserID)
	}
}

// FindCategories lists transaction categories, ?type= narrows them to
// income, expense or transfer.
func (a *Application) FindCategories(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	all, err := a.Remote.Categories(r.Context(), sess.Auth())
	if err != nil {
		respondRemoteError(w, err, "Failed to load categories.")
		return
	}

	kind := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("type")))
	if kind == "" {
		web.Respond(w, http.StatusOK, all)
		return
	}

	filtered := make([]bankapi.Category, 0, len(all))
	for _, c := range all {
		if strings.EqualFold(c.CategoryType, kind) {
			filtered = append(filtered, c)
		}
	}

	web.Respond(w, http.StatusOK, filtered)
}

func (a *Application) FindTransactions(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	q := r.URL.Query()

	number := strings.TrimSpace(q.Get("accountNumber"))
	if number == "" {
		web.RespondError(w, http.StatusBadRequest, "accountNumber is a required query parameter")
		return
	}

	snap, err := a.Reconciler.Snapshot(r.Context(), sess.Auth())
	if err != nil {
		respondRemoteError(w, err, "Failed to load accounts.")
		return
	}

	if _, ok := snap.Find(number); !ok {
		web.RespondError(w, http.StatusNotFound, "account is not found")
		return
	}

	txs, err := a.Remote.Transactions(r.Context(), sess.Auth(), number)
	if err != nil {
		respondRemoteError(w, err, "Failed to load transactions.")
		return
	}

	web.Respond(w, http.StatusOK, transaction.History(txs, transaction.Filter{
		Type:   q.Get("type"),
		Search: q.Get("q"),
	}))
}

func (a *Application) FindAuditRecords(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	limit := defaultAuditLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			web.RespondError(w, http.StatusBadRequest, "limit must be a positive number")
			return
		}
		if n > maxAuditLimit {
			n = maxAuditLimit
		}
		limit = n
	}

	records, err := audit.Recent(r.Context(), a.DB, sess.UserID, limit)
	if err != nil {
		web.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	web.Respond(w, http.StatusOK, records)
}
