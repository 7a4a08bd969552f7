package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tamasbrandstadter/banking-gateway/cmd/api/account"
	"github.com/tamasbrandstadter/banking-gateway/cmd/api/session"
	"github.com/tamasbrandstadter/banking-gateway/internal/web"
)

const displayCurrency = "GBP"

type balanceResponse struct {
	AccountID      int64  `json:"accountId"`
	MaskedNumber   string `json:"maskedNumber"`
	Balance        string `json:"balance"`
	DisplayBalance string `json:"displayBalance"`
}

func (a *Application) FindAccounts(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var (
		snap account.Snapshot
		err  error
	)

	if r.URL.Query().Get("refresh") == "true" {
		snap, err = a.Reconciler.Refresh(r.Context(), sess.Auth())
	} else {
		snap, err = a.Reconciler.Snapshot(r.Context(), sess.Auth())
	}
	if err != nil {
		respondRemoteError(w, err, "Failed to load accounts.")
		return
	}

	web.Respond(w, http.StatusOK, account.Summarize(snap))
}

func (a *Application) GetBalance(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	acc, ok := a.accountFromPath(w, r, sess)
	if !ok {
		return
	}

	balance, err := a.Remote.AccountBalance(r.Context(), sess.Auth(), acc.ID)
	if err != nil {
		respondRemoteError(w, err, "Failed to load balance.")
		return
	}

	web.Respond(w, http.StatusOK, balanceResponse{
		AccountID:      acc.ID,
		MaskedNumber:   acc.MaskedNumber(),
		Balance:        balance.String(),
		DisplayBalance: balance.Display(displayCurrency),
	})
}

func (a *Application) UpdateStatus(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var payload account.StatusUpdateRequest
	if err := web.Decode(r, &payload); err != nil {
		web.RespondError(w, http.StatusBadRequest, "invalid request payload, unable to parse")
		return
	}
	to := account.Status(strings.ToUpper(strings.TrimSpace(string(payload.Status))))

	acc, ok := a.accountFromPath(w, r, sess)
	if !ok {
		return
	}

	if err := account.ValidateStatusChange(acc, to); err != nil {
		var be *account.BalanceError
		if errors.As(err, &be) {
			web.RespondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		web.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := a.Remote.UpdateAccountStatus(r.Context(), sess.Auth(), acc.ID, to)
	if err != nil {
		respondRemoteError(w, err, "Failed to update account status.")
		return
	}

	a.Reconciler.Updated(r.Context(), sess.Auth(), updated)

	web.Respond(w, http.StatusOK, account.Summarize(account.Snapshot{updated})[0])
}

func (a *Application) CreateAccount(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var payload account.TypeRequest
	if err := web.Decode(r, &payload); err != nil {
		web.RespondError(w, http.StatusBadRequest, "invalid request payload, unable to parse")
		return
	}

	t := payload.Normalized()
	if !t.Supported() {
		web.RespondError(w, http.StatusBadRequest, fmt.Sprintf("unsupported account type %q", t))
		return
	}

	created, err := a.Remote.CreateAccount(r.Context(), sess.Auth(), t)
	if err != nil {
		if respondUnreadable(w, err) {
			a.refreshAccounts(r, sess)
			return
		}
		respondRemoteError(w, err, "Failed to create account.")
		return
	}

	a.refreshAccounts(r, sess)

	log.Infof("user %d opened %s account %s", sess.UserID, created.Type, created.MaskedNumber())
	web.Respond(w, http.StatusCreated, account.Summarize(account.Snapshot{created})[0])
}

func (a *Application) UpdateType(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var payload account.TypeRequest
	if err := web.Decode(r, &payload); err != nil {
		web.RespondError(w, http.StatusBadRequest, "invalid request payload, unable to parse")
		return
	}

	acc, ok := a.accountFromPath(w, r, sess)
	if !ok {
		return
	}

	to := payload.Normalized()
	if err := account.ValidateTypeChange(acc, to); err != nil {
		web.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := a.Remote.UpdateAccountType(r.Context(), sess.Auth(), acc.ID, to)
	if err != nil {
		if respondUnreadable(w, err) {
			a.refreshAccounts(r, sess)
			return
		}
		respondRemoteError(w, err, "Failed to update account type.")
		return
	}

	a.Reconciler.Updated(r.Context(), sess.Auth(), updated)

	web.Respond(w, http.StatusOK, account.Summarize(account.Snapshot{updated})[0])
}

func (a *Application) refreshAccounts(r *http.Request, sess *session.Session) {
	if _, err := a.Reconciler.Refresh(r.Context(), sess.Auth()); err != nil {
		log.WithError(err).Warnf("accounts of user %d not refreshed", sess.UserID)
	}
}

// accountFromPath resolves :id against the user's own snapshot, so ids of other
// users are never forwarded.
func (a *Application) accountFromPath(w http.ResponseWriter, r *http.Request, sess *session.Session) (account.Account, bool) {
	id, err := strconv.ParseInt(httprouter.ParamsFromContext(r.Context()).ByName("id"), 10, 64)
	if err != nil {
		web.RespondError(w, http.StatusBadRequest, "unable to parse account id")
		return account.Account{}, false
	}

	snap, err := a.Reconciler.Snapshot(r.Context(), sess.Auth())
	if err != nil {
		respondRemoteError(w, err, "Failed to load accounts.")
		return account.Account{}, false
	}

	acc, ok := snap.FindByID(id)
	if !ok {
		web.RespondError(w, http.StatusNotFound, fmt.Sprintf("account id %d is not found", id))
		return account.Account{}, false
	}

	return acc, true
}
