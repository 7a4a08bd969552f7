package handler

import (
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tamasbrandstadter/banking-gateway/cmd/api/session"
	"github.com/tamasbrandstadter/banking-gateway/internal/web"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	SessionID string `json:"sessionId"`
	FirstName string `json:"firstName"`
	Email     string `json:"email"`
}

func (a *Application) Login(w http.ResponseWriter, r *http.Request) {
	var payload loginRequest
	if err := web.Decode(r, &payload); err != nil {
		web.RespondError(w, http.StatusBadRequest, "invalid request payload, unable to parse")
		return
	}

	if strings.TrimSpace(payload.Email) == "" || payload.Password == "" {
		web.RespondError(w, http.StatusBadRequest, "email and password are required fields")
		return
	}

	sess, err := session.Login(r.Context(), a.Remote, a.Sessions, payload.Email, payload.Password)
	if err != nil {
		respondRemoteError(w, err, "Login failed.")
		return
	}

	if _, err := a.Reconciler.Refresh(r.Context(), sess.Auth()); err != nil {
		log.WithError(err).Warnf("accounts of user %d not preloaded", sess.UserID)
	}

	web.Respond(w, http.StatusOK, loginResponse{
		SessionID: sess.ID,
		FirstName: sess.FirstName,
		Email:     sess.Email,
	})
}

func (a *Application) Logout(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := a.Sessions.Clear(r.Context(), sess.ID); err != nil {
		web.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	a.Reconciler.Forget(r.Context(), sess.Auth())

	log.Infof("user %d signed out", sess.UserID)
	web.Respond(w, http.StatusNoContent, nil)
}
