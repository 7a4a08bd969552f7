package handler

import (
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/tamasbrandstadter/banking-gateway/cmd/api/profile"
	"github.com/tamasbrandstadter/banking-gateway/cmd/api/session"
	"github.com/tamasbrandstadter/banking-gateway/internal/web"
)

func (a *Application) Register(w http.ResponseWriter, r *http.Request) {
	var payload profile.Registration
	if err := web.Decode(r, &payload); err != nil {
		web.RespondError(w, http.StatusBadRequest, "invalid request payload, unable to parse")
		return
	}

	payload = payload.Normalize()
	if err := profile.Validate(payload); err != nil {
		web.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := a.Remote.Register(r.Context(), payload.Payload())
	if err != nil {
		if respondUnreadable(w, err) {
			return
		}
		respondRemoteError(w, err, "Registration failed.")
		return
	}

	log.Infof("user %d registered", user.ID)
	web.Respond(w, http.StatusCreated, user)
}

func (a *Application) GetProfile(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	user, err := a.Remote.Profile(r.Context(), sess.Auth())
	if err != nil {
		respondRemoteError(w, err, "Failed to load profile.")
		return
	}

	web.Respond(w, http.StatusOK, user)
}

// UpdateProfile also refreshes the name and email kept in the session.
func (a *Application) UpdateProfile(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var payload profile.Update
	if err := web.Decode(r, &payload); err != nil {
		web.RespondError(w, http.StatusBadRequest, "invalid request payload, unable to parse")
		return
	}

	payload = payload.Normalize()
	if err := profile.Validate(payload); err != nil {
		web.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := a.Remote.UpdateProfile(r.Context(), sess.Auth(), payload.Payload())
	if err != nil {
		if respondUnreadable(w, err) {
			return
		}
		respondRemoteError(w, err, "Failed to update profile.")
		return
	}

	sess.FirstName = user.FirstName
	sess.Email = user.Email
	if err := a.Sessions.Save(r.Context(), sess); err != nil {
		log.WithError(err).Warnf("session of user %d keeps the old profile", sess.UserID)
	}

	web.Respond(w, http.StatusOK, user)
}

func (a *Application) GetAddress(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	addr, err := a.Remote.Address(r.Context(), sess.Auth())
	if err != nil {
		respondRemoteError(w, err, "Failed to load address.")
		return
	}

	web.Respond(w, http.StatusOK, addr)
}

func (a *Application) CreateAddress(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var payload profile.Address
	if err := web.Decode(r, &payload); err != nil {
		web.RespondError(w, http.StatusBadRequest, "invalid request payload, unable to parse")
		return
	}

	payload = payload.Normalize()
	if err := profile.Validate(payload); err != nil {
		web.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	addr, err := a.Remote.CreateAddress(r.Context(), sess.Auth(), payload.Payload())
	if err != nil {
		if respondUnreadable(w, err) {
			return
		}
		respondRemoteError(w, err, "Failed to save address.")
		return
	}

	web.Respond(w, http.StatusCreated, addr)
}
