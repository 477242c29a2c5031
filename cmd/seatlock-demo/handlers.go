package main

import (
	"encoding/json"
	"errors"
	"net/http"

	seatlock "github.com/preplabs/seatlock"
	"github.com/preplabs/seatlock/middleware"
)

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionResponse is the login/register/refresh response shape: user plus
// an optional session. A registration pending provider-side confirmation
// carries user only.
type sessionResponse struct {
	User    seatlock.UserProfile `json:"user"`
	Session *seatlock.TokenPair  `json:"session,omitempty"`
}

func loginHandler(engine *seatlock.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body credentialsBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "malformed_request", "invalid JSON body")
			return
		}

		res, err := engine.Login(r.Context(), body.Email, body.Password, r.Header.Get(middleware.DeviceHeader))
		if err != nil {
			writeAuthError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, sessionResponse{User: res.User, Session: res.Session})
	}
}

func registerHandler(engine *seatlock.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body credentialsBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "malformed_request", "invalid JSON body")
			return
		}

		res, err := engine.Register(r.Context(), body.Email, body.Password, r.Header.Get(middleware.DeviceHeader))
		if err != nil {
			writeAuthError(w, err)
			return
		}

		// Session absent when the provider requires confirmation first:
		// "registered, not yet logged in".
		writeJSON(w, http.StatusCreated, sessionResponse{User: res.User, Session: res.Session})
	}
}

func refreshHandler(engine *seatlock.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "malformed_request", "invalid JSON body")
			return
		}

		res, err := engine.Refresh(r.Context(), body.RefreshToken)
		if err != nil {
			writeAuthError(w, err)
			return
		}

		session := res.Session
		writeJSON(w, http.StatusOK, sessionResponse{User: res.User, Session: &session})
	}
}

func logoutHandler(engine *seatlock.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			UserID       string `json:"user_id"`
			RefreshToken string `json:"refresh_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "malformed_request", "invalid JSON body")
			return
		}

		if err := engine.Logout(r.Context(), body.UserID, body.RefreshToken); err != nil {
			writeAuthError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func meHandler(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal", "gate decision missing")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"user_id":   res.UserID,
		"email":     res.Email,
		"role":      res.Role,
		"device_id": res.DeviceID,
	})
}

func metricsHandler(engine *seatlock.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, engine.MetricsSnapshot())
	}
}

func writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, seatlock.ErrMalformedRequest):
		writeError(w, http.StatusBadRequest, "malformed_request", err.Error())
	case errors.Is(err, seatlock.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "email or password is incorrect")
	case errors.Is(err, seatlock.ErrRefreshRejected):
		writeError(w, http.StatusUnauthorized, "refresh_rejected", "session ended, log in again")
	case errors.Is(err, seatlock.ErrDeviceMismatch):
		writeError(w, http.StatusForbidden, "device_mismatch", "account is active on another device")
	case errors.Is(err, seatlock.ErrTransportFailure), errors.Is(err, seatlock.ErrProviderUnavailable),
		errors.Is(err, seatlock.ErrRegistryUnavailable):
		writeError(w, http.StatusServiceUnavailable, "internal", "temporarily unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal", "unexpected failure")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "message": message})
}
