package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	seatlock "github.com/preplabs/seatlock"
)

// DeviceHeader is the request header carrying the caller's device
// identity. Every gated route requires it.
const DeviceHeader = "X-Device-Id"

type authResultContextKey struct{}

// AuthResultFromContext returns the gate decision injected by [Gate] for
// the current request.
func AuthResultFromContext(ctx context.Context) (*seatlock.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*seatlock.AuthResult)
	return res, ok
}

// errorBody is the JSON error envelope written on rejection. Code is
// machine-readable so clients can branch on it without parsing Message.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	codeUnauthenticated = "unauthenticated"
	codeDeviceMismatch  = "device_mismatch"
	codeSeatUnclaimed   = "seat_unclaimed"
	codeMalformed       = "malformed_request"
	codeInternal        = "internal"
)

// Gate wraps next with the single-seat request gate. It reads the bearer
// access token and the X-Device-Id header, asks the engine to authorize
// the pair, and injects the resulting [seatlock.AuthResult] into the
// request context on pass.
//
// Rejections carry distinct machine-readable codes: a displaced device
// sees "device_mismatch" (HTTP 403), never "unauthenticated" — clients
// must not respond to displacement by refreshing tokens.
func Gate(engine *seatlock.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeError(w, http.StatusServiceUnavailable, codeInternal, "engine not configured")
				return
			}

			token, _ := bearerToken(r.Header.Get("Authorization"))
			deviceID := r.Header.Get(DeviceHeader)

			ctx := seatlock.WithClientIP(r.Context(), clientIP(r))
			ctx = seatlock.WithUserAgent(ctx, r.Header.Get("User-Agent"))

			res, err := engine.Authorize(ctx, token, deviceID)
			if err != nil {
				writeGateError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, authResultContextKey{}, res)))
		})
	}
}

func writeGateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, seatlock.ErrDeviceMismatch):
		writeError(w, http.StatusForbidden, codeDeviceMismatch, "session is active on another device")
	// Same client recovery as a mismatch (re-login, never refresh), but a
	// never-claimed account is a distinct operator signal.
	case errors.Is(err, seatlock.ErrSeatUnclaimed):
		writeError(w, http.StatusForbidden, codeSeatUnclaimed, "no active device claim for this account")
	case errors.Is(err, seatlock.ErrMalformedRequest):
		writeError(w, http.StatusBadRequest, codeMalformed, "missing or malformed credentials")
	case errors.Is(err, seatlock.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "invalid or expired access token")
	default:
		// Registry or provider outage: fail closed without leaking detail.
		writeError(w, http.StatusServiceUnavailable, codeInternal, "authorization temporarily unavailable")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Code: code, Message: message})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}

	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host
}
