package middleware

import (
	"encoding/json"
	"net/http"

	seatlock "github.com/preplabs/seatlock"
)

// HeartbeatHandler returns an http.Handler for a client liveness probe.
// It authorizes the caller exactly like [Gate] and, on pass, the engine
// advances the claim's last-seen timestamp so the idle window slides.
//
// Response on pass is a small JSON body echoing the resolved identity;
// rejections use the same error envelope and codes as [Gate], so a
// displaced tab learns about its displacement from the heartbeat alone.
func HeartbeatHandler(engine *seatlock.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			writeError(w, http.StatusServiceUnavailable, codeInternal, "engine not configured")
			return
		}

		token, _ := bearerToken(r.Header.Get("Authorization"))
		deviceID := r.Header.Get(DeviceHeader)

		ctx := seatlock.WithClientIP(r.Context(), clientIP(r))
		ctx = seatlock.WithUserAgent(ctx, r.Header.Get("User-Agent"))

		res, err := engine.Heartbeat(ctx, token, deviceID)
		if err != nil {
			writeGateError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			UserID   string `json:"user_id"`
			DeviceID string `json:"device_id"`
		}{UserID: res.UserID, DeviceID: res.DeviceID})
	})
}
