package seatlock

import (
	"context"
	"time"

	internalaudit "github.com/preplabs/seatlock/internal/audit"
)

const (
	auditEventLoginSuccess     = "login_success"
	auditEventLoginFailure     = "login_failure"
	auditEventRegisterSuccess  = "register_success"
	auditEventRegisterPending  = "register_pending"
	auditEventRegisterFailure  = "register_failure"
	auditEventDeviceTakeover   = "device_takeover"
	auditEventDeviceMismatch   = "device_mismatch"
	auditEventGateFailedClosed = "gate_failed_closed"
	auditEventRefreshSuccess   = "refresh_success"
	auditEventRefreshRejected  = "refresh_rejected"
	auditEventLogout           = "logout"
	auditEventSessionRevoked   = "session_revoked"
)

func (e *Engine) emitAudit(ctx context.Context, eventType, userID, deviceID string, success bool, errMsg string, metadata map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	e.audit.Emit(ctx, internalaudit.Event{
		Timestamp: time.Now(),
		EventType: eventType,
		UserID:    userID,
		DeviceID:  deviceID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Error:     errMsg,
		Metadata:  metadata,
	})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
