package flows

import "context"

type LogoutRegistryStore interface {
	Revoke(ctx context.Context, userID string) error
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	// RevokeRefresh invalidates the refresh token at the provider.
	// Optional: providers without a revocation endpoint leave it nil.
	RevokeRefresh func(ctx context.Context, refreshToken string) error
	Warn          func(msg string, args ...any)
	Registry      LogoutRegistryStore
}

// RunLogout vacates the registry slot and best-effort revokes the refresh
// token at the provider. The registry delete is the authoritative part:
// once the row is gone, the next login from any device re-claims the slot.
// Provider revocation failing does not fail the logout — the token will
// age out on its own TTL.
func RunLogout(ctx context.Context, userID, refreshToken string, deps LogoutDeps) error {
	if err := deps.Registry.Revoke(ctx, userID); err != nil {
		return err
	}

	if deps.RevokeRefresh != nil && refreshToken != "" {
		if err := deps.RevokeRefresh(ctx, refreshToken); err != nil && deps.Warn != nil {
			deps.Warn("seatlock: provider refresh revocation failed", "user_id", userID, "error", err)
		}
	}

	return nil
}
