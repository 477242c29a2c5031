package lifecycle

import (
	"fmt"

	"github.com/google/uuid"
)

// EnsureDeviceID returns this installation's stable device identifier,
// generating and persisting one on first call. The id never rotates and
// never expires. If the backing storage is wiped, the next call mints a
// fresh id and the server simply treats the installation as a new device —
// the next login re-claims the slot.
func EnsureDeviceID(store CredentialStore) (string, error) {
	if store == nil {
		return "", fmt.Errorf("lifecycle: credential store is required")
	}

	existing, ok, err := store.Get(KeyDeviceID)
	if err != nil {
		return "", fmt.Errorf("load device id: %w", err)
	}
	if ok && existing != "" {
		return existing, nil
	}

	id := uuid.NewString()
	if err := store.Set(KeyDeviceID, id); err != nil {
		return "", fmt.Errorf("persist device id: %w", err)
	}
	return id, nil
}
