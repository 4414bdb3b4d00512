package agent

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
)

// GUIDStore is the persistence half of installation identity, implemented by
// the operational database when one is configured.
type GUIDStore interface {
	InstallationGUID(ctx context.Context) (string, error)
}

// ResolveGUID returns this installation's stable identifier, creating one on
// first run. The store is authoritative when present; otherwise the GUID
// lives in a dotfile at path so announcements stay collapsible across
// restarts even without a database.
func ResolveGUID(ctx context.Context, store GUIDStore, path string) (string, error) {
	if store != nil {
		guid, err := store.InstallationGUID(ctx)
		if err == nil {
			return guid, nil
		}
		log.Printf("[Agent] Installation GUID from store failed, falling back to %s: %v", path, err)
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if guid := strings.TrimSpace(string(data)); guid != "" {
			return guid, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("read guid file %s: %w", path, err)
	}

	guid := uuid.NewString()
	if err := os.WriteFile(path, []byte(guid+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write guid file %s: %w", path, err)
	}
	return guid, nil
}
