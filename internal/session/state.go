// File: internal/session/state.go
package session

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	json "github.com/json-iterator/go"
	"github.com/krellwind/tether/internal/statestore"
	"go.uber.org/zap"
)

// StorageState captures the live browser's cookies and per-origin storage.
// The daemon only exposes capture as a file write, so the flow is: ask the
// daemon to dump to a uniquely named temp file, read it back, delete it.
func (c *Client) StorageState() (*statestore.StorageState, error) {
	path := filepath.Join(os.TempDir(), "tether-state-"+uuid.NewString()+".json")
	defer os.Remove(path)

	if _, err := c.Send("state_save", map[string]any{"path": path}); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading captured state: %w", err)
	}
	var state statestore.StorageState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decoding captured state: %w", err)
	}
	return &state, nil
}

// SetStorageState replays a saved state into the live browser: cookies go in
// one batched command, then each origin with storage gets a navigate followed
// by per-key writes (web storage is origin-scoped, so the page must be on the
// origin before its keys can be set).
func (c *Client) SetStorageState(state *statestore.StorageState) error {
	if state == nil {
		return nil
	}

	if len(state.Cookies) > 0 {
		if err := c.SetCookies(state.Cookies); err != nil {
			return fmt.Errorf("restoring cookies: %w", err)
		}
	}

	for _, origin := range state.Origins {
		if len(origin.LocalStorage) == 0 && len(origin.SessionStorage) == 0 {
			continue
		}
		if err := c.Navigate(origin.Origin); err != nil {
			return fmt.Errorf("navigating to %s for storage restore: %w", origin.Origin, err)
		}
		for _, kv := range origin.LocalStorage {
			if err := c.StorageSet("local", kv.Name, kv.Value); err != nil {
				return fmt.Errorf("restoring localStorage on %s: %w", origin.Origin, err)
			}
		}
		for _, kv := range origin.SessionStorage {
			if err := c.StorageSet("session", kv.Name, kv.Value); err != nil {
				return fmt.Errorf("restoring sessionStorage on %s: %w", origin.Origin, err)
			}
		}
	}

	c.log.Debug("Storage state replayed",
		zap.Int("cookies", len(state.Cookies)),
		zap.Int("origins", len(state.Origins)))
	return nil
}

// SaveStateAs captures the live state and persists it under an identity name.
func (c *Client) SaveStateAs(store *statestore.Store, identity string) error {
	state, err := c.StorageState()
	if err != nil {
		return err
	}
	return store.Save(identity, state)
}
