// File: internal/statestore/statestore.go
//
// Package statestore persists a browser session's authentication-relevant
// state (cookies plus per-origin local/session storage) to disk, one file per
// named identity, with a single "current" pointer selecting the active one.
package statestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// Cookie mirrors the automation daemon's serialized cookie shape.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain,omitempty"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"`
}

// KV is one storage entry.
type KV struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Origin carries the storage captured for one web origin. Storage APIs are
// origin-scoped, which is why replay has to navigate before setting keys.
type Origin struct {
	Origin         string `json:"origin"`
	LocalStorage   []KV   `json:"localStorage,omitempty"`
	SessionStorage []KV   `json:"sessionStorage,omitempty"`
}

// StorageState is the full serialized session state.
type StorageState struct {
	Cookies []Cookie `json:"cookies"`
	Origins []Origin `json:"origins"`
}

// Identity is one named entry in the identity index.
type Identity struct {
	Name    string    `json:"name"`
	AddedAt time.Time `json:"added_at"`
}

type index struct {
	Active     string     `json:"active,omitempty"`
	Identities []Identity `json:"identities"`
}

// Store manages per-identity state files under a single directory.
type Store struct {
	dir string
	ptr pointer
	log *zap.Logger
}

// New opens (creating if needed) a state store rooted at dir. The pointer
// backend is chosen by a capability probe: symlinks where the filesystem
// allows them, physical copies elsewhere.
func New(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating state dir: %w", err)
	}
	return &Store{
		dir: dir,
		ptr: newPointer(dir, currentPointerName),
		log: logger.Named("statestore"),
	}, nil
}

// CurrentPath returns the fixed path callers that assume a single state file
// read from; it transparently follows identity switches.
func (s *Store) CurrentPath() string { return s.ptr.FixedPath() }

// Save writes an identity's state file and registers it in the index. The
// first identity saved becomes current; saving the already-current identity
// refreshes the pointer (a no-op for links, a re-copy for the copy backend).
func (s *Store) Save(identity string, state *StorageState) error {
	if err := validateIdentity(identity); err != nil {
		return err
	}

	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding storage state: %w", err)
	}
	path := s.identityPath(identity)
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return fmt.Errorf("writing storage state: %w", err)
	}

	idx, err := s.readIndex()
	if err != nil {
		return err
	}
	if !idx.has(identity) {
		idx.Identities = append(idx.Identities, Identity{Name: identity, AddedAt: time.Now().UTC()})
	}
	if idx.Active == "" || idx.Active == identity {
		idx.Active = identity
		if err := s.ptr.Set(path); err != nil {
			return fmt.Errorf("updating current pointer: %w", err)
		}
	}
	if err := s.writeIndex(idx); err != nil {
		return err
	}

	s.log.Debug("Saved storage state",
		zap.String("identity", identity),
		zap.Int("cookies", len(state.Cookies)),
		zap.Int("origins", len(state.Origins)))
	return nil
}

// Load reads one identity's state file.
func (s *Store) Load(identity string) (*StorageState, error) {
	if err := validateIdentity(identity); err != nil {
		return nil, err
	}
	return readStateFile(s.identityPath(identity))
}

// LoadCurrent reads whichever identity's file the current pointer resolves to.
func (s *Store) LoadCurrent() (*StorageState, error) {
	if _, ok := s.ptr.Resolve(); !ok {
		return nil, fmt.Errorf("no current identity: %w", os.ErrNotExist)
	}
	// Reading the fixed path follows the link, or hits the physical copy.
	return readStateFile(s.ptr.FixedPath())
}

// Switch makes the named identity current.
func (s *Store) Switch(identity string) error {
	if err := validateIdentity(identity); err != nil {
		return err
	}
	path := s.identityPath(identity)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("identity %q has no saved state: %w", identity, err)
	}
	if err := s.ptr.Set(path); err != nil {
		return fmt.Errorf("updating current pointer: %w", err)
	}

	idx, err := s.readIndex()
	if err != nil {
		return err
	}
	idx.Active = identity
	if !idx.has(identity) {
		idx.Identities = append(idx.Identities, Identity{Name: identity, AddedAt: time.Now().UTC()})
	}
	return s.writeIndex(idx)
}

// ActiveIdentity returns the current identity name, if any.
func (s *Store) ActiveIdentity() (string, bool) {
	idx, err := s.readIndex()
	if err != nil || idx.Active == "" {
		return "", false
	}
	return idx.Active, true
}

// Identities lists known identities in the order they were first saved.
func (s *Store) Identities() ([]Identity, error) {
	idx, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	return idx.Identities, nil
}

// Remove deletes one identity's state file and index entry. Removing the
// active identity clears the current pointer.
func (s *Store) Remove(identity string) error {
	if err := validateIdentity(identity); err != nil {
		return err
	}
	if err := os.Remove(s.identityPath(identity)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing state file: %w", err)
	}

	idx, err := s.readIndex()
	if err != nil {
		return err
	}
	kept := idx.Identities[:0]
	for _, id := range idx.Identities {
		if id.Name != identity {
			kept = append(kept, id)
		}
	}
	idx.Identities = kept
	if idx.Active == identity {
		idx.Active = ""
		if err := s.ptr.Clear(); err != nil {
			return fmt.Errorf("clearing current pointer: %w", err)
		}
	}
	return s.writeIndex(idx)
}

// Clear wipes all identities, the index, and the pointer.
func (s *Store) Clear() error {
	idx, err := s.readIndex()
	if err != nil {
		return err
	}
	for _, id := range idx.Identities {
		if err := os.Remove(s.identityPath(id.Name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing state file for %q: %w", id.Name, err)
		}
	}
	if err := s.ptr.Clear(); err != nil {
		return fmt.Errorf("clearing current pointer: %w", err)
	}
	if err := os.Remove(s.indexPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing index: %w", err)
	}
	return nil
}

func (s *Store) identityPath(identity string) string {
	return filepath.Join(s.dir, identity+".json")
}

func (s *Store) indexPath() string {
	return filepath.Join(s.dir, "index.json")
}

func (s *Store) readIndex() (*index, error) {
	raw, err := os.ReadFile(s.indexPath())
	if os.IsNotExist(err) {
		return &index{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading identity index: %w", err)
	}
	var idx index
	if err := json.Unmarshal(raw, &idx); err != nil {
		return nil, fmt.Errorf("decoding identity index: %w", err)
	}
	return &idx, nil
}

func (s *Store) writeIndex(idx *index) error {
	payload, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding identity index: %w", err)
	}
	if err := os.WriteFile(s.indexPath(), payload, 0o600); err != nil {
		return fmt.Errorf("writing identity index: %w", err)
	}
	return nil
}

func (idx *index) has(name string) bool {
	for _, id := range idx.Identities {
		if id.Name == name {
			return true
		}
	}
	return false
}

func readStateFile(path string) (*StorageState, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading storage state: %w", err)
	}
	var state StorageState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decoding storage state: %w", err)
	}
	return &state, nil
}

func validateIdentity(identity string) error {
	trimmed := strings.TrimSpace(identity)
	if trimmed == "" {
		return fmt.Errorf("identity must not be empty")
	}
	if trimmed != identity || strings.ContainsAny(identity, `/\`) {
		return fmt.Errorf("identity %q must not contain path separators or surrounding whitespace", identity)
	}
	if identity == "index" || identity == "state" {
		return fmt.Errorf("identity %q is reserved", identity)
	}
	return nil
}
