package todo

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/philippgille/gokv"
)

const snapshotKey = "snapshot"

var (
	// ErrCorrupted can be returned by Load.
	ErrCorrupted = errors.New("local data is corrupted")

	// ErrNoSnapshot is returned by Load when the store holds no snapshot for the logged-in user.
	ErrNoSnapshot = errors.New("no snapshot")
)

// snapshot is what Dump persists.
type snapshot struct {
	OwnerID string  `json:"owner_id"`
	Items   []*Item `json:"items"`
}

// storedSnapshot carries the checksum of the marshalled snapshot alongside it.
type storedSnapshot struct {
	Data []byte `json:"data"`
	Sum  []byte `json:"sum"`
}

// Dump saves the cached items to the store, so that a later process can show them (see Load) before its first
// refresh completes. Dumping an empty cache, e.g., after logging out, removes the snapshot.
func (l *List) Dump(store gokv.Store) error {
	l.mu.Lock()
	s := snapshot{OwnerID: l.owner, Items: l.cache}
	data, err := json.Marshal(s)
	l.mu.Unlock()
	if err != nil {
		return fmt.Errorf("dump: %w", err)
	}
	if s.OwnerID == "" {
		return store.Delete(snapshotKey)
	}
	sum := sha256.Sum256(data)
	if err := store.Set(snapshotKey, storedSnapshot{Data: data, Sum: sum[:]}); err != nil {
		return fmt.Errorf("dump: %w", err)
	}
	return nil
}

// Load replaces the cache with the snapshot saved by Dump, provided the snapshot belongs to the logged-in user,
// and notifies listeners. It returns ErrNoSnapshot if there's nothing to load.
func (l *List) Load(store gokv.Store) error {
	user := l.auth.User()
	if user == nil {
		return ErrNotLoggedIn
	}
	var stored storedSnapshot
	found, err := store.Get(snapshotKey, &stored)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	if !found {
		return ErrNoSnapshot
	}
	sum := sha256.Sum256(stored.Data)
	if len(stored.Sum) != len(sum) {
		return fmt.Errorf("length mismatch: %w", ErrCorrupted)
	}
	if !bytes.Equal(stored.Sum, sum[:]) {
		return fmt.Errorf("checksum mismatch: %w", ErrCorrupted)
	}
	var s snapshot
	if err := json.Unmarshal(stored.Data, &s); err != nil {
		return fmt.Errorf("load: %v: %w", err, ErrCorrupted)
	}
	if s.OwnerID != user.ID {
		return ErrNoSnapshot
	}
	l.mu.Lock()
	l.cache = s.Items
	l.owner = s.OwnerID
	l.mu.Unlock()
	l.notify()
	return nil
}
