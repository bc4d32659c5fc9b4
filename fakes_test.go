package todo_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/nicolagi/todo"
	"github.com/philippgille/gokv/syncmap"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var errInjected = errors.New("injected failure")

// fakeCollection is an in-memory todo.Collection. Failures can be injected per operation.
type fakeCollection struct {
	mu    sync.Mutex
	items []*todo.Item
	now   time.Time

	failInsert, failUpdate, failDelete, failFind bool
	finds                                        int
}

func newFakeCollection() *fakeCollection {
	return &fakeCollection{now: time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeCollection) Insert(_ context.Context, item *todo.Item) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failInsert {
		return errInjected
	}
	copied := *item
	c.items = append(c.items, &copied)
	return nil
}

func (c *fakeCollection) Update(_ context.Context, f todo.Filter, id todo.ID, patch *todo.ItemPatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failUpdate {
		return errInjected
	}
	if _, err := patch.Update(); err != nil {
		return err
	}
	for _, item := range c.items {
		if item.ID == id && f.Match(item) {
			patch.Apply(item, c.now)
			return nil
		}
	}
	return fmt.Errorf("update %v: %w", id.Hex(), todo.ErrNotFound)
}

func (c *fakeCollection) Delete(_ context.Context, f todo.Filter) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failDelete {
		return 0, errInjected
	}
	var kept []*todo.Item
	for _, item := range c.items {
		if !f.Match(item) {
			kept = append(kept, item)
		}
	}
	n := int64(len(c.items) - len(kept))
	c.items = kept
	return n, nil
}

func (c *fakeCollection) Find(_ context.Context, f todo.Filter) ([]*todo.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finds++
	if c.failFind {
		return nil, errInjected
	}
	var found []*todo.Item
	for _, item := range c.items {
		if f.Match(item) {
			copied := *item
			found = append(found, &copied)
		}
	}
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].ID.Timestamp().Before(found[j].ID.Timestamp())
	})
	return found, nil
}

func (c *fakeCollection) all() []*todo.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*todo.Item(nil), c.items...)
}

// fakeUsers is an in-memory todo.UserStore.
type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*todo.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[string]*todo.User)}
}

func (s *fakeUsers) InsertUser(_ context.Context, user *todo.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.Email != "" {
		for _, u := range s.users {
			if u.Email == user.Email {
				return fmt.Errorf("insert user %q: %w", user.Email, todo.ErrUserExists)
			}
		}
	}
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *fakeUsers) UserByEmail(_ context.Context, email string) (*todo.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", email, todo.ErrNotFound)
}

func (s *fakeUsers) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

type fixture struct {
	items    *fakeCollection
	users    *fakeUsers
	sessions syncmap.Store
	auth     *todo.Authenticator
	list     *todo.List
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		items:    newFakeCollection(),
		users:    newFakeUsers(),
		sessions: syncmap.NewStore(syncmap.DefaultOptions),
	}
	var err error
	f.auth, err = todo.NewAuthenticator(f.users, f.sessions, todo.WithPasswordCost(bcrypt.MinCost))
	require.Nil(t, err)
	f.list, err = todo.NewList(f.items, f.auth)
	require.Nil(t, err)
	return f
}

// counter is a listener that counts notifications.
type counter struct {
	mu sync.Mutex
	n  int
}

func (c *counter) ListModified() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *counter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}
