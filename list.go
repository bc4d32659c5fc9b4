package todo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
)

// Listener is notified when the cached list may have changed: after a refresh, a snapshot load, or a logout.
type Listener interface {
	// ListModified is called from the goroutine that changed the list, never with the list's lock held, so it
	// may call List methods such as Items.
	ListModified()
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func()

func (f ListenerFunc) ListModified() {
	f()
}

type listOption func(*List) error

// WithWireLog is a list option to be passed to NewList in order to log all remote operations to the specified
// file, one JSON object per line. Useful for debugging, shouldn't be needed in normal operation. Passwords are
// never logged.
func WithWireLog(pathname string) listOption {
	return func(l *List) error {
		f, err := os.OpenFile(pathname, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
		if err == nil {
			l.wlog = f
		}
		return err
	}
}

type registration struct {
	id       int
	listener Listener
}

// List is the logged-in user's to-do list. It caches the user's items and offers operations that change them
// remotely and then refresh the cache. It is safe for concurrent use.
type List struct {
	items Collection
	auth  *Authenticator

	// If not ioutil.Discard, log all remote operations to this writer, one per line, in JSON format.
	wmu  sync.Mutex
	wlog io.Writer

	mu sync.Mutex

	// Represents our cached contents, oldest item first, and whose they are.
	cache []*Item
	owner string

	listeners []registration
	nextID    int
}

// NewList creates a list of the items in the given collection, scoped to whoever is logged in with auth. The
// cache starts empty; call Refresh (or Load) to populate it.
func NewList(items Collection, auth *Authenticator, opts ...listOption) (*List, error) {
	l := &List{
		items: items,
		auth:  auth,
		wlog:  ioutil.Discard,
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Close closes the wire log, if any.
func (l *List) Close() error {
	l.wmu.Lock()
	defer l.wmu.Unlock()
	if c, ok := l.wlog.(io.Closer); ok {
		l.wlog = ioutil.Discard
		return c.Close()
	}
	return nil
}

func (l *List) IsLoggedIn() bool {
	return l.auth.IsLoggedIn()
}

// User returns the logged-in user, or nil.
func (l *List) User() *User {
	return l.auth.User()
}

// AddItem inserts the item in the collection, owned by the logged-in user, then refreshes the list. The item's
// owner is overwritten, and a missing id is generated.
func (l *List) AddItem(ctx context.Context, item *Item) error {
	user := l.auth.User()
	if user == nil {
		return ErrNotLoggedIn
	}
	if blank(item.Task) {
		return ErrEmptyTask
	}
	if item.ID.IsZero() {
		item.ID = newID()
	}
	item.OwnerID = user.ID
	return l.executeThenRefresh(ctx, "insert", item, func() error {
		return l.items.Insert(ctx, item)
	})
}

// UpdateItemChecked checks or unchecks one of the user's items, then refreshes the list.
func (l *List) UpdateItemChecked(ctx context.Context, id ID, checked bool) error {
	return l.updateItem(ctx, id, NewItemPatch().WithChecked(checked))
}

// UpdateItemTask changes the task of one of the user's items, then refreshes the list.
func (l *List) UpdateItemTask(ctx context.Context, id ID, task string) error {
	if blank(task) {
		return ErrEmptyTask
	}
	return l.updateItem(ctx, id, NewItemPatch().WithTask(task))
}

func (l *List) updateItem(ctx context.Context, id ID, patch *ItemPatch) error {
	user := l.auth.User()
	if user == nil {
		return ErrNotLoggedIn
	}
	f := Filter{}.WithOwner(user.ID)
	args := struct {
		ID     ID           `json:"id"`
		Update extJSONPatch `json:"update"`
	}{id, extJSONPatch{patch}}
	return l.executeThenRefresh(ctx, "update", args, func() error {
		return l.items.Update(ctx, f, id, patch)
	})
}

// ClearCheckedItems deletes the user's checked items, then refreshes the list.
func (l *List) ClearCheckedItems(ctx context.Context) error {
	user := l.auth.User()
	if user == nil {
		return ErrNotLoggedIn
	}
	return l.deleteItems(ctx, Filter{}.WithOwner(user.ID).WithChecked(true))
}

// ClearAllItems deletes all of the user's items, then refreshes the list.
func (l *List) ClearAllItems(ctx context.Context) error {
	user := l.auth.User()
	if user == nil {
		return ErrNotLoggedIn
	}
	return l.deleteItems(ctx, Filter{}.WithOwner(user.ID))
}

func (l *List) deleteItems(ctx context.Context, f Filter) error {
	return l.executeThenRefresh(ctx, "delete", extJSON(f.Query()), func() error {
		n, err := l.items.Delete(ctx, f)
		if err == nil {
			l.logWire("deleted", n)
		}
		return err
	})
}

// executeThenRefresh runs a remote operation and, if it succeeds, refreshes the list. The operation's error is
// returned as is. A failed refresh is only logged: the operation went through, and the next refresh will catch up.
func (l *List) executeThenRefresh(ctx context.Context, op string, args interface{}, do func() error) error {
	l.logWire(op, args)
	if err := do(); err != nil {
		return err
	}
	if err := l.Refresh(ctx); err != nil {
		log.WithFields(log.Fields{
			"op":    op,
			"cause": err,
		}).Warning("Could not refresh list")
	}
	return nil
}

// Refresh replaces the cache with the logged-in user's items in the collection, then notifies listeners.
func (l *List) Refresh(ctx context.Context) error {
	user := l.auth.User()
	if user == nil {
		return ErrNotLoggedIn
	}
	f := Filter{}.WithOwner(user.ID)
	l.logWire("find", extJSON(f.Query()))
	items, err := l.items.Find(ctx, f)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	l.mu.Lock()
	// Whoever logged out (or in as someone else) while we were waiting wins.
	if current := l.auth.User(); current == nil || current.ID != user.ID {
		l.mu.Unlock()
		return fmt.Errorf("refresh: %w", ErrNotLoggedIn)
	}
	l.cache = items
	l.owner = user.ID
	l.mu.Unlock()
	l.notify()
	return nil
}

// LoginAnonymously logs in as a new anonymous user, then refreshes the list.
func (l *List) LoginAnonymously(ctx context.Context) error {
	return l.executeThenRefresh(ctx, "login", map[string]string{"provider": ProviderAnonymous}, func() error {
		return l.auth.LoginAnonymously(ctx)
	})
}

// Login logs in with email and password, then refreshes the list.
func (l *List) Login(ctx context.Context, email, password string) error {
	args := map[string]string{"provider": ProviderUserPass, "email": email}
	return l.executeThenRefresh(ctx, "login", args, func() error {
		return l.auth.Login(ctx, email, password)
	})
}

// Register creates an email/password account and logs it in, then refreshes the list. If someone is logged in,
// it fails with ErrLoggedIn and no account is created.
func (l *List) Register(ctx context.Context, email, password string) error {
	l.logWire("register", map[string]string{"email": email})
	args := map[string]string{"provider": ProviderUserPass, "email": email}
	return l.executeThenRefresh(ctx, "login", args, func() error {
		return l.auth.RegisterAndLogin(ctx, email, password)
	})
}

// Logout logs the user out and empties the cache. Listeners are notified even if logging out failed.
func (l *List) Logout(ctx context.Context) error {
	l.logWire("logout", nil)
	err := l.auth.Logout(ctx)
	l.mu.Lock()
	l.cache = nil
	l.owner = ""
	l.mu.Unlock()
	l.notify()
	return err
}

// Items returns a copy of the cached items, oldest first.
func (l *List) Items() []*Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	items := make([]*Item, 0, len(l.cache))
	for _, item := range l.cache {
		items = append(items, item.clone())
	}
	return items
}

// ItemByID looks up the item by id in the cache (no remote call is made).
func (l *List) ItemByID(id ID) (*Item, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, item := range l.cache {
		if item.ID == id {
			return item.clone(), true
		}
	}
	return nil, false
}

// RegisterListener adds a listener to be notified of list changes. Listeners are called in registration order.
// The returned function unregisters the listener.
func (l *List) RegisterListener(listener Listener) (unregister func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextID
	l.nextID++
	l.listeners = append(l.listeners, registration{id: id, listener: listener})
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, r := range l.listeners {
			if r.id == id {
				l.listeners = append(l.listeners[:i:i], l.listeners[i+1:]...)
				return
			}
		}
	}
}

func (l *List) notify() {
	l.mu.Lock()
	listeners := make([]Listener, 0, len(l.listeners))
	for _, r := range l.listeners {
		listeners = append(listeners, r.listener)
	}
	l.mu.Unlock()
	for _, listener := range listeners {
		listener.ListModified()
	}
}

func (l *List) logWire(op string, args interface{}) {
	b, err := json.Marshal(struct {
		Op   string      `json:"op"`
		Args interface{} `json:"args,omitempty"`
	}{op, args})
	if err != nil {
		log.WithFields(log.Fields{
			"op":    op,
			"cause": err,
		}).Warning("Could not marshal wire log entry")
		return
	}
	l.wmu.Lock()
	defer l.wmu.Unlock()
	_, _ = l.wlog.Write(append(b, '\n'))
}

// extJSON renders a query for the wire log.
func extJSON(doc bson.D) json.RawMessage {
	b, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		b, _ = json.Marshal(err.Error())
	}
	return b
}

// extJSONPatch renders a patch's update document for the wire log.
type extJSONPatch struct {
	patch *ItemPatch
}

// MarshalJSON implements json.Marshaler.
func (p extJSONPatch) MarshalJSON() ([]byte, error) {
	update, err := p.patch.Update()
	if err != nil {
		return nil, err
	}
	return bson.MarshalExtJSON(update, false, false)
}
