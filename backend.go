package todo

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ErrNotFound is returned when an update matches no item, or a lookup matches no user.
var ErrNotFound = errors.New("not found")

// Collection is the remote store of to-do items. The List type only ever passes filters scoped to the logged-in
// user. Backend.Items returns the MongoDB implementation.
type Collection interface {
	Insert(ctx context.Context, item *Item) error

	// Update applies the patch to the item with the given id, provided it also matches the filter. It returns an
	// error wrapping ErrNotFound if there is no such item.
	Update(ctx context.Context, f Filter, id ID, patch *ItemPatch) error

	// Delete removes all items matching the filter and returns how many were removed.
	Delete(ctx context.Context, f Filter) (int64, error)

	// Find returns the items matching the filter, oldest first.
	Find(ctx context.Context, f Filter) ([]*Item, error)
}

// BackendOptions are the options for Dial. Zero values are replaced by the corresponding DefaultBackendOptions.
type BackendOptions struct {
	// Format: mongodb://[user:pass@]host1[:port1][,host2[:port2],...][/database][?options].
	URI             string
	Database        string
	ItemsCollection string
	UsersCollection string

	// Bounds connecting, pinging and creating indexes.
	Timeout time.Duration
}

var DefaultBackendOptions = BackendOptions{
	URI:             "mongodb://localhost",
	Database:        "todo",
	ItemsCollection: "items",
	UsersCollection: "users",
	Timeout:         5 * time.Second,
}

// Backend holds the connection to MongoDB and hands out the items collection and the user store.
type Backend struct {
	client *mongo.Client
	items  *mongo.Collection
	users  *mongo.Collection
}

// Dial connects to MongoDB. It pings the primary before returning, so that a backend that can't be reached is
// reported here rather than on the first operation. The caller must Close the backend.
func Dial(ctx context.Context, opts BackendOptions) (*Backend, error) {
	if opts.URI == "" {
		opts.URI = DefaultBackendOptions.URI
	}
	if opts.Database == "" {
		opts.Database = DefaultBackendOptions.Database
	}
	if opts.ItemsCollection == "" {
		opts.ItemsCollection = DefaultBackendOptions.ItemsCollection
	}
	if opts.UsersCollection == "" {
		opts.UsersCollection = DefaultBackendOptions.UsersCollection
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultBackendOptions.Timeout
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	b := &Backend{
		client: client,
		items:  client.Database(opts.Database).Collection(opts.ItemsCollection),
		users:  client.Database(opts.Database).Collection(opts.UsersCollection),
	}
	// Connect doesn't block for server discovery, Ping does.
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		b.disconnect()
		return nil, fmt.Errorf("dial, ping: %w", err)
	}
	if err := b.ensureIndexes(ctx); err != nil {
		b.disconnect()
		return nil, fmt.Errorf("dial, indexes: %w", err)
	}
	return b, nil
}

func (b *Backend) ensureIndexes(ctx context.Context) error {
	_, err := b.items.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: ownerKey, Value: 1}},
	})
	if err != nil {
		return err
	}
	// Anonymous users have no email, hence sparse.
	_, err = b.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: emailKey, Value: 1}},
		Options: options.Index().SetUnique(true).SetSparse(true),
	})
	return err
}

func (b *Backend) disconnect() {
	if err := b.client.Disconnect(context.Background()); err != nil {
		log.WithField("cause", err).Warning("Could not disconnect from MongoDB")
	}
}

// Items returns the collection of to-do items.
func (b *Backend) Items() Collection {
	return &mongoItems{c: b.items}
}

// Users returns the store of user accounts used by the Authenticator.
func (b *Backend) Users() UserStore {
	return &mongoUsers{c: b.users}
}

func (b *Backend) Close(ctx context.Context) error {
	return b.client.Disconnect(ctx)
}

type mongoItems struct {
	c *mongo.Collection
}

func (m *mongoItems) Insert(ctx context.Context, item *Item) error {
	if _, err := m.c.InsertOne(ctx, item); err != nil {
		return fmt.Errorf("insert %v: %w", item.ID.Hex(), err)
	}
	return nil
}

func (m *mongoItems) Update(ctx context.Context, f Filter, id ID, patch *ItemPatch) error {
	update, err := patch.Update()
	if err != nil {
		return fmt.Errorf("update %v: %w", id.Hex(), err)
	}
	query := append(f.Query(), bson.E{Key: idKey, Value: id})
	r, err := m.c.UpdateOne(ctx, query, update)
	if err != nil {
		return fmt.Errorf("update %v: %w", id.Hex(), err)
	}
	if r.MatchedCount == 0 {
		return fmt.Errorf("update %v: %w", id.Hex(), ErrNotFound)
	}
	return nil
}

func (m *mongoItems) Delete(ctx context.Context, f Filter) (int64, error) {
	r, err := m.c.DeleteMany(ctx, f.Query())
	if err != nil {
		return 0, fmt.Errorf("delete: %w", err)
	}
	return r.DeletedCount, nil
}

func (m *mongoItems) Find(ctx context.Context, f Filter) ([]*Item, error) {
	cursor, err := m.c.Find(ctx, f.Query(), options.Find().SetSort(bson.D{{Key: idKey, Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	defer func() {
		if err := cursor.Close(ctx); err != nil {
			log.WithFields(log.Fields{
				"op":    "find",
				"cause": err,
			}).Warning("Could not close cursor")
		}
	}()
	var items []*Item
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("find, decode: %w", err)
	}
	return items, nil
}

type mongoUsers struct {
	c *mongo.Collection
}

func (m *mongoUsers) InsertUser(ctx context.Context, user *User) error {
	_, err := m.c.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("insert user %q: %w", user.Email, ErrUserExists)
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (m *mongoUsers) UserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := m.c.FindOne(ctx, bson.D{{Key: emailKey, Value: email}}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("user %q: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", email, err)
	}
	return &user, nil
}
