package todo_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nicolagi/todo"
	"github.com/philippgille/gokv/syncmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// TestBackend runs the list against a real MongoDB, in a throwaway database.
//
// Note: This test is only executed if the initial connection to MongoDB works.
func TestBackend(t *testing.T) {
	backend, ok := checkConnection(t)
	if !ok {
		t.Skip("No connection to MongoDB could be established. Probably not running in a proper test environment.")
	}
	ctx := context.Background()
	defer func() {
		_ = backend.Close(ctx)
	}()

	auth, err := todo.NewAuthenticator(backend.Users(), syncmap.NewStore(syncmap.DefaultOptions), todo.WithPasswordCost(bcrypt.MinCost))
	require.Nil(t, err)
	list, err := todo.NewList(backend.Items(), auth)
	require.Nil(t, err)

	require.Nil(t, list.Register(ctx, "jane@example.com", "secret"))
	require.Nil(t, list.Logout(ctx))
	err = list.Register(ctx, "jane@example.com", "secret")
	assert.True(t, errors.Is(err, todo.ErrUserExists))
	require.Nil(t, list.Login(ctx, "jane@example.com", "secret"))

	first := todo.NewItem("buy milk")
	require.Nil(t, list.AddItem(ctx, first))
	require.Nil(t, list.AddItem(ctx, todo.NewItem("walk the dog")))
	require.Nil(t, list.UpdateItemChecked(ctx, first.ID, true))

	items := list.Items()
	require.Len(t, items, 2)
	assert.Equal(t, first.ID, items[0].ID)
	assert.True(t, items[0].Checked)
	require.NotNil(t, items[0].DoneDate)
	assert.WithinDuration(t, time.Now(), *items[0].DoneDate, time.Minute)

	require.Nil(t, list.UpdateItemChecked(ctx, first.ID, false))
	item, ok := list.ItemByID(first.ID)
	require.True(t, ok)
	assert.Nil(t, item.DoneDate)

	err = list.UpdateItemTask(ctx, todo.NewItem("").ID, "nope")
	assert.True(t, errors.Is(err, todo.ErrNotFound))

	require.Nil(t, list.UpdateItemChecked(ctx, first.ID, true))
	require.Nil(t, list.ClearCheckedItems(ctx))
	assert.Equal(t, []string{"walk the dog"}, tasks(list.Items()))
	require.Nil(t, list.ClearAllItems(ctx))
	assert.Empty(t, list.Items())
}

func checkConnection(t *testing.T) (*todo.Backend, bool) {
	opts := todo.DefaultBackendOptions
	opts.Database = fmt.Sprintf("todo_test_%d", time.Now().UnixNano())
	opts.Timeout = 2 * time.Second
	backend, err := todo.Dial(context.Background(), opts)
	if err != nil {
		t.Logf("An error occurred during testing the connection to the server: %v", err)
		return nil, false
	}
	return backend, true
}
