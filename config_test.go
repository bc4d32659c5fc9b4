package todo_test

import (
	"errors"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nicolagi/todo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfigDefaults(t *testing.T) {
	cfg, err := todo.ReadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Nil(t, err)
	assert.Equal(t, todo.DefaultBackendOptions, cfg.Backend)
	assert.True(t, strings.HasSuffix(cfg.StateDir, "lib/todo/state"), cfg.StateDir)
	assert.Empty(t, cfg.WireLog)
}

func TestReadConfigFile(t *testing.T) {
	pathname := filepath.Join(t.TempDir(), "config.yaml")
	contents := `
mongodb:
  uri: mongodb://db.example.com:27017
  database: chores
  timeout: 2s
state:
  dir: /var/lib/todo
wirelog: /tmp/todo.wire
`
	require.Nil(t, ioutil.WriteFile(pathname, []byte(contents), 0600))

	cfg, err := todo.ReadConfig(pathname)
	require.Nil(t, err)
	assert.Equal(t, todo.BackendOptions{
		URI:             "mongodb://db.example.com:27017",
		Database:        "chores",
		ItemsCollection: "items",
		UsersCollection: "users",
		Timeout:         2 * time.Second,
	}, cfg.Backend)
	assert.Equal(t, "/var/lib/todo", cfg.StateDir)
	assert.Equal(t, "/tmp/todo.wire", cfg.WireLog)
}

func TestReadConfigEnvironment(t *testing.T) {
	pathname := filepath.Join(t.TempDir(), "config.yaml")
	require.Nil(t, ioutil.WriteFile(pathname, []byte("mongodb:\n  uri: mongodb://from-file\n"), 0600))
	t.Setenv("TODO_MONGODB_URI", "mongodb://from-env")
	t.Setenv("TODO_MONGODB_USERS", "accounts")

	cfg, err := todo.ReadConfig(pathname)
	require.Nil(t, err)
	assert.Equal(t, "mongodb://from-env", cfg.Backend.URI)
	assert.Equal(t, "accounts", cfg.Backend.UsersCollection)
}

func TestReadConfigMalformed(t *testing.T) {
	pathname := filepath.Join(t.TempDir(), "config.yaml")
	require.Nil(t, ioutil.WriteFile(pathname, []byte("mongodb: [unterminated\n"), 0600))
	_, err := todo.ReadConfig(pathname)
	assert.NotNil(t, err)
}

func TestReadConfigPermissions(t *testing.T) {
	pathname := filepath.Join(t.TempDir(), "config.yaml")
	require.Nil(t, ioutil.WriteFile(pathname, []byte("mongodb:\n  uri: mongodb://u:p@db\n"), 0644))
	_, err := todo.ReadConfig(pathname)
	assert.True(t, errors.Is(err, todo.ErrInsecureConfig))
}
