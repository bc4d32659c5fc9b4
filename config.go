package todo

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path"
	"strings"

	"github.com/spf13/viper"
)

// ErrInsecureConfig is returned by ReadConfig when the configuration file is accessible to group or others; it
// may hold the MongoDB credentials.
var ErrInsecureConfig = errors.New("stricter permissions required")

// Config is shared by the programs in cmd/. It is read from a YAML file, and every key can be overridden by an
// environment variable, e.g., TODO_MONGODB_URI for mongodb.uri.
type Config struct {
	Backend BackendOptions

	// Directory of the local gokv store holding the session and the list snapshot.
	StateDir string

	// If non-empty, passed to WithWireLog.
	WireLog string
}

// DefaultConfigPath returns lib/todo/config.yaml within the user's home directory.
func DefaultConfigPath() (string, error) {
	home, err := homeDir()
	if err != nil {
		return "", err
	}
	return path.Join(home, "lib/todo/config.yaml"), nil
}

// ReadConfig reads the configuration file at pathname. A missing file is fine, defaults and the environment
// apply; an unreadable or malformed one is an error, and so is one with loose permissions (ErrInsecureConfig).
func ReadConfig(pathname string) (*Config, error) {
	home, err := homeDir()
	if err != nil {
		return nil, err
	}
	if fi, err := os.Stat(pathname); err == nil && fi.Mode()&0077 != 0 {
		return nil, fmt.Errorf("%s: got %#o, want %#o: %w", pathname, fi.Mode().Perm(), fi.Mode().Perm()&0700, ErrInsecureConfig)
	}
	v := viper.New()
	v.SetConfigFile(pathname)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("todo")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mongodb.uri", DefaultBackendOptions.URI)
	v.SetDefault("mongodb.database", DefaultBackendOptions.Database)
	v.SetDefault("mongodb.items", DefaultBackendOptions.ItemsCollection)
	v.SetDefault("mongodb.users", DefaultBackendOptions.UsersCollection)
	v.SetDefault("mongodb.timeout", DefaultBackendOptions.Timeout)
	v.SetDefault("state.dir", path.Join(home, "lib/todo/state"))
	v.SetDefault("wirelog", "")

	if err := v.ReadInConfig(); err != nil {
		if !isNotExist(err) {
			return nil, err
		}
	}

	return &Config{
		Backend: BackendOptions{
			URI:             v.GetString("mongodb.uri"),
			Database:        v.GetString("mongodb.database"),
			ItemsCollection: v.GetString("mongodb.items"),
			UsersCollection: v.GetString("mongodb.users"),
			Timeout:         v.GetDuration("mongodb.timeout"),
		},
		StateDir: v.GetString("state.dir"),
		WireLog:  v.GetString("wirelog"),
	}, nil
}

// With SetConfigFile, viper reports a missing file as an *fs.PathError rather than viper.ConfigFileNotFoundError.
func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}

func homeDir() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", err
	}
	return u.HomeDir, nil
}
