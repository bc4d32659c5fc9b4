package todo

import (
	"context"
	"fmt"

	"github.com/philippgille/gokv/encoding"
	"github.com/philippgille/gokv/file"
	log "github.com/sirupsen/logrus"
)

// OpenStateStore opens the on-disk gokv store that holds the session and the list snapshot, creating the
// directory if needed.
func OpenStateStore(dir string) (file.Store, error) {
	return file.NewStore(file.Options{
		Directory: dir,
		Codec:     encoding.JSON,
	})
}

// App wires together what the programs in cmd/ need: the MongoDB backend, the local state store, and the list.
type App struct {
	Backend *Backend
	State   file.Store
	List    *List
}

// Open dials the backend described by cfg and restores the session from the state store. If someone is logged
// in, the last snapshot of their list is loaded, so the list is usable before the first refresh.
func Open(ctx context.Context, cfg *Config) (*App, error) {
	state, err := OpenStateStore(cfg.StateDir)
	if err != nil {
		return nil, fmt.Errorf("open state: %w", err)
	}
	backend, err := Dial(ctx, cfg.Backend)
	if err != nil {
		_ = state.Close()
		return nil, err
	}
	app := &App{Backend: backend, State: state}
	auth, err := NewAuthenticator(backend.Users(), state)
	if err != nil {
		app.release(ctx)
		return nil, err
	}
	var opts []listOption
	if cfg.WireLog != "" {
		opts = append(opts, WithWireLog(cfg.WireLog))
	}
	app.List, err = NewList(backend.Items(), auth, opts...)
	if err != nil {
		app.release(ctx)
		return nil, err
	}
	if app.List.IsLoggedIn() {
		if err := app.List.Load(state); err != nil {
			log.WithField("cause", err).Warning("Could not load local data, will wait for a refresh")
		}
	}
	return app, nil
}

// Close saves the list snapshot and releases the backend and the state store.
func (app *App) Close(ctx context.Context) error {
	err := app.List.Dump(app.State)
	if err != nil {
		log.WithField("cause", err).Warning("Could not dump data locally")
	}
	if err := app.List.Close(); err != nil {
		log.WithField("cause", err).Warning("Could not close wire log")
	}
	app.release(ctx)
	return err
}

func (app *App) release(ctx context.Context) {
	if err := app.Backend.Close(ctx); err != nil {
		log.WithField("cause", err).Warning("Could not disconnect from MongoDB")
	}
	if err := app.State.Close(); err != nil {
		log.WithField("cause", err).Warning("Could not close state store")
	}
}
