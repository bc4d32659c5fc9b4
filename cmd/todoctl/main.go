// The todoctl program manipulates the to-do list from the command line, sharing configuration, session and local
// snapshot with the todo acme program.
//
// Examples:
//
//	todoctl login --anonymous
//	todoctl add buy milk
//	todoctl list --search milk
//	todoctl check 6710f3a2c1e4b5d6e7f80912
//	todoctl clear
package main // import "github.com/nicolagi/todo/cmd/todoctl"

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/nicolagi/todo"
	log "github.com/sirupsen/logrus"
)

func main() {
	root := newRootCmd(openApp)
	if err := root.Execute(); reportIfFails(os.Stderr, err, "todoctl") {
		os.Exit(1)
	}
}

// openApp opens the list as configured in the file at configFile, or the default configuration file if empty.
// The returned function must be called when done with the list; it saves the local snapshot.
func openApp(ctx context.Context, configFile string) (*todo.List, func(), error) {
	if configFile == "" {
		var err error
		if configFile, err = todo.DefaultConfigPath(); err != nil {
			return nil, nil, err
		}
	}
	cfg, err := todo.ReadConfig(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("read configuration %q: %w", configFile, err)
	}
	app, err := todo.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return app.List, func() {
		if err := app.Close(ctx); err != nil {
			log.WithField("cause", err).Warning("Could not close cleanly")
		}
	}, nil
}

// reportIfFails logs err, if not nil, and writes it to w, prefixed by msg. It returns whether there was an error
// to report.
func reportIfFails(w io.Writer, err error, msg string) bool {
	if err == nil {
		return false
	}
	log.WithField("cause", err).Debug(msg)
	_, _ = fmt.Fprintf(w, "%s: %v\n", msg, err)
	return true
}
