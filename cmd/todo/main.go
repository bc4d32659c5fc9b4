package main

import (
	"context"
	"flag"

	"github.com/nicolagi/todo"
	log "github.com/sirupsen/logrus"
)

var app *todo.App

func main() {
	configFile := flag.String("config", "", "configuration `file` (default lib/todo/config.yaml in the home directory)")
	flag.Parse()

	cfg := mustReadConfig(*configFile)
	app = mustOpen(cfg)
	app.List.RegisterListener(todo.ListenerFunc(onListModified))

	// Create initial window, listing the items or asking to log in.
	if app.List.IsLoggedIn() {
		if w := newItemsWindow(); w != nil {
			go func() {
				reportIfFails(w, app.List.Refresh(context.Background()), "Could not refresh")
			}()
		}
	} else {
		newLoginWindow()
	}

	// The program will be terminated when the last acme window owned by this process is deleted.
	select {}
}

func mustReadConfig(pathname string) *todo.Config {
	if pathname == "" {
		var err error
		if pathname, err = todo.DefaultConfigPath(); err != nil {
			log.WithField("cause", err).Fatal("Could not get current user")
		}
	}
	cfg, err := todo.ReadConfig(pathname)
	if err != nil {
		log.WithFields(log.Fields{
			"path":  pathname,
			"cause": err,
		}).Fatal("Could not read configuration")
	}
	return cfg
}

func mustOpen(cfg *todo.Config) *todo.App {
	app, err := todo.Open(context.Background(), cfg)
	if err != nil {
		log.WithFields(log.Fields{
			"uri":   cfg.Backend.URI,
			"cause": err,
		}).Fatal("Could not open to-do list")
	}
	return app
}

// reportIfFails logs err, if not nil, and shows it in acme's errors window, prefixed by msg. It returns whether
// there was an error to report.
func reportIfFails(w *window, err error, msg string) bool {
	if err == nil {
		return false
	}
	log.WithFields(log.Fields{
		"window": w.mode,
		"cause":  err,
	}).Warning(msg)
	w.Errf("%s: %v", msg, err)
	return true
}
