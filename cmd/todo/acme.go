package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"9fans.net/go/acme"
	"github.com/nicolagi/todo"
	log "github.com/sirupsen/logrus"
)

type windowMode int

const (
	modeLogin   windowMode = iota // /todo/login
	modeItems                     // /todo/items
	modeItem                      // /todo/items/$id
	modeNewItem                   // /todo/items/new
	modeSearch                    // /todo/search/$expr
)

func (mode windowMode) String() string {
	switch mode {
	case modeLogin:
		return "login"
	case modeItems:
		return "items"
	case modeItem:
		return "item"
	case modeNewItem:
		return "newItem"
	case modeSearch:
		return "search"
	default:
		log.WithField("mode", int(mode)).Error("Missing mode string, returning as number")
		return fmt.Sprintf("%d", int(mode))
	}
}

var all struct {
	sync.Mutex
	m map[*acme.Win]*window
}

type window struct {
	*acme.Win

	mode windowMode

	itemID todo.ID // For modeItem
	expr   string  // For modeSearch

	// If false, items are in creation order, oldest first.  Only used for items mode and search mode.
	sortAlphabetically bool
}

// resetTag is used when a new window is created, or when transitioning a window from new item mode to item mode.
func (w *window) resetTag() {
	var tag string
	switch w.mode {
	case modeLogin:
		tag = " Login Register Anon "
	case modeItems:
		tag = " New Get Put Sort Search Clear ClearAll Logout "
	case modeItem:
		tag = " Items New Get Put PutDel Check Uncheck "
	case modeNewItem:
		tag = " Items Put PutDel "
	case modeSearch:
		tag = " Items Get Sort Search "
	}
	_ = w.Ctl("cleartag")
	_ = w.Fprintf("tag", tag)
}

// exit is called after the window's event loop is over, i.e., the window has been closed in acme.  If it's the
// last window, we try to save the data before terminating the process.
func (w *window) exit() {
	all.Lock()
	defer all.Unlock()
	if all.m[w.Win] == w {
		delete(all.m, w.Win)
	}
	if len(all.m) == 0 {
		if err := app.Close(context.Background()); err != nil {
			log.WithField("cause", err).Warning("Could not close cleanly")
		}
		os.Exit(0)
	}
}

// newWindow creates a window in acme without a specific purpose, and registers it in the global map of windows.
func newWindow(pathname string) *window {
	all.Lock()
	defer all.Unlock()
	if all.m == nil {
		all.m = make(map[*acme.Win]*window)
	}

	logEntry := log.WithField("path", pathname)
	aw, err := acme.New()
	if err != nil {
		logEntry.WithField("cause", err).Warning("Could not create acme window")
		time.Sleep(10 * time.Millisecond)
		aw, err = acme.New()
		if err != nil {
			logEntry.WithField("cause", err).Fatal("Could not create acme window again")
		}
	}
	aw.SetErrorPrefix(pathname)
	_ = aw.Name(pathname)

	w := &window{Win: aw}
	all.m[w.Win] = w
	return w
}

func newLoginWindow() {
	title := "/todo/login"
	if acme.Show(title) != nil {
		return
	}
	w := newWindow(title)
	w.mode = modeLogin
	w.resetTag()
	go w.load()
	go w.loop()
}

// newItemsWindow returns the new window, or nil if one was already open (and has been shown).
func newItemsWindow() *window {
	title := "/todo/items"
	if acme.Show(title) != nil {
		return nil
	}
	w := newWindow(title)
	w.mode = modeItems
	w.resetTag()
	go w.load()
	go w.loop()
	return w
}

func newSearchWindow(expr string) {
	title := "/todo/search/" + expr
	if acme.Show(title) != nil {
		return
	}
	w := newWindow(title)
	w.mode = modeSearch
	w.expr = expr
	w.resetTag()
	go w.load()
	go w.loop()
}

// newItemWindow opens a window for the item with the given id, or for a new item if the id is zero.
func newItemWindow(id todo.ID) {
	var title string
	if !id.IsZero() {
		title = "/todo/items/" + id.Hex()
	} else {
		title = "/todo/items/new"
	}
	if acme.Show(title) != nil {
		return
	}
	w := newWindow(title)
	if !id.IsZero() {
		w.mode = modeItem
		w.itemID = id
	} else {
		w.mode = modeNewItem
	}
	w.resetTag()
	go w.load()
	go w.loop()
}

// Look is invoked via button-3 click in acme. If the text is the id of an item, we open the item's window.
// Should return true if we were able to handle the action, otherwise return false to defer to other handlers
// (to, e.g., open a URL in the browser).
func (w *window) Look(text string) bool {
	switch w.mode {
	case modeItems, modeSearch:
		if id, err := todo.ParseID(text); err == nil {
			if _, ok := app.List.ItemByID(id); ok {
				newItemWindow(id)
				return true
			}
		}
	}
	return false
}

// load renders the window body from the list's cache. Remote calls are left to Get, which refreshes the list and
// in turn reloads every window.
func (w *window) load() {
	var buf bytes.Buffer
	var err error
	switch w.mode {
	case modeLogin:
		printLogin(&buf)
	case modeNewItem:
		printNewItem(&buf)
	case modeItem:
		err = printItemByID(&buf, w.itemID)
	case modeItems:
		err = printAllItems(&buf, w.sortAlphabetically)
	case modeSearch:
		err = printSearch(&buf, w.expr, w.sortAlphabetically)
	}
	w.Clear()
	if err != nil {
		_, _ = w.Write("body", []byte(err.Error()))
	} else if w.mode != modeItems && w.mode != modeSearch {
		_, _ = w.Write("body", buf.Bytes())
		_ = w.Ctl("clean")
	} else {
		w.PrintTabbed(buf.String())
		_ = w.Ctl("clean")
	}

	switch {
	case err == nil && (w.mode == modeItem || w.mode == modeNewItem):
		_ = w.Addr("#6") // Past "Task: "
	case err == nil && w.mode == modeLogin:
		_ = w.Addr("#7") // Past "Email: "
	default:
		_ = w.Addr("0")
	}
	_ = w.Ctl("dot=addr")
	_ = w.Ctl("show")
}

// Execute is triggered by button-2 click in acme.
func (w *window) Execute(cmd string) bool {
	ctx := context.Background()
	if strings.HasPrefix(cmd, "Search ") {
		expr := strings.TrimSpace(strings.TrimPrefix(cmd, "Search "))
		newSearchWindow(expr)
		return true
	}
	if cmd == "Check" || cmd == "Uncheck" { // Try to infer argument
		if w.mode != modeItem {
			w.Errf("%s needs an item id outside item windows", cmd)
			return true
		}
		cmd += " " + w.itemID.Hex()
	}
	if strings.HasPrefix(cmd, "Check ") || strings.HasPrefix(cmd, "Uncheck ") {
		fields := strings.Fields(cmd)
		id, err := todo.ParseID(fields[1])
		if err != nil {
			return false
		}
		checked := fields[0] == "Check"
		reportIfFails(w, app.List.UpdateItemChecked(ctx, id, checked), "Could not "+strings.ToLower(fields[0])+" item")
		return true
	}
	switch cmd {
	case "Items":
		newItemsWindow()
		return true
	case "New":
		newItemWindow(todo.ID{})
		return true
	case "Get":
		if w.mode == modeLogin || w.mode == modeNewItem {
			w.load()
		} else {
			// Reloads this window and all others.
			reportIfFails(w, app.List.Refresh(ctx), "Could not refresh")
		}
		return true
	case "Put", "PutDel":
		w.put(ctx, cmd == "PutDel")
		return true
	case "Sort":
		if w.mode == modeItems || w.mode == modeSearch {
			w.sortAlphabetically = !w.sortAlphabetically
			w.load()
		} else {
			w.Errf("Window mode does not allow sorting: %v", w.mode)
		}
		return true
	case "Clear":
		reportIfFails(w, app.List.ClearCheckedItems(ctx), "Could not clear checked items")
		return true
	case "ClearAll":
		reportIfFails(w, app.List.ClearAllItems(ctx), "Could not clear items")
		return true
	case "Login", "Register":
		email, password, err := w.readCredentials()
		if reportIfFails(w, err, "Failed parsing edited window") {
			return true
		}
		if cmd == "Login" {
			err = app.List.Login(ctx, email, password)
		} else {
			err = app.List.Register(ctx, email, password)
		}
		if !reportIfFails(w, err, cmd+" failed") {
			w.loggedIn()
		}
		return true
	case "Anon":
		if !reportIfFails(w, app.List.LoginAnonymously(ctx), "Anonymous login failed") {
			w.loggedIn()
		}
		return true
	case "Logout":
		// Windows are replaced by a login window by onListModified.
		reportIfFails(w, app.List.Logout(ctx), "Could not log out")
		return true
	case "Del":
		_ = w.Del(false)
		return true
	default:
		return false
	}
}

// loggedIn replaces the login window with the items window.
func (w *window) loggedIn() {
	newItemsWindow()
	_ = w.Del(true)
}

func (w *window) put(ctx context.Context, del bool) {
	switch w.mode {
	case modeNewItem:
		task, err := w.readTask()
		if reportIfFails(w, err, "Failed parsing edited window") {
			return
		}
		item := todo.NewItem(task)
		if reportIfFails(w, app.List.AddItem(ctx, item), "Failed adding item") {
			return
		}
		_ = w.Name("/todo/items/%s", item.ID.Hex())
		w.mode = modeItem
		w.itemID = item.ID
		w.resetTag()
		if del {
			_ = w.Del(true)
		} else {
			w.load()
		}
	case modeItem:
		task, err := w.readTask()
		if reportIfFails(w, err, "Failed parsing edited window") {
			return
		}
		if item, ok := app.List.ItemByID(w.itemID); ok && item.Task == task {
			_ = w.Ctl("clean")
		} else if reportIfFails(w, app.List.UpdateItemTask(ctx, w.itemID, task), "Could not update item") {
			return
		}
		if del {
			_ = w.Del(true)
		}
	case modeItems:
		data, err := w.ReadAll("body")
		if reportIfFails(w, err, "Could not read window") {
			return
		}
		edits := parseItemLines(string(data))
		var failed bool
		for _, e := range edits {
			item, ok := app.List.ItemByID(e.id)
			if !ok {
				log.WithField("id", e.id.Hex()).Warning("Ignoring line that refers to an unknown item")
				continue
			}
			if item.Checked != e.checked {
				failed = reportIfFails(w, app.List.UpdateItemChecked(ctx, e.id, e.checked), "Could not update item") || failed
			}
			if item.Task != e.task && e.task != "" {
				failed = reportIfFails(w, app.List.UpdateItemTask(ctx, e.id, e.task), "Could not update item") || failed
			}
		}
		if failed {
			return
		}
		_ = w.Ctl("clean")
		if del {
			_ = w.Del(true)
		}
	default:
		w.Errf("Put forbidden for this window mode: %v", w.mode)
	}
}

func (w *window) readTask() (string, error) {
	data, err := w.ReadAll("body")
	if err != nil {
		return "", err
	}
	return parseTask(string(data))
}

func (w *window) readCredentials() (email, password string, err error) {
	data, err := w.ReadAll("body")
	if err != nil {
		return "", "", err
	}
	email, password = parseCredentials(string(data))
	return email, password, nil
}

func (w *window) loop() {
	defer w.exit()
	w.EventLoop(w)
}

// onListModified reloads the windows showing the list. After a logout, they are replaced by a login window.
func onListModified() {
	loggedIn := app.List.IsLoggedIn()
	if !loggedIn {
		newLoginWindow()
	}
	all.Lock()
	defer all.Unlock()
	for _, w := range all.m {
		switch w.mode {
		case modeItems, modeSearch:
			if loggedIn {
				w.load()
			} else {
				_ = w.Del(true)
			}
		case modeItem:
			if _, ok := app.List.ItemByID(w.itemID); ok {
				_ = w.Ctl("clean")
				w.load()
			} else {
				// Deleted, e.g., by Clear.
				_ = w.Del(true)
			}
		case modeNewItem:
			if !loggedIn {
				_ = w.Del(true)
			}
		}
	}
}
