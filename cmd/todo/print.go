package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/nicolagi/todo"
)

var (
	errNotFound = errors.New("entity not found")
	errNoTask   = errors.New(`no "Task:" line`)
)

// One line of the items window: id, mark, task.
var itemLine = regexp.MustCompile(`^\s*([0-9a-fA-F]{24})\s+\[([ xX]?)\]\s*(.*)$`)

func printLogin(w io.Writer) {
	_, _ = fmt.Fprint(w, "Email: \nPassword: \n")
}

func printNewItem(w io.Writer) {
	_, _ = fmt.Fprint(w, "Task: \n")
}

func printAllItems(w io.Writer, alphabetically bool) error {
	items := app.List.Items()
	if alphabetically {
		sort.Stable(itemsByTask(items))
	}
	return printItems(w, items)
}

func printSearch(w io.Writer, expr string, alphabetically bool) error {
	search := app.List.SearchItems()
	for _, term := range strings.Split(expr, ":") {
		addSearchTerm(search, strings.TrimSpace(term))
	}
	items := search.Results()
	if alphabetically {
		sort.Stable(itemsByTask(items))
	} else {
		sort.Stable(itemsByDoneDate(items))
	}
	return printItems(w, items)
}

func relativeDurationFormat(d time.Duration) string {
	var buf bytes.Buffer
	t := d / (24 * time.Hour)
	if t != 0 {
		fmt.Fprintf(&buf, "%dd", t)
	}
	d -= t * 24 * time.Hour
	t = d / time.Hour
	if t != 0 {
		fmt.Fprintf(&buf, "%dh", t)
	}
	d -= t * time.Hour
	if buf.Len() == 0 {
		t = d / time.Minute
		if t != 0 {
			fmt.Fprintf(&buf, "%dm", t)
		}
	}
	return buf.String()
}

func printItems(w io.Writer, items []*todo.Item) error {
	for _, i := range items {
		_, _ = fmt.Fprintf(w, "%v\t%v\t%v\n", i.ID.Hex(), mark(i.Checked), oneLine(i.Task))
	}
	return nil
}

func printItemByID(w io.Writer, id todo.ID) error {
	item, ok := app.List.ItemByID(id)
	if !ok {
		return fmt.Errorf("print item: %v: %w", id.Hex(), errNotFound)
	}
	printItem(w, item)
	return nil
}

func printItem(w io.Writer, item *todo.Item) {
	_, _ = fmt.Fprintf(w, "Task: %s\n", oneLine(item.Task))
	_, _ = fmt.Fprintf(w, "Checked: %s\n", mark(item.Checked))
	if item.DoneDate != nil {
		done := item.DoneDate.Local().Format("2006-01-02 15:04")
		if ago := relativeDurationFormat(time.Since(*item.DoneDate)); ago != "" {
			done += " (" + ago + " ago)"
		}
		_, _ = fmt.Fprintf(w, "Done: %s\n", done)
	} else {
		_, _ = fmt.Fprint(w, "Done: \n")
	}
	_, _ = fmt.Fprintf(w, "Id: %s\n", item.ID.Hex())
}

func mark(checked bool) string {
	if checked {
		return "[x]"
	}
	return "[ ]"
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func addSearchTerm(s *todo.ItemScan, term string) {
	if term == "" {
		return
	}
	switch term[0] {
	case '-':
		// Negate only what the rest of the term added, e.g., nothing for "--".
		n := s.Len()
		addSearchTerm(s, term[1:])
		if s.Len() > n {
			s.Not()
		}
	case '@':
		switch term[1:] {
		case "done":
			s.WithChecked(true)
		case "todo":
			s.WithChecked(false)
		default:
			s.WithTask(term)
		}
	case '>':
		if since, ok := parseSince(term[1:]); ok {
			s.WithDoneSince(since)
		} else {
			s.WithTask(term)
		}
	default:
		s.WithTask(term)
	}
}

// parseSince accepts a date, taken in local time, or an RFC 3339 timestamp.
func parseSince(text string) (time.Time, bool) {
	if t, err := time.ParseInLocation("2006-01-02", text, time.Local); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return t, true
	}
	return time.Time{}, false
}

type itemEdit struct {
	id      todo.ID
	checked bool
	task    string
}

// parseItemLines parses the body of the items window. Lines that don't start with an item id are ignored.
func parseItemLines(body string) []itemEdit {
	var edits []itemEdit
	for _, line := range strings.Split(body, "\n") {
		m := itemLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		id, err := todo.ParseID(m[1])
		if err != nil {
			continue
		}
		edits = append(edits, itemEdit{
			id:      id,
			checked: strings.TrimSpace(m[2]) != "",
			task:    strings.TrimSpace(m[3]),
		})
	}
	return edits
}

// parseTask finds the task in the body of an item window.
func parseTask(body string) (string, error) {
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "Task:") {
			return strings.TrimSpace(line[len("Task:"):]), nil
		}
	}
	return "", errNoTask
}

// parseCredentials finds email and password in the body of the login window.
func parseCredentials(body string) (email, password string) {
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "Email:") {
			email = strings.TrimSpace(line[len("Email:"):])
		} else if strings.HasPrefix(line, "Password:") {
			password = strings.TrimSpace(line[len("Password:"):])
		}
	}
	return email, password
}
