package main

import (
	"bytes"
	"sort"
	"testing"
	"time"

	"github.com/nicolagi/todo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelativeDurationFormat(t *testing.T) {
	testCases := []struct {
		d        time.Duration
		expected string
	}{
		{d: 0, expected: ""},
		{d: 30 * time.Second, expected: ""},
		{d: 5 * time.Minute, expected: "5m"},
		{d: 3*time.Hour + 5*time.Minute, expected: "3h"},
		{d: 50 * time.Hour, expected: "2d2h"},
		{d: 48 * time.Hour, expected: "2d"},
	}
	for _, tc := range testCases {
		t.Run(tc.d.String(), func(t *testing.T) {
			assert.Equal(t, tc.expected, relativeDurationFormat(tc.d))
		})
	}
}

func TestParseItemLinesRoundTrip(t *testing.T) {
	items := []*todo.Item{todo.NewItem("buy milk"), todo.NewItem("walk\tthe  dog")}
	items[1].Checked = true
	var buf bytes.Buffer
	require.Nil(t, printItems(&buf, items))

	body := "\n" + buf.String() + "not an item\n"
	edits := parseItemLines(body)
	require.Len(t, edits, 2)
	assert.Equal(t, itemEdit{id: items[0].ID, checked: false, task: "buy milk"}, edits[0])
	assert.Equal(t, itemEdit{id: items[1].ID, checked: true, task: "walk the dog"}, edits[1])
}

func TestParseItemLinesEditedMarks(t *testing.T) {
	id := todo.NewItem("x").ID.Hex()
	testCases := []struct {
		line    string
		checked bool
	}{
		{line: id + "  [x]  x", checked: true},
		{line: id + " [X] x", checked: true},
		{line: id + " [ ] x", checked: false},
		{line: id + " [] x", checked: false},
	}
	for _, tc := range testCases {
		t.Run(tc.line, func(t *testing.T) {
			edits := parseItemLines(tc.line)
			require.Len(t, edits, 1)
			assert.Equal(t, tc.checked, edits[0].checked)
			assert.Equal(t, "x", edits[0].task)
		})
	}
}

func TestParseTask(t *testing.T) {
	task, err := parseTask("Task:  buy milk \nChecked: [ ]\n")
	require.Nil(t, err)
	assert.Equal(t, "buy milk", task)

	_, err = parseTask("Checked: [ ]\n")
	assert.Equal(t, errNoTask, err)
}

func TestParseCredentials(t *testing.T) {
	var buf bytes.Buffer
	printLogin(&buf)
	email, password := parseCredentials(buf.String())
	assert.Empty(t, email)
	assert.Empty(t, password)

	email, password = parseCredentials("Email: jane@example.com\nPassword: secret \n")
	assert.Equal(t, "jane@example.com", email)
	assert.Equal(t, "secret", password)
}

func TestParseSince(t *testing.T) {
	since, ok := parseSince("2026-10-01")
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.Local), since)

	since, ok = parseSince("2026-10-01T08:30:00Z")
	require.True(t, ok)
	assert.True(t, since.Equal(time.Date(2026, 10, 1, 8, 30, 0, 0, time.UTC)))

	_, ok = parseSince("yesterday")
	assert.False(t, ok)
}

func TestItemsByDoneDate(t *testing.T) {
	early := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)
	items := []*todo.Item{
		{Task: "none"},
		{Task: "late", DoneDate: &late},
		{Task: "early", DoneDate: &early},
	}
	sort.Stable(itemsByDoneDate(items))
	var got []string
	for _, item := range items {
		got = append(got, item.Task)
	}
	assert.Equal(t, []string{"early", "late", "none"}, got)
}
