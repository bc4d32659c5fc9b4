package main

import (
	"strings"

	"github.com/nicolagi/todo"
)

type itemsByTask []*todo.Item

func (items itemsByTask) Len() int {
	return len(items)
}

func (items itemsByTask) Swap(i, j int) {
	items[i], items[j] = items[j], items[i]
}

func (items itemsByTask) Less(i, j int) bool {
	return strings.ToLower(items[i].Task) < strings.ToLower(items[j].Task)
}

// Items without a done date go last.
type itemsByDoneDate []*todo.Item

func (items itemsByDoneDate) Len() int {
	return len(items)
}

func (items itemsByDoneDate) Swap(i, j int) {
	items[i], items[j] = items[j], items[i]
}

func (items itemsByDoneDate) Less(i, j int) bool {
	a, b := items[i].DoneDate, items[j].DoneDate
	if a == nil || b == nil {
		return a != nil && b == nil
	}
	return a.Before(*b)
}
