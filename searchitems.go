package todo

import (
	"strings"
	"time"
)

type itemPredicate func(*Item) bool

func negate(p itemPredicate) itemPredicate {
	return func(item *Item) bool {
		return !p(item)
	}
}

// ItemScan looks for items in a list's cache. Build it with List.SearchItems and the With* methods, then call
// Results. All predicates must hold for an item to be returned.
type ItemScan struct {
	list       *List
	predicates []itemPredicate
}

// Not negates the last predicate added.  It will panic if no predicates were added.
func (s *ItemScan) Not() *ItemScan {
	i := len(s.predicates) - 1
	s.predicates[i] = negate(s.predicates[i])
	return s
}

// Len returns the number of predicates added so far.
func (s *ItemScan) Len() int {
	return len(s.predicates)
}

func (s *ItemScan) WithChecked(value bool) *ItemScan {
	s.predicates = append(s.predicates, func(item *Item) bool {
		return item.Checked == value
	})
	return s
}

// WithTask looks for items whose task contains the given substring, case-insensitive.
func (s *ItemScan) WithTask(needle string) *ItemScan {
	needle = strings.ToLower(needle)
	s.predicates = append(s.predicates, func(item *Item) bool {
		return strings.Contains(strings.ToLower(item.Task), needle)
	})
	return s
}

// WithDoneSince looks for checked items that were done at or after t.
func (s *ItemScan) WithDoneSince(t time.Time) *ItemScan {
	s.predicates = append(s.predicates, func(item *Item) bool {
		return item.Checked && item.DoneDate != nil && !item.DoneDate.Before(t)
	})
	return s
}

// Results returns copies of the matching items, in list order.
func (s *ItemScan) Results() []*Item {
	var results []*Item
	for _, item := range s.list.Items() {
		if s.match(item) {
			results = append(results, item)
		}
	}
	return results
}

func (s *ItemScan) match(item *Item) bool {
	for _, match := range s.predicates {
		if !match(item) {
			return false
		}
	}
	return true
}

func (l *List) SearchItems() *ItemScan {
	return &ItemScan{
		list: l,
	}
}
