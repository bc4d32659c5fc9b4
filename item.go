package todo

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// Document keys of an item in the MongoDB collection.
const (
	idKey       = "_id"
	ownerKey    = "owner_id"
	taskKey     = "task"
	checkedKey  = "checked"
	doneDateKey = "done_date"
)

var (
	// ErrEmptyPatch is returned when trying to apply a patch that does not change anything.
	ErrEmptyPatch = errors.New("empty patch")

	// ErrEmptyTask is returned when adding an item, or renaming one, with a blank task.
	ErrEmptyTask = errors.New("empty task")
)

// Item is a task in a to-do list, stored as one document in the items collection. Items returned by List.Items
// and the scans are copies, so mutating them has no effect on the list. To change an item use the List methods,
// e.g., UpdateItemTask.
type Item struct {
	ID      ID     `bson:"_id" json:"id"`
	OwnerID string `bson:"owner_id,omitempty" json:"owner_id,omitempty"`
	Task    string `bson:"task" json:"task"`
	Checked bool   `bson:"checked" json:"checked"`

	// Set when the item is checked, removed when it is unchecked. New items get the creation time.
	DoneDate *time.Time `bson:"done_date,omitempty" json:"done_date,omitempty"`
}

// NewItem creates an unchecked item with a fresh id. The owner is set by List.AddItem.
func NewItem(task string) *Item {
	created := now()
	return &Item{
		ID:       newID(),
		Task:     task,
		DoneDate: &created,
	}
}

func (item *Item) clone() *Item {
	c := *item
	if item.DoneDate != nil {
		d := *item.DoneDate
		c.DoneDate = &d
	}
	return &c
}

// ItemPatch describes an update to an existing item. It renders to a MongoDB update document with Update, and
// can be applied to an in-memory item with Apply.
type ItemPatch struct {
	task    *string
	checked *bool
}

func NewItemPatch() *ItemPatch {
	return new(ItemPatch)
}

func (patch *ItemPatch) WithTask(value string) *ItemPatch {
	patch.task = &value
	return patch
}

// WithChecked marks the item as checked or unchecked. Checking an item also stamps its done date with the
// server's current time; unchecking removes the done date.
func (patch *ItemPatch) WithChecked(value bool) *ItemPatch {
	patch.checked = &value
	return patch
}

func (patch *ItemPatch) Empty() bool {
	return patch.task == nil && patch.checked == nil
}

// Update returns the MongoDB update document for the patch.
func (patch *ItemPatch) Update() (bson.D, error) {
	if patch.Empty() {
		return nil, ErrEmptyPatch
	}
	var set bson.D
	if patch.task != nil {
		set = append(set, bson.E{Key: taskKey, Value: *patch.task})
	}
	if patch.checked != nil {
		set = append(set, bson.E{Key: checkedKey, Value: *patch.checked})
	}
	update := bson.D{{Key: "$set", Value: set}}
	if patch.checked != nil {
		if *patch.checked {
			update = append(update, bson.E{Key: "$currentDate", Value: bson.D{{Key: doneDateKey, Value: true}}})
		} else {
			update = append(update, bson.E{Key: "$unset", Value: bson.D{{Key: doneDateKey, Value: ""}}})
		}
	}
	return update, nil
}

// Apply performs on item the same change that Update describes, using now as the current date.
func (patch *ItemPatch) Apply(item *Item, now time.Time) {
	if patch.task != nil {
		item.Task = *patch.task
	}
	if patch.checked != nil {
		item.Checked = *patch.checked
		if item.Checked {
			item.DoneDate = &now
		} else {
			item.DoneDate = nil
		}
	}
}

// Filter selects items in a collection. The zero value matches everything.
type Filter struct {
	OwnerID string
	Checked *bool
}

func (f Filter) WithOwner(id string) Filter {
	f.OwnerID = id
	return f
}

func (f Filter) WithChecked(value bool) Filter {
	f.Checked = &value
	return f
}

// Query returns the MongoDB query document for the filter.
func (f Filter) Query() bson.D {
	q := bson.D{}
	if f.OwnerID != "" {
		q = append(q, bson.E{Key: ownerKey, Value: f.OwnerID})
	}
	if f.Checked != nil {
		q = append(q, bson.E{Key: checkedKey, Value: *f.Checked})
	}
	return q
}

func (f Filter) Match(item *Item) bool {
	if f.OwnerID != "" && item.OwnerID != f.OwnerID {
		return false
	}
	if f.Checked != nil && item.Checked != *f.Checked {
		return false
	}
	return true
}

func blank(task string) bool {
	return strings.TrimSpace(task) == ""
}
