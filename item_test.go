package todo_test

import (
	"errors"
	"testing"
	"time"

	"github.com/nicolagi/todo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestItemPatchUpdate(t *testing.T) {
	testCases := []struct {
		setter   func(*todo.ItemPatch) // function to set attributes in the patch
		expected bson.D                // expected update document
	}{
		{
			setter: func(p *todo.ItemPatch) {
				p.WithTask("buy milk")
			},
			expected: bson.D{
				{Key: "$set", Value: bson.D{{Key: "task", Value: "buy milk"}}},
			},
		},
		{
			setter: func(p *todo.ItemPatch) {
				p.WithTask(`it "quoted" the quote`)
			},
			expected: bson.D{
				{Key: "$set", Value: bson.D{{Key: "task", Value: `it "quoted" the quote`}}},
			},
		},
		{
			setter: func(p *todo.ItemPatch) {
				p.WithChecked(true)
			},
			expected: bson.D{
				{Key: "$set", Value: bson.D{{Key: "checked", Value: true}}},
				{Key: "$currentDate", Value: bson.D{{Key: "done_date", Value: true}}},
			},
		},
		{
			setter: func(p *todo.ItemPatch) {
				p.WithChecked(false)
			},
			expected: bson.D{
				{Key: "$set", Value: bson.D{{Key: "checked", Value: false}}},
				{Key: "$unset", Value: bson.D{{Key: "done_date", Value: ""}}},
			},
		},
		{
			setter: func(p *todo.ItemPatch) {
				p.WithChecked(true).WithTask("renamed")
			},
			expected: bson.D{
				{Key: "$set", Value: bson.D{{Key: "task", Value: "renamed"}, {Key: "checked", Value: true}}},
				{Key: "$currentDate", Value: bson.D{{Key: "done_date", Value: true}}},
			},
		},
	}
	for _, tc := range testCases {
		t.Run("", func(t *testing.T) {
			patch := todo.NewItemPatch()
			tc.setter(patch)
			update, err := patch.Update()
			require.Nil(t, err)
			assert.Equal(t, tc.expected, update)
		})
	}
}

func TestItemPatchEmpty(t *testing.T) {
	patch := todo.NewItemPatch()
	assert.True(t, patch.Empty())
	update, err := patch.Update()
	assert.Nil(t, update)
	assert.True(t, errors.Is(err, todo.ErrEmptyPatch))
}

func TestItemPatchApply(t *testing.T) {
	now := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
	item := todo.NewItem("call mom")

	todo.NewItemPatch().WithChecked(true).Apply(item, now)
	assert.True(t, item.Checked)
	require.NotNil(t, item.DoneDate)
	assert.Equal(t, now, *item.DoneDate)

	todo.NewItemPatch().WithChecked(false).WithTask("call dad").Apply(item, now)
	assert.False(t, item.Checked)
	assert.Nil(t, item.DoneDate)
	assert.Equal(t, "call dad", item.Task)
}

func TestNewItem(t *testing.T) {
	item := todo.NewItem("something")
	assert.False(t, item.ID.IsZero())
	assert.Equal(t, "something", item.Task)
	assert.False(t, item.Checked)
	assert.Empty(t, item.OwnerID)
	assert.NotNil(t, item.DoneDate)
	assert.NotEqual(t, item.ID, todo.NewItem("something").ID)
}

func TestItemDecodeWithoutChecked(t *testing.T) {
	id := todo.NewItem("x").ID
	raw, err := bson.Marshal(bson.D{{Key: "_id", Value: id}, {Key: "task", Value: "from elsewhere"}})
	require.Nil(t, err)
	var item todo.Item
	require.Nil(t, bson.Unmarshal(raw, &item))
	assert.Equal(t, id, item.ID)
	assert.False(t, item.Checked)
	assert.Nil(t, item.DoneDate)
}

func TestFilter(t *testing.T) {
	mine := &todo.Item{OwnerID: "me", Checked: true}
	theirs := &todo.Item{OwnerID: "them"}
	testCases := []struct {
		filter todo.Filter
		query  bson.D
		mine   bool
		theirs bool
	}{
		{
			filter: todo.Filter{},
			query:  bson.D{},
			mine:   true,
			theirs: true,
		},
		{
			filter: todo.Filter{}.WithOwner("me"),
			query:  bson.D{{Key: "owner_id", Value: "me"}},
			mine:   true,
		},
		{
			filter: todo.Filter{}.WithChecked(false),
			query:  bson.D{{Key: "checked", Value: false}},
			theirs: true,
		},
		{
			filter: todo.Filter{}.WithOwner("me").WithChecked(true),
			query:  bson.D{{Key: "owner_id", Value: "me"}, {Key: "checked", Value: true}},
			mine:   true,
		},
	}
	for _, tc := range testCases {
		t.Run("", func(t *testing.T) {
			assert.Equal(t, tc.query, tc.filter.Query())
			assert.Equal(t, tc.mine, tc.filter.Match(mine))
			assert.Equal(t, tc.theirs, tc.filter.Match(theirs))
		})
	}
}
