package todo

import (
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrZeroID is returned by ParseID for the empty string or the all-zero object id. Items built with NewItem never
// carry such an id.
var ErrZeroID = errors.New("zero id")

// ID is the MongoDB object id used as the _id of item documents. Its String method returns the hex form that
// ParseID accepts, which is also what the user interfaces print.
type ID = primitive.ObjectID

// ParseID parses the 24-character hex representation of an item id.
func ParseID(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return primitive.NilObjectID, ErrZeroID
	}
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("parse id %q: %w", s, err)
	}
	if id.IsZero() {
		return primitive.NilObjectID, ErrZeroID
	}
	return id, nil
}

func newID() ID {
	return primitive.NewObjectID()
}
