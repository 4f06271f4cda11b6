package repositories

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrNotFound is returned when no document matches, including documents
	// that exist but belong to another user.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicateEmail is returned when registering an email already in use.
	ErrDuplicateEmail = errors.New("email already exists")
)

// duplicateKeyFailures returns the number of failed writes when err is a bulk
// write error made up entirely of duplicate key violations.
func duplicateKeyFailures(err error) (int, bool) {
	var bulkErr mongo.BulkWriteException
	if !errors.As(err, &bulkErr) {
		return 0, false
	}
	if bulkErr.WriteConcernError != nil || len(bulkErr.WriteErrors) == 0 {
		return 0, false
	}
	for _, we := range bulkErr.WriteErrors {
		if we.Code != 11000 {
			return 0, false
		}
	}
	return len(bulkErr.WriteErrors), true
}
