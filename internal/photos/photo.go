// Package photos owns the photos table: the PhotoRecord type and the
// data-access helpers that open a connection, make sure the table exists,
// run one statement and close the connection again.
package photos

import (
	"context"
	"errors"
)

// ErrEmptyURL is returned by Insert when the record has no media URL.
var ErrEmptyURL = errors.New("photo url is empty")

// PhotoRecord is one row of the photos table.
type PhotoRecord struct {
	ID           int64  `json:"-"`
	PhotoURL     string `json:"url"`
	UploaderName string `json:"name"`
	Timestamp    int64  `json:"timestamp"` // unix milliseconds
}

// NewPhoto is what the upload pipeline hands to Insert.
type NewPhoto struct {
	PhotoURL     string
	UploaderName string
	Timestamp    int64
}

// Store is the relational side of the photo wall. Implementations acquire
// and release their own connection on every call.
type Store interface {
	Insert(ctx context.Context, p NewPhoto) (PhotoRecord, error)
	// List returns every record, newest first.
	List(ctx context.Context) ([]PhotoRecord, error)
	Ping(ctx context.Context) error
}

func (p NewPhoto) validate() error {
	if p.PhotoURL == "" {
		return ErrEmptyURL
	}
	return nil
}
