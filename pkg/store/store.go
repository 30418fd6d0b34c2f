// Package store archives built layouts so they can be fetched again by ID.
//
// Three backends implement [Store]:
//   - [MemoryStore]: process-local, for tests and a standalone server
//   - [FileStore]: one JSON file per record, for the CLI
//   - [MongoStore]: a MongoDB collection, for deployments with several servers
//
// # Usage
//
//	rec := store.NewRecord(result)
//	if err := s.Save(ctx, rec); err != nil {
//	    return err
//	}
//	rec, err := s.Get(ctx, rec.ID)
//	if errors.Is(err, errors.ErrCodeLayoutNotFound) {
//	    // unknown or deleted
//	}
package store

import (
	"context"
	"time"

	"github.com/matzehuels/wiretree/pkg/errors"
	"github.com/matzehuels/wiretree/pkg/layout"
	"github.com/matzehuels/wiretree/pkg/pipeline"
)

// ErrNotFound is returned when no record has the requested ID.
var ErrNotFound = errors.New(errors.ErrCodeLayoutNotFound, "layout not found")

// DefaultListLimit caps List when the caller passes a non-positive limit.
const DefaultListLimit = 50

// Record is one archived build.
type Record struct {
	ID        string             `json:"id" bson:"_id"`
	InputHash string             `json:"input_hash" bson:"input_hash"`
	ImagePath string             `json:"image_path,omitempty" bson:"image_path,omitempty"`
	Layout    *layout.Output     `json:"layout" bson:"layout"`
	Stats     pipeline.Stats     `json:"stats" bson:"stats"`
	Warnings  []pipeline.Warning `json:"warnings,omitempty" bson:"warnings,omitempty"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}

// NewRecord captures a pipeline result for archiving.
func NewRecord(res *pipeline.Result) *Record {
	rec := &Record{
		ID:        res.BuildID,
		InputHash: res.InputHash,
		Layout:    res.Output,
		Stats:     res.Stats,
		Warnings:  res.Warnings,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if res.Output != nil {
		rec.ImagePath = res.Output.ImagePath
	}
	return rec
}

// Store is the interface for layout archives.
type Store interface {
	// Save stores rec, replacing any record with the same ID.
	Save(ctx context.Context, rec *Record) error

	// Get returns the record with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns up to limit records, newest first.
	List(ctx context.Context, limit int) ([]*Record, error)

	// Delete removes a record. Deleting a missing record is not an error.
	Delete(ctx context.Context, id string) error

	// Close releases backend resources.
	Close() error
}

func validateRecord(rec *Record) error {
	if rec == nil || rec.Layout == nil || rec.Layout.Layout == nil {
		return errors.New(errors.ErrCodeInvalidInput, "record has no layout")
	}
	return errors.ValidateLayoutID(rec.ID)
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
