package domain

import (
	"context"
	"errors"
)

var (
	// ErrRecordNotFound is returned when a document does not exist.
	ErrRecordNotFound = errors.New("record not found")
	// ErrBlobNotFound is returned when a blob does not exist.
	ErrBlobNotFound = errors.New("blob not found")
)

// DocumentStore persists seismic_event, aggregated_data and
// triangulation_result documents. DeleteEvent of a missing id is a no-op.
type DocumentStore interface {
	SaveEvent(ctx context.Context, rec EventRecord) error
	SaveAggregate(ctx context.Context, rec AggregateRecord) error
	SaveTriangulation(ctx context.Context, rec TriangulationRecord) error
	ListEvents(ctx context.Context) ([]EventRecord, error)
	DeleteEvent(ctx context.Context, id string) error
}

// BlobStore keeps content-addressed payloads. Put returns the payload's id;
// Delete of a missing id is a no-op.
type BlobStore interface {
	Put(ctx context.Context, data []byte) (string, error)
	Get(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error
}
