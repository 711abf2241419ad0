// Package object contains the object storage interface
// Implementation including S3-compatible services or SQLite
package object

import (
	"context"
	"time"
)

// Object holds metadata about a stored item.
type Object struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	CustomMeta   map[string]string
}

// MetaSourceName is the user metadata key holding the base name of the
// uploaded local file.
const MetaSourceName = "source-name"

// ListOptions narrows a single listing call.
// MaxKeys <= 0 leaves the page size to the backend.
type ListOptions struct {
	Prefix  string
	MaxKeys int32
}

// Page is one bounded listing response. Callers never follow NextToken here;
// it is reported so they can tell the listing was cut short.
type Page struct {
	Objects   []Object
	Truncated bool
	NextToken string
}

// Lifecycle defines init/teardown behavior.
type Lifecycle interface {
	Init(ctx context.Context, param any) error
	Close(ctx context.Context) error
}

// Lister exposes the single-page listing.
type Lister interface {
	// List returns the first page of objects in bucket.
	List(ctx context.Context, bucket string, opts ListOptions) (Page, error)
}

// Transferer moves whole objects between the store and local files.
type Transferer interface {
	// UploadFile stores the file at path under bucket/key.
	UploadFile(ctx context.Context, bucket, key, path string) (Object, error)
	// DownloadFile writes bucket/key to path. path is only replaced once the
	// body has been fully received.
	DownloadFile(ctx context.Context, bucket, key, path string) (Object, error)
}

// Deleter exposes delete behavior.
type Deleter interface {
	Delete(ctx context.Context, bucket, key string) error
}

// ObjectStorage aggregates the full contract for object backends.
type ObjectStorage interface {
	Lifecycle
	Lister
	Transferer
	Deleter
	// Stat returns metadata without streaming the body.
	Stat(ctx context.Context, bucket, key string) (Object, error)
}
