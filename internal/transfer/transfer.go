// Package transfer wraps single storage calls for command-line use: every
// failure is logged and reported in the Result, never returned as an error.
package transfer

import (
	"context"
	"path/filepath"

	"s3snap/pkg/logger"
	"s3snap/pkg/object"
)

type Op string

const (
	OpUpload   Op = "upload"
	OpDownload Op = "download"
	OpDelete   Op = "delete"
)

// Result is the outcome of one call. Kind is KindNone on success.
type Result struct {
	Op     Op
	Bucket string
	Key    string
	Path   string
	Object object.Object
	Kind   object.Kind
	Err    error
}

// OK reports whether the call succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Upload sends the file at path to bucket. An empty key uses the file's
// base name.
func Upload(ctx context.Context, st object.Transferer, path, bucket, key string) Result {
	if key == "" {
		key = filepath.Base(path)
	}
	obj, err := st.UploadFile(ctx, bucket, key, path)
	return finish(Result{Op: OpUpload, Bucket: bucket, Key: key, Path: path, Object: obj}, err)
}

// Download fetches bucket/key to path. An empty path uses the key.
func Download(ctx context.Context, st object.Transferer, bucket, key, path string) Result {
	if path == "" {
		path = key
	}
	obj, err := st.DownloadFile(ctx, bucket, key, path)
	return finish(Result{Op: OpDownload, Bucket: bucket, Key: key, Path: path, Object: obj}, err)
}

// Delete removes bucket/key.
func Delete(ctx context.Context, st object.Deleter, bucket, key string) Result {
	err := st.Delete(ctx, bucket, key)
	return finish(Result{Op: OpDelete, Bucket: bucket, Key: key, Object: object.Object{Key: key}}, err)
}

func finish(r Result, err error) Result {
	r.Err = err
	r.Kind = object.KindOf(err)
	if err != nil {
		logger.Log.Error().
			Err(err).
			Str("op", string(r.Op)).
			Str("bucket", r.Bucket).
			Str("key", r.Key).
			Str("kind", r.Kind.String()).
			Msg("storage call failed")
		return r
	}
	logger.Log.Debug().
		Str("op", string(r.Op)).
		Str("bucket", r.Bucket).
		Str("key", r.Key).
		Int64("size", r.Object.Size).
		Msg("storage call succeeded")
	return r
}
