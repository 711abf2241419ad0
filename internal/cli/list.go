package cli

import (
	"context"

	"s3snap/pkg/finder"
	"s3snap/pkg/logger"
	"s3snap/pkg/object"
)

type ListFlags struct {
	Bucket  string
	Prefix  string
	MaxKeys int32
}

// List prints one page of the bucket, marking keys that carry a number.
func List(ctx context.Context, env Env, flags ListFlags) error {
	bucket := env.bucket(flags.Bucket)
	maxKeys := flags.MaxKeys
	if maxKeys == 0 {
		maxKeys = env.MaxKeys
	}

	page, err := env.Store.List(ctx, bucket, object.ListOptions{Prefix: flags.Prefix, MaxKeys: maxKeys})
	if err != nil {
		logger.Log.Error().
			Err(err).
			Str("bucket", bucket).
			Str("kind", object.KindOf(err).String()).
			Msg("could not list bucket")
		env.printf(colorRed, "Listing %s failed: %v", bucket, err)
		return ErrFailed
	}

	for _, obj := range page.Objects {
		num := "-"
		if n, ok := finder.TrailingNumber(obj.Key); ok {
			num = n.String()
		}
		env.printf("", "[%s] %s (size: %d; number: %s; modified at: %s)",
			obj.ETag, obj.Key, obj.Size, num, obj.LastModified.Format("2006-01-02 15:04:05"))
	}
	if page.Truncated {
		env.printf(colorYellow, "More objects exist beyond this page (next: %s)", page.NextToken)
	}
	return nil
}
