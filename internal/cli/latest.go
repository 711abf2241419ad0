package cli

import (
	"context"
	"errors"

	"s3snap/pkg/finder"
	"s3snap/pkg/logger"
	"s3snap/pkg/object"
)

type LatestFlags struct {
	Prefix  string
	MaxKeys int32
}

// Latest prints the key in bucket whose trailing number is the largest.
// Finding nothing is not a failure; a listing error is.
func Latest(ctx context.Context, env Env, flags LatestFlags, bucket string) error {
	bucket = env.bucket(bucket)
	maxKeys := flags.MaxKeys
	if maxKeys == 0 {
		maxKeys = env.MaxKeys
	}

	match, err := finder.Latest(ctx, env.Store, bucket, object.ListOptions{
		Prefix:  flags.Prefix,
		MaxKeys: maxKeys,
	})
	switch {
	case errors.Is(err, finder.ErrNoneFound):
		env.printf(colorYellow, "No objects found or no numeric endings detected.")
		return nil
	case err != nil:
		logger.Log.Error().
			Err(err).
			Str("bucket", bucket).
			Str("kind", object.KindOf(err).String()).
			Msg("could not list bucket")
		env.printf(colorRed, "Listing %s failed: %v", bucket, err)
		return ErrFailed
	}

	env.printf(colorGreen, "The object with the highest number: %s", match.Object.Key)
	return nil
}
