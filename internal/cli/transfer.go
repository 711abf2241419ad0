package cli

import (
	"context"

	"s3snap/internal/transfer"
)

type BucketFlags struct {
	Bucket string
}

// Upload sends file to the bucket under key, or under the file's name when
// key is empty.
func Upload(ctx context.Context, env Env, flags BucketFlags, file, key string) error {
	res := transfer.Upload(ctx, env.Store, file, env.bucket(flags.Bucket), key)
	return report(env, res, "Upload successful", "Upload failed")
}

// Download fetches key into file, or into a file named after the key when
// file is empty.
func Download(ctx context.Context, env Env, flags BucketFlags, key, file string) error {
	res := transfer.Download(ctx, env.Store, env.bucket(flags.Bucket), key, file)
	return report(env, res, "Download successful", "Download failed")
}

// Delete removes key from the bucket.
func Delete(ctx context.Context, env Env, flags BucketFlags, key string) error {
	res := transfer.Delete(ctx, env.Store, env.bucket(flags.Bucket), key)
	return report(env, res, "Deletion successful", "Deletion failed")
}

func report(env Env, res transfer.Result, ok, failed string) error {
	if res.OK() {
		env.printf(colorGreen, "%s", ok)
		return nil
	}
	env.printf(colorRed, "%s (%s)", failed, res.Kind)
	return ErrFailed
}
