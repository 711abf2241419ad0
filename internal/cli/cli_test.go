package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"s3snap/pkg/logger"
	"s3snap/pkg/object"
	"s3snap/pkg/sqlite"
)

type deniedLister struct {
	object.ObjectStorage
}

func (deniedLister) List(context.Context, string, object.ListOptions) (object.Page, error) {
	return object.Page{}, object.Tag(object.ErrPermissionDenied, errors.New("AccessDenied"))
}

func newEnv(t *testing.T) (Env, *bytes.Buffer) {
	t.Helper()
	prev := logger.Log
	logger.SetOutput(io.Discard, true)
	t.Cleanup(func() { logger.Log = prev })

	ctx := context.Background()
	st := &sqlite.Storage{}
	src := fmt.Sprintf("file:%s?cache=shared&mode=rwc", filepath.Join(t.TempDir(), "objects.db"))
	require.NoError(t, st.Init(ctx, sqlite.Config{Source: src, AllowOverwrite: true}))
	t.Cleanup(func() { _ = st.Close(ctx) })

	var out bytes.Buffer
	return Env{Out: &out, Store: st, Bucket: "dailysupplysnapshot"}, &out
}

func seed(t *testing.T, env Env, keys ...string) {
	t.Helper()
	src := filepath.Join(t.TempDir(), "seed.txt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))
	for _, k := range keys {
		_, err := env.Store.UploadFile(context.Background(), env.Bucket, k, src)
		require.NoError(t, err)
	}
}

func TestLatest(t *testing.T) {
	env, out := newEnv(t)
	seed(t, env, "snapshot_1", "snapshot_10", "snapshot_2", "readme")

	require.NoError(t, Latest(context.Background(), env, LatestFlags{}, ""))
	require.Equal(t, "The object with the highest number: snapshot_10\n", out.String())
}

func TestLatestNoneFound(t *testing.T) {
	env, out := newEnv(t)
	seed(t, env, "readme", "notes")

	require.NoError(t, Latest(context.Background(), env, LatestFlags{}, ""))
	require.Equal(t, "No objects found or no numeric endings detected.\n", out.String())
}

func TestLatestListingFailure(t *testing.T) {
	env, out := newEnv(t)
	env.Store = deniedLister{}

	err := Latest(context.Background(), env, LatestFlags{}, "locked")
	require.ErrorIs(t, err, ErrFailed)
	require.Contains(t, out.String(), "Listing locked failed")
	require.NotContains(t, out.String(), "No objects found")
}

func TestTransferCommands(t *testing.T) {
	ctx := context.Background()
	env, out := newEnv(t)
	dir := t.TempDir()

	src := filepath.Join(dir, "snapshot_3.csv")
	require.NoError(t, os.WriteFile(src, []byte("id,qty\n"), 0o644))

	require.NoError(t, Upload(ctx, env, BucketFlags{}, src, ""))
	require.NoError(t, Download(ctx, env, BucketFlags{}, "snapshot_3.csv", filepath.Join(dir, "copy.csv")))
	require.NoError(t, Delete(ctx, env, BucketFlags{}, "snapshot_3.csv"))
	require.Equal(t, "Upload successful\nDownload successful\nDeletion successful\n", out.String())

	out.Reset()
	err := Download(ctx, env, BucketFlags{}, "snapshot_3.csv", filepath.Join(dir, "gone.csv"))
	require.ErrorIs(t, err, ErrFailed)
	require.Equal(t, "Download failed (not_found)\n", out.String())
}

func TestListCommand(t *testing.T) {
	env, out := newEnv(t)
	seed(t, env, "a_1", "b", "c_2")

	require.NoError(t, List(context.Background(), env, ListFlags{MaxKeys: 2}))
	got := out.String()
	require.Contains(t, got, "a_1 (size: 1; number: 1;")
	require.Contains(t, got, "b (size: 1; number: -;")
	require.NotContains(t, got, "c_2")
	require.Contains(t, got, "More objects exist beyond this page (next: b)")
}

func TestColorOutput(t *testing.T) {
	var out bytes.Buffer
	env := Env{Out: &out, Color: true}
	env.printf(colorGreen, "ok %d", 1)
	env.printf("", "plain")
	require.Equal(t, colorGreen+"ok 1"+colorReset+"\nplain\n", out.String())
}

func TestBucketFallback(t *testing.T) {
	require.Equal(t, "flag", Env{Bucket: "cfg"}.bucket("flag"))
	require.Equal(t, "cfg", Env{Bucket: "cfg"}.bucket(""))
	require.Equal(t, "dailysupplysnapshot", Env{}.bucket(""))
}
