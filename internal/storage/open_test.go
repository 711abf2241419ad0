package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"s3snap/internal/config"
	"s3snap/pkg/object"
	"s3snap/pkg/s3store"
	"s3snap/pkg/sqlite"
)

func TestOpenSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := config.Config{
		Driver: config.DriverSQLite,
		SQLite: sqlite.Config{
			Source: fmt.Sprintf("file:%s?cache=shared&mode=rwc", filepath.Join(t.TempDir(), "objects.db")),
		},
	}

	st, err := Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close(ctx) })
	require.IsType(t, &sqlite.Storage{}, st)

	page, err := st.List(ctx, "bucket", object.ListOptions{})
	require.NoError(t, err)
	require.Empty(t, page.Objects)
}

func TestOpenS3(t *testing.T) {
	ctx := context.Background()
	cfg := config.Config{
		Driver: config.DriverS3,
		S3: s3store.Config{
			Region:           "us-east-1",
			EndpointOverride: "http://127.0.0.1:9000",
			AccessKey:        "test",
			SecretAccessKey:  "test",
			UsePathStyle:     true,
		},
	}

	st, err := Open(ctx, cfg)
	require.NoError(t, err)
	require.IsType(t, &s3store.Storage{}, st)
}

func TestOpenErrors(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, config.Config{Driver: "ftp"})
	require.ErrorContains(t, err, "unknown backend driver")

	_, err = Open(ctx, config.Config{Driver: config.DriverSQLite})
	require.ErrorIs(t, err, object.ErrInvalidArgument)
}
