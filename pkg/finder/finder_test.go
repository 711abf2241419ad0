package finder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"s3snap/pkg/object"
)

type fakeLister struct {
	page   object.Page
	err    error
	calls  int
	bucket string
	opts   object.ListOptions
}

func (f *fakeLister) List(_ context.Context, bucket string, opts object.ListOptions) (object.Page, error) {
	f.calls++
	f.bucket = bucket
	f.opts = opts
	return f.page, f.err
}

func objects(keys ...string) []object.Object {
	objs := make([]object.Object, 0, len(keys))
	for _, k := range keys {
		objs = append(objs, object.Object{Key: k})
	}
	return objs
}

func TestTrailingNumber(t *testing.T) {
	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"file-123", "123", true},
		{"image_456.png", "456", true},
		{"v2-report-045", "45", true},
		{"item-007", "7", true},
		{"snapshot_1", "1", true},
		{"42", "42", true},
		{"a1b2c3.csv", "3", true},
		{"readme", "", false},
		{"", "", false},
		{"backup-123456789012345678901234567890", "123456789012345678901234567890", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := TrailingNumber(tt.name)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				require.Equal(t, tt.want, n.String())
			} else {
				require.Nil(t, n)
			}
		})
	}
}

func TestHighest(t *testing.T) {
	tests := []struct {
		name   string
		keys   []string
		want   string
		number string
		found  bool
	}{
		{
			name:   "picks maximum",
			keys:   []string{"file-123", "image_456.png", "backup-7"},
			want:   "image_456.png",
			number: "456",
			found:  true,
		},
		{
			name:  "no digits",
			keys:  []string{"readme", "notes.txt"},
			found: false,
		},
		{
			name:  "empty",
			keys:  nil,
			found: false,
		},
		{
			name:   "leading zeros compare by value",
			keys:   []string{"item-007", "item-8"},
			want:   "item-8",
			number: "8",
			found:  true,
		},
		{
			name:   "final run only",
			keys:   []string{"v2-report-045", "v9-report-044"},
			want:   "v2-report-045",
			number: "45",
			found:  true,
		},
		{
			name:   "tie keeps first listed",
			keys:   []string{"a-10", "b-010", "c-10"},
			want:   "a-10",
			number: "10",
			found:  true,
		},
		{
			name:   "zero still counts",
			keys:   []string{"readme", "snapshot_0"},
			want:   "snapshot_0",
			number: "0",
			found:  true,
		},
		{
			name:   "beyond uint64",
			keys:   []string{"x-18446744073709551615", "x-18446744073709551616"},
			want:   "x-18446744073709551616",
			number: "18446744073709551616",
			found:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := Highest(objects(tt.keys...))
			require.Equal(t, tt.found, ok)
			if !tt.found {
				return
			}
			require.Equal(t, tt.want, m.Object.Key)
			require.Equal(t, tt.number, m.Number.String())
		})
	}
}

func TestLatest(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		l := &fakeLister{page: object.Page{Objects: objects("snapshot_1", "snapshot_12", "snapshot_3")}}
		opts := object.ListOptions{Prefix: "snapshot_", MaxKeys: 50}

		m, err := Latest(ctx, l, "dailysupplysnapshot", opts)
		require.NoError(t, err)
		require.Equal(t, "snapshot_12", m.Object.Key)
		require.Equal(t, 1, l.calls)
		require.Equal(t, "dailysupplysnapshot", l.bucket)
		require.Equal(t, opts, l.opts)
	})

	t.Run("truncated page still answers", func(t *testing.T) {
		l := &fakeLister{page: object.Page{
			Objects:   objects("snapshot_1", "snapshot_2"),
			Truncated: true,
			NextToken: "snapshot_2",
		}}
		m, err := Latest(ctx, l, "bucket", object.ListOptions{})
		require.NoError(t, err)
		require.Equal(t, "snapshot_2", m.Object.Key)
		require.Equal(t, 1, l.calls)
	})

	t.Run("none found", func(t *testing.T) {
		l := &fakeLister{page: object.Page{Objects: objects("readme", "notes.txt")}}
		_, err := Latest(ctx, l, "bucket", object.ListOptions{})
		require.ErrorIs(t, err, ErrNoneFound)
	})

	t.Run("empty bucket", func(t *testing.T) {
		_, err := Latest(ctx, &fakeLister{}, "bucket", object.ListOptions{})
		require.ErrorIs(t, err, ErrNoneFound)
	})

	t.Run("listing failure propagates", func(t *testing.T) {
		cause := errors.New("AccessDenied")
		l := &fakeLister{err: object.Tag(object.ErrPermissionDenied, cause)}

		_, err := Latest(ctx, l, "bucket", object.ListOptions{})
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrNoneFound)
		require.ErrorIs(t, err, cause)
		require.Equal(t, object.KindPermissionDenied, object.KindOf(err))
	})

	t.Run("bucket required", func(t *testing.T) {
		l := &fakeLister{}
		_, err := Latest(ctx, l, "", object.ListOptions{})
		require.ErrorIs(t, err, object.ErrInvalidArgument)
		require.Zero(t, l.calls)
	})
}
