// Package sqlite implements object.ObjectStorage backed by SQLite.
package sqlite

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"s3snap/pkg/object"

	_ "modernc.org/sqlite"
)

// defaultMaxKeys mirrors the page size S3 uses when none is requested.
const defaultMaxKeys = 1000

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config defines how the SQLite storage should be initialized.
type Config struct {
	// Source is the DSN/connection string, e.g. file:objects.db?cache=shared.
	Source string
	// Driver name registered with database/sql. Defaults to "sqlite".
	Driver string
	// Table to store objects. Defaults to "objects".
	Table string
	// AllowOverwrite controls whether uploads replace existing records.
	AllowOverwrite bool
	// DB lets callers supply an existing *sql.DB connection.
	DB *sql.DB
}

// Storage satisfies object.ObjectStorage using a SQLite table.
type Storage struct {
	db             *sql.DB
	table          string
	allowOverwrite bool
	ownsDB         bool
}

// Init configures the storage and ensures the backing table exists.
func (s *Storage) Init(ctx context.Context, param any) error {
	cfg, ok := param.(Config)
	if !ok {
		if p, ok := param.(*Config); ok && p != nil {
			cfg = *p
		} else {
			return fmt.Errorf("sqlite: unexpected config type %T", param)
		}
	}

	if cfg.Driver == "" {
		cfg.Driver = "sqlite"
	}
	if cfg.Table == "" {
		cfg.Table = "objects"
	}
	if cfg.Source == "" && cfg.DB == nil {
		return fmt.Errorf("sqlite: %w: Source is required", object.ErrInvalidArgument)
	}
	if !tableName.MatchString(cfg.Table) {
		return fmt.Errorf("sqlite: %w: table name %q", object.ErrInvalidArgument, cfg.Table)
	}
	s.table = cfg.Table
	s.allowOverwrite = cfg.AllowOverwrite

	if cfg.DB != nil {
		s.db = cfg.DB
	} else {
		db, err := sql.Open(cfg.Driver, cfg.Source)
		if err != nil {
			return fmt.Errorf("sqlite: open database: %w", err)
		}
		s.db = db
		s.ownsDB = true
	}

	createStmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		bucket TEXT NOT NULL,
		key TEXT NOT NULL,
		data BLOB NOT NULL,
		size INTEGER NOT NULL,
		etag TEXT,
		content_type TEXT,
		last_modified TEXT NOT NULL,
		meta TEXT,
		PRIMARY KEY (bucket, key)
	)`, s.table)

	if _, err := s.db.ExecContext(ctx, createStmt); err != nil {
		return fmt.Errorf("sqlite: create table: %w", err)
	}

	return nil
}

// Close releases the DB connection when owned by the storage.
func (s *Storage) Close(_ context.Context) error {
	if s.db != nil && s.ownsDB {
		return s.db.Close()
	}
	return nil
}

// UploadFile stores the whole file as one row.
func (s *Storage) UploadFile(ctx context.Context, bucket, key, path string) (object.Object, error) {
	if err := s.ensureDB(); err != nil {
		return object.Object{}, err
	}
	if err := validate(bucket, key); err != nil {
		return object.Object{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return object.Object{}, fmt.Errorf("sqlite: read %s: %w", path, err)
	}

	meta := map[string]string{object.MetaSourceName: filepath.Base(path)}
	return s.save(ctx, bucket, key, data, mime.TypeByExtension(filepath.Ext(path)), meta)
}

// DownloadFile writes the stored body to path via a temp file and rename.
func (s *Storage) DownloadFile(ctx context.Context, bucket, key, path string) (object.Object, error) {
	if err := s.ensureDB(); err != nil {
		return object.Object{}, err
	}
	if err := validate(bucket, key); err != nil {
		return object.Object{}, err
	}

	query := fmt.Sprintf(`SELECT size, etag, content_type, last_modified, meta, data FROM %s WHERE bucket = ? AND key = ?`, s.table)
	var (
		size         int64
		etag         sql.NullString
		contentType  sql.NullString
		lastModified string
		metaJSON     sql.NullString
		data         []byte
	)

	err := s.db.QueryRowContext(ctx, query, bucket, key).Scan(&size, &etag, &contentType, &lastModified, &metaJSON, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return object.Object{}, fmt.Errorf("sqlite: download %s/%s: %w", bucket, key, object.ErrNotFound)
	}
	if err != nil {
		return object.Object{}, fmt.Errorf("sqlite: get object: %w", err)
	}

	obj, err := rowToObject(key, size, etag.String, contentType.String, lastModified, metaJSON.String)
	if err != nil {
		return object.Object{}, err
	}

	if err := writeAtomic(path, data); err != nil {
		return object.Object{}, err
	}
	return obj, nil
}

// List returns the first page of keys in bucket in ascending order.
func (s *Storage) List(ctx context.Context, bucket string, opts object.ListOptions) (object.Page, error) {
	if err := s.ensureDB(); err != nil {
		return object.Page{}, err
	}
	if bucket == "" {
		return object.Page{}, fmt.Errorf("sqlite: %w: bucket is required", object.ErrInvalidArgument)
	}

	limit := int(opts.MaxKeys)
	if limit <= 0 {
		limit = defaultMaxKeys
	}

	// substr keeps % and _ in the prefix literal, unlike LIKE.
	query := fmt.Sprintf(`SELECT key, size, etag, content_type, last_modified, meta FROM %s
		WHERE bucket = ? AND substr(key, 1, length(?)) = ?
		ORDER BY key ASC LIMIT ?`, s.table)

	// One extra row tells us whether the page is truncated.
	rows, err := s.db.QueryContext(ctx, query, bucket, opts.Prefix, opts.Prefix, limit+1)
	if err != nil {
		return object.Page{}, fmt.Errorf("sqlite: list objects: %w", err)
	}
	defer rows.Close()

	var page object.Page
	for rows.Next() {
		var (
			key          string
			size         int64
			etag         sql.NullString
			contentType  sql.NullString
			lastModified string
			metaJSON     sql.NullString
		)
		if err := rows.Scan(&key, &size, &etag, &contentType, &lastModified, &metaJSON); err != nil {
			return object.Page{}, fmt.Errorf("sqlite: scan object: %w", err)
		}
		if len(page.Objects) == limit {
			page.Truncated = true
			break
		}

		obj, err := rowToObject(key, size, etag.String, contentType.String, lastModified, metaJSON.String)
		if err != nil {
			return object.Page{}, err
		}
		page.Objects = append(page.Objects, obj)
	}
	if err := rows.Err(); err != nil {
		return object.Page{}, fmt.Errorf("sqlite: iterate objects: %w", err)
	}
	if page.Truncated {
		page.NextToken = page.Objects[len(page.Objects)-1].Key
	}

	return page, nil
}

// Stat fetches metadata without reading the body.
func (s *Storage) Stat(ctx context.Context, bucket, key string) (object.Object, error) {
	if err := s.ensureDB(); err != nil {
		return object.Object{}, err
	}
	if err := validate(bucket, key); err != nil {
		return object.Object{}, err
	}

	query := fmt.Sprintf(`SELECT size, etag, content_type, last_modified, meta FROM %s WHERE bucket = ? AND key = ?`, s.table)
	var (
		size         int64
		etag         sql.NullString
		contentType  sql.NullString
		lastModified string
		metaJSON     sql.NullString
	)

	err := s.db.QueryRowContext(ctx, query, bucket, key).Scan(&size, &etag, &contentType, &lastModified, &metaJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return object.Object{}, fmt.Errorf("sqlite: stat %s/%s: %w", bucket, key, object.ErrNotFound)
	}
	if err != nil {
		return object.Object{}, fmt.Errorf("sqlite: stat object: %w", err)
	}

	return rowToObject(key, size, etag.String, contentType.String, lastModified, metaJSON.String)
}

// Delete removes an object by key.
func (s *Storage) Delete(ctx context.Context, bucket, key string) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	if err := validate(bucket, key); err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE bucket = ? AND key = ?`, s.table)
	res, err := s.db.ExecContext(ctx, query, bucket, key)
	if err != nil {
		return fmt.Errorf("sqlite: delete object: %w", err)
	}

	rows, err := res.RowsAffected()
	if err == nil && rows == 0 {
		return fmt.Errorf("sqlite: delete %s/%s: %w", bucket, key, object.ErrNotFound)
	}
	return err
}

func (s *Storage) save(ctx context.Context, bucket, key string, data []byte, contentType string, meta map[string]string) (object.Object, error) {
	metaJSON, err := encodeMeta(meta)
	if err != nil {
		return object.Object{}, err
	}

	now := time.Now().UTC()
	obj := object.Object{
		Key:          key,
		Size:         int64(len(data)),
		ETag:         hashETag(data),
		ContentType:  contentType,
		LastModified: now,
		CustomMeta:   cloneMeta(meta),
	}

	query := fmt.Sprintf(`INSERT INTO %s (bucket, key, data, size, etag, content_type, last_modified, meta) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, s.table)
	if s.allowOverwrite {
		query += ` ON CONFLICT(bucket, key) DO UPDATE SET data=excluded.data, size=excluded.size, etag=excluded.etag, content_type=excluded.content_type, last_modified=excluded.last_modified, meta=excluded.meta`
	}

	_, err = s.db.ExecContext(ctx, query,
		bucket,
		key,
		data,
		obj.Size,
		nullIfEmpty(obj.ETag),
		nullIfEmpty(contentType),
		now.Format(time.RFC3339Nano),
		nullIfEmpty(metaJSON),
	)
	if err != nil {
		if isConflict(err) {
			return object.Object{}, object.Tag(object.ErrConflict, err)
		}
		return object.Object{}, fmt.Errorf("sqlite: put object: %w", err)
	}

	return obj, nil
}

func (s *Storage) ensureDB() error {
	if s.db == nil {
		return errors.New("sqlite: storage not initialized")
	}
	return nil
}

func validate(bucket, key string) error {
	if bucket == "" || key == "" {
		return fmt.Errorf("sqlite: %w: bucket and key are required", object.ErrInvalidArgument)
	}
	return nil
}

func rowToObject(key string, size int64, etag, contentType, lastModified, metaJSON string) (object.Object, error) {
	t, err := time.Parse(time.RFC3339Nano, lastModified)
	if err != nil {
		return object.Object{}, fmt.Errorf("sqlite: parse last_modified: %w", err)
	}

	metaMap, err := decodeMeta(metaJSON)
	if err != nil {
		return object.Object{}, err
	}

	return object.Object{
		Key:          key,
		Size:         size,
		ETag:         etag,
		ContentType:  contentType,
		LastModified: t,
		CustomMeta:   metaMap,
	}, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("sqlite: create directory for %s: %w", path, err)
	}
	f, err := os.CreateTemp(dir, ".s3snap-*")
	if err != nil {
		return fmt.Errorf("sqlite: create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return fmt.Errorf("sqlite: write temp file: %w", err)
	}
	_ = f.Chmod(0o644)
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return fmt.Errorf("sqlite: close temp file: %w", err)
	}
	if err := os.Rename(f.Name(), path); err != nil {
		_ = os.Remove(f.Name())
		return fmt.Errorf("sqlite: move download into %s: %w", path, err)
	}
	return nil
}

// hashETag follows S3's single-part convention: quoted hex MD5 of the body.
func hashETag(data []byte) string {
	sum := md5.Sum(data)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

func encodeMeta(meta map[string]string) (string, error) {
	if len(meta) == 0 {
		return "", nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("sqlite: marshal metadata: %w", err)
	}
	return string(b), nil
}

func decodeMeta(raw string) (map[string]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("sqlite: unmarshal metadata: %w", err)
	}
	return out, nil
}

func isConflict(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed")
}

func cloneMeta(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Ensure Storage implements ObjectStorage interface.
var _ object.ObjectStorage = (*Storage)(nil)
