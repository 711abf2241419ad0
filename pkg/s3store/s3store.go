// Package s3store implements the object interface for Amazon S3 and
// S3-compatible services (MinIO, Ceph, R2).
package s3store

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"s3snap/pkg/object"
)

const defaultRegion = "us-east-1"

// Config holds S3 connection details. Leaving AccessKey and SecretAccessKey
// empty defers to the SDK's default credential chain.
type Config struct {
	Region           string
	EndpointOverride string
	AccessKey        string
	SecretAccessKey  string
	SessionToken     string
	UsePathStyle     bool
	// PartSize is the multipart chunk size for transfers; 0 keeps the SDK default.
	PartSize int64
}

// API is the subset of *s3.Client the storage needs.
type API interface {
	manager.UploadAPIClient
	manager.DownloadAPIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var _ API = (*s3.Client)(nil)

// Storage implements object.ObjectStorage on top of the S3 API.
type Storage struct {
	client   API
	partSize int64
}

// New wraps an already configured client.
func New(client API) *Storage {
	return &Storage{client: client}
}

// Init bootstraps the S3 client from cfg and the ambient AWS environment.
func (s *Storage) Init(ctx context.Context, param any) error {
	cfg, ok := param.(Config)
	if !ok {
		if p, ok := param.(*Config); ok && p != nil {
			cfg = *p
		} else {
			return fmt.Errorf("s3store: unexpected config type %T", param)
		}
	}

	if (cfg.AccessKey == "") != (cfg.SecretAccessKey == "") {
		return fmt.Errorf("s3store: %w: AccessKey and SecretAccessKey must be set together", object.ErrInvalidArgument)
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("s3store: load config: %w", err)
	}
	if awsCfg.Region == "" {
		awsCfg.Region = defaultRegion
	}

	s.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointOverride != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointOverride)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	s.partSize = cfg.PartSize
	return nil
}

// Close cleans up resources; no-op for S3.
func (s *Storage) Close(_ context.Context) error {
	return nil
}

// UploadFile streams the file at path to bucket/key, switching to multipart
// uploads for large files.
func (s *Storage) UploadFile(ctx context.Context, bucket, key, path string) (obj object.Object, err error) {
	if err := s.ensureClient(); err != nil {
		return object.Object{}, err
	}
	if err := validate(bucket, key); err != nil {
		return object.Object{}, err
	}

	ctx, span := startSpan(ctx, "s3store.UploadFile", bucket, key)
	defer func() { endSpan(span, err) }()

	f, err := os.Open(path)
	if err != nil {
		return object.Object{}, fmt.Errorf("s3store: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return object.Object{}, fmt.Errorf("s3store: stat %s: %w", path, err)
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
		Metadata: map[string]string{
			object.MetaSourceName: filepath.Base(path),
		},
	}
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		input.ContentType = aws.String(ct)
	}

	uploader := manager.NewUploader(s.client, func(u *manager.Uploader) {
		if s.partSize > 0 {
			u.PartSize = s.partSize
		}
	})
	out, err := uploader.Upload(ctx, input)
	if err != nil {
		err = mapError(err)
		recordError(ctx, "upload", bucket, err)
		return object.Object{}, fmt.Errorf("s3store: upload %s/%s: %w", bucket, key, err)
	}

	recordTransfer(ctx, uploadCount, uploadBytes, bucket, stat.Size())
	return object.Object{
		Key:          key,
		Size:         stat.Size(),
		ETag:         aws.ToString(out.ETag),
		ContentType:  aws.ToString(input.ContentType),
		LastModified: stat.ModTime(),
		CustomMeta:   cloneMeta(input.Metadata),
	}, nil
}

// DownloadFile fetches bucket/key into path. The body lands in a temporary
// file next to path and is renamed over it only after a complete transfer.
func (s *Storage) DownloadFile(ctx context.Context, bucket, key, path string) (obj object.Object, err error) {
	if err := s.ensureClient(); err != nil {
		return object.Object{}, err
	}
	if err := validate(bucket, key); err != nil {
		return object.Object{}, err
	}

	ctx, span := startSpan(ctx, "s3store.DownloadFile", bucket, key)
	defer func() { endSpan(span, err) }()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return object.Object{}, fmt.Errorf("s3store: create directory for %s: %w", path, err)
	}
	f, err := os.CreateTemp(dir, ".s3snap-*")
	if err != nil {
		return object.Object{}, fmt.Errorf("s3store: create temp file: %w", err)
	}

	downloader := manager.NewDownloader(s.client, func(d *manager.Downloader) {
		if s.partSize > 0 {
			d.PartSize = s.partSize
		}
	})
	size, err := downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		err = mapError(err)
		recordError(ctx, "download", bucket, err)
		return object.Object{}, fmt.Errorf("s3store: download %s/%s: %w", bucket, key, err)
	}

	_ = f.Chmod(0o644)
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return object.Object{}, fmt.Errorf("s3store: close temp file: %w", err)
	}
	if err := os.Rename(f.Name(), path); err != nil {
		_ = os.Remove(f.Name())
		return object.Object{}, fmt.Errorf("s3store: move download into %s: %w", path, err)
	}

	recordTransfer(ctx, downloadCount, downloadBytes, bucket, size)
	return object.Object{Key: key, Size: size}, nil
}

// List returns the first page of bucket's listing.
func (s *Storage) List(ctx context.Context, bucket string, opts object.ListOptions) (page object.Page, err error) {
	if err := s.ensureClient(); err != nil {
		return object.Page{}, err
	}
	if bucket == "" {
		return object.Page{}, fmt.Errorf("s3store: %w: bucket is required", object.ErrInvalidArgument)
	}

	ctx, span := startSpan(ctx, "s3store.List", bucket, opts.Prefix)
	defer func() { endSpan(span, err) }()

	input := &s3.ListObjectsV2Input{Bucket: aws.String(bucket)}
	if opts.Prefix != "" {
		input.Prefix = aws.String(opts.Prefix)
	}
	if opts.MaxKeys > 0 {
		input.MaxKeys = aws.Int32(opts.MaxKeys)
	}

	resp, err := s.client.ListObjectsV2(ctx, input)
	if err != nil {
		err = mapError(err)
		recordError(ctx, "list", bucket, err)
		return object.Page{}, fmt.Errorf("s3store: list %s: %w", bucket, err)
	}

	page = object.Page{
		Objects:   make([]object.Object, 0, len(resp.Contents)),
		Truncated: aws.ToBool(resp.IsTruncated),
		NextToken: aws.ToString(resp.NextContinuationToken),
	}
	for _, c := range resp.Contents {
		page.Objects = append(page.Objects, object.Object{
			Key:          aws.ToString(c.Key),
			Size:         aws.ToInt64(c.Size),
			ETag:         aws.ToString(c.ETag),
			LastModified: aws.ToTime(c.LastModified),
		})
	}
	return page, nil
}

// Stat returns metadata only.
func (s *Storage) Stat(ctx context.Context, bucket, key string) (object.Object, error) {
	if err := s.ensureClient(); err != nil {
		return object.Object{}, err
	}
	if err := validate(bucket, key); err != nil {
		return object.Object{}, err
	}

	resp, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return object.Object{}, fmt.Errorf("s3store: stat %s/%s: %w", bucket, key, mapError(err))
	}

	return object.Object{
		Key:          key,
		Size:         aws.ToInt64(resp.ContentLength),
		ETag:         aws.ToString(resp.ETag),
		ContentType:  aws.ToString(resp.ContentType),
		LastModified: aws.ToTime(resp.LastModified),
		CustomMeta:   cloneMeta(resp.Metadata),
	}, nil
}

// Delete removes an object. S3 reports success for keys that do not exist.
func (s *Storage) Delete(ctx context.Context, bucket, key string) (err error) {
	if err := s.ensureClient(); err != nil {
		return err
	}
	if err := validate(bucket, key); err != nil {
		return err
	}

	ctx, span := startSpan(ctx, "s3store.Delete", bucket, key)
	defer func() { endSpan(span, err) }()

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		err = mapError(err)
		recordError(ctx, "delete", bucket, err)
		return fmt.Errorf("s3store: delete %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (s *Storage) ensureClient() error {
	if s.client == nil {
		return errors.New("s3store: client not initialized")
	}
	return nil
}

func validate(bucket, key string) error {
	if bucket == "" || key == "" {
		return fmt.Errorf("s3store: %w: bucket and key are required", object.ErrInvalidArgument)
	}
	return nil
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

// mapError tags SDK failures with the matching object sentinel.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var (
		nsk *types.NoSuchKey
		nf  *types.NotFound
		nsb *types.NoSuchBucket
	)
	if errors.As(err, &nsk) || errors.As(err, &nf) || errors.As(err, &nsb) {
		return object.Tag(object.ErrNotFound, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch strings.ToLower(apiErr.ErrorCode()) {
		case "nosuchkey", "notfound", "nosuchbucket", "404":
			return object.Tag(object.ErrNotFound, err)
		case "accessdenied", "forbidden", "invalidaccesskeyid", "signaturedoesnotmatch",
			"expiredtoken", "invalidtoken", "allaccessdisabled", "403":
			return object.Tag(object.ErrPermissionDenied, err)
		case "slowdown", "requesttimeout", "internalerror", "serviceunavailable",
			"throttling", "throttlingexception", "503":
			return object.Tag(object.ErrTransient, err)
		}
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		switch code := respErr.HTTPStatusCode(); {
		case code == http.StatusNotFound:
			return object.Tag(object.ErrNotFound, err)
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			return object.Tag(object.ErrPermissionDenied, err)
		case code == http.StatusTooManyRequests || code >= http.StatusInternalServerError:
			return object.Tag(object.ErrTransient, err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return object.Tag(object.ErrTransient, err)
	}

	return err
}

// Ensure Storage implements ObjectStorage interface.
var _ object.ObjectStorage = (*Storage)(nil)
