package utils

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

const (
	StorageNone = "none"
	StorageGCS  = "gcs"
	StorageR2   = "r2"
)

// StoredObject describes an uploaded blob.
type StoredObject struct {
	PublicURL   string
	ObjectName  string
	ContentType string
	SizeBytes   int64
}

// BlobStore holds uploaded images.
type BlobStore interface {
	Upload(ctx context.Context, prefix string, fh *multipart.FileHeader, contentType string) (*StoredObject, error)
	// ObjectName maps a public URL produced by Upload back to its object name.
	ObjectName(publicURL string) (string, error)
	Delete(ctx context.Context, objectName string) error
	Close() error
}

type StorageOptions struct {
	Driver          string
	GCSBucket       string
	CredentialsFile string
	R2Bucket        string
	R2AccessKey     string
	R2SecretKey     string
	R2Endpoint      string
	R2PublicDomain  string
}

// NewBlobStore returns nil, nil for the "none" driver.
func NewBlobStore(ctx context.Context, opts StorageOptions) (BlobStore, error) {
	switch opts.Driver {
	case "", StorageNone:
		return nil, nil
	case StorageGCS:
		return NewGCSStore(ctx, opts.GCSBucket, opts.CredentialsFile)
	case StorageR2:
		return NewR2Store(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}

func objectKey(prefix string, fh *multipart.FileHeader) string {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("%s/%d-%s%s", strings.Trim(prefix, "/"), time.Now().UTC().Unix(), uuid.New().String(), ext)
}

func contentTypeFor(fh *multipart.FileHeader, detected string) string {
	if detected != "" {
		return detected
	}
	if ct := fh.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(fh.Filename))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// GCSStore writes objects to a Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
}

func NewGCSStore(ctx context.Context, bucket, credentialsFile string) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("missing GCS_BUCKET")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		abs, err := filepath.Abs(credentialsFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, option.WithAuthCredentialsFile(option.ServiceAccount, abs))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

func (g *GCSStore) Upload(ctx context.Context, prefix string, fh *multipart.FileHeader, contentType string) (*StoredObject, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	objectName := objectKey(prefix, fh)
	ct := contentTypeFor(fh, contentType)

	w := g.client.Bucket(g.bucket).Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = ct
	w.CacheControl = "public, max-age=86400"

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("upload copy: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("upload close: %w", err)
	}

	return &StoredObject{
		PublicURL:   fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.bucket, objectName),
		ObjectName:  objectName,
		ContentType: ct,
		SizeBytes:   fh.Size,
	}, nil
}

func (g *GCSStore) ObjectName(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}

	host := strings.ToLower(u.Host)
	path := strings.TrimPrefix(u.Path, "/")

	// storage.googleapis.com/<bucket>/<object>
	if host == "storage.googleapis.com" {
		prefix := g.bucket + "/"
		if !strings.HasPrefix(path, prefix) {
			return "", fmt.Errorf("url bucket mismatch")
		}
		return strings.TrimPrefix(path, prefix), nil
	}

	// <bucket>.storage.googleapis.com/<object>
	if host == strings.ToLower(g.bucket)+".storage.googleapis.com" {
		if path == "" {
			return "", fmt.Errorf("missing object path")
		}
		return path, nil
	}

	return "", fmt.Errorf("not a gcs public url")
}

func (g *GCSStore) Delete(ctx context.Context, objectName string) error {
	if err := g.client.Bucket(g.bucket).Object(objectName).Delete(ctx); err != nil {
		return fmt.Errorf("delete %s: %w", objectName, err)
	}
	return nil
}

func (g *GCSStore) Close() error {
	return g.client.Close()
}

// R2Store writes objects to a Cloudflare R2 bucket through its S3 API.
type R2Store struct {
	client       *s3.Client
	bucket       string
	publicDomain string
}

func NewR2Store(ctx context.Context, opts StorageOptions) (*R2Store, error) {
	if opts.R2Bucket == "" || opts.R2AccessKey == "" || opts.R2SecretKey == "" || opts.R2Endpoint == "" {
		return nil, fmt.Errorf("missing R2 settings (R2_BUCKET, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY, R2_ENDPOINT)")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.R2AccessKey, opts.R2SecretKey, ""),
		),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("r2 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(opts.R2Endpoint)
		o.UsePathStyle = true // required for R2
	})

	return &R2Store{
		client:       client,
		bucket:       opts.R2Bucket,
		publicDomain: strings.TrimRight(opts.R2PublicDomain, "/"),
	}, nil
}

func (r *R2Store) Upload(ctx context.Context, prefix string, fh *multipart.FileHeader, contentType string) (*StoredObject, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	objectName := objectKey(prefix, fh)
	ct := contentTypeFor(fh, contentType)

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(objectName),
		Body:          f,
		ContentType:   aws.String(ct),
		ContentLength: aws.Int64(fh.Size),
		CacheControl:  aws.String("public, max-age=86400"),
	})
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", fh.Filename, err)
	}

	return &StoredObject{
		PublicURL:   r.publicURL(objectName),
		ObjectName:  objectName,
		ContentType: ct,
		SizeBytes:   fh.Size,
	}, nil
}

func (r *R2Store) publicURL(objectName string) string {
	return fmt.Sprintf("%s/%s/%s", r.publicDomain, r.bucket, objectName)
}

func (r *R2Store) ObjectName(raw string) (string, error) {
	prefix := r.publicDomain + "/" + r.bucket + "/"
	if r.publicDomain != "" && strings.HasPrefix(raw, prefix) {
		return strings.TrimPrefix(raw, prefix), nil
	}
	return "", fmt.Errorf("not a recognised R2 public url")
}

func (r *R2Store) Delete(ctx context.Context, objectName string) error {
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(objectName),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", objectName, err)
	}
	return nil
}

func (r *R2Store) Close() error { return nil }
