package exports

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
)

const (
	objectPrefix = "product-lists"
	contentType  = "text/plain; charset=utf-8"
)

var (
	// ErrNotConfigured indicates no exports bucket has been configured.
	ErrNotConfigured = errors.New("exports: archive bucket not configured")
	errEmptyText     = errors.New("exports: product list text is empty")
	errInvalidEntry  = errors.New("exports: store id and load id are required")

	unsafeSegment = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
)

// Entry is one rendered product list to archive.
type Entry struct {
	StoreID   string
	StoreName string
	LoadID    string
	Actor     string
	Text      string
	CreatedAt time.Time
}

// Receipt identifies the stored object.
type Receipt struct {
	Bucket string
	Object string
	Size   int
}

// Archiver stores rendered product lists.
type Archiver interface {
	Archive(ctx context.Context, entry Entry) (Receipt, error)
}

// ObjectWriter uploads a single object.
type ObjectWriter interface {
	WriteObject(ctx context.Context, bucket, object string, attrs ObjectAttrs, data []byte) error
}

// ObjectAttrs are the attributes set on uploaded objects.
type ObjectAttrs struct {
	ContentType string
	Metadata    map[string]string
}

// BucketArchiver writes product lists into a Cloud Storage bucket.
type BucketArchiver struct {
	bucket string
	writer ObjectWriter
	now    func() time.Time
}

// NewBucketArchiver constructs an archiver for bucket.
func NewBucketArchiver(bucket string, writer ObjectWriter) (*BucketArchiver, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, ErrNotConfigured
	}
	if writer == nil {
		return nil, errors.New("exports: object writer is required")
	}
	return &BucketArchiver{bucket: bucket, writer: writer, now: time.Now}, nil
}

// Archive uploads entry.Text under product-lists/{store}/{timestamp}-{load}.txt.
func (a *BucketArchiver) Archive(ctx context.Context, entry Entry) (Receipt, error) {
	if strings.TrimSpace(entry.Text) == "" {
		return Receipt{}, errEmptyText
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = a.now()
	}
	object, err := ObjectName(entry)
	if err != nil {
		return Receipt{}, err
	}

	attrs := ObjectAttrs{
		ContentType: contentType,
		Metadata: map[string]string{
			"store-id":   entry.StoreID,
			"store-name": entry.StoreName,
			"load-id":    entry.LoadID,
		},
	}
	if actor := strings.TrimSpace(entry.Actor); actor != "" {
		attrs.Metadata["actor"] = actor
	}

	if err := a.writer.WriteObject(ctx, a.bucket, object, attrs, []byte(entry.Text)); err != nil {
		return Receipt{}, fmt.Errorf("exports: write %s: %w", object, err)
	}
	return Receipt{Bucket: a.bucket, Object: object, Size: len(entry.Text)}, nil
}

// ObjectName builds the object key for entry.
func ObjectName(entry Entry) (string, error) {
	store := unsafeSegment.ReplaceAllString(strings.TrimSpace(entry.StoreID), "")
	load := unsafeSegment.ReplaceAllString(strings.TrimSpace(entry.LoadID), "")
	if store == "" || load == "" {
		return "", errInvalidEntry
	}
	stamp := entry.CreatedAt.UTC().Format("20060102T150405Z")
	return fmt.Sprintf("%s/%s/%s-%s.txt", objectPrefix, store, stamp, load), nil
}

// GCSWriter uploads objects with the Cloud Storage client.
type GCSWriter struct {
	client *gcs.Client
}

// NewGCSWriter wraps a Cloud Storage client.
func NewGCSWriter(client *gcs.Client) (*GCSWriter, error) {
	if client == nil {
		return nil, errors.New("exports: storage client is required")
	}
	return &GCSWriter{client: client}, nil
}

// WriteObject implements ObjectWriter.
func (w *GCSWriter) WriteObject(ctx context.Context, bucket, object string, attrs ObjectAttrs, data []byte) error {
	writer := w.client.Bucket(bucket).Object(object).NewWriter(ctx)
	writer.ContentType = attrs.ContentType
	writer.Metadata = attrs.Metadata
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return err
	}
	return writer.Close()
}
