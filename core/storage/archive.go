package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
)

// ErrObjectNotFound is returned when an archived object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectEntry is one archived object.
type ObjectEntry struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Archiver stores JSON documents (run reports) under a key prefix of one bucket.
type Archiver struct {
	client Client
	bucket string
	prefix string
}

// NewArchiver creates an Archiver for the configured bucket and prefix.
func NewArchiver(client Client, cfg Config) *Archiver {
	return &Archiver{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}
}

// Bucket returns the archive bucket.
func (a *Archiver) Bucket() string { return a.bucket }

// EnsureBucket creates the archive bucket when it does not exist yet.
func (a *Archiver) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", a.bucket, err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", a.bucket, err)
	}
	return nil
}

// ReportKey builds the object key of a run report: <prefix>/YYYY/MM/DD/<stamp>-<command>-<runID>.json.
func (a *Archiver) ReportKey(startedAt time.Time, command, runID string) string {
	t := startedAt.UTC()
	name := fmt.Sprintf("%s-%s-%s.json", t.Format("20060102T150405Z"), strings.ReplaceAll(command, " ", "-"), runID)
	return a.key(t.Format("2006/01/02"), name)
}

// Save marshals v as indented JSON and uploads it under key.
func (a *Archiver) Save(ctx context.Context, key string, v any) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// List returns archived objects under the prefix, newest first. A limit of 0 returns everything.
func (a *Archiver) List(ctx context.Context, limit int) ([]ObjectEntry, error) {
	var entries []ObjectEntry
	for obj := range a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{Prefix: a.key(""), Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", a.bucket, obj.Err)
		}
		entries = append(entries, ObjectEntry{Key: obj.Key, Size: obj.Size, LastModified: obj.LastModified})
	}

	// keys embed the start time, so reverse key order is newest first
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key > entries[j].Key })
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Load downloads an archived object. Keys outside the prefix are rejected as not found.
func (a *Archiver) Load(ctx context.Context, key string) ([]byte, error) {
	if !strings.HasPrefix(key, a.key("")) || strings.Contains(key, "..") {
		return nil, ErrObjectNotFound
	}

	obj, err := a.client.GetObject(ctx, a.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, a.readError(key, err)
	}
	defer obj.Close()

	body, err := io.ReadAll(obj)
	if err != nil {
		return nil, a.readError(key, err)
	}
	return body, nil
}

// Prune removes archived objects last modified before cutoff and returns how many were removed.
func (a *Archiver) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	entries, err := a.List(ctx, 0)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		if !e.LastModified.Before(cutoff) {
			continue
		}
		if err := a.client.RemoveObject(ctx, a.bucket, e.Key, minio.RemoveObjectOptions{}); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", e.Key, err)
		}
		removed++
	}
	return removed, nil
}

func (a *Archiver) key(parts ...string) string {
	all := append([]string{a.prefix}, parts...)
	k := path.Join(all...)
	if len(parts) == 1 && parts[0] == "" && k != "" {
		return k + "/"
	}
	return k
}

func (a *Archiver) readError(key string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrObjectNotFound
	}
	return fmt.Errorf("failed to read %s: %w", key, err)
}
