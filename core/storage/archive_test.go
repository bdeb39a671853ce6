package storage_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/Centroplan-france/vcom-yuman-sync/core/storage"
	"github.com/Centroplan-france/vcom-yuman-sync/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newArchiver(client storage.Client) *storage.Archiver {
	return storage.NewArchiver(client, storage.Config{Bucket: "vysync-reports", Prefix: "/reports/"})
}

func TestArchiver_EnsureBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("Exists", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", ctx, "vysync-reports").Return(true, nil)

		require.NoError(t, newArchiver(client).EnsureBucket(ctx))
		client.AssertNotCalled(t, "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Creates", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", ctx, "vysync-reports").Return(false, nil)
		client.On("MakeBucket", ctx, "vysync-reports", minio.MakeBucketOptions{}).Return(nil)

		require.NoError(t, newArchiver(client).EnsureBucket(ctx))
		client.AssertExpectations(t)
	})

	t.Run("Error", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", ctx, "vysync-reports").Return(false, errors.New("access denied"))

		assert.ErrorContains(t, newArchiver(client).EnsureBucket(ctx), "access denied")
	})
}

func TestArchiver_ReportKey(t *testing.T) {
	a := newArchiver(new(mocks.Client))
	started := time.Date(2025, 3, 1, 9, 30, 0, 0, time.FixedZone("CET", 3600))

	assert.Equal(t, "reports/2025/03/01/20250301T083000Z-sync-sites-abc.json", a.ReportKey(started, "sync sites", "abc"))
}

func TestArchiver_Save(t *testing.T) {
	ctx := context.Background()
	client := new(mocks.Client)
	a := newArchiver(client)

	var uploaded string
	client.On("PutObject", ctx, "vysync-reports", "reports/x.json", mock.Anything, mock.AnythingOfType("int64"),
		minio.PutObjectOptions{ContentType: "application/json"}).
		Run(func(args mock.Arguments) {
			b, _ := io.ReadAll(args.Get(3).(io.Reader))
			uploaded = string(b)
		}).
		Return(minio.UploadInfo{}, nil)

	require.NoError(t, a.Save(ctx, "reports/x.json", map[string]int{"added": 2}))
	assert.JSONEq(t, `{"added":2}`, uploaded)
}

func TestArchiver_ListAndPrune(t *testing.T) {
	ctx := context.Background()
	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	newClient := func() *mocks.Client {
		client := new(mocks.Client)
		client.On("ListObjects", ctx, "vysync-reports", minio.ListObjectsOptions{Prefix: "reports/", Recursive: true}).
			Return(mocks.Listing(
				minio.ObjectInfo{Key: "reports/2024/01/01/a.json", Size: 10, LastModified: old},
				minio.ObjectInfo{Key: "reports/2025/03/01/b.json", Size: 20, LastModified: recent},
			))
		return client
	}

	entries, err := newArchiver(newClient()).List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "reports/2025/03/01/b.json", entries[0].Key)

	client := newClient()
	client.On("RemoveObject", ctx, "vysync-reports", "reports/2024/01/01/a.json", minio.RemoveObjectOptions{}).Return(nil)

	removed, err := newArchiver(client).Prune(ctx, recent.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	client.AssertExpectations(t)
}

func TestArchiver_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("GetObject", ctx, "vysync-reports", "reports/a.json", minio.GetObjectOptions{}).
			Return(io.NopCloser(strings.NewReader(`{"ok":true}`)), nil)

		body, err := newArchiver(client).Load(ctx, "reports/a.json")
		require.NoError(t, err)
		assert.JSONEq(t, `{"ok":true}`, string(body))
	})

	t.Run("NoSuchKey", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("GetObject", ctx, "vysync-reports", "reports/missing.json", minio.GetObjectOptions{}).
			Return(nil, minio.ErrorResponse{Code: "NoSuchKey"})

		_, err := newArchiver(client).Load(ctx, "reports/missing.json")
		assert.ErrorIs(t, err, storage.ErrObjectNotFound)
	})

	t.Run("OutsidePrefix", func(t *testing.T) {
		client := new(mocks.Client)
		_, err := newArchiver(client).Load(ctx, "secrets/a.json")
		assert.ErrorIs(t, err, storage.ErrObjectNotFound)

		_, err = newArchiver(client).Load(ctx, "reports/../secrets/a.json")
		assert.ErrorIs(t, err, storage.ErrObjectNotFound)
		client.AssertNotCalled(t, "GetObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
