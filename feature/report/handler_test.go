package report

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Centroplan-france/vcom-yuman-sync/core/storage"
	"github.com/Centroplan-france/vcom-yuman-sync/core/storage/mocks"

	"github.com/gofiber/fiber/v2"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestApp(t *testing.T) (*fiber.App, *mocks.Client) {
	t.Helper()
	client := new(mocks.Client)
	archive := storage.NewArchiver(client, storage.Config{Bucket: "vysync-reports", Prefix: "reports"})

	app := fiber.New()
	require.NoError(t, NewFeature(archive, true, zap.NewNop()).Load(app))
	return app, client
}

func TestHandleList(t *testing.T) {
	app, client := setupTestApp(t)

	client.On("ListObjects", mock.Anything, "vysync-reports", mock.Anything).Return(mocks.Listing(
		minio.ObjectInfo{Key: "reports/2025/01/01/20250101T080000Z-sync-sites-a.json", Size: 10, LastModified: time.Now()},
		minio.ObjectInfo{Key: "reports/2025/01/02/20250102T080000Z-sync-sites-b.json", Size: 12, LastModified: time.Now()},
	))

	resp, err := app.Test(httptest.NewRequest("GET", "/reports?limit=1", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var entries []storage.ObjectEntry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Key, "-b.json")
}

func TestHandleGet(t *testing.T) {
	app, client := setupTestApp(t)

	key := "reports/2025/01/02/20250102T080000Z-sync-sites-b.json"
	client.On("GetObject", mock.Anything, "vysync-reports", key, minio.GetObjectOptions{}).
		Return(io.NopCloser(strings.NewReader(`{"run_id":"b"}`)), nil)
	client.On("GetObject", mock.Anything, "vysync-reports", "reports/missing.json", minio.GetObjectOptions{}).
		Return(nil, minio.ErrorResponse{Code: "NoSuchKey"})
	client.On("GetObject", mock.Anything, "vysync-reports", "reports/broken.json", minio.GetObjectOptions{}).
		Return(nil, errors.New("connection reset"))

	resp, err := app.Test(httptest.NewRequest("GET", "/reports/"+key, nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"run_id":"b"}`, string(body))

	resp, err = app.Test(httptest.NewRequest("GET", "/reports/reports/missing.json", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/reports/other/secret.json", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/reports/reports/broken.json", nil))
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
}

func TestFeature_Disabled(t *testing.T) {
	f := NewFeature(nil, false, zap.NewNop())
	assert.False(t, f.IsEnabled())
	assert.Equal(t, "reports", f.Name())
}
