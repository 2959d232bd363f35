package archive

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"socialsync-backend/internal/platform"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	require.Equal(t, "raw/instagram/2024-05-01/run-1/batch-0.json", Key(platform.Instagram, "2024-05-01", "run-1", "batch-0"))
}

func TestFilesystem(t *testing.T) {
	dir := t.TempDir()
	fs := Filesystem{Dir: dir}

	key := Key(platform.TikTok, "2024-05-01", "run-1", "batch-0")
	err := PutRecords(context.Background(), fs, key, []map[string]any{{"authorMeta": map[string]any{"name": "khaby.lame"}}})
	require.NoError(t, err)

	body, err := os.ReadFile(filepath.Join(dir, "raw", "tiktok", "2024-05-01", "run-1", "batch-0.json"))
	require.NoError(t, err)

	var records []map[string]any
	require.NoError(t, json.Unmarshal(body, &records))
	require.Len(t, records, 1)

	require.NoError(t, PutRecords(context.Background(), fs, Key(platform.TikTok, "2024-05-01", "run-1", "empty"), nil))
	body, err = os.ReadFile(filepath.Join(dir, "raw", "tiktok", "2024-05-01", "run-1", "empty.json"))
	require.NoError(t, err)
	require.Equal(t, "[]", string(body))
}

func TestS3(t *testing.T) {
	var mu sync.Mutex
	objects := map[string]string{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		mu.Lock()
		objects[r.URL.Path] = string(body)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	archive, err := NewS3(context.Background(), S3Config{
		Bucket:    "socialsync",
		Prefix:    "prod/",
		Endpoint:  server.URL,
		AccessKey: "key",
		SecretKey: "secret",
	})
	require.NoError(t, err)

	err = archive.Put(context.Background(), "raw/youtube/2024-05-01/run-1/batch-0.json", []byte(`[]`))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, `[]`, objects["/socialsync/prod/raw/youtube/2024-05-01/run-1/batch-0.json"])
}
