// Package archive keeps the raw vendor output of every actor run so records can be
// re-normalized when a vendor schema drifts.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"socialsync-backend/internal/platform"
)

// Archive stores an opaque blob under a slash separated key.
type Archive interface {
	Put(ctx context.Context, key string, body []byte) error
}

// Key is `raw/<platform>/<date>/<run>/<part>.json`.
func Key(p platform.Platform, date, runID, part string) string {
	return path.Join("raw", string(p), date, runID, part+".json")
}

// PutRecords archives records as a json array.
func PutRecords(ctx context.Context, a Archive, key string, records []map[string]any) error {
	if records == nil {
		records = []map[string]any{}
	}
	body, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("archive %s: %w", key, err)
	}
	return a.Put(ctx, key, body)
}

// Filesystem writes keys as files under Dir.
type Filesystem struct {
	Dir string
}

func (f Filesystem) Put(ctx context.Context, key string, body []byte) error {
	target := filepath.Join(f.Dir, filepath.FromSlash(key))
	err := os.MkdirAll(filepath.Dir(target), 0777)
	if err != nil {
		return fmt.Errorf("archive %s: %w", key, err)
	}
	err = os.WriteFile(target, body, 0644)
	if err != nil {
		return fmt.Errorf("archive %s: %w", key, err)
	}
	return nil
}

// Discard drops everything, used when no archive is configured.
type Discard struct{}

func (Discard) Put(ctx context.Context, key string, body []byte) error {
	return nil
}
