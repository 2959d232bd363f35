// Package adapters holds the vendor knowledge for every platform: how to shape the input of an
// actor run and how to pull `{username, followers, posts}` out of one output record.
//
// Vendor schemas are not contractually stable, so every field is looked up through an ordered
// list of candidate paths and the first usable value wins.
package adapters

import (
	"socialsync-backend/internal/numparse"
	"socialsync-backend/internal/platform"
	"strconv"
	"strings"
)

// Record is one item of a vendor result set.
type Record = map[string]any

// Normalized is what a vendor record means once it has been matched to a requested identity.
type Normalized struct {
	Username   string
	ExternalID string
	Followers  int64
	Posts      int64
	// Identity is the index into the requested identities this record was attributed to.
	Identity int
}

type Adapter interface {
	Platform() platform.Platform
	// BuildJobInput shapes the actor input for the given identities.
	BuildJobInput(identities []platform.Identity) map[string]any
	// Normalize extracts counts from record, it returns false for error/empty records and for
	// records that do not belong to any of the requested identities.
	Normalize(record Record, identities []platform.Identity) (Normalized, bool)
	// IsError reports whether the record is a vendor error object or carries nothing.
	IsError(record Record) bool
	// ErrorInfo returns whatever the vendor said about a failed record.
	ErrorInfo(record Record) (username string, message string)
	// Username returns the username a record claims to describe, regardless of whether it
	// matches anything.
	Username(record Record) string
}

// schema is the per-platform table of fallback paths.
type schema struct {
	platform   platform.Platform
	buildInput func(identities []platform.Identity) map[string]any

	usernameKeys   []string
	urlKeys        []string
	externalIDKeys []string
	followersKeys  []string
	postsKeys      []string
	errorKeys      []string
}

var defaultErrorKeys = []string{"error", "errorDescription", "errorMessage", "#error"}

func (s schema) Platform() platform.Platform {
	return s.platform
}

func (s schema) BuildJobInput(identities []platform.Identity) map[string]any {
	return s.buildInput(identities)
}

func (s schema) errorKeyList() []string {
	if len(s.errorKeys) == 0 {
		return defaultErrorKeys
	}
	return s.errorKeys
}

func (s schema) IsError(record Record) bool {
	if len(record) == 0 {
		return true
	}
	for _, key := range s.errorKeyList() {
		v, ok := lookup(record, key)
		if !ok {
			continue
		}
		switch t := v.(type) {
		case bool:
			if t {
				return true
			}
		case string:
			if strings.TrimSpace(t) != "" {
				return true
			}
		case nil:
		default:
			return true
		}
	}
	return false
}

func (s schema) ErrorInfo(record Record) (string, string) {
	var parts []string
	for _, key := range s.errorKeyList() {
		if v, ok := lookupString(record, key); ok {
			parts = append(parts, v)
		}
	}
	return s.Username(record), strings.Join(parts, ": ")
}

func (s schema) Username(record Record) string {
	if v, ok := firstString(record, s.usernameKeys); ok {
		return v
	}
	if v, ok := firstString(record, s.urlKeys); ok {
		return platform.NormalizeHandle(v)
	}
	return ""
}

func (s schema) Normalize(record Record, identities []platform.Identity) (Normalized, bool) {
	if s.IsError(record) {
		return Normalized{}, false
	}

	username := s.Username(record)
	externalID, _ := firstString(record, s.externalIDKeys)
	if username == "" && externalID == "" {
		return Normalized{}, false
	}

	matched := -1
	for i, id := range identities {
		if id.Matches(username, externalID) {
			matched = i
			break
		}
	}
	if matched < 0 {
		return Normalized{}, false
	}

	followers, ok := firstCount(record, s.followersKeys)
	if !ok {
		return Normalized{}, false
	}
	// posts are not reported by every vendor, a missing value is stored as 0
	posts, _ := firstCount(record, s.postsKeys)

	return Normalized{
		Username:   username,
		ExternalID: externalID,
		Followers:  followers,
		Posts:      posts,
		Identity:   matched,
	}, true
}

// lookup resolves a dotted path through nested objects, numeric segments index into arrays.
func lookup(record Record, path string) (any, bool) {
	var current any = record
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			v, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = v
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

func lookupString(record Record, path string) (string, bool) {
	v, ok := lookup(record, path)
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		t = strings.TrimSpace(t)
		return t, t != ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	}
	return "", false
}

func firstString(record Record, paths []string) (string, bool) {
	for _, p := range paths {
		if v, ok := lookupString(record, p); ok {
			return v, true
		}
	}
	return "", false
}

func firstCount(record Record, paths []string) (int64, bool) {
	for _, p := range paths {
		v, ok := lookup(record, p)
		if !ok {
			continue
		}
		if n, ok := numparse.ParseAny(v); ok {
			return n, true
		}
	}
	return 0, false
}

func handles(identities []platform.Identity) []string {
	out := make([]string, 0, len(identities))
	for _, id := range identities {
		h := strings.TrimPrefix(strings.TrimSpace(id.Handle), "@")
		if h != "" {
			out = append(out, h)
		}
	}
	return out
}

func startURLs(identities []platform.Identity) []map[string]any {
	out := make([]map[string]any, 0, len(identities))
	for _, id := range identities {
		if id.URL == "" {
			continue
		}
		out = append(out, map[string]any{"url": id.URL})
	}
	return out
}

// Registry is the platform -> adapter dispatch table.
type Registry map[platform.Platform]Adapter

// Default returns an adapter for every supported platform.
func Default() Registry {
	return Registry{
		platform.Instagram: instagram,
		platform.TikTok:    tiktok,
		platform.Twitter:   twitter,
		platform.YouTube:   youtube,
		platform.Facebook:  facebook,
	}
}

func (r Registry) Lookup(p platform.Platform) (Adapter, bool) {
	a, ok := r[p]
	return a, ok
}
