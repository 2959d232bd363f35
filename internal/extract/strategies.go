package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"socialsync-backend/internal/numparse"
	"socialsync-backend/internal/platform"
	"socialsync-backend/lib/htmlutil"
	"sort"
	"strings"
)

type vocabulary struct {
	followers *regexp.Regexp
	posts     *regexp.Regexp
}

// a count optionally followed by a magnitude word, the longer words must come first
const countPattern = `(\d[\d.,]*(?:\s?(?:billion|bn|bi|b|million|millones|milhões|mln|mn|mil|mi|m|thousand|k)\b)?)`

func countBefore(words ...string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(fmt.Sprintf(`(?i)%s\s*(?:%s)`, countPattern, strings.Join(quoted, "|")))
}

var defaultVocabulary = vocabulary{
	followers: countBefore("followers", "seguidores", "abonnés", "follower"),
	posts:     countBefore("posts", "publicações", "publicaciones", "publications"),
}

var vocabularies = map[platform.Platform]vocabulary{
	platform.Instagram: defaultVocabulary,
	platform.TikTok: {
		followers: countBefore("followers", "seguidores", "fans", "fãs"),
		posts:     countBefore("videos", "vídeos"),
	},
	platform.Twitter: {
		followers: countBefore("followers", "seguidores"),
		posts:     countBefore("posts", "tweets", "publicações"),
	},
	platform.YouTube: {
		followers: countBefore("subscribers", "inscritos", "suscriptores", "subscriber"),
		posts:     countBefore("videos", "vídeos"),
	},
	platform.Facebook: {
		followers: countBefore("followers", "seguidores", "likes", "curtidas", "me gusta"),
		posts:     countBefore("posts", "publicações"),
	},
}

func findCount(text string, re *regexp.Regexp) *int64 {
	if text == "" {
		return nil
	}
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if n, ok := numparse.ParseCount(m[1]); ok {
			return &n
		}
	}
	return nil
}

func fromText(text string, vocab vocabulary) (Metrics, bool) {
	m := Metrics{
		Followers: findCount(text, vocab.followers),
		Posts:     findCount(text, vocab.posts),
	}
	return m, m.Followers != nil || m.Posts != nil
}

var followerKeys = map[string]bool{
	"followerCount":       true,
	"followersCount":      true,
	"follower_count":      true,
	"followers_count":     true,
	"fans":                true,
	"subscriberCount":     true,
	"subscriberCountText": true,
	"edge_followed_by":    true,
}

var postKeys = map[string]bool{
	"videoCount":                   true,
	"videosCountText":              true,
	"mediaCount":                   true,
	"media_count":                  true,
	"postsCount":                   true,
	"statuses_count":               true,
	"statusesCount":                true,
	"edge_owner_to_timeline_media": true,
}

// findKey walks decoded json depth first, object keys in sorted order, and returns the first
// count found under one of keys. Only use it on a subtree that describes the profile owner.
func findKey(v any, keys map[string]bool) (*int64, bool) {
	switch node := v.(type) {
	case map[string]any:
		names := sortedKeys(node)
		for _, k := range names {
			if keys[k] {
				if n, ok := countOf(node[k]); ok {
					return &n, true
				}
			}
		}
		for _, k := range names {
			if n, ok := findKey(node[k], keys); ok {
				return n, true
			}
		}
	case []any:
		for _, child := range node {
			if n, ok := findKey(child, keys); ok {
				return n, true
			}
		}
	}
	return nil, false
}

// findUnique collects every count under one of keys and returns it only when all of them
// agree. Page payloads also describe other accounts (suggestions, featured channels), a
// payload that disagrees with itself yields nothing.
func findUnique(v any, keys map[string]bool) *int64 {
	var found []int64
	var walk func(v any)
	walk = func(v any) {
		switch node := v.(type) {
		case map[string]any:
			for _, k := range sortedKeys(node) {
				if keys[k] {
					if n, ok := countOf(node[k]); ok {
						found = append(found, n)
						continue
					}
				}
				walk(node[k])
			}
		case []any:
			for _, child := range node {
				walk(child)
			}
		}
	}
	walk(v)
	return agreed(found)
}

func agreed(values []int64) *int64 {
	if len(values) == 0 {
		return nil
	}
	for _, v := range values[1:] {
		if v != values[0] {
			return nil
		}
	}
	n := values[0]
	return &n
}

func sortedKeys(node map[string]any) []string {
	names := make([]string, 0, len(node))
	for k := range node {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// texts collects the string leaves of v in a stable order.
func texts(v any) []string {
	var out []string
	switch node := v.(type) {
	case string:
		out = append(out, node)
	case map[string]any:
		for _, k := range sortedKeys(node) {
			out = append(out, texts(node[k])...)
		}
	case []any:
		for _, child := range node {
			out = append(out, texts(child)...)
		}
	}
	return out
}

// scope is the path to the part of a structured payload that describes the profile owner.
type scope []string

func (s scope) resolve(v any) (any, bool) {
	current := v
	for _, segment := range s {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

var scopes = map[platform.Platform][]scope{
	platform.YouTube: {
		{"header", "c4TabbedHeaderRenderer"},
		{"header", "pageHeaderRenderer"},
	},
	platform.TikTok: {
		{"__DEFAULT_SCOPE__", "webapp.user-detail", "userInfo"},
		{"UserModule"},
	},
}

// fromJSON reads counts from the first scope present in decoded. Platforms without scopes are
// searched whole, keeping only counts the payload agrees on.
func fromJSON(decoded any, scoped []scope, vocab vocabulary) (Metrics, bool) {
	if len(scoped) == 0 {
		m := Metrics{
			Followers: findUnique(decoded, followerKeys),
			Posts:     findUnique(decoded, postKeys),
		}
		return m, m.Followers != nil || m.Posts != nil
	}

	for _, s := range scoped {
		node, ok := s.resolve(decoded)
		if !ok {
			continue
		}
		var m Metrics
		m.Followers, _ = findKey(node, followerKeys)
		m.Posts, _ = findKey(node, postKeys)
		if m.Followers == nil || m.Posts == nil {
			// newer header layouts only carry display strings like "12.3K subscribers"
			fallback, _ := fromText(strings.Join(texts(node), " "), vocab)
			if m.Followers == nil {
				m.Followers = fallback.Followers
			}
			if m.Posts == nil {
				m.Posts = fallback.Posts
			}
		}
		if m.Followers != nil || m.Posts != nil {
			return m, true
		}
	}
	return Metrics{}, false
}

// countOf reads a count from the shapes platforms use: plain numbers, strings,
// {"count": n}, {"simpleText": "..."} and {"runs": [{"text": "..."}]}.
func countOf(v any) (int64, bool) {
	switch node := v.(type) {
	case map[string]any:
		for _, k := range []string{"count", "simpleText", "content", "text"} {
			if inner, ok := node[k]; ok {
				return countOf(inner)
			}
		}
		if runs, ok := node["runs"].([]any); ok {
			var sb strings.Builder
			for _, r := range runs {
				if run, ok := r.(map[string]any); ok {
					if text, ok := run["text"].(string); ok {
						sb.WriteString(text)
					}
				}
			}
			return numparse.ParseCount(sb.String())
		}
		return 0, false
	default:
		return numparse.ParseAny(v)
	}
}

func structured(vocab vocabulary, scoped []scope) func(src Source) (Metrics, bool) {
	return func(src Source) (Metrics, bool) {
		if src.Structured == "" {
			return Metrics{}, false
		}
		var decoded any
		if err := json.Unmarshal([]byte(src.Structured), &decoded); err == nil {
			return fromJSON(decoded, scoped, vocab)
		}
		return fromText(htmlutil.CleanText(src.Structured), vocab)
	}
}

func metaDescription(vocab vocabulary) func(src Source) (Metrics, bool) {
	return func(src Source) (Metrics, bool) {
		doc := src.Document()
		if doc == nil {
			return Metrics{}, false
		}
		for _, key := range []string{"og:description", "description", "twitter:description"} {
			if m, ok := fromText(htmlutil.MetaContent(doc, key), vocab); ok {
				return m, true
			}
		}
		return Metrics{}, false
	}
}

func visibleText(vocab vocabulary) func(src Source) (Metrics, bool) {
	return func(src Source) (Metrics, bool) {
		return fromText(src.Text(), vocab)
	}
}

var (
	rawFollowers = regexp.MustCompile(`"(?:followerCount|follower_count|followers_count|subscriberCount)"\s*:\s*"?(\d[\d.,]*[KMBkmb]?)`)
	rawPosts     = regexp.MustCompile(`"(?:videoCount|mediaCount|media_count|statuses_count)"\s*:\s*"?(\d[\d.,]*[KMBkmb]?)`)
	rawSubText   = regexp.MustCompile(`"subscriberCountText"\s*:\s*\{[^{}]*?"simpleText"\s*:\s*"([^"]+)"`)
)

// markers of the profile owner's section in inline page data, the scan starts at the first
// one found
var rawAnchors = map[platform.Platform][]string{
	platform.YouTube: {`"c4TabbedHeaderRenderer"`, `"pageHeaderRenderer"`},
}

func rawRegion(src Source) string {
	for _, anchor := range rawAnchors[src.Platform] {
		if idx := strings.Index(src.HTML, anchor); idx >= 0 {
			return src.HTML[idx:]
		}
	}
	return src.HTML
}

// rawCount returns the count re captures when every match agrees on it.
func rawCount(text string, re *regexp.Regexp) *int64 {
	var found []int64
	for _, match := range re.FindAllStringSubmatch(text, -1) {
		if n, ok := numparse.ParseCount(match[1]); ok {
			found = append(found, n)
		}
	}
	return agreed(found)
}

// rawHTML scans inline scripts for json-ish count fields.
func rawHTML(src Source) (Metrics, bool) {
	if src.HTML == "" {
		return Metrics{}, false
	}
	region := rawRegion(src)
	var m Metrics
	for _, re := range []*regexp.Regexp{rawFollowers, rawSubText} {
		if n := rawCount(region, re); n != nil {
			m.Followers = n
			break
		}
	}
	m.Posts = rawCount(region, rawPosts)
	return m, m.Followers != nil || m.Posts != nil
}
