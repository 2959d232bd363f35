package platform

import (
	"fmt"
	"net/url"
	"strings"
)

type Platform string

const (
	Instagram Platform = "instagram"
	TikTok    Platform = "tiktok"
	Twitter   Platform = "twitter"
	YouTube   Platform = "youtube"
	Facebook  Platform = "facebook"
)

// All lists every supported platform in a stable order.
var All = []Platform{Instagram, TikTok, Twitter, YouTube, Facebook}

func Parse(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case Instagram, TikTok, Twitter, YouTube, Facebook:
		return p, nil
	case "x":
		return Twitter, nil
	}
	return "", fmt.Errorf("unknown platform '%s'", s)
}

// Profile is a tracked account. Profiles are owned by the storage layer and are
// read-only to the sync pipeline.
type Profile struct {
	ID         int64
	Platform   Platform
	Handle     string
	URL        string
	ExternalID string
	Region     string
}

// Identity is what a vendor record gets cross-validated against.
type Identity struct {
	Handle     string
	ExternalID string
	URL        string
}

func (p Profile) Identity() Identity {
	return Identity{Handle: p.Handle, ExternalID: p.ExternalID, URL: p.CanonicalURL()}
}

// Key is the normalized handle used to match vendor output to a requested profile.
func (i Identity) Key() string {
	return NormalizeHandle(i.Handle)
}

// Matches reports whether a username/id pair extracted from vendor output refers to this identity.
// The handle comparison is case-insensitive and ignores a leading '@', the external id is only
// consulted when both sides carry one.
func (i Identity) Matches(username, externalID string) bool {
	if username != "" && NormalizeHandle(username) == i.Key() && i.Key() != "" {
		return true
	}
	if externalID != "" && i.ExternalID != "" {
		return strings.EqualFold(strings.TrimSpace(externalID), strings.TrimSpace(i.ExternalID))
	}
	return false
}

// NormalizeHandle lowercases and strips whitespace, a leading '@', and any url wrapping
// around the handle (e.g. "https://www.instagram.com/Foo/" -> "foo"). Urls that address an
// account by id keep the id: "youtube.com/channel/UC1" -> "uc1", "profile.php?id=7" -> "7".
func NormalizeHandle(handle string) string {
	h := strings.TrimSpace(handle)
	if strings.Contains(h, "://") {
		h = handleFromURL(h)
	}
	h = strings.TrimPrefix(h, "@")
	return strings.ToLower(h)
}

// path segments that are followed by the account name or id
var nestingSegments = map[string]bool{
	"channel": true,
	"c":       true,
	"user":    true,
}

// segments that never name an account on their own
var genericSegments = map[string]bool{
	"channel":     true,
	"c":           true,
	"user":        true,
	"profile.php": true,
	"people":      true,
	"pages":       true,
	"watch":       true,
	"shorts":      true,
	"videos":      true,
	"i":           true,
	"home":        true,
	"explore":     true,
	"p":           true,
	"reel":        true,
	"reels":       true,
	"share":       true,
	"hashtag":     true,
	"search":      true,
	"intent":      true,
}

func pathSegments(u *url.URL) []string {
	return strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
}

func handleFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	segments := pathSegments(u)
	if len(segments) == 0 {
		return ""
	}
	first := strings.ToLower(segments[0])
	switch {
	case first == "profile.php":
		return u.Query().Get("id")
	case first == "people":
		// facebook.com/people/<name>/<id>
		if len(segments) >= 3 {
			return segments[2]
		}
		return ""
	case nestingSegments[first]:
		if len(segments) >= 2 {
			return segments[1]
		}
		return ""
	}
	return segments[0]
}

// ExternalIDFromURL returns the platform id a profile url addresses, with its case kept, or ""
// when the url addresses the account by name.
func ExternalIDFromURL(raw string) string {
	if !strings.Contains(raw, "://") {
		return ""
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	segments := pathSegments(u)
	if len(segments) == 0 {
		return ""
	}
	switch strings.ToLower(segments[0]) {
	case "channel":
		if len(segments) >= 2 {
			return segments[1]
		}
	case "profile.php":
		return u.Query().Get("id")
	case "people":
		if len(segments) >= 3 {
			return segments[2]
		}
	}
	return ""
}

// ValidateHandle rejects normalized handles that cannot identify an account.
func ValidateHandle(handle string) error {
	if handle == "" {
		return fmt.Errorf("empty handle")
	}
	if genericSegments[handle] {
		return fmt.Errorf("'%s' is not an account handle", handle)
	}
	return nil
}

// Identities maps profiles to the identities requested from a vendor.
func Identities(profiles []Profile) []Identity {
	out := make([]Identity, len(profiles))
	for i, p := range profiles {
		out[i] = p.Identity()
	}
	return out
}

// CanonicalURL returns the profile page for the handle when the profile has no explicit URL.
func (p Profile) CanonicalURL() string {
	if p.URL != "" {
		return p.URL
	}
	handle := strings.TrimPrefix(strings.TrimSpace(p.Handle), "@")
	switch p.Platform {
	case Instagram:
		return fmt.Sprintf("https://www.instagram.com/%s/", handle)
	case TikTok:
		return fmt.Sprintf("https://www.tiktok.com/@%s", handle)
	case Twitter:
		return fmt.Sprintf("https://x.com/%s", handle)
	case YouTube:
		return fmt.Sprintf("https://www.youtube.com/@%s", handle)
	case Facebook:
		return fmt.Sprintf("https://www.facebook.com/%s", handle)
	}
	return ""
}
