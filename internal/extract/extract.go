// Package extract turns a rendered (or fetched) profile page into follower and post counts.
//
// Extraction is an ordered list of strategies, each a total function over a Source. The first
// strategy that yields a follower count decides followers, posts are taken from the first
// strategy that yields them.
package extract

import (
	"context"
	"socialsync-backend/internal/platform"
	"socialsync-backend/lib/htmlutil"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Source is everything a strategy may look at.
type Source struct {
	Platform platform.Platform
	// Structured is the result of the platform probe, usually embedded json, sometimes
	// a short piece of text like an og:description.
	Structured string
	HTML       string

	doc  *goquery.Document
	text string
}

func NewSource(ctx context.Context, p platform.Platform, structured, html string) Source {
	src := Source{
		Platform:   p,
		Structured: strings.TrimSpace(structured),
		HTML:       html,
	}
	if html == "" {
		return src
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return src
	}
	src.doc = doc
	src.text = htmlutil.VisibleText(ctx, doc)
	return src
}

// Document is the parsed html, nil when the source carries no html.
func (s Source) Document() *goquery.Document {
	return s.doc
}

// Text is the visible text of the page.
func (s Source) Text() string {
	return s.text
}

// ProbeHTML applies the probe selector to the html.
func (s Source) ProbeHTML(probe Probe) string {
	if s.doc == nil || probe.Selector == "" {
		return ""
	}
	sel := s.doc.Find(probe.Selector).First()
	if probe.Attr != "" {
		v, _ := sel.Attr(probe.Attr)
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(sel.Text())
}

type Metrics struct {
	Followers *int64
	Posts     *int64
}

type Strategy struct {
	Name string
	Fn   func(src Source) (Metrics, bool)
}

// Result is the merged output of running the strategies.
type Result struct {
	Followers int64
	Posts     int64
	// FollowersFrom names the strategy that produced the follower count.
	FollowersFrom string
	PostsFrom     string
}

// Strategies returns the ordered strategy list for a platform.
func Strategies(p platform.Platform) []Strategy {
	vocab, ok := vocabularies[p]
	if !ok {
		vocab = defaultVocabulary
	}
	return []Strategy{
		{Name: "structured", Fn: structured(vocab, scopes[p])},
		{Name: "meta", Fn: metaDescription(vocab)},
		{Name: "visible_text", Fn: visibleText(vocab)},
		{Name: "raw_html", Fn: rawHTML},
	}
}

// Run applies strategies in order and reports whether a follower count was found.
func Run(src Source, strategies []Strategy) (Result, bool) {
	var res Result
	haveFollowers := false
	havePosts := false
	for _, s := range strategies {
		m, ok := s.Fn(src)
		if !ok {
			continue
		}
		if !haveFollowers && m.Followers != nil {
			res.Followers = *m.Followers
			res.FollowersFrom = s.Name
			haveFollowers = true
		}
		if !havePosts && m.Posts != nil {
			res.Posts = *m.Posts
			res.PostsFrom = s.Name
			havePosts = true
		}
		if haveFollowers && havePosts {
			break
		}
	}
	return res, haveFollowers
}
