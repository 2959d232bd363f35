package extract

import (
	"context"
	"socialsync-backend/internal/platform"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	table := []struct {
		name          string
		platform      platform.Platform
		structured    string
		html          string
		ok            bool
		followers     int64
		posts         int64
		followersFrom string
	}{
		{
			name:          "youtube visible text fallback",
			platform:      platform.YouTube,
			html:          `<html><body><div id="meta"><span>@natgeo</span><span>12.3K subscribers</span><span>420 videos</span></div></body></html>`,
			ok:            true,
			followers:     12_300,
			posts:         420,
			followersFrom: "visible_text",
		},
		{
			name:       "tiktok universal data",
			platform:   platform.TikTok,
			structured: `{"__DEFAULT_SCOPE__":{"webapp.user-detail":{"userInfo":{"user":{"uniqueId":"khaby.lame"},"stats":{"followerCount":162100000,"videoCount":1290}}}}}`,
			ok:            true,
			followers:     162_100_000,
			posts:         1290,
			followersFrom: "structured",
		},
		{
			name:          "youtube initial data runs",
			platform:      platform.YouTube,
			structured:    `{"header":{"c4TabbedHeaderRenderer":{"subscriberCountText":{"simpleText":"24.8M subscribers"},"videosCountText":{"runs":[{"text":"13K"},{"text":" videos"}]}}}}`,
			ok:            true,
			followers:     24_800_000,
			posts:         13_000,
			followersFrom: "structured",
		},
		{
			name:     "youtube featured channels are not the owner",
			platform: platform.YouTube,
			structured: `{
				"contents":{"twoColumnBrowseResultsRenderer":{"tabs":[{"tabRenderer":{"content":{"sectionListRenderer":{"contents":[
					{"itemSectionRenderer":{"contents":[{"shelfRenderer":{"title":{"simpleText":"Featured channels"},"content":{"horizontalListRenderer":{"items":[
						{"gridChannelRenderer":{"channelId":"UC999","subscriberCountText":{"simpleText":"3.4M subscribers"},"videoCountText":{"runs":[{"text":"900"},{"text":" videos"}]}}}
					]}}}}]}}
				]}}}}]}},
				"header":{"c4TabbedHeaderRenderer":{"channelId":"UC111","subscriberCountText":{"simpleText":"12.3K subscribers"},"videosCountText":{"runs":[{"text":"420"},{"text":" videos"}]}}}
			}`,
			ok:            true,
			followers:     12_300,
			posts:         420,
			followersFrom: "structured",
		},
		{
			name:     "youtube page header display strings",
			platform: platform.YouTube,
			structured: `{
				"contents":{"gridChannelRenderer":{"subscriberCountText":{"simpleText":"3.4M subscribers"}}},
				"header":{"pageHeaderRenderer":{"pageTitle":"Some Channel","content":{"pageHeaderViewModel":{"metadata":{"contentMetadataViewModel":{"metadataRows":[
					{"metadataParts":[{"text":{"content":"@somechannel"}}]},
					{"metadataParts":[{"text":{"content":"12.3K subscribers"}},{"text":{"content":"420 videos"}}]}
				]}}}}}}
			}`,
			ok:            true,
			followers:     12_300,
			posts:         420,
			followersFrom: "structured",
		},
		{
			name:     "youtube raw html reads the header",
			platform: platform.YouTube,
			html: `<html><body><script>var ytInitialData = {"contents":{"gridChannelRenderer":{"subscriberCountText":{"simpleText":"3.4M subscribers"}}},` +
				`"header":{"c4TabbedHeaderRenderer":{"subscriberCountText":{"simpleText":"12.3K subscribers"}}}};</script></body></html>`,
			ok:            true,
			followers:     12_300,
			followersFrom: "raw_html",
		},
		{
			name:     "raw html that disagrees with itself",
			platform: platform.Twitter,
			html:     `<html><body><script>{"followers_count":10,"other":{"followers_count":99}}</script></body></html>`,
			ok:       false,
		},
		{
			name:          "instagram og description",
			platform:      platform.Instagram,
			html:          `<html><head><meta property="og:description" content="283M Followers, 160 Following, 30K Posts - See Instagram photos and videos from National Geographic (@natgeo)"></head><body></body></html>`,
			ok:            true,
			followers:     283_000_000,
			posts:         30_000,
			followersFrom: "meta",
		},
		{
			name:          "instagram probe text in portuguese",
			platform:      platform.Instagram,
			structured:    "2,1 mil seguidores, 80 seguindo, 1.234 publicações",
			ok:            true,
			followers:     2_100,
			posts:         1_234,
			followersFrom: "structured",
		},
		{
			name:          "tiktok raw script fields",
			platform:      platform.TikTok,
			html:          `<html><body><script>window.__x = {"followerCount":"1.5M","videoCount":12}</script></body></html>`,
			ok:            true,
			followers:     1_500_000,
			posts:         12,
			followersFrom: "raw_html",
		},
		{
			name:      "zero followers is a count",
			platform:  platform.Twitter,
			html:      `<html><body><a href="/quiet/followers">0 Followers</a></body></html>`,
			ok:        true,
			followers: 0,
		},
		{
			name:     "nothing usable",
			platform: platform.Facebook,
			html:     `<html><body><p>Log in to continue</p></body></html>`,
			ok:       false,
		},
		{
			name:     "posts alone are not enough",
			platform: platform.YouTube,
			html:     `<html><body><p>420 videos</p></body></html>`,
			ok:       false,
		},
	}

	for _, test := range table {
		t.Run(test.name, func(t *testing.T) {
			src := NewSource(context.Background(), test.platform, test.structured, test.html)
			res, ok := Run(src, Strategies(test.platform))
			require.Equal(t, test.ok, ok)
			if !test.ok {
				return
			}
			require.Equal(t, test.followers, res.Followers)
			require.Equal(t, test.posts, res.Posts)
			if test.followersFrom != "" {
				require.Equal(t, test.followersFrom, res.FollowersFrom)
			}
		})
	}
}

func TestProbeHTML(t *testing.T) {
	html := `<html><head><meta property="og:description" content=" 10K Followers "></head>
<body><script id="__UNIVERSAL_DATA_FOR_REHYDRATION__">{"a":1}</script></body></html>`
	src := NewSource(context.Background(), platform.Instagram, "", html)

	require.Equal(t, "10K Followers", src.ProbeHTML(ProbeFor(platform.Instagram)))
	require.Equal(t, `{"a":1}`, src.ProbeHTML(ProbeFor(platform.TikTok)))
	require.Equal(t, "", NewSource(context.Background(), platform.TikTok, "", "").ProbeHTML(ProbeFor(platform.TikTok)))
}
