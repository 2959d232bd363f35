package adapters

import "socialsync-backend/internal/platform"

// tiktok runs return one record per video, every record repeats the author block.
var tiktok = schema{
	platform: platform.TikTok,
	buildInput: func(identities []platform.Identity) map[string]any {
		return map[string]any{
			"profiles":              handles(identities),
			"resultsPerPage":        1,
			"shouldDownloadVideos":  false,
			"shouldDownloadCovers":  false,
			"profileScrapeSections": []string{"videos"},
		}
	},
	usernameKeys:   []string{"authorMeta.name", "authorMeta.uniqueId", "author.uniqueId", "uniqueId"},
	urlKeys:        []string{"authorMeta.profileUrl", "profileUrl"},
	externalIDKeys: []string{"authorMeta.id", "author.id"},
	followersKeys: []string{
		"authorMeta.fans",
		"authorMeta.followers",
		"authorStats.followerCount",
		"author.followerCount",
		"stats.followerCount",
		"fans",
	},
	postsKeys: []string{
		"authorMeta.video",
		"authorMeta.videoCount",
		"authorStats.videoCount",
		"author.videoCount",
		"stats.videoCount",
		"video",
	},
}
