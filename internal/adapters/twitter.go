package adapters

import "socialsync-backend/internal/platform"

var twitter = schema{
	platform: platform.Twitter,
	buildInput: func(identities []platform.Identity) map[string]any {
		list := handles(identities)
		return map[string]any{
			"twitterHandles": list,
			"maxItems":       len(list),
			"getFollowers":   false,
			"getFollowing":   false,
		}
	},
	usernameKeys:   []string{"userName", "username", "screen_name", "legacy.screen_name", "author.userName"},
	urlKeys:        []string{"url", "twitterUrl", "profileUrl"},
	externalIDKeys: []string{"id", "id_str", "rest_id"},
	followersKeys: []string{
		"followers",
		"followersCount",
		"followers_count",
		"legacy.followers_count",
		"author.followers",
	},
	postsKeys: []string{
		"statusesCount",
		"statuses_count",
		"tweetsCount",
		"legacy.statuses_count",
		"author.statusesCount",
	},
}
