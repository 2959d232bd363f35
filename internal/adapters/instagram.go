package adapters

import "socialsync-backend/internal/platform"

var instagram = schema{
	platform: platform.Instagram,
	buildInput: func(identities []platform.Identity) map[string]any {
		return map[string]any{
			"usernames":    handles(identities),
			"resultsLimit": 1,
		}
	},
	usernameKeys:   []string{"username", "userName", "ownerUsername", "user.username"},
	urlKeys:        []string{"url", "inputUrl", "profileUrl"},
	externalIDKeys: []string{"id", "pk", "user.id"},
	followersKeys: []string{
		"followersCount",
		"followers",
		"follower_count",
		"edge_followed_by.count",
		"user.edge_followed_by.count",
	},
	postsKeys: []string{
		"postsCount",
		"posts",
		"mediaCount",
		"media_count",
		"edge_owner_to_timeline_media.count",
		"user.edge_owner_to_timeline_media.count",
	},
}
