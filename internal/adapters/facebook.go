package adapters

import "socialsync-backend/internal/platform"

var facebook = schema{
	platform: platform.Facebook,
	buildInput: func(identities []platform.Identity) map[string]any {
		return map[string]any{
			"startUrls": startURLs(identities),
		}
	},
	usernameKeys:   []string{"pageName", "username"},
	urlKeys:        []string{"pageUrl", "facebookUrl", "url", "inputUrl"},
	externalIDKeys: []string{"pageId", "facebookId", "id"},
	// likes is the legacy page-fan counter, it is only used when followers are absent
	followersKeys: []string{"followers", "followersCount", "followers_count", "likes"},
	postsKeys:     []string{"postsCount", "posts_count"},
}
