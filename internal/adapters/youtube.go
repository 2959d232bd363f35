package adapters

import "socialsync-backend/internal/platform"

var youtube = schema{
	platform: platform.YouTube,
	buildInput: func(identities []platform.Identity) map[string]any {
		return map[string]any{
			"startUrls":        startURLs(identities),
			"maxResults":       1,
			"maxResultsShorts": 0,
			"maxResultStreams": 0,
		}
	},
	usernameKeys: []string{"channelUsername", "aboutChannelInfo.channelUsername"},
	urlKeys:      []string{"inputChannelUrl", "channelUrl", "aboutChannelInfo.channelUrl"},
	externalIDKeys: []string{
		"channelId",
		"aboutChannelInfo.channelId",
	},
	followersKeys: []string{
		"numberOfSubscribers",
		"aboutChannelInfo.numberOfSubscribers",
		"subscriberCount",
		"channelSubscribers",
	},
	postsKeys: []string{
		"channelTotalVideos",
		"aboutChannelInfo.channelTotalVideos",
		"videoCount",
	},
}
