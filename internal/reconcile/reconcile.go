// Package reconcile attributes vendor records to the profiles that were requested and
// produces exactly one outcome per requested profile.
package reconcile

import (
	"fmt"
	"socialsync-backend/internal/adapters"
	"socialsync-backend/internal/outcome"
	"socialsync-backend/internal/platform"

	"github.com/antzucaro/matchr"
)

// Reconcile runs the adapter over every record. A record only counts for the profile whose
// handle (or external id) it names, the first record for a profile wins and duplicates are
// ignored. The returned outcomes are in the same order as profiles.
func Reconcile(adapter adapters.Adapter, profiles []platform.Profile, records []adapters.Record, date string) []outcome.Outcome {
	identities := platform.Identities(profiles)

	matched := make(map[int]adapters.Normalized, len(profiles))
	vendorErrors := map[string]string{}
	var seen []string

	for _, record := range records {
		if adapter.IsError(record) {
			username, message := adapter.ErrorInfo(record)
			key := platform.NormalizeHandle(username)
			if _, exists := vendorErrors[key]; key != "" && !exists {
				vendorErrors[key] = message
			}
			continue
		}

		normalized, ok := adapter.Normalize(record, identities)
		if !ok {
			if username := adapter.Username(record); username != "" {
				seen = append(seen, username)
			}
			continue
		}
		if _, exists := matched[normalized.Identity]; exists {
			continue
		}
		matched[normalized.Identity] = normalized
	}

	outcomes := make([]outcome.Outcome, len(profiles))
	for i, profile := range profiles {
		if n, ok := matched[i]; ok {
			outcomes[i] = outcome.Success(profile, outcome.Point{
				Date:      date,
				Followers: n.Followers,
				Posts:     n.Posts,
			})
			continue
		}

		key := identities[i].Key()
		if message, ok := vendorErrors[key]; ok {
			outcomes[i] = outcome.Failure(profile, vendorErrorCode(message), vendorErrorMessage(profile, message))
			continue
		}

		if len(records) == 0 {
			outcomes[i] = outcome.Failure(
				profile,
				outcome.CodeNotFound,
				fmt.Sprintf("vendor returned no records for @%s", key),
			)
			continue
		}

		message := fmt.Sprintf("%d records returned, none usable for @%s", len(records), key)
		if closest, similarity := closestUsername(key, seen); closest != "" {
			message = fmt.Sprintf("%s (closest username: %s, similarity %.2f)", message, closest, similarity)
		}
		outcomes[i] = outcome.Failure(profile, outcome.CodeParseError, message)
	}
	return outcomes
}

// vendorErrorCode keeps throttling and bot-check classifications, anything else a vendor
// says about a specific profile means the profile could not be found.
func vendorErrorCode(message string) outcome.Code {
	switch code := outcome.ClassifyMessage(message); code {
	case outcome.CodeRateLimit, outcome.CodeBlocked, outcome.CodeCaptcha, outcome.CodeTimeout:
		return code
	}
	return outcome.CodeNotFound
}

func vendorErrorMessage(profile platform.Profile, message string) string {
	if message == "" {
		return fmt.Sprintf("vendor reported an error for @%s", platform.NormalizeHandle(profile.Handle))
	}
	return fmt.Sprintf("vendor reported an error for @%s: %s", platform.NormalizeHandle(profile.Handle), message)
}

func closestUsername(target string, candidates []string) (string, float64) {
	var best string
	var bestSimilarity float64
	for _, candidate := range candidates {
		similarity := matchr.JaroWinkler(target, platform.NormalizeHandle(candidate), false)
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			best = candidate
		}
	}
	return best, bestSimilarity
}
