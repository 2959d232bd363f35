package extract

import "socialsync-backend/internal/platform"

// Probe is how the structured payload of a profile page is obtained. Script is evaluated in
// the page, when a runtime cannot evaluate (or the script yields nothing) Selector is applied to
// the html instead, reading Attr or the element's text when Attr is empty.
type Probe struct {
	Script   string
	Selector string
	Attr     string
}

const ogDescriptionScript = `() => {
	const m = document.querySelector('meta[property="og:description"]') || document.querySelector('meta[name="description"]');
	return m ? m.content : "";
}`

var probes = map[platform.Platform]Probe{
	platform.TikTok: {
		Script: `() => {
			const el = document.getElementById("__UNIVERSAL_DATA_FOR_REHYDRATION__") || document.getElementById("SIGI_STATE");
			return el ? el.textContent : "";
		}`,
		Selector: "script#__UNIVERSAL_DATA_FOR_REHYDRATION__, script#SIGI_STATE",
	},
	platform.YouTube: {
		Script: `() => window.ytInitialData ? JSON.stringify(window.ytInitialData) : ""`,
		Selector: `meta[itemprop="interactionCount"]`,
		Attr:     "content",
	},
	platform.Instagram: {
		Script:   ogDescriptionScript,
		Selector: `meta[property="og:description"]`,
		Attr:     "content",
	},
	platform.Facebook: {
		Script:   ogDescriptionScript,
		Selector: `meta[property="og:description"]`,
		Attr:     "content",
	},
	platform.Twitter: {
		Script: `() => {
			const a = document.querySelector('a[href$="/verified_followers"]') || document.querySelector('a[href$="/followers"]');
			return a ? a.innerText : "";
		}`,
		Selector: `a[href$="/verified_followers"], a[href$="/followers"]`,
	},
}

func ProbeFor(p platform.Platform) Probe {
	return probes[p]
}
