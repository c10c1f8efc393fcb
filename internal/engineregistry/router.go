package engineregistry

import (
	"regexp"
)

// handlerPatterns gives each built-in engine's URL-matching rules, shared
// between the registry's tests and the concrete engine adapters so the
// two stay in lockstep.
var handlerPatterns = map[EngineName][]*regexp.Regexp{
	Streamlink: {
		regexp.MustCompile(`twitch\.tv`),
		regexp.MustCompile(`kick\.com`),
		regexp.MustCompile(`afreecatv\.com`),
		regexp.MustCompile(`douyu\.com`),
		regexp.MustCompile(`huya\.com`),
		regexp.MustCompile(`youtube\.com/live`),
	},
	GalleryDL: {
		regexp.MustCompile(`instagram\.com`),
		regexp.MustCompile(`reddit\.com`),
		regexp.MustCompile(`twitter\.com`),
		regexp.MustCompile(`x\.com`),
		regexp.MustCompile(`pinterest\.com`),
		regexp.MustCompile(`tumblr\.com`),
		regexp.MustCompile(`pixiv\.net`),
		regexp.MustCompile(`deviantart\.com`),
		regexp.MustCompile(`artstation\.com`),
	},
	Ripme: {
		regexp.MustCompile(`imgur\.com`),
		regexp.MustCompile(`8muses\.com`),
		regexp.MustCompile(`motherless\.com`),
		regexp.MustCompile(`xhamster\.com`),
		regexp.MustCompile(`imagefap\.com`),
	},
}

// MatchesAny reports whether url matches any pattern registered for name.
// Used by concrete engines to implement CanHandle.
func MatchesAny(name EngineName, url string) bool {
	for _, re := range handlerPatterns[name] {
		if re.MatchString(url) {
			return true
		}
	}
	return false
}
