package youtube

import (
	"slices"
	"strings"
)

// PreferenceList orders language tags for an extraction: the caller's tag,
// then its base tag, then the fallback chain, without duplicates.
//
// The list is logged only. /get_transcript returns whatever track the
// scraped params encode, so the list does not select captions.
func PreferenceList(language string, fallback []string) []string {
	langs := make([]string, 0, len(fallback)+2)
	if language != "" {
		langs = append(langs, language)
		if base, _, found := strings.Cut(language, "-"); found && !slices.Contains(langs, base) {
			langs = append(langs, base)
		}
	}
	for _, l := range fallback {
		if !slices.Contains(langs, l) {
			langs = append(langs, l)
		}
	}
	return langs
}
