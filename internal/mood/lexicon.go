package mood

import "strings"

// MaxGenres caps every resolution.
const MaxGenres = 3

// cue is a scene shortcut: any trigger found in the text returns genres directly.
type cue struct {
	name     string
	triggers []string
	genres   []string
}

// entry is one lexicon label. Entries are scored in declaration order and the first
// entry with the strictly highest score wins.
type entry struct {
	label    string
	triggers []string
	genres   []string
}

// sceneCues are checked in order before lexicon scoring; the first match wins.
var sceneCues = []cue{
	{
		name:     "winter",
		triggers: []string{"fireplace", "snow", "blanket", "cocoa", "candle", "knit", "sweater", "winter"},
		genres:   []string{"acoustic", "singer-songwriter", "indie", "folk", "chill", "piano"},
	},
	{
		name:     "rain",
		triggers: []string{"rain", "rainy", "monsoon"},
		genres:   []string{"lo-fi", "indie", "chill", "ambient", "piano"},
	},
	{
		name:     "workout",
		triggers: []string{"gym", "lift", "sprint", "pr", "max", "preworkout"},
		genres:   []string{"edm", "electro", "hip-hop", "dance", "pop"},
	},
	{
		name:     "nightlife",
		triggers: []string{"club", "night out", "party", "rave", "dj"},
		genres:   []string{"dance", "edm", "house", "pop", "hip-hop"},
	},
}

var lexicon = []entry{
	{
		label:    "cozy",
		triggers: []string{"fireplace", "blanket", "candle", "warm", "cocoa", "snow", "reading", "rain", "chai"},
		genres:   []string{"acoustic", "singer-songwriter", "indie", "folk", "chill", "lo-fi", "piano"},
	},
	{
		label:    "focus",
		triggers: []string{"study", "focus", "deep work", "flow", "concentrate", "essay", "reading"},
		genres:   []string{"lo-fi", "ambient", "piano", "classical", "chill"},
	},
	{
		label:    "party",
		triggers: []string{"club", "dancefloor", "party", "friday", "dj", "festival", "rave", "dance"},
		genres:   []string{"dance", "edm", "house", "pop", "hip-hop"},
	},
	{
		label:    "hype",
		triggers: []string{"gym", "workout", "max", "pr", "anthem", "hype", "run"},
		genres:   []string{"edm", "electro", "dance", "hip-hop", "pop"},
	},
	{
		label:    "sad",
		triggers: []string{"heartbreak", "alone", "cry", "melancholy", "nostalgic", "blue", "sad"},
		genres:   []string{"indie", "indie-pop", "singer-songwriter", "alt-rock", "pop"},
	},
	{
		label:    "romantic",
		triggers: []string{"date", "romantic", "kiss", "slow", "candlelight", "valentine", "love"},
		genres:   []string{"r-n-b", "soul", "latin", "pop", "indie-pop"},
	},
	{
		label:    "dark",
		triggers: []string{"noir", "brooding", "night", "storm", "industrial"},
		genres:   []string{"industrial", "electro", "rock", "trap", "alt-rock"},
	},
	{
		label:    "rage",
		triggers: []string{"rage", "sprint", "angry", "angry gym", "metal", "mosh", "rock", "hard rock"},
		genres:   []string{"rock", "metal", "trap", "alt-rock", "edm"},
	},
}

var defaultGenres = []string{"pop", "indie", "singer-songwriter"}

// ParseVibe maps free text to at most [MaxGenres] seed genres.
//
// Matching is by substring on the lowercased text: scene cues first, then the label with the most
// trigger hits, then the default genres.
func ParseVibe(text string) []string {
	s := normalize(text)

	for _, c := range sceneCues {
		if containsAny(s, c.triggers) {
			return head(c.genres)
		}
	}

	if label, ok := bestLabel(s); ok {
		return head(label.genres)
	}

	return head(defaultGenres)
}

// bestLabel scores every lexicon entry and returns the first entry with the highest non-zero score.
func bestLabel(s string) (entry, bool) {
	var (
		best      entry
		bestScore int
	)
	for _, e := range lexicon {
		score := 0
		for _, w := range e.triggers {
			if strings.Contains(s, w) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = e, score
		}
	}
	return best, bestScore > 0
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// head returns a copy of at most the first MaxGenres genres.
func head(genres []string) []string {
	n := min(len(genres), MaxGenres)
	out := make([]string, n)
	copy(out, genres[:n])
	return out
}
