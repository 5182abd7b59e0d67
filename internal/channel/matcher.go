package channel

import "strings"

// MatchPolicy selects how a candidate is matched against existing channels.
type MatchPolicy string

const (
	// MatchByTVGID matches on exact equality of non-empty tvg-id values.
	MatchByTVGID MatchPolicy = "tvg_id"
	// MatchByName matches by normalized name: exact within the same group
	// first, then fuzzy similarity against the whole set.
	MatchByName MatchPolicy = "name"
	// MatchByBoth tries tvg-id first and falls back to name matching.
	MatchByBoth MatchPolicy = "both"
)

// Valid reports whether p is one of the recognized policies.
func (p MatchPolicy) Valid() bool {
	switch p {
	case MatchByTVGID, MatchByName, MatchByBoth:
		return true
	}
	return false
}

// Candidate is the identity of an incoming channel, with name and group
// already normalized.
type Candidate struct {
	TVGID           string
	NormalizedName  string
	NormalizedGroup string
}

// Index is the lookup surface the matcher needs; the channel store
// implements it. ByNameGroup must be an exact lookup over normalized keys,
// and All is only consulted on the fuzzy path.
type Index interface {
	ByTVGID(tvgID string) (*Channel, bool)
	ByNameGroup(normalizedName, normalizedGroup string) (*Channel, bool)
	All() []*Channel
}

// Matcher decides whether a candidate refers to an already-known channel.
type Matcher struct {
	Policy    MatchPolicy
	Threshold float64
}

// Find returns the existing channel the candidate refers to, or false when
// the candidate is new. Fuzzy matching accepts the highest similarity score
// at or above the threshold; ties break to the lexicographically lowest id
// so repeated runs are deterministic.
func (m Matcher) Find(idx Index, cand Candidate) (*Channel, bool) {
	if m.Policy == MatchByTVGID || m.Policy == MatchByBoth {
		if cand.TVGID != "" {
			if ch, ok := idx.ByTVGID(cand.TVGID); ok {
				return ch, true
			}
		}
		if m.Policy == MatchByTVGID {
			return nil, false
		}
	}

	if ch, ok := idx.ByNameGroup(cand.NormalizedName, cand.NormalizedGroup); ok {
		return ch, true
	}

	var (
		best      *Channel
		bestScore float64
	)
	for _, ch := range idx.All() {
		score := Similarity(NormalizeName(ch.Name()), cand.NormalizedName)
		if score < m.Threshold {
			continue
		}
		if best == nil || score > bestScore || (score == bestScore && ch.ID() < best.ID()) {
			best = ch
			bestScore = score
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

// Similarity computes a Ratcliff/Obershelp matching-character ratio over two
// strings: twice the number of matching characters divided by the total
// number of characters. Identical strings score 1, disjoint strings 0.
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 1
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	matched := matchingCharacters(ra, rb)
	return 2 * float64(matched) / float64(len(ra)+len(rb))
}

// matchingCharacters finds the longest common substring and recurses on the
// pieces to its left and right, summing matched lengths.
func matchingCharacters(a, b []rune) int {
	ai, bi, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingCharacters(a[:ai], b[:bi])
	total += matchingCharacters(a[ai+size:], b[bi+size:])
	return total
}

func longestCommonSubstring(a, b []rune) (ai, bi, size int) {
	// row[j] is the length of the common suffix of a[:i+1] and b[:j+1]
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := range a {
		for j := range b {
			if a[i] == b[j] {
				cur[j+1] = prev[j] + 1
				if cur[j+1] > size {
					size = cur[j+1]
					ai = i - size + 1
					bi = j - size + 1
				}
			} else {
				cur[j+1] = 0
			}
		}
		prev, cur = cur, prev
	}
	return ai, bi, size
}

// EntryKey builds the exact-match key for a normalized (name, group) pair.
func EntryKey(normalizedName, normalizedGroup string) string {
	return strings.ToLower(normalizedName) + "\x00" + strings.ToLower(normalizedGroup)
}
