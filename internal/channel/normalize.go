package channel

import (
	"regexp"
	"strings"
)

// UncategorizedGroup is the bucket for channels without a usable group title.
const UncategorizedGroup = "Uncategorized"

// qualitySuffixes are trailing words stripped during name normalization.
// Latin tokens must appear as the final word; CJK tokens are stripped even
// when glued to the name without a separator ("CCTV1高清").
var (
	latinQualitySuffixes = map[string]bool{
		"hd": true, "sd": true, "fhd": true, "4k": true,
		"uhd": true, "h264": true, "h265": true, "hevc": true,
	}
	cjkQualitySuffixes = []string{"高清", "标清", "超清", "蓝光"}

	separatorRuns = regexp.MustCompile(`[\s_\-+]+`)
)

// NormalizeName canonicalizes a channel display name for matching: it
// lowercases, collapses whitespace/underscore/dash/plus runs to a single
// space, trims, and strips trailing quality suffixes. It is pure and total.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = separatorRuns.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)

	for {
		stripped := stripQualitySuffix(name)
		if stripped == name {
			return name
		}
		name = stripped
	}
}

func stripQualitySuffix(name string) string {
	if idx := strings.LastIndex(name, " "); idx >= 0 {
		if latinQualitySuffixes[name[idx+1:]] {
			return strings.TrimSpace(name[:idx])
		}
	}
	for _, suffix := range cjkQualitySuffixes {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSpace(strings.TrimSuffix(name, suffix))
		}
	}
	return name
}

// GroupRule maps group titles matching Pattern to a canonical Bucket name.
type GroupRule struct {
	Pattern string
	Bucket  string
}

// GroupMapper folds raw group titles into canonical buckets. Rules are
// evaluated in order; the first match wins. Unmatched input passes through
// trimmed, and empty input maps to UncategorizedGroup.
type GroupMapper struct {
	rules []compiledGroupRule
}

type compiledGroupRule struct {
	re     *regexp.Regexp
	bucket string
}

// NewGroupMapper compiles the given rules. Invalid patterns are rejected.
func NewGroupMapper(rules []GroupRule) (*GroupMapper, error) {
	m := &GroupMapper{rules: make([]compiledGroupRule, 0, len(rules))}
	for _, r := range rules {
		re, err := regexp.Compile("(?i)" + r.Pattern)
		if err != nil {
			return nil, err
		}
		m.rules = append(m.rules, compiledGroupRule{re: re, bucket: r.Bucket})
	}
	return m, nil
}

// DefaultGroupRules covers the keyword families commonly seen in the wild,
// in both English and Chinese playlists.
func DefaultGroupRules() []GroupRule {
	return []GroupRule{
		{Pattern: `央视|cctv`, Bucket: "CCTV"},
		{Pattern: `卫视`, Bucket: "Satellite"},
		{Pattern: `港|澳|台`, Bucket: "HK/MO/TW"},
		{Pattern: `少儿|少女|动画|卡通|kids|children|cartoon`, Bucket: "Kids"},
		{Pattern: `新闻|资讯|news`, Bucket: "News"},
		{Pattern: `体育|运动|sport`, Bucket: "Sports"},
		{Pattern: `影视|电影|剧场|movie|cinema|film`, Bucket: "Movies"},
		{Pattern: `纪录|记录|探索|documentar|discovery`, Bucket: "Documentary"},
	}
}

// DefaultGroupMapper returns a mapper built from DefaultGroupRules.
func DefaultGroupMapper() *GroupMapper {
	m, err := NewGroupMapper(DefaultGroupRules())
	if err != nil {
		// the default rules are compile-checked by tests
		panic(err)
	}
	return m
}

// Normalize folds a raw group title into its canonical bucket.
func (m *GroupMapper) Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return UncategorizedGroup
	}
	for _, r := range m.rules {
		if r.re.MatchString(raw) {
			return r.bucket
		}
	}
	return raw
}
