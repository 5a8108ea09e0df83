package classify

import "strings"

// SeverityLevel of an article, derived from keyword heuristics.
type SeverityLevel string

const (
	SeverityCritical SeverityLevel = "critical"
	SeverityHigh     SeverityLevel = "high"
	SeverityMedium   SeverityLevel = "medium"
	SeverityLow      SeverityLevel = "low"
	SeverityInfo     SeverityLevel = "info"
)

// ParseSeverity maps a string to a known level, defaulting to info.
func ParseSeverity(s string) SeverityLevel {
	switch SeverityLevel(strings.ToLower(s)) {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return SeverityLevel(strings.ToLower(s))
	}
	return SeverityInfo
}

// severityRules are evaluated top to bottom; the first group with any
// match wins.
var severityRules = []struct {
	level    SeverityLevel
	keywords []string
}{
	{SeverityCritical, []string{"critical", "emergency", "zero-day", "ransomware", "major breach"}},
	{SeverityHigh, []string{"high severity", "vulnerability", "exploit", "breach", "attack"}},
	{SeverityMedium, []string{"medium severity", "update", "patch", "security issue"}},
	{SeverityLow, []string{"low severity", "minor", "informational"}},
}

// categoryRules are independent of each other: an article collects every
// slug whose keyword group matches.
var categoryRules = []struct {
	slug     string
	keywords []string
}{
	{"vulnerabilities", []string{"vulnerability", "cve", "exploit", "zero-day", "patch"}},
	{"data-breaches", []string{"breach", "leak", "exposed", "stolen", "compromised"}},
	{"malware", []string{"malware", "ransomware", "trojan", "virus", "botnet"}},
	{"security-tools", []string{"tool", "software", "solution", "platform", "scanner"}},
	{"best-practices", []string{"best practice", "guideline", "recommendation", "tips", "how to"}},
	{"threats", []string{"threat", "attack", "campaign", "actor", "apt"}},
}

// Severity classifies text into a severity level by case-insensitive
// substring matching against the ordered keyword groups.
func Severity(text string) SeverityLevel {
	lower := strings.ToLower(text)
	for _, rule := range severityRules {
		if matchAny(lower, rule.keywords) {
			return rule.level
		}
	}
	return SeverityInfo
}

// Categories returns the slugs of all category keyword groups matching the
// text. The slugs are candidates only: the caller resolves them against the
// stored taxonomy and applies the "general" fallback when nothing matches.
func Categories(text string) []string {
	lower := strings.ToLower(text)
	var slugs []string
	for _, rule := range categoryRules {
		if matchAny(lower, rule.keywords) {
			slugs = append(slugs, rule.slug)
		}
	}
	return slugs
}

func matchAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
