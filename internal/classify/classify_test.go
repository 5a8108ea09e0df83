package classify

import (
	"sort"
	"testing"
)

func TestSeverityPrecedence(t *testing.T) {
	// Text matching both critical ("zero-day") and high ("exploit") groups
	// must resolve to critical.
	if got := Severity("New zero-day exploit in the wild"); got != SeverityCritical {
		t.Fatalf("Severity = %s, want critical", got)
	}
}

func TestSeverityLevels(t *testing.T) {
	cases := []struct {
		text string
		want SeverityLevel
	}{
		{"Emergency fix released for ransomware wave", SeverityCritical},
		{"Vulnerability disclosed in mail server", SeverityHigh},
		{"Vendor ships monthly update", SeverityMedium},
		{"Minor configuration change announced", SeverityLow},
		{"Conference schedule published", SeverityInfo},
		{"", SeverityInfo},
	}
	for _, c := range cases {
		if got := Severity(c.text); got != c.want {
			t.Errorf("Severity(%q) = %s, want %s", c.text, got, c.want)
		}
	}
}

func TestSeverityCaseInsensitive(t *testing.T) {
	if got := Severity("CRITICAL flaw in RANSOMWARE decryptor"); got != SeverityCritical {
		t.Fatalf("Severity = %s, want critical", got)
	}
}

func TestCategoriesNonExclusive(t *testing.T) {
	got := Categories("ransomware exploit leak")
	sort.Strings(got)

	want := map[string]bool{"malware": true, "vulnerabilities": true, "data-breaches": true}
	for slug := range want {
		found := false
		for _, g := range got {
			if g == slug {
				found = true
			}
		}
		if !found {
			t.Errorf("Categories missing %q, got %v", slug, got)
		}
	}
}

func TestCategoriesNoMatch(t *testing.T) {
	if got := Categories("quarterly earnings report"); len(got) != 0 {
		t.Fatalf("Categories = %v, want none", got)
	}
}

func TestParseSeverity(t *testing.T) {
	if got := ParseSeverity("HIGH"); got != SeverityHigh {
		t.Fatalf("ParseSeverity(HIGH) = %s", got)
	}
	if got := ParseSeverity("bogus"); got != SeverityInfo {
		t.Fatalf("ParseSeverity(bogus) = %s, want info", got)
	}
}
