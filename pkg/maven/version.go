package maven

import (
	"strings"
	"unicode"
)

// Qualifier ranks. Unknown qualifiers sort after every known one and are
// ordered lexically among themselves.
var qualifierRank = map[string]int{
	"alpha":     0,
	"beta":      1,
	"milestone": 2,
	"rc":        3,
	"snapshot":  4,
	"":          5,
	"sp":        6,
}

const unknownQualifierRank = 7

var qualifierAliases = map[string]string{
	"a":       "alpha",
	"b":       "beta",
	"m":       "milestone",
	"cr":      "rc",
	"ga":      "",
	"final":   "",
	"release": "",
}

// preReleaseQualifiers disqualify a version from being a release.
var preReleaseQualifiers = map[string]bool{
	"alpha": true, "beta": true, "milestone": true, "rc": true, "snapshot": true,
}

type versionItem struct {
	numeric bool
	value   string // digits without leading zeros, or a normalized qualifier
}

// parseVersion splits a version into items on '.', '-' and transitions between
// digits and letters. Single-letter a/b/m expand to their qualifier only when
// directly followed by a digit ("1.0a1" is alpha 1, "1.0-a" is qualifier "a").
func parseVersion(v string) []versionItem {
	v = strings.ToLower(strings.TrimSpace(v))
	var items []versionItem
	var buf strings.Builder
	digits := false

	flush := func(next rune) {
		if buf.Len() == 0 {
			return
		}
		s := buf.String()
		buf.Reset()
		if digits {
			s = strings.TrimLeft(s, "0")
			items = append(items, versionItem{numeric: true, value: s})
			return
		}
		if len(s) == 1 && !unicode.IsDigit(next) {
			items = append(items, versionItem{value: s})
			return
		}
		if alias, ok := qualifierAliases[s]; ok {
			s = alias
		}
		items = append(items, versionItem{value: s})
	}

	for _, r := range v {
		switch {
		case r == '.' || r == '-':
			flush(r)
			digits = false
		case unicode.IsDigit(r):
			if !digits && buf.Len() > 0 {
				flush(r)
			}
			digits = true
			buf.WriteRune(r)
		default:
			if digits && buf.Len() > 0 {
				flush(r)
			}
			digits = false
			buf.WriteRune(r)
		}
	}
	flush(0)
	return items
}

// CompareVersions orders two versions by Maven precedence and returns -1, 0
// or +1.
//
// Numeric items compare numerically; qualifiers rank
// alpha < beta < milestone < rc < snapshot < (release) < sp < unknown.
// A numeric item beats any qualifier. Missing trailing items count as zero
// or as the release qualifier, so "1" == "1.0" == "1-ga".
func CompareVersions(v1, v2 string) int {
	a, b := parseVersion(v1), parseVersion(v2)
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var c int
		switch {
		case i >= len(a):
			c = -compareToMissing(b[i])
		case i >= len(b):
			c = compareToMissing(a[i])
		default:
			c = compareItems(a[i], b[i])
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

func compareToMissing(it versionItem) int {
	if it.numeric {
		if it.value == "" {
			return 0
		}
		return 1
	}
	return compareQualifiers(it.value, "")
}

func compareItems(a, b versionItem) int {
	switch {
	case a.numeric && b.numeric:
		return compareNumeric(a.value, b.value)
	case a.numeric:
		return 1
	case b.numeric:
		return -1
	}
	return compareQualifiers(a.value, b.value)
}

func compareNumeric(a, b string) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func compareQualifiers(a, b string) int {
	ra, okA := qualifierRank[a]
	rb, okB := qualifierRank[b]
	if !okA {
		ra = unknownQualifierRank
	}
	if !okB {
		rb = unknownQualifierRank
	}
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	if !okA && !okB {
		return strings.Compare(a, b)
	}
	return 0
}

// IsReleaseVersion reports whether v carries no pre-release qualifier.
// Unrecognized qualifiers such as "jre" or "android" do not disqualify it.
func IsReleaseVersion(v string) bool {
	if v == "" || v == VersionRelease || v == VersionLatest {
		return false
	}
	for _, it := range parseVersion(v) {
		if !it.numeric && preReleaseQualifiers[it.value] {
			return false
		}
	}
	return true
}

// MaxVersion returns the highest version by [CompareVersions], or "" when
// versions is empty.
func MaxVersion(versions []string) string {
	var best string
	for _, v := range versions {
		if v == "" {
			continue
		}
		if best == "" || CompareVersions(v, best) > 0 {
			best = v
		}
	}
	return best
}
