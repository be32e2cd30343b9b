package normalizer

import (
	"strings"
	"unicode"
)

// CanonicalBrands is the reference vocabulary brands are normalized to
var CanonicalBrands = []string{
	"Apple", "Samsung", "Xiaomi", "Redmi", "Poco", "OnePlus", "Oppo", "Vivo",
	"Realme", "iQOO", "Motorola", "Nokia", "Google", "Nothing", "Infinix",
	"Tecno", "Itel", "Lava", "Honor", "Huawei", "Asus", "Sony", "Lenovo",
	"Micromax", "HMD",
}

// shorthand maps dealer abbreviations and product lines to canonical brands
var shorthand = map[string]string{
	"iphone":  "Apple",
	"ip":      "Apple",
	"apl":     "Apple",
	"sam":     "Samsung",
	"ss":      "Samsung",
	"sung":    "Samsung",
	"galaxy":  "Samsung",
	"mi":      "Xiaomi",
	"mii":     "Xiaomi",
	"rdm":     "Redmi",
	"op":      "OnePlus",
	"oneplus": "OnePlus",
	"1plus":   "OnePlus",
	"1+":      "OnePlus",
	"moto":    "Motorola",
	"pixel":   "Google",
	"cmf":     "Nothing",
	"iqoo":    "iQOO",
}

// brandKey lowercases s and drops everything but letters and digits
func brandKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

type brandMatcher struct {
	maxDistance int
	keys        []string
	canonical   map[string]string
}

func newBrandMatcher(maxDistance int) *brandMatcher {
	m := &brandMatcher{
		maxDistance: maxDistance,
		keys:        make([]string, 0, len(CanonicalBrands)),
		canonical:   make(map[string]string, len(CanonicalBrands)+len(shorthand)),
	}
	for _, b := range CanonicalBrands {
		k := brandKey(b)
		m.keys = append(m.keys, k)
		m.canonical[k] = b
	}
	for k, b := range shorthand {
		m.canonical[brandKey(k)] = b
	}
	return m
}

// Match returns the canonical brand for s and whether one was found. A fuzzy
// match needs a distance within maxDistance and a unique closest brand.
func (m *brandMatcher) Match(s string) (string, bool) {
	key := brandKey(s)
	if key == "" {
		return "", false
	}
	if b, ok := m.canonical[key]; ok {
		return b, true
	}

	best, bestDist, tied := "", m.maxDistance+1, false
	for _, k := range m.keys {
		d := osaDistance(key, k)
		switch {
		case d < bestDist:
			best, bestDist, tied = k, d, false
		case d == bestDist:
			tied = true
		}
	}
	if best == "" || tied || bestDist > m.maxDistance {
		return "", false
	}
	return m.canonical[best], true
}

// osaDistance is the optimal string alignment distance: Levenshtein plus
// transposition of adjacent runes
func osaDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	d := make([][]int, la+1)
	for i := range d {
		d[i] = make([]int, lb+1)
		d[i][0] = i
	}
	for j := 0; j <= lb; j++ {
		d[0][j] = j
	}

	for i := 1; i <= la; i++ {
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			d[i][j] = min(d[i-1][j]+1, d[i][j-1]+1, d[i-1][j-1]+cost)
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				d[i][j] = min(d[i][j], d[i-2][j-2]+1)
			}
		}
	}
	return d[la][lb]
}
