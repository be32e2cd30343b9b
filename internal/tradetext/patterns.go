// Package tradetext extracts quantities, prices and memory variants from
// free-form wholesale phone trade chatter.
package tradetext

import (
	"regexp"
	"strconv"
	"strings"
)

const qtyUnits = `pcs|pc|pieces|piece|units|unit|nos|sets|set|qty`

var (
	quantityRangeRe = regexp.MustCompile(`(?i)\b(\d{1,6})\s*(?:-|–|to)\s*(\d{1,6})\s*(?:` + qtyUnits + `)\b`)
	quantityRe      = regexp.MustCompile(`(?i)\b(\d{1,6})\s*(?:` + qtyUnits + `)\b`)
	qtyLabelRe      = regexp.MustCompile(`(?i)\bqty\s*[:\-=]?\s*(\d{1,6})\b`)
	qtyUnitPrefixRe = regexp.MustCompile(`(?i)^\s*(?:` + qtyUnits + `)\b`)

	amount = `(\d[\d,]*(?:\.\d+)?)`

	priceRangeRe = regexp.MustCompile(`(?i)(₹|\brs\.?|\binr|\$|@)?\s*` + amount + `\s*(k\b|thousand\b)?\s*(?:-|–|\bto\b)\s*(?:₹|\brs\.?|\binr|\$)?\s*` + amount + `\s*(k\b|thousand\b)?`)
	priceRe      = regexp.MustCompile(`(?i)(₹|\brs\.?|\binr|\$|@|\bprice\s*[:\-=]?|\brate\s*[:\-=]?)?\s*` + amount + `\s*(k\b|thousand\b|/-|rs\b|inr\b)?`)

	variantRe     = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(?:gb)?\s*(?:ram)?\s*[/\-:+]\s*(\d{1,4})\s*(gb|tb)?\b`)
	storageOnlyRe = regexp.MustCompile(`(?i)\b(\d{1,4})\s*(gb|tb)\b`)
)

// Range is an inclusive numeric range
type Range struct {
	Min float64
	Max float64
}

// Variant is a RAM/storage pair in gigabytes. RAM is 0 when only storage was found.
type Variant struct {
	RAM     int
	Storage int
}

// ParseAmount parses numbers like "18,700", "18.5k", "₹30k", "32 thousand" or "18700/-"
func ParseAmount(s string) (float64, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, prefix := range []string{"₹", "rs.", "rs", "inr", "$", "@"} {
		s = strings.TrimPrefix(s, prefix)
	}
	s = strings.TrimSpace(strings.TrimSuffix(s, "/-"))
	mult := 1.0
	switch {
	case strings.HasSuffix(s, "thousand"):
		mult = 1000
		s = strings.TrimSuffix(s, "thousand")
	case strings.HasSuffix(s, "k"):
		mult = 1000
		s = strings.TrimSuffix(s, "k")
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v * mult, true
}

// QuantityRange finds "N-M pcs" or "N to M units". Descending pairs are dropped, and
// with strict set so are pairs whose ends are equal. A range whose first number
// closes a variant token, as the 256 in "12/256 - 50 pcs", is not a range.
func QuantityRange(text string, strict bool) (int, int, bool) {
	for _, idx := range quantityRangeRe.FindAllStringSubmatchIndex(text, -1) {
		if closesVariant(text, idx[2]) {
			continue
		}
		lo, err1 := strconv.Atoi(text[idx[2]:idx[3]])
		hi, err2 := strconv.Atoi(text[idx[4]:idx[5]])
		if err1 != nil || err2 != nil {
			continue
		}
		if lo > hi || (strict && lo == hi) {
			continue
		}
		return lo, hi, true
	}
	return 0, 0, false
}

// Quantity finds a single "N pcs" or "qty: N"
func Quantity(text string) (int, bool) {
	if m := quantityRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			return v, true
		}
	}
	if m := qtyLabelRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			return v, true
		}
	}
	return 0, false
}

// PriceRange finds a price range such as "₹18k-19k", "30-32k" or "18700 to 18900".
// Bare ranges need both ends of at least 1000 and must not look like a split phone
// number, and ranges followed by a quantity unit are never prices. Both ends must
// exceed minPrice. Descending pairs are dropped, and with strict set so are equal ends.
func PriceRange(text string, minPrice float64, strict bool) (Range, bool) {
	for _, idx := range priceRangeRe.FindAllStringSubmatchIndex(text, -1) {
		if qtyUnitPrefixRe.MatchString(text[idx[1]:]) || closesVariant(text, idx[4]) {
			continue
		}
		prefix := group(text, idx, 1)
		loMult, hiMult := group(text, idx, 3), group(text, idx, 5)
		loRaw, hiRaw := group(text, idx, 2), group(text, idx, 4)
		lo, ok1 := ParseAmount(loRaw)
		hi, ok2 := ParseAmount(hiRaw)
		if !ok1 || !ok2 {
			continue
		}
		if prefix == "" && loMult == "" && hiMult == "" {
			if lo < 1000 || hi < 1000 || splitPhone(loRaw, hiRaw) {
				continue
			}
		}
		if loMult != "" {
			lo *= 1000
		}
		if hiMult != "" {
			hi *= 1000
			if loMult == "" && lo*1000 <= hi {
				lo *= 1000
			}
		} else if loMult != "" && hi*1000 >= lo {
			hi *= 1000
		}
		if lo <= minPrice || hi <= minPrice {
			continue
		}
		if lo > hi || (strict && lo == hi) {
			continue
		}
		return Range{Min: lo, Max: hi}, true
	}
	return Range{}, false
}

// Price finds a single price. A bare number only counts as a price when it has a
// currency or "@" prefix, or a "k", "thousand", "/-" or currency suffix. Values at or
// below minPrice are skipped as noise.
func Price(text string, minPrice float64) (float64, bool) {
	for _, idx := range priceRe.FindAllStringSubmatchIndex(text, -1) {
		prefix, suffix := group(text, idx, 1), group(text, idx, 3)
		if prefix == "" && suffix == "" {
			continue
		}
		if qtyUnitPrefixRe.MatchString(text[idx[1]:]) {
			continue
		}
		raw := group(text, idx, 2)
		if s := strings.ToLower(suffix); s == "k" || s == "thousand" {
			raw += s
		}
		v, ok := ParseAmount(raw)
		if !ok || v <= minPrice {
			continue
		}
		return v, true
	}
	return 0, false
}

// Variants returns every "ram/storage" pair in text followed by storage-only
// mentions such as "128GB", in order of appearance. Values are not validated.
func Variants(text string) []Variant {
	var out []Variant
	for _, m := range variantRe.FindAllStringSubmatch(text, -1) {
		ram, err1 := strconv.Atoi(m[1])
		storage, err2 := strconv.Atoi(m[2])
		if err1 != nil || err2 != nil {
			continue
		}
		if strings.EqualFold(m[3], "tb") {
			storage *= 1024
		}
		out = append(out, Variant{RAM: ram, Storage: storage})
	}
	for _, m := range storageOnlyRe.FindAllStringSubmatch(text, -1) {
		storage, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if strings.EqualFold(m[2], "tb") {
			storage *= 1024
		}
		out = append(out, Variant{Storage: storage})
	}
	return out
}

// closesVariant reports whether the number starting at pos is the second half of
// a ram/storage style token, i.e. it directly follows '/', ':' or '+'
func closesVariant(text string, pos int) bool {
	before := strings.TrimRight(text[:pos], " \t")
	if before == "" {
		return false
	}
	switch before[len(before)-1] {
	case '/', ':', '+':
		return true
	}
	return false
}

// splitPhone reports whether two bare digit runs together form a 10 digit number,
// as in "98765-43210"
func splitPhone(lo, hi string) bool {
	for _, s := range []string{lo, hi} {
		if strings.Trim(s, "0123456789") != "" {
			return false
		}
	}
	return len(lo)+len(hi) == 10
}

func group(text string, idx []int, n int) string {
	if idx[2*n] < 0 {
		return ""
	}
	return strings.TrimSpace(text[idx[2*n]:idx[2*n+1]])
}
