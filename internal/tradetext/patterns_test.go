package tradetext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"18,700", 18700, true},
		{"30k", 30000, true},
		{"₹18.5k", 18500, true},
		{"32 thousand", 32000, true},
		{"18700/-", 18700, true},
		{"Rs. 999", 999, true},
		{"", 0, false},
		{"abc", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseAmount(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestQuantityRange(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		strict bool
		lo, hi int
		ok     bool
	}{
		{"plain range", "8/128 available 40-60 pcs @18700", true, 40, 60, true},
		{"to range", "10 to 20 units", false, 10, 20, true},
		{"descending pair", "60 to 40 units", false, 0, 0, false},
		{"descending pair strict", "60 to 40 units", true, 0, 0, false},
		{"equal ends", "10-10 pcs", false, 10, 10, true},
		{"equal ends strict", "10-10 pcs", true, 0, 0, false},
		{"storage half of a variant", "S24 ultra 12/256 - 50 pcs - 95000", false, 0, 0, false},
		{"variant then real range", "12/256 - 50-60 pcs", false, 50, 60, true},
		{"single quantity", "need 50 pcs", false, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi, ok := QuantityRange(tt.text, tt.strict)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.lo, lo)
			assert.Equal(t, tt.hi, hi)
		})
	}
}

func TestVariantQuantityIsSingle(t *testing.T) {
	text := "S24 ultra 12/256 - 50 pcs - 95000"

	_, _, ok := QuantityRange(text, false)
	require.False(t, ok)

	v, ok := Quantity(text)
	require.True(t, ok)
	assert.Equal(t, 50, v)
}

func TestQuantity(t *testing.T) {
	v, ok := Quantity("need 50 pcs urgently")
	require.True(t, ok)
	assert.Equal(t, 50, v)

	v, ok = Quantity("qty: 20")
	require.True(t, ok)
	assert.Equal(t, 20, v)

	_, ok = Quantity("iphone 13 128gb")
	assert.False(t, ok)
}

func TestPriceRange(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Range
		ok   bool
	}{
		{"rupee k suffixes", "₹18k-19k", Range{Min: 18000, Max: 19000}, true},
		{"shared k suffix", "30-32k", Range{Min: 30000, Max: 32000}, true},
		{"bare thousands", "18700 to 18900", Range{Min: 18700, Max: 18900}, true},
		{"quantity range", "40-60 pcs", Range{}, false},
		{"small bare numbers", "8-12", Range{}, false},
		{"split phone number", "call 98765-43210 for 8/128 A15 stock", Range{}, false},
		{"split phone number 4-6", "9876-543210", Range{}, false},
		{"descending pair", "₹19000-18000", Range{}, false},
		{"storage half of a variant", "12/256 - 95000", Range{}, false},
		{"prefixed long numbers", "₹98765-99999", Range{Min: 98765, Max: 99999}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PriceRange(tt.text, 100, true)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPriceRangeNonStrict(t *testing.T) {
	_, ok := PriceRange("19k-18k", 100, false)
	assert.False(t, ok, "descending pairs are not reordered")

	got, ok := PriceRange("@18700-18700", 100, false)
	require.True(t, ok)
	assert.Equal(t, Range{Min: 18700, Max: 18700}, got)
}

func TestPrice(t *testing.T) {
	v, ok := Price("8/128 available 40-60 pcs @18700", 100)
	require.True(t, ok)
	assert.Equal(t, 18700.0, v)

	v, ok = Price("price: 30k", 100)
	require.True(t, ok)
	assert.Equal(t, 30000.0, v)

	_, ok = Price("call 9876543210", 100)
	assert.False(t, ok, "bare numbers are not prices")

	_, ok = Price("₹50", 100)
	assert.False(t, ok, "amounts at or below the minimum are noise")
}

func TestVariants(t *testing.T) {
	got := Variants("8/128 available")
	assert.Equal(t, []Variant{{RAM: 8, Storage: 128}}, got)

	got = Variants("S23 8GB+256GB")
	require.NotEmpty(t, got)
	assert.Equal(t, Variant{RAM: 8, Storage: 256}, got[0])

	got = Variants("iphone 15 1tb")
	assert.Equal(t, []Variant{{Storage: 1024}}, got)
}
