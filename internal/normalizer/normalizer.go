// Package normalizer canonicalizes brands, fills RAM/storage from variant text
// and settles quantity and price ranges on validated records.
package normalizer

import (
	"github.com/mikey/llm-lead-router/internal/core"
	"github.com/mikey/llm-lead-router/internal/tradetext"
	"go.uber.org/zap"
)

// Config holds the normalizer limits
type Config struct {
	MaxEditDistance int
	MaxRAMGB        int
	ValidStorageGB  []int
	MinPrice        float64
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		MaxEditDistance: 2,
		MaxRAMGB:        24,
		ValidStorageGB:  []int{16, 32, 64, 128, 256, 512, 1024},
		MinPrice:        100,
	}
}

// Normalizer normalizes classification records
type Normalizer struct {
	brands       *brandMatcher
	maxRAM       int
	validStorage map[int]bool
	minPrice     float64
	logger       *zap.Logger
}

// New creates a new Normalizer
func New(cfg Config, logger *zap.Logger) *Normalizer {
	valid := make(map[int]bool, len(cfg.ValidStorageGB))
	for _, s := range cfg.ValidStorageGB {
		valid[s] = true
	}
	return &Normalizer{
		brands:       newBrandMatcher(cfg.MaxEditDistance),
		maxRAM:       cfg.MaxRAMGB,
		validStorage: valid,
		minPrice:     cfg.MinPrice,
		logger:       logger,
	}
}

// Normalize updates rec in place and returns it
func (n *Normalizer) Normalize(rec *core.ClassificationRecord) *core.ClassificationRecord {
	n.normalizeBrand(rec)

	if rec.MessageType != core.MessageNoise {
		n.fillVariant(rec)
		n.retryRanges(rec)
	}

	rec.Quantity, rec.QuantityMin, rec.QuantityMax = settleRange(rec.Quantity, rec.QuantityMin, rec.QuantityMax)
	rec.Price, rec.PriceMin, rec.PriceMax = settleRange(rec.Price, rec.PriceMin, rec.PriceMax)

	return rec
}

// normalizeBrand replaces the brand with its canonical spelling. Unmatched brands
// are left exactly as they were.
func (n *Normalizer) normalizeBrand(rec *core.ClassificationRecord) {
	if rec.Brand == nil {
		return
	}
	canonical, ok := n.brands.Match(*rec.Brand)
	if !ok {
		return
	}
	if canonical != *rec.Brand {
		n.logger.Debug("Normalized brand",
			zap.String("from", *rec.Brand),
			zap.String("to", canonical))
	}
	rec.Brand = &canonical
}

// fillVariant sets missing RAM and storage from the variant, then the model, then
// the item's own text
func (n *Normalizer) fillVariant(rec *core.ClassificationRecord) {
	sources := []string{deref(rec.Variant), deref(rec.Model), rec.ItemSource()}
	for _, text := range sources {
		if rec.RAM != nil && rec.Storage != nil {
			return
		}
		if text == "" {
			continue
		}
		for _, v := range tradetext.Variants(text) {
			if !n.validStorage[v.Storage] {
				continue
			}
			if v.RAM != 0 {
				if v.RAM < 1 || v.RAM > n.maxRAM {
					continue
				}
				if rec.RAM == nil {
					rec.RAM = intPtr(v.RAM)
				}
			}
			if rec.Storage == nil {
				rec.Storage = intPtr(v.Storage)
			}
			break
		}
	}
}

// retryRanges looks for strict min<max ranges when neither a scalar nor a pair was resolved
func (n *Normalizer) retryRanges(rec *core.ClassificationRecord) {
	texts := []string{deref(rec.Variant), rec.ItemSource()}

	if rec.Quantity == nil && rec.QuantityMin == nil && rec.QuantityMax == nil {
		for _, text := range texts {
			if lo, hi, ok := tradetext.QuantityRange(text, true); ok {
				rec.QuantityMin, rec.QuantityMax = intPtr(lo), intPtr(hi)
				break
			}
		}
	}

	if rec.Price == nil && rec.PriceMin == nil && rec.PriceMax == nil {
		for _, text := range texts {
			if r, ok := tradetext.PriceRange(text, n.minPrice, true); ok {
				rec.PriceMin, rec.PriceMax = &r.Min, &r.Max
				break
			}
		}
	}
}

// settleRange makes scalar and range agree: a proper range clears the scalar, a
// lone scalar or a partial or degenerate pair becomes min == scalar == max
func settleRange[T int | float64](scalar, lo, hi *T) (*T, *T, *T) {
	switch {
	case lo != nil && hi != nil:
		a, b := *lo, *hi
		if a > b {
			a, b = b, a
		}
		if a < b {
			return nil, &a, &b
		}
		return collapse(a)
	case lo != nil:
		return collapse(*lo)
	case hi != nil:
		return collapse(*hi)
	case scalar != nil:
		return collapse(*scalar)
	}
	return nil, nil, nil
}

func collapse[T int | float64](v T) (*T, *T, *T) {
	s, lo, hi := v, v, v
	return &s, &lo, &hi
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intPtr(v int) *int {
	return &v
}
