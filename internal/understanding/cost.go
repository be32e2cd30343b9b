package understanding

import (
	"strings"
)

// Pricing per 1M tokens in USD
type modelPrice struct {
	InputPer1M       float64
	CachedInputPer1M float64
	OutputPer1M      float64
}

var modelPricing = map[string]modelPrice{
	"gpt-4o-mini":       {InputPer1M: 0.15, CachedInputPer1M: 0.075, OutputPer1M: 0.60},
	"gpt-4o":            {InputPer1M: 2.50, CachedInputPer1M: 1.25, OutputPer1M: 10.00},
	"gpt-4.1-mini":      {InputPer1M: 0.40, CachedInputPer1M: 0.10, OutputPer1M: 1.60},
	"gpt-4.1-nano":      {InputPer1M: 0.10, CachedInputPer1M: 0.025, OutputPer1M: 0.40},
	"claude-3-haiku":    {InputPer1M: 0.25, CachedInputPer1M: 0.03, OutputPer1M: 1.25},
	"claude-3-5-haiku":  {InputPer1M: 0.80, CachedInputPer1M: 0.08, OutputPer1M: 4.00},
	"claude-3-5-sonnet": {InputPer1M: 3.00, CachedInputPer1M: 0.30, OutputPer1M: 15.00},
	"gemini-1.5-flash":  {InputPer1M: 0.075, CachedInputPer1M: 0.01875, OutputPer1M: 0.30},
	"gemini-2.0-flash":  {InputPer1M: 0.10, CachedInputPer1M: 0.025, OutputPer1M: 0.40},
}

// lookupPrice matches model against the table by longest contained key, so that
// dated or region-prefixed ids (gpt-4o-mini-2024-07-18, us.anthropic.claude-3-haiku-...) resolve
func lookupPrice(model string) (modelPrice, bool) {
	model = strings.ToLower(model)
	if p, ok := modelPricing[model]; ok {
		return p, true
	}
	best := ""
	for key := range modelPricing {
		if strings.Contains(model, key) && len(key) > len(best) {
			best = key
		}
	}
	if best == "" {
		return modelPrice{}, false
	}
	return modelPricing[best], true
}

// CalculateCost calculates estimated cost for token usage. Cached prompt tokens
// are billed at the cached rate. Unknown models cost 0.
func CalculateCost(model string, promptTokens, completionTokens, cachedTokens int) float64 {
	pricing, ok := lookupPrice(model)
	if !ok {
		return 0
	}

	if cachedTokens > promptTokens {
		cachedTokens = promptTokens
	}
	uncached := promptTokens - cachedTokens

	inputCost := float64(uncached) / 1_000_000 * pricing.InputPer1M
	cachedCost := float64(cachedTokens) / 1_000_000 * pricing.CachedInputPer1M
	outputCost := float64(completionTokens) / 1_000_000 * pricing.OutputPer1M

	return inputCost + cachedCost + outputCost
}
