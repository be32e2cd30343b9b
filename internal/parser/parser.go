// Package parser turns the raw extraction envelope into line-item candidates,
// inferring missing prices and quantities from the message text.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mikey/llm-lead-router/internal/core"
	"github.com/mikey/llm-lead-router/internal/tradetext"
	"go.uber.org/zap"
)

// DefaultMinPrice is the value at or below which a bare number is not taken as a price
const DefaultMinPrice = 100

// Field names of the extraction schema
const (
	FieldIsBusiness  = "is_business_message"
	FieldMessageType = "message_type"
	FieldActorType   = "actor_type"
	FieldBrand       = "brand"
	FieldModel       = "model"
	FieldVariant     = "variant"
	FieldRAM         = "ram"
	FieldStorage     = "storage"
	FieldColors      = "colors"
	FieldPrice       = "price"
	FieldPriceMin    = "price_min"
	FieldPriceMax    = "price_max"
	FieldQuantity    = "quantity"
	FieldQuantityMin = "quantity_min"
	FieldQuantityMax = "quantity_max"
	FieldCondition   = "condition"
	FieldGST         = "gst"
	FieldDispatch    = "dispatch"
	FieldConfidence  = "confidence"
)

// envelope keys inherited by every item unless the item sets them
var envelopeDefaults = []string{
	FieldBrand,
	FieldCondition,
	FieldGST,
	FieldDispatch,
	FieldMessageType,
	FieldActorType,
	FieldConfidence,
	FieldIsBusiness,
}

// Parser parses raw extraction envelopes
type Parser struct {
	minPrice float64
	logger   *zap.Logger
}

// New creates a new Parser
func New(minPrice float64, logger *zap.Logger) *Parser {
	return &Parser{
		minPrice: minPrice,
		logger:   logger,
	}
}

// Parse returns one candidate per line item, or a single implicit candidate built
// from the envelope when it has no items. It never fails: an undecodable envelope
// yields one noise candidate carrying ParseError.
func (p *Parser) Parse(raw *core.RawExtraction) []core.Candidate {
	env, err := decodeEnvelope(raw.Text)
	if err != nil {
		p.logger.Warn("Failed to parse extraction envelope",
			zap.String("wa_message_id", raw.Source.WAMessageID),
			zap.Error(err))
		return []core.Candidate{noiseCandidate(raw, err)}
	}

	items := p.objectItems(env["items"], raw.Source)

	if len(items) == 0 {
		fields := make(map[string]any, len(env))
		for k, v := range env {
			if k == "items" || k == "source" {
				continue
			}
			fields[k] = v
		}
		if fields[FieldIsBusiness] == nil {
			fields[FieldIsBusiness] = false
		}
		p.resolve(fields, raw.RawText)
		return []core.Candidate{{
			Index:     0,
			ItemCount: 1,
			Fields:    fields,
			Source:    raw.Source,
			RawText:   raw.RawText,
			ItemText:  raw.RawText,
		}}
	}

	candidates := make([]core.Candidate, 0, len(items))
	for i, item := range items {
		fields := make(map[string]any, len(item)+len(envelopeDefaults))
		for _, k := range envelopeDefaults {
			if v, ok := env[k]; ok && v != nil {
				fields[k] = v
			}
		}
		for k, v := range item {
			if v == nil {
				if _, inherited := fields[k]; inherited {
					continue
				}
			}
			fields[k] = v
		}
		if fields[FieldIsBusiness] == nil {
			fields[FieldIsBusiness] = true
		}

		text := raw.RawText
		if len(items) > 1 {
			text = lineMentioning(raw.RawText, stringField(fields, FieldModel))
		}
		p.resolve(fields, text)

		candidates = append(candidates, core.Candidate{
			Index:     i,
			ItemCount: len(items),
			Fields:    fields,
			Source:    raw.Source,
			RawText:   raw.RawText,
			ItemText:  text,
		})
	}

	return candidates
}

// resolve fills quantity and price fields in place. Explicit scalars win over explicit
// pairs, which win over ranges and then single values found in text.
func (p *Parser) resolve(fields map[string]any, text string) {
	qty, qtyMin, qtyMax := amountField(fields, FieldQuantity), amountField(fields, FieldQuantityMin), amountField(fields, FieldQuantityMax)
	switch {
	case qty != nil:
		qtyMin, qtyMax = nil, nil
	case qtyMin != nil || qtyMax != nil:
	default:
		if lo, hi, ok := tradetext.QuantityRange(text, false); ok {
			qtyMin, qtyMax = floatPtr(float64(lo)), floatPtr(float64(hi))
		} else if v, ok := tradetext.Quantity(text); ok {
			qty = floatPtr(float64(v))
		}
	}
	setAmount(fields, FieldQuantity, qty)
	setAmount(fields, FieldQuantityMin, qtyMin)
	setAmount(fields, FieldQuantityMax, qtyMax)

	price, priceMin, priceMax := amountField(fields, FieldPrice), amountField(fields, FieldPriceMin), amountField(fields, FieldPriceMax)
	switch {
	case price != nil:
		priceMin, priceMax = nil, nil
	case priceMin != nil || priceMax != nil:
	default:
		if r, ok := tradetext.PriceRange(text, p.minPrice, false); ok {
			priceMin, priceMax = floatPtr(r.Min), floatPtr(r.Max)
		} else if v, ok := tradetext.Price(text, p.minPrice); ok {
			price = floatPtr(v)
		}
	}
	setAmount(fields, FieldPrice, price)
	setAmount(fields, FieldPriceMin, priceMin)
	setAmount(fields, FieldPriceMax, priceMax)
}

func decodeEnvelope(text string) (map[string]any, error) {
	repaired := repairJSON(text)
	if repaired == "" {
		return nil, errors.New("empty extraction response")
	}

	var v any
	if err := json.Unmarshal([]byte(repaired), &v); err != nil {
		return nil, fmt.Errorf("invalid extraction JSON: %w", err)
	}

	env, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("extraction response is %T, not an object", v)
	}
	return env, nil
}

// objectItems returns the object entries of items, skipping anything else
func (p *Parser) objectItems(v any, source core.SourceMeta) []map[string]any {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	items := make([]map[string]any, 0, len(list))
	for i, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			p.logger.Warn("Skipping non-object extraction item",
				zap.String("wa_message_id", source.WAMessageID),
				zap.Int("item_index", i),
				zap.String("type", fmt.Sprintf("%T", entry)))
			continue
		}
		items = append(items, m)
	}
	return items
}

func noiseCandidate(raw *core.RawExtraction, err error) core.Candidate {
	return core.Candidate{
		Fields: map[string]any{
			FieldIsBusiness:  false,
			FieldMessageType: string(core.MessageNoise),
			FieldActorType:   string(core.ActorUnknown),
			FieldConfidence:  0.0,
		},
		Source:     raw.Source,
		RawText:    raw.RawText,
		ParseError: err.Error(),
	}
}

// lineMentioning returns the first line of text that contains model, ignoring case
func lineMentioning(text, model string) string {
	model = strings.ToLower(strings.TrimSpace(model))
	if model == "" {
		return ""
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(strings.ToLower(line), model) {
			return line
		}
	}
	return ""
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

// amountField reads an explicit number. Numeric strings such as "18,700" or "30k" are accepted.
func amountField(fields map[string]any, key string) *float64 {
	switch v := fields[key].(type) {
	case float64:
		return &v
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil
		}
		return &f
	case string:
		if f, ok := tradetext.ParseAmount(v); ok {
			return &f
		}
		if n, ok := tradetext.Quantity(v); ok {
			return floatPtr(float64(n))
		}
	}
	return nil
}

func setAmount(fields map[string]any, key string, v *float64) {
	if v == nil {
		fields[key] = nil
		return
	}
	fields[key] = *v
}

func floatPtr(v float64) *float64 {
	return &v
}
