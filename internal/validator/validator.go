package validator

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/mikey/llm-lead-router/internal/core"
	"github.com/mikey/llm-lead-router/internal/parser"
	"go.uber.org/zap"
)

var gbValueRe = regexp.MustCompile(`(?i)^\s*(\d{1,4})\s*(gb|tb)?\s*$`)

// Validator checks candidates against the extraction schema and converts them
// into typed records
type Validator struct {
	logger *zap.Logger
}

// New creates a new Validator
func New(logger *zap.Logger) *Validator {
	return &Validator{logger: logger}
}

type checker struct {
	fields     map[string]any
	violations []string
}

func (c *checker) fail(format string, args ...any) {
	c.violations = append(c.violations, fmt.Sprintf(format, args...))
}

// Validate returns the typed record for c, or the canonical noise record carrying
// the accumulated violations when c does not match the schema
func (v *Validator) Validate(c core.Candidate) *core.ClassificationRecord {
	ck := &checker{fields: c.Fields}
	if c.ParseError != "" {
		ck.fail("parse error: %s", c.ParseError)
	}

	rec := &core.ClassificationRecord{
		Source:    c.Source,
		RawText:   c.RawText,
		ItemIndex: c.Index,
		ItemCount: c.ItemCount,
		ItemText:  c.ItemText,
	}

	rec.IsBusinessMessage = ck.boolean(parser.FieldIsBusiness)
	rec.MessageType = core.MessageType(ck.enum(parser.FieldMessageType, true, func(s string) bool { return core.MessageType(s).Valid() }))
	if actor := ck.enum(parser.FieldActorType, false, func(s string) bool { return core.ActorType(s).Valid() }); actor != "" {
		rec.ActorType = core.ActorType(actor)
	} else {
		rec.ActorType = core.ActorUnknown
	}
	rec.Confidence = ck.confidence()

	rec.Brand = ck.optString(parser.FieldBrand, false)
	rec.Model = ck.optString(parser.FieldModel, false)
	rec.Variant = ck.optString(parser.FieldVariant, false)
	rec.Condition = ck.optString(parser.FieldCondition, true)
	rec.GST = ck.optString(parser.FieldGST, true)
	rec.Dispatch = ck.optString(parser.FieldDispatch, true)

	rec.RAM = ck.gigabytes(parser.FieldRAM)
	rec.Storage = ck.gigabytes(parser.FieldStorage)
	rec.Colors = colors(c.Fields[parser.FieldColors])

	rec.Price = ck.number(parser.FieldPrice)
	rec.PriceMin = ck.number(parser.FieldPriceMin)
	rec.PriceMax = ck.number(parser.FieldPriceMax)
	rec.Quantity = ck.integer(parser.FieldQuantity)
	rec.QuantityMin = ck.integer(parser.FieldQuantityMin)
	rec.QuantityMax = ck.integer(parser.FieldQuantityMax)

	if len(ck.violations) > 0 {
		reason := strings.Join(ck.violations, "; ")
		v.logger.Info("Demoting invalid record to noise",
			zap.String("wa_message_id", c.Source.WAMessageID),
			zap.Int("item_index", c.Index),
			zap.String("error", reason))
		return core.NewNoiseRecord(c.Source, c.RawText, c.Index, reason)
	}

	return rec
}

func (c *checker) boolean(key string) bool {
	raw, ok := c.fields[key]
	if !ok {
		c.fail("%s is required", key)
		return false
	}
	b, ok := raw.(bool)
	if !ok {
		c.fail("%s must be a boolean, got %T", key, raw)
	}
	return b
}

func (c *checker) enum(key string, required bool, valid func(string) bool) string {
	raw, ok := c.fields[key]
	if !ok || raw == nil {
		if required {
			c.fail("%s is required", key)
		}
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		c.fail("%s must be a string, got %T", key, raw)
		return ""
	}
	s = strings.ToLower(strings.TrimSpace(s))
	if !valid(s) {
		c.fail("%s %q is not allowed", key, s)
		return ""
	}
	return s
}

func (c *checker) confidence() float64 {
	raw, ok := c.fields[parser.FieldConfidence]
	if !ok || raw == nil {
		c.fail("%s is required", parser.FieldConfidence)
		return 0
	}
	f, ok := toFloat(raw)
	if !ok {
		c.fail("%s must be a number, got %T", parser.FieldConfidence, raw)
		return 0
	}
	if f < 0 || f > 1 || math.IsNaN(f) {
		c.fail("%s %v is outside [0,1]", parser.FieldConfidence, f)
		return 0
	}
	return f
}

// optString reads an optional string. Lenient fields also accept booleans and
// numbers, which are rendered as text.
func (c *checker) optString(key string, lenient bool) *string {
	raw, ok := c.fields[key]
	if !ok || raw == nil {
		return nil
	}
	switch v := raw.(type) {
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return nil
		}
		return &v
	case bool:
		if lenient {
			s := strconv.FormatBool(v)
			return &s
		}
	case float64:
		if lenient {
			s := strconv.FormatFloat(v, 'f', -1, 64)
			return &s
		}
	}
	c.fail("%s must be a string, got %T", key, raw)
	return nil
}

// gigabytes coerces 8, "8" or "8GB" to an int
func (c *checker) gigabytes(key string) *int {
	raw, ok := c.fields[key]
	if !ok || raw == nil {
		return nil
	}
	switch v := raw.(type) {
	case float64:
		if v == math.Trunc(v) {
			n := int(v)
			return &n
		}
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		if m := gbValueRe.FindStringSubmatch(v); m != nil {
			n, _ := strconv.Atoi(m[1])
			if strings.EqualFold(m[2], "tb") {
				n *= 1024
			}
			return &n
		}
	}
	c.fail("%s %v is not an integer", key, raw)
	return nil
}

func (c *checker) number(key string) *float64 {
	raw, ok := c.fields[key]
	if !ok || raw == nil {
		return nil
	}
	f, ok := toFloat(raw)
	if !ok {
		c.fail("%s must be a number, got %T", key, raw)
		return nil
	}
	return &f
}

func (c *checker) integer(key string) *int {
	f := c.number(key)
	if f == nil {
		return nil
	}
	n := int(math.Round(*f))
	return &n
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// colors accepts {"black": 10} and ["black", "blue"]; anything else is ignored
func colors(v any) map[string]int {
	switch c := v.(type) {
	case map[string]any:
		out := make(map[string]int, len(c))
		for name, qty := range c {
			n, _ := toFloat(qty)
			out[strings.ToLower(strings.TrimSpace(name))] = int(n)
		}
		return out
	case []any:
		out := make(map[string]int, len(c))
		for _, entry := range c {
			if name, ok := entry.(string); ok && name != "" {
				out[strings.ToLower(strings.TrimSpace(name))] = 0
			}
		}
		return out
	}
	return nil
}
