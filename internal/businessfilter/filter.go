// Package businessfilter decides whether a raw chat message is worth sending to
// the extraction provider. Ambiguous messages pass.
package businessfilter

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Config holds the tunable thresholds of the filter
type Config struct {
	ScoreThreshold int
	CasualMaxLen   int
}

// DefaultConfig returns the empirically tuned defaults
func DefaultConfig() Config {
	return Config{
		ScoreThreshold: 4,
		CasualMaxLen:   6,
	}
}

// Signal weights
const (
	weightIntent      = 4
	weightStrongBrand = 4
	weightBrand       = 3
	weightModel       = 2
	weightMemory      = 2
	weightQuantity    = 2
	weightPrice       = 3
	weightBoost       = 3
	weightStockList   = 3
)

// Signal is one named contribution to the filter score
type Signal struct {
	Name   string
	Weight int
}

// Verdict is the full outcome of evaluating a message
type Verdict struct {
	Pass    bool
	Score   int
	Signals []Signal
	Reason  string
}

var (
	systemPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(otp|one[\s-]?time\s+password|verification\s+code)\b`),
		regexp.MustCompile(`(?i)\b(credited|debited)\b.*\b(a/c|acct|account|upi|neft|imps|rtgs|bank)\b`),
		regexp.MustCompile(`(?i)\b(a/c|acct|account|upi|neft|imps|rtgs)\b.*\b(credited|debited)\b`),
		regexp.MustCompile(`(?i)\b(avl\s+bal|available\s+balance|txn\s+id|transaction\s+id|ref\s+no)\b`),
		regexp.MustCompile(`(?i)\bcron\b|\bcronjob\b|\bscheduled\s+job\s+(ran|failed|completed)\b`),
		regexp.MustCompile(`(?i)\b(GET|POST|PUT|PATCH|DELETE|HEAD)\s+/\S*\s+(HTTP/\d(\.\d)?|\d{3})\b`),
		regexp.MustCompile(`(?i)"\s*HTTP/\d\.\d"\s+\d{3}\b`),
	}
	longDigitsRe = regexp.MustCompile(`^\+?[\d\s\-]{8,}$`)

	intentRe = regexp.MustCompile(`(?i)\b(need|needed|required|require|requirement|want|wanted|wtb|wts|buy|buying|sell|selling|available|avl|avail|in\s+stock|ready\s+stock|stock|offer|deal|bulk|wholesale|dispatch|sealed|box\s+pack|order|rate|price)\b`)

	strongBrandRe = regexp.MustCompile(`(?i)\b(iphone|apple|samsung|galaxy|oneplus)\b`)
	brandRe       = regexp.MustCompile(`(?i)\b(xiaomi|redmi|poco|oppo|vivo|realme|iqoo|motorola|moto|nokia|pixel|google|nothing|infinix|tecno|itel|lava|honor|huawei|asus|sony|lenovo|micromax|hmd)\b`)

	modelRe = regexp.MustCompile(`(?i)\b(?:[a-z]{1,3}\d{1,3}[a-z]{0,2}|\d{1,3}\s?(?:pro|max|plus|ultra|lite|mini|prime|5g|4g|fe|neo)|(?:iphone|galaxy|redmi|note|pixel|nord|reno|narzo|moto|poco)\s?\d{1,3})\b`)
	memoryRe = regexp.MustCompile(`(?i)\b\d{1,2}\s?[/\-:]\s?\d{2,4}\b|\b\d{2,4}\s?(?:gb|tb)\b`)

	quantityRe = regexp.MustCompile(`(?i)\b\d{1,6}\s*(?:-|to)?\s*\d{0,6}\s*(?:pcs|pc|pieces|piece|units|unit|nos|sets)\b|\bqty\s*[:\-=]?\s*\d+`)
	priceRe    = regexp.MustCompile(`(?i)(?:₹|\brs\.?|\binr|\$|@)\s*\d[\d,]*|\b\d{1,3}(?:\.\d)?\s?k\b|\b\d{4,7}\s*(?:/-|rs\b|inr\b)|\b(?:price|rate)\s*[:\-=]?\s*\d`)

	casualAcks = map[string]bool{
		"ok": true, "okk": true, "okay": true, "k": true, "kk": true, "hi": true, "hii": true,
		"hello": true, "hey": true, "thx": true, "thanks": true, "ty": true, "yes": true,
		"no": true, "ya": true, "yup": true, "yep": true, "nope": true, "done": true,
		"sure": true, "np": true, "gm": true, "gn": true, "bye": true, "noted": true, "hmm": true,
	}
)

// Filter scores raw text against weighted lexical and structural signals
type Filter struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a new business filter
func New(cfg Config, logger *zap.Logger) *Filter {
	if cfg.ScoreThreshold <= 0 {
		cfg.ScoreThreshold = DefaultConfig().ScoreThreshold
	}
	if cfg.CasualMaxLen <= 0 {
		cfg.CasualMaxLen = DefaultConfig().CasualMaxLen
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filter{cfg: cfg, logger: logger}
}

// Classify reports whether text should be sent to the understanding stage
func (f *Filter) Classify(text string) bool {
	return f.Evaluate(text).Pass
}

// Evaluate scores text. Any panic during evaluation fails open.
func (f *Filter) Evaluate(text string) (v Verdict) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("Business filter panicked, passing message through", zap.Any("panic", r))
			v = Verdict{Pass: true, Reason: fmt.Sprintf("fail-open: %v", r)}
		}
	}()
	return f.evaluate(text)
}

func (f *Filter) evaluate(text string) Verdict {
	trimmed := strings.TrimSpace(text)

	if reason, ok := f.hardNegative(trimmed); ok {
		return Verdict{Reason: reason}
	}

	var v Verdict
	add := func(name string, weight int) {
		v.Signals = append(v.Signals, Signal{Name: name, Weight: weight})
		v.Score += weight
	}

	intent := intentRe.MatchString(trimmed)
	if intent {
		add("trade_intent", weightIntent)
	}
	if strongBrandRe.MatchString(trimmed) {
		add("brand", weightStrongBrand)
	} else if brandRe.MatchString(trimmed) {
		add("brand", weightBrand)
	}
	if modelRe.MatchString(trimmed) {
		add("model", weightModel)
	}
	if memoryRe.MatchString(trimmed) {
		add("memory", weightMemory)
	}
	hasQty := quantityRe.MatchString(trimmed)
	if hasQty {
		add("quantity", weightQuantity)
	}
	hasPrice := priceRe.MatchString(trimmed)
	if hasPrice {
		add("price", weightPrice)
	}
	if hasQty && hasPrice {
		add("quantity_price_boost", weightBoost)
	}
	if isStockList(trimmed) {
		add("stock_list", weightStockList)
	}

	switch {
	case hasPrice && hasQty:
		v.Pass, v.Reason = true, "price and quantity"
	case intent:
		v.Pass, v.Reason = true, "trade intent"
	case v.Score >= f.cfg.ScoreThreshold:
		v.Pass, v.Reason = true, "score threshold"
	default:
		v.Reason = "below threshold"
	}

	f.logger.Debug("Business filter verdict",
		zap.Bool("pass", v.Pass),
		zap.Int("score", v.Score),
		zap.String("reason", v.Reason))
	return v
}

func (f *Filter) hardNegative(text string) (string, bool) {
	if utf8.RuneCountInString(text) <= 2 {
		return "too short", true
	}
	if !hasLetterOrDigit(text) {
		return "emoji or whitespace only", true
	}
	for _, re := range systemPatterns {
		if re.MatchString(text) {
			return "system message", true
		}
	}
	if longDigitsRe.MatchString(text) {
		return "digits only", true
	}
	lower := strings.ToLower(strings.Trim(text, ".!?, "))
	if !strings.ContainsAny(lower, " \t\n") &&
		utf8.RuneCountInString(lower) < f.cfg.CasualMaxLen &&
		casualAcks[lower] {
		return "casual reply", true
	}
	return "", false
}

// isStockList detects multi-line stock lists: at least 3 candidate lines, of
// which at least 2 carry a model or memory token alongside a price or quantity.
func isStockList(text string) bool {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) < 3 {
		return false
	}
	hits := 0
	for _, l := range lines {
		hasSpec := modelRe.MatchString(l) || memoryRe.MatchString(l)
		commercial := priceRe.MatchString(l) || quantityRe.MatchString(l)
		if hasSpec && commercial {
			hits++
		}
	}
	return hits >= 2
}

func hasLetterOrDigit(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
