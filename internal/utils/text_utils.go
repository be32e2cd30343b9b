package utils

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// zero-width and bidi marks that chat clients sprinkle into forwarded messages
var invisibleReplacer = strings.NewReplacer(
	"\u200b", "",
	"\u200c", "",
	"\u200d", "",
	"\u2060", "",
	"\ufeff", "",
	"\u200e", "",
	"\u200f", "",
)

// TextProcessor provides utilities for processing text
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TextProcessor{
		logger: logger,
	}
}

// TruncateText truncates text to at most maxChars runes
func (tp *TextProcessor) TruncateText(text string, maxChars int) string {
	// If no limit or text is already within limits, return as is
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}

	runes := []rune(text)
	truncated := string(runes[:maxChars])

	tp.logger.Debug("Text truncated",
		zap.Int("original_chars", len(runes)),
		zap.Int("max_chars", maxChars))

	return truncated
}

// SanitizeUTF8 ensures the string contains only valid UTF-8 characters
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	sanitized := strings.ToValidUTF8(text, "")

	tp.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(sanitized)))

	return sanitized
}

// NormalizeText sanitizes text, folds compatibility forms (full-width digits,
// ligatures) with NFKC and strips invisible marks so pattern matching sees plain text
func (tp *TextProcessor) NormalizeText(text string) string {
	text = tp.SanitizeUTF8(text)
	text = norm.NFKC.String(text)
	text = invisibleReplacer.Replace(text)
	return strings.ReplaceAll(text, "\r\n", "\n")
}

// ProcessText normalizes and truncates text in one operation
func (tp *TextProcessor) ProcessText(text string, maxChars int) string {
	return tp.TruncateText(tp.NormalizeText(text), maxChars)
}
