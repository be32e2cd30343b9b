package understanding

import (
	"encoding/json"
	"fmt"

	"github.com/mikey/llm-lead-router/internal/core"
)

const systemInstruction = `You extract structured trade data from WhatsApp messages exchanged by mobile phone dealers and distributors in India.
Decide whether the message is business. A dealer asking to buy stock is a "lead". A distributor advertising stock or a price list is an "offering". Anything else is "noise".
Return exactly one JSON object that follows the schema in the user message. Use null for unknown values and never invent prices or quantities that are not in the text.`

const promptFormat = `Sender: %s
Chat ID: %s
Chat type: %s

Message:
"""
%s
"""

Schema:
%s

Rules:
- One entry in items per product line. Put shared brand, condition, gst and dispatch at the top level.
- ram and storage are integers in GB. variant keeps the text as written, e.g. "8/128".
- price, price_min and price_max are numbers in INR. "30k" means 30000.
- quantity, quantity_min and quantity_max are integers.
- colors maps a colour name to a quantity when the message lists them.
- confidence is a number between 0 and 1.

Respond only with the JSON object and nothing else.`

const schemaTemplate = `{
  "is_business_message": true,
  "message_type": "lead | offering | noise",
  "actor_type": "dealer | distributor | unknown",
  "brand": "string or null",
  "condition": "string or null",
  "gst": "string or null",
  "dispatch": "string or null",
  "items": [
    {
      "brand": "string or null",
      "model": "string or null",
      "variant": "string or null",
      "ram": "integer or null",
      "storage": "integer or null",
      "colors": {"colour": "integer"},
      "price": "number or null",
      "price_min": "number or null",
      "price_max": "number or null",
      "quantity": "integer or null",
      "quantity_min": "integer or null",
      "quantity_max": "integer or null",
      "condition": "string or null",
      "gst": "string or null",
      "dispatch": "string or null"
    }
  ],
  "confidence": 0.0,
  "source": {"sender": "string", "chat_id": "string", "chat_type": "string"}
}`

func buildPrompt(src core.SourceMeta, text string) string {
	return fmt.Sprintf(promptFormat, src.Sender, src.ChatID, src.ChatType, text, schemaTemplate)
}

// sourceEnvelope is the source block echoed in every envelope
type sourceEnvelope struct {
	Sender      string `json:"sender"`
	ChatID      string `json:"chat_id"`
	ChatType    string `json:"chat_type"`
	WAMessageID string `json:"wa_message_id,omitempty"`
}

type noiseEnvelope struct {
	IsBusinessMessage bool           `json:"is_business_message"`
	MessageType       string         `json:"message_type"`
	ActorType         string         `json:"actor_type"`
	Items             []any          `json:"items"`
	Confidence        float64        `json:"confidence"`
	Source            sourceEnvelope `json:"source"`
}

// NoiseEnvelope returns the canonical noise envelope for src
func NoiseEnvelope(src core.SourceMeta) string {
	b, _ := json.Marshal(noiseEnvelope{
		MessageType: string(core.MessageNoise),
		ActorType:   string(core.ActorUnknown),
		Items:       []any{},
		Source: sourceEnvelope{
			Sender:      src.Sender,
			ChatID:      src.ChatID,
			ChatType:    string(src.ChatType),
			WAMessageID: src.WAMessageID,
		},
	})
	return string(b)
}
