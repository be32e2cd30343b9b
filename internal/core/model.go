package core

import (
	"strings"
	"time"
)

// ChatType is the kind of conversation a message arrived in
type ChatType string

const (
	ChatIndividual ChatType = "individual"
	ChatGroup      ChatType = "group"
	ChatBroadcast  ChatType = "broadcast"
)

// ParseChatType maps transport chat-type strings onto ChatType, defaulting to individual
func ParseChatType(s string) ChatType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "group", "g.us":
		return ChatGroup
	case "broadcast", "status":
		return ChatBroadcast
	default:
		return ChatIndividual
	}
}

// MessageType is the classification outcome of a line item
type MessageType string

const (
	MessageLead     MessageType = "lead"
	MessageOffering MessageType = "offering"
	MessageNoise    MessageType = "noise"
)

// Valid reports whether t is one of the known message types
func (t MessageType) Valid() bool {
	switch t {
	case MessageLead, MessageOffering, MessageNoise:
		return true
	}
	return false
}

// ActorType describes who posted the message
type ActorType string

const (
	ActorDealer      ActorType = "dealer"
	ActorDistributor ActorType = "distributor"
	ActorUnknown     ActorType = "unknown"
)

// Valid reports whether t is one of the known actor types
func (t ActorType) Valid() bool {
	switch t {
	case ActorDealer, ActorDistributor, ActorUnknown:
		return true
	}
	return false
}

// Destination is the table a record is routed to
type Destination int

const (
	DestIgnoredMessages Destination = iota
	DestDealerLeads
	DestDistributorOfferings
)

// Table returns the destination table name
func (d Destination) Table() string {
	switch d {
	case DestDealerLeads:
		return "dealer_leads"
	case DestDistributorOfferings:
		return "distributor_offerings"
	default:
		return "ignored_messages"
	}
}

func (d Destination) String() string {
	return d.Table()
}

// MarshalText renders the destination as its table name
func (d Destination) MarshalText() ([]byte, error) {
	return []byte(d.Table()), nil
}

// InboundBody is the body of an inbound event as delivered by the transport
type InboundBody struct {
	Sender      string `json:"sender"`
	ChatID      string `json:"chat_id"`
	ChatType    string `json:"chat_type"`
	RawText     string `json:"raw_text"`
	WAMessageID string `json:"wa_message_id"`
}

// InboundEvent is the payload handed to the pipeline by transport and webhook collaborators
type InboundEvent struct {
	Body    InboundBody `json:"body"`
	RawText string      `json:"raw_text"`
}

// Message converts the event into an immutable InboundMessage received at now
func (e InboundEvent) Message(now time.Time) InboundMessage {
	text := e.Body.RawText
	if strings.TrimSpace(text) == "" {
		text = e.RawText
	}
	return InboundMessage{
		Sender:      e.Body.Sender,
		ChatID:      e.Body.ChatID,
		ChatType:    ParseChatType(e.Body.ChatType),
		RawText:     text,
		WAMessageID: e.Body.WAMessageID,
		ReceivedAt:  now,
	}
}

// InboundMessage is a received chat message. It is passed by value and never mutated.
type InboundMessage struct {
	Sender      string
	ChatID      string
	ChatType    ChatType
	RawText     string
	WAMessageID string
	ReceivedAt  time.Time
}

// Source returns the metadata that travels with every record derived from the message
func (m InboundMessage) Source() SourceMeta {
	return SourceMeta{
		Sender:      m.Sender,
		ChatID:      m.ChatID,
		ChatType:    m.ChatType,
		WAMessageID: m.WAMessageID,
		ReceivedAt:  m.ReceivedAt,
	}
}

// SourceMeta identifies where a record came from
type SourceMeta struct {
	Sender      string    `json:"sender"`
	ChatID      string    `json:"chat_id"`
	ChatType    ChatType  `json:"chat_type"`
	WAMessageID string    `json:"wa_message_id,omitempty"`
	ReceivedAt  time.Time `json:"received_at"`
}

// RawExtraction is the unparsed output of the understanding stage
type RawExtraction struct {
	Text           string
	RawText        string
	Source         SourceMeta
	Model          string
	Fallback       bool
	FallbackReason string
}

// Candidate is a single line item before schema validation. Fields uses the
// JSON names of the extraction schema as keys.
type Candidate struct {
	Index      int
	ItemCount  int
	Fields     map[string]any
	Source     SourceMeta
	RawText    string
	ItemText   string
	ParseError string
}

// ClassificationRecord is the validated, typed output for one line item
type ClassificationRecord struct {
	IsBusinessMessage bool           `json:"is_business_message"`
	MessageType       MessageType    `json:"message_type"`
	ActorType         ActorType      `json:"actor_type"`
	Brand             *string        `json:"brand"`
	Model             *string        `json:"model"`
	Variant           *string        `json:"variant"`
	RAM               *int           `json:"ram"`
	Storage           *int           `json:"storage"`
	Colors            map[string]int `json:"colors,omitempty"`
	Price             *float64       `json:"price"`
	PriceMin          *float64       `json:"price_min"`
	PriceMax          *float64       `json:"price_max"`
	Quantity          *int           `json:"quantity"`
	QuantityMin       *int           `json:"quantity_min"`
	QuantityMax       *int           `json:"quantity_max"`
	Condition         *string        `json:"condition"`
	GST               *string        `json:"gst"`
	Dispatch          *string        `json:"dispatch"`
	Confidence        float64        `json:"confidence"`
	Source            SourceMeta     `json:"source"`
	RawText           string         `json:"raw_text"`
	ItemIndex         int            `json:"item_index"`
	ItemCount         int            `json:"item_count,omitempty"`
	ItemText          string         `json:"-"`
	ProcessingID      string         `json:"processing_id,omitempty"`
	ValidationError   string         `json:"validation_error,omitempty"`

	RouteTo     Destination `json:"__routeTo"`
	Inserted    bool        `json:"__inserted"`
	InsertedID  *int64      `json:"__insertedId,omitempty"`
	InsertError string      `json:"__insertError,omitempty"`
}

// ItemSource returns the text describing this item alone. For a message with a
// single item that is the whole raw text; otherwise it is ItemText, the line
// mentioning the item, which is empty when no line does.
func (r *ClassificationRecord) ItemSource() string {
	if r.ItemCount > 1 {
		return r.ItemText
	}
	return r.RawText
}

// NewNoiseRecord builds the canonical noise record for a demoted line item
func NewNoiseRecord(source SourceMeta, rawText string, index int, reason string) *ClassificationRecord {
	return &ClassificationRecord{
		IsBusinessMessage: false,
		MessageType:       MessageNoise,
		ActorType:         ActorUnknown,
		Confidence:        0,
		Source:            source,
		RawText:           rawText,
		ItemIndex:         index,
		ValidationError:   reason,
		RouteTo:           DestIgnoredMessages,
	}
}

// UsageRecord is a single usage/cost observation of the extraction provider
type UsageRecord struct {
	Provider         string
	Model            string
	RequestID        string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	CachedTokens     int
	Latency          time.Duration
	CostUSD          float64
	WAMessageID      string
	CreatedAt        time.Time
}
