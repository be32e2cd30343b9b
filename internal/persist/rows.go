package persist

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mikey/llm-lead-router/internal/core"
)

// Row is a destination-specific row
type Row interface {
	Destination() core.Destination
	// Columns returns the populated columns and their values in a fixed order
	Columns() ([]string, []any)
}

// sourceColumns are stored in every destination table
type sourceColumns struct {
	Sender       string
	ChatID       string
	ChatType     string
	WAMessageID  *string
	RawText      string
	ItemIndex    int
	ProcessingID *string
	ReceivedAt   time.Time
	ContentHash  string
}

// tradeColumns describe one priced line item
type tradeColumns struct {
	ActorType   string
	Brand       *string
	Model       *string
	Variant     *string
	RAM         *int
	Storage     *int
	Colors      *string
	Price       *float64
	PriceMin    *float64
	PriceMax    *float64
	Quantity    *int
	QuantityMin *int
	QuantityMax *int
	Condition   *string
	GST         *string
	Dispatch    *string
	Confidence  float64
}

// DealerLeadRow is a row of dealer_leads
type DealerLeadRow struct {
	sourceColumns
	tradeColumns
}

// DistributorOfferingRow is a row of distributor_offerings
type DistributorOfferingRow struct {
	sourceColumns
	tradeColumns
}

// IgnoredMessageRow is a row of ignored_messages
type IgnoredMessageRow struct {
	sourceColumns
	MessageType string
	ActorType   string
	Brand       *string
	Model       *string
	Confidence  float64
	Reason      *string
}

func (r DealerLeadRow) Destination() core.Destination { return core.DestDealerLeads }

func (r DealerLeadRow) Columns() ([]string, []any) {
	var b columnBuilder
	r.tradeColumns.add(&b)
	r.sourceColumns.add(&b)
	return b.cols, b.args
}

func (r DistributorOfferingRow) Destination() core.Destination {
	return core.DestDistributorOfferings
}

func (r DistributorOfferingRow) Columns() ([]string, []any) {
	var b columnBuilder
	r.tradeColumns.add(&b)
	r.sourceColumns.add(&b)
	return b.cols, b.args
}

func (r IgnoredMessageRow) Destination() core.Destination { return core.DestIgnoredMessages }

func (r IgnoredMessageRow) Columns() ([]string, []any) {
	var b columnBuilder
	b.value("message_type", r.MessageType)
	b.value("actor_type", r.ActorType)
	b.str("brand", r.Brand)
	b.str("model", r.Model)
	b.value("confidence", r.Confidence)
	b.str("reason", r.Reason)
	r.sourceColumns.add(&b)
	return b.cols, b.args
}

func (t tradeColumns) add(b *columnBuilder) {
	b.value("actor_type", t.ActorType)
	b.str("brand", t.Brand)
	b.str("model", t.Model)
	b.str("variant", t.Variant)
	b.integer("ram", t.RAM)
	b.integer("storage", t.Storage)
	b.str("colors", t.Colors)
	b.float("price", t.Price)
	b.float("price_min", t.PriceMin)
	b.float("price_max", t.PriceMax)
	b.integer("quantity", t.Quantity)
	b.integer("quantity_min", t.QuantityMin)
	b.integer("quantity_max", t.QuantityMax)
	b.str("item_condition", t.Condition)
	b.str("gst", t.GST)
	b.str("dispatch", t.Dispatch)
	b.value("confidence", t.Confidence)
}

func (s sourceColumns) add(b *columnBuilder) {
	b.value("sender", s.Sender)
	b.value("chat_id", s.ChatID)
	b.value("chat_type", s.ChatType)
	b.str("wa_message_id", s.WAMessageID)
	b.value("raw_text", s.RawText)
	b.value("item_index", s.ItemIndex)
	b.str("processing_id", s.ProcessingID)
	b.value("received_at", s.ReceivedAt)
	b.value("content_hash", s.ContentHash)
}

// columnBuilder collects columns, skipping nil values
type columnBuilder struct {
	cols []string
	args []any
}

func (b *columnBuilder) value(col string, v any) {
	b.cols = append(b.cols, col)
	b.args = append(b.args, v)
}

func (b *columnBuilder) str(col string, v *string) {
	if v != nil {
		b.value(col, *v)
	}
}

func (b *columnBuilder) integer(col string, v *int) {
	if v != nil {
		b.value(col, *v)
	}
}

func (b *columnBuilder) float(col string, v *float64) {
	if v != nil {
		b.value(col, *v)
	}
}

// NewRow builds the row for the destination rec is routed to
func NewRow(rec *core.ClassificationRecord) Row {
	src := sourceColumns{
		Sender:       rec.Source.Sender,
		ChatID:       rec.Source.ChatID,
		ChatType:     string(rec.Source.ChatType),
		WAMessageID:  optional(rec.Source.WAMessageID),
		RawText:      rec.RawText,
		ItemIndex:    rec.ItemIndex,
		ProcessingID: optional(rec.ProcessingID),
		ReceivedAt:   rec.Source.ReceivedAt.UTC(),
		ContentHash:  ContentHash(rec),
	}

	switch rec.RouteTo {
	case core.DestDealerLeads:
		return DealerLeadRow{sourceColumns: src, tradeColumns: newTradeColumns(rec)}
	case core.DestDistributorOfferings:
		return DistributorOfferingRow{sourceColumns: src, tradeColumns: newTradeColumns(rec)}
	case core.DestIgnoredMessages:
		return IgnoredMessageRow{
			sourceColumns: src,
			MessageType:   string(rec.MessageType),
			ActorType:     string(rec.ActorType),
			Brand:         rec.Brand,
			Model:         rec.Model,
			Confidence:    rec.Confidence,
			Reason:        optional(rec.ValidationError),
		}
	}
	panic(fmt.Sprintf("persist: unknown destination %d", rec.RouteTo))
}

func newTradeColumns(rec *core.ClassificationRecord) tradeColumns {
	t := tradeColumns{
		ActorType:   string(rec.ActorType),
		Brand:       rec.Brand,
		Model:       rec.Model,
		Variant:     rec.Variant,
		RAM:         rec.RAM,
		Storage:     rec.Storage,
		Price:       rec.Price,
		PriceMin:    rec.PriceMin,
		PriceMax:    rec.PriceMax,
		Quantity:    rec.Quantity,
		QuantityMin: rec.QuantityMin,
		QuantityMax: rec.QuantityMax,
		Condition:   rec.Condition,
		GST:         rec.GST,
		Dispatch:    rec.Dispatch,
		Confidence:  rec.Confidence,
	}
	if len(rec.Colors) > 0 {
		if b, err := json.Marshal(rec.Colors); err == nil {
			s := string(b)
			t.Colors = &s
		}
	}
	return t
}

// BuildInsert renders row as a dialect-neutral insert statement
func BuildInsert(row Row) core.InsertStatement {
	cols, args := row.Columns()
	stmt := core.InsertStatement{
		Table:   row.Destination().Table(),
		Columns: cols,
		Args:    args,
	}
	for i, c := range cols {
		if c == "content_hash" {
			stmt.ContentHash, _ = args[i].(string)
		}
	}
	return stmt
}

// hashedRecord is the content identity of a record. Processing metadata is excluded
// so that a redelivered message maps to the same hash.
type hashedRecord struct {
	Destination string         `json:"d"`
	Sender      string         `json:"s"`
	ChatID      string         `json:"c"`
	Day         string         `json:"day"`
	RawText     string         `json:"t"`
	ItemIndex   int            `json:"i"`
	MessageType string         `json:"mt"`
	ActorType   string         `json:"at"`
	Brand       *string        `json:"b"`
	Model       *string        `json:"m"`
	Variant     *string        `json:"v"`
	RAM         *int           `json:"r"`
	Storage     *int           `json:"st"`
	Colors      map[string]int `json:"col"`
	Price       *float64       `json:"p"`
	PriceMin    *float64       `json:"pmin"`
	PriceMax    *float64       `json:"pmax"`
	Quantity    *int           `json:"q"`
	QuantityMin *int           `json:"qmin"`
	QuantityMax *int           `json:"qmax"`
}

// ContentHash returns the hex sha256 identifying the content of rec within its arrival day
func ContentHash(rec *core.ClassificationRecord) string {
	b, _ := json.Marshal(hashedRecord{
		Destination: rec.RouteTo.Table(),
		Sender:      rec.Source.Sender,
		ChatID:      rec.Source.ChatID,
		Day:         rec.Source.ReceivedAt.UTC().Format(time.DateOnly),
		RawText:     rec.RawText,
		ItemIndex:   rec.ItemIndex,
		MessageType: string(rec.MessageType),
		ActorType:   string(rec.ActorType),
		Brand:       rec.Brand,
		Model:       rec.Model,
		Variant:     rec.Variant,
		RAM:         rec.RAM,
		Storage:     rec.Storage,
		Colors:      rec.Colors,
		Price:       rec.Price,
		PriceMin:    rec.PriceMin,
		PriceMax:    rec.PriceMax,
		Quantity:    rec.Quantity,
		QuantityMin: rec.QuantityMin,
		QuantityMax: rec.QuantityMax,
	})
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
