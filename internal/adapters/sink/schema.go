package sink

import (
	"context"
	"fmt"
	"strings"
)

type columnKind int

const (
	kindShortText columnKind = iota
	kindText
	kindInt
	kindFloat
	kindTime
	kindHash
)

type columnDef struct {
	name string
	kind columnKind
	null bool
}

// dialect holds the DDL vocabulary of a driver
type dialect struct {
	serialPK  string
	types     map[columnKind]string
	tableOpts string
}

var dialects = map[string]dialect{
	"postgres": {
		serialPK: "id BIGSERIAL PRIMARY KEY",
		types: map[columnKind]string{
			kindShortText: "VARCHAR(255)",
			kindText:      "TEXT",
			kindInt:       "INTEGER",
			kindFloat:     "DOUBLE PRECISION",
			kindTime:      "TIMESTAMPTZ",
			kindHash:      "CHAR(64)",
		},
	},
	"mysql": {
		serialPK: "id BIGINT AUTO_INCREMENT PRIMARY KEY",
		types: map[columnKind]string{
			kindShortText: "VARCHAR(255)",
			kindText:      "TEXT",
			kindInt:       "INT",
			kindFloat:     "DOUBLE",
			kindTime:      "DATETIME(6)",
			kindHash:      "CHAR(64)",
		},
		tableOpts: " DEFAULT CHARSET=utf8mb4",
	},
	"sqlite3": {
		serialPK: "id INTEGER PRIMARY KEY AUTOINCREMENT",
		types: map[columnKind]string{
			kindShortText: "TEXT",
			kindText:      "TEXT",
			kindInt:       "INTEGER",
			kindFloat:     "REAL",
			kindTime:      "DATETIME",
			kindHash:      "TEXT",
		},
	},
}

var sourceDefs = []columnDef{
	{"sender", kindShortText, false},
	{"chat_id", kindShortText, false},
	{"chat_type", kindShortText, false},
	{"wa_message_id", kindShortText, true},
	{"raw_text", kindText, false},
	{"item_index", kindInt, false},
	{"processing_id", kindShortText, true},
	{"received_at", kindTime, false},
	{"content_hash", kindHash, false},
}

var tradeDefs = []columnDef{
	{"actor_type", kindShortText, false},
	{"brand", kindShortText, true},
	{"model", kindShortText, true},
	{"variant", kindShortText, true},
	{"ram", kindInt, true},
	{"storage", kindInt, true},
	{"colors", kindText, true},
	{"price", kindFloat, true},
	{"price_min", kindFloat, true},
	{"price_max", kindFloat, true},
	{"quantity", kindInt, true},
	{"quantity_min", kindInt, true},
	{"quantity_max", kindInt, true},
	{"item_condition", kindShortText, true},
	{"gst", kindShortText, true},
	{"dispatch", kindShortText, true},
	{"confidence", kindFloat, false},
}

var ignoredDefs = []columnDef{
	{"message_type", kindShortText, false},
	{"actor_type", kindShortText, false},
	{"brand", kindShortText, true},
	{"model", kindShortText, true},
	{"confidence", kindFloat, false},
	{"reason", kindText, true},
}

var usageDefs = []columnDef{
	{"provider", kindShortText, false},
	{"model", kindShortText, false},
	{"request_id", kindShortText, true},
	{"prompt_tokens", kindInt, false},
	{"completion_tokens", kindInt, false},
	{"total_tokens", kindInt, false},
	{"cached_tokens", kindInt, false},
	{"latency_ms", kindInt, false},
	{"cost_usd", kindFloat, false},
	{"wa_message_id", kindShortText, true},
	{"created_at", kindTime, false},
}

type tableDef struct {
	name    string
	columns []columnDef
	unique  string
}

var tables = []tableDef{
	{"dealer_leads", append(append([]columnDef{}, tradeDefs...), sourceDefs...), "content_hash"},
	{"distributor_offerings", append(append([]columnDef{}, tradeDefs...), sourceDefs...), "content_hash"},
	{"ignored_messages", append(append([]columnDef{}, ignoredDefs...), sourceDefs...), "content_hash"},
	{usageTable, usageDefs, ""},
}

func (d dialect) createTable(t tableDef) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "CREATE TABLE IF NOT EXISTS %s (\n\t%s", t.name, d.serialPK)
	for _, c := range t.columns {
		fmt.Fprintf(&sb, ",\n\t%s %s", c.name, d.types[c.kind])
		if !c.null {
			sb.WriteString(" NOT NULL")
		}
	}
	if t.unique != "" {
		fmt.Fprintf(&sb, ",\n\tCONSTRAINT uq_%s_%s UNIQUE (%s)", t.name, t.unique, t.unique)
	}
	sb.WriteString("\n)")
	sb.WriteString(d.tableOpts)
	return sb.String()
}

// EnsureSchema creates the destination tables and the usage log table
func (s *SQLSink) EnsureSchema(ctx context.Context) error {
	d, ok := dialects[s.db.DriverName()]
	if !ok {
		return fmt.Errorf("unsupported sink driver %q", s.db.DriverName())
	}
	for _, t := range tables {
		if _, err := s.db.ExecContext(ctx, d.createTable(t)); err != nil {
			return fmt.Errorf("failed to create table %s: %w", t.name, err)
		}
	}
	return nil
}
