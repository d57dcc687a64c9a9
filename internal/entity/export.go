package entity

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Row is the flat export shape consumed by the storage backend and the
// JSONL/CSV writers. No business logic lives here; it is a pure mapping of
// a scored record.
type Row struct {
	EntityType  string  `json:"entity_type"`
	EntityValue string  `json:"entity_value"`
	Country     string  `json:"country"`
	Source      string  `json:"source"`
	RiskScore   int     `json:"risk_score"`
	RiskLevel   string  `json:"risk_level"`
	Confidence  float64 `json:"confidence"`
	RawValue    string  `json:"raw_value,omitempty"`
	Context     string  `json:"context,omitempty"`
	URL         string  `json:"url,omitempty"`
	Hash        string  `json:"hash"`
	CreatedAt   string  `json:"created_at"`
	// RulesTriggered is the comma-joined risk signal trail.
	RulesTriggered string `json:"rules_triggered"`
	// Evidence is the JSON-serialized evidence bag, empty when absent.
	Evidence string `json:"evidence,omitempty"`
}

// ToRow flattens a record for export.
func ToRow(r *Record) Row {
	row := Row{
		EntityType:     string(r.Type),
		EntityValue:    r.Value,
		Country:        string(r.Country),
		Source:         r.Source,
		RiskScore:      r.RiskScore,
		RiskLevel:      string(r.RiskLevel),
		Confidence:     r.Confidence,
		RawValue:       r.RawValue,
		Context:        r.Context,
		URL:            r.URL,
		Hash:           r.Fingerprint,
		CreatedAt:      r.CreatedAt.UTC().Format(time.RFC3339),
		RulesTriggered: strings.Join(r.RiskSignals, ","),
	}
	if len(r.Evidence) > 0 {
		if data, err := json.Marshal(r.Evidence); err == nil {
			row.Evidence = string(data)
		}
	}
	return row
}

// WriteJSONL writes one JSON object per line.
func WriteJSONL(w io.Writer, records []*Record) error {
	enc := json.NewEncoder(w)
	for _, r := range records {
		if err := enc.Encode(ToRow(r)); err != nil {
			return fmt.Errorf("encoding record %s: %w", r.Fingerprint, err)
		}
	}
	return nil
}

// csvHeader matches the Row field order.
var csvHeader = []string{
	"entity_type", "entity_value", "country", "source",
	"risk_score", "risk_level", "confidence",
	"raw_value", "context", "url",
	"hash", "created_at", "rules_triggered", "evidence",
}

// WriteCSV writes a header row followed by one line per record.
func WriteCSV(w io.Writer, records []*Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, r := range records {
		row := ToRow(r)
		fields := []string{
			row.EntityType, row.EntityValue, row.Country, row.Source,
			strconv.Itoa(row.RiskScore), row.RiskLevel,
			strconv.FormatFloat(row.Confidence, 'f', -1, 64),
			row.RawValue, row.Context, row.URL,
			row.Hash, row.CreatedAt, row.RulesTriggered, row.Evidence,
		}
		if err := cw.Write(fields); err != nil {
			return fmt.Errorf("writing record %s: %w", r.Fingerprint, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
