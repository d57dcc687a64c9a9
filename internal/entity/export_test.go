package entity

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

// =============================================================================
// Export Tests
// =============================================================================

// TestToRow_FlattensVerdictAndTrail verifies the flat row carries the
// verdict, the signal trail and the serialized evidence bag.
func TestToRow_FlattensVerdictAndTrail(t *testing.T) {
	r := New(TypePhone, "0912345678", CountryVN, "ncsc")
	r.RawValue = "+84 912 345 678"
	r.Context = "official warning"
	r.AddSignal("PHONE_SUSPICIOUS_PREFIX")
	r.AddSignal("PHONE_MULTI_SOURCE")
	r.SetScore(70)
	r.SetConfidence(0.5)

	row := ToRow(r)

	if row.EntityType != "PHONE" || row.EntityValue != "0912345678" {
		t.Errorf("identity = %s/%s", row.EntityType, row.EntityValue)
	}
	if row.RiskScore != 70 || row.RiskLevel != "HIGH" {
		t.Errorf("verdict = %d/%s", row.RiskScore, row.RiskLevel)
	}
	if row.RulesTriggered != "PHONE_SUSPICIOUS_PREFIX,PHONE_MULTI_SOURCE" {
		t.Errorf("rules = %s", row.RulesTriggered)
	}
	if row.Hash != r.Fingerprint {
		t.Error("hash should be the fingerprint")
	}
	if !strings.Contains(row.Evidence, "PHONE_SUSPICIOUS_PREFIX") {
		t.Errorf("evidence = %s", row.Evidence)
	}
}

// TestWriteJSONL_OneObjectPerLine verifies JSONL output parses line by
// line with the expected fields.
func TestWriteJSONL_OneObjectPerLine(t *testing.T) {
	a := New(TypePhone, "0912345678", CountryVN, "ncsc")
	b := New(TypeURL, "https://scam.example.com/login", CountryVN, "phishtank")
	b.URL = b.Value

	var buf bytes.Buffer
	if err := WriteJSONL(&buf, []*Record{a, b}); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var row map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &row); err != nil {
		t.Fatal(err)
	}
	if row["entity_type"] != "URL" || row["url"] != b.Value {
		t.Errorf("row = %v", row)
	}
}

// TestWriteCSV_HeaderAndQuoting verifies the CSV header order and that
// comma-bearing fields survive quoting.
func TestWriteCSV_HeaderAndQuoting(t *testing.T) {
	r := New(TypeBank, "123456789012", CountryVN, "news")
	r.Context = "chuyển khoản, chiếm đoạt"
	r.AddSignal("BANK_SUSPICIOUS_CONTEXT")

	var buf bytes.Buffer
	if err := WriteCSV(&buf, []*Record{r}); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "entity_type,entity_value,country,source") {
		t.Errorf("header = %s", lines[0])
	}
	if !strings.Contains(lines[1], `"chuyển khoản, chiếm đoạt"`) {
		t.Errorf("context not quoted: %s", lines[1])
	}
}
