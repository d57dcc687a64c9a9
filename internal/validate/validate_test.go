package validate

import (
	"testing"

	"github.com/lvonguyen/scamforge/internal/entity"
)

func validRecord(t entity.Type, value string) *entity.Record {
	return entity.New(t, value, entity.CountryVN, "test")
}

// TestRecord_AcceptsCanonicalForms verifies each entity type passes in its
// canonical normalized form.
func TestRecord_AcceptsCanonicalForms(t *testing.T) {
	tests := []struct {
		name string
		rec  *entity.Record
	}{
		{"phone", validRecord(entity.TypePhone, "0912345678")},
		{"bank", validRecord(entity.TypeBank, "123456789012")},
		{"url", entity.New(entity.TypeURL, "https://scam.example.com/login", entity.CountryINT, "test")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !Record(tt.rec) {
				t.Errorf("canonical %s record rejected", tt.name)
			}
		})
	}
}

// TestRecord_RejectsMalformed verifies the format gate catches records
// that slipped through with bad shapes.
func TestRecord_RejectsMalformed(t *testing.T) {
	urlRec := entity.New(entity.TypeURL, "not a url", entity.CountryINT, "test")
	noSource := entity.New(entity.TypePhone, "0912345678", entity.CountryVN, "")
	unknownCountry := entity.New(entity.TypePhone, "0912345678", entity.CountryUnknown, "test")

	tests := []struct {
		name string
		rec  *entity.Record
	}{
		{"nil record", nil},
		{"bad phone shape", validRecord(entity.TypePhone, "12345")},
		{"bad bank shape", validRecord(entity.TypeBank, "12ab34")},
		{"bad url", urlRec},
		{"empty source", noSource},
		{"unknown country", unknownCountry},
		{"unknown type", validRecord(entity.Type("EMAIL"), "a@b.com")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if Record(tt.rec) {
				t.Errorf("%s should be rejected", tt.name)
			}
		})
	}
}

// TestRecord_Idempotent verifies the gate is a pure predicate: repeated
// checks agree and the record is untouched.
func TestRecord_Idempotent(t *testing.T) {
	rec := validRecord(entity.TypePhone, "0912345678")

	first := Record(rec)
	second := Record(rec)
	if first != second {
		t.Error("verdict changed between calls")
	}
	if rec.RiskLevel != entity.RiskUnknown || rec.Scored {
		t.Error("validation must not assign risk")
	}
}

// TestFilter_PreservesOrder verifies filtering keeps relative order.
func TestFilter_PreservesOrder(t *testing.T) {
	records := []*entity.Record{
		validRecord(entity.TypePhone, "0912345678"),
		validRecord(entity.TypePhone, "bad"),
		validRecord(entity.TypeBank, "123456789012"),
	}

	out := Filter(records)
	if len(out) != 2 {
		t.Fatalf("expected 2 valid records, got %d", len(out))
	}
	if out[0].Type != entity.TypePhone || out[1].Type != entity.TypeBank {
		t.Error("filter reordered records")
	}
}
