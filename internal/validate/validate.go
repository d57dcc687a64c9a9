// Package validate is the format gate between normalization and scoring.
// It is a pure predicate: no mutation, no risk assignment, same verdict
// for the same input.
package validate

import (
	"net/url"
	"regexp"

	"github.com/lvonguyen/scamforge/internal/entity"
)

var (
	vnPhoneRe = regexp.MustCompile(`^0\d{9,10}$`)
	bankRe    = regexp.MustCompile(`^\d{8,17}$`)
)

// Record reports whether a normalized record is technically valid. Records
// failing this check are excluded from all downstream stages.
func Record(r *entity.Record) bool {
	if r == nil {
		return false
	}
	if !r.Type.Valid() || r.Value == "" || r.Source == "" {
		return false
	}
	if r.Country != entity.CountryVN && r.Country != entity.CountryINT {
		return false
	}

	switch r.Type {
	case entity.TypePhone:
		return vnPhoneRe.MatchString(r.Value)
	case entity.TypeBank:
		return bankRe.MatchString(r.Value)
	case entity.TypeURL:
		return validURL(r.Value)
	}
	return false
}

// Filter keeps only valid records, preserving order.
func Filter(records []*entity.Record) []*entity.Record {
	out := make([]*entity.Record, 0, len(records))
	for _, r := range records {
		if Record(r) {
			out = append(out, r)
		}
	}
	return out
}

func validURL(value string) bool {
	u, err := url.Parse(value)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
