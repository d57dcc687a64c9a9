// Package normalize canonicalizes raw crawler values into entity records.
// Each normalizer returns (value, ok): a false ok means "no entity", which
// callers treat as a silent drop rather than an error.
package normalize

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/lvonguyen/scamforge/internal/entity"
)

var (
	// VN phone: leading 0 plus 9 or 10 more digits (10-11 total, the 11
	// digit form covers legacy prefixes).
	vnPhoneRe = regexp.MustCompile(`^0\d{9,10}$`)

	// Bank accounts are digit-only, 8-17 digits depending on the bank.
	bankRe = regexp.MustCompile(`^\d{8,17}$`)

	urlSchemeRe = regexp.MustCompile(`(?i)^https?://`)
	nonDigitRe  = regexp.MustCompile(`\D+`)
	spacesRe    = regexp.MustCompile(`\s+`)
)

// trackingParams are query keys stripped during URL canonicalization.
var trackingParams = map[string]struct{}{
	"utm_source": {}, "utm_medium": {}, "utm_campaign": {},
	"utm_term": {}, "utm_content": {},
	"fbclid": {}, "gclid": {}, "igshid": {},
	"mc_cid": {}, "mc_eid": {},
}

func stripSpaces(s string) string {
	return strings.TrimSpace(spacesRe.ReplaceAllString(s, " "))
}

func onlyDigits(s string) string {
	return nonDigitRe.ReplaceAllString(s, "")
}

// Phone canonicalizes a raw phone number to the VN local form: punctuation
// removed, a +84 (or bare 84) international prefix rewritten to a leading
// 0. Only all-digit results of 10-11 digits starting with 0 are accepted.
func Phone(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}

	s := stripSpaces(raw)
	s = strings.NewReplacer("(", "", ")", "", ".", "", "-", "", " ", "", "\u200b", "").Replace(s)

	// Users sometimes write the country code without the plus.
	if strings.HasPrefix(s, "84") && len(s) >= 9 {
		s = "+" + s
	}

	if strings.HasPrefix(s, "+84") {
		s = "0" + onlyDigits(s)[2:]
	}

	digits := onlyDigits(s)
	if !strings.HasPrefix(digits, "0") {
		return "", false
	}
	if !vnPhoneRe.MatchString(digits) {
		return "", false
	}
	return digits, true
}

// Bank canonicalizes a raw bank account number to its digit string. A
// digit string that matches the VN phone shape is rejected: phone takes
// precedence when the two are ambiguous.
func Bank(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}

	digits := onlyDigits(raw)
	if vnPhoneRe.MatchString(digits) {
		return "", false
	}
	if !bankRe.MatchString(digits) {
		return "", false
	}
	return digits, true
}

// URL canonicalizes a raw URL: https is injected when the scheme is
// missing, the host is lowercased with default ports stripped, duplicate
// path slashes collapse, tracking query parameters and the fragment are
// dropped, and a single trailing slash is removed unless the path is root.
func URL(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}

	s := stripSpaces(raw)
	s = strings.Trim(s, ".,;:)]}\"'")
	s = strings.ReplaceAll(s, "\u200b", "")

	if !urlSchemeRe.MatchString(s) {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", false
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}

	host := strings.ToLower(strings.TrimSpace(u.Host))
	if host == "" || !strings.Contains(host, ".") {
		return "", false
	}
	if scheme == "http" {
		host = strings.TrimSuffix(host, ":80")
	}
	if scheme == "https" {
		host = strings.TrimSuffix(host, ":443")
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	if path != "/" && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}

	query := cleanQuery(u.RawQuery)

	out := scheme + "://" + host + path
	if query != "" {
		out += "?" + query
	}
	return out, true
}

// cleanQuery drops tracking parameters while preserving the order and
// encoding of the remaining pairs.
func cleanQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	var kept []string
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key := pair
		if i := strings.Index(pair, "="); i >= 0 {
			key = pair[:i]
		}
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		if _, tracked := trackingParams[strings.ToLower(key)]; tracked {
			continue
		}
		kept = append(kept, pair)
	}
	return strings.Join(kept, "&")
}

// DetectCountry infers the country from the entity type and canonical
// value. PHONE: leading 0 is VN, leading + international. URL: a .vn host
// is VN, everything else international. BANK: VN by policy.
func DetectCountry(t entity.Type, value string) entity.Country {
	switch t {
	case entity.TypePhone:
		if strings.HasPrefix(value, "0") {
			return entity.CountryVN
		}
		if strings.HasPrefix(value, "+") {
			return entity.CountryINT
		}
		return entity.CountryUnknown

	case entity.TypeURL:
		u, err := url.Parse(value)
		if err != nil {
			return entity.CountryUnknown
		}
		if strings.HasSuffix(strings.ToLower(u.Host), ".vn") {
			return entity.CountryVN
		}
		return entity.CountryINT

	case entity.TypeBank:
		return entity.CountryVN
	}
	return entity.CountryUnknown
}

// Entity canonicalizes a raw value for the given type and resolves its
// country. A false ok means no entity could be produced.
func Entity(t entity.Type, raw string) (string, entity.Country, bool) {
	var value string
	var ok bool

	switch t {
	case entity.TypePhone:
		value, ok = Phone(raw)
	case entity.TypeBank:
		value, ok = Bank(raw)
	case entity.TypeURL:
		value, ok = URL(raw)
	default:
		return "", entity.CountryUnknown, false
	}
	if !ok {
		return "", entity.CountryUnknown, false
	}

	country := DetectCountry(t, value)
	if country == entity.CountryUnknown {
		return "", entity.CountryUnknown, false
	}
	return value, country, true
}
