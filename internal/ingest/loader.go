// Package ingest loads raw crawler drops from disk and normalizes them
// into entity records. Every crawler writes its own files into a shared
// raw directory; the loader routes each file's rows to the right
// normalizer based on the declared source.
package ingest

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/lvonguyen/scamforge/internal/entity"
	"github.com/lvonguyen/scamforge/internal/normalize"
)

// socialSources identify crawler payloads carrying post-shaped rows
// (entity lists plus surrounding text) rather than entity-shaped rows.
var socialSources = map[string]struct{}{
	"facebook": {},
	"tiktok":   {},
}

// skipFiles are bookkeeping files that live in the raw directory but are
// not crawler drops.
var skipFiles = map[string]struct{}{
	"global_seen.json": {},
}

// Stats summarizes one load pass.
type Stats struct {
	FilesRead    int
	FilesSkipped int
	RowsRead     int
	Records      int
	Warnings     []string
}

// Loader reads raw crawler files and produces normalized records.
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a raw-directory loader.
func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger}
}

// LoadDir reads every .json, .jsonl and .csv file under dir (sorted by
// name for determinism), normalizes the rows and returns the combined
// records. A malformed file is skipped with a warning; only a missing or
// unreadable directory is an error.
func (l *Loader) LoadDir(dir string) ([]*entity.Record, Stats, error) {
	var stats Stats

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, stats, fmt.Errorf("read raw dir %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var records []*entity.Record
	for _, name := range names {
		if _, skip := skipFiles[name]; skip {
			stats.FilesSkipped++
			continue
		}

		path := filepath.Join(dir, name)
		recs, rows, err := l.loadFile(path)
		if err != nil {
			stats.FilesSkipped++
			stats.Warnings = append(stats.Warnings, fmt.Sprintf("%s: %v", name, err))
			l.logger.Warn("skipping raw file", zap.String("file", name), zap.Error(err))
			continue
		}

		stats.FilesRead++
		stats.RowsRead += rows
		records = append(records, recs...)
	}

	stats.Records = len(records)
	l.logger.Info("raw directory loaded",
		zap.String("dir", dir),
		zap.Int("files", stats.FilesRead),
		zap.Int("skipped", stats.FilesSkipped),
		zap.Int("records", stats.Records))
	return records, stats, nil
}

func (l *Loader) loadFile(path string) ([]*entity.Record, int, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl":
		return l.loadJSONL(path)
	case ".json":
		return l.loadJSON(path)
	case ".csv":
		return l.loadCSV(path)
	default:
		return nil, 0, fmt.Errorf("unsupported extension %q", filepath.Ext(path))
	}
}

// loadJSONL reads one raw object per line.
func (l *Loader) loadJSONL(path string) ([]*entity.Record, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	var raws []map[string]any
	dec := json.NewDecoder(f)
	for {
		var raw map[string]any
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, 0, fmt.Errorf("line %d: %w", len(raws)+1, err)
		}
		raws = append(raws, raw)
	}
	recs, err := l.route(raws)
	return recs, len(raws), err
}

// loadJSON reads either a JSON array of raw objects or a single object.
// Non-object array elements are dropped individually so one stray value
// does not lose the rest of the file.
func (l *Loader) loadJSON(path string) ([]*entity.Record, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		var single map[string]any
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, 0, fmt.Errorf("neither JSON array nor object: %w", err)
		}
		recs, err := l.route([]map[string]any{single})
		return recs, 1, err
	}

	raws := make([]map[string]any, 0, len(elems))
	for i, elem := range elems {
		var raw map[string]any
		if err := json.Unmarshal(elem, &raw); err != nil {
			l.logger.Warn("dropping non-object array element",
				zap.String("file", filepath.Base(path)),
				zap.Int("index", i))
			continue
		}
		raws = append(raws, raw)
	}
	recs, err := l.route(raws)
	return recs, len(raws), err
}

// loadCSV reads a phishing feed export: the url/URL column of each row
// becomes one URL observation.
func (l *Loader) loadCSV(path string) ([]*entity.Record, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}

	urlCol := -1
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), "url") {
			urlCol = i
			break
		}
	}
	if urlCol < 0 {
		return nil, 0, fmt.Errorf("no url column in header %v", header)
	}

	var items []normalize.Observation
	rows := 0
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("row %d: %w", rows+1, err)
		}
		rows++
		if urlCol >= len(row) {
			continue
		}
		items = append(items, normalize.Observation{
			Type:  string(entity.TypeURL),
			Value: row[urlCol],
		})
	}

	return normalize.FromObservations(items, "phishtank"), rows, nil
}

// route dispatches raw objects to the social or entity normalizer based
// on the declared source. Objects with no source are dropped with a
// warning rather than failing the file.
func (l *Loader) route(raws []map[string]any) ([]*entity.Record, error) {
	bySource := make(map[string][]map[string]any)
	var order []string

	for _, raw := range raws {
		source, _ := raw["source"].(string)
		source = strings.ToLower(strings.TrimSpace(source))
		if source == "" {
			l.logger.Warn("raw object without source, dropping")
			continue
		}
		if _, seen := bySource[source]; !seen {
			order = append(order, source)
		}
		bySource[source] = append(bySource[source], raw)
	}

	var out []*entity.Record
	for _, source := range order {
		group := bySource[source]
		if _, social := socialSources[source]; social {
			out = append(out, normalize.FromSocial(decodeSocial(group), source)...)
		} else {
			out = append(out, normalize.FromObservations(decodeObservations(group), source)...)
		}
	}
	return out, nil
}

func decodeSocial(raws []map[string]any) []normalize.SocialPost {
	posts := make([]normalize.SocialPost, 0, len(raws))
	for _, raw := range raws {
		posts = append(posts, normalize.SocialPost{
			Phones:   stringSlice(raw["phones"]),
			Banks:    stringSlice(raw["banks"]),
			URLs:     stringSlice(raw["urls"]),
			Text:     stringField(raw, "text"),
			Caption:  stringField(raw, "caption"),
			VideoURL: stringField(raw, "video_url"),
			Group:    stringField(raw, "group"),
			Raw:      raw,
		})
	}
	return posts
}

func decodeObservations(raws []map[string]any) []normalize.Observation {
	items := make([]normalize.Observation, 0, len(raws))
	for _, raw := range raws {
		items = append(items, normalize.Observation{
			Type:    strings.ToUpper(stringField(raw, "type")),
			Value:   stringField(raw, "value"),
			Context: stringField(raw, "context"),
			URL:     stringField(raw, "url"),
			Raw:     raw,
		})
	}
	return items
}

func stringField(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return s
}

func stringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
