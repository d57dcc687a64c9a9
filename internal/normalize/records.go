package normalize

import (
	"github.com/lvonguyen/scamforge/internal/entity"
)

// Item describes one raw observation to normalize.
type Item struct {
	Type     entity.Type
	RawValue string
	Source   string
	Context  string
	URL      string
	Evidence map[string]any
}

// Record normalizes a single raw observation into an entity record. A
// false ok means the observation produced no entity and should be dropped
// silently.
func Record(item Item) (*entity.Record, bool) {
	value, country, ok := Entity(item.Type, item.RawValue)
	if !ok {
		return nil, false
	}

	rec := entity.New(item.Type, value, country, item.Source)
	rec.RawValue = item.RawValue
	rec.Context = item.Context
	rec.URL = item.URL
	if len(item.Evidence) > 0 {
		rec.Evidence = item.Evidence
	}

	if rec.Source == "" {
		return nil, false
	}
	return rec, true
}

// SocialPost is the raw shape produced by the social crawlers: entity
// lists plus the surrounding post text and locator.
type SocialPost struct {
	Phones   []string       `json:"phones"`
	Banks    []string       `json:"banks"`
	URLs     []string       `json:"urls"`
	Text     string         `json:"text"`
	Caption  string         `json:"caption"`
	VideoURL string         `json:"video_url"`
	Group    string         `json:"group"`
	Raw      map[string]any `json:"-"`
}

func (p SocialPost) context() string {
	if p.Text != "" {
		return p.Text
	}
	return p.Caption
}

func (p SocialPost) locator() string {
	if p.VideoURL != "" {
		return p.VideoURL
	}
	return p.Group
}

// FromSocial normalizes social-post shaped raw items. Records are
// deduplicated by fingerprint within the call; the first observation of
// each entity wins.
func FromSocial(posts []SocialPost, source string) []*entity.Record {
	seen := make(map[string]*entity.Record)
	var order []string

	add := func(t entity.Type, raw string, post SocialPost) {
		rec, ok := Record(Item{
			Type:     t,
			RawValue: raw,
			Source:   source,
			Context:  post.context(),
			URL:      post.locator(),
			Evidence: post.Raw,
		})
		if !ok {
			return
		}
		if _, dup := seen[rec.Fingerprint]; dup {
			return
		}
		seen[rec.Fingerprint] = rec
		order = append(order, rec.Fingerprint)
	}

	for _, post := range posts {
		for _, raw := range post.Phones {
			add(entity.TypePhone, raw, post)
		}
		for _, raw := range post.Banks {
			add(entity.TypeBank, raw, post)
		}
		for _, raw := range post.URLs {
			add(entity.TypeURL, raw, post)
		}
	}

	out := make([]*entity.Record, 0, len(order))
	for _, fp := range order {
		out = append(out, seen[fp])
	}
	return out
}

// Observation is the entity-level raw shape produced by the news, ncsc,
// police and phishtank crawlers.
type Observation struct {
	Type    string         `json:"type"`
	Value   string         `json:"value"`
	Context string         `json:"context"`
	URL     string         `json:"url"`
	Raw     map[string]any `json:"-"`
}

// FromObservations normalizes entity-level raw items, deduplicating by
// fingerprint within the call.
func FromObservations(items []Observation, source string) []*entity.Record {
	seen := make(map[string]struct{})
	var out []*entity.Record

	for _, item := range items {
		if item.Type == "" || item.Value == "" {
			continue
		}
		rec, ok := Record(Item{
			Type:     entity.Type(item.Type),
			RawValue: item.Value,
			Source:   source,
			Context:  item.Context,
			URL:      item.URL,
			Evidence: item.Raw,
		})
		if !ok {
			continue
		}
		if _, dup := seen[rec.Fingerprint]; dup {
			continue
		}
		seen[rec.Fingerprint] = struct{}{}
		out = append(out, rec)
	}
	return out
}
