package model

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// MetricsRequest names the metrics a caller wants materialized. It is either
// a RawKeyList or a LegacySpec; use MetricKeys to read it.
type MetricsRequest interface {
	metricKeys() []string
}

// RawKeyList is a flat list of metric keys.
type RawKeyList []string

func (l RawKeyList) metricKeys() []string { return l }

// MetricGroup is one block of a legacy grouped request.
type MetricGroup struct {
	Name string   `json:"name,omitempty"`
	Keys []string `json:"keys"`
}

// LegacySpec is the grouped request shape used by older section templates.
type LegacySpec struct {
	Groups []MetricGroup
}

func (s LegacySpec) metricKeys() []string {
	var out []string
	for _, g := range s.Groups {
		out = append(out, g.Keys...)
	}
	return out
}

// MetricKeys returns the request's keys trimmed, without blanks and with
// duplicates removed, in first-seen order.
func MetricKeys(req MetricsRequest) []string {
	if req == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, k := range req.metricKeys() {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// ParseMetricsRequest decodes the JSON shapes section templates use:
// ["REVENUE", ...], {"keys": [{"key": "REVENUE"} | "REVENUE", ...]} or a list
// of such objects.
func ParseMetricsRequest(data []byte) (MetricsRequest, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(err, "model: decode metrics request")
	}

	switch v := raw.(type) {
	case nil:
		return RawKeyList(nil), nil
	case []any:
		if len(v) == 0 {
			return RawKeyList(nil), nil
		}
		if _, ok := v[0].(string); ok {
			keys := make(RawKeyList, 0, len(v))
			for _, it := range v {
				s, ok := it.(string)
				if !ok {
					return nil, eris.Errorf("model: mixed metrics request element %T", it)
				}
				keys = append(keys, s)
			}
			return keys, nil
		}
		var spec LegacySpec
		for _, it := range v {
			g, err := legacyGroup(it)
			if err != nil {
				return nil, err
			}
			spec.Groups = append(spec.Groups, g)
		}
		return spec, nil
	case map[string]any:
		g, err := legacyGroup(v)
		if err != nil {
			return nil, err
		}
		return LegacySpec{Groups: []MetricGroup{g}}, nil
	}
	return nil, eris.Errorf("model: unsupported metrics request %T", raw)
}

func legacyGroup(v any) (MetricGroup, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return MetricGroup{}, eris.Errorf("model: legacy metrics group must be an object, got %T", v)
	}
	var g MetricGroup
	if name, ok := m["name"].(string); ok {
		g.Name = name
	}
	keys, _ := m["keys"].([]any)
	for _, it := range keys {
		switch k := it.(type) {
		case string:
			g.Keys = append(g.Keys, k)
		case map[string]any:
			if s, ok := k["key"].(string); ok && s != "" {
				g.Keys = append(g.Keys, s)
			}
		}
	}
	return g, nil
}

// EvidenceRequest selects the evidence bundle flavour: NotesByMetrics or Business.
type EvidenceRequest interface {
	evidenceKind() string
}

// NotesByMetrics asks for footnote chunks behind each requested metric.
type NotesByMetrics struct {
	MaxNotes int
	TopK     int
}

func (NotesByMetrics) evidenceKind() string { return "notes" }

// Business asks for business-description chunks by section code prefix.
type Business struct {
	Prefixes []string
	TopK     int
}

func (Business) evidenceKind() string { return SectionBiz }
