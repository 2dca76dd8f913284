package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// AnchorLink is one internal link the workflow engine inserted into an article.
type AnchorLink struct {
	Slug   string `json:"slug"`
	Phrase string `json:"phrase"`
	URL    string `json:"url,omitempty"`
}

// AnchorList is a normalized list of anchor links, stored as jsonb.
type AnchorList []AnchorLink

// Value implements driver.Valuer so AnchorList can be written to a jsonb column.
func (a AnchorList) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner so AnchorList can be read from a jsonb column.
func (a *AnchorList) Scan(src any) error {
	if src == nil {
		*a = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return fmt.Errorf("cannot scan %T into AnchorList", src)
	}
}

// NormalizeAnchorLog converts the workflow engine's loosely shaped anchor log into
// an AnchorList. The engine has produced several shapes over time: a bare array of
// link objects, or a wrapper object keyed by "anchors" or "links". Per-item keys
// also vary (slug/keyword, phrase/text/anchor_text, url/link). Normalization is
// total: anything unparseable yields an empty list, never an error.
func NormalizeAnchorLog(raw json.RawMessage) AnchorList {
	if len(raw) == 0 {
		return nil
	}

	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil {
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return nil
		}
		inner, ok := wrapper["anchors"]
		if !ok {
			inner, ok = wrapper["links"]
		}
		if !ok {
			return nil
		}
		if err := json.Unmarshal(inner, &items); err != nil {
			return nil
		}
	}

	out := make(AnchorList, 0, len(items))
	for _, item := range items {
		link := AnchorLink{
			Slug:   firstString(item, "slug", "keyword"),
			Phrase: firstString(item, "phrase", "text", "anchor_text"),
			URL:    firstString(item, "url", "link"),
		}
		if link.Slug == "" && link.Phrase == "" && link.URL == "" {
			continue
		}
		out = append(out, link)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// firstString returns the first non-empty string value among the given keys.
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok {
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		}
	}
	return ""
}
