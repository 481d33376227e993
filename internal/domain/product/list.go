package product

import (
	"encoding/json"
	"strings"
)

// List is a typed list of display strings. The catalog historically stored
// these as JSON arrays, JSON-encoded strings or comma-separated text. ParseList
// accepts all of them once at ingestion; stored lists are always JSON arrays.
type List []string

// ParseList normalizes raw catalog text into a List.
func ParseList(raw string) List {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return List{}
	}

	if strings.HasPrefix(raw, "[") {
		var items []string
		if err := json.Unmarshal([]byte(raw), &items); err == nil {
			return clean(items)
		}
	}

	if strings.HasPrefix(raw, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(raw), &inner); err == nil {
			return ParseList(inner)
		}
	}

	sep := ","
	if strings.Contains(raw, "\n") {
		sep = "\n"
	}
	return clean(strings.Split(raw, sep))
}

func clean(items []string) List {
	out := make(List, 0, len(items))
	for _, item := range items {
		if v := strings.TrimSpace(item); v != "" {
			out = append(out, v)
		}
	}
	return out
}
