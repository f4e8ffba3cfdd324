package ratingcache

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/trev125/FlickPick/internal/domain/model"
)

func encodeEntry(e model.Enrichment) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode entry: %w", err)
	}
	return data, nil
}

// decodeEntry parses a stored entry. Records written before versioning have
// no "version" key; their version is inferred from which keys exist.
func decodeEntry(data []byte) (model.Enrichment, error) {
	var e model.Enrichment
	if err := json.Unmarshal(data, &e); err != nil {
		return model.Enrichment{}, fmt.Errorf("decode entry: %w", err)
	}
	if e.Version > 0 {
		return e, nil
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return model.Enrichment{}, fmt.Errorf("decode entry keys: %w", err)
	}
	switch {
	case has(keys, "keywords"):
		e.Version = 3
	case has(keys, "tmdbRating"):
		e.Version = 2
	default:
		e.Version = 1
	}
	return e, nil
}

func has(keys map[string]json.RawMessage, k string) bool {
	_, ok := keys[k]
	return ok
}
