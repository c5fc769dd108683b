package records

import (
	"bytes"
	"context"
	"encoding/json"

	"kvdoc/internal/paginate"
	"kvdoc/internal/store"
)

// SearchResult is one page of records matching a field filter.
type SearchResult struct {
	Results  []Record `json:"results"`
	NextPage *int     `json:"next_page"`
}

// Search returns page page (10 per page) of records whose field equals
// value. Every stored value is decoded; one undecodable value fails the
// whole call.
func (r *Repository) Search(ctx context.Context, path, field string, value any, page int) (SearchResult, error) {
	want, err := encodeValue("value", value)
	if err != nil {
		return SearchResult{}, err
	}

	var matches []Record
	err = r.view(path, func(tx store.Tx) error {
		return scan(ctx, tx, nil, func(k, v []byte) (bool, error) {
			d, err := decode(k, v)
			if err != nil {
				return false, err
			}
			if d.Matches(field, want) {
				matches = append(matches, Record{Key: string(k), Value: d})
			}
			return true, nil
		})
	})
	if err != nil {
		return SearchResult{}, err
	}

	p := paginate.Window(matches, page, paginate.SearchLimit)
	logger.Debug("search", "path", path, "field", field, "matches", len(matches), "page", page)
	return SearchResult{Results: p.Items, NextPage: p.Next}, nil
}

// GetRow returns the document stored at key. Value is nil when key is absent.
func (r *Repository) GetRow(ctx context.Context, path, key string) (Record, error) {
	if err := checkKey(key); err != nil {
		return Record{}, err
	}
	rec := Record{Key: key}
	err := r.view(path, func(tx store.Tx) error {
		raw, err := tx.Get([]byte(key))
		if err != nil || raw == nil {
			return err
		}
		rec.Value, err = decode([]byte(key), raw)
		return err
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// KeysResult is one page of keys.
type KeysResult struct {
	Keys     []string `json:"keys"`
	NextPage *int     `json:"next_page"`
}

// ListKeys returns page page (200 per page) of keys in key order. Values are
// not decoded.
func (r *Repository) ListKeys(ctx context.Context, path string, page int) (KeysResult, error) {
	var keys []string
	err := r.view(path, func(tx store.Tx) error {
		return scan(ctx, tx, nil, func(k, _ []byte) (bool, error) {
			keys = append(keys, string(k))
			return true, nil
		})
	})
	if err != nil {
		return KeysResult{}, err
	}
	p := paginate.Window(keys, page, paginate.KeysLimit)
	return KeysResult{Keys: p.Items, NextPage: p.Next}, nil
}

// CountResult is the number of matching records.
type CountResult struct {
	Count int `json:"count"`
}

// Count returns how many records whose key starts with prefix have column
// equal to value. Only values under prefix are decoded.
func (r *Repository) Count(ctx context.Context, path, prefix, column string, value any) (CountResult, error) {
	want, err := encodeValue("value", value)
	if err != nil {
		return CountResult{}, err
	}
	p := []byte(prefix)
	var start []byte
	if len(p) > 0 {
		start = p
	}

	total := 0
	err = r.view(path, func(tx store.Tx) error {
		// Keys sharing a prefix are contiguous, so the scan stops at the
		// first key past the prefix range.
		return scan(ctx, tx, start, func(k, v []byte) (bool, error) {
			if !bytes.HasPrefix(k, p) {
				return false, nil
			}
			d, err := decode(k, v)
			if err != nil {
				return false, err
			}
			if d.Matches(column, want) {
				total++
			}
			return true, nil
		})
	})
	if err != nil {
		return CountResult{}, err
	}
	return CountResult{Count: total}, nil
}

// RangeResult holds the keys, or records, of a closed key range.
type RangeResult struct {
	Keys    []string
	Records []Record
	// WithValues selects which of Keys and Records is populated and
	// serialized.
	WithValues bool
}

// MarshalJSON encodes the range as {"results": [...]} holding either keys or
// {key, value} objects.
func (rr RangeResult) MarshalJSON() ([]byte, error) {
	var results any = nonNil(rr.Keys)
	if rr.WithValues {
		results = nonNil(rr.Records)
	}
	return json.Marshal(struct {
		Results any `json:"results"`
	}{results})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// ScanRange returns the keys in [startKey, endKey] in order, with decoded
// documents when includeValues is set. A start after end yields an empty
// result.
func (r *Repository) ScanRange(ctx context.Context, path, startKey, endKey string, includeValues bool) (RangeResult, error) {
	res := RangeResult{WithValues: includeValues, Keys: []string{}, Records: []Record{}}
	start, end := []byte(startKey), []byte(endKey)

	err := r.view(path, func(tx store.Tx) error {
		if bytes.Compare(start, end) > 0 {
			return nil
		}
		return scan(ctx, tx, start, func(k, v []byte) (bool, error) {
			if bytes.Compare(k, end) > 0 {
				return false, nil
			}
			if !includeValues {
				res.Keys = append(res.Keys, string(k))
				return true, nil
			}
			d, err := decode(k, v)
			if err != nil {
				return false, err
			}
			res.Records = append(res.Records, Record{Key: string(k), Value: d})
			return true, nil
		})
	})
	if err != nil {
		return RangeResult{}, err
	}
	return res, nil
}
