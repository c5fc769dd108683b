package records

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"kvdoc/internal/document"
	"kvdoc/internal/store"
)

// CreateResult reports whether create_record stored a new record.
type CreateResult struct {
	Created bool   `json:"created"`
	Error   string `json:"error,omitempty"`
}

// CreateRecord stores value under key unless key already exists. A
// collision is reported as Created=false, not as an error.
func (r *Repository) CreateRecord(ctx context.Context, path, key string, value any) (CreateResult, error) {
	if err := checkKey(key); err != nil {
		return CreateResult{}, err
	}
	raw, err := encodeDocument(value)
	if err != nil {
		return CreateResult{}, err
	}

	res := CreateResult{Created: true}
	err = r.update(path, func(tx store.Tx) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		existing, err := tx.Get([]byte(key))
		if err != nil {
			return err
		}
		if existing != nil {
			res = CreateResult{Error: reasonKeyExists}
			return nil
		}
		return tx.Put([]byte(key), raw)
	})
	if err != nil {
		return CreateResult{}, err
	}
	return res, nil
}

// UpdateResult reports whether a field update was applied.
type UpdateResult struct {
	Updated bool   `json:"updated"`
	Error   string `json:"error,omitempty"`
}

// SetValue sets a single column of the document at key.
func (r *Repository) SetValue(ctx context.Context, path, key, column string, value any) (UpdateResult, error) {
	raw, err := encodeValue("value", value)
	if err != nil {
		return UpdateResult{}, err
	}
	updates := document.New()
	if err := updates.Set(column, raw); err != nil {
		return UpdateResult{}, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return r.merge(ctx, path, key, updates)
}

// SetColumns merges every column of updates into the document at key.
func (r *Repository) SetColumns(ctx context.Context, path, key string, updates any) (UpdateResult, error) {
	u, err := toDocument("updates", updates)
	if err != nil {
		return UpdateResult{}, err
	}
	return r.merge(ctx, path, key, u)
}

func (r *Repository) merge(ctx context.Context, path, key string, updates *document.Document) (UpdateResult, error) {
	if err := checkKey(key); err != nil {
		return UpdateResult{}, err
	}
	res := UpdateResult{Updated: true}
	err := r.update(path, func(tx store.Tx) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		d, found, err := load(tx, key)
		if err != nil {
			return err
		}
		if !found {
			res = UpdateResult{Error: reasonNotFound}
			return nil
		}
		d.Merge(updates)
		return save(tx, key, d)
	})
	if err != nil {
		return UpdateResult{}, err
	}
	return res, nil
}

// IncrementResult reports the outcome of increment_field. Value holds the
// new number on success and is null otherwise.
type IncrementResult struct {
	Updated bool            `json:"updated"`
	Value   json.RawMessage `json:"value"`
	Error   string          `json:"error,omitempty"`
}

// IncrementField adds amount to column of the document at key. An absent
// column counts from zero. A present non-numeric column is left untouched
// and reported as Updated=false. An empty amount means 1.
func (r *Repository) IncrementField(ctx context.Context, path, key, column string, amount json.Number) (IncrementResult, error) {
	if err := checkKey(key); err != nil {
		return IncrementResult{}, err
	}
	if amount == "" {
		amount = "1"
	}
	if !document.ValidNumber(amount) {
		return IncrementResult{}, fmt.Errorf("%w: amount %q is not a number", ErrInvalidArgument, amount)
	}

	var res IncrementResult
	err := r.update(path, func(tx store.Tx) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		d, found, err := load(tx, key)
		if err != nil {
			return err
		}
		if !found {
			res = IncrementResult{Error: reasonNotFound}
			return nil
		}
		cur, present := d.Get(column)
		if !present {
			cur = json.RawMessage("0")
		}
		sum, ok, err := document.Add(cur, amount)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
		if !ok {
			res = IncrementResult{Error: reasonNotNumeric}
			return nil
		}
		if err := d.Set(column, json.RawMessage(sum)); err != nil {
			return err
		}
		res = IncrementResult{Updated: true, Value: json.RawMessage(sum)}
		return save(tx, key, d)
	})
	if err != nil {
		return IncrementResult{}, err
	}
	return res, nil
}

// DeleteResult reports whether a record was removed.
type DeleteResult struct {
	Deleted bool   `json:"deleted"`
	Error   string `json:"error,omitempty"`
}

// DeleteRecord removes key.
func (r *Repository) DeleteRecord(ctx context.Context, path, key string) (DeleteResult, error) {
	if err := checkKey(key); err != nil {
		return DeleteResult{}, err
	}
	var res DeleteResult
	err := r.update(path, func(tx store.Tx) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := tx.Delete([]byte(key))
		if err != nil {
			return err
		}
		res.Deleted = ok
		if !ok {
			res.Error = reasonNotFound
		}
		return nil
	})
	if err != nil {
		return DeleteResult{}, err
	}
	return res, nil
}

// BulkResult is the number of records bulk_insert stored.
type BulkResult struct {
	Inserted int `json:"inserted"`
}

// BulkInsert stores every record whose key does not exist yet, in ascending
// key order, inside one write scope. Existing keys are skipped silently. All
// keys and values are validated before the scope opens, so a bad entry
// aborts the call with nothing written.
func (r *Repository) BulkInsert(ctx context.Context, path string, recs map[string]any) (BulkResult, error) {
	keys := make([]string, 0, len(recs))
	for k := range recs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	encoded := make([][]byte, len(keys))
	for i, k := range keys {
		if err := checkKey(k); err != nil {
			return BulkResult{}, err
		}
		raw, err := encodeDocument(recs[k])
		if err != nil {
			return BulkResult{}, fmt.Errorf("record %q: %w", k, err)
		}
		encoded[i] = raw
	}

	inserted := 0
	err := r.update(path, func(tx store.Tx) error {
		for i, k := range keys {
			if err := ctx.Err(); err != nil {
				return err
			}
			existing, err := tx.Get([]byte(k))
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}
			if err := tx.Put([]byte(k), encoded[i]); err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return BulkResult{}, err
	}
	logger.Debug("bulk insert", "path", path, "offered", len(keys), "inserted", inserted)
	return BulkResult{Inserted: inserted}, nil
}

func encodeDocument(v any) ([]byte, error) {
	d, err := toDocument("value", v)
	if err != nil {
		return nil, err
	}
	raw, err := d.Encode()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return raw, nil
}

// load reads and decodes key. found is false when key is absent.
func load(tx store.Tx, key string) (*document.Document, bool, error) {
	raw, err := tx.Get([]byte(key))
	if err != nil || raw == nil {
		return nil, false, err
	}
	d, err := decode([]byte(key), raw)
	if err != nil {
		return nil, false, err
	}
	return d, true, nil
}

func save(tx store.Tx, key string, d *document.Document) error {
	raw, err := d.Encode()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return tx.Put([]byte(key), raw)
}
