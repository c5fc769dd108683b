package records

import (
	"bytes"
	"context"

	"kvdoc/internal/document"
	"kvdoc/internal/store"
)

// PendingResult is the next pending record, or nulls when none is left.
type PendingResult struct {
	Key   *string            `json:"key"`
	Value *document.Document `json:"value"`
}

// NextPending returns the first record after afterKey whose column holds the
// pending sentinel (the number 1). An empty afterKey starts at the first
// key. When afterKey exists it is skipped, so feeding back the returned key
// always makes progress; when it does not exist the scan starts at the next
// greater key.
func (r *Repository) NextPending(ctx context.Context, path, column, afterKey string) (PendingResult, error) {
	var res PendingResult
	err := r.view(path, func(tx store.Tx) error {
		c, err := tx.Cursor()
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()

		var ok bool
		if afterKey == "" {
			ok = c.First()
		} else {
			after := []byte(afterKey)
			ok = c.Seek(after)
			if ok && bytes.Equal(c.Key(), after) {
				ok = c.Next()
			}
		}

		for ; ok; ok = c.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			d, err := decode(c.Key(), c.Value())
			if err != nil {
				return err
			}
			if d.Matches(column, pendingSentinel) {
				key := string(c.Key())
				res = PendingResult{Key: &key, Value: d}
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return PendingResult{}, err
	}
	return res, nil
}
