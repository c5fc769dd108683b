package records

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"path/filepath"

	"kvdoc/internal/store"

	"golang.org/x/crypto/blake2b"
)

// BackupResult describes a completed backup.
type BackupResult struct {
	BackupPath string `json:"backup_path"`
	Records    int    `json:"records"`
	// Digest is hex BLAKE2b-256 over the length-prefixed key/value stream.
	Digest string `json:"digest"`
}

// Backup copies every pair of the store at src, in key order, into a new
// store at dst inside one write scope on dst. A dst that already holds
// records is refused with ErrUnavailable and left untouched. The copy is
// re-read and its digest compared with the one taken while copying.
func (r *Repository) Backup(ctx context.Context, src, dst string) (BackupResult, error) {
	if src == "" || dst == "" {
		return BackupResult{}, fmt.Errorf("%w: backup needs source and destination paths", ErrInvalidArgument)
	}
	if samePath(src, dst) {
		return BackupResult{}, fmt.Errorf("%w: backup destination is the source", ErrInvalidArgument)
	}

	source, err := r.open(src, true)
	if err != nil {
		return BackupResult{}, err
	}
	defer closeHandle(src, source)

	dest, err := r.open(dst, false)
	if err != nil {
		return BackupResult{}, err
	}
	defer closeHandle(dst, dest)

	sum := newStreamDigest()
	copied := 0
	err = source.View(func(stx store.Tx) error {
		return dest.Update(func(dtx store.Tx) error {
			if err := ensureEmpty(ctx, dtx, dst); err != nil {
				return err
			}
			return scan(ctx, stx, nil, func(k, v []byte) (bool, error) {
				k, v = bytes.Clone(k), bytes.Clone(v)
				if err := dtx.Put(k, v); err != nil {
					return false, err
				}
				sum.add(k, v)
				copied++
				return true, nil
			})
		})
	})
	if err != nil {
		return BackupResult{}, fmt.Errorf("copying %s to %s: %w", src, dst, err)
	}

	verify := newStreamDigest()
	err = dest.View(func(tx store.Tx) error {
		return scan(ctx, tx, nil, func(k, v []byte) (bool, error) {
			verify.add(k, v)
			return true, nil
		})
	})
	if err != nil {
		return BackupResult{}, fmt.Errorf("verifying %s: %w", dst, err)
	}
	if got, want := verify.hex(), sum.hex(); got != want {
		return BackupResult{}, fmt.Errorf("%w: backup %s does not match source (digest %s, want %s)", ErrUnavailable, dst, got, want)
	}

	logger.Info("backup complete", "source", src, "dest", dst, "records", copied)
	return BackupResult{BackupPath: dst, Records: copied, Digest: sum.hex()}, nil
}

func ensureEmpty(ctx context.Context, tx store.Tx, path string) error {
	empty := true
	err := scan(ctx, tx, nil, func(_, _ []byte) (bool, error) {
		empty = false
		return false, nil
	})
	if err != nil {
		return err
	}
	if !empty {
		return fmt.Errorf("%w: backup destination %s already holds records", ErrUnavailable, path)
	}
	return nil
}

// samePath reports whether a and b name the same location once made
// absolute.
func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

type streamDigest struct {
	h hash.Hash
}

func newStreamDigest() *streamDigest {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic(err) // only fails for oversized keys
	}
	return &streamDigest{h: h}
}

func (s *streamDigest) add(k, v []byte) {
	var n [binary.MaxVarintLen64]byte
	s.h.Write(n[:binary.PutUvarint(n[:], uint64(len(k)))])
	s.h.Write(k)
	s.h.Write(n[:binary.PutUvarint(n[:], uint64(len(v)))])
	s.h.Write(v)
}

func (s *streamDigest) hex() string {
	return hex.EncodeToString(s.h.Sum(nil))
}
