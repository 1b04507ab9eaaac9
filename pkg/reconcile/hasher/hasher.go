// Package hasher computes content digests for cataloged files.
//
// Digests are SHA-256, hex-encoded lowercase. Files at or above the
// configured cap are identified by their leading cap bytes only, which keeps
// hashing large media libraries cheap at the cost of treating files that
// agree in their first cap bytes as identical.
package hasher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/jamesainslie/reconcile/pkg/reconcile/types"
)

const (
	// DefaultCap is the default partial-hash cap. Files this large or
	// larger have only their first DefaultCap bytes hashed.
	DefaultCap = 10 * types.MiB

	// blockSize is the read granularity. 512 blocks make up one
	// DefaultCap worth of data.
	blockSize = 20 * 1024
)

// Hasher computes file digests with a shared buffer pool. It is safe for
// concurrent use.
type Hasher struct {
	cap  int64
	pool *sync.Pool
}

// New returns a Hasher with the given partial-hash cap. A cap of zero
// disables partial hashing: every file is hashed in full.
func New(cap int64) *Hasher {
	if cap < 0 {
		cap = 0
	}
	return &Hasher{
		cap: cap,
		pool: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, blockSize)
				return &buf
			},
		},
	}
}

// Cap returns the configured partial-hash cap in bytes (0 = unlimited).
func (h *Hasher) Cap() int64 { return h.cap }

// Hash computes the digest of the file at path. It returns the lowercase
// hex digest and the number of bytes read. Reads are capped at the
// configured limit; cancellation is checked between blocks.
func (h *Hasher) Hash(ctx context.Context, path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sum := sha256.New()

	bufPtr := h.pool.Get().(*[]byte)
	buf := *bufPtr
	defer h.pool.Put(bufPtr)

	var total int64
	for {
		select {
		case <-ctx.Done():
			return "", total, ctx.Err()
		default:
		}

		limit := int64(len(buf))
		if h.cap > 0 {
			if remaining := h.cap - total; remaining < limit {
				limit = remaining
			}
		}
		if limit == 0 {
			break
		}

		n, err := f.Read(buf[:limit])
		if n > 0 {
			sum.Write(buf[:n])
			total += int64(n)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", total, fmt.Errorf("read %s: %w", path, err)
		}
	}

	return hex.EncodeToString(sum.Sum(nil)), total, nil
}
