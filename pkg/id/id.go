// Package id generates prefixed, time-sortable identifiers for ledger records.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Kind is the prefix that names what an identifier refers to.
type Kind string

const (
	Account     Kind = "acct"
	Transaction Kind = "txn"
)

var (
	mu   sync.Mutex
	mono io.Reader
)

func init() {
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	// Monotonic entropy keeps IDs minted within the same millisecond ordered.
	mono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// New returns an identifier of the form "<kind>_<ULID>".
//
// The ULID part sorts lexicographically by creation time, so transaction IDs
// double as a tiebreak when two records share a timestamp.
func New(k Kind) string {
	return NewAt(k, time.Now())
}

// NewAt is New with an explicit timestamp.
func NewAt(k Kind, t time.Time) string {
	mu.Lock()
	defer mu.Unlock()

	u, err := ulid.New(ulid.Timestamp(t.UTC()), mono)
	if err != nil {
		// Only possible if the clock runs backwards past the monotonic window.
		panic(err)
	}
	return string(k) + "_" + u.String()
}

// Parse splits an identifier into its kind and ULID, rejecting anything that
// does not match the expected kind.
func Parse(want Kind, s string) (ulid.ULID, error) {
	prefix, raw, ok := strings.Cut(s, "_")
	if !ok || Kind(prefix) != want {
		return ulid.ULID{}, fmt.Errorf("id %q: want %s_ prefix", s, want)
	}
	u, err := ulid.ParseStrict(raw)
	if err != nil {
		return ulid.ULID{}, fmt.Errorf("id %q: %w", s, err)
	}
	return u, nil
}

// Time reports when an identifier was minted.
func Time(want Kind, s string) (time.Time, error) {
	u, err := Parse(want, s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()).UTC(), nil
}
