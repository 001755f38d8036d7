// Package id generates ULID identifiers for signals, positions and
// journal rows. ULIDs sort lexicographically by creation time, which
// keeps SQLite indexes append-friendly and makes journal output read
// in order.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type generator struct {
	mu      sync.Mutex
	entropy io.Reader
}

var gen = newGenerator()

func newGenerator() *generator {
	// Seed a PRNG from crypto/rand; ulid.Monotonic keeps IDs minted in
	// the same millisecond strictly increasing.
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &generator{entropy: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)}
}

// New returns a fresh ULID string stamped with the current UTC time.
func New() string {
	return NewAt(time.Now())
}

// NewAt mints a ULID for the given instant. Exposed so replay runs can
// stamp identifiers with simulated time.
func NewAt(t time.Time) string {
	gen.mu.Lock()
	defer gen.mu.Unlock()

	u, err := ulid.New(ulid.Timestamp(t.UTC()), gen.entropy)
	if err != nil {
		// Only possible if entropy is exhausted or time overflows.
		panic(err)
	}
	return u.String()
}
