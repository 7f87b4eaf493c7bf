// Package idgen generates the human-readable "friendly" identifiers used
// throughout the run trigger pipeline (run_..., worker_...), distinct from
// the database primary keys.
package idgen

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator produces lowercase, monotonically-ordered ULIDs. A single
// Generator is safe for concurrent use; entropy is shared and serialized
// under a mutex so ordering holds across goroutines within one process.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// New creates a Generator seeded from the current time.
func New() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

// Generate returns a new lowercase ULID string.
func (g *Generator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
	return strings.ToLower(id.String())
}

// WithPrefix returns a new friendly id of the form "<prefix>_<ulid>",
// e.g. WithPrefix("run") -> "run_01h4pg5qr7kjb9s8vw9x1234mt".
func (g *Generator) WithPrefix(prefix string) string {
	return prefix + "_" + g.Generate()
}

var def = New()

// Default returns the package-level generator, useful for call sites that
// don't want to thread a *Generator through their constructor.
func Default() *Generator { return def }
