package audit

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/residue/pkg/residue/catalog"
	"github.com/cognicore/residue/pkg/residue/config"
	"github.com/cognicore/residue/pkg/residue/mask"
	"github.com/cognicore/residue/pkg/residue/match"
)

// Context is the immutable per-run state shared by every worker: the
// catalog, its compiled matchers, the settings and the masking engine.
// Build it with NewContext.
type Context struct {
	Catalog  *catalog.Catalog
	Matchers *match.Set
	Settings config.Settings
	engine   *mask.Engine
	ids      *IDSource
}

// NewContext compiles the matchers once for the run.
func NewContext(cat *catalog.Catalog, settings config.Settings) *Context {
	if cat == nil {
		cat = catalog.Empty()
	}
	matchers := match.Compile(cat)
	return &Context{
		Catalog:  cat,
		Matchers: matchers,
		Settings: settings,
		engine:   mask.NewEngine(cat, matchers, settings.MaskThresholds()),
		ids:      NewIDSource(),
	}
}

// Engine returns the masking engine bound to this context.
func (c *Context) Engine() *mask.Engine { return c.engine }

// IDSource issues monotonic ULIDs.
type IDSource struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewIDSource creates an ID source seeded from crypto/rand.
func NewIDSource() *IDSource {
	return &IDSource{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// New returns a ULID for time t.
func (s *IDSource) New(t time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}
