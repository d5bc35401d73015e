package transcript

import (
	"sync"

	"github.com/ragchat/chatstream/log"
	"github.com/ragchat/chatstream/wire"
)

// Assembler wraps the reducer with the streaming-lifecycle flag. Loading
// becomes true the moment a human message is applied (send time) or an AI
// turn starts, and false on stop, error, or when the connection leaves the
// open state. At most one AI turn is treated as open at a time; a second
// start while one is streaming implicitly supersedes it.
//
// All mutation is expected to happen on a single reconciliation goroutine;
// the mutex only guards snapshot reads from other goroutines.
type Assembler struct {
	mu      sync.RWMutex
	current *Transcript
	loading bool
	logger  log.Logger
}

// NewAssembler creates an assembler over an empty transcript.
func NewAssembler(logger log.Logger) *Assembler {
	if logger == nil {
		logger = log.Default()
	}
	return &Assembler{current: New(), logger: logger}
}

// Apply routes one fragment through the reducer and updates the loading
// flag. It returns the new snapshot.
func (a *Assembler) Apply(frag wire.Fragment) *Transcript {
	a.mu.Lock()
	defer a.mu.Unlock()

	before := a.current
	a.current = reduce(a.current, frag, a.logger)

	switch {
	case frag.Role == wire.RoleHuman:
		a.loading = true
	case frag.Type == wire.TypeStart:
		a.loading = true
	case frag.Type == wire.TypeStop, frag.Type == wire.TypeError:
		// Only a routable stop/error clears the flag; a stray one for an
		// unknown turn was dropped and changes nothing.
		if a.current != before || a.stopFor(frag.ID) {
			a.loading = false
		}
	}
	return a.current
}

// stopFor reports whether a duplicate stop addressed an existing turn. The
// reducer ignores the duplicate, but the turn is genuinely finished.
func (a *Assembler) stopFor(id string) bool {
	return a.current.find(id, wire.RoleAI) >= 0
}

// Interrupt clears the loading flag without touching the transcript. Called
// when the socket leaves the open state: a cancelled turn keeps its partial
// output.
func (a *Assembler) Interrupt() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.loading = false
}

// Loading reports whether an AI turn is currently streaming.
func (a *Assembler) Loading() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loading
}

// Snapshot returns the current immutable transcript.
func (a *Assembler) Snapshot() *Transcript {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

// Reset replaces the transcript wholesale, e.g. when seeding from fetched
// history or after a clear. Loading is reset as well.
func (a *Assembler) Reset(t *Transcript) {
	if t == nil {
		t = New()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = t
	a.loading = false
}

// SetFeedback applies a feedback mutation and publishes the new snapshot.
func (a *Assembler) SetFeedback(messageID string, fb wire.Feedback) (*Transcript, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	next, _, err := ApplyFeedback(a.current, messageID, fb)
	if err != nil {
		return a.current, err
	}
	a.current = next
	return a.current, nil
}
