package stats

// Logger is the capability every component that reports telemetry
// depends on. Scoping is non-destructive: Scope returns a wrapper that
// prepends its prefix to every id logged through it, leaving the
// receiver untouched.
type Logger interface {
	// Log records v under id. It returns nothing — callers log from
	// hot loops where a returned error would force awkward plumbing.
	// Logging the same id with a different Value variant than it was
	// first logged with is a programming error: ChunkedLogger panics.
	Log(id Id, v Value)

	// Scope returns a Logger that prepends name to every id logged
	// through it.
	Scope(name string) Logger

	// Group returns a scoped handle and a closer. While the handle is
	// open, chunk flushing on the underlying sink is deferred, so a
	// logical update's metrics land in a single chunk. Calling the
	// closer ends the deferral.
	Group() (Logger, func())
}

// Nop is a Logger that discards everything. Used where a logger is
// optional (env.Environment.Step's logger argument may be nil, but
// callers that always want a Logger value can use Nop instead of
// threading a nil check everywhere).
type Nop struct{}

func (Nop) Log(Id, Value)          {}
func (Nop) Scope(string) Logger    { return Nop{} }
func (Nop) Group() (Logger, func()) { return Nop{}, func() {} }
