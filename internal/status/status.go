// Package status holds the connectivity/sync indicator shown to the user.
package status

import "sync"

// Kind selects how a status is styled.
type Kind string

const (
	KindNone       Kind = ""
	KindLoading    Kind = "loading"
	KindConnecting Kind = "connecting"
	KindError      Kind = "error"
	KindSuccess    Kind = "success"
)

// Animated reports whether the kind is shown with a spinner.
func (k Kind) Animated() bool {
	return k == KindLoading || k == KindConnecting
}

// Status is a single indicator value.
type Status struct {
	Text string
	Kind Kind
}

// Sink receives status updates.
type Sink interface {
	Set(text string, kind Kind)
}

// Display keeps the last status shown. It is safe for concurrent use.
type Display struct {
	mu       sync.RWMutex
	current  Status
	onChange func(Status)
}

// NewDisplay creates an empty Display.
func NewDisplay() *Display {
	return &Display{}
}

// Set replaces the current status and fires the change hook.
func (d *Display) Set(text string, kind Kind) {
	s := Status{Text: text, Kind: kind}

	d.mu.Lock()
	d.current = s
	fn := d.onChange
	d.mu.Unlock()

	if fn != nil {
		fn(s)
	}
}

// Current returns the last status set.
func (d *Display) Current() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current
}

// OnChange registers fn to be called after every Set. Pass nil to clear it.
func (d *Display) OnChange(fn func(Status)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onChange = fn
}

// Discard is a Sink that drops every update.
var Discard Sink = discard{}

type discard struct{}

func (discard) Set(string, Kind) {}
