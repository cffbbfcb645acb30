package stream

import "strings"

// Accumulator appends fragments to the running summary and pushes the whole
// summary to onUpdate after every append.
type Accumulator struct {
	summary   strings.Builder
	fragments int
	onUpdate  func(summary string)
}

func NewAccumulator(onUpdate func(summary string)) *Accumulator {
	return &Accumulator{onUpdate: onUpdate}
}

// Consume reports whether obj carried a fragment. Objects without one leave
// the summary untouched and emit nothing.
func (a *Accumulator) Consume(obj Object) bool {
	fragment, ok := obj.Fragment()
	if !ok {
		return false
	}
	a.summary.WriteString(fragment)
	a.fragments++
	if a.onUpdate != nil {
		a.onUpdate(a.summary.String())
	}
	return true
}

func (a *Accumulator) Summary() string {
	return a.summary.String()
}

func (a *Accumulator) Fragments() int {
	return a.fragments
}

func (a *Accumulator) Reset() {
	a.summary.Reset()
	a.fragments = 0
}
