package render

import contractx "github.com/tanpawarit/video-summarizer/agent/contract"

// Multi fans every call out to each sink in order.
type Multi []contractx.Sink

func NewMulti(sinks ...contractx.Sink) Multi {
	out := make(Multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m Multi) Begin(op contractx.Operation) {
	for _, s := range m {
		s.Begin(op)
	}
}

func (m Multi) Update(summary string) {
	for _, s := range m {
		s.Update(summary)
	}
}

func (m Multi) Fail(message string) {
	for _, s := range m {
		s.Fail(message)
	}
}

func (m Multi) End(res contractx.Result) {
	for _, s := range m {
		s.End(res)
	}
}
