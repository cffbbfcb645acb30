package stream

import "iter"

// Extractor pulls balanced {...} regions out of text that arrives in pieces.
//
// Scanning is a plain brace count: braces inside JSON string literals are
// counted too, so a fragment containing '{' or '}' desynchronizes the count.
// WithStringAware makes the scanner skip string literals instead.
//
// Emitted text is dropped by advancing a read offset. The buffer is compacted
// only once the dead prefix outweighs the live text, so every byte is scanned
// once and copied a bounded number of times.
type Extractor struct {
	buf     []byte
	head    int
	scanned int
	depth   int
	start   int

	stringAware bool
	inString    bool
	escaped     bool
}

type ExtractorOption func(*Extractor)

// WithStringAware ignores braces inside quoted strings, honoring backslash
// escapes.
func WithStringAware(enabled bool) ExtractorOption {
	return func(e *Extractor) {
		e.stringAware = enabled
	}
}

func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{start: -1}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Write appends decoded text to the buffer.
func (e *Extractor) Write(text string) {
	e.compact()
	e.buf = append(e.buf, text...)
}

// Next scans unscanned text and returns the next complete candidate. Text up
// to and including the candidate's closing brace is removed from the buffer.
func (e *Extractor) Next() (string, bool) {
	for i := e.scanned; i < len(e.buf); i++ {
		c := e.buf[i]

		if e.stringAware && e.depth > 0 {
			if e.inString {
				switch {
				case e.escaped:
					e.escaped = false
				case c == '\\':
					e.escaped = true
				case c == '"':
					e.inString = false
				}
				continue
			}
			if c == '"' {
				e.inString = true
				continue
			}
		}

		switch c {
		case '{':
			if e.depth == 0 {
				e.start = i
			}
			e.depth++
		case '}':
			if e.depth == 0 {
				// stray closer outside any object
				continue
			}
			e.depth--
			if e.depth == 0 && e.start >= 0 {
				candidate := string(e.buf[e.start : i+1])
				e.consume(i + 1)
				return candidate, true
			}
		}
	}
	e.scanned = len(e.buf)
	return "", false
}

// Candidates yields every candidate completed by the text written so far.
func (e *Extractor) Candidates() iter.Seq[string] {
	return func(yield func(string) bool) {
		for {
			candidate, ok := e.Next()
			if !ok {
				return
			}
			if !yield(candidate) {
				return
			}
		}
	}
}

// Residual returns the unconsumed text.
func (e *Extractor) Residual() string {
	return string(e.buf[e.head:])
}

// Depth reports the current nesting level.
func (e *Extractor) Depth() int {
	return e.depth
}

func (e *Extractor) Reset() {
	e.buf = e.buf[:0]
	e.head = 0
	e.scanned = 0
	e.depth = 0
	e.start = -1
	e.inString = false
	e.escaped = false
}

// consume drops everything before offset n.
func (e *Extractor) consume(n int) {
	e.head = n
	e.scanned = n
	e.start = -1
	if e.head == len(e.buf) {
		e.buf = e.buf[:0]
		e.head = 0
		e.scanned = 0
	}
}

// compact moves live text to the front once at least half the buffer is
// already consumed.
func (e *Extractor) compact() {
	if e.head == 0 || e.head < len(e.buf)-e.head {
		return
	}
	live := copy(e.buf, e.buf[e.head:])
	e.buf = e.buf[:live]
	e.scanned -= e.head
	if e.start >= 0 {
		e.start -= e.head
	}
	e.head = 0
}
