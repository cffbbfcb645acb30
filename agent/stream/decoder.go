package stream

import (
	"errors"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decoder turns byte chunks into UTF-8 text. A multi-byte sequence split
// across chunks is held back until the rest of it arrives.
type Decoder struct {
	t       transform.Transformer
	pending []byte
	dst     []byte
}

func NewDecoder() *Decoder {
	return &Decoder{
		t:   unicode.UTF8.NewDecoder(),
		dst: make([]byte, 4096),
	}
}

// Decode returns the text completed by chunk. Invalid bytes become U+FFFD.
func (d *Decoder) Decode(chunk []byte) string {
	return d.run(chunk, false)
}

// Flush returns whatever is still held back, decoding an incomplete trailing
// sequence as U+FFFD, and resets the decoder.
func (d *Decoder) Flush() string {
	out := d.run(nil, true)
	d.Reset()
	return out
}

func (d *Decoder) Reset() {
	d.t.Reset()
	d.pending = d.pending[:0]
}

func (d *Decoder) run(chunk []byte, atEOF bool) string {
	src := chunk
	if len(d.pending) > 0 {
		src = append(d.pending, chunk...)
	}
	if len(src) == 0 {
		return ""
	}

	var out []byte
	for {
		nDst, nSrc, err := d.t.Transform(d.dst, src, atEOF)
		out = append(out, d.dst[:nDst]...)
		src = src[nSrc:]

		switch {
		case errors.Is(err, transform.ErrShortDst):
			if nSrc == 0 && nDst == 0 {
				d.dst = make([]byte, 2*len(d.dst))
			}
			continue
		case errors.Is(err, transform.ErrShortSrc):
			d.pending = append(d.pending[:0], src...)
			return string(out)
		default:
			d.pending = d.pending[:0]
			return string(out)
		}
	}
}
