package stream

import (
	"github.com/rs/zerolog"
)

// Stats counts what a pipeline has seen.
type Stats struct {
	Objects       int `json:"objects"`
	Fragments     int `json:"fragments"`
	Malformed     int `json:"malformed"`
	ResidualBytes int `json:"residual_bytes"`
}

// Pipeline feeds byte chunks through decoding, extraction, parsing and
// accumulation in arrival order.
type Pipeline struct {
	dec    *Decoder
	ext    *Extractor
	acc    *Accumulator
	logger zerolog.Logger
	stats  Stats
}

type PipelineOption func(*Pipeline)

func WithExtractorOptions(opts ...ExtractorOption) PipelineOption {
	return func(p *Pipeline) {
		p.ext = NewExtractor(opts...)
	}
}

func WithLogger(logger zerolog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

func NewPipeline(onUpdate func(summary string), opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		dec:    NewDecoder(),
		ext:    NewExtractor(),
		acc:    NewAccumulator(onUpdate),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Feed processes one chunk and reports how many fragments it appended.
func (p *Pipeline) Feed(chunk []byte) int {
	return p.write(p.dec.Decode(chunk))
}

// Close flushes the decoder and drops any unclosed residue.
func (p *Pipeline) Close() Stats {
	p.write(p.dec.Flush())
	p.stats.ResidualBytes = len(p.ext.Residual())
	if p.stats.ResidualBytes > 0 {
		p.logger.Debug().
			Int("residual_bytes", p.stats.ResidualBytes).
			Int("depth", p.ext.Depth()).
			Msg("discarding unterminated stream residue")
	}
	p.ext.Reset()
	return p.stats
}

func (p *Pipeline) Summary() string {
	return p.acc.Summary()
}

func (p *Pipeline) Stats() Stats {
	return p.stats
}

func (p *Pipeline) write(text string) int {
	if text == "" {
		return 0
	}
	p.ext.Write(text)

	appended := 0
	for candidate := range p.ext.Candidates() {
		p.stats.Objects++
		obj, err := Parse(candidate)
		if err != nil {
			p.stats.Malformed++
			p.logger.Debug().Err(err).Int("candidate_bytes", len(candidate)).Msg("dropping malformed fragment")
			continue
		}
		if p.acc.Consume(obj) {
			appended++
			p.stats.Fragments++
		}
		if reason := obj.FinishReason(); reason != "" {
			p.logger.Debug().Str("finish_reason", reason).Msg("candidate finished")
		}
	}
	return appended
}
