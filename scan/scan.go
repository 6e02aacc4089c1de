// Package scan walks a host buffer offset by offset and extracts every image
// it can find.
//
// Formats with a carver are cut out byte for byte. Everything else the
// detector recognizes is handed to a codec, which decodes the candidate and
// re-encodes it as a standalone file. A candidate that fails either way is
// logged and dropped; it never stops the scan.
package scan

import (
	"fmt"
	"sync"

	"github.com/sebnyberg/imgcarve"
	"github.com/sebnyberg/imgcarve/bmpx"
	"github.com/sebnyberg/imgcarve/codec"
	"github.com/sebnyberg/imgcarve/gifx"
	"github.com/sebnyberg/imgcarve/magic"
	"go.uber.org/zap"
)

// Artifact is one extracted image.
type Artifact struct {
	// Offset is where the candidate starts in the host buffer.
	Offset int
	// Detected is the format found at Offset.
	Detected magic.Format
	// Format is the format of Data. It differs from Detected when the codec
	// had to re-encode into another format.
	Format magic.Format
	// Carved is set when Data is the exact byte range Range of the host.
	Carved bool
	Range  imgcarve.Range
	Data   []byte
	// GIF describes carved GIF streams.
	GIF *gifx.Info
}

// Name is a file name for the artifact, unique within one host buffer.
func (a Artifact) Name() string {
	return fmt.Sprintf("%08x.%s", a.Offset, a.Format.Ext())
}

type Stats struct {
	Candidates int
	Extracted  int
	Failed     int
}

// DefaultCarvers returns carvers for every format that can be carved.
func DefaultCarvers(opts *gifx.Options) map[magic.Format]imgcarve.Carver {
	return map[magic.Format]imgcarve.Carver{
		magic.GIF: &gifx.Carver{Options: opts},
		magic.BMP: new(bmpx.Carver),
	}
}

type Scanner struct {
	// Carvers cut out candidates of their format.
	Carvers map[magic.Format]imgcarve.Carver
	// Codec transcodes candidates without a carver. Nil skips them.
	Codec codec.Codec
	// Logger receives per-candidate debug logs. Nil disables logging.
	Logger *zap.Logger
	// Workers is the number of candidates processed in parallel. Values
	// below 1 mean 1.
	Workers int
}

type candidate struct {
	offset int
	format magic.Format
}

// blockCarver is implemented by carvers that can also report the blocks of
// what they carved.
type blockCarver interface {
	Blocks(host []byte, start int) (imgcarve.Range, []gifx.Block, error)
}

// Scan looks for candidates at every offset of host and calls emit for each
// extracted artifact. Calls to emit are serialized; with more than one
// worker they are not ordered by offset. Artifact data may alias host.
//
// Scan stops at the first error returned by emit and returns it.
func (s *Scanner) Scan(host []byte, emit func(Artifact) error) (Stats, error) {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := s.Workers
	if workers < 1 {
		workers = 1
	}

	var (
		mu      sync.Mutex
		stats   Stats
		emitErr error
		once    sync.Once
		wg      sync.WaitGroup
	)
	done := make(chan struct{})
	stop := func(err error) {
		once.Do(func() {
			emitErr = err
			close(done)
		})
	}

	cands := make(chan candidate, 4*workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range cands {
				a, err := s.process(host, c)

				mu.Lock()
				if err != nil {
					stats.Failed++
					logger.Debug("candidate discarded",
						zap.Int("offset", c.offset),
						zap.Stringer("format", c.format),
						zap.Error(err),
					)
					mu.Unlock()
					continue
				}
				select {
				case <-done:
				default:
					logger.Debug("candidate extracted",
						zap.Int("offset", c.offset),
						zap.Stringer("format", a.Format),
						zap.Int("size", len(a.Data)),
					)
					if err := emit(a); err != nil {
						stop(err)
					} else {
						stats.Extracted++
					}
				}
				mu.Unlock()
			}
		}()
	}

	candidates := 0
feed:
	for i := range host {
		f := magic.Detect(host[i:])
		if f == magic.Unknown || !s.handles(f) {
			continue
		}
		candidates++
		select {
		case cands <- candidate{offset: i, format: f}:
		case <-done:
			break feed
		}
	}
	close(cands)
	wg.Wait()

	stats.Candidates = candidates
	return stats, emitErr
}

func (s *Scanner) handles(f magic.Format) bool {
	if _, ok := s.Carvers[f]; ok {
		return true
	}
	return s.Codec != nil
}

func (s *Scanner) process(host []byte, c candidate) (Artifact, error) {
	a := Artifact{Offset: c.offset, Detected: c.format, Format: c.format}

	carver, ok := s.Carvers[c.format]
	if !ok {
		data, f, err := s.Codec.Transcode(c.format, host[c.offset:])
		if err != nil {
			return Artifact{}, err
		}
		a.Format, a.Data = f, data
		return a, nil
	}

	if bc, ok := carver.(blockCarver); ok {
		r, blocks, err := bc.Blocks(host, c.offset)
		if err != nil {
			return Artifact{}, err
		}
		info := gifx.Describe(r.Bytes(host), blocks)
		a.GIF = &info
		a.Range = r
	} else {
		r, err := carver.Carve(host, c.offset)
		if err != nil {
			return Artifact{}, err
		}
		a.Range = r
	}
	a.Carved = true
	a.Data = a.Range.Bytes(host)
	return a, nil
}
