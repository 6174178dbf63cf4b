// Package replay feeds recorded position traces into the engine tick loop.
//
// A trace is CSV with columns entity,x,y,unix_ms and an optional fifth
// column "leave" marking the entity as gone. An optional header row is
// skipped. Rows must be ordered by time.
package replay

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/udisondev/geozone/internal/engine"
)

// Source replays a trace relative to the time of the first Poll: a row
// recorded d after the first row is released d/Speed after the first Poll.
type Source struct {
	r     *csv.Reader
	close func() error
	speed float64

	record  int
	pending *engine.Sample
	eof     bool

	first  time.Time // trace time of the first row
	origin time.Time // wall time of the first Poll
}

var _ engine.Source = (*Source)(nil)

// Options configures a Source.
type Options struct {
	// Speed multiplies trace time; 0 means 1. A negative value releases
	// every row on the first Poll.
	Speed float64
}

// NewSource reads a trace from r.
func NewSource(r io.Reader, opts Options) *Source {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	speed := opts.Speed
	if speed == 0 {
		speed = 1
	}

	return &Source{r: cr, speed: speed}
}

// Open opens a trace file. Close releases it.
func Open(path string, opts Options) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trace %s: %w", path, err)
	}

	s := NewSource(f, opts)
	s.close = f.Close
	return s, nil
}

// Close closes the underlying file, if any.
func (s *Source) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Poll returns the rows due at now. It returns io.EOF together with the
// last rows once the trace is exhausted.
func (s *Source) Poll(ctx context.Context, now time.Time) ([]engine.Sample, error) {
	if s.origin.IsZero() {
		s.origin = now
	}

	var out []engine.Sample
	for {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		if s.pending == nil {
			if s.eof {
				return out, io.EOF
			}
			sample, err := s.next()
			if errors.Is(err, io.EOF) {
				s.eof = true
				continue
			}
			if err != nil {
				return out, err
			}
			s.pending = &sample
		}

		if s.speed > 0 && s.release(s.pending.At).After(now) {
			return out, nil
		}

		sample := *s.pending
		sample.At = s.release(sample.At)
		out = append(out, sample)
		s.pending = nil
	}
}

// release переводит время трассы во время воспроизведения.
func (s *Source) release(at time.Time) time.Time {
	if s.speed <= 0 {
		return s.origin
	}
	return s.origin.Add(time.Duration(float64(at.Sub(s.first)) / s.speed))
}

func (s *Source) next() (engine.Sample, error) {
	for {
		rec, err := s.r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return engine.Sample{}, io.EOF
			}
			return engine.Sample{}, fmt.Errorf("reading trace: %w", err)
		}
		s.record++

		if s.record == 1 && len(rec) > 1 && rec[1] == "x" {
			continue // header
		}

		sample, err := parseRecord(rec)
		if err != nil {
			return engine.Sample{}, fmt.Errorf("trace record %d: %w", s.record, err)
		}
		if s.first.IsZero() {
			s.first = sample.At
		}
		if sample.At.Before(s.first) {
			return engine.Sample{}, fmt.Errorf("trace record %d: time goes backwards", s.record)
		}
		return sample, nil
	}
}

func parseRecord(rec []string) (engine.Sample, error) {
	if len(rec) < 4 || len(rec) > 5 {
		return engine.Sample{}, fmt.Errorf("want 4 or 5 fields, got %d", len(rec))
	}
	if rec[0] == "" {
		return engine.Sample{}, errors.New("empty entity id")
	}

	x, err := strconv.ParseFloat(rec[1], 64)
	if err != nil {
		return engine.Sample{}, fmt.Errorf("parsing x: %w", err)
	}
	y, err := strconv.ParseFloat(rec[2], 64)
	if err != nil {
		return engine.Sample{}, fmt.Errorf("parsing y: %w", err)
	}
	ms, err := strconv.ParseInt(rec[3], 10, 64)
	if err != nil {
		return engine.Sample{}, fmt.Errorf("parsing unix_ms: %w", err)
	}

	sample := engine.Sample{EntityID: rec[0], X: x, Y: y, At: time.UnixMilli(ms)}
	if len(rec) == 5 {
		switch rec[4] {
		case "leave":
			sample.Gone = true
		case "":
		default:
			return engine.Sample{}, fmt.Errorf("unknown flag %q", rec[4])
		}
	}

	return sample, nil
}
