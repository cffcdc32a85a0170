package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"sta-hq/verdict/pkg/engine"
	"sta-hq/verdict/pkg/envelope"
	"sta-hq/verdict/pkg/evidence/recorder"
)

// streamRecord is one output line of "verdict run". Exactly one of Result
// and Error is set.
type streamRecord struct {
	Line       int            `json:"line"`
	EnvelopeID string         `json:"envelope_id,omitempty"`
	Result     *engine.Result `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// streamStats counts what a stream processed.
type streamStats struct {
	Evaluated int
	Invalid   int
	Recorded  int
}

// invalidCounter is told about records that never reach the engine.
type invalidCounter interface {
	RecordInvalidEnvelope()
}

// streamer evaluates envelopes one at a time as they arrive and writes one
// NDJSON line per input record. Each envelope is evaluated against the
// snapshot current at the time it is read, so reloads take effect between
// records.
type streamer struct {
	engine   *engine.Engine
	recorder *recorder.Recorder
	runID    string
	invalid  invalidCounter
	logger   *slog.Logger
}

type decoded struct {
	env  *envelope.Envelope
	err  error
	line int
}

// Run reads r until EOF or ctx is done. Decode and validation failures are
// written as error lines and do not stop the stream.
//
// When Run returns, r is closed if it is an io.Closer so the reading
// goroutine unblocks. A reader that cannot be interrupted, such as a
// terminal on stdin, leaves that goroutine parked in Read until the
// process exits.
func (s *streamer) Run(ctx context.Context, r io.Reader, w io.Writer) (streamStats, error) {
	var stats streamStats

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if c, ok := r.(io.Closer); ok {
		defer c.Close()
	}

	records := make(chan decoded)
	readErr := make(chan error, 1)
	go func() {
		defer close(records)
		readErr <- decodeStream(ctx, r, records)
	}()

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	for {
		var d decoded
		var ok bool
		select {
		case <-ctx.Done():
			return stats, nil
		case d, ok = <-records:
		}
		if !ok {
			return stats, <-readErr
		}

		out := streamRecord{Line: d.line}
		if d.err != nil {
			stats.Invalid++
			out.Error = d.err.Error()
			if s.invalid != nil {
				s.invalid.RecordInvalidEnvelope()
			}
		} else {
			snap := s.engine.Snapshot()
			res, err := s.engine.Evaluate(ctx, d.env)
			out.EnvelopeID = res.EnvelopeID
			if err != nil {
				stats.Invalid++
				out.Error = err.Error()
			} else {
				stats.Evaluated++
				out.Result = &res
				if s.recorder != nil && s.recorder.Enqueue(s.runID, snap, res) {
					stats.Recorded++
				}
			}
		}

		if err := enc.Encode(out); err != nil {
			return stats, err
		}
	}
}

// decodeStream feeds decoded records to out until EOF, a read error or ctx
// is done.
func decodeStream(ctx context.Context, r io.Reader, out chan<- decoded) error {
	dec := envelope.NewDecoder(r)
	for {
		env, err := dec.Next()
		if err == io.EOF {
			return nil
		}
		var decodeErr *envelope.DecodeError
		if err != nil && !errors.As(err, &decodeErr) {
			return err
		}
		select {
		case out <- decoded{env: env, err: err, line: dec.Line()}:
		case <-ctx.Done():
			return nil
		}
	}
}
