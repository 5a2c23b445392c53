package session

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"pixwap/internal/encode"
	"pixwap/internal/meta"
	"pixwap/internal/permit"
	"pixwap/pkg/imgutil"
)

// Summary totals one conversion batch.
type Summary struct {
	Matched   int
	Converted int
	Failed    int
	// BytesIn and BytesOut cover successful conversions only.
	BytesIn  int64
	BytesOut int64
}

// Convert runs one batch in the given direction: match entries by source
// suffix, gate write access, convert each match in inventory order, then
// rescan so the new files show up. Failures are isolated per file and
// recorded in the log; only a write-permission refusal aborts the batch
// before it starts. The batch itself runs to completion once started,
// barring context cancellation.
func (s *Session) Convert(ctx context.Context, d Direction) (Summary, error) {
	matched := s.matchEntries(d)
	if len(matched) == 0 {
		s.setStatus(fmt.Sprintf("No %s files to convert", d.SourceSuffix))
		s.emit(Event{Kind: EventBatchDone, Status: s.status()})
		return Summary{}, nil
	}

	s.setConverting(true)
	defer s.setConverting(false)

	sum := Summary{Matched: len(matched)}

	s.setStatus("Requesting write permission")
	if !s.gate.Ensure(s.root, permit.ReadWrite) {
		s.setStatus("Write permission denied")
		s.emit(Event{Kind: EventBatchDone, Status: s.status()})
		return sum, ErrWriteDenied
	}

	for i, name := range matched {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		s.setStatus(fmt.Sprintf("Converting (%d/%d): %s", i+1, len(matched), name))

		entry, in, out := s.convertOne(name, d)
		s.appendLog(entry)
		if entry.OK {
			sum.Converted++
			sum.BytesIn += in
			sum.BytesOut += out
		} else {
			sum.Failed++
		}
	}

	// The derived files belong in the inventory; scan failure here is
	// reported through the status line but does not fail the batch.
	_ = s.Rescan(ctx)

	if sum.Failed == 0 {
		s.setStatus(fmt.Sprintf("Converted %d of %d %s file(s)", sum.Converted, sum.Matched, d.SourceSuffix))
	} else {
		s.setStatus(fmt.Sprintf("Converted %d of %d %s file(s), %d failed", sum.Converted, sum.Matched, d.SourceSuffix, sum.Failed))
	}
	s.emit(Event{Kind: EventBatchDone, Status: s.status()})
	return sum, nil
}

// matchEntries returns the inventory names carrying the direction's
// source suffix, in inventory order. Matching is by name here, not MIME:
// the suffix decides the derived name, and a file whose contents do not
// match its suffix surfaces as a per-file decode failure.
func (s *Session) matchEntries(d Direction) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var names []string
	for _, e := range s.st.Entries {
		if imgutil.HasSuffixFold(e.Name, d.SourceSuffix) {
			names = append(names, e.Name)
		}
	}
	return names
}

// convertOne pushes a single file through read, rasterize, encode and
// write. It never returns an error; the outcome lands in the log entry.
func (s *Session) convertOne(name string, d Direction) (entry LogEntry, bytesIn, bytesOut int64) {
	entry = LogEntry{Source: name}

	data, err := s.readFile(name)
	if err != nil {
		entry.Detail = "read failed: " + err.Error()
		return entry, 0, 0
	}

	src, err := s.rast.Rasterize(data)
	if err != nil {
		entry.Detail = "decode failed: " + err.Error()
		return entry, 0, 0
	}
	out, err := encode.Encode(src, d.TargetMIME)
	src.Release()
	if err != nil {
		entry.Detail = "encode failed: " + err.Error()
		return entry, 0, 0
	}

	derived := imgutil.ReplaceExt(name, d.TargetSuffix)
	entry.Derived = derived
	if err := s.writeFile(derived, out); err != nil {
		entry.Detail = "write failed: " + err.Error()
		return entry, 0, 0
	}

	entry.OK = true
	entry.Detail = humanize.Bytes(uint64(len(out)))
	if details, err := meta.Probe(data, imgutil.KindForMIME(d.SourceMIME)); err == nil && !details.Empty() {
		entry.Detail += ", metadata dropped"
	}
	return entry, int64(len(data)), int64(len(out))
}

func (s *Session) readFile(name string) ([]byte, error) {
	f, err := s.root.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// writeFile creates or truncates name inside the session directory.
// A partial file from a failed write is left in place, matching the
// create-then-stream semantics of the write path.
func (s *Session) writeFile(name string, data []byte) error {
	f, err := s.root.Create(name)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
