// Package session owns the state of one opened directory: the image
// inventory, the rolling status line and the conversion log. All reads go
// through Snapshot, so a UI can render concurrently with a running scan
// or batch; mutation happens only through Rescan and Convert.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/text/collate"

	"pixwap/internal/permit"
	"pixwap/internal/raster"
	"pixwap/internal/scan"
)

// Sentinel errors for batch-level aborts. Per-file failures never abort
// a batch; they land in the log instead.
var (
	ErrReadDenied  = errors.New("read permission denied")
	ErrWriteDenied = errors.New("write permission denied")
)

// DefaultLogLimit caps the conversion log when Options leaves it zero.
const DefaultLogLimit = 20

// LogEntry records the outcome of one attempted conversion.
type LogEntry struct {
	OK      bool
	Source  string
	Derived string
	// Detail is the output size for successes and the failure reason
	// otherwise.
	Detail string
}

// State is a point-in-time copy of the session, safe to keep.
type State struct {
	Dir       string
	Entries   []scan.Entry
	PNGCount  int
	WebPCount int
	// Log holds the most recent outcomes, newest first.
	Log    []LogEntry
	Status string

	// Scanning and Converting are busy flags; interactive callers
	// disable triggers while either is set.
	Scanning   bool
	Converting bool
}

// Gate is the consent check Convert and Rescan run before touching the
// directory.
type Gate interface {
	Ensure(root *os.Root, mode permit.Mode) bool
}

// Options configures a Session. Zero values get working defaults, except
// Gate, which falls back to a non-interactive gate that refuses write
// prompts.
type Options struct {
	Gate       Gate
	Rasterizer raster.Rasterizer
	Collator   *collate.Collator
	LogLimit   int

	// Updates, when non-nil, receives an Event for every status, log
	// and completion change. The consumer must keep draining it until
	// the session closes; sends block like any channel send.
	Updates chan<- Event
}

// Session binds a directory handle to the scan and conversion machinery.
type Session struct {
	root *os.Root
	gate Gate
	rast raster.Rasterizer
	coll *collate.Collator

	logLimit int
	updates  chan<- Event

	mu sync.Mutex
	st State
}

// New wraps an opened directory. The session takes ownership of root and
// closes it in Close.
func New(root *os.Root, opts Options) *Session {
	gate := opts.Gate
	if gate == nil {
		gate = permit.New(nil)
	}
	rast := opts.Rasterizer
	if rast == nil {
		rast = raster.Select("auto")
	}
	limit := opts.LogLimit
	if limit <= 0 {
		limit = DefaultLogLimit
	}

	return &Session{
		root:     root,
		gate:     gate,
		rast:     rast,
		coll:     opts.Collator,
		logLimit: limit,
		updates:  opts.Updates,
		st:       State{Dir: root.Name(), Status: "Ready"},
	}
}

// Close releases the directory handle.
func (s *Session) Close() error {
	return s.root.Close()
}

// Snapshot returns a copy of the current state. Slices are cloned, so the
// caller may hold the snapshot across further mutations.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.st
	st.Entries = append([]scan.Entry(nil), s.st.Entries...)
	st.Log = append([]LogEntry(nil), s.st.Log...)
	return st
}

// Rescan replaces the inventory with a fresh listing. On failure the
// previous inventory is kept and the status line carries the reason.
func (s *Session) Rescan(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.setScanning(true)
	defer s.setScanning(false)
	s.setStatus("Scanning directory")

	if !s.gate.Ensure(s.root, permit.Read) {
		s.setStatus("Read permission denied")
		s.emit(Event{Kind: EventScanned, Status: s.status()})
		return ErrReadDenied
	}

	entries, err := scan.Scan(s.root, s.coll)
	if err != nil {
		s.setStatus("Scan failed: " + err.Error())
		s.emit(Event{Kind: EventScanned, Status: s.status()})
		return err
	}

	png, webp := scan.Counts(entries)
	s.mu.Lock()
	s.st.Entries = entries
	s.st.PNGCount = png
	s.st.WebPCount = webp
	s.mu.Unlock()

	if len(entries) == 0 {
		s.setStatus("No images found")
	} else {
		s.setStatus(fmt.Sprintf("Found %d images (%d PNG, %d WebP)", len(entries), png, webp))
	}
	s.emit(Event{Kind: EventScanned, Status: s.status()})
	return nil
}

func (s *Session) setStatus(status string) {
	s.mu.Lock()
	s.st.Status = status
	s.mu.Unlock()
	s.emit(Event{Kind: EventStatus, Status: status})
}

func (s *Session) status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Status
}

func (s *Session) setScanning(on bool) {
	s.mu.Lock()
	s.st.Scanning = on
	s.mu.Unlock()
}

func (s *Session) setConverting(on bool) {
	s.mu.Lock()
	s.st.Converting = on
	s.mu.Unlock()
}

// appendLog prepends entry and trims to the retention limit.
func (s *Session) appendLog(entry LogEntry) {
	s.mu.Lock()
	log := make([]LogEntry, 0, len(s.st.Log)+1)
	log = append(log, entry)
	log = append(log, s.st.Log...)
	if len(log) > s.logLimit {
		log = log[:s.logLimit]
	}
	s.st.Log = log
	s.mu.Unlock()

	s.emit(Event{Kind: EventLog, Status: s.status(), Entry: &entry})
}

func (s *Session) emit(ev Event) {
	if s.updates == nil {
		return
	}
	s.updates <- ev
}
