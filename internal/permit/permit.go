// Package permit gates directory access behind explicit consent. A Gate
// combines an OS-level access probe with a user prompt and remembers both
// answers for the rest of the session: a grant skips future prompts, a
// denial stays denied until the program restarts.
package permit

import (
	"os"
)

// Mode is the access level being requested on a directory.
type Mode int

const (
	Read Mode = iota
	ReadWrite
)

func (m Mode) String() string {
	if m == ReadWrite {
		return "readwrite"
	}
	return "read"
}

// Prober answers whether the operating system would allow an access mode
// on a path right now. Platforms without a usable query report themselves
// incapable and the gate grants implicitly.
type Prober interface {
	Capable() bool
	Access(path string, mode Mode) error
}

// RequestFunc asks the user to approve mode on dir. It runs at most once
// per mode per session.
type RequestFunc func(dir string, mode Mode) bool

// Gate tracks consent per access mode for a single directory session.
// It is not safe for concurrent use; callers serialize around it.
type Gate struct {
	prober  Prober
	request RequestFunc
	granted map[Mode]bool
	denied  map[Mode]bool
}

// New builds a gate backed by the platform prober. request may be nil,
// in which case any mode that would need a prompt is denied.
func New(request RequestFunc) *Gate {
	return NewWithProber(platformProber(), request)
}

// NewWithProber is New with an explicit prober, for tests.
func NewWithProber(p Prober, request RequestFunc) *Gate {
	return &Gate{
		prober:  p,
		request: request,
		granted: make(map[Mode]bool),
		denied:  make(map[Mode]bool),
	}
}

// Ensure reports whether mode is held on the directory behind root,
// prompting for it if needed. A previous denial short-circuits. The OS
// probe runs on every call so that access revoked behind our back is
// noticed even after an earlier grant; read access that survives the
// probe never prompts, write access prompts once.
func (g *Gate) Ensure(root *os.Root, mode Mode) bool {
	if g.denied[mode] {
		return false
	}

	if g.prober == nil || !g.prober.Capable() {
		g.granted[mode] = true
		return true
	}
	if err := g.prober.Access(root.Name(), mode); err != nil {
		g.denied[mode] = true
		return false
	}

	if g.granted[mode] {
		return true
	}
	if mode == Read {
		g.granted[Read] = true
		return true
	}

	if g.request == nil {
		g.denied[mode] = true
		return false
	}
	if g.request(root.Name(), mode) {
		g.granted[mode] = true
		return true
	}
	g.denied[mode] = true
	return false
}
