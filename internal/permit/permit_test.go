package permit

import (
	"errors"
	"os"
	"testing"
)

// fakeProber scripts the OS answer per mode.
type fakeProber struct {
	capable bool
	deny    map[Mode]bool
}

func (p *fakeProber) Capable() bool { return p.capable }

func (p *fakeProber) Access(_ string, mode Mode) error {
	if p.deny[mode] {
		return errors.New("access denied")
	}
	return nil
}

type spyRequester struct {
	answer bool
	calls  int
}

func (s *spyRequester) fn() RequestFunc {
	return func(string, Mode) bool {
		s.calls++
		return s.answer
	}
}

func openTempRoot(t *testing.T) *os.Root {
	t.Helper()

	root, err := os.OpenRoot(t.TempDir())
	if err != nil {
		t.Fatalf("open root: %v", err)
	}
	t.Cleanup(func() { root.Close() })
	return root
}

func TestImplicitGrantWithoutProbe(t *testing.T) {
	root := openTempRoot(t)
	spy := &spyRequester{answer: false}
	gate := NewWithProber(&fakeProber{capable: false}, spy.fn())

	if !gate.Ensure(root, Read) || !gate.Ensure(root, ReadWrite) {
		t.Fatal("expected implicit grants when no probe is available")
	}
	if spy.calls != 0 {
		t.Fatalf("requester ran %d times, want 0", spy.calls)
	}
}

func TestReadNeverPrompts(t *testing.T) {
	root := openTempRoot(t)
	spy := &spyRequester{answer: false}
	gate := NewWithProber(&fakeProber{capable: true}, spy.fn())

	if !gate.Ensure(root, Read) {
		t.Fatal("expected read grant")
	}
	if spy.calls != 0 {
		t.Fatalf("requester ran %d times, want 0", spy.calls)
	}
}

func TestWritePromptsOnce(t *testing.T) {
	root := openTempRoot(t)
	spy := &spyRequester{answer: true}
	gate := NewWithProber(&fakeProber{capable: true}, spy.fn())

	if !gate.Ensure(root, ReadWrite) {
		t.Fatal("expected write grant")
	}
	if !gate.Ensure(root, ReadWrite) {
		t.Fatal("expected cached write grant")
	}
	if spy.calls != 1 {
		t.Fatalf("requester ran %d times, want 1", spy.calls)
	}
}

func TestDenialIsSticky(t *testing.T) {
	root := openTempRoot(t)
	spy := &spyRequester{answer: false}
	gate := NewWithProber(&fakeProber{capable: true}, spy.fn())

	if gate.Ensure(root, ReadWrite) {
		t.Fatal("expected denial")
	}
	if gate.Ensure(root, ReadWrite) {
		t.Fatal("expected sticky denial")
	}
	if spy.calls != 1 {
		t.Fatalf("requester ran %d times, want 1; denials must not re-prompt", spy.calls)
	}
}

func TestOSDenialSkipsPrompt(t *testing.T) {
	root := openTempRoot(t)
	spy := &spyRequester{answer: true}
	gate := NewWithProber(&fakeProber{capable: true, deny: map[Mode]bool{ReadWrite: true}}, spy.fn())

	if gate.Ensure(root, ReadWrite) {
		t.Fatal("expected denial from the OS probe")
	}
	if spy.calls != 0 {
		t.Fatalf("requester ran %d times, want 0", spy.calls)
	}
	if !gate.Ensure(root, Read) {
		t.Fatal("read should still pass")
	}
}

func TestRevocationAfterGrant(t *testing.T) {
	root := openTempRoot(t)
	spy := &spyRequester{answer: true}
	prober := &fakeProber{capable: true, deny: map[Mode]bool{}}
	gate := NewWithProber(prober, spy.fn())

	if !gate.Ensure(root, ReadWrite) {
		t.Fatal("expected write grant")
	}

	prober.deny[ReadWrite] = true
	if gate.Ensure(root, ReadWrite) {
		t.Fatal("expected the re-probe to notice revoked access")
	}
}

func TestNilRequesterDeniesWrites(t *testing.T) {
	root := openTempRoot(t)
	gate := NewWithProber(&fakeProber{capable: true}, nil)

	if !gate.Ensure(root, Read) {
		t.Fatal("expected read grant")
	}
	if gate.Ensure(root, ReadWrite) {
		t.Fatal("expected write denial without a requester")
	}
}
