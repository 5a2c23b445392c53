package session

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/webp"

	"pixwap/internal/permit"
)

// stubGate scripts consent per mode and counts how often it is asked.
type stubGate struct {
	allow map[permit.Mode]bool
	calls map[permit.Mode]int
}

func newStubGate(read, write bool) *stubGate {
	return &stubGate{
		allow: map[permit.Mode]bool{permit.Read: read, permit.ReadWrite: write},
		calls: map[permit.Mode]int{},
	}
}

func (g *stubGate) Ensure(_ *os.Root, mode permit.Mode) bool {
	g.calls[mode]++
	return g.allow[mode]
}

func pngFile(t *testing.T, dir, name string, w, h int) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 0x60, A: 0xff})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func corruptPNGFile(t *testing.T, dir, name string) {
	t.Helper()

	data := append([]byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}, []byte("this is not pixel data")...)
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func newTestSession(t *testing.T, dir string, opts Options) *Session {
	t.Helper()

	root, err := os.OpenRoot(dir)
	if err != nil {
		t.Fatalf("open root: %v", err)
	}
	sess := New(root, opts)
	t.Cleanup(func() { sess.Close() })
	return sess
}

func TestConvertDirectory(t *testing.T) {
	dir := t.TempDir()
	pngFile(t, dir, "x.png", 6, 4)
	if err := os.WriteFile(filepath.Join(dir, "y.webp"), []byte("RIFF\x10\x00\x00\x00WEBPVP8 \x00\x00\x00\x00"), 0o644); err != nil {
		t.Fatalf("write y.webp: %v", err)
	}

	gate := newStubGate(true, true)
	sess := newTestSession(t, dir, Options{Gate: gate})
	ctx := context.Background()

	if err := sess.Rescan(ctx); err != nil {
		t.Fatalf("rescan: %v", err)
	}
	snap := sess.Snapshot()
	if snap.PNGCount != 1 || snap.WebPCount != 1 {
		t.Fatalf("counts = (%d, %d), want (1, 1)", snap.PNGCount, snap.WebPCount)
	}

	sum, err := sess.Convert(ctx, PNGToWebP)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if sum.Matched != 1 || sum.Converted != 1 || sum.Failed != 0 {
		t.Fatalf("summary = %+v", sum)
	}

	out, err := os.ReadFile(filepath.Join(dir, "x.webp"))
	if err != nil {
		t.Fatalf("derived file missing: %v", err)
	}
	decoded, err := webp.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("derived file does not decode: %v", err)
	}
	if decoded.Bounds().Dx() != 6 || decoded.Bounds().Dy() != 4 {
		t.Fatalf("derived dims %v, want 6x4", decoded.Bounds())
	}

	snap = sess.Snapshot()
	if snap.PNGCount != 1 || snap.WebPCount != 2 {
		t.Fatalf("post-batch counts = (%d, %d), want (1, 2)", snap.PNGCount, snap.WebPCount)
	}
	if len(snap.Log) != 1 {
		t.Fatalf("log has %d entries, want 1", len(snap.Log))
	}
	if e := snap.Log[0]; !e.OK || e.Source != "x.png" || e.Derived != "x.webp" {
		t.Fatalf("log entry = %+v", e)
	}
	if !strings.Contains(snap.Status, "Converted 1 of 1") {
		t.Fatalf("status = %q", snap.Status)
	}
	if snap.Scanning || snap.Converting {
		t.Fatal("busy flags should be clear after the batch")
	}
}

// Converting there and back again must leave decodable files of the
// original size.
func TestConvertRoundTrip(t *testing.T) {
	dir := t.TempDir()
	pngFile(t, dir, "a.png", 11, 7)

	sess := newTestSession(t, dir, Options{Gate: newStubGate(true, true)})
	ctx := context.Background()

	if err := sess.Rescan(ctx); err != nil {
		t.Fatalf("rescan: %v", err)
	}
	if _, err := sess.Convert(ctx, PNGToWebP); err != nil {
		t.Fatalf("png to webp: %v", err)
	}

	sum, err := sess.Convert(ctx, WebPToPNG)
	if err != nil {
		t.Fatalf("webp to png: %v", err)
	}
	if sum.Matched != 1 || sum.Converted != 1 {
		t.Fatalf("summary = %+v", sum)
	}

	data, err := os.ReadFile(filepath.Join(dir, "a.png"))
	if err != nil {
		t.Fatalf("read round-tripped png: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("round-tripped png does not decode: %v", err)
	}
	if decoded.Bounds().Dx() != 11 || decoded.Bounds().Dy() != 7 {
		t.Fatalf("got %v, want 11x7", decoded.Bounds())
	}
}

func TestConvertIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	pngFile(t, dir, "good.png", 4, 4)
	corruptPNGFile(t, dir, "bad.png")
	pngFile(t, dir, "ugly.png", 3, 3)

	sess := newTestSession(t, dir, Options{Gate: newStubGate(true, true)})
	ctx := context.Background()

	if err := sess.Rescan(ctx); err != nil {
		t.Fatalf("rescan: %v", err)
	}
	sum, err := sess.Convert(ctx, PNGToWebP)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if sum.Matched != 3 || sum.Converted != 2 || sum.Failed != 1 {
		t.Fatalf("summary = %+v", sum)
	}

	for _, name := range []string{"good.webp", "ugly.webp"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s missing: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "bad.webp")); !errors.Is(err, os.ErrNotExist) {
		t.Error("bad.webp should not exist")
	}

	snap := sess.Snapshot()
	if len(snap.Log) != 3 {
		t.Fatalf("log has %d entries, want 3", len(snap.Log))
	}
	var failed *LogEntry
	for i := range snap.Log {
		if !snap.Log[i].OK {
			failed = &snap.Log[i]
		}
	}
	if failed == nil {
		t.Fatal("expected a failed entry in the log")
	}
	if failed.Source != "bad.png" || !strings.Contains(failed.Detail, "decode failed") {
		t.Fatalf("failed entry = %+v", failed)
	}
	if !strings.Contains(snap.Status, "1 failed") {
		t.Fatalf("status = %q", snap.Status)
	}
}

func TestConvertWriteDenied(t *testing.T) {
	dir := t.TempDir()
	pngFile(t, dir, "za.png", 2, 2)

	gate := newStubGate(true, false)
	sess := newTestSession(t, dir, Options{Gate: gate})
	ctx := context.Background()

	if err := sess.Rescan(ctx); err != nil {
		t.Fatalf("rescan: %v", err)
	}
	_, err := sess.Convert(ctx, PNGToWebP)
	if !errors.Is(err, ErrWriteDenied) {
		t.Fatalf("got %v, want ErrWriteDenied", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "za.webp")); !errors.Is(err, os.ErrNotExist) {
		t.Error("nothing should be written after a denial")
	}
	snap := sess.Snapshot()
	if len(snap.Log) != 0 {
		t.Fatalf("log has %d entries, want 0", len(snap.Log))
	}
	if snap.Status != "Write permission denied" {
		t.Fatalf("status = %q", snap.Status)
	}
}

func TestConvertNothingMatches(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "y.webp"), []byte("RIFF\x10\x00\x00\x00WEBPVP8 \x00\x00\x00\x00"), 0o644); err != nil {
		t.Fatalf("write y.webp: %v", err)
	}

	gate := newStubGate(true, true)
	sess := newTestSession(t, dir, Options{Gate: gate})
	ctx := context.Background()

	if err := sess.Rescan(ctx); err != nil {
		t.Fatalf("rescan: %v", err)
	}
	sum, err := sess.Convert(ctx, PNGToWebP)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if sum.Matched != 0 {
		t.Fatalf("summary = %+v", sum)
	}
	if gate.calls[permit.ReadWrite] != 0 {
		t.Fatal("the write gate must not be consulted when nothing matches")
	}
	if got := sess.Snapshot().Status; !strings.Contains(got, "No .png files") {
		t.Fatalf("status = %q", got)
	}
}

func TestLogRetention(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.png", "b.png", "c.png", "d.png"} {
		pngFile(t, dir, name, 2, 2)
	}

	sess := newTestSession(t, dir, Options{Gate: newStubGate(true, true), LogLimit: 3})
	ctx := context.Background()

	if err := sess.Rescan(ctx); err != nil {
		t.Fatalf("rescan: %v", err)
	}
	if _, err := sess.Convert(ctx, PNGToWebP); err != nil {
		t.Fatalf("convert: %v", err)
	}

	log := sess.Snapshot().Log
	if len(log) != 3 {
		t.Fatalf("log has %d entries, want 3", len(log))
	}
	if log[0].Source != "d.png" || log[1].Source != "c.png" || log[2].Source != "b.png" {
		t.Fatalf("log order: %q, %q, %q", log[0].Source, log[1].Source, log[2].Source)
	}
}

func TestConvertOverwritesStaleTarget(t *testing.T) {
	dir := t.TempDir()
	pngFile(t, dir, "x.png", 5, 5)
	if err := os.WriteFile(filepath.Join(dir, "x.webp"), []byte("stale junk, not an image"), 0o644); err != nil {
		t.Fatalf("write stale target: %v", err)
	}

	sess := newTestSession(t, dir, Options{Gate: newStubGate(true, true)})
	ctx := context.Background()

	if err := sess.Rescan(ctx); err != nil {
		t.Fatalf("rescan: %v", err)
	}
	if _, err := sess.Convert(ctx, PNGToWebP); err != nil {
		t.Fatalf("convert: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "x.webp"))
	if err != nil {
		t.Fatalf("read target: %v", err)
	}
	if _, err := webp.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("target was not replaced with a valid webp: %v", err)
	}
}

func TestRescanReadDenied(t *testing.T) {
	sess := newTestSession(t, t.TempDir(), Options{Gate: newStubGate(false, false)})

	err := sess.Rescan(context.Background())
	if !errors.Is(err, ErrReadDenied) {
		t.Fatalf("got %v, want ErrReadDenied", err)
	}
	if got := sess.Snapshot().Status; got != "Read permission denied" {
		t.Fatalf("status = %q", got)
	}
}

func TestConvertCancelledContext(t *testing.T) {
	dir := t.TempDir()
	pngFile(t, dir, "a.png", 2, 2)

	sess := newTestSession(t, dir, Options{Gate: newStubGate(true, true)})
	if err := sess.Rescan(context.Background()); err != nil {
		t.Fatalf("rescan: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := sess.Convert(ctx, PNGToWebP); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if len(sess.Snapshot().Log) != 0 {
		t.Fatal("nothing should be converted under a cancelled context")
	}
}

func TestSnapshotIsolation(t *testing.T) {
	dir := t.TempDir()
	pngFile(t, dir, "a.png", 2, 2)

	sess := newTestSession(t, dir, Options{Gate: newStubGate(true, true)})
	ctx := context.Background()

	if err := sess.Rescan(ctx); err != nil {
		t.Fatalf("rescan: %v", err)
	}
	before := sess.Snapshot()

	if _, err := sess.Convert(ctx, PNGToWebP); err != nil {
		t.Fatalf("convert: %v", err)
	}

	if len(before.Entries) != 1 || len(before.Log) != 0 {
		t.Fatal("an old snapshot must not observe later mutations")
	}
}

func TestEventsCarryBatchProgress(t *testing.T) {
	dir := t.TempDir()
	pngFile(t, dir, "a.png", 2, 2)
	pngFile(t, dir, "b.png", 2, 2)

	updates := make(chan Event, 256)
	sess := newTestSession(t, dir, Options{Gate: newStubGate(true, true), Updates: updates})
	ctx := context.Background()

	if err := sess.Rescan(ctx); err != nil {
		t.Fatalf("rescan: %v", err)
	}
	if _, err := sess.Convert(ctx, PNGToWebP); err != nil {
		t.Fatalf("convert: %v", err)
	}
	close(updates)

	var logs, batchDone int
	for ev := range updates {
		switch ev.Kind {
		case EventLog:
			logs++
			if ev.Entry == nil {
				t.Fatal("log event without an entry")
			}
		case EventBatchDone:
			batchDone++
		}
	}
	if logs != 2 {
		t.Errorf("saw %d log events, want 2", logs)
	}
	if batchDone != 1 {
		t.Errorf("saw %d batch-done events, want 1", batchDone)
	}
}
