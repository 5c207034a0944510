package driver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"qirgen/internal/program"
	"qirgen/internal/source"
)

type countingSink struct {
	mu     sync.Mutex
	queued int
	errors int
}

func (s *countingSink) OnEvent(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch evt.Status {
	case StatusQueued:
		s.queued++
	case StatusError:
		if evt.File != "" {
			s.errors++
		}
	}
}

func TestListSnapshots(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.MkdirAll(sub, 0o750); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{
		filepath.Join(dir, "b.qsnap"),
		filepath.Join(dir, "a.qsnap"),
		filepath.Join(sub, "c.qsnap"),
		filepath.Join(dir, "notes.txt"),
	} {
		if err := os.WriteFile(name, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	files, err := ListSnapshots(dir)
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	want := []string{
		filepath.Join(dir, "a.qsnap"),
		filepath.Join(dir, "b.qsnap"),
		filepath.Join(sub, "c.qsnap"),
	}
	if len(files) != len(want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestEmitAll(t *testing.T) {
	dir := t.TempDir()
	good1 := writeSnapshot(t, filepath.Join(dir, "one.qsnap"), buildEntrySnapshot)
	good2 := writeSnapshot(t, filepath.Join(dir, "two.qsnap"), buildEntrySnapshot)
	bad := writeSnapshot(t, filepath.Join(dir, "bad.qsnap"), func(p *program.Program, fs *source.FileSet) {
		buildEntrySnapshot(p, fs)
		p.Add(&program.Callable{
			Name:   p.Strings.Intern("Main"),
			Flags:  program.CallablePublic,
			Span:   source.Span{Start: 0, End: 2},
			Result: program.TypeUnit,
			Body:   []program.Op{{Kind: program.OpRet}},
		})
	})
	outDir := filepath.Join(dir, "out")
	sink := &countingSink{}

	results, err := EmitAll(context.Background(), &BatchRequest{
		SnapshotPaths: []string{good1, bad, good2},
		OutDir:        outDir,
		DebugSymbols:  true,
		Jobs:          2,
		Progress:      sink,
	})
	if err == nil {
		t.Fatal("EmitAll with a failing snapshot succeeded")
	}
	if !strings.Contains(err.Error(), "1 of 3") {
		t.Errorf("err = %v, want 1 of 3 failure summary", err)
	}
	if len(results) != 3 {
		t.Fatalf("%d results, want 3", len(results))
	}
	if results[0].SnapshotPath != good1 || results[2].SnapshotPath != good2 {
		t.Error("results not index-aligned with the request")
	}

	for _, name := range []string{"one.ll", "two.ll"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(outDir, "bad.ll")); err == nil {
		t.Error("failing snapshot produced output")
	}
	if !results[1].Bag.HasErrors() {
		t.Error("failing snapshot has no error diagnostics")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.queued != 3 {
		t.Errorf("%d queued events, want 3", sink.queued)
	}
	if sink.errors != 1 {
		t.Errorf("%d error events, want 1", sink.errors)
	}
}

func TestEmitAllEmpty(t *testing.T) {
	results, err := EmitAll(context.Background(), &BatchRequest{})
	if err != nil || results != nil {
		t.Errorf("EmitAll with no paths = %v, %v", results, err)
	}
}

func TestEmitAllNilRequest(t *testing.T) {
	if _, err := EmitAll(context.Background(), nil); err == nil {
		t.Error("nil batch request accepted")
	}
}

func TestEmitAllCancelled(t *testing.T) {
	dir := t.TempDir()
	snap := writeSnapshot(t, filepath.Join(dir, "main.qsnap"), buildEntrySnapshot)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := EmitAll(ctx, &BatchRequest{
		SnapshotPaths: []string{snap},
		OutDir:        filepath.Join(dir, "out"),
	})
	if err == nil {
		t.Fatal("cancelled EmitAll succeeded")
	}
}
