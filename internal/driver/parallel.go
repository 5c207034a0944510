package driver

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"qirgen/internal/qir"
)

// BatchRequest configures parallel emission of several snapshots into one
// output directory.
type BatchRequest struct {
	SnapshotPaths  []string
	OutDir         string
	DebugSymbols   bool
	TargetTriple   string
	DataLayout     string
	MaxDiagnostics int
	Jobs           int
	TargetFlags    []qir.FlagProducer
	Progress       ProgressSink
}

// ListSnapshots returns the sorted *.qsnap files under dir.
func ListSnapshots(dir string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".qsnap") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// EmitAll emits every snapshot in the batch, fanning out across workers.
// Each snapshot gets its own diagnostic bag; one failing snapshot does not
// stop the others. The returned slice is index-aligned with SnapshotPaths.
func EmitAll(ctx context.Context, req *BatchRequest) ([]EmitResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		return nil, fmt.Errorf("missing batch request")
	}
	paths := req.SnapshotPaths
	if len(paths) == 0 {
		return nil, nil
	}

	if req.Progress != nil {
		for _, path := range paths {
			req.Progress.OnEvent(Event{File: path, Stage: StageLoad, Status: StatusQueued})
		}
	}

	jobs := req.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	results := make([]EmitResult, len(paths))
	errs := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))

	for i, path := range paths {
		// Per-iteration copies: required for correct capture below when
		// building with a pre-1.22 toolchain (go directive < 1.22).
		i, path := i, path
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			res, err := Emit(gctx, &EmitRequest{
				SnapshotPath:   path,
				OutDir:         req.OutDir,
				DebugSymbols:   req.DebugSymbols,
				TargetTriple:   req.TargetTriple,
				DataLayout:     req.DataLayout,
				MaxDiagnostics: req.MaxDiagnostics,
				TargetFlags:    req.TargetFlags,
				Progress:       req.Progress,
			})
			// Indexes are unique per goroutine, no mutex needed.
			results[i] = res
			errs[i] = err
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed > 0 {
		return results, fmt.Errorf("emission failed for %d of %d snapshots", failed, len(paths))
	}
	return results, nil
}
