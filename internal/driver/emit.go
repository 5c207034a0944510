// Package driver orchestrates the snapshot-to-QIR pipeline.
package driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"qirgen/internal/diag"
	"qirgen/internal/program"
	"qirgen/internal/qir"
	"qirgen/internal/source"
)

// EmitRequest configures emission of one snapshot into textual QIR.
type EmitRequest struct {
	SnapshotPath   string
	OutDir         string
	DebugSymbols   bool
	TargetTriple   string
	DataLayout     string
	MaxDiagnostics int
	TargetFlags    []qir.FlagProducer
	Progress       ProgressSink
}

// EmitResult captures emission artefacts and stage timings. Bag is always
// populated, error or not; Program and Files are set once the snapshot
// decoded.
type EmitResult struct {
	SnapshotPath string
	OutputPath   string
	Program      *program.Program
	Files        *source.FileSet
	EntryPoint   program.CallableID
	Bag          *diag.Bag
	Timings      Timings
}

// Emit runs load, validate, codegen, and write for a single snapshot.
func Emit(ctx context.Context, req *EmitRequest) (EmitResult, error) {
	var result EmitResult
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		return result, fmt.Errorf("missing emit request")
	}
	if req.SnapshotPath == "" {
		return result, fmt.Errorf("missing snapshot path")
	}
	reqCopy := *req
	req = &reqCopy
	if req.MaxDiagnostics <= 0 {
		req.MaxDiagnostics = 100
	}

	result.SnapshotPath = req.SnapshotPath
	bag := diag.NewBag(req.MaxDiagnostics)
	result.Bag = bag
	reporter := diag.BagReporter{Bag: bag}
	sink := req.Progress
	name := req.SnapshotPath

	if err := ctx.Err(); err != nil {
		return result, err
	}

	emitStage(sink, name, StageLoad, StatusWorking, nil, 0)
	loadStart := time.Now()
	fs := source.NewFileSet()
	prog, err := program.Load(req.SnapshotPath, fs, reporter)
	if err != nil {
		emitStage(sink, name, StageLoad, StatusError, err, time.Since(loadStart))
		return result, err
	}
	result.Program = prog
	result.Files = fs
	result.Timings.Set(StageLoad, time.Since(loadStart))

	emitStage(sink, name, StageValidate, StatusWorking, nil, 0)
	validateStart := time.Now()
	program.Validate(prog, reporter)
	result.Timings.Set(StageValidate, time.Since(validateStart))
	if bag.HasErrors() {
		err = fmt.Errorf("diagnostics reported errors")
		emitStage(sink, name, StageValidate, StatusError, err, 0)
		return result, err
	}

	if err = ctx.Err(); err != nil {
		return result, err
	}

	emitStage(sink, name, StageCodegen, StatusWorking, nil, 0)
	codegenStart := time.Now()
	gen := qir.NewGenerator(prog, fs, qir.Config{
		DebugSymbols: req.DebugSymbols,
		TargetTriple: req.TargetTriple,
		DataLayout:   req.DataLayout,
	})
	for _, p := range req.TargetFlags {
		gen.RegisterTargetFlags(p)
	}
	if _, err = gen.CreateModule(); err != nil {
		if errors.Is(err, qir.ErrMissingEntryPoint) {
			diag.ReportError(reporter, diag.GenMissingEntry, source.Span{},
				"debug symbols need an entry point: mark one public callable with @EntryPoint").Emit()
		}
		emitStage(sink, name, StageCodegen, StatusError, err, time.Since(codegenStart))
		return result, err
	}
	if err = gen.LowerCallables(reporter); err != nil {
		emitStage(sink, name, StageCodegen, StatusError, err, time.Since(codegenStart))
		return result, err
	}
	result.EntryPoint = gen.EntryPoint()
	result.Timings.Set(StageCodegen, time.Since(codegenStart))
	if bag.HasErrors() {
		err = fmt.Errorf("codegen reported errors")
		emitStage(sink, name, StageCodegen, StatusError, err, 0)
		return result, err
	}

	emitStage(sink, name, StageWrite, StatusWorking, nil, 0)
	writeStart := time.Now()
	outPath, err := writeModule(gen, req.SnapshotPath, req.OutDir)
	if err != nil {
		emitStage(sink, name, StageWrite, StatusError, err, time.Since(writeStart))
		return result, err
	}
	result.OutputPath = outPath
	result.Timings.Set(StageWrite, time.Since(writeStart))

	emitStage(sink, name, StageWrite, StatusDone, nil, result.Timings.Sum(Stages...))
	return result, nil
}

// OutputPath returns where Emit would write the module for a snapshot.
func OutputPath(snapshotPath, outDir string) string {
	base := strings.TrimSuffix(filepath.Base(snapshotPath), filepath.Ext(snapshotPath))
	if base == "" {
		base = "out"
	}
	if outDir == "" {
		outDir = "."
	}
	return filepath.Join(outDir, base+".ll")
}

// writeModule renders the module and replaces the output file atomically.
func writeModule(gen *qir.Generator, snapshotPath, outDir string) (string, error) {
	if outDir == "" {
		outDir = "."
	}
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	outPath := OutputPath(snapshotPath, outDir)

	var buf bytes.Buffer
	if err := gen.Render(&buf); err != nil {
		return "", err
	}

	f, err := os.CreateTemp(outDir, "tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp output: %w", err)
	}
	tmpName := f.Name()
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to write output: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to close output: %w", err)
	}
	if err := os.Rename(tmpName, outPath); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to finalize output: %w", err)
	}
	return outPath, nil
}

func emitStage(sink ProgressSink, file string, stage Stage, status Status, err error, elapsed time.Duration) {
	if sink == nil {
		return
	}
	sink.OnEvent(Event{Stage: stage, Status: status, Err: err, Elapsed: elapsed})
	if file != "" {
		sink.OnEvent(Event{File: file, Stage: stage, Status: status, Err: err, Elapsed: elapsed})
	}
}
