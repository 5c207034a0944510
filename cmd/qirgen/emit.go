package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"qirgen/internal/driver"
	"qirgen/internal/project"
)

var emitCmd = &cobra.Command{
	Use:   "emit [flags] <snapshot>...",
	Short: "Emit QIR modules from program snapshots",
	Long: `Emit textual QIR (.ll) from one or more *.qsnap snapshots.
Directory arguments are scanned recursively; without arguments the project
root from qirgen.toml is scanned instead.`,
	Args: cobra.ArbitraryArgs,
	RunE: emitExecution,
}

const noQirgenTomlMessage = "no qirgen.toml found: pass one or more .qsnap files or directories"

func emitExecution(cmd *cobra.Command, args []string) error {
	outDir, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}
	debug, err := cmd.Flags().GetBool("debug")
	if err != nil {
		return err
	}
	triple, err := cmd.Flags().GetString("triple")
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	showTimings, err := cmd.Flags().GetBool("timings")
	if err != nil {
		return err
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return err
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}

	uiModeValue, err := readUIMode(uiValue)
	if err != nil {
		return err
	}

	manifest, manifestFound, err := project.LoadManifest(".")
	if err != nil {
		return err
	}
	if manifestFound {
		// Explicit flags beat manifest defaults.
		if !cmd.Flags().Changed("debug") {
			debug = manifest.Config.Emit.DebugSymbols
		}
		if !cmd.Flags().Changed("triple") && manifest.Config.Emit.Triple != "" {
			triple = manifest.Config.Emit.Triple
		}
		if !cmd.Flags().Changed("out") && manifest.Config.Emit.Out != "" {
			outDir = manifest.Config.Emit.Out
			if !filepath.IsAbs(outDir) {
				outDir = filepath.Join(manifest.Root, outDir)
			}
		}
	}

	paths, err := collectSnapshots(args, manifest, manifestFound)
	if err != nil {
		return err
	}

	req := driver.BatchRequest{
		SnapshotPaths:  paths,
		OutDir:         outDir,
		DebugSymbols:   debug,
		TargetTriple:   triple,
		MaxDiagnostics: maxDiagnostics,
		Jobs:           jobs,
	}

	var results []driver.EmitResult
	if shouldUseTUI(uiModeValue) && len(paths) > 0 {
		results, err = runEmitWithUI(cmd.Context(), "qirgen emit", &req)
	} else {
		results, err = driver.EmitAll(cmd.Context(), &req)
	}

	for i := range results {
		res := &results[i]
		if res.Bag != nil {
			res.Bag.Sort()
			printDiagnostics(os.Stdout, res.Files, res.Bag)
		}
		if quiet {
			continue
		}
		if showTimings {
			printEmitTimings(os.Stdout, res.SnapshotPath, res.Timings, len(results) > 1)
		}
		if res.OutputPath != "" {
			fmt.Fprintf(os.Stdout, "emitted %s\n", res.OutputPath)
		}
	}

	if err != nil {
		// Diagnostics already explain per-file failures.
		cmd.SilenceUsage = true
		return err
	}
	return nil
}

// collectSnapshots expands the argument list into snapshot paths. Directories
// are scanned recursively; no arguments means the whole project.
func collectSnapshots(args []string, manifest *project.Manifest, manifestFound bool) ([]string, error) {
	if len(args) == 0 {
		if !manifestFound {
			return nil, errors.New(noQirgenTomlMessage)
		}
		paths, err := driver.ListSnapshots(manifest.Root)
		if err != nil {
			return nil, err
		}
		if len(paths) == 0 {
			return nil, fmt.Errorf("no snapshots found under %s", manifest.Root)
		}
		return paths, nil
	}

	var paths []string
	for _, arg := range args {
		st, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to stat path: %w", err)
		}
		if st.IsDir() {
			found, err := driver.ListSnapshots(arg)
			if err != nil {
				return nil, err
			}
			if len(found) == 0 {
				return nil, fmt.Errorf("no snapshots found under %s", arg)
			}
			paths = append(paths, found...)
			continue
		}
		paths = append(paths, arg)
	}
	return paths, nil
}

func printEmitTimings(out io.Writer, path string, timings driver.Timings, labelFile bool) {
	if out == nil {
		return
	}
	prefix := ""
	if labelFile {
		prefix = path + ": "
	}
	for _, stage := range driver.Stages {
		if !timings.Has(stage) {
			continue
		}
		fmt.Fprintf(out, "%s%s %.1f ms\n", prefix, stageVerb(stage), toMillis(timings.Duration(stage)))
	}
}

func stageVerb(stage driver.Stage) string {
	switch stage {
	case driver.StageLoad:
		return "loaded"
	case driver.StageValidate:
		return "validated"
	case driver.StageCodegen:
		return "lowered"
	case driver.StageWrite:
		return "wrote"
	}
	return string(stage)
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func init() {
	emitCmd.Flags().StringP("out", "o", "", "output directory for .ll files (default \".\")")
	emitCmd.Flags().BoolP("debug", "g", false, "emit debug metadata (compile unit, locations)")
	emitCmd.Flags().String("triple", "", "target triple recorded in the module")
	emitCmd.Flags().Int("jobs", 0, "max parallel workers (0=auto)")
	emitCmd.Flags().String("ui", "auto", "user interface (auto|on|off)")
	emitCmd.Flags().Bool("timings", false, "show per-stage timings")
}
