package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"qirgen/internal/diag"
	"qirgen/internal/driver"
	"qirgen/internal/program"
	"qirgen/internal/source"
)

var entrypointsCmd = &cobra.Command{
	Use:   "entrypoints <snapshot>",
	Short: "List entry point candidates in a snapshot",
	Long: `List the globally visible callables carrying the entry point attribute,
in declaration order. Emission starts from the first one.`,
	Args: cobra.ExactArgs(1),
	RunE: runEntrypoints,
}

var selectedEntryColor = color.New(color.FgGreen, color.Bold)

type entrypointPayload struct {
	Name     string `json:"name"`
	File     string `json:"file,omitempty"`
	Line     uint32 `json:"line,omitempty"`
	Column   uint32 `json:"column,omitempty"`
	Selected bool   `json:"selected"`
}

func runEntrypoints(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	switch format {
	case "pretty", "json":
		// supported
	default:
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}

	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	if maxDiagnostics <= 0 {
		maxDiagnostics = 100
	}

	fs := source.NewFileSet()
	bag := diag.NewBag(maxDiagnostics)
	prog, err := program.Load(args[0], fs, diag.BagReporter{Bag: bag})
	if err != nil {
		bag.Sort()
		printDiagnostics(os.Stdout, fs, bag)
		cmd.SilenceUsage = true
		return err
	}

	entries := driver.Entrypoints(prog, fs)

	if format == "json" {
		payload := make([]entrypointPayload, 0, len(entries))
		for i, e := range entries {
			payload = append(payload, entrypointPayload{
				Name:     e.Name,
				File:     e.FilePath,
				Line:     e.Line,
				Column:   e.Col,
				Selected: i == 0,
			})
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "no entry points")
		return nil
	}
	for i, e := range entries {
		marker := "  "
		name := e.Name
		if i == 0 {
			marker = "* "
			name = selectedEntryColor.Sprint(name)
		}
		if e.FilePath != "" {
			fmt.Fprintf(out, "%s%s %s:%d:%d\n", marker, name, e.FilePath, e.Line, e.Col)
		} else {
			fmt.Fprintf(out, "%s%s\n", marker, name)
		}
	}
	return nil
}

func init() {
	entrypointsCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}
