package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"qirgen/internal/driver"
	"qirgen/internal/ui"
)

type emitOutcome struct {
	results []driver.EmitResult
	err     error
}

// runEmitWithUI drives the batch through the progress TUI. Emission runs in a
// goroutine feeding the event channel; the channel closes when it finishes,
// which tells the model to quit.
func runEmitWithUI(ctx context.Context, title string, req *driver.BatchRequest) ([]driver.EmitResult, error) {
	if req == nil {
		return nil, fmt.Errorf("missing batch request")
	}
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan emitOutcome, 1)

	go func() {
		reqCopy := *req
		reqCopy.Progress = driver.ChannelSink{Ch: events}
		results, err := driver.EmitAll(ctx, &reqCopy)
		outcomeCh <- emitOutcome{results: results, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, req.SnapshotPaths, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
