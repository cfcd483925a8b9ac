package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"barrel/internal/driver"
	"barrel/internal/ui"
)

type syncOutcome struct {
	report *driver.Report
	err    error
}

// runSyncWithUI syncs tree while a progress view renders its events.
func runSyncWithUI(ctx context.Context, title string, tree *driver.Tree, opts driver.SyncOptions) (*driver.Report, error) {
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan syncOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.Progress = driver.ChannelSink{Ch: events}
		report, err := tree.Sync(ctx, optsCopy)
		outcomeCh <- syncOutcome{report: report, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, tree.Root(), tree.Dirs(), events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout), tea.WithContext(ctx))
	_, uiErr := program.Run()
	if uiErr != nil {
		// Keep the worker from blocking on a view that is gone.
		go func() {
			for range events {
			}
		}()
	}
	outcome := <-outcomeCh
	if uiErr != nil && outcome.err == nil {
		return outcome.report, uiErr
	}
	return outcome.report, outcome.err
}
