package ui

import (
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"kestrel/internal/driver"
)

// Run drives the progress view while work runs in the background. work
// receives a sink to report through; the view exits once work returns.
func Run(out io.Writer, title string, files []string, work func(driver.ProgressSink) error) error {
	events := make(chan driver.Event, 256)
	workErr := make(chan error, 1)
	go func() {
		err := work(driver.ChannelSink{Ch: events})
		close(events)
		workErr <- err
	}()

	program := tea.NewProgram(NewModel(title, files, events), tea.WithOutput(out))
	_, uiErr := program.Run()
	// the view may quit early; the worker must never block on a full channel
	go func() {
		for range events {
		}
	}()
	err := <-workErr
	if uiErr != nil {
		return uiErr
	}
	return err
}
