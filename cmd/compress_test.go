package cmd

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"squish/internal/processor"
)

type failingView struct{}

func (failingView) Run() (tea.Model, error) {
	return nil, errors.New("no terminal")
}

func TestShowProgressDrainsAfterViewFails(t *testing.T) {
	updates := make(chan processor.ProgressUpdate, 4)
	done := showProgress(failingView{}, updates)

	sent := make(chan struct{})
	go func() {
		defer close(sent)
		sink := processor.SendTo(updates)
		for i := 0; i < 200; i++ {
			sink(i, 200, processor.JobOutcome{Index: i, Status: processor.StatusCopied})
		}
		close(updates)
	}()

	select {
	case <-sent:
	case <-time.After(5 * time.Second):
		t.Fatal("sending progress blocked after the view failed")
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("showProgress did not finish once updates closed")
	}
}
