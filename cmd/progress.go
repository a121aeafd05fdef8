package cmd

import (
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// spinner shows an indeterminate progress bar on stderr while a submission runs.
type spinner struct {
	mu   sync.Mutex
	bar  *progressbar.ProgressBar
	done chan struct{}
	wg   sync.WaitGroup
}

func (s *spinner) Start(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionClearOnFinish(),
	)
	s.done = make(chan struct{})
	s.wg.Add(1)
	go func(bar *progressbar.ProgressBar, done chan struct{}) {
		defer s.wg.Done()
		t := time.NewTicker(100 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				bar.Add(1)
			}
		}
	}(s.bar, s.done)
}

func (s *spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		return
	}
	close(s.done)
	s.wg.Wait()
	s.bar.Finish()
	s.done = nil
}
