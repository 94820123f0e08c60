package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Spinner shows an indeterminate progress indicator while a blocking call runs
type Spinner struct {
	bar  *progressbar.ProgressBar
	done chan struct{}
	wait chan struct{}
}

// StartSpinner starts a spinner on w, or stderr when w is nil
func StartSpinner(w io.Writer, description string) *Spinner {
	if w == nil {
		w = os.Stderr
	}
	s := &Spinner{
		bar: progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(description),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionClearOnFinish(),
		),
		done: make(chan struct{}),
		wait: make(chan struct{}),
	}

	go func() {
		defer close(s.wait)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				_ = s.bar.Add(1)
			}
		}
	}()
	return s
}

// Stop clears the spinner. It is safe to call once.
func (s *Spinner) Stop() {
	close(s.done)
	<-s.wait
	_ = s.bar.Finish()
}

// FormatBytes formats a byte count into a human readable size
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
