package scanner

import (
	"fmt"
	"io"
	"time"

	"lostfound/logging"
)

const progressInterval = 500 * time.Millisecond

// NewProgressTracker starts consuming results and printing progress
func NewProgressTracker(totalFiles int, out io.Writer, resultsChan <-chan ProcessImageResult) *ProgressTracker {
	tracker := &ProgressTracker{
		totalFiles: totalFiles,
		out:        out,
		ticker:     time.NewTicker(progressInterval),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
		drained:    make(chan struct{}),
	}

	go tracker.displayProgress()
	go tracker.processResults(resultsChan)

	return tracker
}

// displayProgress shows the progress periodically
func (p *ProgressTracker) displayProgress() {
	defer close(p.stopped)
	for {
		select {
		case <-p.done:
			return
		case <-p.ticker.C:
			p.mu.Lock()
			if p.errors > 0 {
				fmt.Fprintf(p.out, "\rProgress: %d/%d (Errors: %d)", p.processed, p.totalFiles, p.errors)
			} else {
				fmt.Fprintf(p.out, "\rProgress: %d/%d", p.processed, p.totalFiles)
			}
			p.mu.Unlock()
		}
	}
}

// processResults updates the tracker state based on processing results
func (p *ProgressTracker) processResults(resultsChan <-chan ProcessImageResult) {
	defer close(p.drained)
	for result := range resultsChan {
		p.mu.Lock()
		p.processed++

		switch {
		case result.Error != nil:
			p.errors++
			logging.LogImageProcessed(result.Filename, false, result.Error.Error())
		case result.Tracked:
			p.tracked++
		default:
			p.registered++
			logging.LogImageProcessed(result.Filename, true, "")
		}

		p.mu.Unlock()
	}
}

// Stop waits for the results channel to be drained, which requires the
// caller to have closed it, then ends the progress display
func (p *ProgressTracker) Stop() {
	<-p.drained
	p.ticker.Stop()
	close(p.done)
	<-p.stopped
}

// Stats returns the counts seen so far
func (p *ProgressTracker) Stats() ScanStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ScanStats{
		Total:      p.processed,
		Registered: p.registered,
		Tracked:    p.tracked,
		Errors:     p.errors,
	}
}

// PrintStartupInfo displays information about the scan before starting
func PrintStartupInfo(out io.Writer, totalFiles int, options ScanOptions) {
	fmt.Fprintf(out, "Starting catalog scan...\nFiles in %s catalog: %d\n", options.Category, totalFiles)
	fmt.Fprintf(out, "New items will be owned by user %d\n", options.OwnerID)

	if options.DebugMode {
		fmt.Fprintf(out, "Debug mode: enabled\n")
		logging.DebugLog("Found %d files to check in %s", totalFiles, options.Category)
	}
}

// PrintCompletionStats displays statistics after scan completion
func PrintCompletionStats(out io.Writer, stats ScanStats, options ScanOptions) {
	if options.DebugMode {
		logging.DebugLog("Scan completed in %v. Processed: %d, Registered: %d, Already tracked: %d, Errors: %d",
			stats.Elapsed, stats.Total, stats.Registered, stats.Tracked, stats.Errors)
	}

	fmt.Fprintln(out, "\nScan complete.")
	fmt.Fprintf(out, "Checked %d files in %v.\n", stats.Total, stats.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "Registered %d new items, %d were already listed.\n", stats.Registered, stats.Tracked)
	if stats.Ignored > 0 {
		fmt.Fprintf(out, "Ignored %d files that are not images.\n", stats.Ignored)
	}

	if stats.Errors > 0 {
		fmt.Fprintf(out, "Encountered %d errors during the scan.\n", stats.Errors)
		fmt.Fprintln(out, "Check the log file for details.")
	}
}
