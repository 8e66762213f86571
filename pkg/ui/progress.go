package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"igunfollow/pkg/unfollow"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
	barWidth      = 20
)

// stageLabels are printed when the workflow enters a state
var stageLabels = map[unfollow.State]string{
	unfollow.StateAuthenticating:    "Logging into Instagram",
	unfollow.StateFetchingFollowers: "Fetching followers",
	unfollow.StateFetchingFollowing: "Fetching following",
	unfollow.StateComputingDiff:     "Comparing lists",
	unfollow.StateUnfollowing:       "Unfollowing accounts",
}

// ProgressTracker follows a workflow through its events and prints a
// single updating progress line during the unfollow phase
type ProgressTracker struct {
	mu         sync.Mutex
	out        io.Writer
	state      unfollow.State
	total      int
	unfollowed int
	failed     int
	listed     int
	startTime  time.Time
}

// NewProgressTracker creates a tracker writing to out, or stdout when nil
func NewProgressTracker(out io.Writer) *ProgressTracker {
	if out == nil {
		out = os.Stdout
	}
	return &ProgressTracker{
		out:       out,
		state:     unfollow.StateIdle,
		startTime: time.Now(),
	}
}

// Observe consumes one workflow event. It has the unfollow.Observer
// signature so it can be passed to the workflow directly.
func (pt *ProgressTracker) Observe(e unfollow.Event) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if e.Account == nil {
		pt.enter(e)
		return
	}

	pt.total = e.Total
	switch e.State {
	case unfollow.StateUnfollowing:
		if e.Err != nil {
			pt.failed++
		} else {
			pt.unfollowed++
		}
		pt.printProgress(e.Account.Username, e.Err)
	default:
		pt.listed++
		fmt.Fprintf(pt.out, "  %s %s\n", Yellow("•"), e.Account.Username)
	}
}

func (pt *ProgressTracker) enter(e unfollow.Event) {
	prev := pt.state
	pt.state = e.State

	if prev == unfollow.StateUnfollowing {
		fmt.Fprintln(pt.out)
	}

	switch e.State {
	case unfollow.StateFailed:
		fmt.Fprintf(pt.out, "%s %v\n", Red("[FAILED]"), e.Err)
	case unfollow.StateDone:
		fmt.Fprintf(pt.out, "%s finished in %s\n", Green("[DONE]"), pt.elapsed().Round(time.Second))
	default:
		if label, ok := stageLabels[e.State]; ok {
			fmt.Fprintf(pt.out, "%s %s...\n", Magenta("[RUNNING]"), label)
		}
	}
}

func (pt *ProgressTracker) printProgress(username string, err error) {
	status := Green("✓")
	if err != nil {
		status = Red("✗")
	}
	fmt.Fprintf(pt.out, "\r%s %s %s %s",
		Green("[UNFOLLOWING]"),
		pt.bar(),
		status,
		Dim(fmt.Sprintf("%-30s", username)))
}

// Bar returns a formatted progress bar for the unfollow phase
func (pt *ProgressTracker) Bar() string {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.bar()
}

func (pt *ProgressTracker) bar() string {
	done := pt.unfollowed + pt.failed
	filled := 0
	if pt.total > 0 {
		filled = done * barWidth / pt.total
	}
	if filled > barWidth {
		filled = barWidth
	}

	bar := strings.Repeat(ProgressBar, filled) +
		strings.Repeat(ProgressEmpty, barWidth-filled)

	return fmt.Sprintf("[%s] %d/%d", bar, done, pt.total)
}

// Counts returns the unfollowed, failed and total numbers seen so far
func (pt *ProgressTracker) Counts() (unfollowed, failed, total int) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.unfollowed, pt.failed, pt.total
}

// Listed returns how many accounts a dry run reported
func (pt *ProgressTracker) Listed() int {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.listed
}

// State returns the last state the workflow entered
func (pt *ProgressTracker) State() unfollow.State {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.state
}

// GetElapsedTime returns the elapsed time since tracking started
func (pt *ProgressTracker) GetElapsedTime() time.Duration {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.elapsed()
}

func (pt *ProgressTracker) elapsed() time.Duration {
	return time.Since(pt.startTime)
}

// GetRate returns processed accounts per minute
func (pt *ProgressTracker) GetRate() float64 {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	minutes := pt.elapsed().Minutes()
	if minutes == 0 {
		return 0
	}
	return float64(pt.unfollowed+pt.failed) / minutes
}
