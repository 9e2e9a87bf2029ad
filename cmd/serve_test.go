package cmd

import (
	"context"
	"testing"
	"time"
)

func TestRefreshSchedulerStopWaitsForKickoff(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	runs := 0
	job := func(context.Context) {
		runs++
		if runs == 1 {
			close(started)
		}
		<-release
	}

	scheduler, err := startRefreshScheduler(context.Background(), "@every 1h", time.UTC, job)
	if err != nil {
		t.Fatalf("startRefreshScheduler() error = %v", err)
	}

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatalf("kick-off refresh did not run")
	}

	stopped := make(chan struct{})
	go func() {
		scheduler.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatalf("Stop() returned while the kick-off refresh was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("Stop() did not return after the kick-off refresh finished")
	}
	if runs != 1 {
		t.Fatalf("runs = %d, want 1", runs)
	}
}

func TestRefreshSchedulerRejectsBadSpec(t *testing.T) {
	if _, err := startRefreshScheduler(context.Background(), "every now and then", time.UTC, func(context.Context) {}); err == nil {
		t.Fatalf("startRefreshScheduler() error = nil, want parse error")
	}
}
