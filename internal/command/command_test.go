package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/askidmobile/clipstty/internal/clipsttyerr"
	"github.com/askidmobile/clipstty/internal/sysctx"
)

func noopHandler(msg string) Handler {
	return func(ctx context.Context, sysCtx *sysctx.Context, input string) (Result, error) {
		return Result{Message: msg}, nil
	}
}

func TestResolveExactPattern(t *testing.T) {
	e := New(false, 0)
	e.Register(&Command{
		Name:     "start_recording",
		Category: CategoryRecording,
		Patterns: []Pattern{{Kind: PatternExact, Text: "start recording", Priority: 10}},
		Handle:   noopHandler("started"),
	})

	cmd, err := e.Resolve("start recording")
	if err != nil || cmd.Name != "start_recording" {
		t.Fatalf("Resolve = (%v, %v)", cmd, err)
	}
}

func TestResolvePriorityOrder(t *testing.T) {
	e := New(false, 0)
	e.Register(&Command{
		Name:     "low",
		Patterns: []Pattern{{Kind: PatternContains, Text: "record", Priority: 1}},
		Handle:   noopHandler("low"),
	})
	e.Register(&Command{
		Name:     "high",
		Patterns: []Pattern{{Kind: PatternContains, Text: "record", Priority: 20}},
		Handle:   noopHandler("high"),
	})

	cmd, err := e.Resolve("please record this")
	if err != nil || cmd.Name != "high" {
		t.Fatalf("expected higher-priority command to win, got %v (%v)", cmd, err)
	}
}

func TestResolveNotFound(t *testing.T) {
	e := New(false, 0)
	e.Register(&Command{
		Name:     "start_recording",
		Patterns: []Pattern{{Kind: PatternExact, Text: "start recording"}},
		Handle:   noopHandler("started"),
	})

	if _, err := e.Resolve("completely unrelated text"); !errors.Is(err, clipsttyerr.ErrCommandNotFound) {
		t.Fatalf("expected ErrCommandNotFound, got %v", err)
	}
}

func TestResolveFuzzyFallback(t *testing.T) {
	e := New(true, 0.7)
	e.Register(&Command{
		Name:     "stop_recording",
		Patterns: []Pattern{{Kind: PatternExact, Text: "stop recording"}},
		Handle:   noopHandler("stopped"),
	})

	cmd, err := e.Resolve("stop recordin")
	if err != nil || cmd.Name != "stop_recording" {
		t.Fatalf("expected fuzzy match to resolve, got (%v, %v)", cmd, err)
	}
}

func TestExecuteTimeout(t *testing.T) {
	e := New(false, 0)
	cmd := &Command{
		Name:     "slow",
		Patterns: []Pattern{{Kind: PatternExact, Text: "slow"}},
		Timeout:  10 * time.Millisecond,
		Handle: func(ctx context.Context, sysCtx *sysctx.Context, input string) (Result, error) {
			<-ctx.Done()
			return Result{}, ctx.Err()
		},
	}
	e.Register(cmd)

	_, err := e.Execute(context.Background(), cmd, sysctx.New(), "slow")
	if !errors.Is(err, clipsttyerr.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	hist := e.History()
	if len(hist) != 1 || !errors.Is(hist[0].Err, clipsttyerr.ErrTimeout) {
		t.Fatalf("expected timeout recorded in history, got %+v", hist)
	}
}

func TestExecuteRecordsSuccessAndMean(t *testing.T) {
	e := New(false, 0)
	cmd := &Command{
		Name:     "quick",
		Patterns: []Pattern{{Kind: PatternExact, Text: "quick"}},
		Handle:   noopHandler("done"),
	}
	e.Register(cmd)

	for i := 0; i < 3; i++ {
		if _, err := e.Execute(context.Background(), cmd, sysctx.New(), "quick"); err != nil {
			t.Fatalf("Execute: %v", err)
		}
	}
	if e.stats["quick"].successCount != 3 {
		t.Fatalf("successCount = %d, want 3", e.stats["quick"].successCount)
	}
}

func TestHistoryBounded(t *testing.T) {
	e := New(false, 0)
	cmd := &Command{
		Name:     "noop",
		Patterns: []Pattern{{Kind: PatternExact, Text: "noop"}},
		Handle:   noopHandler("ok"),
	}
	e.Register(cmd)
	for i := 0; i < historyCapacity+5; i++ {
		if _, err := e.Execute(context.Background(), cmd, sysctx.New(), "noop"); err != nil {
			t.Fatalf("Execute: %v", err)
		}
	}
	if len(e.History()) != historyCapacity {
		t.Fatalf("len(History) = %d, want %d", len(e.History()), historyCapacity)
	}
}

func TestSuggestPrefixRanksHighest(t *testing.T) {
	e := New(false, 0)
	e.Register(&Command{
		Name:     "start_recording",
		Patterns: []Pattern{{Kind: PatternExact, Text: "start recording"}},
		Handle:   noopHandler("x"),
	})
	e.Register(&Command{
		Name:     "stop_recording",
		Patterns: []Pattern{{Kind: PatternExact, Text: "stop recording"}},
		Handle:   noopHandler("x"),
	})

	suggestions := e.Suggest("start")
	if len(suggestions) == 0 || suggestions[0].Command.Name != "start_recording" {
		t.Fatalf("expected start_recording to rank first, got %+v", suggestions)
	}
}

func TestIsDuplicateWithinWindow(t *testing.T) {
	sc := sysctx.New()
	now := time.Now()
	sc.RecordCommand("toggle_vad", "pause listening", now)

	if !IsDuplicate(sc, "toggle_vad", now.Add(500*time.Millisecond), 1500*time.Millisecond) {
		t.Fatalf("expected duplicate within window")
	}
	if IsDuplicate(sc, "toggle_vad", now.Add(2*time.Second), 1500*time.Millisecond) {
		t.Fatalf("expected no duplicate once window has elapsed")
	}
}
