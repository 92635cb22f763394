package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var (
	errStore      = errors.New("store unavailable")
	errValidation = errors.New("validation failed")
)

// step is one call against a breaker: advance the clock, run fn returning
// result, then check the error and state.
type step struct {
	advance time.Duration
	result  error
	wantErr error
	want    State
}

func TestBreakerTransitions(t *testing.T) {
	tests := []struct {
		name        string
		maxFailures int
		steps       []step
	}{
		{
			name:        "success keeps closed",
			maxFailures: 3,
			steps:       []step{{want: StateClosed}},
		},
		{
			name:        "opens at threshold",
			maxFailures: 3,
			steps: []step{
				{result: errStore, wantErr: errStore, want: StateClosed},
				{result: errStore, wantErr: errStore, want: StateClosed},
				{result: errStore, wantErr: errStore, want: StateOpen},
				{wantErr: ErrCircuitOpen, want: StateOpen},
			},
		},
		{
			name:        "success resets the count",
			maxFailures: 3,
			steps: []step{
				{result: errStore, wantErr: errStore, want: StateClosed},
				{result: errStore, wantErr: errStore, want: StateClosed},
				{want: StateClosed},
				{result: errStore, wantErr: errStore, want: StateClosed},
				{result: errStore, wantErr: errStore, want: StateClosed},
				{want: StateClosed},
			},
		},
		{
			name:        "half-open probe closes",
			maxFailures: 2,
			steps: []step{
				{result: errStore, wantErr: errStore, want: StateClosed},
				{result: errStore, wantErr: errStore, want: StateOpen},
				{advance: 500 * time.Millisecond, wantErr: ErrCircuitOpen, want: StateOpen},
				{advance: time.Second, want: StateClosed},
			},
		},
		{
			name:        "half-open failure reopens",
			maxFailures: 2,
			steps: []step{
				{result: errStore, wantErr: errStore, want: StateClosed},
				{result: errStore, wantErr: errStore, want: StateOpen},
				{advance: 2 * time.Second, result: errStore, wantErr: errStore, want: StateOpen},
				{wantErr: ErrCircuitOpen, want: StateOpen},
			},
		},
		{
			name:        "ignored errors pass through",
			maxFailures: 1,
			steps: []step{
				{result: errValidation, wantErr: errValidation, want: StateClosed},
				{result: errValidation, wantErr: errValidation, want: StateClosed},
				{result: context.Canceled, wantErr: context.Canceled, want: StateClosed},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := time.Unix(1_700_000_000, 0)
			b := NewBreaker(tt.maxFailures, time.Second).
				WithIgnore(func(err error) bool { return errors.Is(err, errValidation) })
			b.now = func() time.Time { return now }

			for i, s := range tt.steps {
				now = now.Add(s.advance)
				called := false
				err := b.Execute(func() error {
					called = true
					return s.result
				})
				if !errors.Is(err, s.wantErr) || (s.wantErr == nil && err != nil) {
					t.Fatalf("step %d: err = %v, want %v", i, err, s.wantErr)
				}
				if errors.Is(err, ErrCircuitOpen) == called {
					t.Fatalf("step %d: called = %v with err %v", i, called, err)
				}
				if got := b.State(); got != s.want {
					t.Fatalf("step %d: state = %s, want %s", i, got, s.want)
				}
			}
		})
	}
}

func TestBreakerReportsHalfOpen(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	b := NewBreaker(1, time.Minute)
	b.now = func() time.Time { return now }

	_ = b.Execute(func() error { return errStore })
	if got := b.State(); got != StateOpen {
		t.Fatalf("state = %s, want open", got)
	}
	now = now.Add(time.Minute)
	if got := b.State(); got != StateHalfOpen {
		t.Fatalf("state = %s, want half_open", got)
	}
}

func TestBreakerSingleProbe(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	b := NewBreaker(1, time.Second)
	b.now = func() time.Time { return now }

	_ = b.Execute(func() error { return errStore })
	now = now.Add(2 * time.Second)

	inProbe := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- b.Execute(func() error {
			close(inProbe)
			<-release
			return nil
		})
	}()
	<-inProbe

	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("concurrent call during probe: err = %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("probe: %v", err)
	}
	if got := b.State(); got != StateClosed {
		t.Fatalf("state = %s, want closed", got)
	}
}

func TestBreakerCancelledContextSkipsCall(t *testing.T) {
	b := NewBreaker(1, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.ExecuteContext(ctx, func(context.Context) error {
		t.Error("fn must not run with a cancelled context")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if got := b.State(); got != StateClosed {
		t.Fatalf("state = %s, want closed", got)
	}
}
