package retry

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"
)

func fastPolicy(retries int) Policy {
	return Policy{Timeout: time.Second, MaxRetries: retries, InitialInterval: time.Millisecond}
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastPolicy(3), nil, "test", func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Fatalf("got %q, %v", got, err)
	}
	if calls != 3 {
		t.Errorf("calls=%d, want 3", calls)
	}
}

func TestDo_GivesUp(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(2), nil, "test", func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("down")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 3 {
		t.Errorf("calls=%d, want 1 attempt + 2 retries", calls)
	}
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	sentinel := errors.New("bad request")
	calls := 0
	_, err := Do(context.Background(), fastPolicy(5), nil, "test", func(ctx context.Context) (int, error) {
		calls++
		return 0, Permanent(sentinel)
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("expected sentinel, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls=%d, want 1", calls)
	}
}

func TestDo_AttemptTimeout(t *testing.T) {
	p := Policy{Timeout: 10 * time.Millisecond, MaxRetries: 0}
	_, err := Do(context.Background(), p, nil, "test", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestClassifyAPIError(t *testing.T) {
	cases := []struct {
		status    int
		permanent bool
	}{
		{http.StatusUnauthorized, true},
		{http.StatusBadRequest, true},
		{http.StatusTooManyRequests, false},
		{http.StatusRequestTimeout, false},
		{http.StatusBadGateway, false},
	}
	for _, c := range cases {
		err := ClassifyAPIError(&openai.APIError{HTTPStatusCode: c.status, Message: "x"})
		var perm *backoff.PermanentError
		if got := errors.As(err, &perm); got != c.permanent {
			t.Errorf("status %d: permanent = %v, want %v", c.status, got, c.permanent)
		}
	}
	plain := errors.New("dial tcp: refused")
	if ClassifyAPIError(plain) != plain {
		t.Error("non-API errors should pass through")
	}
	if ClassifyAPIError(nil) != nil {
		t.Error("nil should stay nil")
	}
}
