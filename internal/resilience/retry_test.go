package resilience

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func fast() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
}

func TestDo(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		err       error
		wantCalls int
		wantErr   bool
	}{
		{"first try", 0, nil, 1, false},
		{"recovers", 2, NewTransientError(errors.New("503"), 503), 3, false},
		{"exhausts", 5, NewTransientError(errors.New("500"), 500), 3, true},
		{"permanent", 5, errors.New("bad request"), 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Do(context.Background(), fast(), func(context.Context) error {
				calls++
				if calls <= tt.failures {
					return tt.err
				}
				return nil
			})
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDoVal(t *testing.T) {
	calls := 0
	v, err := DoVal(context.Background(), fast(), func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", NewTransientError(errors.New("429"), 429)
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)

	v, err = DoVal(context.Background(), fast(), func(context.Context) (string, error) {
		return "partial", errors.New("permanent")
	})
	assert.Error(t, err)
	assert.Empty(t, v)
}

func TestDo_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, RetryConfig{MaxAttempts: 5, InitialBackoff: time.Second}, func(context.Context) error {
		calls++
		cancel()
		return NewTransientError(errors.New("boom"), 500)
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_HooksAndOverride(t *testing.T) {
	var attempts []int
	cfg := fast()
	cfg.ShouldRetry = func(error) bool { return true }
	cfg.OnRetry = func(a int, _ error) { attempts = append(attempts, a) }

	_ = Do(context.Background(), cfg, func(context.Context) error { return errors.New("plain") })
	assert.Equal(t, []int{1, 2}, attempts)

	RetryLogger("dart", "list")(1, errors.New("x"))
}

func TestBackoff(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: 10 * time.Millisecond, MaxBackoff: 50 * time.Millisecond, Multiplier: 2}
	assert.Equal(t, 10*time.Millisecond, backoff(0, cfg))
	assert.Equal(t, 40*time.Millisecond, backoff(2, cfg))
	assert.Equal(t, 50*time.Millisecond, backoff(5, cfg))

	cfg.JitterFraction = 0.5
	for i := 0; i < 20; i++ {
		d := backoff(0, cfg)
		assert.GreaterOrEqual(t, d, 5*time.Millisecond)
		assert.LessOrEqual(t, d, 15*time.Millisecond)
	}
}

func TestFromSettings(t *testing.T) {
	cfg := FromSettings(5, 200)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.InitialBackoff)

	def := FromSettings(0, 0)
	assert.Equal(t, DefaultRetryConfig().MaxAttempts, def.MaxAttempts)
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(errors.New("bad request")))
	assert.True(t, IsTransient(NewTransientError(errors.New("x"), 503)))
	assert.True(t, IsTransient(fmt.Errorf("wrap: %w", NewTransientError(errors.New("x"), 0))))
	assert.True(t, IsTransient(fmt.Errorf("dial: %w", syscall.ECONNREFUSED)))
	assert.True(t, IsTransient(errors.New("read tcp: Connection reset by peer")))

	te := NewTransientError(errors.New("inner"), 502)
	assert.Equal(t, "inner", te.Error())
	assert.Equal(t, "inner", errors.Unwrap(te).Error())
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, c := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(c), c)
	}
	for _, c := range []int{200, 400, 401, 404, 501} {
		assert.False(t, IsTransientHTTPStatus(c), c)
	}
}
