package readiness

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/multierr"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestProbeCollectsEveryFailure(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	report := Probe(context.Background(), 0,
		Check{Name: "database", Target: ok},
		Check{Name: "redis", Target: down},
		Check{Name: "pubsub"},
	)

	assert.False(t, report.Ready())
	assert.Equal(t, StatusOK, report.Statuses["database"])
	assert.Equal(t, StatusUnreachable, report.Statuses["redis"])
	assert.Equal(t, StatusMissing, report.Statuses["pubsub"])
	assert.Equal(t, []string{"pubsub", "redis"}, report.Failed())
	assert.Len(t, multierr.Errors(report.Err), 2)
	assert.ErrorContains(t, report.Err, "redis ping failed: connection refused")
}

func TestProbeHonorsTimeout(t *testing.T) {
	slow := pingFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	started := time.Now()
	report := Probe(context.Background(), 20*time.Millisecond, Check{Name: "database", Target: slow})

	assert.Less(t, time.Since(started), time.Second)
	assert.ErrorIs(t, report.Err, context.DeadlineExceeded)
}

func TestProbeAllHealthy(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	report := Probe(context.Background(), time.Second, Check{Name: "a", Target: ok}, Check{Name: "b", Target: ok})
	assert.True(t, report.Ready())
	assert.Empty(t, report.Failed())
}
