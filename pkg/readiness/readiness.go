// Package readiness pings the backing services a process depends on.
package readiness

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Status string

const (
	StatusOK          Status = "ok"
	StatusUnreachable Status = "unreachable"
	StatusMissing     Status = "missing"
)

// Check names one dependency. A nil Target reports StatusMissing.
type Check struct {
	Name   string
	Target Pinger
}

// Report is the outcome of one Probe. Err joins every failure, each prefixed
// with the dependency name.
type Report struct {
	Statuses map[string]Status
	Err      error
}

func (r Report) Ready() bool { return r.Err == nil }

// Failed lists the unhealthy dependencies in name order.
func (r Report) Failed() []string {
	var out []string
	for name, status := range r.Statuses {
		if status != StatusOK {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Probe pings every check concurrently, bounded by timeout when positive.
func Probe(ctx context.Context, timeout time.Duration, checks ...Check) Report {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var (
		mu     sync.Mutex
		report = Report{Statuses: make(map[string]Status, len(checks))}
		g      errgroup.Group
	)
	record := func(name string, status Status, err error) {
		mu.Lock()
		defer mu.Unlock()
		report.Statuses[name] = status
		if err != nil {
			report.Err = multierr.Append(report.Err, fmt.Errorf("%s ping failed: %w", name, err))
		}
	}
	for _, check := range checks {
		check := check
		if check.Target == nil {
			record(check.Name, StatusMissing, fmt.Errorf("not configured"))
			continue
		}
		g.Go(func() error {
			if err := check.Target.Ping(ctx); err != nil {
				record(check.Name, StatusUnreachable, err)
				return nil
			}
			record(check.Name, StatusOK, nil)
			return nil
		})
	}
	_ = g.Wait()
	return report
}
