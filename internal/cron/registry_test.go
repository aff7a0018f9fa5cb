package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsRegistrationOrder(t *testing.T) {
	jobA := &stubJob{name: "a"}
	jobB := &stubJob{name: "b"}
	registry, err := NewRegistry(jobA, jobB)
	require.NoError(t, err)

	jobs := registry.Jobs()
	require.Len(t, jobs, 2)
	assert.Same(t, jobA, jobs[0])
	assert.Same(t, jobB, jobs[1])
	assert.Equal(t, []string{"a", "b"}, registry.Names())

	jobs[0] = nil
	assert.NotNil(t, registry.Jobs()[0], "internal slice leaked")
}

func TestRegistryRejectsBadJobs(t *testing.T) {
	registry, err := NewRegistry(&stubJob{name: "a"})
	require.NoError(t, err)

	assert.Error(t, registry.Register(nil))
	assert.Error(t, registry.Register(&stubJob{}))
	assert.Error(t, registry.Register(&stubJob{name: "a"}))
	assert.Len(t, registry.Jobs(), 1)

	_, err = NewRegistry(&stubJob{name: "x"}, &stubJob{name: "x"})
	assert.Error(t, err)
}
