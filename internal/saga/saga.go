// Package saga runs named forward steps and their compensations against a
// single transaction handle. A failed forward step aborts the caller's
// transaction, so earlier steps are undone by rollback rather than by
// compensation; compensations are the explicit reversal path.
package saga

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Func is one unit of work bound to the caller's transaction.
type Func func(ctx context.Context, tx *gorm.DB) error

// Step pairs a forward action with the action that undoes it.
type Step struct {
	Name       string
	Forward    Func
	Compensate Func
}

// Table is an ordered list of steps.
type Table struct {
	name  string
	steps []Step
}

// New builds a table. Steps without a name or forward func are dropped.
func New(name string, steps ...Step) *Table {
	table := &Table{name: name}
	for _, step := range steps {
		if step.Name == "" || step.Forward == nil {
			continue
		}
		table.steps = append(table.steps, step)
	}
	return table
}

func (t *Table) Name() string {
	return t.name
}

// Steps returns the step names in forward order.
func (t *Table) Steps() []string {
	names := make([]string, 0, len(t.steps))
	for _, step := range t.steps {
		names = append(names, step.Name)
	}
	return names
}

// Forward runs every step in order and stops at the first failure.
func (t *Table) Forward(ctx context.Context, tx *gorm.DB) error {
	for _, step := range t.steps {
		if err := step.Forward(ctx, tx); err != nil {
			return fmt.Errorf("%s/%s: %w", t.name, step.Name, err)
		}
	}
	return nil
}

// Compensate runs the compensations in reverse order. Steps without a
// compensation are skipped.
func (t *Table) Compensate(ctx context.Context, tx *gorm.DB) error {
	for i := len(t.steps) - 1; i >= 0; i-- {
		step := t.steps[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx, tx); err != nil {
			return fmt.Errorf("%s/%s compensate: %w", t.name, step.Name, err)
		}
	}
	return nil
}
