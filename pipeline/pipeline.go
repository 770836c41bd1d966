// Package pipeline sequences the hardware-interacting steps of one
// experiment run. A pipeline is a fixed, ordered list of stages built once
// per configuration and replayed for every run; the controller handle is
// injected into each run rather than shared through package state.
package pipeline

import (
	"fmt"

	"github.com/comsec-group/phoenix-sub000/ctrl"
)

// A Stage is one unit of work within a run. Stages are stateless value
// objects configured at construction; all run state lives in the Context.
type Stage interface {
	// Name identifies the stage in error messages and logs.
	Name() string

	// Apply executes the stage, returning the extended context. Stages run
	// strictly in order; an error aborts the rest of the run.
	Apply(c Context, hw ctrl.Controller) (Context, error)
}

// A Pipeline executes its stages strictly in order within one run.
type Pipeline struct {
	name   string
	stages []Stage
}

// A Builder can build pipelines.
type Builder struct {
	stages []Stage
}

// MakeBuilder creates a builder with no stages.
func MakeBuilder() Builder {
	return Builder{}
}

// WithStage appends one stage.
func (b Builder) WithStage(s Stage) Builder {
	b.stages = append(b.stages[:len(b.stages):len(b.stages)], s)
	return b
}

// WithStages appends several stages in order.
func (b Builder) WithStages(stages ...Stage) Builder {
	for _, s := range stages {
		b = b.WithStage(s)
	}

	return b
}

// Build builds a pipeline.
func (b Builder) Build(name string) Pipeline {
	if len(b.stages) == 0 {
		panic("a pipeline needs at least one stage")
	}

	return Pipeline{name: name, stages: b.stages}
}

// Name returns the pipeline name.
func (p Pipeline) Name() string {
	return p.name
}

// Run executes one run against the given controller, starting from a fresh
// context.
func (p Pipeline) Run(hw ctrl.Controller) (Context, error) {
	return p.RunFrom(NewContext(), hw)
}

// RunFrom executes one run starting from a pre-seeded context, e.g. one
// carrying the sweep parameters of a campaign. Hardware failures are
// propagated unchanged and never retried: re-running a partially executed
// stage could corrupt experiment state.
func (p Pipeline) RunFrom(c Context, hw ctrl.Controller) (Context, error) {
	for _, stage := range p.stages {
		next, err := stage.Apply(c, hw)
		if err != nil {
			return c, fmt.Errorf("%s: stage %s: %w", p.name, stage.Name(), err)
		}

		next.Version = c.Version + 1
		c = next
	}

	return c, nil
}
