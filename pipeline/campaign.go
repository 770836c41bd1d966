package pipeline

import (
	"fmt"

	"github.com/comsec-group/phoenix-sub000/ctrl"
	"github.com/comsec-group/phoenix-sub000/monitoring"
)

// A SweepPoint is one configuration of a campaign sweep. Its parameters are
// exported into every run record produced under it.
type SweepPoint struct {
	Name   string
	Params map[string]any
}

// A PipelineFactory builds the pipeline of one sweep point. Compilation
// errors surface here, before any hardware access of the sweep.
type PipelineFactory func(point SweepPoint) (Pipeline, error)

// A Campaign executes a pipeline per sweep point, several runs each, and
// accumulates the final contexts. Runs are strictly sequential: the
// controller is a shared resource and refresh phase alignment depends on
// nothing else touching it.
type Campaign struct {
	name         string
	points       []SweepPoint
	runsPerPoint int
	factory      PipelineFactory
	monitor      *monitoring.Monitor
}

// A CampaignBuilder can build campaigns.
type CampaignBuilder struct {
	points       []SweepPoint
	runsPerPoint int
	factory      PipelineFactory
	monitor      *monitoring.Monitor
}

// MakeCampaignBuilder creates a builder for a single-run campaign.
func MakeCampaignBuilder() CampaignBuilder {
	return CampaignBuilder{runsPerPoint: 1}
}

// WithSweepPoint appends one sweep configuration.
func (b CampaignBuilder) WithSweepPoint(point SweepPoint) CampaignBuilder {
	b.points = append(b.points[:len(b.points):len(b.points)], point)
	return b
}

// WithRunsPerPoint sets how many runs each sweep point executes.
func (b CampaignBuilder) WithRunsPerPoint(n int) CampaignBuilder {
	b.runsPerPoint = n
	return b
}

// WithPipelineFactory sets the factory that compiles one pipeline per sweep
// point.
func (b CampaignBuilder) WithPipelineFactory(f PipelineFactory) CampaignBuilder {
	b.factory = f
	return b
}

// WithMonitor attaches a status server that tracks sweep progress.
func (b CampaignBuilder) WithMonitor(m *monitoring.Monitor) CampaignBuilder {
	b.monitor = m
	return b
}

// Build builds the campaign.
func (b CampaignBuilder) Build(name string) Campaign {
	if b.factory == nil {
		panic("a campaign needs a pipeline factory")
	}

	if len(b.points) == 0 {
		panic("a campaign needs at least one sweep point")
	}

	if b.runsPerPoint < 1 {
		panic("a campaign needs at least one run per sweep point")
	}

	return Campaign{
		name:         name,
		points:       b.points,
		runsPerPoint: b.runsPerPoint,
		factory:      b.factory,
		monitor:      b.monitor,
	}
}

// Execute drives every sweep point against the controller and returns the
// final context of every run, in execution order. The first error aborts
// the campaign; contexts of completed runs are returned alongside it.
func (c Campaign) Execute(hw ctrl.Controller) ([]Context, error) {
	var contexts []Context

	for _, point := range c.points {
		pipe, err := c.factory(point)
		if err != nil {
			return contexts, fmt.Errorf(
				"%s: compiling sweep point %s: %w", c.name, point.Name, err)
		}

		var bar *monitoring.ProgressBar
		if c.monitor != nil {
			bar = c.monitor.CreateProgressBar(
				c.name+"/"+point.Name, uint64(c.runsPerPoint))
		}

		for run := 0; run < c.runsPerPoint; run++ {
			seed := NewContext().
				Export("sweep_point", point.Name).
				Export("run_index", run)
			for k, v := range point.Params {
				seed = seed.Export(k, v)
			}

			runCtx, err := pipe.RunFrom(seed, hw)
			if err != nil {
				return contexts, err
			}

			contexts = append(contexts, runCtx)

			if c.monitor != nil {
				bar.IncrementFinished(1)
				c.monitor.RegisterContext(runCtx)
			}
		}

		if c.monitor != nil {
			c.monitor.CompleteProgressBar(bar)
		}
	}

	return contexts, nil
}
