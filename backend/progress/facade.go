package progress

import (
	"context"
	"fmt"
	"math"
)

// Facade is what presentation code uses: the completion map, a toggle and
// aggregate counters for one feature, plus its assessments.
type Facade struct {
	engine *Engine
	units  []string
}

// NewFacade exposes engine's state for the given trackable units. units is
// the denominator of Percentage.
func NewFacade(engine *Engine, units []string) *Facade {
	return &Facade{engine: engine, units: units}
}

// CompletionMap returns a copy of the current map.
func (f *Facade) CompletionMap() CompletionMap {
	return f.engine.Local().Completion()
}

// Toggle flips key locally, then pushes the new map in the background. The
// returned map is already persisted.
func (f *Facade) Toggle(ctx context.Context, key string) CompletionMap {
	next := f.engine.Update(func(m CompletionMap) CompletionMap {
		return Toggle(m, key)
	})
	f.engine.Push(ctx, next)
	return next
}

// Units returns the tracked units.
func (f *Facade) Units() []string {
	return f.units
}

// CompletedCount counts done units. With no units configured it counts every
// done key.
func (f *Facade) CompletedCount() int {
	m := f.CompletionMap()
	if len(f.units) == 0 {
		return len(m.CompletedKeys())
	}
	n := 0
	for _, u := range f.units {
		if m[u] {
			n++
		}
	}
	return n
}

// Percentage is CompletedCount over the number of units, rounded.
func (f *Facade) Percentage() int {
	if len(f.units) == 0 {
		return 0
	}
	return int(math.Round(float64(f.CompletedCount()) / float64(len(f.units)) * 100))
}

// SyncStatus returns the engine status.
func (f *Facade) SyncStatus() Status {
	return f.engine.Status()
}

// Assessments returns every track's results.
func (f *Facade) Assessments() TrackedAssessments {
	return f.engine.Local().Assessments()
}

// RecordAssessment stores scores for track/phase. A "despues" result is only
// accepted once the track has an "antes" one.
func (f *Facade) RecordAssessment(track string, phase Phase, scores []int) (AssessmentResult, error) {
	if !ValidTrack(track) {
		return AssessmentResult{}, fmt.Errorf("%w: %q", ErrUnknownTrack, track)
	}
	if _, err := ParsePhase(string(phase)); err != nil {
		return AssessmentResult{}, err
	}

	result := AssessmentResult{
		Scores:  append([]int(nil), scores...),
		SavedAt: f.engine.Clock().Now().UTC(),
	}
	if err := result.Validate(AssessmentCategories); err != nil {
		return AssessmentResult{}, err
	}

	all := f.engine.Local().Assessments()
	pair := all[track]
	switch phase {
	case PhaseAntes:
		pair.Antes = &result
	case PhaseDespues:
		if pair.Antes == nil {
			return AssessmentResult{}, ErrBeforeRequired
		}
		pair.Despues = &result
	}
	all[track] = pair
	f.engine.Local().SetAssessments(all)
	return result, nil
}
