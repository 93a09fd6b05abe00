package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidScores  = errors.New("invalid assessment scores")
	ErrUnknownTrack   = errors.New("unknown assessment track")
	ErrUnknownPhase   = errors.New("unknown assessment phase")
	ErrBeforeRequired = errors.New(`"despues" assessment requires an "antes" assessment first`)
)

// Assessment tracks. Legacy untracked results are assigned to DefaultTrack.
const (
	TrackCreador = "creador"
	TrackVida    = "vida"
	DefaultTrack = TrackCreador

	AssessmentCategories = 8
	MinScore             = 1
	MaxScore             = 10
)

// Tracks lists the assessment tracks a user can fill in.
var Tracks = []string{TrackCreador, TrackVida}

// Phase tags an assessment as taken before or after the course.
type Phase string

const (
	PhaseAntes   Phase = "antes"
	PhaseDespues Phase = "despues"
)

// ParsePhase accepts "antes" or "despues".
func ParsePhase(s string) (Phase, error) {
	switch Phase(s) {
	case PhaseAntes, PhaseDespues:
		return Phase(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPhase, s)
}

// ValidTrack reports whether name is one of Tracks.
func ValidTrack(name string) bool {
	for _, t := range Tracks {
		if t == name {
			return true
		}
	}
	return false
}

// AssessmentResult is one self-assessment: a score per fixed category.
type AssessmentResult struct {
	Scores  []int     `json:"scores"`
	SavedAt time.Time `json:"savedAt"`
}

// Validate checks the number of scores and their range.
func (r AssessmentResult) Validate(categories int) error {
	if len(r.Scores) != categories {
		return fmt.Errorf("%w: got %d scores, want %d", ErrInvalidScores, len(r.Scores), categories)
	}
	for i, s := range r.Scores {
		if s < MinScore || s > MaxScore {
			return fmt.Errorf("%w: score %d is %d, want %d..%d", ErrInvalidScores, i, s, MinScore, MaxScore)
		}
	}
	return nil
}

// AssessmentPair holds the before/after results of one track. Either side may
// be present alone.
type AssessmentPair struct {
	Antes   *AssessmentResult `json:"antes,omitempty"`
	Despues *AssessmentResult `json:"despues,omitempty"`
}

// Empty reports whether neither side is set.
func (p AssessmentPair) Empty() bool {
	return p.Antes == nil && p.Despues == nil
}

// Get returns the result stored for phase.
func (p AssessmentPair) Get(phase Phase) *AssessmentResult {
	if phase == PhaseDespues {
		return p.Despues
	}
	return p.Antes
}

// AssessmentState is either LegacyAssessments or TrackedAssessments.
type AssessmentState interface {
	assessmentState()
}

// TrackedAssessments is the current shape: one pair per named track.
type TrackedAssessments map[string]AssessmentPair

// LegacyAssessments is the old shape with a single untracked pair at the top
// level. Tracked holds any track entries found alongside it.
type LegacyAssessments struct {
	Pair    AssessmentPair
	Tracked TrackedAssessments
}

func (TrackedAssessments) assessmentState() {}
func (LegacyAssessments) assessmentState()  {}

// Clone copies the map; results are shared since they are never mutated in place.
func (t TrackedAssessments) Clone() TrackedAssessments {
	out := make(TrackedAssessments, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// DecodeAssessments parses any persisted shape. It never fails: unreadable
// input decodes to an empty TrackedAssessments and unreadable entries are skipped.
func DecodeAssessments(raw []byte) AssessmentState {
	var fields map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &fields) != nil {
		return TrackedAssessments{}
	}

	tracked := TrackedAssessments{}
	var legacy LegacyAssessments
	isLegacy := false

	for name, value := range fields {
		switch Phase(name) {
		case PhaseAntes:
			isLegacy = true
			legacy.Pair.Antes = decodeResult(value)
		case PhaseDespues:
			isLegacy = true
			legacy.Pair.Despues = decodeResult(value)
		default:
			if pair, ok := decodePair(value); ok {
				tracked[name] = pair
			}
		}
	}

	if isLegacy {
		legacy.Tracked = tracked
		return legacy
	}
	return tracked
}

// decodePair reads each side on its own so an unreadable one does not take
// the other with it.
func decodePair(raw json.RawMessage) (AssessmentPair, bool) {
	var sides map[string]json.RawMessage
	if err := json.Unmarshal(raw, &sides); err != nil || sides == nil {
		return AssessmentPair{}, false
	}
	var pair AssessmentPair
	if v, ok := sides[string(PhaseAntes)]; ok {
		pair.Antes = decodeResult(v)
	}
	if v, ok := sides[string(PhaseDespues)]; ok {
		pair.Despues = decodeResult(v)
	}
	return pair, true
}

func decodeResult(raw json.RawMessage) *AssessmentResult {
	var r *AssessmentResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil
	}
	return r
}

// MigrateAssessments upgrades any state to the tracked shape. Tracked data is
// kept as is; a legacy pair fills the default track only where that track has
// no result of its own.
func MigrateAssessments(state AssessmentState) TrackedAssessments {
	switch s := state.(type) {
	case TrackedAssessments:
		return s.Clone()
	case LegacyAssessments:
		out := s.Tracked.Clone()
		pair := out[DefaultTrack]
		if pair.Antes == nil {
			pair.Antes = s.Pair.Antes
		}
		if pair.Despues == nil {
			pair.Despues = s.Pair.Despues
		}
		if !pair.Empty() {
			out[DefaultTrack] = pair
		}
		return out
	default:
		return TrackedAssessments{}
	}
}

// MigrateRawAssessments decodes and migrates a persisted blob in one step.
func MigrateRawAssessments(raw []byte) TrackedAssessments {
	return MigrateAssessments(DecodeAssessments(raw))
}
