// Package matching binds provider records to reconciled entrants using a
// layered rule set: stable id, tab number, canonical name, then containment.
package matching

import (
	"github.com/yourusername/racefuse/internal/identity"
	"github.com/yourusername/racefuse/internal/models"
)

// Kind is the tag of a match outcome
type Kind int

const (
	Unmatched Kind = iota
	Matched
	Ambiguous
)

func (k Kind) String() string {
	switch k {
	case Matched:
		return "matched"
	case Ambiguous:
		return "ambiguous"
	default:
		return "unmatched"
	}
}

// Rule names the matching rule that decided an outcome
type Rule string

const (
	RuleNone          Rule = ""
	RuleStableID      Rule = "stable_id"
	RuleTabNumber     Rule = "tab_number"
	RuleCanonicalName Rule = "canonical_name"
	RuleContainment   Rule = "containment"
)

// Outcome is the result of matching one probe against a set of entrants.
// Index is only meaningful when Kind is Matched.
type Outcome struct {
	Kind  Kind
	Index int
	Rule  Rule
	// AmbiguousRules lists the rules that found more than one candidate.
	AmbiguousRules []Rule
}

// IsMatched reports whether a single entrant was found
func (o Outcome) IsMatched() bool {
	return o.Kind == Matched
}

// Probe is the part of an incoming record the matcher looks at. RaceID and
// RunnerID are in Provider's namespace.
type Probe struct {
	Provider   models.Provider
	Track      string
	RaceNumber int
	RaceID     string
	RunnerID   string
	TabNumber  *int
	HorseName  string
}

// ProbeFromRunner builds a probe from a runner record
func ProbeFromRunner(r *models.RawRunnerRecord) Probe {
	return Probe{
		Provider:   r.Provider,
		Track:      r.Track,
		RaceNumber: r.RaceNumber,
		RaceID:     r.RaceID,
		RunnerID:   r.RunnerID,
		TabNumber:  r.TabNumber,
		HorseName:  r.HorseName,
	}
}

// ProbeFromScratching builds a probe from a scratching record
func ProbeFromScratching(s *models.ScratchingRecord) Probe {
	return Probe{
		Provider:   s.Provider,
		Track:      s.Track,
		RaceNumber: s.RaceNumber,
		RunnerID:   s.RunnerID,
		TabNumber:  s.TabNumber,
		HorseName:  s.HorseName,
	}
}

// ProbeFromResult builds a probe from a result record
func ProbeFromResult(r *models.ResultRecord) Probe {
	return Probe{
		Provider:   r.Provider,
		Track:      r.Track,
		RaceNumber: r.RaceNumber,
		RaceID:     r.RaceID,
		RunnerID:   r.RunnerID,
		TabNumber:  r.TabNumber,
		HorseName:  r.HorseName,
	}
}

// Matcher applies the matching rules in strict order
type Matcher struct {
	normalizer *identity.Normalizer
	tracks     *TrackMatcher
}

// NewMatcher creates a matcher. A nil normalizer selects the default one.
func NewMatcher(normalizer *identity.Normalizer) *Matcher {
	if normalizer == nil {
		normalizer = identity.Default()
	}
	return &Matcher{
		normalizer: normalizer,
		tracks:     NewTrackMatcher(normalizer),
	}
}

// Tracks returns the matcher's track matcher
func (m *Matcher) Tracks() *TrackMatcher {
	return m.tracks
}

// Normalizer returns the normalizer the matcher compares names with
func (m *Matcher) Normalizer() *identity.Normalizer {
	return m.normalizer
}

type rule struct {
	name  Rule
	match func(p *probeForm, e *entrantForm) bool
}

type probeForm struct {
	Probe
	name string
}

type entrantForm struct {
	index int
	e     *models.FusedEntrant
	name  string
}

var rules = []rule{
	{RuleStableID, func(p *probeForm, e *entrantForm) bool {
		// Only ids the probe's own provider assigned are comparable
		raceID, runnerID := e.e.StableID(p.Provider)
		if p.RunnerID == "" || runnerID == "" {
			return false
		}
		if p.RaceID != "" && raceID != "" && p.RaceID != raceID {
			return false
		}
		return p.RunnerID == runnerID
	}},
	{RuleTabNumber, func(p *probeForm, e *entrantForm) bool {
		return p.TabNumber != nil && e.e.TabNumber != nil && *p.TabNumber > 0 && *p.TabNumber == *e.e.TabNumber
	}},
	{RuleCanonicalName, func(p *probeForm, e *entrantForm) bool {
		return identity.Equal(p.name, e.name)
	}},
	{RuleContainment, func(p *probeForm, e *entrantForm) bool {
		return identity.Contains(p.name, e.name)
	}},
}

// Match finds the single entrant the probe refers to. Only entrants in the
// probe's own (track, race number) are considered. Each rule is tried in
// order and the first one that yields exactly one candidate wins; a rule
// with zero or several candidates falls through. If no rule decides, the
// outcome is Ambiguous when some rule saw several candidates, otherwise
// Unmatched.
func (m *Matcher) Match(p Probe, entrants []*models.FusedEntrant) Outcome {
	scope := make([]*entrantForm, 0, len(entrants))
	for i, e := range entrants {
		if e == nil || !m.tracks.SameRace(p.Track, p.RaceNumber, e.Track, e.RaceNumber) {
			continue
		}
		scope = append(scope, &entrantForm{index: i, e: e, name: m.normalizer.Name(e.HorseName)})
	}

	pf := &probeForm{Probe: p, name: m.normalizer.Name(p.HorseName)}
	out := Outcome{Kind: Unmatched, Index: -1}

	for _, r := range rules {
		found := -1
		count := 0
		for _, ef := range scope {
			if r.match(pf, ef) {
				count++
				found = ef.index
			}
		}
		switch {
		case count == 1:
			out.Kind = Matched
			out.Index = found
			out.Rule = r.name
			return out
		case count > 1:
			out.AmbiguousRules = append(out.AmbiguousRules, r.name)
		}
	}

	if len(out.AmbiguousRules) > 0 {
		out.Kind = Ambiguous
	}
	return out
}
