// Package gameevent rolls and applies random company events from an embedded
// catalogue. Rolls are deterministic in (seed, tick) so replaying a session
// produces the same events.
package gameevent

import (
	_ "embed"
	"fmt"
	"math/rand"
	"sync"

	"gopkg.in/yaml.v3"

	"devfirm/internal/domain"
	"devfirm/internal/sim"
)

//go:embed catalog.yml
var rawCatalog []byte

// Requirement is one predicate over company metrics.
type Requirement struct {
	Metric string `yaml:"metric"`
	Op     string `yaml:"op"`
	Value  int    `yaml:"value"`
}

// Effect mutates money, morale, or productivity. Target is "all", "random",
// or an employee ID; money effects ignore the target.
type Effect struct {
	Kind   string `yaml:"kind"`
	Target string `yaml:"target"`
	Amount int    `yaml:"amount"`
}

// Choice is one player response to an event with choices.
type Choice struct {
	ID      string   `yaml:"id"`
	Label   string   `yaml:"label"`
	Cost    int      `yaml:"cost"`
	Effects []Effect `yaml:"effects"`
}

// EventDef is one catalogue entry. Events without choices apply their
// effects immediately; events with choices park until a choice is made.
type EventDef struct {
	ID           string        `yaml:"id"`
	Title        string        `yaml:"title"`
	Description  string        `yaml:"description"`
	Probability  float64       `yaml:"probability"`
	Requirements []Requirement `yaml:"requirements"`
	Effects      []Effect      `yaml:"effects"`
	Choices      []Choice      `yaml:"choices"`
}

var (
	catalogOnce sync.Once
	catalog     []EventDef
	catalogErr  error
)

// Catalog returns the parsed embedded catalogue.
func Catalog() ([]EventDef, error) {
	catalogOnce.Do(func() {
		var doc struct {
			Events []EventDef `yaml:"events"`
		}
		if err := yaml.Unmarshal(rawCatalog, &doc); err != nil {
			catalogErr = fmt.Errorf("parse event catalogue: %w", err)
			return
		}
		catalog = doc.Events
	})
	return catalog, catalogErr
}

// ByID looks up a catalogue entry.
func ByID(id string) (EventDef, bool) {
	defs, err := Catalog()
	if err != nil {
		return EventDef{}, false
	}
	for _, d := range defs {
		if d.ID == id {
			return d, true
		}
	}
	return EventDef{}, false
}

// Eval reports whether the requirement holds for the current state.
// TicksPerWeek converts the tick counter into simulated weeks.
func (r Requirement) Eval(s *sim.State, ticksPerWeek uint64) bool {
	var actual int
	switch r.Metric {
	case "money":
		actual = s.Money
	case "employees":
		actual = len(s.Employees)
	case "tasks_done":
		actual = s.CountTasks(domain.TaskDone)
	case "weeks":
		if ticksPerWeek == 0 {
			return false
		}
		actual = int(s.Tick / ticksPerWeek)
	default:
		return false
	}
	switch r.Op {
	case ">":
		return actual > r.Value
	case "<":
		return actual < r.Value
	case ">=":
		return actual >= r.Value
	case "<=":
		return actual <= r.Value
	case "==":
		return actual == r.Value
	default:
		return false
	}
}

// Eligible filters the catalogue to events whose requirements all hold and
// which are not already active.
func Eligible(s *sim.State, ticksPerWeek uint64) []EventDef {
	defs, err := Catalog()
	if err != nil {
		return nil
	}
	var out []EventDef
	for _, d := range defs {
		if activeFor(s, d.ID) != nil {
			continue
		}
		ok := true
		for _, r := range d.Requirements {
			if !r.Eval(s, ticksPerWeek) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, d)
		}
	}
	return out
}

// Roll runs one deterministic event roll: each eligible event passes an
// independent probability check, then one of the passers is picked uniformly.
// The second return is false when nothing fires.
func Roll(s *sim.State, ticksPerWeek uint64) (EventDef, bool) {
	rng := rollRNG(s)
	var passed []EventDef
	for _, d := range Eligible(s, ticksPerWeek) {
		if rng.Float64() < d.Probability {
			passed = append(passed, d)
		}
	}
	if len(passed) == 0 {
		return EventDef{}, false
	}
	return passed[rng.Intn(len(passed))], true
}

// Fire activates an event. Events without choices apply their effects at
// once and come back resolved; events with choices park unresolved until
// Choose or expiry.
func Fire(s *sim.State, def EventDef) *domain.ActiveEvent {
	ev := &domain.ActiveEvent{EventID: def.ID, StartTick: s.Tick}
	if len(def.Choices) == 0 {
		applyEffects(s, def.Effects)
		ev.Resolved = true
	}
	s.ActiveEvents = append(s.ActiveEvents, ev)
	return ev
}

// Choose resolves a parked event with the given choice, paying its cost. A
// cost the company cannot afford rejects the choice and leaves everything
// unchanged.
func Choose(s *sim.State, eventID, choiceID string) error {
	ev := activeFor(s, eventID)
	if ev == nil {
		return fmt.Errorf("event %s is not active", eventID)
	}
	def, ok := ByID(eventID)
	if !ok {
		return fmt.Errorf("unknown event %s", eventID)
	}
	for _, c := range def.Choices {
		if c.ID != choiceID {
			continue
		}
		if c.Cost > s.Money {
			return fmt.Errorf("choice %s costs %d, only %d available", choiceID, c.Cost, s.Money)
		}
		s.AddMoney(-c.Cost)
		applyEffects(s, c.Effects)
		ev.Resolved = true
		ev.Choice = &c.ID
		return nil
	}
	return fmt.Errorf("event %s has no choice %s", eventID, choiceID)
}

// Expire resolves a parked event without applying any choice.
func Expire(s *sim.State, eventID string) bool {
	ev := activeFor(s, eventID)
	if ev == nil {
		return false
	}
	ev.Resolved = true
	return true
}

// activeFor returns the unresolved active entry for the event, if any.
func activeFor(s *sim.State, eventID string) *domain.ActiveEvent {
	for _, ev := range s.ActiveEvents {
		if ev.EventID == eventID && !ev.Resolved {
			return ev
		}
	}
	return nil
}

func applyEffects(s *sim.State, effects []Effect) {
	rng := rollRNG(s)
	for _, ef := range effects {
		applyEffect(s, rng, ef)
	}
}

func applyEffect(s *sim.State, rng *rand.Rand, ef Effect) {
	if ef.Kind == "money" {
		s.AddMoney(ef.Amount)
		return
	}
	var targets []*domain.Employee
	switch ef.Target {
	case "all", "":
		targets = s.EmployeesSorted()
	case "random":
		all := s.EmployeesSorted()
		if len(all) == 0 {
			return
		}
		targets = []*domain.Employee{all[rng.Intn(len(all))]}
	default:
		e := s.Employee(ef.Target)
		if e == nil {
			return
		}
		targets = []*domain.Employee{e}
	}
	for _, e := range targets {
		switch ef.Kind {
		case "morale":
			e.Morale = sim.Clamp(e.Morale + ef.Amount)
		case "productivity":
			e.Productivity = sim.Clamp(e.Productivity + ef.Amount)
		}
	}
}

func rollRNG(s *sim.State) *rand.Rand {
	return rand.New(rand.NewSource(s.Seed + int64(s.Tick)*1337))
}
