package gameevent

import (
	"testing"

	"devfirm/internal/domain"
	"devfirm/internal/sim"
)

const ticksPerWeek = 10080

func newTestState() *sim.State {
	return sim.NewState(42, 10000, 0)
}

func addDoneTasks(s *sim.State, n int) {
	for i := 0; i < n; i++ {
		id := string(rune('a' + i))
		s.Tasks[id] = &domain.Task{ID: id, Title: id, Type: domain.TaskFeature, Status: domain.TaskDone}
	}
}

func addEmployee(s *sim.State, id string, morale, productivity int) *domain.Employee {
	e := &domain.Employee{
		ID:           id,
		Name:         id,
		Role:         domain.RoleEngineer,
		Status:       domain.EmployeeIdle,
		Morale:       morale,
		Productivity: productivity,
	}
	s.Employees[id] = e
	return e
}

func TestCatalogParses(t *testing.T) {
	defs, err := Catalog()
	if err != nil {
		t.Fatal(err)
	}
	if len(defs) == 0 {
		t.Fatal("empty catalogue")
	}
	for _, d := range defs {
		if d.ID == "" || d.Title == "" {
			t.Fatalf("entry missing id or title: %+v", d)
		}
		if d.Probability <= 0 || d.Probability > 1 {
			t.Fatalf("%s: probability %v out of range", d.ID, d.Probability)
		}
	}
}

func TestRequirementEval(t *testing.T) {
	s := newTestState()
	s.Money = 5000
	addDoneTasks(s, 5)
	s.Tick = 2 * ticksPerWeek

	cases := []struct {
		req  Requirement
		want bool
	}{
		{Requirement{Metric: "money", Op: ">=", Value: 5000}, true},
		{Requirement{Metric: "money", Op: ">", Value: 5000}, false},
		{Requirement{Metric: "money", Op: "<", Value: 6000}, true},
		{Requirement{Metric: "money", Op: "==", Value: 5000}, true},
		{Requirement{Metric: "tasks_done", Op: ">=", Value: 10}, false},
		{Requirement{Metric: "tasks_done", Op: "<=", Value: 5}, true},
		{Requirement{Metric: "employees", Op: "==", Value: 0}, true},
		{Requirement{Metric: "weeks", Op: ">=", Value: 2}, true},
		{Requirement{Metric: "weeks", Op: ">", Value: 2}, false},
		{Requirement{Metric: "nonsense", Op: ">", Value: 0}, false},
		{Requirement{Metric: "money", Op: "!=", Value: 0}, false},
	}
	for _, c := range cases {
		if got := c.req.Eval(s, ticksPerWeek); got != c.want {
			t.Errorf("%+v = %v, want %v", c.req, got, c.want)
		}
	}
}

func TestEligibleFiltersRequirements(t *testing.T) {
	s := newTestState()
	addDoneTasks(s, 5)

	for _, d := range Eligible(s, ticksPerWeek) {
		if d.ID == "angel_investor" {
			t.Fatal("angel_investor eligible with 5 done tasks, requires 10")
		}
	}
}

func TestRollIsDeterministic(t *testing.T) {
	s := newTestState()
	addDoneTasks(s, 10)
	addEmployee(s, "e1", 80, 70)
	addEmployee(s, "e2", 80, 70)

	for tick := uint64(0); tick < 50; tick++ {
		s.Tick = tick
		a, okA := Roll(s, ticksPerWeek)
		b, okB := Roll(s, ticksPerWeek)
		if okA != okB || a.ID != b.ID {
			t.Fatalf("tick %d: roll not deterministic (%v/%s vs %v/%s)", tick, okA, a.ID, okB, b.ID)
		}
	}
}

func TestFireWithoutChoicesAppliesAndResolves(t *testing.T) {
	s := newTestState()
	addEmployee(s, "e1", 80, 70)
	def, ok := ByID("viral_tweet")
	if !ok {
		t.Fatal("viral_tweet missing from catalogue")
	}

	before := s.Money
	ev := Fire(s, def)
	if !ev.Resolved {
		t.Fatal("choiceless event did not resolve immediately")
	}
	if s.Money != before+2000 {
		t.Fatalf("money = %d, want %d", s.Money, before+2000)
	}
	if s.Employees["e1"].Morale != 90 {
		t.Fatalf("morale = %d, want 90", s.Employees["e1"].Morale)
	}
}

func TestFireWithChoicesParks(t *testing.T) {
	s := newTestState()
	addEmployee(s, "e1", 80, 70)
	def, _ := ByID("prod_outage")

	before := s.Money
	ev := Fire(s, def)
	if ev.Resolved {
		t.Fatal("event with choices resolved without a choice")
	}
	if s.Money != before || s.Employees["e1"].Morale != 80 {
		t.Fatal("effects applied before a choice was made")
	}
}

func TestChoosePaysCostAndApplies(t *testing.T) {
	s := newTestState()
	addEmployee(s, "e1", 80, 70)
	def, _ := ByID("prod_outage")
	Fire(s, def)

	if err := Choose(s, "prod_outage", "hire_sre"); err != nil {
		t.Fatal(err)
	}
	if s.Money != 7000 {
		t.Fatalf("money = %d, want 7000", s.Money)
	}
	if s.Employees["e1"].Morale != 75 {
		t.Fatalf("morale = %d, want 75", s.Employees["e1"].Morale)
	}

	if err := Choose(s, "prod_outage", "all_hands"); err == nil {
		t.Fatal("choosing on a resolved event must fail")
	}
}

func TestChooseRejectsUnaffordableCost(t *testing.T) {
	s := newTestState()
	s.Money = 100
	e := addEmployee(s, "e1", 80, 70)
	def, _ := ByID("prod_outage")
	Fire(s, def)

	if err := Choose(s, "prod_outage", "hire_sre"); err == nil {
		t.Fatal("unaffordable choice accepted")
	}
	if s.Money != 100 || e.Morale != 80 {
		t.Fatal("state changed by a rejected choice")
	}

	// The free choice still works afterwards.
	if err := Choose(s, "prod_outage", "all_hands"); err != nil {
		t.Fatal(err)
	}
	if e.Morale != 65 {
		t.Fatalf("morale = %d, want 65", e.Morale)
	}
}

func TestChooseUnknownChoice(t *testing.T) {
	s := newTestState()
	def, _ := ByID("conference_invite")
	Fire(s, def)
	if err := Choose(s, "conference_invite", "nope"); err == nil {
		t.Fatal("unknown choice accepted")
	}
}

func TestExpireResolvesWithoutEffects(t *testing.T) {
	s := newTestState()
	e := addEmployee(s, "e1", 80, 70)
	def, _ := ByID("burnout_scare")
	Fire(s, def)

	if !Expire(s, "burnout_scare") {
		t.Fatal("expire failed")
	}
	if e.Morale != 80 || e.Productivity != 70 {
		t.Fatal("expiry applied effects")
	}
	if err := Choose(s, "burnout_scare", "mandatory_pto"); err == nil {
		t.Fatal("choice accepted after expiry")
	}
	if Expire(s, "burnout_scare") {
		t.Fatal("expiring twice must fail")
	}
}

func TestMoraleClampsAtBounds(t *testing.T) {
	s := newTestState()
	e := addEmployee(s, "e1", 97, 70)
	def, _ := ByID("viral_tweet")
	Fire(s, def)
	if e.Morale != 100 {
		t.Fatalf("morale = %d, want 100", e.Morale)
	}
}
