package pmbrain

import (
	"strings"
	"testing"

	"devfirm/internal/domain"
	"devfirm/internal/sim"
)

func newTestState() *sim.State {
	return sim.NewState(1, 10000, 0)
}

func addDoneTask(s *sim.State, id, title string) *domain.Task {
	t := &domain.Task{
		ID:       id,
		Title:    title,
		Type:     domain.TaskFeature,
		Status:   domain.TaskDone,
		Priority: domain.PriorityMedium,
	}
	s.Tasks[id] = t
	return t
}

func addEmployee(s *sim.State, id string, role domain.Role, status domain.EmployeeStatus) *domain.Employee {
	e := &domain.Employee{
		ID:           id,
		Name:         id,
		Role:         role,
		Status:       status,
		Productivity: 70,
		Morale:       80,
		Salary:       100,
	}
	s.Employees[id] = e
	return e
}

func TestPhaseClassification(t *testing.T) {
	s := newTestState()
	addDoneTask(s, "t1", "Implement login and signup")
	addDoneTask(s, "t2", "Set up database schema")
	addDoneTask(s, "t3", "Build REST API endpoints")
	addDoneTask(s, "t4", "Build landing page")
	addDoneTask(s, "t5", "Define pricing tiers")

	ps := AnalyzeProductState(s)
	if !ps.HasAuth || !ps.HasDatabase || !ps.HasAPI || !ps.HasLanding || !ps.HasPricing {
		t.Fatalf("capabilities not detected: %+v", ps)
	}
	if ps.Phase != domain.PhaseScale {
		t.Fatalf("phase = %s, want scale", ps.Phase)
	}
}

func TestPhaseEmptyCompanyIsMVP(t *testing.T) {
	ps := AnalyzeProductState(newTestState())
	if ps.Phase != domain.PhaseMVP {
		t.Fatalf("phase = %s, want mvp", ps.Phase)
	}
}

func TestCapabilityTokenMatching(t *testing.T) {
	s := newTestState()
	addDoneTask(s, "t1", "Define pricing tiers")
	ps := AnalyzeProductState(s)
	if ps.HasCI {
		t.Fatal("pricing must not register as CI")
	}
	if !ps.HasPricing {
		t.Fatal("pricing not detected")
	}
}

func TestTechDebtScore(t *testing.T) {
	s := newTestState()
	ps := AnalyzeProductState(s)
	// No testing and no CI shipped yet.
	if ps.TechDebt != 40 {
		t.Fatalf("debt = %d, want 40", ps.TechDebt)
	}

	s.Tasks["b1"] = &domain.Task{ID: "b1", Title: "crash on save", Type: domain.TaskBug, Status: domain.TaskTodo}
	s.Tasks["b2"] = &domain.Task{ID: "b2", Title: "wrong totals", Type: domain.TaskBug, Status: domain.TaskBacklog}
	ps = AnalyzeProductState(s)
	if ps.TechDebt != 50 {
		t.Fatalf("debt with two open bugs = %d, want 50", ps.TechDebt)
	}
	if ps.OpenBugs != 2 {
		t.Fatalf("open bugs = %d, want 2", ps.OpenBugs)
	}
}

func TestEvaluateNextMissionsSkipsExistingNames(t *testing.T) {
	s := newTestState()
	ps := AnalyzeProductState(s)
	s.Missions["m1"] = &domain.Mission{ID: "m1", Name: "user authentication", Status: domain.MissionActive}

	for _, tpl := range EvaluateNextMissions(s, ps, 10) {
		if strings.EqualFold(tpl.Name, "User Authentication") {
			t.Fatal("template offered despite an existing mission with the same name")
		}
	}
}

func TestEvaluateNextMissionsSortedAndCapped(t *testing.T) {
	s := newTestState()
	ps := AnalyzeProductState(s)

	got := EvaluateNextMissions(s, ps, 3)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Priority.Rank() < got[i].Priority.Rank() {
			t.Fatalf("not sorted by priority: %s before %s", got[i-1].Name, got[i].Name)
		}
	}
	if got[0].Priority != domain.PriorityCritical {
		t.Fatalf("first template priority = %s, want critical", got[0].Priority)
	}
}

func TestRunEvaluationDoesNotDuplicateProposals(t *testing.T) {
	s := newTestState()
	first := RunEvaluation(s, 3)
	if len(first) == 0 {
		t.Fatal("expected proposals for a fresh company")
	}
	second := RunEvaluation(s, 3)
	if len(second) != 0 {
		t.Fatalf("second evaluation raised %d duplicate proposals", len(second))
	}
}

func TestApproveMissionProposalCreatesMissionOnce(t *testing.T) {
	s := newTestState()
	props := RunEvaluation(s, 3)
	var target *domain.PMProposal
	for _, p := range props {
		if p.Type == domain.ProposalMission {
			target = p
			break
		}
	}
	if target == nil {
		t.Fatal("no mission proposal raised")
	}

	m, ok := ApproveProposal(s, target.ID)
	if !ok || m == nil {
		t.Fatal("approve failed")
	}
	if m.Status != domain.MissionPlanning {
		t.Fatalf("mission status = %s, want planning", m.Status)
	}
	if len(m.TaskIDs) != len(target.Mission.Tasks) {
		t.Fatalf("mission owns %d tasks, want %d", len(m.TaskIDs), len(target.Mission.Tasks))
	}
	for _, id := range m.TaskIDs {
		if s.Task(id) == nil {
			t.Fatalf("task %s not materialized", id)
		}
	}

	if _, ok := ApproveProposal(s, target.ID); ok {
		t.Fatal("approving a resolved proposal must be a no-op")
	}
	if len(s.Missions) != 1 {
		t.Fatalf("missions = %d, want 1", len(s.Missions))
	}
}

func TestRejectAndDismiss(t *testing.T) {
	s := newTestState()
	props := RunEvaluation(s, 1)
	if len(props) == 0 {
		t.Fatal("no proposals")
	}
	id := props[0].ID

	if !RejectProposal(s, id) {
		t.Fatal("reject failed")
	}
	if RejectProposal(s, id) {
		t.Fatal("rejecting twice must fail")
	}
	if s.Proposal(id).Status != domain.ProposalRejected {
		t.Fatal("status not rejected")
	}
	if len(PendingProposals(s)) != 0 {
		t.Fatal("rejected proposal still pending")
	}

	if !DismissProposal(s, id) {
		t.Fatal("dismiss failed")
	}
	if s.Proposal(id) != nil {
		t.Fatal("dismissed proposal still present")
	}
}

func TestExpireProposals(t *testing.T) {
	s := newTestState()
	props := RunEvaluation(s, 1)
	if len(props) == 0 {
		t.Fatal("no proposals")
	}
	s.Tick = 500
	if n := ExpireProposals(s, 200); n == 0 {
		t.Fatal("nothing expired")
	}
	if !props[0].Resolved() {
		t.Fatal("proposal not resolved after expiry")
	}
}

func TestStaffingGapRaisesHireProposal(t *testing.T) {
	s := newTestState()
	busy := addEmployee(s, "e1", domain.RoleEngineer, domain.EmployeeWorking)
	taskID := "t1"
	busy.CurrentTaskID = &taskID
	s.Queue = append(s.Queue,
		&domain.QueuedTaskItem{ID: "q1", Title: "design refresh", Type: domain.TaskDesign, Status: domain.QueueItemQueued},
		&domain.QueuedTaskItem{ID: "q2", Title: "brand audit", Type: domain.TaskDesign, Status: domain.QueueItemQueued},
	)

	var hire *domain.PMProposal
	for _, p := range RunEvaluation(s, 3) {
		if p.Type == domain.ProposalHire {
			hire = p
		}
	}
	if hire == nil {
		t.Fatal("no hire proposal despite zero idle and queued work")
	}
	if hire.Hire.Role != domain.RoleDesigner {
		t.Fatalf("hire role = %s, want designer", hire.Hire.Role)
	}

	for _, p := range RunEvaluation(s, 3) {
		if p.Type == domain.ProposalHire {
			t.Fatal("duplicate hire proposal while one is pending")
		}
	}
}

func TestPendingProposalsPreserveCreationOrder(t *testing.T) {
	s := newTestState()
	s.Proposals["p1"] = &domain.PMProposal{
		ID: "p1", Type: domain.ProposalMission, Priority: domain.PriorityLow,
		Status: domain.ProposalPending, CreatedTick: 1,
	}
	s.Proposals["p2"] = &domain.PMProposal{
		ID: "p2", Type: domain.ProposalMission, Priority: domain.PriorityCritical,
		Status: domain.ProposalPending, CreatedTick: 2,
	}

	got := PendingProposals(s)
	if len(got) != 2 {
		t.Fatalf("pending = %d, want 2", len(got))
	}
	// The older low-priority proposal stays first; priority never reorders.
	if got[0].ID != "p1" || got[1].ID != "p2" {
		t.Fatalf("order = %s, %s, want p1, p2", got[0].ID, got[1].ID)
	}
}

func TestStaffingGapTieIsStable(t *testing.T) {
	s := newTestState()
	busy := addEmployee(s, "e1", domain.RoleEngineer, domain.EmployeeWorking)
	taskID := "t1"
	busy.CurrentTaskID = &taskID
	s.Queue = append(s.Queue,
		&domain.QueuedTaskItem{ID: "q1", Title: "brand refresh", Type: domain.TaskDesign, Status: domain.QueueItemQueued},
		&domain.QueuedTaskItem{ID: "q2", Title: "launch teaser", Type: domain.TaskMarketing, Status: domain.QueueItemQueued},
	)

	first, ok := staffingGap(s)
	if !ok {
		t.Fatal("no staffing gap reported")
	}
	if first != domain.RoleDesigner {
		t.Fatalf("tie resolved to %s, want designer", first)
	}
	for i := 0; i < 100; i++ {
		role, _ := staffingGap(s)
		if role != first {
			t.Fatalf("call %d proposed %s after %s", i, role, first)
		}
	}
}

func TestGenerateThoughtsWarnsOnIdleWithNoWork(t *testing.T) {
	s := newTestState()
	addEmployee(s, "e1", domain.RoleEngineer, domain.EmployeeIdle)
	ps := AnalyzeProductState(s)

	warned := false
	for _, th := range GenerateThoughts(s, ps) {
		if th.Kind == domain.ThoughtPriority {
			warned = true
		}
	}
	if !warned {
		t.Fatal("expected a priority warning with idle employees and no work")
	}
}
