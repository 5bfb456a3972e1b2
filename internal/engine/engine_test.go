package engine

import (
	"context"
	"testing"
	"time"

	"devfirm/internal/config"
	"devfirm/internal/db"
	"devfirm/internal/domain"
	"devfirm/internal/migrate"
	"devfirm/internal/scheduler"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatal(err)
	}
	e := New(conn, config.Default("testco"))
	e.Now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	if err := e.InitCompany(context.Background()); err != nil {
		t.Fatal(err)
	}
	return e
}

// addWorker seeds an employee with fixed stats, bypassing the hire roll.
func addWorker(e *Engine, id string, role domain.Role, productivity int) *domain.Employee {
	emp := &domain.Employee{
		ID: id, Name: id, Role: role, SkillLevel: 3,
		Status: domain.EmployeeIdle, Productivity: productivity, Morale: 80, Salary: 120,
	}
	e.State.Employees[id] = emp
	return emp
}

func TestInitCompanyTwiceFails(t *testing.T) {
	e := newTestEngine(t)
	if err := e.InitCompany(context.Background()); err == nil {
		t.Fatal("second init must fail")
	}
}

func TestSaveAndReload(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	emp, err := e.Hire("Ada", domain.RoleEngineer)
	if err != nil {
		t.Fatal(err)
	}
	task, err := e.CreateTask(TaskCreateOptions{Title: "Build landing page"})
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Save(ctx); err != nil {
		t.Fatal(err)
	}

	re := New(e.DB, e.Config)
	if err := re.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if re.State.Employee(emp.ID) == nil || re.State.Task(task.ID) == nil {
		t.Fatal("reloaded state missing entities")
	}
	if re.State.Money != e.Config.Company.StartingMoney {
		t.Fatalf("money = %d", re.State.Money)
	}
}

func TestHireRollsAreDeterministic(t *testing.T) {
	a := newTestEngine(t)
	b := newTestEngine(t)
	ea, _ := a.Hire("Ada", domain.RoleEngineer)
	eb, _ := b.Hire("Ada", domain.RoleEngineer)
	if ea.Productivity != eb.Productivity || ea.SkillLevel != eb.SkillLevel {
		t.Fatalf("same seed produced different hires: %+v vs %+v", ea, eb)
	}
	if _, err := a.Hire("Bob", "janitor"); err == nil {
		t.Fatal("unknown role accepted")
	}
}

func TestTickRunsProgress(t *testing.T) {
	e := newTestEngine(t)
	addWorker(e, "e1", domain.RoleEngineer, 100)
	task, _ := e.CreateTask(TaskCreateOptions{Title: "Wire up API", EstimatedTicks: 5})
	if err := e.AssignTask(task.ID, "e1"); err != nil {
		t.Fatal(err)
	}

	if err := e.Tick(context.Background(), 5); err != nil {
		t.Fatal(err)
	}
	if task.Status != domain.TaskReview {
		t.Fatalf("status = %s, want review after 5 ticks at full productivity", task.Status)
	}
	if e.State.Employee("e1").Status != domain.EmployeeWorking {
		t.Fatal("assignee released before done")
	}
}

func TestTickWhilePausedIsNoop(t *testing.T) {
	e := newTestEngine(t)
	if err := e.SetSpeed(domain.SpeedPaused); err != nil {
		t.Fatal(err)
	}
	if err := e.Tick(context.Background(), 10); err != nil {
		t.Fatal(err)
	}
	if e.State.Tick != 0 {
		t.Fatalf("tick = %d, want 0 while paused", e.State.Tick)
	}
	if err := e.SetSpeed("warp"); err == nil {
		t.Fatal("invalid speed accepted")
	}
}

func TestTickAutoAssignsQueuedWork(t *testing.T) {
	e := newTestEngine(t)
	addWorker(e, "e1", domain.RoleEngineer, 70)
	if _, err := e.EnqueueTask(domain.QueuedTaskItem{Title: "Fix login crash", Type: domain.TaskBug, Priority: domain.PriorityCritical, AutoAssign: true, Source: domain.SourceManual}); err != nil {
		t.Fatal(err)
	}

	if err := e.Tick(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if e.State.Employee("e1").Status != domain.EmployeeWorking {
		t.Fatal("queued work not auto-assigned on tick")
	}
	if e.State.Queue[0].Status != domain.QueueItemAssigned {
		t.Fatalf("queue item status = %s", e.State.Queue[0].Status)
	}
}

func TestPeriodicPMEvaluationRaisesProposals(t *testing.T) {
	e := newTestEngine(t)
	if err := e.Tick(context.Background(), int(e.Config.Simulation.PMEvalEvery)); err != nil {
		t.Fatal(err)
	}
	props, err := e.PendingProposals()
	if err != nil {
		t.Fatal(err)
	}
	if len(props) == 0 {
		t.Fatal("no proposals after a PM evaluation tick")
	}
}

func TestApproveProposalCreatesMission(t *testing.T) {
	e := newTestEngine(t)
	props, err := e.RunPMEvaluation()
	if err != nil {
		t.Fatal(err)
	}
	var missionProp string
	for _, p := range props {
		if p.Type == domain.ProposalMission {
			missionProp = p.ID
			break
		}
	}
	if missionProp == "" {
		t.Fatal("no mission proposal")
	}
	m, err := e.ApproveProposal(missionProp)
	if err != nil {
		t.Fatal(err)
	}
	if m == nil || m.Status != domain.MissionPlanning {
		t.Fatalf("mission = %+v", m)
	}
	if _, err := e.ApproveProposal(missionProp); err == nil {
		t.Fatal("approving twice must fail")
	}
}

func TestMissionMergeLandsNextTick(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	m, err := e.CreateMission("Launch Alpha", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.StartMission(m.ID); err != nil {
		t.Fatal(err)
	}
	if err := e.MoveMissionToReview(m.ID, "PR-7"); err != nil {
		t.Fatal(err)
	}
	if err := e.CompleteMission(m.ID); err != nil {
		t.Fatal(err)
	}
	if got := e.State.Mission(m.ID).Status; got != domain.MissionMerging {
		t.Fatalf("status = %s, want merging until the next tick", got)
	}
	if e.State.FeaturesShipped != 0 {
		t.Fatal("shipped before the merge landed")
	}
	if err := e.Tick(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if got := e.State.Mission(m.ID).Status; got != domain.MissionCompleted {
		t.Fatalf("status = %s, want completed", got)
	}
	if e.State.FeaturesShipped != 1 {
		t.Fatalf("shipped = %d", e.State.FeaturesShipped)
	}
}

func TestPayrollDeductsSalaries(t *testing.T) {
	e := newTestEngine(t)
	e.Config.Simulation.PayrollEvery = 10
	addWorker(e, "e1", domain.RoleEngineer, 70)

	before := e.State.Money
	if err := e.Tick(context.Background(), 10); err != nil {
		t.Fatal(err)
	}
	if e.State.Money != before-120 {
		t.Fatalf("money = %d, want %d", e.State.Money, before-120)
	}
}

func TestMoraleDriftsWithStatus(t *testing.T) {
	e := newTestEngine(t)
	e.Config.Simulation.MoraleDecayEvery = 5
	worker := addWorker(e, "e1", domain.RoleEngineer, 50)
	idle := addWorker(e, "e2", domain.RoleEngineer, 50)
	idle.Morale = 60
	task, _ := e.CreateTask(TaskCreateOptions{Title: "Long slog", EstimatedTicks: 1000})
	if err := e.AssignTask(task.ID, "e1"); err != nil {
		t.Fatal(err)
	}

	if err := e.Tick(context.Background(), 5); err != nil {
		t.Fatal(err)
	}
	if worker.Morale != 79 {
		t.Fatalf("working morale = %d, want 79", worker.Morale)
	}
	if idle.Morale != 61 {
		t.Fatalf("idle morale = %d, want 61", idle.Morale)
	}
}

func TestBreakEndsViaScheduledAction(t *testing.T) {
	e := newTestEngine(t)
	addWorker(e, "e1", domain.RoleEngineer, 70)
	if err := e.SendOnBreak("e1", 3); err != nil {
		t.Fatal(err)
	}
	if e.State.Employee("e1").Status != domain.EmployeeOnBreak {
		t.Fatal("employee not on break")
	}

	if err := e.Tick(context.Background(), 2); err != nil {
		t.Fatal(err)
	}
	if e.State.Employee("e1").Status != domain.EmployeeOnBreak {
		t.Fatal("break ended early")
	}
	if err := e.Tick(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if e.State.Employee("e1").Status != domain.EmployeeIdle {
		t.Fatal("employee did not return at the due tick")
	}
}

func TestTriggerEventAndChoice(t *testing.T) {
	e := newTestEngine(t)
	addWorker(e, "e1", domain.RoleEngineer, 70)

	ev, err := e.TriggerEvent("prod_outage")
	if err != nil {
		t.Fatal(err)
	}
	if ev.Resolved {
		t.Fatal("event with choices resolved immediately")
	}
	if len(e.State.Scheduled) != 1 || e.State.Scheduled[0].Kind != domain.ActionEventExpire {
		t.Fatal("no expiry scheduled for parked event")
	}

	if err := e.MakeEventChoice("prod_outage", "hire_sre"); err != nil {
		t.Fatal(err)
	}
	if e.State.Money != e.Config.Company.StartingMoney-3000 {
		t.Fatalf("money = %d", e.State.Money)
	}

	if _, err := e.TriggerEvent("no_such_event"); err == nil {
		t.Fatal("unknown event accepted")
	}
}

func TestGenerateArtifact(t *testing.T) {
	e := newTestEngine(t)
	addWorker(e, "e1", domain.RoleEngineer, 70)
	task, _ := e.CreateTask(TaskCreateOptions{Title: "Build checkout", EstimatedTicks: 50})
	if err := e.AssignTask(task.ID, "e1"); err != nil {
		t.Fatal(err)
	}

	art, err := e.GenerateArtifact(context.Background(), task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if art.Provider != "simulated" || len(task.Artifacts) != 1 {
		t.Fatalf("artifact = %+v", art)
	}

	done, _ := e.CreateTask(TaskCreateOptions{Title: "Other", EstimatedTicks: 10})
	if _, err := e.GenerateArtifact(context.Background(), done.ID); err == nil {
		t.Fatal("generation allowed for a task not in progress")
	}
}

func TestImportIssuesAndProcessQueue(t *testing.T) {
	e := newTestEngine(t)
	addWorker(e, "e1", domain.RoleEngineer, 70)

	items, err := e.ImportIssues([]scheduler.RawIssue{
		{Number: 1, Title: "Crash on save", Labels: []scheduler.RawLabel{{Name: "bug"}, {Name: "urgent"}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Type != domain.TaskBug || items[0].Priority != domain.PriorityCritical {
		t.Fatalf("normalized item = %+v", items[0])
	}

	assigned, err := e.ProcessQueue()
	if err != nil {
		t.Fatal(err)
	}
	if len(assigned) != 1 {
		t.Fatalf("assigned %d, want 1", len(assigned))
	}
}

func TestSaveFlushesEventLog(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	if _, err := e.Hire("Ada", domain.RoleEngineer); err != nil {
		t.Fatal(err)
	}
	if err := e.Save(ctx); err != nil {
		t.Fatal(err)
	}

	entries, err := e.TailLog(ctx, 50)
	if err != nil {
		t.Fatal(err)
	}
	var sawInit, sawHire bool
	for _, en := range entries {
		switch en.Type {
		case "company.init":
			sawInit = true
		case "employee.hired":
			sawHire = true
		}
	}
	if !sawInit || !sawHire {
		t.Fatalf("log missing entries: %+v", entries)
	}
}

func TestStatusAggregates(t *testing.T) {
	e := newTestEngine(t)
	addWorker(e, "e1", domain.RoleEngineer, 70)
	if _, err := e.CreateTask(TaskCreateOptions{Title: "x"}); err != nil {
		t.Fatal(err)
	}

	st, err := e.Status()
	if err != nil {
		t.Fatal(err)
	}
	if st.Company != "testco" || st.Employees != 1 || st.Idle != 1 || st.TasksTotal != 1 {
		t.Fatalf("status = %+v", st)
	}
	if st.Product.Phase != domain.PhaseMVP {
		t.Fatalf("phase = %s", st.Product.Phase)
	}
}
