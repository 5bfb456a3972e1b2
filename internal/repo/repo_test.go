package repo

import (
	"context"
	"testing"
	"time"

	"devfirm/internal/db"
	"devfirm/internal/domain"
	"devfirm/internal/eventlog"
	"devfirm/internal/migrate"
	"devfirm/internal/sim"
)

func newTestRepo(t *testing.T) Repo {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatal(err)
	}
	return Repo{DB: conn}
}

func populated() *sim.State {
	s := sim.NewState(7, 12345, 1700000000)
	s.Tick = 42
	s.Speed = domain.SpeedFast
	s.FeaturesShipped = 3
	s.BugsFixed = 1

	taskID := "t1"
	s.Employees["e1"] = &domain.Employee{
		ID: "e1", Name: "Ada", Role: domain.RoleEngineer, SkillLevel: 3,
		Status: domain.EmployeeWorking, Productivity: 70, Morale: 85,
		CurrentTaskID: &taskID, Salary: 120,
		Memory: []string{"assigned t1"}, Tags: []string{"backend"},
	}
	empID := "e1"
	started := uint64(40)
	s.Tasks["t1"] = &domain.Task{
		ID: "t1", Title: "Build API", Type: domain.TaskFeature,
		Status: domain.TaskInProgress, Priority: domain.PriorityHigh,
		AssigneeID: &empID, EstimatedTicks: 60, ProgressTicks: 1.4,
		Artifacts:   []domain.Artifact{{ID: "a1", Kind: "code_change", Content: "stub", Provider: "simulated", CreatedTick: 41}},
		CreatedTick: 10, StartedTick: &started,
	}
	s.Missions["m1"] = &domain.Mission{
		ID: "m1", Name: "Public API", Branch: "feature/public-api",
		Status: domain.MissionActive, TaskIDs: []string{"t1"}, CreatedTick: 9, StartedTick: &started,
	}
	s.FocusMissionID = "m1"
	s.Epics["ep1"] = &domain.Epic{ID: "ep1", Name: "Launch", Phase: "mvp", MissionIDs: []string{"m1"}, Status: domain.EpicActive}
	s.Queue = append(s.Queue, &domain.QueuedTaskItem{
		ID: "q1", Source: domain.SourceTracker, Title: "Fix crash", Type: domain.TaskBug,
		Priority: domain.PriorityCritical, Labels: []string{"bug", "urgent"},
		AutoAssign: true, Status: domain.QueueItemQueued, Position: 0,
	})
	s.Proposals["p1"] = &domain.PMProposal{
		ID: "p1", Type: domain.ProposalMission, Reasoning: "no landing page",
		Priority: domain.PriorityHigh, Status: domain.ProposalPending, CreatedTick: 30,
		Mission: &domain.MissionPayload{Name: "Landing Page", Tasks: []domain.TaskSpec{
			{Title: "Design landing page", Type: domain.TaskDesign, Priority: domain.PriorityHigh, EstimatedTicks: 40},
		}},
	}
	unlockedAt := uint64(20)
	s.Achievements["first_task"] = &domain.Achievement{
		ID: "first_task", Name: "Shipping", Description: "Complete a task",
		Unlocked: true, UnlockedTick: &unlockedAt, Progress: 1, Target: 1,
	}
	choice := "all_hands"
	s.ActiveEvents = append(s.ActiveEvents, &domain.ActiveEvent{EventID: "prod_outage", StartTick: 35, Choice: &choice, Resolved: true})
	s.Schedule(60, domain.ActionBreakEnds, "e1")
	s.Thoughts = append(s.Thoughts, domain.PMThought{Tick: 30, Kind: domain.ThoughtWarning, Text: "tech debt is rising"})
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	want := populated()

	if err := r.SaveState(ctx, want, nil, nil); err != nil {
		t.Fatal(err)
	}
	got, err := r.LoadState(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if got.Tick != 42 || got.Speed != domain.SpeedFast || got.Money != 12345 || got.Seed != 7 {
		t.Fatalf("core state mismatch: %+v", got)
	}
	if got.FocusMissionID != "m1" || got.FeaturesShipped != 3 || got.BugsFixed != 1 {
		t.Fatalf("counters mismatch: %+v", got)
	}

	e := got.Employee("e1")
	if e == nil || e.Status != domain.EmployeeWorking || e.CurrentTaskID == nil || *e.CurrentTaskID != "t1" {
		t.Fatalf("employee mismatch: %+v", e)
	}
	if len(e.Memory) != 1 || e.Memory[0] != "assigned t1" || len(e.Tags) != 1 {
		t.Fatalf("employee memory/tags mismatch: %+v", e)
	}

	task := got.Task("t1")
	if task == nil || task.ProgressTicks != 1.4 || task.AssigneeID == nil || *task.AssigneeID != "e1" {
		t.Fatalf("task mismatch: %+v", task)
	}
	if len(task.Artifacts) != 1 || task.Artifacts[0].Provider != "simulated" {
		t.Fatalf("artifacts mismatch: %+v", task.Artifacts)
	}
	if task.StartedTick == nil || *task.StartedTick != 40 {
		t.Fatal("started tick lost")
	}

	m := got.Mission("m1")
	if m == nil || m.Branch != "feature/public-api" || len(m.TaskIDs) != 1 {
		t.Fatalf("mission mismatch: %+v", m)
	}
	if got.Epics["ep1"] == nil || len(got.Epics["ep1"].MissionIDs) != 1 {
		t.Fatal("epic mismatch")
	}

	if len(got.Queue) != 1 || got.Queue[0].Priority != domain.PriorityCritical || len(got.Queue[0].Labels) != 2 {
		t.Fatalf("queue mismatch: %+v", got.Queue)
	}

	p := got.Proposal("p1")
	if p == nil || p.Mission == nil || p.Mission.Name != "Landing Page" || len(p.Mission.Tasks) != 1 {
		t.Fatalf("proposal mismatch: %+v", p)
	}

	a := got.Achievements["first_task"]
	if a == nil || !a.Unlocked || a.UnlockedTick == nil || *a.UnlockedTick != 20 {
		t.Fatalf("achievement mismatch: %+v", a)
	}

	if len(got.ActiveEvents) != 1 || !got.ActiveEvents[0].Resolved || *got.ActiveEvents[0].Choice != "all_hands" {
		t.Fatalf("active events mismatch: %+v", got.ActiveEvents)
	}
	if len(got.Scheduled) != 1 || got.Scheduled[0].DueTick != 60 {
		t.Fatalf("scheduled actions mismatch: %+v", got.Scheduled)
	}
	if len(got.Thoughts) != 1 || got.Thoughts[0].Kind != domain.ThoughtWarning {
		t.Fatalf("thoughts mismatch: %+v", got.Thoughts)
	}
}

func TestLoadWithoutSaveReturnsNotFound(t *testing.T) {
	r := newTestRepo(t)
	if _, err := r.LoadState(context.Background()); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveReplacesPreviousSnapshot(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	s := populated()
	if err := r.SaveState(ctx, s, nil, nil); err != nil {
		t.Fatal(err)
	}

	delete(s.Tasks, "t1")
	s.Employees["e1"].CurrentTaskID = nil
	s.Employees["e1"].Status = domain.EmployeeIdle
	s.Tick = 43
	if err := r.SaveState(ctx, s, nil, nil); err != nil {
		t.Fatal(err)
	}

	got, err := r.LoadState(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.Tick != 43 || len(got.Tasks) != 0 {
		t.Fatalf("snapshot not replaced: tick=%d tasks=%d", got.Tick, len(got.Tasks))
	}
}

func TestSaveFlushesEventLog(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	s := populated()

	var buf eventlog.Buffer
	buf.Record(42, "task.completed", "task", "t1", eventlog.Payload{"title": "Build API"})
	buf.Record(42, "payroll.paid", "company", "", eventlog.Payload{"amount": 120})

	now := func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	if err := r.SaveState(ctx, s, &buf, now); err != nil {
		t.Fatal(err)
	}
	if buf.Pending() != 0 {
		t.Fatalf("buffer not drained: %d pending", buf.Pending())
	}

	entries, err := r.TailLog(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("log entries = %d, want 2", len(entries))
	}
	if entries[0].Type != "task.completed" || entries[1].Type != "payroll.paid" {
		t.Fatalf("unexpected order: %+v", entries)
	}
	if entries[0].Tick != 42 || entries[0].EntityID != "t1" {
		t.Fatalf("entry mismatch: %+v", entries[0])
	}
}
