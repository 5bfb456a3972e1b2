package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"devfirm/internal/config"
	"devfirm/internal/db"
	"devfirm/internal/domain"
	"devfirm/internal/engine"
	"devfirm/internal/migrate"
)

type testServer struct {
	URL    string
	Engine *engine.Engine
	client *http.Client
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default("testco"))
	e.Now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	if err := e.InitCompany(context.Background()); err != nil {
		t.Fatalf("init company: %v", err)
	}
	handler, err := New(Config{Engine: e, BasePath: "/v0"})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	t.Cleanup(func() {
		srv.Shutdown(context.Background())
		ln.Close()
		conn.Close()
	})
	return &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		client: &http.Client{},
	}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func decodeInto(t *testing.T, data []byte, out any) {
	t.Helper()
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	res, data := doJSON(t, s.client, http.MethodGet, s.URL+"/v0/health", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", res.StatusCode, data)
	}
}

func TestStatusReportsCompany(t *testing.T) {
	s := newTestServer(t)
	res, data := doJSON(t, s.client, http.MethodGet, s.URL+"/v0/status", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", res.StatusCode, data)
	}
	var st engine.Status
	decodeInto(t, data, &st)
	if st.Company != "testco" {
		t.Fatalf("company = %q", st.Company)
	}
	if st.Tick != 0 {
		t.Fatalf("tick = %d", st.Tick)
	}
}

func TestHireAndListEmployees(t *testing.T) {
	s := newTestServer(t)
	res, data := doJSON(t, s.client, http.MethodPost, s.URL+"/v0/employees", HireRequest{Name: "Ada", Role: "engineer"})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("hire status = %d: %s", res.StatusCode, data)
	}
	var emp domain.Employee
	decodeInto(t, data, &emp)
	if emp.Role != domain.RoleEngineer || emp.Name != "Ada" {
		t.Fatalf("employee = %+v", emp)
	}

	res, data = doJSON(t, s.client, http.MethodGet, s.URL+"/v0/employees", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d: %s", res.StatusCode, data)
	}
	var emps []domain.Employee
	decodeInto(t, data, &emps)
	if len(emps) != 1 || emps[0].ID != emp.ID {
		t.Fatalf("employees = %+v", emps)
	}
}

func TestHireValidation(t *testing.T) {
	s := newTestServer(t)
	res, data := doJSON(t, s.client, http.MethodPost, s.URL+"/v0/employees", HireRequest{Role: "engineer"})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d: %s", res.StatusCode, data)
	}
	var env struct {
		Error apiErrorBody `json:"error"`
	}
	decodeInto(t, data, &env)
	if env.Error.Code != "bad_request" {
		t.Fatalf("code = %q", env.Error.Code)
	}
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	_, data := doJSON(t, s.client, http.MethodPost, s.URL+"/v0/employees", HireRequest{Name: "Ada", Role: "engineer"})
	var emp domain.Employee
	decodeInto(t, data, &emp)

	res, data := doJSON(t, s.client, http.MethodPost, s.URL+"/v0/tasks", CreateTaskRequest{Title: "Ship login"})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d: %s", res.StatusCode, data)
	}
	var task domain.Task
	decodeInto(t, data, &task)
	if task.Status != domain.TaskTodo || task.Priority != domain.PriorityMedium {
		t.Fatalf("task = %+v", task)
	}

	res, data = doJSON(t, s.client, http.MethodPost, s.URL+"/v0/tasks/"+task.ID+"/assign", AssignTaskRequest{EmployeeID: emp.ID})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("assign status = %d: %s", res.StatusCode, data)
	}

	res, data = doJSON(t, s.client, http.MethodGet, s.URL+"/v0/tasks?status=in_progress", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d: %s", res.StatusCode, data)
	}
	var tasks []domain.Task
	decodeInto(t, data, &tasks)
	if len(tasks) != 1 || tasks[0].AssigneeID == nil || *tasks[0].AssigneeID != emp.ID {
		t.Fatalf("tasks = %+v", tasks)
	}

	res, data = doJSON(t, s.client, http.MethodPost, s.URL+"/v0/tasks/"+task.ID+"/artifact", nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("artifact status = %d: %s", res.StatusCode, data)
	}
	var artifact domain.Artifact
	decodeInto(t, data, &artifact)
	if artifact.Provider != "simulated" {
		t.Fatalf("artifact = %+v", artifact)
	}
}

func TestAssignUnknownTaskIs404(t *testing.T) {
	s := newTestServer(t)
	_, data := doJSON(t, s.client, http.MethodPost, s.URL+"/v0/employees", HireRequest{Name: "Ada", Role: "engineer"})
	var emp domain.Employee
	decodeInto(t, data, &emp)

	res, data := doJSON(t, s.client, http.MethodPost, s.URL+"/v0/tasks/nope/assign", AssignTaskRequest{EmployeeID: emp.ID})
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d: %s", res.StatusCode, data)
	}
}

func TestTickAdvancesAndPersists(t *testing.T) {
	s := newTestServer(t)
	res, data := doJSON(t, s.client, http.MethodPost, s.URL+"/v0/tick", TickRequest{N: 5})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", res.StatusCode, data)
	}
	var tr TickResponse
	decodeInto(t, data, &tr)
	if tr.Tick != 5 {
		t.Fatalf("tick = %d", tr.Tick)
	}

	re := engine.New(s.Engine.DB, s.Engine.Config)
	if err := re.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if re.State.Tick != 5 {
		t.Fatalf("persisted tick = %d", re.State.Tick)
	}
}

func TestSetSpeedPausesTicks(t *testing.T) {
	s := newTestServer(t)
	res, data := doJSON(t, s.client, http.MethodPost, s.URL+"/v0/speed", SetSpeedRequest{Speed: "paused"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("speed status = %d: %s", res.StatusCode, data)
	}
	_, data = doJSON(t, s.client, http.MethodPost, s.URL+"/v0/tick", TickRequest{N: 3})
	var tr TickResponse
	decodeInto(t, data, &tr)
	if tr.Tick != 0 {
		t.Fatalf("tick advanced while paused: %d", tr.Tick)
	}

	res, data = doJSON(t, s.client, http.MethodPost, s.URL+"/v0/speed", SetSpeedRequest{Speed: "warp"})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid speed status = %d: %s", res.StatusCode, data)
	}
}

func TestQueueEndpoints(t *testing.T) {
	s := newTestServer(t)
	_, data := doJSON(t, s.client, http.MethodPost, s.URL+"/v0/employees", HireRequest{Name: "Ada", Role: "engineer"})
	var emp domain.Employee
	decodeInto(t, data, &emp)

	res, data := doJSON(t, s.client, http.MethodPost, s.URL+"/v0/queue", EnqueueRequest{Title: "Fix crash", Labels: []string{"bug", "critical"}})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("enqueue status = %d: %s", res.StatusCode, data)
	}
	var item domain.QueuedTaskItem
	decodeInto(t, data, &item)
	if item.Type != domain.TaskBug || item.Priority != domain.PriorityCritical {
		t.Fatalf("item = %+v", item)
	}

	res, data = doJSON(t, s.client, http.MethodPost, s.URL+"/v0/queue/process", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("process status = %d: %s", res.StatusCode, data)
	}
	var pq ProcessQueueResponse
	decodeInto(t, data, &pq)
	if len(pq.AssignedTaskIDs) != 1 {
		t.Fatalf("assigned = %v", pq.AssignedTaskIDs)
	}

	res, data = doJSON(t, s.client, http.MethodGet, s.URL+"/v0/queue", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d: %s", res.StatusCode, data)
	}
	var items []domain.QueuedTaskItem
	decodeInto(t, data, &items)
	if len(items) != 1 || items[0].Status != domain.QueueItemAssigned {
		t.Fatalf("items = %+v", items)
	}
}

func TestMissionEndpoints(t *testing.T) {
	s := newTestServer(t)
	_, data := doJSON(t, s.client, http.MethodPost, s.URL+"/v0/tasks", CreateTaskRequest{Title: "Design schema"})
	var task domain.Task
	decodeInto(t, data, &task)

	res, data := doJSON(t, s.client, http.MethodPost, s.URL+"/v0/missions", CreateMissionRequest{Name: "Database Layer", TaskIDs: []string{task.ID}})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d: %s", res.StatusCode, data)
	}
	var m domain.Mission
	decodeInto(t, data, &m)
	if m.Status != domain.MissionPlanning || len(m.TaskIDs) != 1 {
		t.Fatalf("mission = %+v", m)
	}

	res, data = doJSON(t, s.client, http.MethodPost, s.URL+"/v0/missions/"+m.ID+"/start", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("start status = %d: %s", res.StatusCode, data)
	}

	res, data = doJSON(t, s.client, http.MethodPost, s.URL+"/v0/missions/"+m.ID+"/abandon", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("abandon status = %d: %s", res.StatusCode, data)
	}

	// Terminal missions reject further transitions.
	res, data = doJSON(t, s.client, http.MethodPost, s.URL+"/v0/missions/"+m.ID+"/start", nil)
	if res.StatusCode == http.StatusOK {
		t.Fatalf("restart of abandoned mission must fail: %s", data)
	}
}

func TestProposalWorkflowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s.client, http.MethodPost, s.URL+"/v0/employees", HireRequest{Name: "Ada", Role: "engineer"})

	res, data := doJSON(t, s.client, http.MethodPost, s.URL+"/v0/pm/evaluate", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("evaluate status = %d: %s", res.StatusCode, data)
	}

	res, data = doJSON(t, s.client, http.MethodGet, s.URL+"/v0/proposals", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d: %s", res.StatusCode, data)
	}
	var proposals []domain.PMProposal
	decodeInto(t, data, &proposals)
	if len(proposals) == 0 {
		t.Fatal("expected proposals for an empty product")
	}

	var missionProposal *domain.PMProposal
	for i := range proposals {
		if proposals[i].Type == domain.ProposalMission {
			missionProposal = &proposals[i]
			break
		}
	}
	if missionProposal == nil {
		t.Fatalf("no mission proposal in %+v", proposals)
	}

	res, data = doJSON(t, s.client, http.MethodPost, s.URL+"/v0/proposals/"+missionProposal.ID+"/approve", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("approve status = %d: %s", res.StatusCode, data)
	}
	var ap ApproveProposalResponse
	decodeInto(t, data, &ap)
	if ap.Mission == nil || ap.Mission.Name != missionProposal.Mission.Name {
		t.Fatalf("approve response = %+v", ap)
	}

	res, _ = doJSON(t, s.client, http.MethodPost, s.URL+"/v0/proposals/unknown/reject", nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("reject unknown status = %d", res.StatusCode)
	}
}

func TestEventTriggerAndChoice(t *testing.T) {
	s := newTestServer(t)
	res, data := doJSON(t, s.client, http.MethodPost, s.URL+"/v0/events/trigger", TriggerEventRequest{EventID: "prod_outage"})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("trigger status = %d: %s", res.StatusCode, data)
	}
	var ev domain.ActiveEvent
	decodeInto(t, data, &ev)
	if ev.EventID != "prod_outage" || ev.Resolved {
		t.Fatalf("event = %+v", ev)
	}

	res, data = doJSON(t, s.client, http.MethodPost, s.URL+"/v0/events/prod_outage/choice", EventChoiceRequest{ChoiceID: "all_hands"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("choice status = %d: %s", res.StatusCode, data)
	}

	res, data = doJSON(t, s.client, http.MethodGet, s.URL+"/v0/events/active", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("active status = %d: %s", res.StatusCode, data)
	}
	var active []domain.ActiveEvent
	decodeInto(t, data, &active)
	if len(active) != 1 || !active[0].Resolved {
		t.Fatalf("active = %+v", active)
	}
}

func TestEventCatalog(t *testing.T) {
	s := newTestServer(t)
	res, data := doJSON(t, s.client, http.MethodGet, s.URL+"/v0/events/catalog", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", res.StatusCode, data)
	}
	var defs []map[string]any
	decodeInto(t, data, &defs)
	if len(defs) == 0 {
		t.Fatal("empty catalogue")
	}
}

func TestGitHubWebhookQueuesIssue(t *testing.T) {
	s := newTestServer(t)
	payload := map[string]any{
		"action": "opened",
		"issue": map[string]any{
			"number": 42,
			"title":  "Crash on login",
			"labels": []map[string]string{{"name": "bug"}},
		},
	}
	res, data := doJSON(t, s.client, http.MethodPost, s.URL+"/v0/webhooks/github", payload)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", res.StatusCode, data)
	}
	var result map[string]int
	decodeInto(t, data, &result)
	if result["queued"] != 1 {
		t.Fatalf("result = %v", result)
	}

	_, data = doJSON(t, s.client, http.MethodGet, s.URL+"/v0/queue", nil)
	var items []domain.QueuedTaskItem
	decodeInto(t, data, &items)
	if len(items) != 1 || items[0].Type != domain.TaskBug || items[0].Source != domain.SourceTracker {
		t.Fatalf("items = %+v", items)
	}
}

func TestGitHubWebhookIgnoresClosedAction(t *testing.T) {
	s := newTestServer(t)
	payload := map[string]any{
		"action": "closed",
		"issue":  map[string]any{"number": 7, "title": "Old issue"},
	}
	res, data := doJSON(t, s.client, http.MethodPost, s.URL+"/v0/webhooks/github", payload)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", res.StatusCode, data)
	}
	var result map[string]int
	decodeInto(t, data, &result)
	if result["queued"] != 0 {
		t.Fatalf("result = %v", result)
	}
}

func TestTailLogOverHTTP(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s.client, http.MethodPost, s.URL+"/v0/employees", HireRequest{Name: "Ada", Role: "engineer"})

	res, data := doJSON(t, s.client, http.MethodGet, s.URL+"/v0/log?n=10", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", res.StatusCode, data)
	}
	var entries []map[string]any
	decodeInto(t, data, &entries)
	if len(entries) < 2 {
		t.Fatalf("entries = %v", entries)
	}
	types := make([]string, 0, len(entries))
	for _, e := range entries {
		types = append(types, fmt.Sprint(e["type"]))
	}
	if types[0] != "company.init" {
		t.Fatalf("types = %v", types)
	}
}
