package server

import (
	"encoding/json"
	"log"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"devfirm/internal/engine"
	"devfirm/internal/scheduler"
)

// githubIssueEvent is the subset of the GitHub issues webhook payload the
// intake queue cares about.
type githubIssueEvent struct {
	Action string             `json:"action"`
	Issue  scheduler.RawIssue `json:"issue"`
}

// registerWebhooks wires inbound issue-tracker webhooks straight into the
// intake queue. These are raw chi routes: tracker payloads do not follow the
// API's envelope and should not appear in the OpenAPI spec.
func registerWebhooks(r chi.Router, basePath string, e *engine.Engine) {
	r.Post(path.Join(basePath, "webhooks/github"), func(w http.ResponseWriter, req *http.Request) {
		var evt githubIssueEvent
		if err := json.NewDecoder(req.Body).Decode(&evt); err != nil {
			writeWebhookError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		switch evt.Action {
		case "opened", "reopened":
		default:
			writeWebhookResult(w, 0)
			return
		}
		if evt.Issue.Title == "" {
			writeWebhookError(w, http.StatusBadRequest, "issue title is required")
			return
		}
		queueIssues(w, req, e, []scheduler.RawIssue{evt.Issue})
	})

	r.Post(path.Join(basePath, "webhooks/tracker"), func(w http.ResponseWriter, req *http.Request) {
		var payload struct {
			Issues []scheduler.RawIssue `json:"issues"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeWebhookError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		queueIssues(w, req, e, payload.Issues)
	})
}

func queueIssues(w http.ResponseWriter, req *http.Request, e *engine.Engine, issues []scheduler.RawIssue) {
	items, err := e.ImportIssues(issues)
	if err != nil {
		writeWebhookError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := e.Save(req.Context()); err != nil {
		log.Printf("webhook: save after import failed: %v", err)
		writeWebhookError(w, http.StatusInternalServerError, "save failed")
		return
	}
	writeWebhookResult(w, len(items))
}

func writeWebhookResult(w http.ResponseWriter, queued int) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"queued": queued})
}

func writeWebhookError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"code": defaultCodeForStatus(status), "message": msg}})
}
