package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Czernobog023/duolist/checklist"
)

// maxRequestBodySize limits POST body sizes. Import payloads are the
// largest legitimate request.
const maxRequestBodySize = 10 << 20 // 10 MB

// RegisterHTTPHandlers registers all API handlers under the given
// prefix (path segment without slashes, e.g. "api"):
//
//	GET    <prefix>/data
//	POST   <prefix>/tasks/propose
//	POST   <prefix>/tasks/{taskID}/validate
//	POST   <prefix>/tasks/{taskID}/reject
//	POST   <prefix>/tasks/{taskID}/complete
//	DELETE <prefix>/tasks/{taskID}
//	GET    <prefix>/export
//	POST   <prefix>/import
//	GET    <prefix>/health
func (c *Component) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	prefix = "/" + strings.Trim(prefix, "/")

	mux.HandleFunc("GET "+prefix+"/data", c.handleData)
	mux.HandleFunc("POST "+prefix+"/tasks/propose", c.handlePropose)
	mux.HandleFunc("POST "+prefix+"/tasks/{taskID}/validate", c.handleValidate)
	mux.HandleFunc("POST "+prefix+"/tasks/{taskID}/reject", c.handleReject)
	mux.HandleFunc("POST "+prefix+"/tasks/{taskID}/complete", c.handleComplete)
	mux.HandleFunc("DELETE "+prefix+"/tasks/{taskID}", c.handleDelete)
	mux.HandleFunc("GET "+prefix+"/export", c.handleExport)
	mux.HandleFunc("POST "+prefix+"/import", c.handleImport)
	mux.HandleFunc("GET "+prefix+"/health", c.handleHealth)
}

// handleData returns the full snapshot. Clients poll this endpoint
// and reconcile their local caches against it.
func (c *Component) handleData(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, c.store.Snapshot())
}

// ProposeRequest is the request body for POST /api/tasks/propose.
type ProposeRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ProposedBy  string `json:"proposedBy"`
}

func (c *Component) handlePropose(w http.ResponseWriter, r *http.Request) {
	var req ProposeRequest
	if !decodeBody(w, r, &req) {
		c.metrics.Count("propose", outcomeInvalid)
		return
	}

	task, err := c.store.Propose(req.Title, req.Description, req.ProposedBy)
	if err != nil {
		c.metrics.Count("propose", outcomeFor(err))
		writeError(w, err)
		return
	}

	c.logger.Info("Task proposed", "task_id", task.ID, "proposed_by", task.ProposedBy)
	c.metrics.Count("propose", outcomeOK)
	c.saveSnapshot(r.Context())
	writeJSON(w, http.StatusOK, task)
}

// userRequest is the shared body shape of validate/reject/complete/
// delete calls.
type userRequest struct {
	UserID string `json:"userId"`
}

func (c *Component) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decodeBody(w, r, &req) {
		c.metrics.Count("validate", outcomeInvalid)
		return
	}

	res, err := c.store.Validate(r.PathValue("taskID"), req.UserID)
	if err != nil {
		c.metrics.Count("validate", outcomeFor(err))
		writeError(w, err)
		return
	}

	if res.Approved {
		c.logger.Info("Task approved", "task_id", res.Task.ID, "validated_by", req.UserID)
	} else {
		c.logger.Info("Validation recorded",
			"task_id", res.Task.ID,
			"validated_by", req.UserID,
			"validations", res.Validations)
	}
	c.metrics.Count("validate", outcomeOK)
	c.saveSnapshot(r.Context())
	writeJSON(w, http.StatusOK, res)
}

// taskResponse wraps mutating responses that return the affected task.
type taskResponse struct {
	Task *checklist.Task `json:"task"`
}

func (c *Component) handleReject(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decodeBody(w, r, &req) {
		c.metrics.Count("reject", outcomeInvalid)
		return
	}

	task, err := c.store.Reject(r.PathValue("taskID"), req.UserID)
	if err != nil {
		c.metrics.Count("reject", outcomeFor(err))
		writeError(w, err)
		return
	}

	c.logger.Info("Task rejected", "task_id", task.ID, "rejected_by", req.UserID)
	c.metrics.Count("reject", outcomeOK)
	c.saveSnapshot(r.Context())
	writeJSON(w, http.StatusOK, taskResponse{Task: task})
}

func (c *Component) handleComplete(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decodeBody(w, r, &req) {
		c.metrics.Count("complete", outcomeInvalid)
		return
	}

	task, err := c.store.Complete(r.PathValue("taskID"), req.UserID)
	if err != nil {
		c.metrics.Count("complete", outcomeFor(err))
		writeError(w, err)
		return
	}

	c.logger.Info("Task completed", "task_id", task.ID, "completed_by", req.UserID)
	c.metrics.Count("complete", outcomeOK)
	c.saveSnapshot(r.Context())
	writeJSON(w, http.StatusOK, task)
}

func (c *Component) handleDelete(w http.ResponseWriter, r *http.Request) {
	// DELETE bodies are optional; a missing body means an anonymous
	// deletion, matching the original behaviour.
	var req userRequest
	if r.Body != nil {
		_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(&req)
	}

	task, err := c.store.Delete(r.PathValue("taskID"), req.UserID)
	if err != nil {
		c.metrics.Count("delete", outcomeFor(err))
		writeError(w, err)
		return
	}

	c.logger.Info("Task deleted", "task_id", task.ID, "deleted_by", req.UserID)
	c.metrics.Count("delete", outcomeOK)
	c.saveSnapshot(r.Context())
	writeJSON(w, http.StatusOK, taskResponse{Task: task})
}

func (c *Component) handleExport(w http.ResponseWriter, _ *http.Request) {
	payload := c.store.Export()
	w.Header().Set("Content-Disposition", `attachment; filename="duolist-export.json"`)
	c.metrics.Count("export", outcomeOK)
	writeJSON(w, http.StatusOK, payload)
}

func (c *Component) handleImport(w http.ResponseWriter, r *http.Request) {
	var payload checklist.ExportPayload
	if !decodeBody(w, r, &payload) {
		c.metrics.Count("import", outcomeInvalid)
		return
	}

	res, err := c.store.Import(&payload)
	if err != nil {
		c.metrics.Count("import", outcomeFor(err))
		writeError(w, err)
		return
	}

	c.logger.Info("Data imported", "tasks_added", res.TasksAdded, "pending_added", res.PendingAdded)
	c.metrics.Count("import", outcomeOK)
	c.saveSnapshot(r.Context())
	writeJSON(w, http.StatusOK, res)
}

func (c *Component) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, c.store.Health())
}

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

// errorResponse is the JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}

// decodeBody parses the JSON request body into dst, writing a 400 on
// failure. Returns false when the handler should stop.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

// writeError maps domain errors to HTTP status codes:
// ValidationError→400, ErrNotFound→404, anything else→500. A 404 on a
// mutating call tells the client to force a reconciliation pass.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case checklist.IsValidationError(err):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, checklist.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

// outcomeFor maps an error to a metrics outcome label.
func outcomeFor(err error) string {
	switch {
	case checklist.IsValidationError(err):
		return outcomeInvalid
	case errors.Is(err, checklist.ErrNotFound):
		return outcomeNotFound
	default:
		return outcomeError
	}
}

// writeJSON marshals v as JSON and writes it with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
