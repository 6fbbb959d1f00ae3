package checklist

import "time"

// ExportVersion is the format version stamped on exported data.
const ExportVersion = "2.0"

// ExportPayload is the wire format for export and import. It is the
// snapshot plus provenance fields, matching the JSON files users
// download and re-upload.
type ExportPayload struct {
	Users        []string  `json:"users,omitempty"`
	Tasks        []*Task   `json:"tasks"`
	PendingTasks []*Task   `json:"pendingTasks"`
	ExportedAt   time.Time `json:"exportedAt,omitempty"`
	Version      string    `json:"version,omitempty"`
}

// ImportResult summarizes what an import actually merged.
type ImportResult struct {
	TasksAdded   int `json:"tasksAdded"`
	PendingAdded int `json:"pendingAdded"`
}

// Export returns the full state as a downloadable payload.
func (s *Store) Export() *ExportPayload {
	snap := s.Snapshot()
	return &ExportPayload{
		Users:        snap.Users,
		Tasks:        snap.Tasks,
		PendingTasks: snap.PendingTasks,
		ExportedAt:   s.now(),
		Version:      ExportVersion,
	}
}

// Import merges an exported payload into the store. Tasks whose ID is
// already present in either collection are skipped, so re-importing
// the same file is harmless. Existing users are kept. A payload with
// neither tasks nor pending tasks is rejected.
func (s *Store) Import(payload *ExportPayload) (*ImportResult, error) {
	if payload == nil || (payload.Tasks == nil && payload.PendingTasks == nil) {
		return nil, &ValidationError{Field: "data", Message: "invalid import format"}
	}

	s.mu.Lock()
	known := make(map[string]bool, len(s.tasks)+len(s.pending))
	for _, t := range s.tasks {
		known[t.ID] = true
	}
	for _, t := range s.pending {
		known[t.ID] = true
	}

	res := &ImportResult{}
	for _, t := range payload.Tasks {
		if t == nil || t.ID == "" || known[t.ID] {
			continue
		}
		known[t.ID] = true
		s.tasks = append(s.tasks, t.Clone())
		res.TasksAdded++
	}
	for _, t := range payload.PendingTasks {
		if t == nil || t.ID == "" || known[t.ID] {
			continue
		}
		known[t.ID] = true
		s.pending = append(s.pending, t.Clone())
		res.PendingAdded++
	}
	if res.TasksAdded > 0 || res.PendingAdded > 0 {
		s.revision++
	}
	s.mu.Unlock()

	s.emit(&DataImported{TasksAdded: res.TasksAdded, PendingAdded: res.PendingAdded})
	return res, nil
}
