package checklist

import "time"

// Health is the summary returned by the health endpoint.
type Health struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	Users        []string  `json:"users"`
	TasksCount   int       `json:"tasksCount"`
	PendingCount int       `json:"pendingCount"`
	Revision     uint64    `json:"revision"`
}

// Health reports the store's current shape.
func (s *Store) Health() *Health {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &Health{
		Status:       "ok",
		Timestamp:    s.now(),
		Users:        append([]string(nil), s.users...),
		TasksCount:   len(s.tasks),
		PendingCount: len(s.pending),
		Revision:     s.revision,
	}
}
