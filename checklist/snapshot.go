package checklist

// Snapshot is an immutable view of the full checklist state. Tasks
// holds active and completed tasks, PendingTasks holds proposals that
// have not yet reached quorum. Revision increases with every mutation
// so observers can detect change cheaply.
type Snapshot struct {
	Users        []string `json:"users"`
	Tasks        []*Task  `json:"tasks"`
	PendingTasks []*Task  `json:"pendingTasks"`
	Revision     uint64   `json:"revision"`
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := &Snapshot{
		Users:        append([]string(nil), s.Users...),
		Tasks:        make([]*Task, 0, len(s.Tasks)),
		PendingTasks: make([]*Task, 0, len(s.PendingTasks)),
		Revision:     s.Revision,
	}
	for _, t := range s.Tasks {
		c.Tasks = append(c.Tasks, t.Clone())
	}
	for _, t := range s.PendingTasks {
		c.PendingTasks = append(c.PendingTasks, t.Clone())
	}
	return c
}

// FindTask returns the task with the given ID from either collection,
// or nil when absent.
func (s *Snapshot) FindTask(id string) *Task {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t
		}
	}
	for _, t := range s.PendingTasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}
