package domain

import "encoding/json"

// EventKind is the change type carried by a realtime event.
type EventKind string

const (
	EventInsert EventKind = "insert"
	EventUpdate EventKind = "update"
	EventDelete EventKind = "delete"
)

// Table identifies which table a change event refers to.
type Table string

const (
	TableTasks   Table = "tasks"
	TableProject Table = "projects"
	TableMembers Table = "project_members"
)

// ChangeEvent is a single change notification from the remote store.
// Insert and update events carry the row's new contents; delete events carry
// only the primary key.
type ChangeEvent struct {
	Kind      EventKind       `json:"kind"`
	Table     Table           `json:"table"`
	ProjectID string          `json:"project_id"`
	Row       json.RawMessage `json:"row,omitempty"`
	ID        string          `json:"id,omitempty"`
}

// FilterFor builds the scope expression for events of a single project.
func FilterFor(projectID string) string {
	return "project_id=eq." + projectID
}

// Matches reports whether the event falls inside the given filter scope.
// An empty filter matches everything.
func (e ChangeEvent) Matches(filter string) bool {
	if filter == "" {
		return true
	}
	return FilterFor(e.ProjectID) == filter
}
