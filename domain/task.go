package domain

import "time"

// Priority levels a task can carry.
type Priority string

const (
	PriorityNone   Priority = "none"
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is one of the known priority levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityNone, PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// ApprovalStatus tracks the review state of a task.
type ApprovalStatus string

const (
	ApprovalNone     ApprovalStatus = "none"
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Valid reports whether a is one of the known approval states.
func (a ApprovalStatus) Valid() bool {
	switch a {
	case ApprovalNone, ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	}
	return false
}

// Task represents a single board item.
type Task struct {
	ID          string         `json:"id"`
	ProjectID   string         `json:"project_id"`
	StageID     string         `json:"stage_id"`
	Title       string         `json:"title"`
	Description *string        `json:"description,omitempty"`
	Priority    Priority       `json:"priority"`
	DueAt       *time.Time     `json:"due_date,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Color       *string        `json:"color,omitempty"`
	Approval    ApprovalStatus `json:"approval_status"`
	ApprovedAt  *time.Time     `json:"approved_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Assignees   []string       `json:"assignees,omitempty"`
	Position    int            `json:"position"`
}

// Clone returns a deep copy of the task. Pointer fields and slices are
// duplicated so mutations on the copy never leak into the original.
func (t Task) Clone() Task {
	c := t
	c.Description = clonePtr(t.Description)
	c.DueAt = clonePtr(t.DueAt)
	c.Color = clonePtr(t.Color)
	c.ApprovedAt = clonePtr(t.ApprovedAt)
	c.CompletedAt = clonePtr(t.CompletedAt)
	if t.Tags != nil {
		c.Tags = append([]string(nil), t.Tags...)
	}
	if t.Assignees != nil {
		c.Assignees = append([]string(nil), t.Assignees...)
	}
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// TaskPatch carries a partial update for a task. Nil fields are left
// untouched when the patch is applied.
type TaskPatch struct {
	Title       *string         `json:"title,omitempty"`
	Description *string         `json:"description,omitempty"`
	Priority    *Priority       `json:"priority,omitempty"`
	DueAt       *time.Time      `json:"due_date,omitempty"`
	Tags        *[]string       `json:"tags,omitempty"`
	Color       *string         `json:"color,omitempty"`
	Approval    *ApprovalStatus `json:"approval_status,omitempty"`
	ApprovedAt  *time.Time      `json:"approved_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Assignees   *[]string       `json:"assignees,omitempty"`
}

// ApplyTo merges the patch into the given task. Stage and position are never
// touched here; moves go through the dedicated move path.
func (p TaskPatch) ApplyTo(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = clonePtr(p.Description)
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.DueAt != nil {
		t.DueAt = clonePtr(p.DueAt)
	}
	if p.Tags != nil {
		t.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.Color != nil {
		t.Color = clonePtr(p.Color)
	}
	if p.Approval != nil {
		t.Approval = *p.Approval
	}
	if p.ApprovedAt != nil {
		t.ApprovedAt = clonePtr(p.ApprovedAt)
	}
	if p.CompletedAt != nil {
		t.CompletedAt = clonePtr(p.CompletedAt)
	}
	if p.Assignees != nil {
		t.Assignees = append([]string(nil), (*p.Assignees)...)
	}
}

// NewTask is the payload for creating a task.
type NewTask struct {
	ProjectID   string     `json:"project_id"`
	StageID     string     `json:"stage_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Priority    Priority   `json:"priority"`
	DueAt       *time.Time `json:"due_date,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Color       *string    `json:"color,omitempty"`
	Assignees   []string   `json:"assignees,omitempty"`
	Position    int        `json:"position"`
}
