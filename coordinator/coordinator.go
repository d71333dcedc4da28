// Package coordinator turns user intents into durable remote changes with
// immediate local feedback. Every intent follows the same protocol: gate on
// the viewer's role, snapshot the board, apply the optimistic local change,
// issue the remote write, and on failure restore the snapshot and surface
// the error.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"boardsync/board"
	"boardsync/domain"
	"boardsync/remote"
)

// DefaultReturnStage receives rejected tasks unless configured otherwise.
const DefaultReturnStage = "todo"

// RemoteStore is the write surface of the remote board store.
type RemoteStore interface {
	CreateTask(ctx context.Context, nt domain.NewTask) (domain.Task, error)
	UpdateTask(ctx context.Context, taskID string, patch domain.TaskPatch) (domain.Task, error)
	MoveTask(ctx context.Context, taskID, stageID string, position int) error
	ReorderStage(ctx context.Context, projectID, stageID string, orderedTaskIDs []string) error
	DeleteTask(ctx context.Context, taskID string) error
	ApproveTask(ctx context.Context, taskID string) (domain.Task, error)
	RejectTask(ctx context.Context, taskID, returnStageID string) error
}

// Notifier surfaces user-facing feedback. Toast rendering is the UI's
// concern; the coordinator only decides the text.
type Notifier interface {
	Error(message string)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) Error(string) {}

// MutationStatus tracks the lifecycle of one optimistic mutation.
type MutationStatus string

const (
	MutationInFlight  MutationStatus = "in-flight"
	MutationConfirmed MutationStatus = "confirmed"
	MutationFailed    MutationStatus = "failed"
)

// PendingMutation records one in-flight optimistic change: its correlation
// id, the intent, and the snapshot rollback restores.
type PendingMutation struct {
	ID       string
	Intent   domain.Intent
	Snapshot board.Snapshot
	Deadline time.Time
	Status   MutationStatus
}

// Coordinator applies intents for one mounted project.
type Coordinator struct {
	projectID   string
	role        domain.Role
	board       *board.Store
	remote      RemoteStore
	notifier    Notifier
	logger      *log.Logger
	returnStage string
	now         func() time.Time

	mu      sync.Mutex
	pending map[string]*PendingMutation
}

// Options tune a coordinator beyond its required collaborators.
type Options struct {
	// ReturnStage receives rejected tasks; empty means DefaultReturnStage.
	ReturnStage string
	Notifier    Notifier
	Logger      *log.Logger
}

// New creates a coordinator for a mounted project. role is the viewer's
// role, used by the permission gate on every entry point.
func New(projectID string, role domain.Role, b *board.Store, rs RemoteStore, opts Options) *Coordinator {
	if opts.ReturnStage == "" {
		opts.ReturnStage = DefaultReturnStage
	}
	if opts.Notifier == nil {
		opts.Notifier = NopNotifier{}
	}
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	return &Coordinator{
		projectID:   projectID,
		role:        role,
		board:       b,
		remote:      rs,
		notifier:    opts.Notifier,
		logger:      opts.Logger,
		returnStage: opts.ReturnStage,
		now:         time.Now,
		pending:     make(map[string]*PendingMutation),
	}
}

// Apply executes one intent end to end. The returned error is already
// handled (rolled back and surfaced); callers use it only to know whether
// the intent stuck.
func (c *Coordinator) Apply(ctx context.Context, intent domain.Intent) (err error) {
	m := newIntentMetrics(ctx, c.logger, intent.Kind())
	defer func() { m.Finish(err) }()

	if !domain.Allows(c.role, intent.Action()) {
		m.SetStage("gate")
		c.notifier.Error("You don't have permission to do that")
		return domain.ErrPermissionDenied
	}

	pm := &PendingMutation{
		ID:       uuid.NewString(),
		Intent:   intent,
		Snapshot: c.board.Snapshot(),
		Deadline: c.now().Add(time.Minute),
		Status:   MutationInFlight,
	}
	c.track(pm)
	defer c.untrack(pm.ID)

	switch it := intent.(type) {
	case domain.CreateTask:
		err = c.create(ctx, pm, it)
	case domain.UpdateTask:
		err = c.update(ctx, pm, it)
	case domain.MoveTask:
		err = c.move(ctx, pm, it)
	case domain.ReorderStage:
		err = c.reorder(ctx, pm, it)
	case domain.BulkMove:
		err = c.bulkMove(ctx, pm, it)
	case domain.DeleteTask:
		err = c.delete(ctx, pm, it)
	case domain.ApproveTask:
		err = c.approve(ctx, pm, it)
	case domain.RejectTask:
		err = c.reject(ctx, pm, it)
	case domain.DuplicateTask:
		err = c.duplicate(ctx, pm, it)
	case domain.SetColor:
		err = c.setColor(ctx, pm, it)
	default:
		err = fmt.Errorf("unknown intent kind %q", intent.Kind())
	}
	if err != nil {
		m.SetStage("remote")
		m.SetRolledBack(pm.Status == MutationFailed)
	}
	return err
}

// rollback restores the snapshot taken at dispatch and surfaces the remote
// failure. The remote error message is shown verbatim when present.
func (c *Coordinator) rollback(pm *PendingMutation, err error, fallback string) error {
	c.board.Restore(pm.Snapshot)
	pm.Status = MutationFailed
	c.notifier.Error(remote.UserMessage(err, fallback))
	c.logger.WithFields(log.Fields{
		"project":  c.projectID,
		"intent":   string(pm.Intent.Kind()),
		"mutation": pm.ID,
		"error":    err.Error(),
	}).Warn("intent rolled back")
	return err
}

func (c *Coordinator) create(ctx context.Context, pm *PendingMutation, it domain.CreateTask) error {
	nt := it.Task
	nt.StageID = it.Stage
	nt.ProjectID = c.projectID
	nt.Position = c.board.StageLen(it.Stage)

	// optimistic insert at the stage tail under a temporary id, retired
	// once the server row arrives
	tempID := "tmp-" + uuid.NewString()
	c.board.Upsert(domain.Task{
		ID:        tempID,
		ProjectID: c.projectID,
		StageID:   it.Stage,
		Title:     nt.Title,
		Priority:  orDefault(nt.Priority),
		Approval:  domain.ApprovalNone,
	})

	row, err := c.remote.CreateTask(ctx, nt)
	if err != nil {
		return c.rollback(pm, err, "Failed to create task")
	}
	c.board.Delete(tempID)
	c.board.Upsert(row)
	pm.Status = MutationConfirmed
	return nil
}

func (c *Coordinator) update(ctx context.Context, pm *PendingMutation, it domain.UpdateTask) error {
	c.board.Patch(it.TaskID, it.Patch)
	row, err := c.remote.UpdateTask(ctx, it.TaskID, it.Patch)
	if err != nil {
		return c.rollback(pm, err, "Failed to update task")
	}
	c.board.Upsert(row)
	pm.Status = MutationConfirmed
	return nil
}

func (c *Coordinator) move(ctx context.Context, pm *PendingMutation, it domain.MoveTask) error {
	c.board.Move(it.TaskID, it.StageID, it.Position)
	if err := c.remote.MoveTask(ctx, it.TaskID, it.StageID, it.Position); err != nil {
		return c.rollback(pm, err, "Failed to move task")
	}
	pm.Status = MutationConfirmed
	return nil
}

func (c *Coordinator) reorder(ctx context.Context, pm *PendingMutation, it domain.ReorderStage) error {
	c.board.Reorder(it.StageID, it.Ordered)
	// the full intended order is what the store persists
	order := c.board.TaskIDs(it.StageID)
	if err := c.remote.ReorderStage(ctx, c.projectID, it.StageID, order); err != nil {
		return c.rollback(pm, err, "Failed to reorder tasks")
	}
	pm.Status = MutationConfirmed
	return nil
}

// bulkMove awaits every per-task write as one group; any failure rolls the
// whole batch back.
func (c *Coordinator) bulkMove(ctx context.Context, pm *PendingMutation, it domain.BulkMove) error {
	base := c.board.StageLen(it.StageID)
	c.board.BulkMoveTasks(it.TaskIDs, it.StageID)

	var firstErr error
	for i, id := range it.TaskIDs {
		if err := c.remote.MoveTask(ctx, id, it.StageID, base+i); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return c.rollback(pm, firstErr, "Failed to move tasks")
	}
	pm.Status = MutationConfirmed
	return nil
}

func (c *Coordinator) delete(ctx context.Context, pm *PendingMutation, it domain.DeleteTask) error {
	c.board.Delete(it.TaskID)
	if err := c.remote.DeleteTask(ctx, it.TaskID); err != nil {
		return c.rollback(pm, err, "Failed to delete task")
	}
	pm.Status = MutationConfirmed
	return nil
}

func (c *Coordinator) approve(ctx context.Context, pm *PendingMutation, it domain.ApproveTask) error {
	approved := domain.ApprovalApproved
	now := c.now().UTC()
	c.board.Patch(it.TaskID, domain.TaskPatch{Approval: &approved, ApprovedAt: &now})
	row, err := c.remote.ApproveTask(ctx, it.TaskID)
	if err != nil {
		return c.rollback(pm, err, "Failed to approve task")
	}
	c.board.Upsert(row)
	pm.Status = MutationConfirmed
	return nil
}

func (c *Coordinator) reject(ctx context.Context, pm *PendingMutation, it domain.RejectTask) error {
	returnStage := it.ReturnStageID
	if returnStage == "" {
		returnStage = c.returnStage
	}
	rejected := domain.ApprovalRejected
	c.board.Move(it.TaskID, returnStage, c.board.StageLen(returnStage))
	c.board.Patch(it.TaskID, domain.TaskPatch{Approval: &rejected})
	if err := c.remote.RejectTask(ctx, it.TaskID, returnStage); err != nil {
		return c.rollback(pm, err, "Failed to reject task")
	}
	pm.Status = MutationConfirmed
	return nil
}

// duplicate waits for the server-assigned id; there is no optimistic insert.
func (c *Coordinator) duplicate(ctx context.Context, pm *PendingMutation, it domain.DuplicateTask) error {
	_, _, src, ok := c.board.Find(it.TaskID)
	if !ok {
		err := fmt.Errorf("task %s: %w", it.TaskID, domain.ErrNotFound)
		c.notifier.Error("Failed to duplicate task")
		pm.Status = MutationFailed
		return err
	}
	nt := domain.NewTask{
		ProjectID:   c.projectID,
		StageID:     src.StageID,
		Title:       copyTitle(src.Title),
		Description: src.Description,
		Priority:    src.Priority,
		DueAt:       src.DueAt,
		Tags:        src.Tags,
		Color:       src.Color,
		Position:    c.board.StageLen(src.StageID),
	}
	row, err := c.remote.CreateTask(ctx, nt)
	if err != nil {
		return c.rollback(pm, err, "Failed to duplicate task")
	}
	c.board.Upsert(row)
	pm.Status = MutationConfirmed
	return nil
}

func (c *Coordinator) setColor(ctx context.Context, pm *PendingMutation, it domain.SetColor) error {
	color := it.Color
	patch := domain.TaskPatch{Color: &color}
	c.board.Patch(it.TaskID, patch)
	row, err := c.remote.UpdateTask(ctx, it.TaskID, patch)
	if err != nil {
		return c.rollback(pm, err, "Failed to change color")
	}
	c.board.Upsert(row)
	pm.Status = MutationConfirmed
	return nil
}

func (c *Coordinator) track(pm *PendingMutation) {
	c.mu.Lock()
	c.pending[pm.ID] = pm
	c.mu.Unlock()
}

func (c *Coordinator) untrack(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// InFlight returns the number of unresolved optimistic mutations.
func (c *Coordinator) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, pm := range c.pending {
		if pm.Status == MutationInFlight {
			n++
		}
	}
	return n
}

func copyTitle(title string) string {
	return title + " (copy)"
}

func orDefault(p domain.Priority) domain.Priority {
	if p == "" {
		return domain.PriorityNone
	}
	return p
}
