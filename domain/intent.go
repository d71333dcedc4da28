package domain

// IntentKind discriminates the intent sum type.
type IntentKind string

const (
	IntentCreate    IntentKind = "create"
	IntentUpdate    IntentKind = "update"
	IntentMove      IntentKind = "move"
	IntentReorder   IntentKind = "reorder"
	IntentBulkMove  IntentKind = "bulk-move"
	IntentDelete    IntentKind = "delete"
	IntentApprove   IntentKind = "approve"
	IntentReject    IntentKind = "reject"
	IntentDuplicate IntentKind = "duplicate"
	IntentSetColor  IntentKind = "set-color"
)

// Intent is a user action against the board, modeled as a value. The DnD
// controller and UI controls produce intents; the coordinator consumes them.
type Intent interface {
	Kind() IntentKind
	// Action returns the capability required to perform the intent.
	Action() Action
}

// CreateTask inserts a new task at the tail of a stage.
type CreateTask struct {
	Stage string
	Task  NewTask
}

// UpdateTask applies a field patch to a task in place.
type UpdateTask struct {
	TaskID string
	Patch  TaskPatch
}

// MoveTask places a task at a position within a stage.
type MoveTask struct {
	TaskID   string
	StageID  string
	Position int
}

// ReorderStage rewrites the order of a single stage.
type ReorderStage struct {
	StageID string
	Ordered []string
}

// BulkMove appends the selected tasks, in order, to the tail of a stage.
type BulkMove struct {
	TaskIDs []string
	StageID string
}

// DeleteTask removes a task from the board.
type DeleteTask struct {
	TaskID string
}

// ApproveTask marks a task approved.
type ApproveTask struct {
	TaskID string
}

// RejectTask marks a task rejected and returns it to the configured stage.
// An empty ReturnStageID means the coordinator's default.
type RejectTask struct {
	TaskID        string
	ReturnStageID string
}

// DuplicateTask creates a copy of a task in the same stage.
type DuplicateTask struct {
	TaskID string
}

// SetColor changes a task's display color.
type SetColor struct {
	TaskID string
	Color  string
}

func (CreateTask) Kind() IntentKind    { return IntentCreate }
func (UpdateTask) Kind() IntentKind    { return IntentUpdate }
func (MoveTask) Kind() IntentKind      { return IntentMove }
func (ReorderStage) Kind() IntentKind  { return IntentReorder }
func (BulkMove) Kind() IntentKind      { return IntentBulkMove }
func (DeleteTask) Kind() IntentKind    { return IntentDelete }
func (ApproveTask) Kind() IntentKind   { return IntentApprove }
func (RejectTask) Kind() IntentKind    { return IntentReject }
func (DuplicateTask) Kind() IntentKind { return IntentDuplicate }
func (SetColor) Kind() IntentKind      { return IntentSetColor }

func (CreateTask) Action() Action    { return ActionEdit }
func (UpdateTask) Action() Action    { return ActionEdit }
func (MoveTask) Action() Action      { return ActionEdit }
func (ReorderStage) Action() Action  { return ActionEdit }
func (BulkMove) Action() Action      { return ActionEdit }
func (DeleteTask) Action() Action    { return ActionEdit }
func (ApproveTask) Action() Action   { return ActionApprove }
func (RejectTask) Action() Action    { return ActionApprove }
func (DuplicateTask) Action() Action { return ActionEdit }
func (SetColor) Action() Action      { return ActionEdit }
