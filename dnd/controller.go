package dnd

import "boardsync/domain"

// Board is the read surface the controller needs to turn a drop into an
// intent.
type Board interface {
	TaskIDs(stageID string) []string
	StageLen(stageID string) int
}

// TargetKind discriminates what the pointer was released over.
type TargetKind int

const (
	// TargetNone means the drop target could not be resolved.
	TargetNone TargetKind = iota
	// TargetStage is a drop on a stage column's empty area.
	TargetStage
	// TargetTask is a drop on another task card.
	TargetTask
)

// DropTarget is the host's hit-test result at drag end.
type DropTarget struct {
	Kind    TargetKind
	StageID string
	TaskID  string
	Index   int
}

// Controller resolves completed drags into intents. It also tracks the
// multi-select set for bulk moves.
type Controller struct {
	board     Board
	selection []string
}

// NewController creates a controller over the given board view.
func NewController(board Board) *Controller {
	return &Controller{board: board}
}

// Select toggles a task in the bulk selection, preserving selection order.
func (c *Controller) Select(taskID string) {
	for i, id := range c.selection {
		if id == taskID {
			c.selection = append(c.selection[:i], c.selection[i+1:]...)
			return
		}
	}
	c.selection = append(c.selection, taskID)
}

// Selection returns the selected task ids in selection order.
func (c *Controller) Selection() []string {
	return append([]string(nil), c.selection...)
}

// ClearSelection empties the bulk selection.
func (c *Controller) ClearSelection() {
	c.selection = nil
}

// Resolve turns a finished drag into an intent. ok is false when the drop
// is a no-op or the target cannot be resolved, in which case the drag is
// simply cancelled with no state change.
func (c *Controller) Resolve(item DragItem, target DropTarget) (intent domain.Intent, ok bool) {
	if target.Kind == TargetNone {
		return nil, false
	}

	// a multi-select drop becomes a single bulk move, selection order kept
	if len(c.selection) > 1 && contains(c.selection, item.TaskID) {
		stage := target.StageID
		if stage == "" {
			return nil, false
		}
		return domain.BulkMove{TaskIDs: c.Selection(), StageID: stage}, true
	}

	switch target.Kind {
	case TargetStage:
		if target.StageID == item.StageID {
			// dropping a task back on its own column changes nothing
			return nil, false
		}
		return domain.MoveTask{
			TaskID:   item.TaskID,
			StageID:  target.StageID,
			Position: c.board.StageLen(target.StageID),
		}, true
	case TargetTask:
		if target.TaskID == item.TaskID {
			return nil, false
		}
		if target.StageID == item.StageID {
			order := reorderWithin(c.board.TaskIDs(item.StageID), item.TaskID, target.Index)
			return domain.ReorderStage{StageID: item.StageID, Ordered: order}, true
		}
		return domain.MoveTask{
			TaskID:   item.TaskID,
			StageID:  target.StageID,
			Position: target.Index,
		}, true
	}
	return nil, false
}

// reorderWithin builds the stage order with taskID occupying the target
// index and the other tasks shifting around it.
func reorderWithin(ids []string, taskID string, index int) []string {
	without := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != taskID {
			without = append(without, id)
		}
	}
	if index < 0 {
		index = 0
	}
	if index > len(without) {
		index = len(without)
	}
	order := make([]string, 0, len(ids))
	order = append(order, without[:index]...)
	order = append(order, taskID)
	order = append(order, without[index:]...)
	return order
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
