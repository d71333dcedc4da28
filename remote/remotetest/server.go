// Package remotetest provides an in-memory implementation of the remote
// board store contract. The engine's own tests run against it, and consumers
// can use it to test code built on the engine without a real backend.
package remotetest

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"boardsync/domain"
)

// Publisher receives a change event for every committed write, mirroring the
// realtime feed the production store emits.
type Publisher func(domain.ChangeEvent)

// Server is an in-memory board store speaking the remote HTTP contract.
type Server struct {
	auth    *Auth
	e       *echo.Echo
	httpSrv *httptest.Server
	publish Publisher

	mu       sync.Mutex
	project  domain.Project
	byStage  map[string][]domain.Task
	failNext map[string]string
}

// NewServer starts an in-memory store seeded with the given project and
// tasks. publish may be nil. Close must be called when done.
func NewServer(project domain.Project, tasksByStage map[string][]domain.Task, publish Publisher) *Server {
	s := &Server{
		auth:     NewAuth([]byte("remotetest-secret")),
		publish:  publish,
		project:  project,
		byStage:  make(map[string][]domain.Task, len(project.Stages)),
		failNext: make(map[string]string),
	}
	for _, st := range project.Stages {
		s.byStage[st.ID] = append([]domain.Task(nil), tasksByStage[st.ID]...)
	}
	s.reindex()

	e := echo.New()
	e.HideBanner = true
	e.GET("/projects/:id", s.getProject)
	e.GET("/projects/:id/members", s.getMembers)
	e.POST("/projects/:id/reorder", s.postReorder)
	e.POST("/tasks", s.postTask)
	e.PATCH("/tasks/:id", s.patchTask)
	e.POST("/tasks/:id/move", s.postMove)
	e.DELETE("/tasks/:id", s.deleteTask)
	e.POST("/tasks/:id/approve", s.postApprove)
	e.DELETE("/tasks/:id/approve", s.deleteApprove)
	s.e = e
	s.httpSrv = httptest.NewServer(e)
	return s
}

// URL returns the server's base URL.
func (s *Server) URL() string { return s.httpSrv.URL }

// Close shuts the server down.
func (s *Server) Close() { s.httpSrv.Close() }

// Token mints a session token for the given user.
func (s *Server) Token(userID string) string {
	tok, err := s.auth.SignToken(userID)
	if err != nil {
		panic(err)
	}
	return tok
}

// FailNext makes the next call of the given operation fail with the message.
// Operations: create, update, move, reorder, delete, approve, reject.
func (s *Server) FailNext(op, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[op] = message
}

// TasksByStage returns a copy of the store's current board.
func (s *Server) TasksByStage() map[string][]domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]domain.Task, len(s.byStage))
	for stage, seq := range s.byStage {
		out[stage] = append([]domain.Task(nil), seq...)
	}
	return out
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) authorize(c echo.Context, action domain.Action) (string, domain.Role, error) {
	userID, err := s.auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
	if err != nil {
		return "", "", c.JSON(http.StatusUnauthorized, errorBody{Error: err.Error()})
	}
	role, ok := s.project.RoleOf(userID)
	if !ok {
		return "", "", c.JSON(http.StatusForbidden, errorBody{Error: "not a project member"})
	}
	if !domain.Allows(role, action) {
		return "", "", c.JSON(http.StatusForbidden, errorBody{Error: "insufficient role"})
	}
	return userID, role, nil
}

// injected returns a non-nil response when a failure was armed for op.
func (s *Server) injected(c echo.Context, op string) error {
	if msg, ok := s.failNext[op]; ok {
		delete(s.failNext, op)
		return c.JSON(http.StatusConflict, errorBody{Error: msg})
	}
	return nil
}

func (s *Server) getProject(c echo.Context) error {
	userID, role, err := s.authorize(c, domain.ActionView)
	if err != nil {
		return err
	}
	_ = userID
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Param("id") != s.project.ID {
		return c.JSON(http.StatusNotFound, errorBody{Error: "project not found"})
	}
	counts := make(map[string]int, len(s.byStage))
	for stage, seq := range s.byStage {
		counts[stage] = len(seq)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"project":        s.project,
		"role":           role,
		"tasks_by_stage": s.byStage,
		"counts":         counts,
	})
}

func (s *Server) getMembers(c echo.Context) error {
	_, role, err := s.authorize(c, domain.ActionView)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(http.StatusOK, map[string]any{
		"members": s.project.Members,
		"role":    role,
	})
}

func (s *Server) postTask(c echo.Context) error {
	if _, _, err := s.authorize(c, domain.ActionEdit); err != nil {
		return err
	}
	var nt domain.NewTask
	if err := c.Bind(&nt); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid body"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected(c, "create"); err != nil {
		return err
	}
	if _, ok := s.byStage[nt.StageID]; !ok {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "unknown stage"})
	}
	if nt.Title == "" {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "title is required"})
	}
	task := domain.Task{
		ID:          uuid.NewString(),
		ProjectID:   s.project.ID,
		StageID:     nt.StageID,
		Title:       nt.Title,
		Description: nt.Description,
		Priority:    nt.Priority,
		DueAt:       nt.DueAt,
		Tags:        nt.Tags,
		Color:       nt.Color,
		Approval:    domain.ApprovalNone,
		Assignees:   nt.Assignees,
	}
	if task.Priority == "" {
		task.Priority = domain.PriorityNone
	}
	s.byStage[nt.StageID] = append(s.byStage[nt.StageID], task)
	s.reindex()
	s.emit(domain.EventInsert, task)
	return c.JSON(http.StatusCreated, s.find(task.ID))
}

func (s *Server) patchTask(c echo.Context) error {
	if _, _, err := s.authorize(c, domain.ActionEdit); err != nil {
		return err
	}
	var patch domain.TaskPatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid body"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected(c, "update"); err != nil {
		return err
	}
	stage, idx, ok := s.locate(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, errorBody{Error: "task not found"})
	}
	patch.ApplyTo(&s.byStage[stage][idx])
	task := s.byStage[stage][idx]
	s.emit(domain.EventUpdate, task)
	return c.JSON(http.StatusOK, task)
}

func (s *Server) postMove(c echo.Context) error {
	if _, _, err := s.authorize(c, domain.ActionEdit); err != nil {
		return err
	}
	var req struct {
		StageID  string `json:"stage_id"`
		Position int    `json:"position"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid body"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected(c, "move"); err != nil {
		return err
	}
	if _, ok := s.byStage[req.StageID]; !ok {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "unknown stage"})
	}
	if !s.move(c.Param("id"), req.StageID, req.Position) {
		return c.JSON(http.StatusNotFound, errorBody{Error: "task not found"})
	}
	stage, idx, _ := s.locate(c.Param("id"))
	s.emit(domain.EventUpdate, s.byStage[stage][idx])
	return c.NoContent(http.StatusOK)
}

func (s *Server) postReorder(c echo.Context) error {
	if _, _, err := s.authorize(c, domain.ActionEdit); err != nil {
		return err
	}
	var req struct {
		StageID        string   `json:"stage_id"`
		OrderedTaskIDs []string `json:"ordered_task_ids"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid body"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected(c, "reorder"); err != nil {
		return err
	}
	seq, ok := s.byStage[req.StageID]
	if !ok {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "unknown stage"})
	}
	current := make(map[string]domain.Task, len(seq))
	for _, t := range seq {
		current[t.ID] = t
	}
	next := make([]domain.Task, 0, len(seq))
	taken := make(map[string]bool, len(seq))
	for _, id := range req.OrderedTaskIDs {
		if t, found := current[id]; found && !taken[id] {
			next = append(next, t)
			taken[id] = true
		}
	}
	for _, t := range seq {
		if !taken[t.ID] {
			next = append(next, t)
		}
	}
	s.byStage[req.StageID] = next
	s.reindex()
	for _, t := range s.byStage[req.StageID] {
		s.emit(domain.EventUpdate, t)
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) deleteTask(c echo.Context) error {
	if _, _, err := s.authorize(c, domain.ActionEdit); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected(c, "delete"); err != nil {
		return err
	}
	id := c.Param("id")
	stage, idx, ok := s.locate(id)
	if !ok {
		return c.JSON(http.StatusNotFound, errorBody{Error: "task not found"})
	}
	s.byStage[stage] = append(s.byStage[stage][:idx], s.byStage[stage][idx+1:]...)
	s.reindex()
	if s.publish != nil {
		s.publish(domain.ChangeEvent{Kind: domain.EventDelete, Table: domain.TableTasks, ProjectID: s.project.ID, ID: id})
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) postApprove(c echo.Context) error {
	if _, _, err := s.authorize(c, domain.ActionApprove); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected(c, "approve"); err != nil {
		return err
	}
	stage, idx, ok := s.locate(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, errorBody{Error: "task not found"})
	}
	now := time.Now().UTC()
	s.byStage[stage][idx].Approval = domain.ApprovalApproved
	s.byStage[stage][idx].ApprovedAt = &now
	task := s.byStage[stage][idx]
	s.emit(domain.EventUpdate, task)
	return c.JSON(http.StatusOK, task)
}

func (s *Server) deleteApprove(c echo.Context) error {
	if _, _, err := s.authorize(c, domain.ActionApprove); err != nil {
		return err
	}
	var req struct {
		ReturnStageID string `json:"returnStageId"`
	}
	_ = c.Bind(&req)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected(c, "reject"); err != nil {
		return err
	}
	id := c.Param("id")
	stage, idx, ok := s.locate(id)
	if !ok {
		return c.JSON(http.StatusNotFound, errorBody{Error: "task not found"})
	}
	returnStage := req.ReturnStageID
	if returnStage == "" {
		returnStage = "todo"
	}
	if _, known := s.byStage[returnStage]; !known {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "unknown return stage"})
	}
	s.byStage[stage][idx].Approval = domain.ApprovalRejected
	s.byStage[stage][idx].ApprovedAt = nil
	s.move(id, returnStage, len(s.byStage[returnStage]))
	stage, idx, _ = s.locate(id)
	s.emit(domain.EventUpdate, s.byStage[stage][idx])
	return c.NoContent(http.StatusOK)
}

func (s *Server) locate(taskID string) (string, int, bool) {
	for stage, seq := range s.byStage {
		for i, t := range seq {
			if t.ID == taskID {
				return stage, i, true
			}
		}
	}
	return "", 0, false
}

func (s *Server) find(taskID string) domain.Task {
	stage, idx, _ := s.locate(taskID)
	return s.byStage[stage][idx]
}

func (s *Server) move(taskID, stageID string, position int) bool {
	stage, idx, ok := s.locate(taskID)
	if !ok {
		return false
	}
	task := s.byStage[stage][idx]
	s.byStage[stage] = append(s.byStage[stage][:idx], s.byStage[stage][idx+1:]...)
	seq := s.byStage[stageID]
	if position < 0 {
		position = 0
	}
	if position > len(seq) {
		position = len(seq)
	}
	seq = append(seq, domain.Task{})
	copy(seq[position+1:], seq[position:])
	seq[position] = task
	s.byStage[stageID] = seq
	s.reindex()
	return true
}

func (s *Server) reindex() {
	for stage, seq := range s.byStage {
		for i := range seq {
			seq[i].StageID = stage
			seq[i].Position = i
			seq[i].ProjectID = s.project.ID
		}
	}
}

func (s *Server) emit(kind domain.EventKind, task domain.Task) {
	if s.publish == nil {
		return
	}
	row, err := marshalRow(task)
	if err != nil {
		return
	}
	s.publish(domain.ChangeEvent{Kind: kind, Table: domain.TableTasks, ProjectID: s.project.ID, Row: row})
}
