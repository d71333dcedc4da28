package remote_test

import (
	"context"
	"errors"
	"testing"

	"boardsync/domain"
	"boardsync/remote"
	"boardsync/remote/remotetest"
)

func fixtureProject() domain.Project {
	return domain.Project{
		ID:   "p1",
		Name: "Launch",
		Stages: []domain.Stage{
			{ID: "todo", Name: "To do", Position: 0},
			{ID: "doing", Name: "Doing", Position: 1},
			{ID: "done", Name: "Done", Position: 2},
		},
		Members: []domain.Member{
			{UserID: "alice", Role: domain.RoleOwner},
			{UserID: "bob", Role: domain.RoleMember},
			{UserID: "carol", Role: domain.RoleViewer},
		},
	}
}

func fixtureTasks() map[string][]domain.Task {
	return map[string][]domain.Task{
		"todo": {
			{ID: "t1", StageID: "todo", Title: "Spec the API"},
			{ID: "t2", StageID: "todo", Title: "Write the docs"},
		},
		"doing": {
			{ID: "t3", StageID: "doing", Title: "Ship the board"},
		},
	}
}

func newClient(t *testing.T, srv *remotetest.Server, user string) *remote.Client {
	t.Helper()
	token := srv.Token(user)
	return remote.NewClient(srv.URL(), func() string { return token }, nil, nil)
}

func TestFetchProject(t *testing.T) {
	srv := remotetest.NewServer(fixtureProject(), fixtureTasks(), nil)
	t.Cleanup(srv.Close)
	c := newClient(t, srv, "bob")

	view, err := c.FetchProject(context.Background(), "p1")
	if err != nil {
		t.Fatalf("fetch project: %v", err)
	}
	if view.Project.ID != "p1" || view.Role != domain.RoleMember {
		t.Fatalf("unexpected view: %+v", view)
	}
	if len(view.TasksByStage["todo"]) != 2 || view.Counts["todo"] != 2 {
		t.Fatalf("unexpected board: %+v", view.TasksByStage)
	}
	if view.TasksByStage["todo"][1].Position != 1 {
		t.Fatalf("positions not contiguous: %+v", view.TasksByStage["todo"])
	}
}

func TestFetchProjectNotFound(t *testing.T) {
	srv := remotetest.NewServer(fixtureProject(), fixtureTasks(), nil)
	t.Cleanup(srv.Close)
	c := newClient(t, srv, "bob")

	_, err := c.FetchProject(context.Background(), "nope")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestCreateTaskReturnsRow(t *testing.T) {
	srv := remotetest.NewServer(fixtureProject(), fixtureTasks(), nil)
	t.Cleanup(srv.Close)
	c := newClient(t, srv, "bob")

	task, err := c.CreateTask(context.Background(), domain.NewTask{StageID: "doing", Title: "New work"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.ID == "" || task.StageID != "doing" || task.Position != 1 {
		t.Fatalf("unexpected row: %+v", task)
	}
}

func TestMoveAndReorder(t *testing.T) {
	srv := remotetest.NewServer(fixtureProject(), fixtureTasks(), nil)
	t.Cleanup(srv.Close)
	c := newClient(t, srv, "bob")
	ctx := context.Background()

	if err := c.MoveTask(ctx, "t1", "doing", 1); err != nil {
		t.Fatalf("move: %v", err)
	}
	// moving to the same placement again is idempotent
	if err := c.MoveTask(ctx, "t1", "doing", 1); err != nil {
		t.Fatalf("idempotent move: %v", err)
	}
	if err := c.ReorderStage(ctx, "p1", "doing", []string{"t1", "t3"}); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	doing := srv.TasksByStage()["doing"]
	if doing[0].ID != "t1" || doing[1].ID != "t3" {
		t.Fatalf("unexpected order: %+v", doing)
	}
}

func TestRemoteErrorCarriesServerMessage(t *testing.T) {
	srv := remotetest.NewServer(fixtureProject(), fixtureTasks(), nil)
	t.Cleanup(srv.Close)
	c := newClient(t, srv, "bob")

	srv.FailNext("move", "Conflict")
	err := c.MoveTask(context.Background(), "t1", "doing", 0)
	var re *remote.Error
	if !errors.As(err, &re) {
		t.Fatalf("expected *remote.Error, got %v", err)
	}
	if re.Message != "Conflict" {
		t.Fatalf("expected server message verbatim, got %q", re.Message)
	}
	if got := remote.UserMessage(err, "Failed to move task"); got != "Conflict" {
		t.Fatalf("UserMessage = %q", got)
	}
	if got := remote.UserMessage(errors.New("dial tcp: refused"), "Failed to move task"); got != "Failed to move task" {
		t.Fatalf("UserMessage fallback = %q", got)
	}
}

func TestViewerCannotWrite(t *testing.T) {
	srv := remotetest.NewServer(fixtureProject(), fixtureTasks(), nil)
	t.Cleanup(srv.Close)
	c := newClient(t, srv, "carol")

	err := c.DeleteTask(context.Background(), "t1")
	var re *remote.Error
	if !errors.As(err, &re) || re.Status != 403 {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestApproveRejectFlow(t *testing.T) {
	srv := remotetest.NewServer(fixtureProject(), fixtureTasks(), nil)
	t.Cleanup(srv.Close)
	owner := newClient(t, srv, "alice")
	member := newClient(t, srv, "bob")
	ctx := context.Background()

	// approve needs admin or owner
	if _, err := member.ApproveTask(ctx, "t3"); err == nil {
		t.Fatal("member should not be able to approve")
	}
	task, err := owner.ApproveTask(ctx, "t3")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if task.Approval != domain.ApprovalApproved || task.ApprovedAt == nil {
		t.Fatalf("unexpected approval state: %+v", task)
	}

	if err := owner.RejectTask(ctx, "t3", ""); err != nil {
		t.Fatalf("reject: %v", err)
	}
	todo := srv.TasksByStage()["todo"]
	last := todo[len(todo)-1]
	if last.ID != "t3" || last.Approval != domain.ApprovalRejected {
		t.Fatalf("rejected task should land at todo tail: %+v", todo)
	}
}

func TestBadTokenRejected(t *testing.T) {
	srv := remotetest.NewServer(fixtureProject(), fixtureTasks(), nil)
	t.Cleanup(srv.Close)
	c := remote.NewClient(srv.URL(), func() string { return "garbage" }, nil, nil)

	_, err := c.FetchProject(context.Background(), "p1")
	var re *remote.Error
	if !errors.As(err, &re) || re.Status != 401 {
		t.Fatalf("expected 401, got %v", err)
	}
}
