package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"boardsync/domain"
	"boardsync/engine"
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

// harness stands up the full session: remotetest backend publishing change
// events into miniredis, and an engine consuming both.
type harness struct {
	srv *remotetest.Server
	eng *engine.Engine
}

func newHarness(t *testing.T, user string) *harness {
	t.Helper()
	mr := miniredis.RunT(t)

	pub := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { pub.Close() })
	publish := func(ev domain.ChangeEvent) {
		data, err := sonic.ConfigStd.Marshal(ev)
		if err != nil {
			t.Errorf("marshal event: %v", err)
			return
		}
		pub.Publish(context.Background(), "board:events", data)
	}

	srv := remotetest.NewServer(fixtureProject(), fixtureTasks(), publish)
	t.Cleanup(srv.Close)

	cfg := engine.Config{
		APIBaseURL:            srv.URL(),
		RedisConnectionString: "redis://" + mr.Addr(),
		EventsChannel:         "board:events",
		Debounce:              20 * time.Millisecond,
		ReturnStage:           "todo",
	}
	token := srv.Token(user)
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	eng, err := engine.New(cfg, func() string { return token }, nil, logger)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	eng.Start(context.Background())
	t.Cleanup(eng.Close)
	return &harness{srv: srv, eng: eng}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestMountSeedsBoard(t *testing.T) {
	h := newHarness(t, "bob")

	sess, err := h.eng.Mount(context.Background(), "p1")
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	defer sess.Unmount()

	if sess.Role != domain.RoleMember {
		t.Fatalf("role = %v, want member", sess.Role)
	}
	if got := sess.Board.TaskIDs("todo"); len(got) != 2 || got[0] != "t1" {
		t.Fatalf("todo = %v", got)
	}
	if sess.Board.StageLen("done") != 0 {
		t.Fatalf("done not empty")
	}
}

func TestMoveAppliesLocallyAndRemotely(t *testing.T) {
	h := newHarness(t, "bob")

	sess, err := h.eng.Mount(context.Background(), "p1")
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	defer sess.Unmount()

	err = sess.Coordinator.Apply(context.Background(), domain.MoveTask{TaskID: "t1", StageID: "doing", Position: 1})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	stage, pos, _, ok := sess.Board.Find("t1")
	if !ok || stage != "doing" || pos != 1 {
		t.Fatalf("t1 at %s/%d after move", stage, pos)
	}
	if got := h.srv.TasksByStage()["doing"]; len(got) != 2 || got[1].ID != "t1" {
		t.Fatalf("server doing = %+v", got)
	}

	// The committed write also flows back through the realtime channel; the
	// refetch must not undo the placement.
	time.Sleep(100 * time.Millisecond)
	stage, pos, _, ok = sess.Board.Find("t1")
	if !ok || stage != "doing" || pos != 1 {
		t.Fatalf("t1 at %s/%d after reconcile", stage, pos)
	}
}

func TestRemoteChangeReachesBoard(t *testing.T) {
	h := newHarness(t, "bob")

	sess, err := h.eng.Mount(context.Background(), "p1")
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	defer sess.Unmount()

	// Another collaborator writes straight to the backend.
	aliceToken := h.srv.Token("alice")
	alice := remote.NewClient(h.srv.URL(), func() string { return aliceToken }, nil, nil)
	created, err := alice.CreateTask(context.Background(), domain.NewTask{ProjectID: "p1", StageID: "done", Title: "Review launch"})
	if err != nil {
		t.Fatalf("alice create: %v", err)
	}

	waitFor(t, func() bool {
		_, _, _, ok := sess.Board.Find(created.ID)
		return ok
	}, "created task never reached the board")

	stage, _, task, _ := sess.Board.Find(created.ID)
	if stage != "done" || task.Title != "Review launch" {
		t.Fatalf("got %s / %+v", stage, task)
	}
}

func TestUnmountStopsReconciliation(t *testing.T) {
	h := newHarness(t, "bob")

	sess, err := h.eng.Mount(context.Background(), "p1")
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	sess.Unmount()

	aliceToken := h.srv.Token("alice")
	alice := remote.NewClient(h.srv.URL(), func() string { return aliceToken }, nil, nil)
	created, err := alice.CreateTask(context.Background(), domain.NewTask{ProjectID: "p1", StageID: "todo", Title: "After unmount"})
	if err != nil {
		t.Fatalf("alice create: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if _, _, _, ok := sess.Board.Find(created.ID); ok {
		t.Fatal("unmounted board still receiving updates")
	}
}

func TestMountUnknownProject(t *testing.T) {
	h := newHarness(t, "bob")

	if _, err := h.eng.Mount(context.Background(), "nope"); err == nil {
		t.Fatal("expected mount error")
	}
}
