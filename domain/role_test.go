package domain

import "testing"

func TestAllows(t *testing.T) {
	cases := []struct {
		role   Role
		action Action
		want   bool
	}{
		{RoleViewer, ActionView, true},
		{RoleViewer, ActionEdit, false},
		{RoleViewer, ActionApprove, false},
		{RoleMember, ActionEdit, true},
		{RoleMember, ActionApprove, false},
		{RoleMember, ActionDeleteProject, false},
		{RoleAdmin, ActionEdit, true},
		{RoleAdmin, ActionApprove, true},
		{RoleAdmin, ActionManageMembers, true},
		{RoleAdmin, ActionTransferOwnership, false},
		{RoleOwner, ActionApprove, true},
		{RoleOwner, ActionTransferOwnership, true},
		{RoleOwner, ActionDeleteProject, true},
		{Role("ghost"), ActionView, false},
		{Role(""), ActionEdit, false},
	}
	for _, tc := range cases {
		if got := Allows(tc.role, tc.action); got != tc.want {
			t.Errorf("Allows(%q, %q) = %v, want %v", tc.role, tc.action, got, tc.want)
		}
	}
}

// Any action allowed to a role must be allowed to every higher role.
func TestAllowsMonotonic(t *testing.T) {
	order := []Role{RoleViewer, RoleMember, RoleAdmin, RoleOwner}
	actions := []Action{ActionView, ActionEdit, ActionManageMembers, ActionApprove, ActionTransferOwnership, ActionDeleteProject}
	for i, lower := range order {
		for _, higher := range order[i:] {
			for _, a := range actions {
				// transfer-ownership and delete-project are owner-only by
				// design and outside the monotonic subset
				if a == ActionTransferOwnership || a == ActionDeleteProject {
					continue
				}
				if Allows(lower, a) && !Allows(higher, a) {
					t.Errorf("monotonicity violated: %s allows %s but %s does not", lower, a, higher)
				}
			}
		}
	}
}

func TestChangeEventMatches(t *testing.T) {
	ev := ChangeEvent{Kind: EventInsert, Table: TableTasks, ProjectID: "p1"}
	if !ev.Matches(FilterFor("p1")) {
		t.Fatal("event should match its own project filter")
	}
	if ev.Matches(FilterFor("p2")) {
		t.Fatal("event should not match another project's filter")
	}
	if !ev.Matches("") {
		t.Fatal("empty filter should match everything")
	}
}

func TestTaskPatchApplyToLeavesStageAndPosition(t *testing.T) {
	title := "renamed"
	prio := PriorityHigh
	task := Task{ID: "t1", StageID: "todo", Position: 2, Title: "orig", Priority: PriorityNone}
	TaskPatch{Title: &title, Priority: &prio}.ApplyTo(&task)
	if task.Title != "renamed" || task.Priority != PriorityHigh {
		t.Fatalf("patch not applied: %+v", task)
	}
	if task.StageID != "todo" || task.Position != 2 {
		t.Fatalf("patch must not touch placement: %+v", task)
	}
}

func TestTaskCloneIsDeep(t *testing.T) {
	color := "#ff0000"
	orig := Task{ID: "t1", Color: &color, Tags: []string{"a"}}
	cp := orig.Clone()
	*cp.Color = "#00ff00"
	cp.Tags[0] = "b"
	if *orig.Color != "#ff0000" || orig.Tags[0] != "a" {
		t.Fatalf("clone shares memory with original: %+v", orig)
	}
}
