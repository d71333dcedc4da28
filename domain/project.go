package domain

// Stage is a workflow column. Stages belong to the project and are immutable
// for the engine's purposes.
type Stage struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Color    string `json:"color,omitempty"`
	Position int    `json:"position"`
}

// Member associates a user with a role on a project.
type Member struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

// Project describes a board: its workflow stages and who may touch it.
type Project struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Stages  []Stage  `json:"workflow_stages"`
	Members []Member `json:"members"`
}

// StageIDs returns the project's stage identifiers in board order.
func (p Project) StageIDs() []string {
	ids := make([]string, len(p.Stages))
	for i, s := range p.Stages {
		ids[i] = s.ID
	}
	return ids
}

// HasStage reports whether the project contains the given stage.
func (p Project) HasStage(stageID string) bool {
	for _, s := range p.Stages {
		if s.ID == stageID {
			return true
		}
	}
	return false
}

// RoleOf returns the role the given user holds on the project. Users absent
// from the member list have no access at all.
func (p Project) RoleOf(userID string) (Role, bool) {
	for _, m := range p.Members {
		if m.UserID == userID {
			return m.Role, true
		}
	}
	return "", false
}
