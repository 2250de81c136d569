package domain

import (
	"github.com/bytedance/sonic"
)

// Ref is a reference to another entity (user, project, list). The backend
// serializes references either as a bare identifier string or as an object
// carrying "id" and/or the legacy "_id" field; both forms unmarshal into Ref.
type Ref struct {
	ID       string `json:"id,omitempty"`
	LegacyID string `json:"_id,omitempty"`
}

// Identity resolves the reference to a single comparable string: the primary
// "id" field when present, the legacy "_id" field otherwise, "" when neither
// is set. Empty identities never match anything.
func (r Ref) Identity() string {
	if r.ID != "" {
		return r.ID
	}
	return r.LegacyID
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := sonic.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = Ref{ID: s}
		return nil
	}
	type plain Ref
	var p plain
	if err := sonic.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Ref(p)
	return nil
}

// MarshalJSON serializes the reference back to the bare identifier form.
func (r Ref) MarshalJSON() ([]byte, error) {
	return sonic.Marshal(r.Identity())
}

// Task represents a single board item in the mirrored read model.
type Task struct {
	ID          string   `json:"id,omitempty"`
	LegacyID    string   `json:"_id,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Status      Status   `json:"status"`
	Priority    string   `json:"priority,omitempty"`
	Deadline    string   `json:"deadline,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Assignee    Ref      `json:"assignee,omitempty"`
	Assignees   []Ref    `json:"assignees,omitempty"`
	Project     Ref      `json:"project,omitempty"`
	List        Ref      `json:"list,omitempty"`
	// Rev is a backend-assigned monotonic revision, zero when the backend
	// does not version tasks.
	Rev int64 `json:"rev,omitempty"`
}

// Identity resolves the task's canonical identifier: "id" when present, the
// legacy "_id" field otherwise.
func (t Task) Identity() string {
	if t.ID != "" {
		return t.ID
	}
	return t.LegacyID
}

// AssignedTo reports whether the task is assigned to the user with the given
// identity, matching either the single assignee field or membership in the
// assignee list.
func (t Task) AssignedTo(userID string) bool {
	if userID == "" {
		return false
	}
	if t.Assignee.Identity() == userID {
		return true
	}
	for _, a := range t.Assignees {
		if a.Identity() == userID {
			return true
		}
	}
	return false
}
