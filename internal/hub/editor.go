package hub

import "github.com/bhushan-patil0603/group-study-backend/internal/models"

// editorState is the single shared document. It is deliberately not
// partitioned by room: every connected client sees the same content and
// activity log. The activity log grows without bound for the lifetime of
// the process; this is a known limitation.
type editorState struct {
	content  string
	activity []string
	users    map[string]models.EditorUser
}

func newEditorState() editorState {
	return editorState{users: make(map[string]models.EditorUser)}
}

// snapshot copies the presence map and activity log so they can be
// marshaled after the hub lock is released.
func (e *editorState) snapshot() (map[string]models.EditorUser, []string) {
	users := make(map[string]models.EditorUser, len(e.users))
	for id, u := range e.users {
		users[id] = u
	}
	activity := make([]string, len(e.activity))
	copy(activity, e.activity)
	return users, activity
}
