package cmn

import "github.com/teris-io/shortid"

// NewTaskID returns a short correlation ID for tagging a single
// reconstruction task's log lines (metrics carry no task label), so overlapping tasks
// sharing the Reader Pool can be told apart. Falls back to a fixed
// placeholder if the generator itself errors (it practically never does).
func NewTaskID() string {
	id, err := shortid.Generate()
	if err != nil {
		return "task-unknown"
	}
	return id
}
