package domain

import "time"

// CommandAction identifies which controller endpoint a command targeted.
type CommandAction string

const (
	ActionInit CommandAction = "init"
	ActionMove CommandAction = "move"
)

// OutcomeOK is the Outcome value of a successful command.
const OutcomeOK = "ok"

// CommandRecord is one journal entry: what was sent and how it ended.
type CommandRecord struct {
	ID         string        `json:"id"          db:"id"`
	Action     CommandAction `json:"action"      db:"action"`
	Pose       *Pose         `json:"pose"        db:"-"`
	Outcome    string        `json:"outcome"     db:"outcome"` // "ok" or an ErrorKind
	Attempts   int           `json:"attempts"    db:"attempts"`
	StatusCode int           `json:"status_code" db:"status_code"`
	Error      string        `json:"error"       db:"error_msg"`
	StartedAt  time.Time     `json:"started_at"  db:"started_at"`
	Duration   time.Duration `json:"duration"    db:"duration_ns"`
}

// Succeeded reports whether the command completed with a 2xx decoded response.
func (r *CommandRecord) Succeeded() bool {
	return r.Outcome == OutcomeOK
}
