package progress

import "time"

// State is a student's completion state for one lesson. States only ever
// move forward: NotStarted -> InProgress -> Completed.
type State string

const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

var stateRanks = map[State]int{
	StateNotStarted: 0,
	StateInProgress: 1,
	StateCompleted:  2,
}

// Rank returns the state's position on the completion path.
func (s State) Rank() int {
	return stateRanks[s]
}

// Before reports whether s lies strictly before other on the completion path.
func (s State) Before(other State) bool {
	return s.Rank() < other.Rank()
}

// Record tracks one student's progression through one lesson. Created lazily
// on first access; mutated only on behalf of the owning student.
type Record struct {
	StudentID   string     `json:"student_id"`
	LessonID    string     `json:"lesson_id"`
	State       State      `json:"state"`
	CompletedAt *time.Time `json:"completed_at,omitempty"` // UTC
	CreatedAt   time.Time  `json:"created_at"`             // UTC
	UpdatedAt   time.Time  `json:"updated_at"`             // UTC
}
