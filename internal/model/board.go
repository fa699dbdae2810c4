package model

// BoardState is the lifecycle state of a board scheduler.
type BoardState int

const (
	// BoardIdle means no crawl job is armed.
	BoardIdle BoardState = iota

	// BoardRunning means a recurring crawl job is armed.
	BoardRunning
)

// String returns "idle" or "running".
func (s BoardState) String() string {
	if s == BoardRunning {
		return "running"
	}
	return "idle"
}
