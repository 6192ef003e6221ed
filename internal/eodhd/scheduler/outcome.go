package scheduler

// Outcome is how a run ended.
type Outcome int

const (
	Completed Outcome = iota
	HaltedByBreaker
	HaltedByCancellation
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case HaltedByBreaker:
		return "halted_by_breaker"
	case HaltedByCancellation:
		return "halted_by_cancellation"
	default:
		return "unknown"
	}
}

// Halted is true for any outcome that left symbols unprocessed on purpose.
func (o Outcome) Halted() bool {
	return o != Completed
}

// Report summarizes one run.
type Report struct {
	Outcome    Outcome
	Total      int // distinct symbols given
	Skipped    int // excluded by the checkpoint
	Dispatched int
	Succeeded  int64 // stored, or empty
	Empty      int64
	Failed     int64
}
