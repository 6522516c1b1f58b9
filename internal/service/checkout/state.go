package checkout

type State string

const (
	StateIdle       State = "idle"
	StateFormOpen   State = "form-open"
	StateValidating State = "validating"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

var transitions = map[State][]State{
	StateIdle:       {StateFormOpen},
	StateFormOpen:   {StateValidating, StateIdle},
	StateValidating: {StateFormOpen, StateSubmitting},
	StateSubmitting: {StateSucceeded, StateFailed},
	StateSucceeded:  {StateIdle},
	StateFailed:     {StateFormOpen},
}

// CanTransitionTo reports whether the flow may move from s to next.
func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s State) String() string { return string(s) }

// Source tells where the lines being paid for came from. Only the store
// cart is cleared after a successful payment.
type Source string

const (
	SourceCart    Source = "cart"
	SourceProduct Source = "product"
	SourceListing Source = "listing"
)
