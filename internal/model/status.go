package model

// ScaStatus is the state of an SCA workflow. Transitions are monotonic:
// an authorisation never regresses to an earlier non-terminal state and
// never leaves a terminal state.
type ScaStatus string

const (
	StatusReceived          ScaStatus = "RECEIVED"
	StatusPsuIdentified     ScaStatus = "PSU_IDENTIFIED"
	StatusPsuAuthenticated  ScaStatus = "PSU_AUTHENTICATED"
	StatusScaMethodSelected ScaStatus = "SCA_METHOD_SELECTED"
	StatusStarted           ScaStatus = "STARTED"
	StatusFinalised         ScaStatus = "FINALISED"
	StatusFailed            ScaStatus = "FAILED"
	StatusExempted          ScaStatus = "EXEMPTED"
)

// IsFinal reports whether the status is terminal.
func (s ScaStatus) IsFinal() bool {
	return s == StatusFinalised || s == StatusFailed || s == StatusExempted
}

// transitions is the closed table of allowed status changes. FAILED is
// reachable from every non-terminal state and is therefore handled in
// CanTransitionTo rather than listed per state.
var transitions = map[ScaStatus][]ScaStatus{
	StatusReceived:          {StatusPsuIdentified, StatusExempted},
	StatusPsuIdentified:     {StatusPsuAuthenticated},
	StatusPsuAuthenticated:  {StatusScaMethodSelected, StatusExempted},
	StatusScaMethodSelected: {StatusStarted},
	StatusStarted:           {StatusFinalised},
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s ScaStatus) CanTransitionTo(next ScaStatus) bool {
	if s.IsFinal() {
		return false
	}
	if next == StatusFailed {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
