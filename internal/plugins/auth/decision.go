package auth

import "time"

// Guard identifies which access rule a route is protected by.
type Guard string

const (
	// GuardGuest admits visitors without a live session (login screens).
	GuardGuest Guard = "guest"

	// GuardPendingLogin admits visitors mid-way through the OTP step.
	GuardPendingLogin Guard = "pending_login"

	// GuardEdge is the request-level check in front of protected routes.
	GuardEdge Guard = "edge"

	// GuardAuth is the route-level check on protected pages.
	GuardAuth Guard = "auth"
)

// State is where a guard stands for the current request.
type State int

const (
	StateChecking State = iota
	StateAllowed
	StateDenied
)

// String implements fmt.Stringer for logs and metrics labels.
func (s State) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateAllowed:
		return "allowed"
	case StateDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// RemoteResult is the outcome of asking the backend whether a session is
// still valid.
type RemoteResult int

const (
	RemoteUnchecked RemoteResult = iota
	RemoteValid
	RemoteInvalid
)

// TargetBack asks the browser to return to the previous page instead of
// navigating to a fixed path.
const TargetBack = "back"

// Decision is the result of evaluating a guard. Target is set only when
// State is StateDenied.
type Decision struct {
	State  State
	Target string
}

// Snapshot is the cookie and profile state a guard decides on.
type Snapshot struct {
	SessionKey        string
	SessionExpiration string
	HasProfile        bool

	Pending PendingLogin
}

// Decide evaluates a guard against the current snapshot. It is pure: the
// remote call is made by the caller, which passes RemoteUnchecked first and
// re-decides with the backend's answer when the result is StateChecking.
func Decide(g Guard, s Snapshot, remote RemoteResult, now time.Time) Decision {
	switch g {
	case GuardGuest:
		// An already signed-in admin has no business on the login screens.
		if s.SessionKey != "" && !Expired(s.SessionExpiration, now) && s.HasProfile {
			return Decision{State: StateDenied, Target: PathDashboard}
		}
		return Decision{State: StateAllowed}

	case GuardPendingLogin:
		if s.Pending.Complete() {
			return Decision{State: StateAllowed}
		}
		return Decision{State: StateDenied, Target: TargetBack}

	case GuardEdge:
		if s.SessionKey == "" {
			return Decision{State: StateDenied, Target: PathLogin}
		}
		return decideRemote(remote)

	case GuardAuth:
		if s.SessionKey == "" || Expired(s.SessionExpiration, now) {
			return Decision{State: StateDenied, Target: PathLogin}
		}
		return decideRemote(remote)
	}

	return Decision{State: StateDenied, Target: PathLogin}
}

// decideRemote maps the backend's verdict on a present session.
func decideRemote(remote RemoteResult) Decision {
	switch remote {
	case RemoteValid:
		return Decision{State: StateAllowed}
	case RemoteInvalid:
		return Decision{State: StateDenied, Target: PathLogout}
	default:
		return Decision{State: StateChecking}
	}
}
