package msgboard

import "fmt"

// PhaseKind enumerates the connection states of the channel.
type PhaseKind int

const (
	// PhaseConnecting is the state before the channel has signalled anything.
	PhaseConnecting PhaseKind = iota

	// PhaseConnected is entered when the channel reports it is open.
	PhaseConnected

	// PhaseErrored is entered when the channel closes. It carries the close
	// code and reason.
	PhaseErrored
)

// String returns the lowercase name of the phase kind.
func (k PhaseKind) String() string {
	switch k {
	case PhaseConnecting:
		return "connecting"
	case PhaseConnected:
		return "connected"
	case PhaseErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Phase is the connection phase of the widget's channel.
//
// Phase is a value type; the zero value is Connecting. Code and Reason are
// only meaningful when Kind is [PhaseErrored].
type Phase struct {
	Kind   PhaseKind
	Code   int
	Reason string
}

// Connecting returns the initial phase.
func Connecting() Phase { return Phase{Kind: PhaseConnecting} }

// Connected returns the open phase.
func Connected() Phase { return Phase{Kind: PhaseConnected} }

// Errored returns the closed phase with the channel's close code and reason.
func Errored(code int, reason string) Phase {
	return Phase{Kind: PhaseErrored, Code: code, Reason: reason}
}

// Status returns the title, icon and color the status panel shows for p.
func (p Phase) Status() (title, icon, color string) {
	switch p.Kind {
	case PhaseConnected:
		return "Connected", "check", "success"
	case PhaseErrored:
		return fmt.Sprintf("Error %d: %s", p.Code, p.Reason), "times", "danger"
	default:
		return "Connecting...", "refresh", "info"
	}
}

// String implements fmt.Stringer.
func (p Phase) String() string {
	if p.Kind == PhaseErrored {
		return fmt.Sprintf("errored(%d, %s)", p.Code, p.Reason)
	}
	return p.Kind.String()
}
