package client

// Call is the model round the client should request next.
type Call int

const (
	CallNone Call = iota
	CallInitial
	CallRefine
)

func (c Call) String() string {
	switch c {
	case CallInitial:
		return "initial"
	case CallRefine:
		return "refine"
	default:
		return "none"
	}
}

// NextCall reports which round is due. A round is due once every known
// question has been answered: the last timeline entry is a user answer and
// the pointer sits on the last known question. Completion suppresses the
// call until the user answers again.
func NextCall(s State) Call {
	if s.SessionID == "" || s.Awaiting || s.Error != "" || len(s.Questions) == 0 {
		return CallNone
	}
	if len(s.Timeline) == 0 || s.Timeline[len(s.Timeline)-1].Role != RoleUser {
		return CallNone
	}
	if s.Current < len(s.Questions)-1 {
		return CallNone
	}
	switch {
	case !s.HasRound:
		return CallInitial
	case !s.Completed:
		return CallRefine
	default:
		return CallNone
	}
}
