package workflow

// Signal is the control-flow intent a step hands back to the driver.
// Steps never act on the workflow directly; they return a signal and the
// driver (or the enclosing loop runner) consumes it.
type Signal int

const (
	SignalNone Signal = iota
	SignalBreak
	SignalContinue
	SignalSkip
)

func (s Signal) String() string {
	switch s {
	case SignalBreak:
		return "break"
	case SignalContinue:
		return "continue"
	case SignalSkip:
		return "skip"
	default:
		return "none"
	}
}
