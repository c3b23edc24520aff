package machine

// StepStatus is the outcome of executing instructions on a thread.
type StepStatus uint8

const (
	StepContinue StepStatus = iota // keep executing the thread
	StepSuspend                    // thread gave up the core, some source may resume it
	StepHalt                       // thread faulted and will not run again
)

func (s StepStatus) String() string {
	switch s {
	case StepContinue:
		return "continue"
	case StepSuspend:
		return "suspend"
	case StepHalt:
		return "halt"
	default:
		return "unknown"
	}
}

// Reason says why a thread stopped executing.
type Reason uint8

const (
	ReasonNone      Reason = iota
	ReasonYield            // explicit yield
	ReasonTimeSlice        // time-slice guard forced a yield
	ReasonDelay            // timed delay registered
	ReasonWait             // waiting for a readiness trigger
	ReasonEnd              // thread ended
	ReasonFault            // undecodable instruction, unknown function or memory fault
	ReasonReload           // a new image was loaded while the thread ran
	ReasonBusy             // thread was already running
)

var reasonNames = [...]string{
	ReasonNone:      "none",
	ReasonYield:     "yield",
	ReasonTimeSlice: "time_slice",
	ReasonDelay:     "delay",
	ReasonWait:      "wait",
	ReasonEnd:       "end",
	ReasonFault:     "fault",
	ReasonReload:    "reload",
	ReasonBusy:      "busy",
}

func (r Reason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return "unknown"
}

// StepResult is returned by native functions and by RunThread.
type StepResult struct {
	Status StepStatus
	Reason Reason
}

// Continue is the result of a native function that lets the thread go on.
var Continue = StepResult{Status: StepContinue}

func suspend(r Reason) StepResult {
	return StepResult{Status: StepSuspend, Reason: r}
}

var halted = StepResult{Status: StepHalt, Reason: ReasonFault}

// State is a thread's scheduling state. It is informational; the scheduler
// queues are authoritative.
type State uint8

const (
	StateIdle State = iota
	StateRunning
	StateYielded
	StateDelayed
	StateWaiting
	StateEnded
	StateHalted
)

var stateNames = [...]string{
	StateIdle:    "idle",
	StateRunning: "running",
	StateYielded: "yielded",
	StateDelayed: "delayed",
	StateWaiting: "waiting",
	StateEnded:   "ended",
	StateHalted:  "halted",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}
