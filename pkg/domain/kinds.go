package domain

// Direction tells whether a port receives or emits.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// PortKind separates control ports (order of execution) from data ports (values).
type PortKind int

const (
	KindData PortKind = iota
	KindControl
	// KindUnknown marks ports of nodes whose command is not registered.
	KindUnknown
)

func (k PortKind) String() string {
	switch k {
	case KindControl:
		return "control"
	case KindData:
		return "data"
	default:
		return "unknown"
	}
}

// Multiplicity tells whether a port has one slot or a list of slots.
type Multiplicity int

const (
	Single Multiplicity = iota
	List
)

// ReturnKind classifies how a command completes.
type ReturnKind int

const (
	// ReturnVoid completes immediately without a value.
	ReturnVoid ReturnKind = iota
	// ReturnValue completes immediately and writes the Result port.
	ReturnValue
	// ReturnTimerDelay suspends for the returned duration.
	ReturnTimerDelay
	// ReturnFutureVoid suspends until the returned task completes.
	ReturnFutureVoid
	// ReturnFutureValue suspends until the returned future resolves, then writes Result.
	ReturnFutureValue
)

var returnKindNames = map[ReturnKind]string{
	ReturnVoid:        "void",
	ReturnValue:       "value",
	ReturnTimerDelay:  "timer",
	ReturnFutureVoid:  "task",
	ReturnFutureValue: "future",
}

func (k ReturnKind) String() string { return returnKindNames[k] }

// Suspends reports whether executing a command of this kind may span several steps.
func (k ReturnKind) Suspends() bool {
	return k == ReturnTimerDelay || k == ReturnFutureVoid || k == ReturnFutureValue
}

// HasResult reports whether commands of this kind expose a Result port.
func (k ReturnKind) HasResult() bool {
	return k == ReturnValue || k == ReturnFutureValue
}

// ExecState is the execution state of a node.
type ExecState string

const (
	StateNotStarted ExecState = "not_started"
	StateRunning    ExecState = "running"
	StateWaiting    ExecState = "waiting"
	StateDone       ExecState = "done"
)
