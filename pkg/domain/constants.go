package domain

// Reserved port names every bound node may carry.
const (
	// PortFrom is the control input a linear walk arrives on.
	PortFrom = "From"
	// PortNext is the default control output.
	PortNext = "Next"
	// PortResult carries the return value of value-returning commands.
	PortResult = "Result"
	// ParamSelf is the reserved parameter name of the node handle.
	ParamSelf = "self"
)
