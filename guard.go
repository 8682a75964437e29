package agentexec

// unknownStr is the string representation for unknown enum values.
const unknownStr = "unknown"

// Guard evaluates a candidate command before anything is spawned.
// Implementations inspect the command text and the effective working
// directory and return an allow/block decision.
//
// A Guard is a best-effort textual pre-filter, not an isolation boundary:
// variable expansion, quoting tricks and command substitution can hide what a
// command really touches.
type Guard interface {
	// Evaluate inspects a shell command string run from workingDir.
	Evaluate(command, workingDir string) GuardDecision
}

// Decision represents the guard verdict for a command.
type Decision int

const (
	// Allow indicates the command may be executed. It is the zero value so
	// that a guard with no opinion lets the next stage decide.
	Allow Decision = iota

	// Block indicates the command must not be executed.
	Block
)

// String returns the string representation of a Decision.
func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Block:
		return "block"
	default:
		return unknownStr
	}
}

// BlockReason identifies which guard rule family blocked a command.
type BlockReason int

const (
	// ReasonNone is used for Allow decisions.
	ReasonNone BlockReason = iota

	// DangerousPattern indicates a deny pattern matched.
	DangerousPattern

	// NotAllowlisted indicates an allow-list is configured and nothing matched.
	NotAllowlisted

	// PathTraversal indicates a parent-directory token under workspace restriction.
	PathTraversal

	// PathOutsideWorkspace indicates an absolute path outside the working directory.
	PathOutsideWorkspace
)

// String returns the string representation of a BlockReason.
func (r BlockReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case DangerousPattern:
		return "dangerous_pattern"
	case NotAllowlisted:
		return "not_allowlisted"
	case PathTraversal:
		return "path_traversal"
	case PathOutsideWorkspace:
		return "path_outside_workspace"
	default:
		return unknownStr
	}
}

// Message returns the human-readable explanation used in rendered results.
func (r BlockReason) Message() string {
	switch r {
	case DangerousPattern:
		return "dangerous pattern detected"
	case NotAllowlisted:
		return "not in allowlist"
	case PathTraversal:
		return "path traversal detected"
	case PathOutsideWorkspace:
		return "path outside working dir"
	default:
		return unknownStr
	}
}

// GuardDecision holds the outcome of guard evaluation.
type GuardDecision struct {
	// Decision is the verdict.
	Decision Decision

	// Reason is the rule family that blocked the command. ReasonNone for Allow.
	Reason BlockReason

	// Rule is the identifier of the rule that produced the decision, if any.
	Rule string

	// Pattern is the deny pattern that matched, if any.
	Pattern string

	// Path is the extracted path that escaped the workspace, if any.
	Path string
}

// Allowed reports whether the decision permits execution.
func (d GuardDecision) Allowed() bool {
	return d.Decision == Allow
}

// Message renders the decision as the tool-level text returned to the agent.
// Allow decisions render as the empty string.
func (d GuardDecision) Message() string {
	if d.Allowed() {
		return ""
	}
	return "Error: Command blocked by safety guard (" + d.Reason.Message() + ")"
}

// blocked builds a Block decision.
func blocked(reason BlockReason, rule string) GuardDecision {
	return GuardDecision{Decision: Block, Reason: reason, Rule: rule}
}
