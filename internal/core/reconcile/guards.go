package reconcile

import "fmt"

// MismatchPolicy decides what happens when logged and filled counts differ.
type MismatchPolicy string

const (
	// PolicyPrompt asks the operator for the missed vials.
	PolicyPrompt MismatchPolicy = "prompt"
	// PolicyAbort treats any mismatch as fatal.
	PolicyAbort MismatchPolicy = "abort"
)

// ParseMismatchPolicy parses a policy name; empty means PolicyPrompt.
func ParseMismatchPolicy(s string) (MismatchPolicy, error) {
	switch MismatchPolicy(s) {
	case "", PolicyPrompt:
		return PolicyPrompt, nil
	case PolicyAbort:
		return PolicyAbort, nil
	default:
		return "", fmt.Errorf("unknown mismatch policy %q (want %q or %q)", s, PolicyPrompt, PolicyAbort)
	}
}

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string // Human-readable reason (populated when not allowed)
}

// Error returns the guard result as an error if not allowed, nil otherwise.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

// OutputContext provides context for the overwrite guard.
type OutputContext struct {
	OutputPath     string
	MetadataPath   string
	OutputExists   bool
	MetadataExists bool
	Overwrite      bool
}

// CanWriteOutput evaluates whether the run may produce its output files.
// Rule: existing output is only replaced when overwrite was requested.
func CanWriteOutput(ctx OutputContext) GuardResult {
	if ctx.Overwrite {
		return GuardResult{Allowed: true}
	}
	if ctx.OutputExists {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("Output file %s already exists. Use -o to overwrite", ctx.OutputPath),
		}
	}
	if ctx.MetadataExists {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("Metadata file %s already exists. Use -o to overwrite", ctx.MetadataPath),
		}
	}
	return GuardResult{Allowed: true}
}

// MismatchContext provides context for mismatch handling guards.
type MismatchContext struct {
	Policy    MismatchPolicy
	Alignment Alignment
}

// CanCollectMissed evaluates whether a mismatched run may continue to
// missed-pulse collection.
// Rules: the abort policy stops every mismatch; more vials than pulses can
// never be fixed by merging.
func CanCollectMissed(ctx MismatchContext) GuardResult {
	a := ctx.Alignment
	if a.Matches() {
		return GuardResult{Allowed: true}
	}
	if ctx.Policy == PolicyAbort {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("Logged (%d) and filled (%d) vial counts do not match and mismatch policy is %q", a.NLogged, a.NFilled, ctx.Policy),
		}
	}
	if a.Deficit < 0 {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("More vials filled (%d) than pulses logged (%d); merging cannot reconcile this run", a.NFilled, a.NLogged),
		}
	}
	return GuardResult{Allowed: true}
}
