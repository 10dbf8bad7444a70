package argspec

import "fmt"

// SpecError reports a malformed or out-of-bounds command-line spec. Flag is
// the short flag the spec came from (e.g. "-c"); Spec is the raw argument.
type SpecError struct {
	Flag string
	Spec string
	Msg  string
}

func (e *SpecError) Error() string {
	if e.Flag == "" {
		return fmt.Sprintf("invalid spec %q: %s", e.Spec, e.Msg)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Flag, e.Spec, e.Msg)
}

// Errorf builds a SpecError for flag/spec with a formatted message.
func Errorf(flag, spec, format string, a ...any) *SpecError {
	return &SpecError{Flag: flag, Spec: spec, Msg: fmt.Sprintf(format, a...)}
}
