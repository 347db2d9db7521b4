package matcher

import "fmt"

// CandidateError records a catalog entry that could not be scored
type CandidateError struct {
	Filename string
	Err      error
}

func (e CandidateError) Error() string {
	return fmt.Sprintf("candidate %s: %v", e.Filename, e.Err)
}

func (e CandidateError) Unwrap() error {
	return e.Err
}
