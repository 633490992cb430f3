package ibm

import "fmt"

// AuthError means a bearer token could not be obtained from the identity
// endpoint, or its response carried no access token.
type AuthError struct {
	Service string
	Err     error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth failed for %s: %v", e.Service, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// NotFoundError is a 404 from object storage for a named key.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("object %q not found", e.Key)
}

// RemoteError is any other non-2xx response from a remote service.
type RemoteError struct {
	Op     string
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: remote error (%d): %s", e.Op, e.Status, e.Body)
}

// SubmissionError means the job-submission response lacked a runtime job id.
type SubmissionError struct {
	Reason string
}

func (e *SubmissionError) Error() string {
	return "job submission failed: " + e.Reason
}

// TimeoutError means polling exhausted its attempt budget without observing
// a terminal job state.
type TimeoutError struct {
	Attempts  int
	LastState string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("job still %q after %d polls", e.LastState, e.Attempts)
}
