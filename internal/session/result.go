package session

import "errors"

var (
	// ErrLoginRejected covers bad credentials, non-success statuses and
	// responses that do not carry a session.
	ErrLoginRejected = errors.New("login rejected")

	// ErrTransportFailure covers network and connection failures.
	ErrTransportFailure = errors.New("login transport failure")
)

const (
	detailUnexpectedResponse = "unexpected response from server"
	detailLoginError         = "login error"
)

// Result is the outcome of a login attempt. Failures carry a human readable
// Detail and an Err that wraps ErrLoginRejected or ErrTransportFailure.
type Result struct {
	Success bool   `json:"success"`
	Detail  string `json:"detail,omitempty"`
	Err     error  `json:"-"`
}

func failure(kind error, detail string, cause error) Result {
	err := kind
	if cause != nil {
		err = errors.Join(kind, cause)
	}
	return Result{Detail: detail, Err: err}
}
