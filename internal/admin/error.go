// Package admin implements wladmin, the tool that deploys and operates a
// Weight Log installation through Docker: init, image and container
// lifecycle, user management and database backup/restore.
package admin

// Error is a failure reported to the operator. Message is printed as is and
// the process exits with ExitCode.
type Error struct {
	Message  string
	ExitCode int
}

func (e *Error) Error() string { return e.Message }

// DefaultExitCode is the exit status of every admin failure.
const DefaultExitCode = 1

func newError(msg string) *Error {
	return &Error{Message: msg, ExitCode: DefaultExitCode}
}
