package cli

import "errors"

// Exit codes: 0 clean, 1 validation issues remain, 2 fatal.
const (
	ExitOK         = 0
	ExitValidation = 1
	ExitFatal      = 2
)

// exitError carries an explicit exit code through cobra. A quiet exitError
// suppresses the final error line, for commands that already printed a
// report.
type exitError struct {
	code  int
	msg   string
	quiet bool
}

func (e *exitError) Error() string { return e.msg }

// validationFailed signals exit code 1 after a report has been printed.
func validationFailed(msg string) error {
	return &exitError{code: ExitValidation, msg: msg, quiet: true}
}

// ExitCode maps an Execute error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitFatal
}

func quiet(err error) bool {
	var ee *exitError
	return errors.As(err, &ee) && ee.quiet
}
