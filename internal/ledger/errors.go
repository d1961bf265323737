package ledger

import "fmt"

// DuplicateAttemptError rejects re-recording a command that already
// succeeded. A success never needs retrying.
type DuplicateAttemptError struct {
	Signature string
}

func (e *DuplicateAttemptError) Error() string {
	return fmt.Sprintf("command already succeeded, refusing to retry: %s", e.Signature)
}

// RepeatedFailureError rejects re-recording a command that already
// failed, unless the record carries an explicit reissue context
// (e.g. after an environment reset).
type RepeatedFailureError struct {
	Signature string
}

func (e *RepeatedFailureError) Error() string {
	return fmt.Sprintf("command already failed and no new context given: %s", e.Signature)
}
