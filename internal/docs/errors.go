package docs

import (
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
)

// CredentialError reports missing or unusable service-account material, or a
// failed token exchange.
type CredentialError struct {
	Err error
}

func (e *CredentialError) Error() string {
	return "credentials: " + e.Err.Error()
}

func (e *CredentialError) Unwrap() error { return e.Err }

// AccessError reports a failed read or edit of the remote document.
type AccessError struct {
	Op         string // "get", "insert" or "delete"
	DocumentID string
	Status     int // HTTP status reported by the API, 0 if none
	Err        error
}

func (e *AccessError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("docs %s %s: HTTP %d: %v", e.Op, e.DocumentID, e.Status, e.Err)
	}
	return fmt.Sprintf("docs %s %s: %v", e.Op, e.DocumentID, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }

func accessError(op, documentID string, err error) *AccessError {
	ae := &AccessError{Op: op, DocumentID: documentID, Err: err}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		ae.Status = gerr.Code
		if gerr.Message != "" {
			ae.Err = errors.New(gerr.Message)
		}
	}
	return ae
}
