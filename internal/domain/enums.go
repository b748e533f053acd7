package domain

import "fmt"

type SessionType string

const (
	SessionCounting  SessionType = "counting"
	SessionReceiving SessionType = "receiving"
)

// ValidSessionTypes is the canonical set of accepted session type strings.
var ValidSessionTypes = map[string]bool{
	"counting": true, "receiving": true,
}

// ParseSessionType converts a raw string into a SessionType.
func ParseSessionType(s string) (SessionType, error) {
	if !ValidSessionTypes[s] {
		return "", fmt.Errorf("invalid session type %q (expected counting or receiving)", s)
	}
	return SessionType(s), nil
}

// SubmissionPrefix returns the document-number prefix used when a session
// of this type is submitted.
func (t SessionType) SubmissionPrefix() string {
	if t == SessionReceiving {
		return "RCV"
	}
	return "CNT"
}

type EditField string

const (
	FieldQuantity         EditField = "quantity"
	FieldQuantityRejected EditField = "quantity_rejected"
)
