package models

type TransactionStatus string

const (
	StatusInitiated  TransactionStatus = "INITIATED"
	StatusPending    TransactionStatus = "PENDING"
	StatusSuccessful TransactionStatus = "SUCCESSFUL"
	StatusFailed     TransactionStatus = "FAILED"
	StatusError      TransactionStatus = "ERROR"
)

// transitions lists every allowed forward move. Terminal statuses have no entry.
var transitions = map[TransactionStatus][]TransactionStatus{
	StatusInitiated: {StatusPending, StatusFailed, StatusError},
	StatusPending:   {StatusSuccessful, StatusFailed},
}

func (s TransactionStatus) IsTerminal() bool {
	return s == StatusSuccessful || s == StatusFailed || s == StatusError
}

// CanTransition reports whether a transaction may move from s to next.
// Staying in the same status is not a transition.
func (s TransactionStatus) CanTransition(next TransactionStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseProviderStatus maps a status reported by the provider to a local status.
// The provider only ever reports PENDING, SUCCESSFUL or FAILED.
func ParseProviderStatus(raw string) (TransactionStatus, bool) {
	switch TransactionStatus(raw) {
	case StatusPending, StatusSuccessful, StatusFailed:
		return TransactionStatus(raw), true
	}
	return "", false
}
