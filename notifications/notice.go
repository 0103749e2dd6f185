package notifications

import "github.com/google/uuid"

// Notice kinds. Each kind has "<kind>.title" and "<kind>.body" entries in the
// notifications section of the locale catalogs.
const (
	KindBalanceCredited         = "balance_credited"
	KindBalanceDebited          = "balance_debited"
	KindSessionAccepted         = "session_accepted"
	KindSessionCancelled        = "session_cancelled"
	KindSessionCompletedStudent = "session_completed_student"
	KindSessionCompletedTutor   = "session_completed_tutor"
	KindSessionRated            = "session_rated"
	KindSessionReminder         = "session_reminder"
	KindRequestExpired          = "request_expired"
	KindWithdrawalApproved      = "withdrawal_approved"
	KindWithdrawalRejected      = "withdrawal_rejected"
	KindTicketReply             = "ticket_reply"
	KindWelcome                 = "welcome"
	KindPasswordReset           = "password_reset"
)

type Notice struct {
	UserID uuid.UUID
	Kind   string
	Params map[string]string
	// EmailOnly skips the stored notification and the realtime push.
	EmailOnly bool
}
