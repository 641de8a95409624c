package shared

// TransactionType defines the two sides of the jar ledger
type TransactionType string

const (
	TransactionTypeContribution TransactionType = "contribution"
	TransactionTypePayout       TransactionType = "payout"
)

// PaymentMethod defines how a contribution was paid
type PaymentMethod string

const (
	PaymentMethodMobileMoney PaymentMethod = "mobile-money"
	PaymentMethodBank        PaymentMethod = "bank"
	PaymentMethodCash        PaymentMethod = "cash"
	PaymentMethodCard        PaymentMethod = "card"
	PaymentMethodApplePay    PaymentMethod = "apple-pay"
)

// PaymentStatus defines transaction processing states
type PaymentStatus string

const (
	PaymentStatusPending     PaymentStatus = "pending"
	PaymentStatusCompleted   PaymentStatus = "completed"
	PaymentStatusFailed      PaymentStatus = "failed"
	PaymentStatusTransferred PaymentStatus = "transferred"
)

// Terminal reports whether no further reconciliation is expected for the status.
// completed is terminal for contributions but a payout may still move to transferred.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusFailed || s == PaymentStatusTransferred
}

// CanTransitionTo enforces the forward-only status rule: pending may resolve to
// completed or failed, and a completed payout may become transferred. Everything
// else, including any move out of failed, is rejected.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return next == PaymentStatusCompleted || next == PaymentStatusFailed
	case PaymentStatusCompleted:
		return next == PaymentStatusTransferred
	default:
		return false
	}
}

// JarStatus gates whether a jar accepts new transactions
type JarStatus string

const (
	JarStatusOpen   JarStatus = "open"
	JarStatusFrozen JarStatus = "frozen"
	JarStatusBroken JarStatus = "broken" // terminal
	JarStatusSealed JarStatus = "sealed"
)

// SweepOutcome categorizes the result of one transaction in a verification sweep
type SweepOutcome string

const (
	SweepOutcomeProcessed SweepOutcome = "processed"
	SweepOutcomeFailed    SweepOutcome = "failed"
	SweepOutcomeError     SweepOutcome = "error"
	SweepOutcomeSkipped   SweepOutcome = "skipped"
)

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
