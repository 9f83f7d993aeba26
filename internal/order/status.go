package order

// statusByCode maps gateway-reported transaction statuses to internal payment
// statuses. Unrecognized codes map to nothing and leave the order untouched.
var statusByCode = map[string]PaymentStatus{
	"settlement": StatusPaid,
	"capture":    StatusPaid,
	"success":    StatusPaid,
	"expire":     StatusExpired,
	"cancel":     StatusFailed,
	"deny":       StatusFailed,
	"failure":    StatusFailed,
	"pending":    StatusPending,
}

// Decision is the outcome of feeding one gateway report into the state
// machine against the current status.
type Decision struct {
	// Target is the status the order should hold after this report.
	Target PaymentStatus
	// Apply is true when Target differs from current and the transition is
	// legal; false means no write (idempotent redelivery, stale retry,
	// unknown code, or a refused regression).
	Apply bool
	// Conflict is true when a terminal order received a contradicting
	// terminal report. The report is refused but must be surfaced for audit.
	Conflict bool
}

// NextStatus decides how a reported gateway status applies to an order
// currently in current. Pure; all persistence and locking live elsewhere.
//
// Rules:
//   - paid is sticky: contradicting terminal reports are conflicts, never
//     applied (a false "failed" after a real "paid" would hurt the buyer).
//   - a late success overrides expired/failed: the gateway's success signal
//     is authoritative even when it arrives after an expiry report.
//   - terminal → pending is a stale retransmission, dropped silently.
//   - identical status or unknown code is a no-op.
func NextStatus(current PaymentStatus, reported string) Decision {
	target, known := statusByCode[reported]
	if !known {
		return Decision{Target: current}
	}

	if target == current {
		return Decision{Target: current}
	}

	if !current.Terminal() {
		return Decision{Target: target, Apply: true}
	}

	// current is terminal and the report disagrees
	if current == StatusPaid {
		return Decision{Target: current, Conflict: target.Terminal()}
	}

	if target == StatusPaid {
		return Decision{Target: target, Apply: true}
	}

	if target == StatusPending {
		return Decision{Target: current}
	}

	// expired vs failed disagreement
	return Decision{Target: current, Conflict: true}
}
