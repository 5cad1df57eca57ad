package core

import (
	"fmt"
	"strconv"
	"time"
)

// logTimestampLayout matches the day-first localized form the audit log has
// always used; existing log lines are never reparsed, so the layout only
// matters for new appends.
const logTimestampLayout = "02/01/2006 15:04:05"

// ProgressState is the slice of a job record the ledger needs: the raw stored
// remaining value (still untyped, the store may return number, text, or
// nothing), the original run quantity, the current log, and the machine
// recorded on the record, if any.
type ProgressState struct {
	RawRemaining interface{}
	Impressions  int64
	Log          string
	Machine      string
}

// ProgressResult is the field-group written back after a successful
// decrement.
type ProgressResult struct {
	NewRemaining int64
	NewLog       string
	// Finished is set when the decrement reached exactly zero; the caller
	// bundles the region's terminal stage into the same write. This is
	// the only path that moves a job to finished automatically.
	Finished bool
}

// RecordProgress applies one production report to a job: validates the done
// quantity against the remaining counter, computes the decremented value, and
// appends a "timestamp - qty - machine" line to the audit log. The operation
// is all-or-nothing: any validation failure leaves the record untouched.
func RecordProgress(st ProgressState, qty int64, machine Machine, now time.Time) (ProgressResult, error) {
	if qty <= 0 {
		return ProgressResult{}, ErrInvalidQuantity
	}

	left, err := ResolveRemaining(st.RawRemaining, st.Impressions)
	if err != nil {
		return ProgressResult{}, err
	}
	if qty > left {
		return ProgressResult{}, ErrQuantityExceedsRemaining
	}

	machineForLog := st.Machine
	if machine != MachineUnset {
		machineForLog = strconv.Itoa(int(machine))
	}
	if machineForLog == "" {
		machineForLog = "N/A"
	}

	line := fmt.Sprintf("%s - %d - %s", now.Format(logTimestampLayout), qty, machineForLog)
	newLog := line
	if st.Log != "" {
		newLog = st.Log + "\n" + line
	}

	newLeft := left - qty
	return ProgressResult{
		NewRemaining: newLeft,
		NewLog:       newLog,
		Finished:     newLeft == 0,
	}, nil
}
