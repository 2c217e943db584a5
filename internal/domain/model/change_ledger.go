package model

import "time"

// TransactionChange pairs a replayed transaction with the identity of the
// persisted transaction it supersedes.
type TransactionChange struct {
	OldID string
	New   *Transaction
}

// ChangeLedger records which persisted transactions were superseded by a
// replay. Entries keep registration order so callers persist them
// deterministically.
type ChangeLedger struct {
	entries []TransactionChange
}

// NewChangeLedger returns an empty ledger.
func NewChangeLedger() *ChangeLedger { return &ChangeLedger{} }

// Register records that newTxn replaces the transaction with oldID. A second
// registration of the same new transaction updates its old identity.
func (l *ChangeLedger) Register(newTxn *Transaction, oldID string) {
	for idx := range l.entries {
		if l.entries[idx].New == newTxn {
			l.entries[idx].OldID = oldID
			return
		}
	}
	l.entries = append(l.entries, TransactionChange{OldID: oldID, New: newTxn})
}

// Remove drops the entry for newTxn.
func (l *ChangeLedger) Remove(newTxn *Transaction) {
	for idx := range l.entries {
		if l.entries[idx].New == newTxn {
			l.entries = append(l.entries[:idx], l.entries[idx+1:]...)
			return
		}
	}
}

// OldIDOf returns the identity newTxn replaces.
func (l *ChangeLedger) OldIDOf(newTxn *Transaction) (string, bool) {
	for _, e := range l.entries {
		if e.New == newTxn {
			return e.OldID, true
		}
	}
	return "", false
}

// ReplacementFor returns the transaction superseding oldID.
func (l *ChangeLedger) ReplacementFor(oldID string) (*Transaction, bool) {
	for _, e := range l.entries {
		if e.OldID == oldID {
			return e.New, true
		}
	}
	return nil, false
}

// NewTransactions returns the replacing transactions in registration order.
func (l *ChangeLedger) NewTransactions() []*Transaction {
	out := make([]*Transaction, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e.New)
	}
	return out
}

// OtherOnDate reports whether a registered transaction other than exclude is
// dated on d.
func (l *ChangeLedger) OtherOnDate(exclude *Transaction, d time.Time) bool {
	for _, e := range l.entries {
		if e.New != exclude && e.New.Date().Equal(d) {
			return true
		}
	}
	return false
}

// Changes returns a copy of the recorded entries.
func (l *ChangeLedger) Changes() []TransactionChange {
	return append([]TransactionChange(nil), l.entries...)
}

// Len returns the number of recorded supersessions.
func (l *ChangeLedger) Len() int { return len(l.entries) }

// IsEmpty reports whether nothing was superseded.
func (l *ChangeLedger) IsEmpty() bool { return len(l.entries) == 0 }
