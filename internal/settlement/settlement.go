// Package settlement derives per-member balances and category totals from
// a channel's expense set. Everything here is a pure computation: no
// storage access, no mutation, safe to run concurrently with ledger writes.
package settlement

// Tolerance is the maximum accepted gap between an expense amount and the
// sum of its split amounts, in currency minor units.
const Tolerance = 0.01

// Split is one member's share of an expense.
type Split struct {
	UserID string
	Amount float64
}

// Expense carries the minimal expense information needed for settlement.
type Expense struct {
	Amount   float64
	PaidBy   string
	Category string
	Splits   []Split
}

// RosterEntry is one current channel member, in roster order.
type RosterEntry struct {
	UserID string
	Name   string
}

// MemberBalance is the per-member ledger position. Balance is paid minus
// owes: positive means the group owes this member money.
type MemberBalance struct {
	Name    string  `json:"name"`
	Paid    float64 `json:"paid"`
	Owes    float64 `json:"owes"`
	Balance float64 `json:"balance"`
}

// Summary is the derived settlement state for a channel. It is recomputed
// fresh on every request and never persisted.
type Summary struct {
	TotalExpenses     float64                   `json:"totalExpenses"`
	ExpenseCount      int                       `json:"expenseCount"`
	Currency          string                    `json:"currency"`
	MemberBalances    map[string]*MemberBalance `json:"memberBalances"`
	CategoryBreakdown map[string]float64        `json:"categoryBreakdown"`
}

// Summarize computes the settlement summary. totalExpenses and currency
// come from the channel's incremental accumulator, not from re-summing the
// expense set. Balances are seeded for current roster members only; split
// entries referencing anyone else are dropped from balance accumulation
// but still count toward category totals. The accumulation is associative,
// so the expense order does not affect the result.
func Summarize(totalExpenses float64, currency string, roster []RosterEntry, expenses []Expense) *Summary {
	summary := &Summary{
		TotalExpenses:     totalExpenses,
		ExpenseCount:      len(expenses),
		Currency:          currency,
		MemberBalances:    make(map[string]*MemberBalance, len(roster)),
		CategoryBreakdown: make(map[string]float64),
	}

	for _, m := range roster {
		summary.MemberBalances[m.UserID] = &MemberBalance{Name: m.Name}
	}

	for _, e := range expenses {
		if b, ok := summary.MemberBalances[e.PaidBy]; ok {
			b.Paid += e.Amount
		}
		for _, s := range e.Splits {
			if b, ok := summary.MemberBalances[s.UserID]; ok {
				b.Owes += s.Amount
			}
		}
		summary.CategoryBreakdown[e.Category] += e.Amount
	}

	for _, b := range summary.MemberBalances {
		b.Balance = b.Paid - b.Owes
	}

	return summary
}

// EqualSplit divides amount across the given members in roster order. The
// per-member share is the raw quotient, matching how splits have always
// been computed; it is not rounded to the minor currency unit.
func EqualSplit(amount float64, memberIDs []string) []Split {
	if len(memberIDs) == 0 {
		return nil
	}
	share := amount / float64(len(memberIDs))
	splits := make([]Split, len(memberIDs))
	for i, id := range memberIDs {
		splits[i] = Split{UserID: id, Amount: share}
	}
	return splits
}

// SplitsMatch reports whether the split amounts sum to amount within
// Tolerance.
func SplitsMatch(splits []Split, amount float64) bool {
	var sum float64
	for _, s := range splits {
		sum += s.Amount
	}
	diff := sum - amount
	if diff < 0 {
		diff = -diff
	}
	return diff <= Tolerance
}
