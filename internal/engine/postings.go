package engine

import (
	"github.com/larsfjeld/beanpost/internal/model"
)

// AddBalancingPostings appends proportioned balancing postings for a
// classification to a transaction and returns the result. The input
// transaction is not modified.
//
// Posting order is a contract: the original primary posting first, then one
// posting per split in rule order, then a receivable/offset pair per shared
// expense in rule order. Amounts are exact decimal products of the primary
// amount; the engine never rounds, so a split may carry more decimal places
// than the input (33% of 123.45 is 40.7385). Callers needing
// currency-rounded output round downstream.
func AddBalancingPostings(txn model.Transaction, c *Classification) model.Transaction {
	primary := txn.PrimaryPosting()
	if primary == nil || c == nil || len(c.Splits) == 0 {
		return txn
	}

	balanced := primary.Amount.Neg()
	postings := make([]model.Posting, 0, len(txn.Postings)+len(c.Splits)+2*len(c.SharedWith))
	postings = append(postings, txn.Postings...)

	for _, split := range c.Splits {
		postings = append(postings, model.Posting{
			Account:  split.Account,
			Amount:   balanced.Mul(split.Percentage.Shift(-2)),
			Currency: primary.Currency,
		})
	}

	for _, shared := range c.SharedWith {
		// The offset is defined as the exact negation of the receivable,
		// never recomputed, so the pair always cancels.
		receivable := balanced.Mul(shared.Percentage.Shift(-2))
		postings = append(postings, model.Posting{
			Account:  shared.ReceivableAccount,
			Amount:   receivable,
			Currency: primary.Currency,
		})
		postings = append(postings, model.Posting{
			Account:  shared.OffsetAccount,
			Amount:   receivable.Neg(),
			Currency: primary.Currency,
		})
	}

	txn.Postings = postings
	return txn
}
