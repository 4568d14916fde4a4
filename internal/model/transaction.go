// Package model defines the core data structures for the beanpost application.
package model

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Posting is a single leg of a transaction: an account, a signed amount and
// its currency. The first posting on a transaction is the primary posting,
// whose amount is the basis for all computed balancing postings.
type Posting struct {
	Account  string
	Amount   decimal.Decimal
	Currency string
}

// Transaction represents a single financial transaction from a statement.
//
// Amounts follow the statement sign convention: negative for money leaving
// the tracked account (charges), positive for money returning (refunds,
// payments).
type Transaction struct {
	Date        time.Time
	Fields      map[string]string
	ID          string // External id (OFX FITID), used for deduplication
	Payee       string
	Narration   string
	Type        string // Statement transaction type (DEBIT, CREDIT, FEE, ...)
	CheckNumber string
	AccountID   string
	Postings    []Posting
}

// PrimaryPosting returns the transaction's first posting, or nil if the
// transaction has no postings.
func (t *Transaction) PrimaryPosting() *Posting {
	if len(t.Postings) == 0 {
		return nil
	}
	return &t.Postings[0]
}

// GenerateHash creates a stable identifier for transactions that carry no
// external id.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%s:%s:%s",
		t.Date.Format("2006-01-02"),
		t.primaryAmountString(),
		t.Narration,
		t.AccountID)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

func (t *Transaction) primaryAmountString() string {
	if p := t.PrimaryPosting(); p != nil {
		return p.Amount.String()
	}
	return "0"
}

// Statement holds everything extracted from one OFX/QBO statement file.
type Statement struct {
	BalanceDate  time.Time
	Balance      *decimal.Decimal
	AccountID    string
	Organization string
	Currency     string
	Transactions []Transaction
}
