// Package ledger renders transactions as plain-text ledger directives.
package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/larsfjeld/beanpost/internal/model"
)

// DefaultFlag marks rendered transactions as complete.
const DefaultFlag = "*"

const dateLayout = "2006-01-02"

// Renderer renders beancount-style directives. Amounts are written exactly
// as carried by the transaction, with no rounding or reformatting.
type Renderer struct {
	flag string
}

// NewRenderer creates a renderer using DefaultFlag.
func NewRenderer() *Renderer {
	return &Renderer{flag: DefaultFlag}
}

// Transaction renders one transaction directive: the header line, sorted
// metadata from the transaction's fields, then the postings in order.
func (r *Renderer) Transaction(txn model.Transaction) string {
	var b strings.Builder

	b.WriteString(txn.Date.Format(dateLayout))
	b.WriteString(" ")
	b.WriteString(r.flag)
	if txn.Payee != "" && txn.Payee != txn.Narration {
		fmt.Fprintf(&b, " %s", quote(txn.Payee))
	}
	fmt.Fprintf(&b, " %s\n", quote(txn.Narration))

	keys := make([]string, 0, len(txn.Fields))
	for k := range txn.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s: %s\n", k, quote(txn.Fields[k]))
	}

	width := 0
	for _, p := range txn.Postings {
		if len(p.Account) > width {
			width = len(p.Account)
		}
	}
	for _, p := range txn.Postings {
		fmt.Fprintf(&b, "  %-*s  %s %s\n", width, p.Account, p.Amount.String(), p.Currency)
	}

	return b.String()
}

// Balance renders a balance assertion for the day after the statement's
// balance date. Statement balances describe the end of that day, while the
// assertion applies at the start of a day.
func (r *Renderer) Balance(account string, balance decimal.Decimal, currency string, asOf time.Time) string {
	assertAt := asOf.AddDate(0, 0, 1)
	return fmt.Sprintf("%s balance %s  %s %s\n", assertAt.Format(dateLayout), account, balance.String(), currency)
}

// Statement renders every transaction in the statement, separated by blank
// lines, optionally followed by a balance assertion against account.
func (r *Renderer) Statement(stmt *model.Statement, account string, withBalance bool) string {
	parts := make([]string, 0, len(stmt.Transactions)+1)
	for _, txn := range stmt.Transactions {
		parts = append(parts, r.Transaction(txn))
	}
	if withBalance && stmt.Balance != nil && !stmt.BalanceDate.IsZero() {
		parts = append(parts, r.Balance(account, *stmt.Balance, stmt.Currency, stmt.BalanceDate))
	}
	return strings.Join(parts, "\n")
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
