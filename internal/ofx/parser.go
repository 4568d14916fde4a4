// Package ofx parses OFX/QBO/QFX statement files into the beanpost model.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/larsfjeld/beanpost/internal/model"
)

// DefaultCurrency is the last-resort currency when neither the statement
// nor the configuration names one.
const DefaultCurrency = "NOK"

// amountPrecision bounds the decimal places preserved when converting the
// OFX rational amounts. Bank exports carry at most a handful.
const amountPrecision = 8

// Parser parses OFX statements into transactions carrying a primary
// posting against the configured ledger account.
type Parser struct {
	account  string
	currency string
}

// NewParser creates a parser for one tracked account. currency is the
// configured fallback used when a statement carries no CURDEF.
func NewParser(account, currency string) *Parser {
	return &Parser{account: account, currency: currency}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// Fix mixed-case SEVERITY values (should be INFO, WARN, or ERROR)
	severityRegex := regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// Fix missing closing angle brackets in SGML-style OFX files:
	// opening tags alone on a line with no closing bracket.
	tagFixRegex := regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
	content = tagFixRegex.ReplaceAllString(content, "$1>")

	return content
}

// ParseFile parses an OFX/QBO statement and returns its contents. Both bank
// and credit-card message sets are handled; the first statement found
// provides the account id, currency and ledger balance.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) (*model.Statement, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	stmt := &model.Statement{
		Organization: strings.TrimSpace(resp.Signon.Org.String()),
	}

	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if br, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			p.collectBankStatement(stmt, br)
		}
	}

	for _, msg := range resp.CreditCard {
		if cc, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			p.collectCreditCardStatement(stmt, cc)
		}
	}

	stmt.Currency = DetermineCurrency(stmt.Currency, p.currency)
	for i := range stmt.Transactions {
		for j := range stmt.Transactions[i].Postings {
			stmt.Transactions[i].Postings[j].Currency = stmt.Currency
		}
	}

	slog.Info("Parsed OFX file",
		"total_transactions", len(stmt.Transactions),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts,
		"currency", stmt.Currency)

	return stmt, nil
}

func (p *Parser) collectBankStatement(stmt *model.Statement, br *ofxgo.StatementResponse) {
	if stmt.AccountID == "" {
		stmt.AccountID = strings.TrimSpace(string(br.BankAcctFrom.AcctID))
	}
	if stmt.Currency == "" {
		stmt.Currency = statementCurrency(br.CurDef)
	}
	p.collectBalance(stmt, br.BalAmt, br.DtAsOf.Time)
	if br.BankTranList == nil {
		return
	}
	for _, ofxTx := range br.BankTranList.Transactions {
		stmt.Transactions = append(stmt.Transactions, p.convertTransaction(ofxTx, stmt.AccountID))
	}
}

func (p *Parser) collectCreditCardStatement(stmt *model.Statement, cc *ofxgo.CCStatementResponse) {
	if stmt.AccountID == "" {
		stmt.AccountID = strings.TrimSpace(string(cc.CCAcctFrom.AcctID))
	}
	if stmt.Currency == "" {
		stmt.Currency = statementCurrency(cc.CurDef)
	}
	p.collectBalance(stmt, cc.BalAmt, cc.DtAsOf.Time)
	if cc.BankTranList == nil {
		return
	}
	for _, ofxTx := range cc.BankTranList.Transactions {
		stmt.Transactions = append(stmt.Transactions, p.convertTransaction(ofxTx, stmt.AccountID))
	}
}

// collectBalance records the first ledger balance seen, for optional
// balance assertions downstream.
func (p *Parser) collectBalance(stmt *model.Statement, balAmt ofxgo.Amount, asOf time.Time) {
	if stmt.Balance != nil || asOf.IsZero() {
		return
	}
	bal := decimal.NewFromBigRat(&balAmt.Rat, amountPrecision)
	stmt.Balance = &bal
	stmt.BalanceDate = asOf
}

// convertTransaction converts one OFX transaction record.
func (p *Parser) convertTransaction(ofxTx ofxgo.Transaction, accountID string) model.Transaction {
	amount := decimal.NewFromBigRat(&ofxTx.TrnAmt.Rat, amountPrecision)

	payee := ""
	if ofxTx.Payee != nil {
		payee = strings.TrimSpace(string(ofxTx.Payee.Name))
	}
	name := strings.TrimSpace(string(ofxTx.Name))
	memo := strings.TrimSpace(string(ofxTx.Memo))

	// Payee is the narration when present; otherwise fall back to the
	// NAME field, then the memo.
	narration := payee
	if narration == "" {
		narration = name
	}
	if narration == "" {
		narration = memo
	}

	txnType := fmt.Sprintf("%v", ofxTx.TrnType)

	fields := map[string]string{}
	if id := string(ofxTx.FiTID); id != "" {
		fields["id"] = id
	}
	if txnType != "" {
		fields["type"] = txnType
	}
	// The memo only becomes a field when the payee already serves as the
	// narration; otherwise it is the narration itself.
	if memo != "" && narration != memo {
		fields["memo"] = memo
	}

	tx := model.Transaction{
		ID:        string(ofxTx.FiTID),
		Date:      ofxTx.DtPosted.Time,
		Payee:     payee,
		Narration: narration,
		Type:      txnType,
		AccountID: accountID,
		Fields:    fields,
		Postings: []model.Posting{
			{Account: p.account, Amount: amount},
		},
	}

	if ofxTx.CheckNum != "" {
		tx.CheckNumber = string(ofxTx.CheckNum)
		fields["checknum"] = tx.CheckNumber
	}

	if tx.ID == "" {
		tx.ID = tx.GenerateHash()
	}

	return tx
}

// statementCurrency extracts a usable CURDEF. A statement without one
// unmarshals to the undefined ISO code "XXX", which counts as absent.
func statementCurrency(cur ofxgo.CurrSymbol) string {
	c := strings.TrimSpace(cur.String())
	if c == "XXX" {
		return ""
	}
	return c
}

// DetermineCurrency resolves the currency to use for a statement's
// transactions: the statement's own CURDEF when present, then the
// configured account currency, then DefaultCurrency. Whitespace-only
// values count as absent.
func DetermineCurrency(fileCurrency, configured string) string {
	if c := strings.TrimSpace(fileCurrency); c != "" {
		return c
	}
	if c := strings.TrimSpace(configured); c != "" {
		return c
	}
	return DefaultCurrency
}
