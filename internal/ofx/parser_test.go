package ofx

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Sample OFX data for testing.
const sampleCreditCardOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
<FI>
<ORG>AMEX
</FI>
</SONRS>
</SIGNONMSGSRSV1>
<CREDITCARDMSGSRSV1>
<CCSTMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<CCSTMTRS>
<CURDEF>NOK
<CCACCTFROM>
<ACCTID>XXXX-123456
</CCACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-742.18
<FITID>2024011501
<NAME>VINMONOPOLET OSLO
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>-9.99
<FITID>2024012001
<NAME>SPOTIFY
<MEMO>PREMIUM SUBSCRIPTION
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240125120000[0:GMT]
<TRNAMT>59.90
<FITID>2024012501
<NAME>REFUND HM STORE
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>-4321.50
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</CCSTMTRS>
</CCSTMTTRNRS>
</CREDITCARDMSGSRSV1>
</OFX>`

const sampleBankNoCurrencyOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<BANKACCTFROM>
<BANKID>9710
<ACCTID>12345678901
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>CHECK
<DTPOSTED>20240110120000[0:GMT]
<TRNAMT>-500.00
<FITID>2024011001
<CHECKNUM>1234
<NAME>CHECK 1234
</STMTTRN>
</BANKTRANLIST>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

func TestParser_ParseFile(t *testing.T) {
	d := decimal.RequireFromString
	ctx := context.Background()

	parser := NewParser("Liabilities:CreditCard:Amex", "NOK")
	stmt, err := parser.ParseFile(ctx, strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)

	assert.Equal(t, "XXXX-123456", stmt.AccountID)
	assert.Equal(t, "NOK", stmt.Currency)
	require.Len(t, stmt.Transactions, 3)

	first := stmt.Transactions[0]
	assert.Equal(t, "2024011501", first.ID)
	assert.Equal(t, "VINMONOPOLET OSLO", first.Narration)
	assert.Equal(t, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC), first.Date.UTC())
	require.Len(t, first.Postings, 1)
	assert.Equal(t, "Liabilities:CreditCard:Amex", first.Postings[0].Account)
	assert.True(t, first.Postings[0].Amount.Equal(d("-742.18")), "got %s", first.Postings[0].Amount)
	assert.Equal(t, "NOK", first.Postings[0].Currency)
	assert.Equal(t, "DEBIT", first.Fields["type"])
	assert.Equal(t, "2024011501", first.Fields["id"])

	second := stmt.Transactions[1]
	assert.Equal(t, "SPOTIFY", second.Narration)
	assert.Equal(t, "PREMIUM SUBSCRIPTION", second.Fields["memo"])
	assert.True(t, second.Postings[0].Amount.Equal(d("-9.99")))

	refund := stmt.Transactions[2]
	assert.True(t, refund.Postings[0].Amount.Equal(d("59.90")))
	assert.True(t, refund.Postings[0].Amount.IsPositive())

	require.NotNil(t, stmt.Balance)
	assert.True(t, stmt.Balance.Equal(d("-4321.50")), "got %s", stmt.Balance)
	assert.Equal(t, time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC), stmt.BalanceDate.UTC())
}

func TestParser_ParseFileCurrencyFallback(t *testing.T) {
	ctx := context.Background()

	parser := NewParser("Assets:Bank:Checking", "SEK")
	stmt, err := parser.ParseFile(ctx, strings.NewReader(sampleBankNoCurrencyOFX))
	require.NoError(t, err)

	// Missing CURDEF falls back to the configured currency.
	assert.Equal(t, "SEK", stmt.Currency)
	require.Len(t, stmt.Transactions, 1)
	assert.Equal(t, "SEK", stmt.Transactions[0].Postings[0].Currency)
	assert.Equal(t, "1234", stmt.Transactions[0].CheckNumber)
	assert.Equal(t, "1234", stmt.Transactions[0].Fields["checknum"])
}

func TestParser_ParseFileInvalid(t *testing.T) {
	parser := NewParser("Assets:Bank:Checking", "NOK")
	_, err := parser.ParseFile(context.Background(), strings.NewReader("not an ofx file"))
	assert.Error(t, err)
}

func TestDetermineCurrency(t *testing.T) {
	tests := []struct {
		name       string
		file       string
		configured string
		want       string
	}{
		{name: "file currency wins", file: "USD", configured: "NOK", want: "USD"},
		{name: "configured fallback", file: "", configured: "SEK", want: "SEK"},
		{name: "whitespace-only file currency is absent", file: "   ", configured: "SEK", want: "SEK"},
		{name: "default as last resort", file: "", configured: "", want: DefaultCurrency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetermineCurrency(tt.file, tt.configured))
		})
	}
}
