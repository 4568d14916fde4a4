package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransaction_PrimaryPosting(t *testing.T) {
	d := decimal.RequireFromString

	txn := Transaction{
		Postings: []Posting{
			{Account: "Liabilities:CreditCard:Amex", Amount: d("-742.18"), Currency: "NOK"},
			{Account: "Expenses:Groceries", Amount: d("742.18"), Currency: "NOK"},
		},
	}

	p := txn.PrimaryPosting()
	require.NotNil(t, p)
	assert.Equal(t, "Liabilities:CreditCard:Amex", p.Account)

	empty := Transaction{}
	assert.Nil(t, empty.PrimaryPosting())
}

func TestTransaction_GenerateHash(t *testing.T) {
	d := decimal.RequireFromString

	txn := Transaction{
		Date:      time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Narration: "VINMONOPOLET OSLO",
		AccountID: "XXXX-123456",
		Postings:  []Posting{{Account: "Liabilities:CreditCard:Amex", Amount: d("-742.18")}},
	}

	hash := txn.GenerateHash()
	assert.Len(t, hash, 64)
	assert.Equal(t, hash, txn.GenerateHash(), "hash must be stable")

	other := txn
	other.Narration = "SPOTIFY"
	assert.NotEqual(t, hash, other.GenerateHash())

	noPostings := Transaction{Date: txn.Date, Narration: txn.Narration, AccountID: txn.AccountID}
	assert.NotEqual(t, hash, noPostings.GenerateHash())
}
