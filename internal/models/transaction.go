package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the statement date format (DD/MM/YYYY).
const DateLayout = "02/01/2006"

// Kind classifies a transaction by the sign of its amount.
type Kind string

const (
	// KindInflow marks revenue (amount > 0).
	KindInflow Kind = "receita"
	// KindOutflow marks expense (amount <= 0). Zero amounts are outflows
	// by convention.
	KindOutflow Kind = "despesa"
)

// KindFor derives the transaction kind from a signed amount.
func KindFor(amount decimal.Decimal) Kind {
	if amount.IsPositive() {
		return KindInflow
	}
	return KindOutflow
}

// Transaction is one ledger entry. Date holds DD/MM/YYYY text, or "" when
// the source row carried no recoverable date. Amount is a signed canonical
// decimal; locale formatting never reaches this type.
type Transaction struct {
	Date        string          `json:"data"`
	Description string          `json:"descricao"`
	Amount      decimal.Decimal `json:"valor"`
	Kind        Kind            `json:"tipo"`
	Category    string          `json:"categoria"`
}

// Dateless reports whether the entry has no recoverable date.
func (t Transaction) Dateless() bool {
	return t.Date == ""
}

// Categories is the fixed set of labels accepted by manual entry.
var Categories = []string{
	"Alimentação",
	"Transporte",
	"Moradia",
	"Fornecedores",
	"Impostos",
	"Folha",
	"Outros",
}

// ValidCategory reports whether label belongs to the manual-entry set.
func ValidCategory(label string) bool {
	for _, c := range Categories {
		if c == label {
			return true
		}
	}
	return false
}

// ValidDate reports whether s is a real calendar date in DD/MM/YYYY form.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
