// Package report computes aggregate figures over a ledger snapshot.
package report

import (
	"github.com/shopspring/decimal"

	"github.com/caixaclara/statement-ledger/internal/models"
)

// Totals holds the three presentation figures. Outflow is reported as a
// positive magnitude; Profit is Inflow minus Outflow.
type Totals struct {
	Inflow  decimal.Decimal `json:"total_receita"`
	Outflow decimal.Decimal `json:"total_despesa"`
	Profit  decimal.Decimal `json:"lucro"`
}

// Summarize folds a snapshot into totals. Pure; an empty ledger yields
// all-zero totals. Zero amounts stay in the ledger but count toward
// neither sum.
func Summarize(txns []models.Transaction) Totals {
	inflow := decimal.Zero
	outflow := decimal.Zero
	for _, txn := range txns {
		switch {
		case txn.Amount.IsPositive():
			inflow = inflow.Add(txn.Amount)
		case txn.Amount.IsNegative():
			outflow = outflow.Sub(txn.Amount)
		}
	}
	return Totals{
		Inflow:  inflow,
		Outflow: outflow,
		Profit:  inflow.Sub(outflow),
	}
}
