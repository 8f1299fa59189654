package saft

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iurnickita/vendussync/internal/model"
)

// Draft - проводка, собранная из одного Journal до записи в учет
type Draft struct {
	JournalID int64
	Date      time.Time
	Ref       string
	Lines     []model.MoveLine
}

func (d Draft) Totals() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, line := range d.Lines {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	return debit, credit
}

// Validate: сумма дебета равна сумме кредита
func (d Draft) Validate() error {
	debit, credit := d.Totals()
	if !debit.Equal(credit) {
		return fmt.Errorf("%w %q: debit %s, credit %s", ErrUnbalancedMove, d.Ref, debit, credit)
	}
	return nil
}

func (d Draft) Move(companyID int64) model.Move {
	return model.Move{
		CompanyID: companyID,
		JournalID: d.JournalID,
		Date:      d.Date,
		Ref:       d.Ref,
		Lines:     d.Lines,
	}
}
