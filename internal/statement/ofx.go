package statement

import (
	"fmt"
	"io"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/shopspring/decimal"
)

// dateLayout is the DD/MM/YYYY form records keep their dates in.
const dateLayout = "02/01/2006"

// ParseOFX reads bank and credit card transactions from an OFX or QFX
// statement. FITID becomes the raw source identifier.
func ParseOFX(r io.Reader) ([]domain.ProvisionalRecord, error) {
	resp, err := ofxgo.ParseResponse(r)
	if err != nil {
		return nil, fmt.Errorf("ParseOFX: parsing response: %w", err)
	}

	records := []domain.ProvisionalRecord{}
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			records = append(records, fromOFX(stmt.BankTranList.Transactions)...)
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			records = append(records, fromOFX(stmt.BankTranList.Transactions)...)
		}
	}

	return records, nil
}

func fromOFX(txns []ofxgo.Transaction) []domain.ProvisionalRecord {
	out := make([]domain.ProvisionalRecord, 0, len(txns))
	for _, txn := range txns {
		date := txn.DtPosted.Time

		description := strings.TrimSpace(txn.Name.String())
		if description == "" {
			description = strings.TrimSpace(txn.Memo.String())
		}

		amount, err := decimal.NewFromString(txn.TrnAmt.Rat.FloatString(2))
		if err != nil {
			amount = decimal.Zero
		}

		var formatted string
		if !date.IsZero() {
			formatted = date.Format(dateLayout)
		}

		out = append(out, domain.ProvisionalRecord{
			RawSourceID: strings.TrimSpace(txn.FiTID.String()),
			Date:        formatted,
			Type:        strings.ToLower(txn.TrnType.String()),
			Description: description,
			Amount:      amount,
		})
	}
	return out
}
