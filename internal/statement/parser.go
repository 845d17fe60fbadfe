// Package statement turns raw bank statement exports into provisional
// transaction records. Parsing never fails on a bad row: malformed rows are
// dropped and unreadable amounts become zero.
package statement

import (
	"encoding/csv"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
)

// Delimiter separates columns in the bank export.
const Delimiter = ';'

// minFields is the smallest row width accepted as a data row.
const minFields = 4

// Recognised header labels, matched case-insensitively.
const (
	HeaderDate        = "data"
	HeaderType        = "tipo"
	HeaderDescription = "descricao"
	HeaderAmount      = "valor"
	HeaderIdentifier  = "codigo da transacao"
)

// columns holds the index of each known header, -1 when absent.
type columns struct {
	date, kind, description, amount, identifier int
}

func locateColumns(header []string) columns {
	cols := columns{-1, -1, -1, -1, -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case HeaderDate:
			cols.date = first(cols.date, i)
		case HeaderType:
			cols.kind = first(cols.kind, i)
		case HeaderDescription:
			cols.description = first(cols.description, i)
		case HeaderAmount:
			cols.amount = first(cols.amount, i)
		case HeaderIdentifier:
			cols.identifier = first(cols.identifier, i)
		}
	}
	return cols
}

func first(current, candidate int) int {
	if current >= 0 {
		return current
	}
	return candidate
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// Parse reads semicolon-delimited statement text. The first line is the
// header; records keep input row order. Each line is read on its own so a
// stray quote damages at most that line. Input without data rows yields an
// empty slice.
func Parse(text string) []domain.ProvisionalRecord {
	text = strings.TrimPrefix(text, "\ufeff")
	lines := strings.Split(strings.ReplaceAll(strings.TrimSpace(text), "\r\n", "\n"), "\n")

	header, err := readLine(lines[0])
	if err != nil {
		return []domain.ProvisionalRecord{}
	}
	cols := locateColumns(header)

	records := []domain.ProvisionalRecord{}
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		row, err := readLine(line)
		if err != nil || len(row) < minFields {
			continue
		}

		records = append(records, domain.ProvisionalRecord{
			RawSourceID: field(row, cols.identifier),
			Date:        field(row, cols.date),
			Type:        field(row, cols.kind),
			Description: field(row, cols.description),
			Amount:      ParseAmount(field(row, cols.amount)),
		})
	}

	return records
}

// readLine splits a single physical line into fields.
func readLine(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = Delimiter
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	return r.Read()
}

// ParseAmount converts a decimal-comma amount such as "-1.234,56" or
// "R$ 10,00". Anything unparsable yields zero.
func ParseAmount(raw string) decimal.Decimal {
	s := strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' || r == '\t' {
			return -1
		}
		return r
	}, raw)

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}
	s = strings.TrimPrefix(s, "R$")
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	}

	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	if negative {
		return amount.Neg()
	}
	return amount
}

// ParseFile picks a format by file extension. OFX and QFX go through
// ParseOFX; everything else is treated as delimited text. Non UTF-8
// content is decoded as Windows-1252, the usual encoding of bank exports.
func ParseFile(file domain.ImportFile) ([]domain.ProvisionalRecord, error) {
	switch strings.ToLower(filepath.Ext(file.Filename)) {
	case ".ofx", ".qfx":
		return ParseOFX(strings.NewReader(string(file.Content)))
	}

	content := file.Content
	if !utf8.Valid(content) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(content)
		if err == nil {
			content = decoded
		}
	}
	return Parse(string(content)), nil
}
