package reconciliation

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"hoa-ledger-backend/internal/models"
	"hoa-ledger-backend/internal/services/ledger"

	"github.com/shopspring/decimal"
)

// statementDateLayouts are tried in order; day-first wins over month-first
var statementDateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"01/02/2006",
}

// StatementRow is one incoming credit read from a bank statement.
type StatementRow struct {
	Line        int
	Date        time.Time
	Amount      decimal.Decimal
	Description string
	Reference   string
	Key         string
	Raw         json.RawMessage
}

// ParsedStatement is the result of reading a statement file.
type ParsedStatement struct {
	Rows []StatementRow
	// Total counts every non-blank data row, Skipped the ones that were not
	// usable credits.
	Total   int
	Skipped int
}

type statementColumns struct {
	date, description, amount, reference int
}

func normalizeHeader(h string) string {
	h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	return strings.ReplaceAll(strings.ToLower(h), " ", "_")
}

func detectColumns(header []string) (statementColumns, error) {
	cols := statementColumns{date: -1, description: -1, amount: -1, reference: -1}
	for i, raw := range header {
		h := normalizeHeader(raw)
		switch {
		case cols.date < 0 && strings.Contains(h, "date"):
			cols.date = i
		case cols.description < 0 && (strings.Contains(h, "description") ||
			strings.Contains(h, "particulars") || strings.Contains(h, "narration")):
			cols.description = i
		case cols.amount < 0 && (strings.Contains(h, "amount") || strings.Contains(h, "credit")):
			cols.amount = i
		case cols.reference < 0 && strings.Contains(h, "reference"):
			cols.reference = i
		}
	}
	if cols.date < 0 {
		return cols, ledger.Errorf(ledger.ErrInvalidStatement, "statement has no date column")
	}
	if cols.amount < 0 {
		return cols, ledger.Errorf(ledger.ErrInvalidStatement, "statement has no amount column")
	}
	return cols, nil
}

func parseStatementDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range statementDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseStatementAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// transactionKey identifies a statement line. occurrence separates identical
// lines within one file so re-imports dedupe while real repeats survive.
func transactionKey(date time.Time, amount decimal.Decimal, description, reference string, occurrence int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%s|%d",
		date.Format("2006-01-02"), amount.StringFixed(2), description, reference, occurrence)))
	return hex.EncodeToString(sum[:])
}

// ParseStatement reads a comma or tab separated bank statement with a header
// row. Outgoing, zero, malformed and undated rows are skipped.
func ParseStatement(r io.Reader) (*ParsedStatement, error) {
	br := bufio.NewReader(r)
	sample, _ := br.Peek(1024)

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	if !bytes.Contains(sample, []byte(",")) && bytes.Contains(sample, []byte("\t")) {
		reader.Comma = '\t'
	}

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ledger.Errorf(ledger.ErrInvalidStatement, "statement is empty")
	}
	if err != nil {
		return nil, ledger.Errorf(ledger.ErrInvalidStatement, "cannot read statement header: %v", err)
	}
	cols, err := detectColumns(header)
	if err != nil {
		return nil, err
	}

	parsed := &ParsedStatement{}
	seen := make(map[string]int)
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			parsed.Total++
			parsed.Skipped++
			continue
		}
		if strings.TrimSpace(strings.Join(record, "")) == "" {
			continue
		}
		parsed.Total++

		amount, ok := parseStatementAmount(field(record, cols.amount))
		if !ok || !amount.IsPositive() || !amount.Equal(amount.Round(2)) {
			parsed.Skipped++
			continue
		}
		date, ok := parseStatementDate(field(record, cols.date))
		if !ok {
			parsed.Skipped++
			continue
		}

		description := field(record, cols.description)
		reference := field(record, cols.reference)
		if cols.reference < 0 {
			reference = description
		}

		base := transactionKey(date, amount, description, reference, 0)
		occurrence := seen[base]
		seen[base] = occurrence + 1

		raw := make(map[string]string, len(header))
		for i, h := range header {
			raw[normalizeHeader(h)] = field(record, i)
		}
		rawJSON, err := json.Marshal(raw)
		if err != nil {
			return nil, err
		}

		parsed.Rows = append(parsed.Rows, StatementRow{
			Line:        line,
			Date:        date,
			Amount:      amount,
			Description: models.ClipText(description),
			Reference:   models.ClipText(reference),
			Key:         transactionKey(date, amount, description, reference, occurrence),
			Raw:         rawJSON,
		})
	}
	return parsed, nil
}
