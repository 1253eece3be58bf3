package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Blue-Davinci/SmartSave/internal/data"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	TypeDebit  = "debit"
	TypeCredit = "credit"
)

const incomeMarker = "payroll"

var (
	ErrMissingColumn = errors.New("ledger: required column missing")
	ErrInvalidRecord = errors.New("ledger: invalid record")
)

// Record is one row of a bank export.
type Record struct {
	DateStr     string
	Amount      decimal.Decimal
	Description string
	Type        string
}

// Ledger is a parsed bank export split into the feed collections.
type Ledger struct {
	Expenses []data.RawTransaction
	Income   []data.RawTransaction
	Refunds  []data.RawTransaction
}

// LoadFile opens path and parses it with Parse.
func LoadFile(path string, logger *zap.Logger) (*Ledger, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger %s: %w", path, err)
	}
	defer file.Close()

	records, err := Parse(file, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return Split(records), nil
}

// Parse reads a CSV with date_str (or an unnamed first column), amount,
// description and type columns. Rows with a bad amount are skipped and logged.
func Parse(r io.Reader, logger *zap.Logger) ([]Record, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}
	if _, ok := colIndex["date_str"]; !ok && len(header) > 0 && strings.TrimSpace(header[0]) == "" {
		colIndex["date_str"] = 0
	}
	for _, required := range []string{"date_str", "amount", "description", "type"} {
		if _, ok := colIndex[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	var records []Record
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(safeGet(row, colIndex["amount"])))
		if err != nil {
			logger.Warn("skipping ledger row", zap.Int("line", line), zap.Error(fmt.Errorf("%w: amount: %v", ErrInvalidRecord, err)))
			continue
		}
		records = append(records, Record{
			DateStr:     strings.TrimSpace(safeGet(row, colIndex["date_str"])),
			Amount:      amount,
			Description: strings.TrimSpace(safeGet(row, colIndex["description"])),
			Type:        strings.ToLower(strings.TrimSpace(safeGet(row, colIndex["type"]))),
		})
	}
	return records, nil
}

// Split sorts records into expenses (debits, classified by description),
// income (credits mentioning payroll) and refunds (any other credit).
// Records keep their row position as id.
func Split(records []Record) *Ledger {
	l := &Ledger{
		Expenses: []data.RawTransaction{},
		Income:   []data.RawTransaction{},
		Refunds:  []data.RawTransaction{},
	}
	for i, rec := range records {
		raw := data.RawTransaction{
			ID:          data.RecordID(fmt.Sprint(i)),
			Description: rec.Description,
			Amount:      rec.Amount,
			DateStr:     rec.DateStr,
		}
		switch rec.Type {
		case TypeDebit:
			raw.Category = Classify(rec.Description)
			l.Expenses = append(l.Expenses, raw)
		case TypeCredit:
			if strings.Contains(strings.ToLower(rec.Description), incomeMarker) {
				l.Income = append(l.Income, raw)
			} else {
				l.Refunds = append(l.Refunds, raw)
			}
		}
	}
	return l
}

// Collection returns the records served for kind.
func (l *Ledger) Collection(kind data.TransactionKind) []data.RawTransaction {
	switch kind {
	case data.KindExpenses:
		return l.Expenses
	case data.KindIncome:
		return l.Income
	case data.KindRefunds:
		return l.Refunds
	}
	return nil
}

func safeGet(row []string, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return row[index]
}
