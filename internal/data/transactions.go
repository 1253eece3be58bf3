package data

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/shopspring/decimal"
)

// TransactionKind names one of the three feed collections. The value doubles as
// the endpoint path segment and the JSON envelope key.
type TransactionKind string

const (
	KindExpenses TransactionKind = "expenses"
	KindIncome   TransactionKind = "income"
	KindRefunds  TransactionKind = "refunds"
)

// Categories assigned when the feed leaves a record uncategorized.
const (
	CategoryOther  = "Other"
	CategoryIncome = "Income"
	CategoryRefund = "Refund"
)

var ErrInvalidDate = errors.New("invalid date")

// AllKinds lists the collections in fetch order.
var AllKinds = []TransactionKind{KindExpenses, KindIncome, KindRefunds}

func (k TransactionKind) Valid() bool {
	switch k {
	case KindExpenses, KindIncome, KindRefunds:
		return true
	}
	return false
}

// Transaction is a normalized feed record. Amount is never negative.
type Transaction struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	DateStr     string          `json:"date_str"`
	Kind        TransactionKind `json:"kind"`
}

// Collections is the full dataset served by the feed.
type Collections struct {
	Expenses []Transaction `json:"expenses"`
	Income   []Transaction `json:"income"`
	Refunds  []Transaction `json:"refunds"`
}

func (c Collections) Empty() bool {
	return len(c.Expenses) == 0 && len(c.Income) == 0 && len(c.Refunds) == 0
}

// RecordID accepts both JSON strings and numbers.
type RecordID string

func (id *RecordID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = RecordID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("record id must be a string or number: %w", err)
	}
	*id = RecordID(n.String())
	return nil
}

// RawTransaction is a record exactly as the feed serves it.
type RawTransaction struct {
	ID          RecordID        `json:"id,omitempty"`
	Description string          `json:"description"`
	Category    string          `json:"category,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	DateStr     string          `json:"date_str"`
}

// ParseDate parses the loosely formatted date strings found in bank exports.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", ErrInvalidDate)
	}
	t, err := dateparse.ParseAny(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidDate, value, err)
	}
	return t, nil
}

// NormalizeTransaction converts a raw record of the given kind. index is the
// record's position and becomes its id when the feed sends none. With
// strictDates a bad date_str is an error; otherwise the date falls back to the
// Unix epoch and fellBack is true.
func NormalizeTransaction(raw RawTransaction, index int, kind TransactionKind, strictDates bool) (tx Transaction, fellBack bool, err error) {
	tx = Transaction{
		ID:          string(raw.ID),
		Description: strings.TrimSpace(raw.Description),
		Category:    strings.TrimSpace(raw.Category),
		Amount:      raw.Amount.Abs(),
		DateStr:     raw.DateStr,
		Kind:        kind,
	}
	if tx.ID == "" {
		tx.ID = strconv.Itoa(index)
	}
	if tx.Category == "" {
		tx.Category = defaultCategory(kind)
	}
	date, err := ParseDate(raw.DateStr)
	if err != nil {
		if strictDates {
			return Transaction{}, false, err
		}
		return tx.withDate(time.Unix(0, 0).UTC()), true, nil
	}
	return tx.withDate(date), false, nil
}

func (t Transaction) withDate(date time.Time) Transaction {
	t.Date = date
	return t
}

func defaultCategory(kind TransactionKind) string {
	switch kind {
	case KindIncome:
		return CategoryIncome
	case KindRefunds:
		return CategoryRefund
	default:
		return CategoryOther
	}
}
