package domain

import (
	"bytes"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in cents. It encodes to JSON as a decimal number with
// two fraction digits (1250 -> 12.50).
type Money int64

var moneyPattern = regexp.MustCompile(`^-?[0-9]+(\.[0-9]{1,2})?$`)

// maxMoney is the largest amount that fits a Money.
var maxMoney = decimal.NewFromInt(math.MaxInt64).Shift(-2)

// ParseMoney parses a decimal amount with at most two fraction digits.
// Amounts whose cent value does not fit in an int64 are rejected.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if !moneyPattern.MatchString(s) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.Abs().GreaterThan(maxMoney) {
		return 0, fmt.Errorf("amount %q out of range", s)
	}
	return Money(d.Shift(2).IntPart()), nil
}

// String renders the amount with two fraction digits.
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON encodes the amount as a JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a JSON string holding a decimal.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	s := string(data)
	if len(data) > 0 && data[0] == '"' {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return fmt.Errorf("invalid amount %s", s)
		}
		s = unq
	}
	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
