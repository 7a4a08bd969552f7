package amount

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	minPlaces = 2
	maxScale  = 18
	maxLength = 32
)

var (
	ErrEmpty     = errors.New("amount is empty")
	ErrMalformed = errors.New("amount must be plain decimal digits")
	ErrTooLong   = errors.New("amount has too many digits")
)

// Amount is a decimal money value. It crosses every boundary as a fixed-point string.
type Amount struct {
	d decimal.Decimal
}

var Zero = Amount{d: decimal.Zero}

func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, ErrEmpty
	}
	if len(s) > maxLength {
		return Amount{}, ErrTooLong
	}
	if !plain(s) {
		return Amount{}, ErrMalformed
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, errors.Wrapf(err, "parse amount %q", s)
	}

	return Amount{d: d}, nil
}

// plain accepts an optional minus sign, digits and at most one decimal point
// with digits on at least one side. Exponents are not accepted.
func plain(s string) bool {
	if s[0] == '-' {
		s = s[1:]
	}

	digits, dots := 0, 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			dots++
		default:
			return false
		}
	}

	return digits > 0 && dots <= 1
}

func FromInt(i int64) Amount {
	return Amount{d: decimal.NewFromInt(i)}
}

func (a Amount) IsPositive() bool {
	return a.d.IsPositive()
}

func (a Amount) IsNegative() bool {
	return a.d.IsNegative()
}

func (a Amount) IsZero() bool {
	return a.d.IsZero()
}

func (a Amount) GreaterThan(b Amount) bool {
	return a.d.GreaterThan(b.d)
}

func (a Amount) LessThan(b Amount) bool {
	return a.d.LessThan(b.d)
}

func (a Amount) Equal(b Amount) bool {
	return a.d.Equal(b.d)
}

// String renders the canonical wire form: at least two fractional digits,
// more only when the value carries them.
func (a Amount) String() string {
	places := int32(minPlaces)
	if e := -a.d.Exponent(); e > places {
		places = e
	}
	return a.d.StringFixed(places)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts both "12.30" and 12.30, the remote API sends either.
func (a *Amount) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return errors.Wrap(err, "decode amount")
	}
	if e := d.Exponent(); e > maxScale || e < -maxScale || len(d.Coefficient().String()) > maxLength {
		return errors.Wrapf(ErrTooLong, "decode amount %s", b)
	}
	a.d = d
	return nil
}

// Display formats the amount for UI labels, e.g. £1,234.50.
func (a Amount) Display(currency string) string {
	minor := a.d.Shift(minPlaces).Round(0).IntPart()
	return money.New(minor, currency).Display()
}

// Decode lets envconfig read an Amount straight from the environment.
func (a *Amount) Decode(value string) error {
	parsed, err := Parse(value)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
