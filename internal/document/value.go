package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Equal reports whether two raw JSON values are equal under strict typing:
// numbers compare by value (1 == 1.0), and a number never equals a string or
// a boolean. Objects compare without regard to key order.
func Equal(a, b json.RawMessage) bool {
	va, err := parse(a)
	if err != nil {
		return false
	}
	vb, err := parse(b)
	if err != nil {
		return false
	}
	return equalValues(va, vb)
}

// Matches reports whether field of d is present and equal to want.
func (d *Document) Matches(field string, want json.RawMessage) bool {
	got, ok := d.Get(field)
	return ok && Equal(got, want)
}

func parse(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return v, nil
}

func equalValues(a, b any) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case string:
		y, ok := b.(string)
		return ok && x == y
	case json.Number:
		y, ok := b.(json.Number)
		return ok && numbersEqual(x, y)
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !equalValues(x[i], y[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !equalValues(xv, yv) {
				return false
			}
		}
		return true
	}
	return false
}

// numbersEqual compares two JSON number literals exactly, in time linear
// in their length.
func numbersEqual(a, b json.Number) bool {
	if a == b {
		return true
	}
	x, ok := normalize(a)
	if !ok {
		return false
	}
	y, ok := normalize(b)
	if !ok {
		return false
	}
	return x.neg == y.neg && x.digits == y.digits && x.scale.Cmp(y.scale) == 0
}

// decimal is digits * 10^scale with no leading or trailing zeros in digits.
// Zero has empty digits and is never negative.
type decimal struct {
	neg    bool
	digits string
	scale  *big.Int
}

func normalize(n json.Number) (decimal, bool) {
	s := string(n)
	var d decimal
	if strings.HasPrefix(s, "-") {
		d.neg, s = true, s[1:]
	}
	exp := big.NewInt(0)
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		if _, ok := exp.SetString(s[i+1:], 10); !ok {
			return decimal{}, false
		}
		s = s[:i]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	digits := intPart + frac
	if digits == "" || strings.Trim(digits, "0123456789") != "" {
		return decimal{}, false
	}
	digits = strings.TrimLeft(digits, "0")
	trimmed := strings.TrimRight(digits, "0")
	if trimmed == "" {
		return decimal{scale: big.NewInt(0)}, true
	}
	shift := int64(len(digits) - len(trimmed) - len(frac))
	d.digits = trimmed
	d.scale = exp.Add(exp, big.NewInt(shift))
	return d, true
}

// IsNumber reports whether raw is a JSON number.
func IsNumber(raw json.RawMessage) bool {
	v, err := parse(raw)
	if err != nil {
		return false
	}
	_, ok := v.(json.Number)
	return ok
}

// Add returns raw + amount. Integer operands are added exactly; any
// fractional or exponent operand switches to float64. ok is false when raw
// is not a number. A float result that overflows is an error.
func Add(raw json.RawMessage, amount json.Number) (sum json.Number, ok bool, err error) {
	v, perr := parse(raw)
	if perr != nil {
		return "", false, nil
	}
	cur, isNum := v.(json.Number)
	if !isNum {
		return "", false, nil
	}
	if isInteger(cur) && isInteger(amount) {
		x, okx := new(big.Int).SetString(string(cur), 10)
		y, oky := new(big.Int).SetString(string(amount), 10)
		if okx && oky {
			return json.Number(x.Add(x, y).String()), true, nil
		}
	}
	x, err := cur.Float64()
	if err != nil {
		return "", false, fmt.Errorf("%w: %w", ErrUnencodable, err)
	}
	y, err := amount.Float64()
	if err != nil {
		return "", false, fmt.Errorf("%w: %w", ErrUnencodable, err)
	}
	f := x + y
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return "", false, fmt.Errorf("%w: %v + %v overflows", ErrUnencodable, cur, amount)
	}
	return json.Number(strconv.FormatFloat(f, 'g', -1, 64)), true, nil
}

func isInteger(n json.Number) bool {
	return n != "" && !strings.ContainsAny(string(n), ".eE")
}

// ValidNumber reports whether n is a JSON number literal.
func ValidNumber(n json.Number) bool {
	return IsNumber(json.RawMessage(n))
}
