package reports

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Value is a parameter value the model may send as a JSON number or string.
// The raw token is kept so non-numeric text survives coercion.
type Value struct {
	raw    string
	quoted bool
}

func NumberValue(f float64) Value {
	return Value{raw: strconv.FormatFloat(f, 'f', -1, 64)}
}

func StringValue(s string) Value {
	return Value{raw: s, quoted: true}
}

// String returns the value as the model sent it, without quotes.
func (v Value) String() string { return v.raw }

// IsString reports whether the model sent a JSON string.
func (v Value) IsString() bool { return v.quoted }

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Value{raw: s, quoted: true}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("parameter value must be a number or a string: %w", err)
	}
	*v = Value{raw: n.String()}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.quoted {
		return json.Marshal(v.raw)
	}
	if v.raw == "" {
		return []byte("null"), nil
	}
	return []byte(v.raw), nil
}

var (
	leadingNumber   = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)
	groupedThousand = regexp.MustCompile(`^[+-]?\d{1,3}(?:,\d{3})+(?:\.\d+)?`)
)

// Float returns the numeric reading of the value. Strings use their leading
// numeric prefix ("45 mg/dL" is 45, "<0.5" and "abc" have none).
func (v Value) Float() (float64, bool) {
	s := strings.TrimSpace(v.raw)
	if s == "" {
		return 0, false
	}
	if m := groupedThousand.FindString(s); m != "" {
		s = strings.ReplaceAll(m, ",", "")
	}
	m := leadingNumber.FindString(s)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
