package backend

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// FlexString accepts either a JSON string or number. The backend is not
// consistent about how it serializes identifiers.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

// FlexFloat accepts a JSON number or a numeric string. Blank strings decode as
// zero; strings that are not numbers decode as NaN so one bad row does not
// fail the whole listing.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	var s FlexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		*f = FlexFloat(math.NaN())
		return nil
	}
	*f = FlexFloat(v)
	return nil
}

// Valid reports whether the value decoded to a number.
func (f FlexFloat) Valid() bool { return !math.IsNaN(float64(f)) }

// FlexInt accepts a JSON number or a numeric string. Fractions are truncated
// and anything that is not a number decodes as zero.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	var v FlexFloat
	if err := v.UnmarshalJSON(data); err != nil {
		return err
	}
	if !v.Valid() || math.IsInf(float64(v), 0) {
		*f = 0
		return nil
	}
	*f = FlexInt(int(v))
	return nil
}
