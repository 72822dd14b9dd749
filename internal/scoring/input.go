package scoring

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// Input is the raw answer document of one test application. Paths use gjson
// syntax ("sustained.correct").
type Input struct {
	raw []byte
}

// ParseInput accepts any JSON object; empty input is treated as {}.
func ParseInput(raw []byte) (Input, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return Input{raw: []byte("{}")}, nil
	}
	if !gjson.ValidBytes(raw) {
		return Input{}, errors.New("raw input is not valid JSON")
	}
	if !gjson.ParseBytes(raw).IsObject() {
		return Input{}, errors.New("raw input must be a JSON object")
	}
	return Input{raw: raw}, nil
}

// MustInput is ParseInput for literals in tests and tooling.
func MustInput(raw string) Input {
	in, err := ParseInput([]byte(raw))
	if err != nil {
		panic(err)
	}
	return in
}

// Bytes returns the document as received.
func (in Input) Bytes() []byte {
	if in.raw == nil {
		return []byte("{}")
	}
	return in.raw
}

func (in Input) MarshalJSON() ([]byte, error) { return in.Bytes(), nil }

// Number reads path as a number. Numeric strings are parsed; anything else
// yields 0.
func (in Input) Number(path string) float64 {
	res := gjson.GetBytes(in.raw, path)
	switch res.Type {
	case gjson.Number:
		return res.Num
	case gjson.String:
		v, err := strconv.ParseFloat(strings.TrimSpace(res.Str), 64)
		if err != nil {
			return 0
		}
		return v
	}
	return 0
}

// Count reads path as a non-negative integer answer count.
func (in Input) Count(path string) int {
	v := int(in.Number(path))
	if v < 0 {
		return 0
	}
	return v
}

func (in Input) String(path string) string {
	return strings.TrimSpace(gjson.GetBytes(in.raw, path).String())
}

// With returns a copy of in with key set to value when key is absent.
func (in Input) With(key, value string) Input {
	if value == "" || gjson.GetBytes(in.Bytes(), key).Exists() {
		return in
	}
	doc := gjson.ParseBytes(in.Bytes()).Value()
	m, ok := doc.(map[string]interface{})
	if !ok {
		return in
	}
	m[key] = value
	out, err := json.Marshal(m)
	if err != nil {
		return in
	}
	return Input{raw: out}
}
