package params

import (
	"strconv"
	"strings"
	"time"
)

// DefaultPollInterval matches the peer service wait used at startup.
const DefaultPollInterval = 500 * time.Millisecond

// DefaultAttemptTimeout matches the HTTP source client timeout.
const DefaultAttemptTimeout = 5 * time.Second

// Kind is the expected type of a fetched parameter.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindInt
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return "string"
	}
}

// Value is a fetched parameter. The zero Value is the default for its kind.
type Value struct {
	raw     string
	present bool
	kind    Kind
}

func NewValue(raw string, kind Kind) Value {
	return Value{raw: raw, present: true, kind: kind}
}

// Present reports whether the peer returned a value rather than a default.
func (v Value) Present() bool { return v.present }

func (v Value) Kind() Kind { return v.kind }

func (v Value) String() string { return v.raw }

func (v Value) Bool() bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v.raw))
	if err != nil {
		return false
	}
	return b
}

func (v Value) Int() int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(v.raw), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func (v Value) Float() float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v.raw), 64)
	if err != nil {
		return 0
	}
	return f
}
