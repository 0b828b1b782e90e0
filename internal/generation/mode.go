package generation

import (
	"fmt"
	"strconv"
)

const questionsPerOutcome = 3

// QuantityMode decides how many questions to request. The zero value means no
// mode has been chosen.
type QuantityMode struct {
	fixed      int
	perOutcome int
}

var (
	Fixed5      = QuantityMode{fixed: 5}
	Fixed10     = QuantityMode{fixed: 10}
	Fixed12     = QuantityMode{fixed: 12}
	PerOutcome3 = QuantityMode{perOutcome: questionsPerOutcome}
)

// Modes lists the selectable modes in display order.
var Modes = []QuantityMode{Fixed5, Fixed10, Fixed12, PerOutcome3}

// ParseQuantityMode maps the compose form values "5", "10", "12" and "elo".
func ParseQuantityMode(s string) (QuantityMode, error) {
	for _, m := range Modes {
		if m.String() == s {
			return m, nil
		}
	}
	return QuantityMode{}, fmt.Errorf("unknown question quantity %q", s)
}

// IsSet reports whether a mode was chosen.
func (m QuantityMode) IsSet() bool {
	return m.fixed > 0 || m.perOutcome > 0
}

// QuestionCount returns the number of questions this mode asks for when k
// outcomes are selected.
func (m QuantityMode) QuestionCount(k int) int {
	if m.fixed > 0 {
		return m.fixed
	}
	return m.perOutcome * k
}

func (m QuantityMode) String() string {
	switch {
	case m.fixed > 0:
		return strconv.Itoa(m.fixed)
	case m.perOutcome > 0:
		return "elo"
	default:
		return ""
	}
}

// Label is the human-readable form shown next to the choice.
func (m QuantityMode) Label() string {
	switch {
	case m.fixed > 0:
		return fmt.Sprintf("%d questions", m.fixed)
	case m.perOutcome > 0:
		return fmt.Sprintf("%d per learning outcome", m.perOutcome)
	default:
		return ""
	}
}

// MarshalText encodes the mode as its form value.
func (m QuantityMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes a form value; an empty value leaves the mode unset.
func (m *QuantityMode) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*m = QuantityMode{}
		return nil
	}
	parsed, err := ParseQuantityMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
