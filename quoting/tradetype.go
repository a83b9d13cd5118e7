package quoting

import "fmt"

// TradeType selects which side of the pair carries the user-specified amount.
type TradeType int

const (
	// ExactInput means the input amount is fixed and the output is quoted.
	ExactInput TradeType = iota
	// ExactOutput means the output amount is fixed and the input is quoted.
	ExactOutput
)

func (t TradeType) String() string {
	switch t {
	case ExactInput:
		return "exact_input"
	case ExactOutput:
		return "exact_output"
	default:
		return fmt.Sprintf("trade_type(%d)", int(t))
	}
}

// ParseTradeType parses the wire representation used by the API and config.
func ParseTradeType(s string) (TradeType, error) {
	switch s {
	case "exact_input", "exactIn":
		return ExactInput, nil
	case "exact_output", "exactOut":
		return ExactOutput, nil
	default:
		return 0, fmt.Errorf("unknown trade type %q", s)
	}
}
