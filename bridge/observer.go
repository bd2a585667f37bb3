package bridge

import "time"

// Outcome classifies a finished bridge call.
type Outcome uint8

const (
	OutcomeOK Outcome = iota
	OutcomeNullInput
	OutcomeHostError
	OutcomeDecodeError
	OutcomeEncodeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNullInput:
		return "null_input"
	case OutcomeHostError:
		return "host_error"
	case OutcomeDecodeError:
		return "decode_error"
	case OutcomeEncodeError:
		return "encode_error"
	default:
		return "unknown"
	}
}

// Observer is notified once per bridge call. Implementations must be safe
// for concurrent use.
type Observer interface {
	ObserveCall(outcome Outcome, inputBytes int, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveCall(Outcome, int, time.Duration) {}
