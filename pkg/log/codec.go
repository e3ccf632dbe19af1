package log

import (
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Traces are a plain concatenation of CBOR maps, one per Event. Timestamps
// are RFC 3339 strings so nanoseconds survive and a trace stays readable in
// generic CBOR tools.
var (
	traceEnc cbor.EncMode
	traceDec cbor.DecMode
)

func init() {
	var err error
	traceEnc, err = cbor.EncOptions{
		Sort: cbor.SortCoreDeterministic,
		Time: cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic("log: trace encoder: " + err.Error())
	}

	// A repeated key means the record was not written by FileLogger.
	traceDec, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic("log: trace decoder: " + err.Error())
	}
}

// EncodeEvent returns the trace record for event.
func EncodeEvent(event Event) ([]byte, error) {
	return traceEnc.Marshal(event)
}

// DecodeEvent parses a single trace record.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := traceDec.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}

func newTraceEncoder(w io.Writer) *cbor.Encoder { return traceEnc.NewEncoder(w) }

func newTraceDecoder(r io.Reader) *cbor.Decoder { return traceDec.NewDecoder(r) }
