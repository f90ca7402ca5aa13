package manager

import (
	"encoding/json"
)

// Implementation selects a backend strategy for a resource.
type Implementation string

const (
	// ImplementationCLI drives the resource through its external command-line
	// tools, one process invocation per operation. Always constructible.
	ImplementationCLI Implementation = "cli"

	// ImplementationLibrary uses the resource's native client library. Only
	// available when the corresponding driver is compiled in.
	ImplementationLibrary Implementation = "library"
)

// ResultRow is one row of a query result: an ordered mapping from column name
// to value. Values are dynamically typed (string, int64, float64, or nil);
// column order follows the backend's emission order.
type ResultRow struct {
	Columns []string
	Values  map[string]interface{}
}

// NewResultRow builds a row from parallel column and value slices. Extra
// values beyond the column list are dropped; missing values are nil.
func NewResultRow(columns []string, values []interface{}) ResultRow {
	row := ResultRow{
		Columns: append([]string(nil), columns...),
		Values:  make(map[string]interface{}, len(columns)),
	}
	for i, col := range columns {
		if i < len(values) {
			row.Values[col] = values[i]
		} else {
			row.Values[col] = nil
		}
	}
	return row
}

// Get returns the value for a column and whether the column exists in the row.
func (r ResultRow) Get(column string) (interface{}, bool) {
	v, ok := r.Values[column]
	return v, ok
}

// IsEmpty reports whether the row carries no columns.
func (r ResultRow) IsEmpty() bool {
	return len(r.Columns) == 0
}

// MessageProperties carries the message metadata both backends understand.
// The native backend maps these one-to-one onto message-descriptor fields;
// the command-line backend synthesizes them on receive and ignores most of
// them on put.
type MessageProperties struct {
	MessageID           string
	CorrelationID       string
	ReplyToQueue        string
	ReplyToQueueManager string
	Format              string
	MessageType         int32
	Priority            int32
	Persistence         int32
	Expiry              int32
	PutDate             string
	PutTime             string
}

// MessageEnvelope is a received message: the decoded payload, its properties,
// and the untouched wire bytes. Envelopes are constructed fresh on every
// receive or browse and never mutated afterwards; callers that want to
// re-queue one must issue a new put with the same data and properties.
type MessageEnvelope struct {
	// Data is the JSON-decoded payload when RawBytes parses as a JSON object
	// or array, otherwise the payload as a string.
	Data interface{}

	// Properties is the message metadata as reported by the backend.
	Properties MessageProperties

	// RawBytes is the payload exactly as it came off the wire.
	RawBytes []byte
}

// NewMessageEnvelope decodes raw payload bytes into an envelope.
func NewMessageEnvelope(raw []byte, props MessageProperties) *MessageEnvelope {
	return &MessageEnvelope{
		Data:       decodePayload(raw),
		Properties: props,
		RawBytes:   raw,
	}
}

func decodePayload(raw []byte) interface{} {
	trimmed := string(raw)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		var decoded interface{}
		if err := json.Unmarshal(raw, &decoded); err == nil {
			return decoded
		}
	}
	return string(raw)
}

// EncodePayload serializes an outgoing payload the way both backends transmit
// it: maps, slices, and structs are JSON-encoded, strings are UTF-8 bytes,
// and []byte passes through untouched.
func EncodePayload(payload interface{}) ([]byte, error) {
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case []byte:
		return p, nil
	case string:
		return []byte(p), nil
	default:
		return json.Marshal(p)
	}
}
