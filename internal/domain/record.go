package domain

import "encoding/json"

const (
	FieldType      = "type"
	FieldTimestamp = "timestamp"
	FieldUserID    = "userId"
)

// ParsedRecord maps lower-cased command keys to their raw string values.
type ParsedRecord map[string]string

// EnrichedRecord is a ParsedRecord plus server-assigned metadata. It is the
// JSON body sent to the forwarding endpoint.
type EnrichedRecord struct {
	Fields    ParsedRecord
	Timestamp string
	UserID    string
}

// MarshalJSON flattens the record so parsed fields and metadata share one
// object. Metadata wins over parsed keys of the same name.
func (r EnrichedRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]string, len(r.Fields)+2)
	for k, v := range r.Fields {
		out[k] = v
	}
	out[FieldTimestamp] = r.Timestamp
	out[FieldUserID] = r.UserID
	return json.Marshal(out)
}

// ForwardStatus classifies the forwarding endpoint's answer.
type ForwardStatus int

const (
	ForwardTransportFailure ForwardStatus = iota
	ForwardAccepted
	ForwardRejected
)

func (s ForwardStatus) String() string {
	switch s {
	case ForwardAccepted:
		return "accepted"
	case ForwardRejected:
		return "rejected"
	default:
		return "transport_failure"
	}
}

// ForwardResult is produced once per forwarded record.
type ForwardResult struct {
	Status  ForwardStatus
	Message string
}
