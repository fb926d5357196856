// Package codec defines the serialization contract for job transport
// envelopes used by persistent queue drivers. Implementations handle
// encoding/decoding jobs to/from bytes.
package codec

import "github.com/toporia/async/job"

// Codec encodes and decodes jobs for queue transport.
type Codec interface {
	// Encode serializes a job to bytes.
	Encode(j *job.Job) ([]byte, error)

	// Decode deserializes bytes into a job.
	Decode(data []byte) (*job.Job, error)

	// Name returns the codec identifier (e.g., "json", "msgpack").
	Name() string
}

// Codec name constants.
const (
	NameJSON    = "json"
	NameMsgpack = "msgpack"
)

// Get returns a codec by name. Defaults to JSON.
func Get(name string) Codec {
	switch name {
	case NameMsgpack:
		return &Msgpack{}
	case NameJSON, "":
		return &JSON{}
	default:
		return &JSON{}
	}
}
