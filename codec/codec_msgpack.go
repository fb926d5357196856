package codec

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/toporia/async/job"
)

// Msgpack encodes/decodes job envelopes as MessagePack.
type Msgpack struct{}

func (c *Msgpack) Encode(j *job.Job) ([]byte, error) {
	return msgpack.Marshal(toEnvelope(j))
}

func (c *Msgpack) Decode(data []byte) (*job.Job, error) {
	var e envelope
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return fromEnvelope(&e)
}

func (c *Msgpack) Name() string { return NameMsgpack }
