package codec

import (
	"encoding/json"

	"github.com/toporia/async/job"
)

// JSON encodes/decodes job envelopes as JSON.
type JSON struct{}

func (c *JSON) Encode(j *job.Job) ([]byte, error) {
	return json.Marshal(toEnvelope(j))
}

func (c *JSON) Decode(data []byte) (*job.Job, error) {
	var e envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return fromEnvelope(&e)
}

func (c *JSON) Name() string { return NameJSON }
