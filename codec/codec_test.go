package codec_test

import (
	"testing"
	"time"

	"github.com/toporia/async/codec"
	"github.com/toporia/async/id"
	"github.com/toporia/async/job"
)

func sampleJob() *job.Job {
	j := job.New("send-email", []byte(`{"to":"alice@example.com"}`),
		job.WithQueue("mail"),
		job.WithMaxAttempts(5),
		job.WithTimeout(time.Minute),
	)
	j.Attempts = 2
	j.State = job.StateRetrying
	j.LastError = "smtp down"
	j.BatchID = id.NewBatchID()
	return j
}

func TestCodecs_RoundTrip(t *testing.T) {
	for _, c := range []codec.Codec{&codec.JSON{}, &codec.Msgpack{}} {
		t.Run(c.Name(), func(t *testing.T) {
			original := sampleJob()

			data, err := c.Encode(original)
			if err != nil {
				t.Fatalf("Encode error: %v", err)
			}

			decoded, err := c.Decode(data)
			if err != nil {
				t.Fatalf("Decode error: %v", err)
			}

			if decoded.ID.String() != original.ID.String() {
				t.Errorf("ID = %q, want %q", decoded.ID.String(), original.ID.String())
			}
			if decoded.Name != original.Name {
				t.Errorf("Name = %q, want %q", decoded.Name, original.Name)
			}
			if decoded.Queue != original.Queue {
				t.Errorf("Queue = %q, want %q", decoded.Queue, original.Queue)
			}
			if decoded.State != job.StateRetrying {
				t.Errorf("State = %q, want %q", decoded.State, job.StateRetrying)
			}
			if decoded.Attempts != 2 {
				t.Errorf("Attempts = %d, want 2", decoded.Attempts)
			}
			if decoded.BatchID.String() != original.BatchID.String() {
				t.Errorf("BatchID = %q, want %q", decoded.BatchID.String(), original.BatchID.String())
			}
			if decoded.Timeout != time.Minute {
				t.Errorf("Timeout = %v, want 1m", decoded.Timeout)
			}
			if string(decoded.Payload) != string(original.Payload) {
				t.Errorf("Payload = %s, want %s", decoded.Payload, original.Payload)
			}
		})
	}
}

func TestCodecs_DecodeRejectsGarbage(t *testing.T) {
	for _, c := range []codec.Codec{&codec.JSON{}, &codec.Msgpack{}} {
		if _, err := c.Decode([]byte("not an envelope")); err == nil {
			t.Errorf("%s: expected decode error for garbage input", c.Name())
		}
	}
}

func TestGet(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"json", codec.NameJSON},
		{"msgpack", codec.NameMsgpack},
		{"", codec.NameJSON},
		{"protobuf", codec.NameJSON}, // unknown falls back to JSON
	}
	for _, tt := range tests {
		if got := codec.Get(tt.name).Name(); got != tt.want {
			t.Errorf("Get(%q).Name() = %q, want %q", tt.name, got, tt.want)
		}
	}
}
