package amqpbridge

import (
	"encoding/json"
	"time"

	"gastos/internal/docstore"
)

// Envelope is the wire form of one broadcast document snapshot. Origin
// identifies the publishing client so peers can skip their own messages.
type Envelope struct {
	Origin    string            `json:"origin"`
	Path      string            `json:"path"`
	Exists    bool              `json:"exists"`
	Doc       docstore.Document `json:"doc,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

func (s *Store) newEnvelope(path string, exists bool, doc docstore.Document) *Envelope {
	return &Envelope{
		Origin:    s.clientID,
		Path:      path,
		Exists:    exists,
		Doc:       doc,
		Timestamp: time.Now(),
	}
}

func (e *Envelope) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func EnvelopeFromJSON(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return &env, nil
}
