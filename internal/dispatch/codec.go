// Package dispatch defines the wire format of the message carrying a
// task from the submission service to a worker.
package dispatch

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// ContentType is the MIME type used for queue publishes.
const ContentType = "application/msgpack"

// ArtifactKey returns the result store object name for a task. The
// key is derived from the task id alone so readers and writers agree
// without coordination.
func ArtifactKey(taskID string) string {
	return taskID + ".txt"
}

// ErrInvalidMessage is returned when a decoded message fails schema
// validation. Such messages are poison input and must not be requeued.
var ErrInvalidMessage = errors.New("invalid dispatch message")

// Message is the queue payload for one task. Field values pass through
// the queue unchanged from the submitted request.
type Message struct {
	TaskID    string `msgpack:"task_id"`
	City      string `msgpack:"city"`
	StartDate string `msgpack:"start_date"`
	EndDate   string `msgpack:"end_date"`
}

// Encode serializes the message as MessagePack.
func Encode(m *Message) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return msgpack.Marshal(m)
}

// Decode deserializes and validates a MessagePack message body.
func Decode(data []byte) (*Message, error) {
	var m Message
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that all required fields are present.
func (m *Message) Validate() error {
	if m.TaskID == "" {
		return fmt.Errorf("%w: missing task_id", ErrInvalidMessage)
	}
	if m.City == "" {
		return fmt.Errorf("%w: missing city", ErrInvalidMessage)
	}
	if m.StartDate == "" || m.EndDate == "" {
		return fmt.Errorf("%w: missing date range", ErrInvalidMessage)
	}
	return nil
}
