// Package protocol defines the message a remote executor receives.
//
// The wire form is fixed:
//
//	{"operationKind":"harvest","targetId":"n00dles","fireDelay":1250.5}
//
// fireDelay is expressed in milliseconds. Executors wait that long, perform
// the operation once against the target, and exit; nothing is sent back.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/familiar/internal/model"
)

var (
	// ErrUnknownOperation is returned when a message names an operation kind
	// outside harvest, replenish and suppress.
	ErrUnknownOperation = errors.New("unknown operation kind")
	// ErrInvalidMessage is returned for structurally valid JSON that does not
	// describe a runnable request.
	ErrInvalidMessage = errors.New("invalid message")
)

// Message instructs one executor.
type Message struct {
	OperationKind model.OperationKind
	TargetID      string
	FireDelay     time.Duration
}

type wireMessage struct {
	OperationKind model.OperationKind `json:"operationKind"`
	TargetID      string              `json:"targetId"`
	FireDelay     float64             `json:"fireDelay"`
}

// MarshalJSON implements json.Marshaler.
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireMessage{
		OperationKind: m.OperationKind,
		TargetID:      m.TargetID,
		FireDelay:     float64(m.FireDelay) / float64(time.Millisecond),
	})
}

// UnmarshalJSON implements json.Unmarshaler and validates the decoded message.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	decoded := Message{
		OperationKind: w.OperationKind,
		TargetID:      w.TargetID,
		FireDelay:     time.Duration(w.FireDelay * float64(time.Millisecond)),
	}
	if err := decoded.Validate(); err != nil {
		return err
	}
	*m = decoded
	return nil
}

// Validate checks that m can be executed.
func (m Message) Validate() error {
	if !m.OperationKind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownOperation, m.OperationKind)
	}
	if m.TargetID == "" {
		return fmt.Errorf("%w: empty target id", ErrInvalidMessage)
	}
	if m.FireDelay < 0 {
		return fmt.Errorf("%w: negative fire delay %s", ErrInvalidMessage, m.FireDelay)
	}
	return nil
}

// Request places a Message on a host. Units is the size of the executor the
// host should start, so one request consumes exactly one capacity allocation.
type Request struct {
	Host    string  `json:"host"`
	Units   int     `json:"units"`
	Message Message `json:"message"`
}

func (r Request) String() string {
	return fmt.Sprintf("%s x%d on %s -> %s after %s", r.Message.OperationKind, r.Units, r.Host, r.Message.TargetID, r.Message.FireDelay)
}
