package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMalformed = errors.New("malformed message")

// Message is any value that can be framed on the wire.
type Message interface {
	MessageType() string
}

type header struct {
	Type string `json:"type"`
}

// Encode frames m as a flat JSON object with its type in the "type" field.
func Encode(m Message) ([]byte, error) {
	t := m.MessageType()
	if t == "" {
		return nil, fmt.Errorf("encode: empty message type")
	}
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", t, err)
	}
	var buf bytes.Buffer
	buf.Grow(len(body) + len(t) + 12)
	buf.WriteString(`{"type":`)
	tb, _ := json.Marshal(t)
	buf.Write(tb)
	if len(body) > 2 {
		buf.WriteByte(',')
		buf.Write(body[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

// MustEncode is Encode for messages that cannot fail to marshal.
func MustEncode(m Message) []byte {
	b, err := Encode(m)
	if err != nil {
		panic(err)
	}
	return b
}

// DecodeType returns the type of a framed message.
func DecodeType(b []byte) (string, error) {
	if len(b) == 0 {
		return "", fmt.Errorf("%w: empty frame", ErrMalformed)
	}
	var h header
	if err := json.Unmarshal(b, &h); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if h.Type == "" {
		return "", fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return h.Type, nil
}

// Decode unmarshals the body of a framed message into T.
func Decode[T any](b []byte) (T, error) {
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return out, nil
}
