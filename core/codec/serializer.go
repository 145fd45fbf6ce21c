// Package codec implements the Serializer and Compression Provider external
// interfaces, plus a MessageVersion converter registry. Grounded on
// krew-solutions-ascetic-ddd-go's delegate-chain Codec (JsonbCodec as the
// terminal codec, ZlibCompressor as a wrapping delegate) — restructured here
// into two independent stages, since the specification treats compression
// as a separate provider rather than another link in the same chain.
package codec

import (
	"encoding/json"

	"github.com/relaykit/messaging/core/message"
)

// Serializer converts a Message to and from bytes. JSONSerializer is the
// terminal, reference implementation; a durable transport wraps it with its
// own envelope framing as needed.
type Serializer interface {
	Serialize(msg message.Message) ([]byte, error)
	Deserialize(data []byte) (message.Message, error)
}

// JSONSerializer is a Serializer grounded on JsonbCodec's plain
// encoding/json delegate.
type JSONSerializer struct{}

func (JSONSerializer) Serialize(msg message.Message) ([]byte, error) {
	return json.Marshal(msg)
}

func (JSONSerializer) Deserialize(data []byte) (message.Message, error) {
	var msg message.Message
	err := json.Unmarshal(data, &msg)
	return msg, err
}
