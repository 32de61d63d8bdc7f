package socketio

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Engine.IO v4 packet types, the first byte of every websocket frame.
const (
	engineOpen    = '0'
	engineClose   = '1'
	enginePing    = '2'
	enginePong    = '3'
	engineMessage = '4'
	engineNoop    = '6'
)

// Socket.IO v5 packet types, the byte after an Engine.IO message marker.
const (
	packetConnect      = '0'
	packetDisconnect   = '1'
	packetEvent        = '2'
	packetAck          = '3'
	packetConnectError = '4'
)

// Event is a decoded EVENT packet.
type Event struct {
	Namespace string
	Name      string
	// Args holds the raw JSON of every argument after the name.
	Args []json.RawMessage
}

// Payload returns the first argument, or nil when the event had none.
func (e Event) Payload() json.RawMessage {
	if len(e.Args) == 0 {
		return nil
	}
	return e.Args[0]
}

type openPacket struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"`
	PingTimeout  int    `json:"pingTimeout"`
	MaxPayload   int    `json:"maxPayload"`
}

type connectError struct {
	Message string `json:"message"`
}

// ErrMalformed wraps decode failures of a single packet. The connection
// remains usable after a malformed event.
var ErrMalformed = errors.New("socketio: malformed packet")

// splitPacket strips the namespace and ack id that may precede the JSON body
// of a Socket.IO packet: [/ns,][id]<json>.
func splitPacket(body string) (namespace, data string) {
	namespace = "/"
	if strings.HasPrefix(body, "/") {
		ns, rest, found := strings.Cut(body, ",")
		if !found {
			return ns, ""
		}
		namespace, body = ns, rest
	}
	i := 0
	for i < len(body) && body[i] >= '0' && body[i] <= '9' {
		i++
	}
	return namespace, body[i:]
}

// parseEvent decodes the body of an EVENT packet, i.e. everything after "42".
func parseEvent(body string) (Event, error) {
	ns, data := splitPacket(body)

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(raw) == 0 {
		return Event{}, fmt.Errorf("%w: empty event array", ErrMalformed)
	}

	var name string
	if err := json.Unmarshal(raw[0], &name); err != nil {
		return Event{}, fmt.Errorf("%w: event name is not a string", ErrMalformed)
	}
	return Event{Namespace: ns, Name: name, Args: raw[1:]}, nil
}

// encodeEvent builds the frame for emitting name with args on the default
// namespace.
func encodeEvent(name string, args ...any) ([]byte, error) {
	arr := make([]any, 0, len(args)+1)
	arr = append(arr, name)
	arr = append(arr, args...)

	body, err := json.Marshal(arr)
	if err != nil {
		return nil, err
	}
	return append([]byte{engineMessage, packetEvent}, body...), nil
}
