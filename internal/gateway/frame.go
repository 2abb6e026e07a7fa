// Package gateway implements the Discord gateway connection engine: the
// opcode-level wire codec, the session-resume cache contract, the heartbeat
// scheduler, the connection state machine, and the supervisor that keeps one
// gateway connection alive across reconnects.
package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/zlib"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Opcode tags a gateway frame with its meaning.
type Opcode int

const (
	OpDispatch       Opcode = 0
	OpHeartbeat      Opcode = 1
	OpIdentify       Opcode = 2
	OpResume         Opcode = 6
	OpReconnect      Opcode = 7
	OpInvalidSession Opcode = 9
	OpHello          Opcode = 10
	OpHeartbeatACK   Opcode = 11
)

func (op Opcode) String() string {
	switch op {
	case OpDispatch:
		return "dispatch"
	case OpHeartbeat:
		return "heartbeat"
	case OpIdentify:
		return "identify"
	case OpResume:
		return "resume"
	case OpReconnect:
		return "reconnect"
	case OpInvalidSession:
		return "invalid_session"
	case OpHello:
		return "hello"
	case OpHeartbeatACK:
		return "heartbeat_ack"
	default:
		return fmt.Sprintf("opcode(%d)", int(op))
	}
}

// Dispatch event names the engine acts on itself.
const (
	EventReady   = "READY"
	EventResumed = "RESUMED"
)

// Frame is the envelope for every gateway message. Sequence and Event are
// only populated on Dispatch frames.
type Frame struct {
	Op    Opcode          `json:"op"`
	Data  json.RawMessage `json:"d,omitempty"`
	Seq   *int64          `json:"s,omitempty"`
	Event string          `json:"t,omitempty"`
}

// DecodeFrame parses an inbound WebSocket message into a Frame. Binary
// messages are zlib-compressed and inflated first. A frame that cannot be
// decoded poisons the whole connection (frame boundaries after a parse
// failure cannot be trusted), so decode failures come back tagged as
// protocol violations for the engine to act on.
func DecodeFrame(messageType int, data []byte) (Frame, error) {
	var r io.Reader = bytes.NewReader(data)

	if messageType == websocket.BinaryMessage {
		z, err := zlib.NewReader(r)
		if err != nil {
			return Frame{}, NewFailure(KindProtocol, fmt.Errorf("inflating frame: %w", err))
		}
		defer z.Close()
		r = z
	}

	var f Frame
	if err := codec.NewDecoder(r).Decode(&f); err != nil {
		return Frame{}, NewFailure(KindProtocol, fmt.Errorf("decoding frame: %w", err))
	}
	return f, nil
}

// helloPayload carries the server-dictated heartbeat interval.
type helloPayload struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"` // milliseconds
}

// readyPayload is the subset of the READY dispatch the engine cares about.
type readyPayload struct {
	SessionID        string `json:"session_id"`
	ResumeGatewayURL string `json:"resume_gateway_url"`
}

// identifyProperties describe the connecting client in the Identify command.
type identifyProperties struct {
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Device  string `json:"device"`
}

type identifyData struct {
	Token      string             `json:"token"`
	Properties identifyProperties `json:"properties"`
	Intents    int                `json:"intents,omitempty"`
}

type resumeData struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Seq       int64  `json:"seq"`
}

type command struct {
	Op   Opcode `json:"op"`
	Data any    `json:"d"`
}

// EncodeIdentify builds an Identify command. It carries credentials and
// declared intents but never a session reference.
func EncodeIdentify(token string, intents int) ([]byte, error) {
	return codec.Marshal(command{
		Op: OpIdentify,
		Data: identifyData{
			Token: token,
			Properties: identifyProperties{
				OS:      "linux",
				Browser: "ohno",
				Device:  "ohno",
			},
			Intents: intents,
		},
	})
}

// EncodeResume builds a Resume command from a resumable Session. Attempting
// to encode a resume without a usable session is a logic error upstream and
// fails instead of corrupting the wire.
func EncodeResume(token string, s Session) ([]byte, error) {
	if !s.CanResume() {
		return nil, fmt.Errorf("encoding resume: session is not resumable")
	}
	return codec.Marshal(command{
		Op: OpResume,
		Data: resumeData{
			Token:     token,
			SessionID: s.ID,
			Seq:       *s.LastSeq,
		},
	})
}

// EncodeHeartbeat builds a Heartbeat command carrying the last seen event
// sequence, or null if none has been observed yet.
func EncodeHeartbeat(s Session) ([]byte, error) {
	var seq any
	if s.LastSeq != nil {
		seq = *s.LastSeq
	}
	return codec.Marshal(command{Op: OpHeartbeat, Data: seq})
}

// decodeHello extracts the heartbeat interval from a Hello frame.
func decodeHello(f Frame) (int64, error) {
	var p helloPayload
	if err := codec.Unmarshal(f.Data, &p); err != nil {
		return 0, NewFailure(KindProtocol, fmt.Errorf("decoding hello: %w", err))
	}
	if p.HeartbeatInterval <= 0 {
		return 0, NewFailure(KindProtocol, fmt.Errorf("hello carried no heartbeat interval"))
	}
	return p.HeartbeatInterval, nil
}

// decodeReady extracts the session identity from a READY dispatch.
func decodeReady(f Frame) (readyPayload, error) {
	var p readyPayload
	if err := codec.Unmarshal(f.Data, &p); err != nil {
		return readyPayload{}, NewFailure(KindProtocol, fmt.Errorf("decoding ready: %w", err))
	}
	if p.SessionID == "" {
		return readyPayload{}, NewFailure(KindProtocol, fmt.Errorf("ready carried no session id"))
	}
	return p, nil
}

// decodeInvalidSession reports whether the server considers the session
// resumable. A malformed flag is treated as not resumable.
func decodeInvalidSession(f Frame) bool {
	var resumable bool
	if err := codec.Unmarshal(f.Data, &resumable); err != nil {
		return false
	}
	return resumable
}
