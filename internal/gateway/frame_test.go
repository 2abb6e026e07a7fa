package gateway

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrame_Dispatch(t *testing.T) {
	raw := `{"op":0,"t":"MESSAGE_CREATE","s":42,"d":{"content":"hi"}}`

	f, err := DecodeFrame(websocket.TextMessage, []byte(raw))
	require.NoError(t, err)

	assert.Equal(t, OpDispatch, f.Op)
	assert.Equal(t, "MESSAGE_CREATE", f.Event)
	require.NotNil(t, f.Seq)
	assert.Equal(t, int64(42), *f.Seq)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(f.Data, &payload))
	assert.Equal(t, "hi", payload["content"])
}

func TestDecodeFrame_AbsentSequence(t *testing.T) {
	f, err := DecodeFrame(websocket.TextMessage, []byte(`{"op":11}`))
	require.NoError(t, err)
	assert.Equal(t, OpHeartbeatACK, f.Op)
	assert.Nil(t, f.Seq)
	assert.Empty(t, f.Event)
}

func TestDecodeFrame_ZlibCompressed(t *testing.T) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write([]byte(`{"op":10,"d":{"heartbeat_interval":41250}}`))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	f, err := DecodeFrame(websocket.BinaryMessage, buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, OpHello, f.Op)

	interval, err := decodeHello(f)
	require.NoError(t, err)
	assert.Equal(t, int64(41250), interval)
}

func TestDecodeFrame_MalformedIsProtocolViolation(t *testing.T) {
	_, err := DecodeFrame(websocket.TextMessage, []byte(`{"op":`))
	require.Error(t, err)

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindProtocol, kind)
}

func TestDecodeFrame_CorruptZlib(t *testing.T) {
	_, err := DecodeFrame(websocket.BinaryMessage, []byte("not zlib at all"))
	require.Error(t, err)

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindProtocol, kind)
}

func TestEncodeIdentify(t *testing.T) {
	payload, err := EncodeIdentify("tok", 513)
	require.NoError(t, err)

	var decoded struct {
		Op int `json:"op"`
		D  struct {
			Token      string `json:"token"`
			Intents    int    `json:"intents"`
			Properties struct {
				OS string `json:"os"`
			} `json:"properties"`
		} `json:"d"`
	}
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, int(OpIdentify), decoded.Op)
	assert.Equal(t, "tok", decoded.D.Token)
	assert.Equal(t, 513, decoded.D.Intents)
	assert.NotEmpty(t, decoded.D.Properties.OS)
	// Identify never references a session.
	assert.NotContains(t, string(payload), "session_id")
}

func TestEncodeResume(t *testing.T) {
	seq := int64(7)
	payload, err := EncodeResume("tok", Session{ID: "abc", LastSeq: &seq})
	require.NoError(t, err)

	var decoded struct {
		Op int `json:"op"`
		D  struct {
			Token     string `json:"token"`
			SessionID string `json:"session_id"`
			Seq       int64  `json:"seq"`
		} `json:"d"`
	}
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, int(OpResume), decoded.Op)
	assert.Equal(t, "abc", decoded.D.SessionID)
	assert.Equal(t, int64(7), decoded.D.Seq)
}

func TestEncodeResume_FailsWithoutSession(t *testing.T) {
	_, err := EncodeResume("tok", Session{})
	assert.Error(t, err)

	_, err = EncodeResume("tok", Session{ID: "abc"})
	assert.Error(t, err)

	seq := int64(1)
	_, err = EncodeResume("tok", Session{LastSeq: &seq})
	assert.Error(t, err)
}

func TestEncodeHeartbeat(t *testing.T) {
	seq := int64(12)
	payload, err := EncodeHeartbeat(Session{ID: "abc", LastSeq: &seq})
	require.NoError(t, err)
	assert.JSONEq(t, `{"op":1,"d":12}`, string(payload))
}

func TestEncodeHeartbeat_NullBeforeFirstDispatch(t *testing.T) {
	payload, err := EncodeHeartbeat(Session{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"op":1,"d":null}`, string(payload))
}

func TestDecodeHello_MissingInterval(t *testing.T) {
	f, err := DecodeFrame(websocket.TextMessage, []byte(`{"op":10,"d":{}}`))
	require.NoError(t, err)

	_, err = decodeHello(f)
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindProtocol, kind)
}

func TestDecodeReady(t *testing.T) {
	f, err := DecodeFrame(websocket.TextMessage,
		[]byte(`{"op":0,"t":"READY","d":{"session_id":"abc","resume_gateway_url":"wss://resume.example"}}`))
	require.NoError(t, err)

	p, err := decodeReady(f)
	require.NoError(t, err)
	assert.Equal(t, "abc", p.SessionID)
	assert.Equal(t, "wss://resume.example", p.ResumeGatewayURL)
}

func TestDecodeInvalidSession(t *testing.T) {
	f, _ := DecodeFrame(websocket.TextMessage, []byte(`{"op":9,"d":true}`))
	assert.True(t, decodeInvalidSession(f))

	f, _ = DecodeFrame(websocket.TextMessage, []byte(`{"op":9,"d":false}`))
	assert.False(t, decodeInvalidSession(f))

	// A malformed flag is treated as not resumable.
	f, _ = DecodeFrame(websocket.TextMessage, []byte(`{"op":9}`))
	assert.False(t, decodeInvalidSession(f))
}

func TestOpcodeString(t *testing.T) {
	assert.Equal(t, "hello", OpHello.String())
	assert.Equal(t, "dispatch", OpDispatch.String())
	assert.Equal(t, "opcode(99)", Opcode(99).String())
}
