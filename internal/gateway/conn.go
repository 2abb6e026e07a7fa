package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/gorilla/websocket"
)

// Conn is the subset of *websocket.Conn the engine drives. Tests substitute
// a scripted fake.
type Conn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens a gateway transport.
type Dialer func(ctx context.Context, url string) (Conn, error)

// Dial opens a secure WebSocket connection to the gateway.
func Dial(ctx context.Context, rawURL string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// gatewayURL augments the bootstrap URL with the version and encoding query
// options the gateway handshake requires.
func gatewayURL(base string, version int, encoding string) string {
	u, err := url.Parse(base)
	if err != nil {
		return fmt.Sprintf("%s/?v=%d&encoding=%s", base, version, encoding)
	}
	q := u.Query()
	q.Set("v", strconv.Itoa(version))
	q.Set("encoding", encoding)
	u.RawQuery = q.Encode()
	return u.String()
}

// Close codes after which the gateway will not accept a resume; the session
// must be discarded and the next attempt identifies fresh.
var nonResumableCloseCodes = map[int]bool{
	4004: true, // authentication failed
	4007: true, // invalid sequence on resume
	4009: true, // session timed out
	4010: true, // invalid shard
	4011: true, // sharding required
	4012: true, // invalid gateway version
	4013: true, // invalid intents
	4014: true, // disallowed intents
}

// closeForcesIdentify reports whether a read error carries a close code
// that invalidates the session.
func closeForcesIdentify(err error) bool {
	var ce *websocket.CloseError
	if !errors.As(err, &ce) {
		return false
	}
	return nonResumableCloseCodes[ce.Code]
}
