package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"

	"storyboard/internal/logging"
	"storyboard/internal/types"
)

const (
	PushEventTaskUpdate = "task_update"

	pushReadLimit    = 8 << 20
	pushDialTimeout  = 15 * time.Second
	pushWriteTimeout = 5 * time.Second

	socketIOPath = "/socket.io/"
)

// Engine.IO v4 packet types, and the Socket.IO packet types carried inside
// an Engine.IO message packet.
const (
	engineOpen    = '0'
	engineClose   = '1'
	enginePing    = '2'
	enginePong    = '3'
	engineMessage = '4'

	socketConnect      = '0'
	socketDisconnect   = '1'
	socketEvent        = '2'
	socketConnectError = '4'
)

// PushMessage is the envelope carried on the push channel.
type PushMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func WithPushURL(pushURL string) Option {
	return func(c *Client) {
		c.pushURL = strings.TrimSpace(pushURL)
	}
}

// PushURL is the Socket.IO websocket endpoint; derived from the base URL
// host when not configured.
func (c *Client) PushURL() string {
	if c.pushURL != "" {
		return c.pushURL
	}
	parsed, err := url.Parse(c.baseURL)
	if err != nil {
		return ""
	}
	if parsed.Scheme == "https" {
		parsed.Scheme = "wss"
	} else {
		parsed.Scheme = "ws"
	}
	parsed.Path = socketIOPath
	parsed.RawQuery = ""
	return socketIOURL(parsed.String())
}

// socketIOURL adds the Engine.IO handshake query to a /socket.io/ endpoint.
// Other endpoints are taken as plain websockets and left alone.
func socketIOURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if strings.TrimRight(parsed.Path, "/") != strings.TrimRight(socketIOPath, "/") {
		return raw
	}
	parsed.Path = socketIOPath
	query := parsed.Query()
	if query.Get("EIO") == "" {
		query.Set("EIO", "4")
	}
	if query.Get("transport") == "" {
		query.Set("transport", "websocket")
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// TaskStream opens the push channel and delivers every task_update payload
// as a full snapshot. The channel closes when the connection drops or the
// returned stop func is called. Only the newest undelivered snapshot is
// kept when the reader falls behind.
func (c *Client) TaskStream(ctx context.Context) (<-chan types.Snapshot, func(), error) {
	pushURL := socketIOURL(c.PushURL())
	if pushURL == "" {
		return nil, nil, errors.New("push url is not configured")
	}
	ctx, cancel := context.WithCancel(ctx)

	dialCtx, dialCancel := context.WithTimeout(ctx, pushDialTimeout)
	header := http.Header{}
	header.Set("X-Request-ID", logging.NewRequestID())
	conn, resp, err := websocket.Dial(dialCtx, pushURL, &websocket.DialOptions{
		HTTPClient: c.http,
		HTTPHeader: header,
	})
	dialCancel()
	if err != nil {
		cancel()
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		return nil, nil, fmt.Errorf("dial push channel: %w", err)
	}
	conn.SetReadLimit(pushReadLimit)
	c.logger.Info("push_connected", logging.F("url", pushURL))

	ch := make(chan types.Snapshot, 1)
	go func() {
		defer close(ch)
		defer conn.Close(websocket.StatusNormalClosure, "")

		count := 0
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				if ctx.Err() == nil {
					c.logger.Warn("push_read_failed", logging.Err(err), logging.F("events", count))
				}
				return
			}
			msg, reply, err := decodePushFrame(data)
			if err != nil {
				if errors.Is(err, errPushClosed) {
					c.logger.Info("push_closed_by_server", logging.F("events", count))
					return
				}
				c.logger.Debug("push_message_skipped", logging.Err(err))
				continue
			}
			if reply != "" {
				writeCtx, writeCancel := context.WithTimeout(ctx, pushWriteTimeout)
				err := conn.Write(writeCtx, websocket.MessageText, []byte(reply))
				writeCancel()
				if err != nil {
					if ctx.Err() == nil {
						c.logger.Warn("push_write_failed", logging.Err(err))
					}
					return
				}
				continue
			}
			if msg.Type != PushEventTaskUpdate {
				continue
			}
			var snapshot types.Snapshot
			if err := json.Unmarshal(msg.Payload, &snapshot); err != nil {
				c.logger.Warn("push_payload_invalid", logging.Err(err))
				continue
			}
			if snapshot == nil {
				snapshot = types.Snapshot{}
			}
			count++
			deliverLatest(ch, snapshot)
		}
	}()

	return ch, cancel, nil
}

func deliverLatest(ch chan types.Snapshot, snapshot types.Snapshot) {
	select {
	case ch <- snapshot:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snapshot:
	default:
	}
}

var errPushClosed = errors.New("push channel closed by server")

// decodePushFrame reads one websocket text frame. Engine.IO frames start with
// a packet digit: the open packet is answered with a Socket.IO connect, pings
// with pongs, and "42" event packets carry the ["event", payload] array.
// Frames starting with JSON are plain push messages. reply is the frame to
// send back, if any; a zero msg with no error means nothing to deliver.
func decodePushFrame(data []byte) (msg PushMessage, reply string, err error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return PushMessage{}, "", errors.New("empty push message")
	}
	switch data[0] {
	case '{', '[':
		msg, err = decodePushMessage(data)
		return msg, "", err
	case engineOpen:
		return PushMessage{}, string([]byte{engineMessage, socketConnect}), nil
	case enginePing:
		return PushMessage{}, string(enginePong) + string(data[1:]), nil
	case enginePong:
		return PushMessage{}, "", nil
	case engineClose:
		return PushMessage{}, "", errPushClosed
	case engineMessage:
		return decodeSocketPacket(data[1:])
	default:
		return PushMessage{}, "", fmt.Errorf("unknown engine.io packet %q", data[0])
	}
}

func decodeSocketPacket(data []byte) (PushMessage, string, error) {
	if len(data) == 0 {
		return PushMessage{}, "", errors.New("empty socket.io packet")
	}
	kind, body := data[0], data[1:]
	// Optional namespace ("/ns,") and ack id precede the payload.
	if len(body) > 0 && body[0] == '/' {
		if idx := bytes.IndexByte(body, ','); idx >= 0 {
			body = body[idx+1:]
		} else {
			body = nil
		}
	}
	for len(body) > 0 && body[0] >= '0' && body[0] <= '9' {
		body = body[1:]
	}
	switch kind {
	case socketConnect:
		return PushMessage{}, "", nil
	case socketDisconnect:
		return PushMessage{}, "", errPushClosed
	case socketConnectError:
		return PushMessage{}, "", fmt.Errorf("%w: connect refused: %s", errPushClosed, body)
	case socketEvent:
		msg, err := decodePushMessage(body)
		return msg, "", err
	default:
		return PushMessage{}, "", nil
	}
}

// decodePushMessage accepts the {"type","payload"} envelope and the
// ["event", payload] array.
func decodePushMessage(data []byte) (PushMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return PushMessage{}, errors.New("empty push message")
	}
	if data[0] == '[' {
		var parts []json.RawMessage
		if err := json.Unmarshal(data, &parts); err != nil {
			return PushMessage{}, err
		}
		if len(parts) == 0 {
			return PushMessage{}, errors.New("empty push event")
		}
		var msg PushMessage
		if err := json.Unmarshal(parts[0], &msg.Type); err != nil {
			return PushMessage{}, err
		}
		if len(parts) > 1 {
			msg.Payload = parts[1]
		}
		return msg, nil
	}
	var msg PushMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return PushMessage{}, err
	}
	return msg, nil
}
