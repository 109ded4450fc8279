package mqttsession

import (
	"crypto/tls"
	"net"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// wsConn adapts a *websocket.Conn to net.Conn so paho.mqtt.golang can treat
// a WebSocket transport exactly like a raw TCP one: MQTT frames are written
// and read as binary WebSocket messages, buffering partial reads across
// message boundaries.
type wsConn struct {
	*websocket.Conn
	readBuf []byte
}

func (c *wsConn) Read(b []byte) (int, error) {
	for len(c.readBuf) == 0 {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			return 0, err
		}
		c.readBuf = data
	}
	n := copy(b, c.readBuf)
	c.readBuf = c.readBuf[n:]
	return n, nil
}

func (c *wsConn) Write(b []byte) (int, error) {
	if err := c.Conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (c *wsConn) SetDeadline(t time.Time) error {
	if err := c.Conn.SetReadDeadline(t); err != nil {
		return err
	}
	return c.Conn.SetWriteDeadline(t)
}

// dialWebsocket opens an MQTT-over-WebSocket transport with the "mqtt"
// subprotocol, using the session's resolved TLS config for wss:// targets
// (spec §4.6: WebSocket transport with TLS 1.2/1.3).
func dialWebsocket(brokerURL string, tlsCfg *tls.Config, timeout time.Duration) (net.Conn, error) {
	u, err := url.Parse(brokerURL)
	if err != nil {
		return nil, err
	}
	dialer := &websocket.Dialer{
		Subprotocols:     []string{"mqtt"},
		HandshakeTimeout: timeout,
		TLSClientConfig:  tlsCfg,
	}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return nil, err
	}
	return &wsConn{Conn: conn}, nil
}
