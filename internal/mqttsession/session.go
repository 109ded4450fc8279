package mqttsession

import (
	"context"
	"fmt"
	"net"
	"net/url"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kaans/mqtli/internal/errs"
	"github.com/kaans/mqtli/internal/log"
)

// InboundHandler receives every message delivered on a subscribed topic,
// matching the (topic, qos, retain, bytes) inbound stream of spec §4.6.
type InboundHandler func(topicName string, qos byte, retain bool, body []byte)

// Session wraps a paho.mqtt.golang client behind the connect/subscribe/
// publish/disconnect contract of spec §4.6. Outbound publishes are
// serialized through a bounded channel so the MQTT session remains the
// exclusive writer named in spec §5.
type Session struct {
	cfg     Config
	log     log.Logger
	client  mqtt.Client
	onMsg   InboundHandler
	outbox  chan outboundMsg
	done    chan struct{}
}

type outboundMsg struct {
	ctx    context.Context
	topic  string
	qos    byte
	retain bool
	body   []byte
	result chan error
}

// New builds a Session. onMsg is invoked for every inbound message on any
// subscribed topic; Connect must be called before Subscribe/Publish.
func New(cfg Config, logger log.Logger, onMsg InboundHandler) (*Session, error) {
	if err := validateWill(cfg.Will); err != nil {
		return nil, &errs.ConfigError{Field: "will", Cause: err}
	}
	if cfg.OutboundQueueSize <= 0 {
		cfg.OutboundQueueSize = DefaultOutboundQueueSize
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "mqtli-" + uuid.NewString()
	}

	s := &Session{
		cfg:    cfg,
		log:    logger,
		onMsg:  onMsg,
		outbox: make(chan outboundMsg, cfg.OutboundQueueSize),
		done:   make(chan struct{}),
	}
	return s, nil
}

func (s *Session) brokerURL() string {
	scheme := "tcp"
	if s.cfg.Protocol == ProtocolWebSocket {
		scheme = "ws"
		if s.cfg.TLS.Enabled {
			scheme = "wss"
		}
	} else if s.cfg.TLS.Enabled {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, s.cfg.Host, s.cfg.Port)
}

// Connect dials the broker with paho's auto-reconnect enabled, registers the
// last-will (if configured), and starts the outbound-writer goroutine.
func (s *Session) Connect(ctx context.Context) error {
	tlsCfg, err := buildTLSConfig(s.cfg.TLS)
	if err != nil {
		return &errs.TransportError{Op: "tls", Cause: err}
	}

	opts := mqtt.NewClientOptions().
		AddBroker(s.brokerURL()).
		SetClientID(s.cfg.ClientID).
		SetKeepAlive(s.cfg.KeepAlive).
		SetAutoReconnect(true).
		SetConnectTimeout(s.cfg.ConnectTimeout).
		SetConnectionLostHandler(s.onConnectionLost).
		SetOnConnectHandler(s.onConnect)

	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username).SetPassword(s.cfg.Password)
	}
	if s.cfg.Version == VersionV5 {
		opts.SetProtocolVersion(5)
	}
	if tlsCfg != nil {
		opts.SetTLSConfig(tlsCfg)
	}
	if s.cfg.Protocol == ProtocolWebSocket {
		timeout := s.cfg.ConnectTimeout
		broker := s.brokerURL()
		opts.SetCustomOpenConnectionFn(func(_ *url.URL, _ mqtt.ClientOptions) (net.Conn, error) {
			return dialWebsocket(broker, tlsCfg, timeout)
		})
	}
	if s.cfg.Will.Enabled {
		opts.SetWill(s.cfg.Will.Topic, s.cfg.Will.Payload, s.cfg.Will.QoS, s.cfg.Will.Retained)
	}

	s.client = mqtt.NewClient(opts)

	token := s.client.Connect()
	if !token.WaitTimeout(s.cfg.ConnectTimeout) {
		return &errs.TransportError{Op: "connect", Cause: fmt.Errorf("timed out after %s", s.cfg.ConnectTimeout)}
	}
	if err := token.Error(); err != nil {
		return &errs.TransportError{Op: "connect", Cause: err}
	}

	go s.writerLoop(ctx)
	return nil
}

func (s *Session) onConnect(mqtt.Client) {
	s.log.Infof("mqtt connected to %s as %s", s.brokerURL(), s.cfg.ClientID)
}

func (s *Session) onConnectionLost(_ mqtt.Client, err error) {
	s.log.Warnf("mqtt connection lost, paho auto-reconnect engaged: %v", err)
}

// Subscribe registers pattern at qos; every matching inbound message is
// delivered to the Session's InboundHandler.
func (s *Session) Subscribe(pattern string, qos byte) error {
	token := s.client.Subscribe(pattern, qos, func(_ mqtt.Client, m mqtt.Message) {
		s.onMsg(m.Topic(), m.Qos(), m.Retained(), m.Payload())
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return &errs.TransportError{Op: "subscribe:" + pattern, Cause: err}
	}
	return nil
}

// Publish enqueues an outbound publish, implementing topic.Publisher. It
// blocks only until the bounded outbox accepts the message or ctx is
// cancelled; the actual wire write happens on the session's writer
// goroutine, serializing all outbound traffic through one writer.
func (s *Session) Publish(ctx context.Context, topicName string, qos byte, retain bool, body []byte) error {
	result := make(chan error, 1)
	msg := outboundMsg{ctx: ctx, topic: topicName, qos: qos, retain: retain, body: body, result: result}

	select {
	case s.outbox <- msg:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return &errs.TransportError{Op: "publish", Cause: fmt.Errorf("session closed")}
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) writerLoop(ctx context.Context) {
	boff := backoff.NewExponentialBackOff()
	boff.MaxElapsedTime = 0 // retry indefinitely; reconnect is paho's job, this just retries a stuck publish

	for {
		select {
		case <-ctx.Done():
			close(s.done)
			return
		case msg := <-s.outbox:
			msg.result <- s.publishWithRetry(msg, boff)
		}
	}
}

func (s *Session) publishWithRetry(msg outboundMsg, boff backoff.BackOff) error {
	boff.Reset()
	op := func() error {
		token := s.client.Publish(msg.topic, msg.qos, msg.retain, msg.body)
		token.Wait()
		return token.Error()
	}
	err := backoff.Retry(op, backoff.WithContext(boff, msg.ctx))
	if err != nil {
		return &errs.TransportError{Op: "publish:" + msg.topic, Cause: err}
	}
	return nil
}

// Disconnect sends a clean MQTT DISCONNECT. The writer goroutine stops when
// the context passed to Connect is cancelled.
func (s *Session) Disconnect(quiesceMs uint) {
	s.client.Disconnect(quiesceMs)
}
