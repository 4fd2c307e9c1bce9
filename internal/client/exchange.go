package client

import (
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/wsrelay/internal/protocol"
)

// Send transmits text as a user envelope. While disconnected it waits up to
// Config.SendTimeout for a connection and then gives up with ErrNotConnected;
// nothing is queued. A failed write drops the connection so the retry loop
// takes over.
func (p *Peer) Send(text string) error {
	conn, selfID, err := p.waitConnected(p.cfg.SendTimeout)
	if err != nil {
		return err
	}

	if err := p.write(conn, protocol.NewUser(text, selfID)); err != nil {
		p.logf("Failed to send message: %v", err)
		p.closeConn(conn)
		return fmt.Errorf("send: %w", err)
	}
	p.logf("Sent message: %s", text)
	return nil
}

func (p *Peer) waitConnected(timeout time.Duration) (*websocket.Conn, string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		p.mu.Lock()
		if p.ctx.Err() != nil {
			p.mu.Unlock()
			return nil, "", ErrShutdown
		}
		if p.state == Connected && p.conn != nil {
			conn, selfID := p.conn, p.selfID
			p.mu.Unlock()
			return conn, selfID, nil
		}
		signal := p.connected
		p.mu.Unlock()

		select {
		case <-signal:
		case <-timer.C:
			return nil, "", ErrNotConnected
		case <-p.ctx.Done():
			return nil, "", ErrShutdown
		}
	}
}

// write serializes env onto conn. gorilla allows a single concurrent writer,
// and both the network loop and Send write here.
func (p *Peer) write(conn *websocket.Conn, env protocol.Envelope) error {
	payload, err := protocol.Encode(env)
	if err != nil {
		return err
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(p.cfg.WriteWait)); err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return err
	}
	p.metrics.MessagesSent.Inc()
	return nil
}

// handleFrame decodes one inbound frame and sends the echo reply, if any.
func (p *Peer) handleFrame(conn *websocket.Conn, raw []byte) {
	env, err := protocol.Decode(raw)
	if err != nil {
		p.metrics.MessagesMalformed.Inc()
		p.logf("Invalid message format: %s (%v)", raw, err)
		return
	}
	p.metrics.MessagesReceived.Inc()
	p.logf("Received message: %s", env.Message)

	if p.onEnvelope != nil {
		p.onEnvelope(env)
	}

	reply, ok := p.replyFor(env, p.SelfID())
	if !ok {
		return
	}
	if err := p.write(conn, reply); err != nil {
		p.logf("Failed to send echo: %v", err)
		p.closeConn(conn)
		return
	}
	p.metrics.EchoReplies.Inc()
}

// replyFor decides how to answer env. Only user messages from someone else
// get an echo; the self check stops a peer from answering its own traffic.
func (p *Peer) replyFor(env protocol.Envelope, selfID string) (protocol.Envelope, bool) {
	switch env.Type {
	case protocol.KindSystem:
		p.logf("System message: %s", env.Message)
	case protocol.KindUser:
		if env.ClientID == selfID {
			return protocol.Envelope{}, false
		}
		p.logf("From client %s: %s", env.ClientID, env.Message)
		return protocol.NewEcho(env.Message, selfID), true
	}
	return protocol.Envelope{}, false
}
