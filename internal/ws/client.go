package ws

import (
	"encoding/json"
	"errors"
	"time"

	"hunter_trials/internal/domain"
	"hunter_trials/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second

	sendBuffer = 64
	readLimit  = 64 * 1024
)

var ErrUnknownMessage = errors.New("unknown message type")

// Session is the part of the progression controller a socket can drive
type Session interface {
	Snapshot() domain.Snapshot
	Fail(message string) (domain.Snapshot, error)
	SuccessMessage(message string) (domain.Snapshot, error)
	Complete() (domain.Snapshot, error)
	SaveAnswer(text string) (domain.Snapshot, error)
	CloseFeedback() (domain.Snapshot, error)
	CloseEducation() (domain.Snapshot, error)
}

type Client struct {
	SessionID string
	Conn      *websocket.Conn
	Send      chan []byte
	Hub       *Hub
	Session   Session
	Done      chan struct{}
}

func NewClient(sessionID string, conn *websocket.Conn, hub *Hub, session Session) *Client {
	return &Client{
		SessionID: sessionID,
		Conn:      conn,
		Send:      make(chan []byte, sendBuffer),
		Hub:       hub,
		Session:   session,
		Done:      make(chan struct{}),
	}
}

func (c *Client) Run() {
	go c.writePump()

	c.reply([]byte(`{"type":"ready"}`))
	c.Hub.Register(c)
	// clients keep the snapshot with the highest version
	if msg, err := encodeState(c.Session.Snapshot()); err == nil {
		c.reply(msg)
	}

	c.readPump()
}

// read
func (c *Client) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		close(c.Send)
		close(c.Done)
	}()

	c.Conn.SetReadLimit(readLimit)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("ws read error", "session_id", c.SessionID, "error", err)
			}
			return
		}
		c.handle(msg)
	}
}

// handle applies one inbound message. State changes reach the socket through
// the hub, so only pongs and errors are answered directly.
func (c *Client) handle(raw []byte) {
	var in InboundMessage
	if err := json.Unmarshal(raw, &in); err != nil {
		c.reply(encodeError("invalid message"))
		return
	}

	var err error
	switch in.Type {
	case MsgPing:
		c.reply([]byte(`{"type":"pong"}`))
		return
	case MsgFail:
		_, err = c.Session.Fail(in.Value)
	case MsgSuccess:
		_, err = c.Session.SuccessMessage(in.Value)
	case MsgComplete:
		_, err = c.Session.Complete()
	case MsgAnswer:
		_, err = c.Session.SaveAnswer(in.Value)
	case MsgCloseFeedback:
		_, err = c.Session.CloseFeedback()
	case MsgCloseEducation:
		_, err = c.Session.CloseEducation()
	default:
		err = ErrUnknownMessage
	}
	if err != nil {
		c.reply(encodeError(err.Error()))
	}
}

func (c *Client) reply(msg []byte) {
	select {
	case c.Send <- msg:
	default:
		logger.Warn("ws send buffer full, reply dropped", "session_id", c.SessionID)
	}
}

// write
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug("ws write error", "session_id", c.SessionID, "error", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
