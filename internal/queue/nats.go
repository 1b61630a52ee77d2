package queue

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// QueueGroup load-balances requests across service instances.
const QueueGroup = "embedders"

// NewNATS constructs a request/reply responder on subject.
func NewNATS(log *slog.Logger, nc *nats.Conn, subject string) Queue {
	return &natsQueue{log: log, conn: natsConn{nc}, subject: subject}
}

// conn is the slice of a NATS connection the responder needs.
type conn interface {
	// QueueSubscribe registers cb and returns a function that drains the subscription.
	QueueSubscribe(subject, group string, cb nats.MsgHandler) (drain func() error, err error)
	Publish(subject string, data []byte) error
	Drain() error
}

type natsConn struct{ nc *nats.Conn }

func (c natsConn) QueueSubscribe(subject, group string, cb nats.MsgHandler) (func() error, error) {
	sub, err := c.nc.QueueSubscribe(subject, group, cb)
	if err != nil {
		return nil, err
	}
	return sub.Drain, nil
}

func (c natsConn) Publish(subject string, data []byte) error { return c.nc.Publish(subject, data) }
func (c natsConn) Drain() error { return c.nc.Drain() }

type natsQueue struct {
	log     *slog.Logger
	conn    conn
	subject string
}

func (q *natsQueue) Serve(ctx context.Context, handler Handler) error {
	drain, err := q.conn.QueueSubscribe(q.subject, QueueGroup, func(msg *nats.Msg) {
		q.handleMessage(ctx, msg, handler)
	})
	if err != nil {
		return err
	}
	q.log.Info("serving embedding requests", "subject", q.subject, "group", QueueGroup)
	<-ctx.Done()
	return drain()
}

func (q *natsQueue) handleMessage(ctx context.Context, msg *nats.Msg, handler Handler) {
	if msg.Reply == "" {
		q.log.Warn("dropping request without reply subject", "subject", msg.Subject)
		return
	}
	body := Process(ctx, msg.Data, handler)
	if err := q.conn.Publish(msg.Reply, body); err != nil {
		q.log.Error("failed to send reply", "err", err)
	}
}

func (q *natsQueue) Close() error {
	return q.conn.Drain()
}

// Process decodes a raw request, runs handler and encodes the reply.
// Malformed payloads get an error reply rather than silence.
func Process(ctx context.Context, data []byte, handler Handler) []byte {
	var req Request
	var reply Reply
	if err := json.Unmarshal(data, &req); err != nil {
		reply = Reply{ID: uuid.New(), Error: "Bad Request"}
	} else {
		if req.ID == uuid.Nil {
			req.ID = uuid.New()
		}
		reply = handler(ctx, req)
		reply.ID = req.ID
	}
	body, err := json.Marshal(reply)
	if err != nil {
		body, _ = json.Marshal(Reply{ID: reply.ID, Error: "Internal Server Error"})
	}
	return body
}
