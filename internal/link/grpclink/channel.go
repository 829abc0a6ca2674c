package grpclink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/doorlock/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type msgStream interface {
	SendMsg(m any) error
	RecvMsg(m any) error
}

// streamChannel adapts a bidirectional gRPC stream to link.Channel. A
// single reader goroutine drains the stream so ReceiveByte can honour its
// context independently of the stream's own.
type streamChannel struct {
	stream msgStream

	frames  chan []byte
	done    chan struct{}
	once    sync.Once
	readErr error

	pending []byte
}

func newStreamChannel(s msgStream) *streamChannel {
	ch := &streamChannel{
		stream: s,
		frames: make(chan []byte),
		done:   make(chan struct{}),
	}
	go ch.read()
	return ch
}

func (c *streamChannel) read() {
	defer close(c.frames)
	for {
		var f frame
		if err := c.stream.RecvMsg(&f); err != nil {
			c.readErr = err
			return
		}
		if len(f.data) == 0 {
			continue
		}
		select {
		case c.frames <- f.data:
		case <-c.done:
			return
		}
	}
}

func (c *streamChannel) SendByte(ctx context.Context, b byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.stream.SendMsg(&frame{data: []byte{b}}); err != nil {
		return fmt.Errorf("send: %w", mapError(err))
	}
	return nil
}

func (c *streamChannel) ReceiveByte(ctx context.Context) (byte, error) {
	if len(c.pending) == 0 {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case data, ok := <-c.frames:
			if !ok {
				// readErr is written before frames is closed
				return 0, fmt.Errorf("receive: %w", mapError(c.readErr))
			}
			c.pending = data
		}
	}
	b := c.pending[0]
	c.pending = c.pending[1:]
	return b, nil
}

func (c *streamChannel) close() {
	c.once.Do(func() { close(c.done) })
}

func mapError(err error) error {
	if errors.Is(err, io.EOF) {
		return common.ErrLinkClosed
	}
	switch status.Code(err) {
	case codes.Canceled, codes.Unavailable:
		return fmt.Errorf("%w: %v", common.ErrLinkClosed, err)
	case codes.ResourceExhausted:
		return fmt.Errorf("%w: %v", common.ErrLinkBusy, err)
	}
	return err
}
