package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/dmitrijs2005/doorlock/internal/common"
)

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// Stream adapts any io.ReadWriter (a serial device file, a TCP connection,
// one end of a pipe) to a Channel.
type Stream struct {
	rw  io.ReadWriter
	buf [1]byte
}

func NewStream(rw io.ReadWriter) *Stream {
	return &Stream{rw: rw}
}

func (s *Stream) SendByte(ctx context.Context, b byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.rw.Write([]byte{b}); err != nil {
		return s.wrap(ctx, "send", err)
	}
	return nil
}

// ReceiveByte blocks for one byte. When the underlying stream supports read
// deadlines, cancelling ctx unblocks the read.
func (s *Stream) ReceiveByte(ctx context.Context) (byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if rd, ok := s.rw.(readDeadliner); ok {
		stop := context.AfterFunc(ctx, func() {
			_ = rd.SetReadDeadline(time.Now())
		})
		defer func() {
			if !stop() {
				_ = rd.SetReadDeadline(time.Time{})
			}
		}()
	}

	if _, err := io.ReadFull(s.rw, s.buf[:]); err != nil {
		return 0, s.wrap(ctx, "receive", err)
	}
	return s.buf[0], nil
}

// Close closes the underlying stream when it is closable.
func (s *Stream) Close() error {
	if c, ok := s.rw.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *Stream) wrap(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) || errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("%s: %w", op, common.ErrLinkClosed)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Pipe returns two connected in-process channels. Bytes sent on one end are
// received on the other; like a serial line, a send blocks until the peer
// reads.
func Pipe() (*Stream, *Stream) {
	a, b := net.Pipe()
	return NewStream(a), NewStream(b)
}
