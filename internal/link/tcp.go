package link

import (
	"context"
	"fmt"
	"net"
)

// DialTCP connects to a peer controller exposing its link on addr.
func DialTCP(ctx context.Context, addr string) (*Stream, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial link %s: %w", addr, err)
	}
	return NewStream(conn), nil
}

// AcceptTCP listens on addr and returns the first peer that connects. The
// listener is closed once a peer is accepted or ctx is done.
func AcceptTCP(ctx context.Context, addr string) (*Stream, error) {
	var lc net.ListenConfig
	lis, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen link %s: %w", addr, err)
	}
	return accept(ctx, lis)
}

func accept(ctx context.Context, lis net.Listener) (*Stream, error) {
	stop := context.AfterFunc(ctx, func() { _ = lis.Close() })
	defer stop()
	defer lis.Close()

	conn, err := lis.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("accept link: %w", err)
	}
	return NewStream(conn), nil
}
