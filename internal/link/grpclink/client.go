package grpclink

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Conn is the dialing side of a link session.
type Conn struct {
	*streamChannel
	cc     *grpc.ClientConn
	cancel context.CancelFunc
}

// Dial opens a link session to target. The session lives until Close.
func Dial(target string, opts ...grpc.DialOption) (*Conn, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(rawCodec{})),
	}, opts...)

	cc, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial link %s: %w", target, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := cc.NewStream(ctx, &serviceDesc.Streams[0], exchangeMethod)
	if err != nil {
		cancel()
		_ = cc.Close()
		return nil, fmt.Errorf("open link stream: %w", err)
	}

	return &Conn{streamChannel: newStreamChannel(stream), cc: cc, cancel: cancel}, nil
}

func (c *Conn) Close() error {
	c.close()
	c.cancel()
	return c.cc.Close()
}
