// Package grpclink carries the controller link over a gRPC bidirectional
// stream. It moves protocol bytes only; any number of bytes may share one
// message and the receiver sees them in order.
package grpclink

import (
	"context"
	"errors"
	"net"
	"sync/atomic"

	"github.com/dmitrijs2005/doorlock/internal/common"
	"github.com/dmitrijs2005/doorlock/internal/link"
	"github.com/dmitrijs2005/doorlock/internal/logging"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	serviceName    = "doorlock.link.v1.Link"
	exchangeMethod = "/" + serviceName + "/Exchange"
)

type exchangeServer interface {
	exchange(stream grpc.ServerStream) error
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*exchangeServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Exchange",
			ServerStreams: true,
			ClientStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				return srv.(exchangeServer).exchange(stream)
			},
		},
	},
}

// SessionFunc serves one connected peer. It returns when the peer hangs up,
// ctx is cancelled, or the exchange fails.
type SessionFunc func(ctx context.Context, ch link.Channel) error

// Server accepts one link session at a time; further peers are refused
// with codes.ResourceExhausted until the active one ends.
type Server struct {
	address string
	session SessionFunc
	logger  logging.Logger

	busy   atomic.Bool
	runCtx context.Context
}

func NewServer(address string, session SessionFunc, l logging.Logger) *Server {
	return &Server{
		address: address,
		session: session,
		logger:  l.With("module", "grpc_link"),
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

// Serve serves on lis until ctx is done.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.runCtx = ctx

	srv := grpc.NewServer(grpc.ForceServerCodec(rawCodec{}))
	srv.RegisterService(&serviceDesc, s)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC link...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC link", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

func (s *Server) exchange(stream grpc.ServerStream) error {
	if !s.busy.CompareAndSwap(false, true) {
		return status.Error(codes.ResourceExhausted, "link already has an active session")
	}
	defer s.busy.Store(false)

	ctx, cancel := context.WithCancel(stream.Context())
	defer cancel()
	stop := context.AfterFunc(s.runCtx, cancel)
	defer stop()

	log := s.logger.With("session", uuid.NewString())
	log.Info(ctx, "peer connected")

	ch := newStreamChannel(stream)
	defer ch.close()

	err := s.session(ctx, ch)
	if err != nil && ctx.Err() == nil && !errors.Is(err, common.ErrLinkClosed) {
		log.Error(ctx, "session ended", "error", err)
		return status.Error(codes.Aborted, err.Error())
	}
	log.Info(ctx, "peer disconnected")
	return nil
}
