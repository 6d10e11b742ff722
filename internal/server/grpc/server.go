// Package grpc exposes the pipeline and its operator operations over gRPC.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/fileguard/internal/logging"
	"github.com/dmitrijs2005/fileguard/internal/models"
	"github.com/dmitrijs2005/fileguard/internal/pipeline"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Processor runs one file through the pipeline.
type Processor interface {
	Process(ctx context.Context, path string) pipeline.Result
}

// Operations are the operator-only maintenance calls.
type Operations interface {
	FetchAuditLogs(ctx context.Context, limit int) ([]*models.AuditEvent, error)
	ArchiveOldMetadata(ctx context.Context, days int) (int64, error)
	CheckIntegrity(ctx context.Context) (bool, error)
}

type Options struct {
	Address   string
	SecretKey string
	InboxDir  string
	MaxSize   int64
}

type GRPCServer struct {
	address   string
	processor Processor
	ops       Operations
	logger    logging.Logger
	jwtSecret []byte
	inboxDir  string
	maxSize   int64
}

func NewGRPCServer(o Options, l logging.Logger, p Processor, ops Operations) *GRPCServer {
	return &GRPCServer{
		address:   o.Address,
		logger:    l.With("module", "grpc_server"),
		processor: p,
		ops:       ops,
		jwtSecret: []byte(o.SecretKey),
		inboxDir:  o.InboxDir,
		maxSize:   o.MaxSize,
	}
}

// newServer builds the grpc.Server with interceptors and services attached.
func (s *GRPCServer) newServer() *grpc.Server {
	// base64 content inflates by 4/3; leave headroom for the envelope
	maxMsg := int(s.maxSize*2) + 1<<20

	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.accessTokenInterceptor),
		grpc.MaxRecvMsgSize(maxMsg),
	)

	RegisterFileGuardServer(srv, s)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
