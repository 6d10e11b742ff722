// Package client is the remote side of the FileGuard gRPC service, used by
// the CLI to submit files to a running server and to call operator methods.
package client

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fileguard/internal/common"
	"github.com/dmitrijs2005/fileguard/internal/models"
	"github.com/dmitrijs2005/fileguard/internal/pipeline"
	fgrpc "github.com/dmitrijs2005/fileguard/internal/server/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type GRPCClient struct {
	conn        grpc.ClientConnInterface
	closer      func() error
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if s.accessToken != "" {
		ctx = withAccessToken(ctx, s.accessToken)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewGRPCClient connects to endpointURL. An empty accessToken sends
// anonymous requests, which only Process with content accepts.
func NewGRPCClient(endpointURL, accessToken string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{accessToken: accessToken}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.closer = conn.Close
	return c, nil
}

func (s *GRPCClient) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

func (s *GRPCClient) call(ctx context.Context, method string, in map[string]any) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := s.conn.Invoke(ctx, method, req, out); err != nil {
		return nil, s.mapError(err)
	}
	return out, nil
}

// Send uploads data under filename and returns the pipeline's answer.
func (s *GRPCClient) Send(ctx context.Context, filename string, data []byte) (*pipeline.Result, error) {
	out, err := s.call(ctx, fgrpc.MethodProcess, map[string]any{
		"filename": filename,
		"content":  base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return nil, err
	}
	return resultFromStruct(out), nil
}

// ProcessPath asks the server to process a file already on its host.
func (s *GRPCClient) ProcessPath(ctx context.Context, path string) (*pipeline.Result, error) {
	out, err := s.call(ctx, fgrpc.MethodProcess, map[string]any{"path": path})
	if err != nil {
		return nil, err
	}
	return resultFromStruct(out), nil
}

func resultFromStruct(out *structpb.Struct) *pipeline.Result {
	f := out.GetFields()
	return &pipeline.Result{
		Status:  f["status"].GetStringValue(),
		Message: f["message"].GetStringValue(),
		Outcome: pipeline.Outcome(f["outcome"].GetStringValue()),
		FileID:  f["file_id"].GetStringValue(),
	}
}

func (s *GRPCClient) FetchAuditLogs(ctx context.Context, limit int) ([]*models.AuditEvent, error) {
	out, err := s.call(ctx, fgrpc.MethodFetchAuditLogs, map[string]any{"limit": limit})
	if err != nil {
		return nil, err
	}

	var events []*models.AuditEvent
	for _, v := range out.GetFields()["events"].GetListValue().GetValues() {
		f := v.GetStructValue().GetFields()
		ts, err := time.Parse(time.RFC3339Nano, f["timestamp"].GetStringValue())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadResponse, err)
		}
		events = append(events, &models.AuditEvent{
			ID:        int64(f["id"].GetNumberValue()),
			Operation: f["operation"].GetStringValue(),
			Timestamp: ts,
			Details:   f["details"].GetStringValue(),
			Status:    f["status"].GetStringValue(),
			Severity:  models.Severity(f["severity"].GetStringValue()),
		})
	}
	return events, nil
}

func (s *GRPCClient) ArchiveOldMetadata(ctx context.Context, days int) (int64, error) {
	out, err := s.call(ctx, fgrpc.MethodArchiveOldMetadata, map[string]any{"days": days})
	if err != nil {
		return 0, err
	}
	return int64(out.GetFields()["deleted"].GetNumberValue()), nil
}

func (s *GRPCClient) CheckIntegrity(ctx context.Context) (bool, error) {
	out, err := s.call(ctx, fgrpc.MethodCheckIntegrity, map[string]any{})
	if err != nil {
		return false, err
	}
	return out.GetFields()["ok"].GetBoolValue(), nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
