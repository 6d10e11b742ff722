package grpc

import (
	"bytes"
	"context"
	"encoding/base64"
	"time"

	"github.com/dmitrijs2005/fileguard/internal/pipeline"
	"github.com/dmitrijs2005/fileguard/internal/upload"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const defaultAuditLimit = 100

func stringField(in *structpb.Struct, name string) string {
	return in.GetFields()[name].GetStringValue()
}

func intField(in *structpb.Struct, name string, def int) int {
	v, ok := in.GetFields()[name]
	if !ok {
		return def
	}
	return int(v.GetNumberValue())
}

func resultStruct(r pipeline.Result) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"status":  r.Status,
		"message": r.Message,
		"outcome": string(r.Outcome),
		"file_id": r.FileID,
	})
}

// Process accepts either {"path"} for a file already on the server host,
// which requires an operator token, or {"filename", "content"} with the
// bytes base64 encoded.
func (s *GRPCServer) Process(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {

	if path := stringField(in, "path"); path != "" {
		if _, ok := operatorFromContext(ctx); !ok {
			return nil, status.Error(codes.PermissionDenied, "processing a server path requires an operator token")
		}
		s.logger.Info(ctx, "Process request", "path", path)
		return resultStruct(s.processor.Process(ctx, path))
	}

	filename := stringField(in, "filename")
	if filename == "" {
		return nil, status.Error(codes.InvalidArgument, "path or filename is required")
	}

	content, err := base64.StdEncoding.DecodeString(stringField(in, "content"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "content must be base64")
	}

	path, cleanup, err := upload.Receive(s.inboxDir, filename, bytes.NewReader(content), s.maxSize)
	if err != nil {
		s.logger.Error(ctx, "failed to receive upload", "filename", filename, "error", err)
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	defer cleanup()

	s.logger.Info(ctx, "Process request", "filename", filename, "size", len(content))
	return resultStruct(s.processor.Process(ctx, path))
}

func (s *GRPCServer) FetchAuditLogs(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {

	limit := intField(in, "limit", defaultAuditLimit)
	if limit <= 0 {
		return nil, status.Error(codes.InvalidArgument, "limit must be positive")
	}

	events, err := s.ops.FetchAuditLogs(ctx, limit)
	if err != nil {
		s.logger.Error(ctx, "failed to fetch audit logs", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	list := make([]any, 0, len(events))
	for _, e := range events {
		list = append(list, map[string]any{
			"id":        e.ID,
			"operation": e.Operation,
			"timestamp": e.Timestamp.UTC().Format(time.RFC3339Nano),
			"details":   e.Details,
			"status":    e.Status,
			"severity":  string(e.Severity),
		})
	}

	return structpb.NewStruct(map[string]any{"events": list})
}

func (s *GRPCServer) ArchiveOldMetadata(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {

	days := intField(in, "days", -1)
	if days < 0 {
		return nil, status.Error(codes.InvalidArgument, "days must be zero or positive")
	}

	n, err := s.ops.ArchiveOldMetadata(ctx, days)
	if err != nil {
		s.logger.Error(ctx, "failed to archive metadata", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	op, _ := operatorFromContext(ctx)
	s.logger.Info(ctx, "Archived metadata", "operator", op, "days", days, "deleted", n)

	return structpb.NewStruct(map[string]any{"deleted": n})
}

func (s *GRPCServer) CheckIntegrity(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {

	ok, err := s.ops.CheckIntegrity(ctx)
	if err != nil {
		s.logger.Error(ctx, "integrity check failed", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	return structpb.NewStruct(map[string]any{"ok": ok})
}
