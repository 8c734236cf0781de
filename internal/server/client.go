package server

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/pdf-text-extractor/constants"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/entity"
)

// QueryClient calls a remote QueryService and decodes its Struct replies.
type QueryClient struct {
	cc grpc.ClientConnInterface
}

func NewQueryClient(cc grpc.ClientConnInterface) *QueryClient {
	return &QueryClient{cc: cc}
}

func (c *QueryClient) Stats(ctx context.Context) (entity.StoreStats, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodStats, &emptypb.Empty{}, out); err != nil {
		return entity.StoreStats{}, err
	}
	return structToStats(out), nil
}

// Search returns up to limit hits; fullText disables the preview cut.
func (c *QueryClient) Search(ctx context.Context, query string, limit int, fullText bool) ([]entity.ExtractionResult, error) {
	return c.results(ctx, MethodSearch, map[string]any{
		"query":     query,
		"limit":     float64(limit),
		"full_text": fullText,
	})
}

func (c *QueryClient) List(ctx context.Context, method constants.Method, includeFailed bool, limit int) ([]entity.ExtractionResult, error) {
	return c.results(ctx, MethodList, map[string]any{
		"method":         string(method),
		"include_failed": includeFailed,
		"limit":          float64(limit),
	})
}

func (c *QueryClient) Failures(ctx context.Context, limit int) ([]entity.ExtractionResult, error) {
	return c.results(ctx, MethodFailures, map[string]any{"limit": float64(limit)})
}

func (c *QueryClient) Export(ctx context.Context, format string, includeText bool) ([]byte, error) {
	in, err := structpb.NewStruct(map[string]any{"format": format, "include_text": includeText})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, MethodExport, in, out); err != nil {
		return nil, err
	}
	return out.GetValue(), nil
}

func (c *QueryClient) results(ctx context.Context, method string, req map[string]any) ([]entity.ExtractionResult, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out); err != nil {
		return nil, err
	}
	return structToResults(out)
}
