package server

import (
	"bytes"
	"context"
	"log/slog"
	"strings"

	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/pdf-text-extractor/constants"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/entity"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/export"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/repository"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "pdfextract.v1.QueryService"

// QueryServer is the read-only query surface over the result store.
// Requests and responses are google.protobuf.Struct documents so the
// service needs no generated code.
type QueryServer interface {
	Stats(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	Search(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	List(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Failures(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Export(ctx context.Context, req *structpb.Struct) (*wrapperspb.BytesValue, error)
}

type QueryService struct {
	repo     repository.ResultRepository
	exporter *export.Service
	logger   *slog.Logger
}

var _ QueryServer = (*QueryService)(nil)

func NewQueryService(repo repository.ResultRepository, logger *slog.Logger) *QueryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryService{
		repo:     repo,
		exporter: export.NewService(repo, logger),
		logger:   logger,
	}
}

// Stats returns store-wide counts.
func (s *QueryService) Stats(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	st, err := s.repo.Stats(ctx)
	if err != nil {
		s.logger.Error("failed to compute stats", "error", err)
		return nil, common.InternalError("stats failed")
	}
	out, err := statsToStruct(st)
	if err != nil {
		return nil, common.InternalErrorf("encode stats: %v", err)
	}
	return out, nil
}

// Search finds successful records whose text contains query, newest first.
// Text is cut to a preview unless full_text is set.
func (s *QueryService) Search(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	query := strings.TrimSpace(req.GetFields()["query"].GetStringValue())
	limit, limitOK := intField(req, "limit")
	if !limitOK {
		return nil, common.InvalidArgumentError("limit must be a whole number")
	}

	v := common.NewValidator().
		Field("query", query, common.Required).
		Field("limit", limit, common.NonNegative)
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}

	rs, err := s.repo.Search(ctx, query, limit)
	if err != nil {
		s.logger.Error("search failed", "query", query, "error", err)
		return nil, common.InternalError("search failed")
	}
	textLimit := previewChars
	if req.GetFields()["full_text"].GetBoolValue() {
		textLimit = 0
	}
	s.logger.Debug("search served", "query", query, "hits", len(rs))
	return encodeResults(rs, textLimit)
}

// List returns records newest first, optionally filtered by method.
func (s *QueryService) List(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	method := strings.TrimSpace(req.GetFields()["method"].GetStringValue())
	limit, limitOK := intField(req, "limit")
	if !limitOK {
		return nil, common.InvalidArgumentError("limit must be a whole number")
	}

	v := common.NewValidator().Field("limit", limit, common.NonNegative)
	if method != "" {
		v.Field("method", method, common.OneOf(
			string(constants.MethodDirect),
			string(constants.MethodOCR),
			string(constants.MethodError),
		))
	}
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}

	rs, err := s.repo.List(ctx, repository.ListFilter{
		Method:        constants.Method(method),
		IncludeFailed: req.GetFields()["include_failed"].GetBoolValue(),
		Limit:         limit,
	})
	if err != nil {
		s.logger.Error("list failed", "error", err)
		return nil, common.InternalError("list failed")
	}
	return encodeResults(rs, previewChars)
}

// Failures returns method=error records newest first.
func (s *QueryService) Failures(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	limit, limitOK := intField(req, "limit")
	if !limitOK || limit < 0 {
		return nil, common.InvalidArgumentError("limit must be a non-negative whole number")
	}
	rs, err := s.repo.Failures(ctx, limit)
	if err != nil {
		s.logger.Error("failures query failed", "error", err)
		return nil, common.InternalError("failures failed")
	}
	return encodeResults(rs, previewChars)
}

// Export returns the whole store encoded as txt, jsonl or xlsx.
func (s *QueryService) Export(ctx context.Context, req *structpb.Struct) (*wrapperspb.BytesValue, error) {
	name := req.GetFields()["format"].GetStringValue()
	if strings.TrimSpace(name) == "" {
		name = string(export.FormatJSONL)
	}
	format, err := export.ParseFormat(name)
	if err != nil {
		return nil, common.InvalidArgumentError(err.Error())
	}
	var buf bytes.Buffer
	opts := export.Options{IncludeText: req.GetFields()["include_text"].GetBoolValue()}
	if _, err := s.exporter.Write(ctx, &buf, format, opts); err != nil {
		s.logger.Error("export failed", "format", format, "error", err)
		return nil, common.InternalErrorf("export failed: %v", err)
	}
	return wrapperspb.Bytes(buf.Bytes()), nil
}

func encodeResults(rs []entity.ExtractionResult, textLimit int) (*structpb.Struct, error) {
	out, err := resultsToStruct(rs, textLimit)
	if err != nil {
		return nil, common.InternalErrorf("encode results: %v", err)
	}
	return out, nil
}
