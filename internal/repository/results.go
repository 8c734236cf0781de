package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/pdf-text-extractor/constants"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/entity"
)

var columns = []string{
	"id",
	"file_path",
	"file_hash",
	"file_size",
	"extraction_method",
	"extracted_text",
	"page_count",
	"processing_time_seconds",
	"timestamp",
	"success",
	"error_message",
}

// ListFilter narrows List.
type ListFilter struct {
	Method        constants.Method // empty = any
	IncludeFailed bool
	Limit         int // <= 0 = no limit
}

type ResultRepository interface {
	ExistsSuccessful(ctx context.Context, path, hash string) (bool, error)
	Insert(ctx context.Context, r entity.ExtractionResult) error
	InsertBatch(ctx context.Context, rs []entity.ExtractionResult) error
	Stats(ctx context.Context) (entity.StoreStats, error)
	Search(ctx context.Context, substring string, limit int) ([]entity.ExtractionResult, error)
	List(ctx context.Context, f ListFilter) ([]entity.ExtractionResult, error)
	Failures(ctx context.Context, limit int) ([]entity.ExtractionResult, error)
	Export(ctx context.Context, fn func(entity.ExtractionResult) error) error
}

type resultRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewResultRepository(d *DB, logger *slog.Logger) ResultRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &resultRepo{
		db:     d,
		logger: logger,
	}
}

// ExistsSuccessful reports whether (path, hash) already has a successful record.
func (r *resultRepo) ExistsSuccessful(ctx context.Context, path, hash string) (bool, error) {
	query, args := r.db.builder().
		Select("id").
		From(entsql.Table(table)).
		Where(entsql.And(
			entsql.EQ("file_path", path),
			entsql.EQ("file_hash", hash),
			entsql.EQ("success", true),
		)).
		Limit(1).
		Query()

	rows, err := r.db.SQL.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to check existing result", "path", path, "error", err)
		return false, common.NewStoreError("exists successful", err)
	}
	defer rows.Close()
	found := rows.Next()
	if err := rows.Err(); err != nil {
		return false, common.NewStoreError("exists successful", err)
	}
	return found, nil
}

// Insert writes one result, superseding any record for the same key.
func (r *resultRepo) Insert(ctx context.Context, res entity.ExtractionResult) error {
	return r.InsertBatch(ctx, []entity.ExtractionResult{res})
}

// InsertBatch writes all results in one transaction. For every key the old
// record is deleted and a new one inserted, so the survivor carries a fresh id.
func (r *resultRepo) InsertBatch(ctx context.Context, rs []entity.ExtractionResult) error {
	if len(rs) == 0 {
		return nil
	}
	err := r.db.RunTx(ctx, func(tx *sql.Tx) error {
		for _, res := range rs {
			if err := r.write(ctx, tx, res); err != nil {
				return fmt.Errorf("%s: %w", res.FilePath, err)
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error("failed to write results", "count", len(rs), "error", err)
		return common.NewStoreError("insert results", err)
	}
	return nil
}

func (r *resultRepo) write(ctx context.Context, tx *sql.Tx, res entity.ExtractionResult) error {
	if !res.Method.Valid() {
		return fmt.Errorf("invalid extraction method %q", res.Method)
	}

	hashPred := entsql.IsNull("file_hash")
	if res.FileHash != nil {
		hashPred = entsql.EQ("file_hash", *res.FileHash)
	}
	query, args := r.db.builder().
		Delete(table).
		Where(entsql.And(entsql.EQ("file_path", res.FilePath), hashPred)).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete superseded: %w", err)
	}

	query, args = r.db.builder().
		Insert(table).
		Columns(columns[1:]...).
		Values(
			res.FilePath,
			nullable(res.FileHash),
			nullable(res.FileSize),
			string(res.Method),
			nullable(res.Text),
			nullable(res.PageCount),
			res.ProcessingTimeSeconds,
			res.Timestamp.UTC(),
			res.Success,
			nullable(res.ErrorMessage),
		).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	return nil
}

// Stats counts records by method and outcome and averages successful processing time.
func (r *resultRepo) Stats(ctx context.Context) (entity.StoreStats, error) {
	query, args := r.db.builder().
		Select("extraction_method", "success", entsql.Count("*"), entsql.Sum("processing_time_seconds")).
		From(entsql.Table(table)).
		GroupBy("extraction_method", "success").
		Query()

	rows, err := r.db.SQL.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query stats", "error", err)
		return entity.StoreStats{}, common.NewStoreError("stats", err)
	}
	defer rows.Close()

	stats := entity.StoreStats{ByMethod: map[constants.Method]int64{}}
	var successSeconds float64
	for rows.Next() {
		var (
			method  string
			success bool
			n       int64
			sum     sql.NullFloat64
		)
		if err := rows.Scan(&method, &success, &n, &sum); err != nil {
			return entity.StoreStats{}, common.NewStoreError("scan stats", err)
		}
		stats.Total += n
		stats.ByMethod[constants.Method(method)] += n
		if success {
			stats.Successful += n
			successSeconds += sum.Float64
		} else {
			stats.Failed += n
		}
	}
	if err := rows.Err(); err != nil {
		return entity.StoreStats{}, common.NewStoreError("stats", err)
	}
	if stats.Successful > 0 {
		stats.AvgProcessingSeconds = successSeconds / float64(stats.Successful)
	}
	return stats, nil
}

// Search returns successful records whose text contains substring, ignoring case, newest first.
func (r *resultRepo) Search(ctx context.Context, substring string, limit int) ([]entity.ExtractionResult, error) {
	sel := r.db.builder().
		Select(columns...).
		From(entsql.Table(table)).
		Where(entsql.And(
			entsql.EQ("success", true),
			entsql.ContainsFold("extracted_text", substring),
		)).
		OrderBy(entsql.Desc("id"))
	if limit > 0 {
		sel.Limit(limit)
	}
	return r.query(ctx, "search", sel)
}

// List returns records newest first, successful only unless f.IncludeFailed.
func (r *resultRepo) List(ctx context.Context, f ListFilter) ([]entity.ExtractionResult, error) {
	var preds []*entsql.Predicate
	if f.Method != "" {
		preds = append(preds, entsql.EQ("extraction_method", string(f.Method)))
	}
	if !f.IncludeFailed {
		preds = append(preds, entsql.EQ("success", true))
	}
	sel := r.db.builder().
		Select(columns...).
		From(entsql.Table(table)).
		OrderBy(entsql.Desc("id"))
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	if f.Limit > 0 {
		sel.Limit(f.Limit)
	}
	return r.query(ctx, "list", sel)
}

// Failures returns failed records newest first.
func (r *resultRepo) Failures(ctx context.Context, limit int) ([]entity.ExtractionResult, error) {
	sel := r.db.builder().
		Select(columns...).
		From(entsql.Table(table)).
		Where(entsql.EQ("success", false)).
		OrderBy(entsql.Desc("id"))
	if limit > 0 {
		sel.Limit(limit)
	}
	return r.query(ctx, "failures", sel)
}

// Export streams every record in ascending id order. An error from fn stops the stream.
func (r *resultRepo) Export(ctx context.Context, fn func(entity.ExtractionResult) error) error {
	query, args := r.db.builder().
		Select(columns...).
		From(entsql.Table(table)).
		OrderBy(entsql.Asc("id")).
		Query()

	rows, err := r.db.SQL.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to export results", "error", err)
		return common.NewStoreError("export", err)
	}
	defer rows.Close()
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return common.NewStoreError("scan export", err)
		}
		if err := fn(res); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return common.NewStoreError("export", err)
	}
	return nil
}

func (r *resultRepo) query(ctx context.Context, op string, sel *entsql.Selector) ([]entity.ExtractionResult, error) {
	query, args := sel.Query()
	rows, err := r.db.SQL.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query results", "op", op, "error", err)
		return nil, common.NewStoreError(op, err)
	}
	defer rows.Close()

	var out []entity.ExtractionResult
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, common.NewStoreError("scan "+op, err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewStoreError(op, err)
	}
	return out, nil
}
