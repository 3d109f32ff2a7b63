package repo

import (
	"context"
	"database/sql"
	"strings"

	"github.com/didi/gendry/builder"
	"github.com/pgvector/pgvector-go"

	"github.com/shaibs/reqsearch/internal/model"
	"github.com/shaibs/reqsearch/internal/pkg/dbutil"
	appErr "github.com/shaibs/reqsearch/internal/pkg/errors"
)

// ChunkHit is one chunk row surviving the similarity query, before
// per-record aggregation.
type ChunkHit struct {
	RequestID  string
	ChunkIndex int
	Content    string
	Similarity float64
}

type ChunkRepo struct {
	db *sql.DB
}

func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// Nearest runs one similarity query joining the structured predicates, the
// literal-containment conditions and the similarity floor. The caller
// aggregates, counts and slices the returned superset, so a single query
// serves both the count and the result list.
func (r *ChunkRepo) Nearest(ctx context.Context, vec []float32, f *SearchFilter, minSimilarity float64, limit int) ([]*ChunkHit, error) {
	qvec := pgvector.NewVector(vec)
	var sb strings.Builder
	sb.WriteString("SELECT c.request_id, c.chunk_index, c.content, 1 - (c.embedding <=> ?) AS similarity")
	sb.WriteString(" FROM request_chunks c JOIN requests r ON r.id = c.request_id")
	sb.WriteString(" WHERE c.embedding IS NOT NULL")
	args := []interface{}{qvec}
	conds, condArgs := f.chunkConds()
	for _, cond := range conds {
		sb.WriteString(" AND ")
		sb.WriteString(cond)
	}
	args = append(args, condArgs...)
	if minSimilarity > 0 {
		if f != nil && f.OrContains != "" {
			sb.WriteString(` AND (1 - (c.embedding <=> ?) >= ? OR c.content ILIKE ? ESCAPE '\')`)
			args = append(args, qvec, minSimilarity, "%"+escapeLike(f.OrContains)+"%")
		} else {
			sb.WriteString(" AND 1 - (c.embedding <=> ?) >= ?")
			args = append(args, qvec, minSimilarity)
		}
	}
	sb.WriteString(" ORDER BY c.embedding <=> ? LIMIT ?")
	args = append(args, qvec, limit)

	sqlStr, args := dbutil.Finalize(sb.String(), args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	hits := make([]*ChunkHit, 0)
	for rows.Next() {
		var hit ChunkHit
		if err := rows.Scan(&hit.RequestID, &hit.ChunkIndex, &hit.Content, &hit.Similarity); err != nil {
			return nil, err
		}
		hits = append(hits, &hit)
	}
	return hits, rows.Err()
}

// GetFirst returns a record's chunk 0, the anchor used for
// similar-by-record ranking.
func (r *ChunkRepo) GetFirst(ctx context.Context, requestID string) (*model.RequestChunk, error) {
	const query = `
		SELECT request_id, chunk_index, content, embedding, content_hash, mtime
		FROM request_chunks
		WHERE request_id = $1 AND chunk_index = 0
	`
	row := r.db.QueryRowContext(ctx, query, requestID)
	var chunk model.RequestChunk
	var embedding pgvector.Vector
	if err := row.Scan(&chunk.RequestID, &chunk.ChunkIndex, &chunk.Content, &embedding, &chunk.ContentHash, &chunk.Mtime); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	chunk.Embedding = embedding.Slice()
	return &chunk, nil
}

// Truncate drops the whole chunk set. Regeneration always truncates first
// and rewrites; chunks are never patched in place, so embeddings computed
// under different field weights cannot mix.
func (r *ChunkRepo) Truncate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, "TRUNCATE TABLE request_chunks")
	return err
}

func (r *ChunkRepo) InsertBatch(ctx context.Context, chunks []*model.RequestChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	data := make([]map[string]interface{}, 0, len(chunks))
	for _, chunk := range chunks {
		data = append(data, map[string]interface{}{
			"request_id":   chunk.RequestID,
			"chunk_index":  chunk.ChunkIndex,
			"content":      chunk.Content,
			"embedding":    pgvector.NewVector(chunk.Embedding),
			"content_hash": chunk.ContentHash,
			"mtime":        chunk.Mtime,
		})
	}
	sqlStr, args, err := builder.BuildInsert("request_chunks", data)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *ChunkRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM request_chunks").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// MaxMtime returns the newest source mtime captured at index time, zero
// when no chunks exist.
func (r *ChunkRepo) MaxMtime(ctx context.Context) (int64, error) {
	var mtime int64
	if err := r.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(mtime), 0) FROM request_chunks").Scan(&mtime); err != nil {
		return 0, err
	}
	return mtime, nil
}
