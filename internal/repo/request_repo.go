package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/shaibs/reqsearch/internal/model"
	"github.com/shaibs/reqsearch/internal/pkg/dbutil"
	appErr "github.com/shaibs/reqsearch/internal/pkg/errors"
)

var requestColumns = []string{
	"id", "project_name", "project_description", "area_description",
	"job_description", "remarks", "type_id", "status_id", "updated_by",
	"created_by", "responsible_name", "contact_name", "contact_email",
	"contact_phone", "status_date", "ctime", "mtime",
}

// RequestRepo reads the denormalized request rows. The table is written by
// the external sync, never by this service.
type RequestRepo struct {
	db *sql.DB
}

func NewRequestRepo(db *sql.DB) *RequestRepo {
	return &RequestRepo{db: db}
}

func scanRequest(rows *sql.Rows) (*model.Request, error) {
	var req model.Request
	if err := rows.Scan(
		&req.ID, &req.ProjectName, &req.ProjectDescription, &req.AreaDescription,
		&req.JobDescription, &req.Remarks, &req.TypeID, &req.StatusID, &req.UpdatedBy,
		&req.CreatedBy, &req.ResponsibleName, &req.ContactName, &req.ContactEmail,
		&req.ContactPhone, &req.StatusDate, &req.Ctime, &req.Mtime,
	); err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *RequestRepo) queryRequests(ctx context.Context, where map[string]interface{}) ([]*model.Request, error) {
	sqlStr, args, err := builder.BuildSelect("requests", where, requestColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*model.Request, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (r *RequestRepo) GetByID(ctx context.Context, id string) (*model.Request, error) {
	items, err := r.queryRequests(ctx, map[string]interface{}{"id": id})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, appErr.ErrNotFound
	}
	return items[0], nil
}

// ListByIDs fetches all rows in one batched query; result order follows the
// given id order so ranking survives materialization.
func (r *RequestRepo) ListByIDs(ctx context.Context, ids []string) ([]*model.Request, error) {
	if len(ids) == 0 {
		return []*model.Request{}, nil
	}
	vals := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		vals = append(vals, id)
	}
	items, err := r.queryRequests(ctx, map[string]interface{}{
		"_custom_ids": builder.In{"id": vals},
	})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Request, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	ordered := make([]*model.Request, 0, len(items))
	for _, id := range ids {
		if item, ok := byID[id]; ok {
			ordered = append(ordered, item)
		}
	}
	return ordered, nil
}

// CountFiltered is the authoritative exact count over the structured
// predicates, with no similarity involved.
func (r *RequestRepo) CountFiltered(ctx context.Context, f *SearchFilter) (int64, error) {
	sqlStr, args, err := builder.BuildSelect("requests", f.requestWhere(), []string{"COUNT(1)"})
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	var count int64
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ListFilteredIDs returns every id matching the structured predicates,
// newest first. The caller counts and slices the same list, so count and
// results cannot diverge.
func (r *RequestRepo) ListFilteredIDs(ctx context.Context, f *SearchFilter) ([]string, error) {
	where := f.requestWhere()
	where["_orderby"] = "ctime desc, id asc"
	sqlStr, args, err := builder.BuildSelect("requests", where, []string{"id"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListPage iterates the table in stable id order for reindexing.
func (r *RequestRepo) ListPage(ctx context.Context, offset, limit uint) ([]*model.Request, error) {
	return r.queryRequests(ctx, map[string]interface{}{
		"_orderby": "id asc",
		"_limit":   []uint{offset, limit},
	})
}

func (r *RequestRepo) Count(ctx context.Context) (int64, error) {
	return r.CountFiltered(ctx, nil)
}

// MaxMtime returns the newest modification time across all requests, zero
// when the table is empty. The reindex job compares it against the chunk
// side to decide whether the index is stale.
func (r *RequestRepo) MaxMtime(ctx context.Context) (int64, error) {
	var mtime int64
	if err := r.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(mtime), 0) FROM requests").Scan(&mtime); err != nil {
		return 0, err
	}
	return mtime, nil
}

// Upsert writes a request row, replacing any previous version. Ingest jobs
// and test fixtures go through here.
func (r *RequestRepo) Upsert(ctx context.Context, req *model.Request) error {
	const query = `
		INSERT INTO requests (
			id, project_name, project_description, area_description, job_description,
			remarks, type_id, status_id, updated_by, created_by, responsible_name,
			contact_name, contact_email, contact_phone, status_date, ctime, mtime
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			project_name = EXCLUDED.project_name,
			project_description = EXCLUDED.project_description,
			area_description = EXCLUDED.area_description,
			job_description = EXCLUDED.job_description,
			remarks = EXCLUDED.remarks,
			type_id = EXCLUDED.type_id,
			status_id = EXCLUDED.status_id,
			updated_by = EXCLUDED.updated_by,
			created_by = EXCLUDED.created_by,
			responsible_name = EXCLUDED.responsible_name,
			contact_name = EXCLUDED.contact_name,
			contact_email = EXCLUDED.contact_email,
			contact_phone = EXCLUDED.contact_phone,
			status_date = EXCLUDED.status_date,
			ctime = EXCLUDED.ctime,
			mtime = EXCLUDED.mtime
	`
	_, err := r.db.ExecContext(ctx, query,
		req.ID, req.ProjectName, req.ProjectDescription, req.AreaDescription, req.JobDescription,
		req.Remarks, req.TypeID, req.StatusID, req.UpdatedBy, req.CreatedBy, req.ResponsibleName,
		req.ContactName, req.ContactEmail, req.ContactPhone, req.StatusDate, req.Ctime, req.Mtime,
	)
	return err
}
