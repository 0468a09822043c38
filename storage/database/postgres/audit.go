package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/mwanzohq/mwanzo/core"
	"github.com/mwanzohq/mwanzo/core/audit"
)

type auditRepository struct {
	db core.DBExecutor
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(db core.DBExecutor) audit.Repository {
	return &auditRepository{db: db}
}

func (repo *auditRepository) CreateLog(ctx context.Context, log *audit.Log) error {
	log.CreatedAt = time.Now().UTC()
	query := `
	INSERT INTO audit_logs (actor_id, action, entity, entity_id, details, created_at)
	VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := repo.db.GetContext(ctx, &log.ID, query,
		log.ActorID, log.Action, log.Entity, log.EntityID, log.Details, log.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "inserting audit log")
	}
	return nil
}

func (repo *auditRepository) QueryLogs(ctx context.Context, filter *audit.QueryFilter) ([]audit.Log, error) {
	query := `SELECT id, actor_id, action, entity, entity_id, details, created_at FROM audit_logs`
	var (
		conds []string
		args  []interface{}
	)
	limit := 100
	if filter != nil {
		if filter.Entity != "" {
			args = append(args, filter.Entity)
			conds = append(conds, fmt.Sprintf("entity = $%d", len(args)))
		}
		if filter.Action != "" {
			args = append(args, filter.Action)
			conds = append(conds, fmt.Sprintf("action = $%d", len(args)))
		}
		if filter.Limit > 0 {
			limit = filter.Limit
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d", len(args))

	var logs []audit.Log
	if err := repo.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying audit logs")
	}
	return logs, nil
}
