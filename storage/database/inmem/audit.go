package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/mwanzohq/mwanzo/core/audit"
)

type auditRepository struct {
	db *DB
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(db *DB) audit.Repository {
	return &auditRepository{db: db}
}

func (repo *auditRepository) CreateLog(ctx context.Context, log *audit.Log) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	log.ID = repo.db.nextID()
	log.CreatedAt = time.Now().UTC()
	entry := *log
	repo.db.logs[log.ID] = &entry
	return nil
}

func (repo *auditRepository) QueryLogs(ctx context.Context, filter *audit.QueryFilter) ([]audit.Log, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var logs []audit.Log
	for _, l := range repo.db.logs {
		if filter != nil {
			if filter.Entity != "" && l.Entity != filter.Entity {
				continue
			}
			if filter.Action != "" && l.Action != filter.Action {
				continue
			}
		}
		logs = append(logs, *l)
	}
	// newest first
	sort.Slice(logs, func(i, j int) bool { return logs[i].ID > logs[j].ID })
	if filter != nil && filter.Limit > 0 && len(logs) > filter.Limit {
		logs = logs[:filter.Limit]
	}
	return logs, nil
}
