package audit

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mwanzohq/mwanzo/core"
)

// Log is a record of a sensitive mutation: who did what to which entity.
type Log struct {
	ID        int         `db:"id" json:"id"`
	ActorID   null.String `db:"actor_id" json:"actor_id"`
	Action    string      `db:"action" json:"action"`
	Entity    string      `db:"entity" json:"entity"`
	EntityID  string      `db:"entity_id" json:"entity_id"`
	Details   null.String `db:"details" json:"details,omitempty"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}

type QueryFilter struct {
	Entity string `query:"entity"`
	Action string `query:"action"`
	Limit  int    `query:"limit"`
}

type (
	Repository interface {
		CreateLog(ctx context.Context, log *Log) error
		QueryLogs(ctx context.Context, filter *QueryFilter) ([]Log, error)
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Record appends an audit entry. Audit failures are logged and swallowed:
// the mutation being audited must not fail because the trail is unavailable.
func (svc *Service) Record(ctx context.Context, actorID, action, entity, entityID, details string) {
	log := Log{
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
	}
	if actorID != "" {
		log.ActorID = null.StringFrom(actorID)
	}
	if details != "" {
		log.Details = null.StringFrom(details)
	}
	if err := svc.repo.CreateLog(ctx, &log); err != nil {
		svc.logger.Error("audit: failed to record entry", errors.Wrap(err, "creating audit log"),
			"action", action, "entity", entity, "entity_id", entityID)
	}
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Log, error) {
	if filter != nil && (filter.Limit <= 0 || filter.Limit > 500) {
		filter.Limit = 100
	}
	return svc.repo.QueryLogs(ctx, filter)
}
