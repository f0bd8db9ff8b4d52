// Package registry writes catalog entities and keeps the cross-entity
// references consistent. Services list their Microservices and Microservices
// list their Functions.
//
// Each membership change is a single-document AddToSet or Pull on the parent,
// written after (or, for deletes, before) the child document. The two writes
// are not transactional. A failed parent write is logged as a consistency
// warning and the primary operation still succeeds.
package registry

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"meshmeta/internal/gateway/entity"
	"meshmeta/internal/gateway/logging"
	"meshmeta/internal/gateway/repository/docstore"
	"meshmeta/internal/gateway/repository/entitystore"
	"meshmeta/internal/gateway/service/deploy"
)

type Service struct {
	stores   *entitystore.Stores
	limits   entity.Limits
	deployer deploy.Deployer
	log      *zap.SugaredLogger

	now   func() time.Time
	newID func() string
}

func New(stores *entitystore.Stores, limits entity.Limits, deployer deploy.Deployer, log *zap.SugaredLogger) *Service {
	if deployer == nil {
		deployer = deploy.Noop{}
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Service{
		stores:   stores,
		limits:   limits,
		deployer: deployer,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

func (s *Service) Limits() entity.Limits { return s.limits }

func (s *Service) idOrNew(id string) string {
	if id != "" {
		return id
	}
	return s.newID()
}

// addMember adds child to the parent's list field. It is idempotent.
func addMember[T any](ctx context.Context, store *entitystore.Store[T], parent, field, child string) error {
	_, err := store.Update(ctx, parent, docstore.Update{AddToSet: docstore.Fields{field: child}})
	return err
}

func removeMember[T any](ctx context.Context, store *entitystore.Store[T], parent, field, child string) error {
	_, err := store.Update(ctx, parent, docstore.Update{Pull: docstore.Fields{field: child}})
	return err
}

// warnMembership logs a failed parent-list write. parentKind names the
// parent's key field in the log record.
func (s *Service) warnMembership(op, childKind, childID, parentKind, parentID string, err error) {
	if errors.Is(err, entity.ErrNotFound) {
		s.log.Warnw("parent not found; child left unlinked",
			"op", op,
			childKind+"_id", childID,
			parentKind+"_id", parentID,
		)
		return
	}
	s.log.Warnw("parent membership update failed",
		"op", op,
		childKind+"_id", childID,
		parentKind+"_id", parentID,
		"error", err,
	)
}
