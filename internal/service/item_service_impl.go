package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JINL2/mystorecluade-sub001/internal/app"
	"github.com/JINL2/mystorecluade-sub001/internal/db"
	"github.com/JINL2/mystorecluade-sub001/internal/domain"
	"github.com/JINL2/mystorecluade-sub001/internal/repository"
	"github.com/JINL2/mystorecluade-sub001/internal/validate"
)

type itemService struct {
	db       *sql.DB
	uow      db.UnitOfWork
	observer UseCaseObserver
}

func NewItemService(database *sql.DB, uow db.UnitOfWork, observers ...UseCaseObserver) ItemService {
	return &itemService{db: database, uow: uow, observer: useCaseObserverOrNoop(observers)}
}

// AddItems appends one contribution row per input line. Non-members are
// joined on their first add.
func (s *itemService) AddItems(ctx context.Context, sessionID, userID string, items []domain.ItemInput) (err error) {
	const op = "add items"
	startedAt := time.Now().UTC()
	fields := map[string]any{"session_id": sessionID, "user_id": userID, "items": len(items)}
	defer func() { observe(ctx, s.observer, "add-items", startedAt, fields, &err) }()

	if err = validate.ValidateItemBatch(items).Err(op); err != nil {
		return err
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		sess, err := repository.NewSQLiteSessionRepo(tx).GetByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if err := sess.CanContribute(); err != nil {
			return err
		}

		members := repository.NewSQLiteMemberRepo(tx)
		if _, err := members.Get(ctx, sessionID, userID); err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			if err := members.Add(ctx, &domain.Member{
				ID:        uuid.New().String(),
				SessionID: sessionID,
				UserID:    userID,
				UserName:  userID,
				JoinedAt:  startedAt,
				IsActive:  true,
			}); err != nil {
				return err
			}
			fields["auto_joined"] = true
		}

		products := repository.NewSQLiteProductRepo(tx)
		contributions := repository.NewSQLiteContributionRepo(tx)
		for i, it := range items {
			if _, err := products.Get(ctx, it.Key()); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return fmt.Errorf("item %d: unknown product %s", i+1, it.Key())
				}
				return err
			}
			if err := contributions.Create(ctx, &repository.Contribution{
				ID:               uuid.New().String(),
				SessionID:        sessionID,
				Key:              it.Key(),
				UserID:           userID,
				Quantity:         it.Quantity,
				QuantityRejected: it.QuantityRejected,
				CreatedAt:        startedAt,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	return fail(domain.CodeSaveFailed, op, err)
}

func (s *itemService) GetItems(ctx context.Context, sessionID, userID string) (res *app.ItemsResult, err error) {
	const op = "get items"
	startedAt := time.Now().UTC()
	fields := map[string]any{"session_id": sessionID, "user_id": userID}
	defer func() { observe(ctx, s.observer, "get-items", startedAt, fields, &err) }()

	if _, err = repository.NewSQLiteSessionRepo(s.db).GetByID(ctx, sessionID); err != nil {
		return nil, fail(domain.CodeLoadFailed, op, err)
	}
	agg, err := loadAggregate(ctx, s.db, sessionID)
	if err != nil {
		return nil, fail(domain.CodeLoadFailed, op, err)
	}
	fields["products"] = agg.Len()
	return &app.ItemsResult{
		SessionID:    sessionID,
		Items:        agg.Items(),
		Participants: agg.Participants(),
		Summary:      agg.Totals(),
	}, nil
}
