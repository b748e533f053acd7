package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/JINL2/mystorecluade-sub001/internal/db"
	"github.com/JINL2/mystorecluade-sub001/internal/domain"
	"github.com/JINL2/mystorecluade-sub001/internal/reconcile"
	"github.com/JINL2/mystorecluade-sub001/internal/repository"
)

type reconcileService struct {
	db       *sql.DB
	uow      db.UnitOfWork
	merges   repository.MergeRepo
	observer UseCaseObserver
}

func NewReconcileService(database *sql.DB, uow db.UnitOfWork, observers ...UseCaseObserver) ReconcileService {
	return &reconcileService{
		db:       database,
		uow:      uow,
		merges:   repository.NewSQLiteMergeRepo(database),
		observer: useCaseObserverOrNoop(observers),
	}
}

func (s *reconcileService) CompareSessions(ctx context.Context, sessionIDA, sessionIDB, userID string) (res *domain.ComparisonResult, err error) {
	const op = "compare sessions"
	startedAt := time.Now().UTC()
	fields := map[string]any{"session_a": sessionIDA, "session_b": sessionIDB, "user_id": userID}
	defer func() { observe(ctx, s.observer, "compare-sessions", startedAt, fields, &err) }()

	sessions := repository.NewSQLiteSessionRepo(s.db)
	sessA, err := sessions.GetByID(ctx, sessionIDA)
	if err != nil {
		return nil, fail(domain.CodeCompareFailed, op, err)
	}
	sessB, err := sessions.GetByID(ctx, sessionIDB)
	if err != nil {
		return nil, fail(domain.CodeCompareFailed, op, err)
	}
	aggA, err := loadAggregate(ctx, s.db, sessionIDA)
	if err != nil {
		return nil, fail(domain.CodeCompareFailed, op, err)
	}
	aggB, err := loadAggregate(ctx, s.db, sessionIDB)
	if err != nil {
		return nil, fail(domain.CodeCompareFailed, op, err)
	}

	res = reconcile.Compare(aggA, aggB)
	res.SessionA.SessionName, res.SessionA.StoreID = sessA.Name, sessA.StoreID
	res.SessionB.SessionName, res.SessionB.StoreID = sessB.Name, sessB.StoreID
	fields["matched"] = res.Summary.TotalMatched
	fields["diff"] = res.Summary.QuantityDiffCount
	return res, nil
}

// MergeSessions copies every open contribution of source into target,
// carries over source members the target lacks, deactivates source and logs
// the merge. All of it happens in one transaction.
func (s *reconcileService) MergeSessions(ctx context.Context, targetID, sourceID, userID string) (out *domain.MergeOutcome, err error) {
	const op = "merge sessions"
	startedAt := time.Now().UTC()
	fields := map[string]any{"target_id": targetID, "source_id": sourceID, "user_id": userID}
	defer func() { observe(ctx, s.observer, "merge-sessions", startedAt, fields, &err) }()

	if targetID == sourceID {
		return nil, domain.Conflict(domain.CodeMergeFailed, op, "cannot merge a session into itself")
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		sessions := repository.NewSQLiteSessionRepo(tx)
		target, err := sessions.GetByID(ctx, targetID)
		if err != nil {
			return err
		}
		source, err := sessions.GetByID(ctx, sourceID)
		if err != nil {
			return err
		}
		if !target.IsActive {
			return domain.Conflict(domain.CodeTargetInactive, op, "target session is not active")
		}
		if !source.IsActive {
			return domain.Conflict(domain.CodeSessionInactive, op, "source session is no longer active")
		}
		if !target.SameShipment(source) {
			return domain.Conflict(domain.CodeMergeFailed, op, "sessions belong to different stores, types or shipments")
		}

		contributions := repository.NewSQLiteContributionRepo(tx)
		targetRows, err := contributions.ListOpen(ctx, targetID)
		if err != nil {
			return err
		}
		sourceRows, err := contributions.ListOpen(ctx, sourceID)
		if err != nil {
			return err
		}
		_, outcome := reconcile.Merge(
			repository.BuildAggregate(targetID, targetRows),
			repository.BuildAggregate(sourceID, sourceRows),
		)

		for _, c := range sourceRows {
			from := sourceID
			if err := contributions.Create(ctx, &repository.Contribution{
				ID:               uuid.New().String(),
				SessionID:        targetID,
				Key:              c.Key,
				UserID:           c.UserID,
				Quantity:         c.Quantity,
				QuantityRejected: c.QuantityRejected,
				MergedFrom:       &from,
				CreatedAt:        startedAt,
			}); err != nil {
				return err
			}
		}

		members := repository.NewSQLiteMemberRepo(tx)
		targetMembers, err := members.ListBySession(ctx, targetID)
		if err != nil {
			return err
		}
		sourceMembers, err := members.ListBySession(ctx, sourceID)
		if err != nil {
			return err
		}
		present := make(map[string]bool, len(targetMembers))
		for _, m := range targetMembers {
			present[m.UserID] = true
		}
		outcome.TargetMembersBefore = len(targetMembers)
		for _, m := range sourceMembers {
			if present[m.UserID] {
				continue
			}
			present[m.UserID] = true
			if err := members.Add(ctx, &domain.Member{
				ID:        uuid.New().String(),
				SessionID: targetID,
				UserID:    m.UserID,
				UserName:  m.UserName,
				JoinedAt:  startedAt,
				IsActive:  true,
			}); err != nil {
				return err
			}
			outcome.MembersAdded++
		}
		outcome.TargetMembersAfter = outcome.TargetMembersBefore + outcome.MembersAdded

		source.Deactivate(startedAt)
		if err := sessions.Update(ctx, source); err != nil {
			return err
		}

		if err := repository.NewSQLiteMergeRepo(tx).Create(ctx, &domain.MergeRecord{
			ID:              uuid.New().String(),
			TargetSessionID: targetID,
			SourceSessionID: sourceID,
			ItemsCopied:     outcome.ItemsCopied,
			QuantityCopied:  outcome.QuantityCopied,
			MergedBy:        userID,
			MergedAt:        startedAt,
		}); err != nil {
			return err
		}
		out = &outcome
		return nil
	})
	if err != nil {
		return nil, fail(domain.CodeMergeFailed, op, err)
	}
	fields["items_copied"] = out.ItemsCopied
	fields["quantity_copied"] = out.QuantityCopied
	return out, nil
}

func (s *reconcileService) MergeHistory(ctx context.Context, sessionID string) ([]domain.MergeRecord, error) {
	records, err := s.merges.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fail(domain.CodeLoadFailed, "merge history", err)
	}
	return records, nil
}
