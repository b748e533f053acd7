package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JINL2/mystorecluade-sub001/internal/app"
	"github.com/JINL2/mystorecluade-sub001/internal/db"
	"github.com/JINL2/mystorecluade-sub001/internal/domain"
	"github.com/JINL2/mystorecluade-sub001/internal/repository"
	"github.com/JINL2/mystorecluade-sub001/internal/validate"
)

type submitService struct {
	submissions repository.SubmissionRepo
	uow         db.UnitOfWork
	observer    UseCaseObserver
}

func NewSubmitService(database *sql.DB, uow db.UnitOfWork, observers ...UseCaseObserver) SubmitService {
	return &submitService{
		submissions: repository.NewSQLiteSubmissionRepo(database),
		uow:         uow,
		observer:    useCaseObserverOrNoop(observers),
	}
}

// SubmitSession records the reviewed item list as one submission. Receiving
// sessions move stock by the accepted quantity of every line. The open
// contributions are closed into the submission so the next round starts
// empty, and a final submission locks the session.
func (s *submitService) SubmitSession(ctx context.Context, req app.SubmitRequest) (res *domain.SubmitResult, err error) {
	const op = "submit session"
	startedAt := time.Now().UTC()
	fields := map[string]any{"session_id": req.SessionID, "user_id": req.UserID, "is_final": req.IsFinal}
	defer func() { observe(ctx, s.observer, "submit-session", startedAt, fields, &err) }()

	if err = validate.ValidateSubmitBatch(req.Items).Err(op); err != nil {
		return nil, err
	}
	items := coalesceItems(req.Items)

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		sessions := repository.NewSQLiteSessionRepo(tx)
		sess, err := sessions.GetByID(ctx, req.SessionID)
		if err != nil {
			return err
		}
		if err := sess.CanContribute(); err != nil {
			return err
		}

		res = &domain.SubmitResult{
			SubmissionID:    uuid.New().String(),
			ReceivingNumber: submissionNumber(sess.Type, startedAt),
			SessionID:       sess.ID,
			IsFinal:         req.IsFinal,
			TotalCost:       decimal.Zero,
			SubmittedBy:     req.UserID,
			SubmittedAt:     startedAt.Truncate(time.Second),
		}

		products := repository.NewSQLiteProductRepo(tx)
		stock := repository.NewSQLiteStockRepo(tx)
		lines := make([]repository.SubmissionLine, 0, len(items))
		for i, it := range items {
			p, err := products.Get(ctx, it.Key())
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return fmt.Errorf("item %d: unknown product %s", i+1, it.Key())
				}
				return err
			}
			accepted := it.Quantity - it.QuantityRejected
			res.ItemsCount++
			res.TotalQuantity += it.Quantity
			res.TotalRejected += it.QuantityRejected
			res.TotalCost = res.TotalCost.Add(p.UnitCost.Mul(decimal.NewFromInt(int64(accepted))))

			line := repository.SubmissionLine{Key: it.Key(), Quantity: it.Quantity, QuantityRejected: it.QuantityRejected}
			if sess.Type == domain.SessionReceiving {
				before, err := stock.Get(ctx, sess.StoreID, it.Key())
				if err != nil {
					return err
				}
				line.Stock = domain.StockSnapshot{
					Key:              it.Key(),
					ProductName:      domain.SessionItem{ProductName: p.Name, VariantName: p.VariantName}.DisplayName(),
					SKU:              p.SKU,
					QuantityBefore:   before,
					QuantityReceived: accepted,
					QuantityAfter:    before + accepted,
				}
				if err := stock.Set(ctx, sess.StoreID, it.Key(), line.Stock.QuantityAfter); err != nil {
					return err
				}
				res.StockChanges = append(res.StockChanges, line.Stock)
			}
			lines = append(lines, line)
		}

		txSubmissions := repository.NewSQLiteSubmissionRepo(tx)
		if err := txSubmissions.Create(ctx, res); err != nil {
			return err
		}
		for _, line := range lines {
			if err := txSubmissions.AddLine(ctx, res.SubmissionID, line); err != nil {
				return err
			}
		}
		if _, err := repository.NewSQLiteContributionRepo(tx).CloseOpen(ctx, sess.ID, res.SubmissionID); err != nil {
			return err
		}
		if req.IsFinal {
			sess.Finalize(startedAt)
			if err := sessions.Update(ctx, sess); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fail(domain.CodeSubmitFailed, op, err)
	}
	fields["number"] = res.ReceivingNumber
	fields["needs_display"] = len(res.NeedsDisplay())
	return res, nil
}

func (s *submitService) ListSubmissions(ctx context.Context, sessionID string) ([]*domain.SubmitResult, error) {
	subs, err := s.submissions.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fail(domain.CodeLoadFailed, "list submissions", err)
	}
	return subs, nil
}
