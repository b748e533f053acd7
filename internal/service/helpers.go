package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JINL2/mystorecluade-sub001/internal/db"
	"github.com/JINL2/mystorecluade-sub001/internal/domain"
	"github.com/JINL2/mystorecluade-sub001/internal/repository"
)

// fail tags err with the operation's failure code. Missing rows surface as
// NOT_FOUND whatever the operation.
func fail(code domain.ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	if domain.CodeOf(err) == "" && errors.Is(err, repository.ErrNotFound) {
		return domain.Fail(domain.CodeNotFound, op, err)
	}
	return domain.Fail(code, op, err)
}

// loadAggregate reads the open contributions of a session and attaches
// catalog names. It runs on whatever connection conn is, so callers inside a
// transaction pass the transaction.
func loadAggregate(ctx context.Context, conn db.DBTX, sessionID string) (*domain.Aggregate, error) {
	open, err := repository.NewSQLiteContributionRepo(conn).ListOpen(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	agg := repository.BuildAggregate(sessionID, open)

	products := repository.NewSQLiteProductRepo(conn)
	for _, key := range agg.Keys() {
		p, err := products.Get(ctx, key)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return nil, err
		}
		agg.Describe(key, p.Name, p.VariantName, p.SKU)
	}
	return agg, nil
}

// coalesceItems sums duplicate keys of a batch, keeping first-seen order.
func coalesceItems(items []domain.ItemInput) []domain.ItemInput {
	index := make(map[domain.ItemKey]int, len(items))
	out := make([]domain.ItemInput, 0, len(items))
	for _, it := range items {
		if i, ok := index[it.Key()]; ok {
			out[i].Quantity += it.Quantity
			out[i].QuantityRejected += it.QuantityRejected
			continue
		}
		index[it.Key()] = len(out)
		out = append(out, it)
	}
	return out
}

// submissionNumber formats PREFIX-YYYYMMDD-XXXXXX.
func submissionNumber(t domain.SessionType, now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
	return fmt.Sprintf("%s-%s-%s", t.SubmissionPrefix(), now.Format("20060102"), suffix)
}

func defaultSessionName(t domain.SessionType, now time.Time) string {
	return fmt.Sprintf("%s %s", t, now.Format("2006-01-02 15:04"))
}
