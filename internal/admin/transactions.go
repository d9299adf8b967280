package admin

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/applywizz/portal/internal/domain"
	svcerrors "github.com/applywizz/portal/internal/errors"
	"github.com/applywizz/portal/internal/storage"
)

// Page size bounds for transaction listings.
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// Transactions lists one page of transactions, newest first.
func (s *Service) Transactions(ctx context.Context, filter domain.TransactionFilter) (domain.Page, error) {
	limit := filter.Limit
	switch {
	case limit <= 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	filter.Search = strings.TrimSpace(filter.Search)
	filter.Limit = limit + 1

	rows, err := s.store.ListTransactions(ctx, filter)
	if err != nil {
		return domain.Page{}, svcerrors.Upstream("Failed to load transactions", err)
	}

	page := domain.Page{Items: rows}
	if len(rows) > limit {
		page.Items = rows[:limit]
		page.NextCursor = domain.CursorFor(page.Items[limit-1]).Encode()
	}
	if page.Items == nil {
		page.Items = []domain.Transaction{}
	}
	return page, nil
}

// TransactionStats aggregates the whole transactions table.
func (s *Service) TransactionStats(ctx context.Context) (domain.Stats, error) {
	stats, err := s.store.TransactionStats(ctx)
	if err != nil {
		return domain.Stats{}, svcerrors.Upstream("Failed to load transaction stats", err)
	}
	return stats, nil
}

// Transaction looks one transaction up by JB id.
func (s *Service) Transaction(ctx context.Context, jbID string) (domain.Transaction, error) {
	jbID = strings.TrimSpace(jbID)
	if jbID == "" {
		return domain.Transaction{}, svcerrors.Validation(svcerrors.FieldErrors{"jb_id": "JB ID is required"})
	}
	tx, err := s.store.GetTransactionByJBID(ctx, jbID)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Transaction{}, svcerrors.NotFound("Transaction not found")
	}
	if err != nil {
		return domain.Transaction{}, svcerrors.Upstream("Failed to load transaction", err)
	}
	return tx, nil
}

// Overview is the dashboard's first screen.
type Overview struct {
	Gateway domain.PaymentSettings `json:"gateway"`
	Pricing domain.Pricing         `json:"pricing"`
	Stats   domain.Stats           `json:"stats"`
}

// Overview loads settings, pricing and stats concurrently.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	var out Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out.Gateway = s.PaymentSettings(gctx)
		return nil
	})
	g.Go(func() error {
		out.Pricing = s.Pricing(gctx)
		return nil
	})
	g.Go(func() error {
		stats, err := s.TransactionStats(gctx)
		out.Stats = stats
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return out, nil
}
