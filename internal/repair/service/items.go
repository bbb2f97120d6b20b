package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	repairdomain "github.com/smallbiznis/repairdesk/internal/repair/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Service) AddItem(ctx context.Context, repairID string, req repairdomain.LineItemInput) (*repairdomain.LineItem, error) {
	orgID, ticketID, err := s.scope(ctx, repairID)
	if err != nil {
		return nil, err
	}
	ticket, err := s.findTicket(ctx, orgID, ticketID)
	if err != nil {
		return nil, err
	}

	item, err := s.buildItem(ctx, *ticket, req, s.clock.Now())
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.InsertItem(ctx, &item); err != nil {
			return err
		}
		return s.refreshTotal(ctx, repo, *ticket)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Service) UpdateItem(ctx context.Context, req repairdomain.UpdateItemRequest) (*repairdomain.LineItem, error) {
	orgID, ticketID, err := s.scope(ctx, req.RepairID)
	if err != nil {
		return nil, err
	}
	ticket, item, err := s.findItem(ctx, orgID, ticketID, req.ItemID)
	if err != nil {
		return nil, err
	}

	candidate := *item
	if req.Description != nil {
		candidate.Description = strings.TrimSpace(*req.Description)
	}
	if req.Quantity != nil {
		candidate.Quantity = *req.Quantity
	}
	if req.UnitPrice != nil {
		candidate.UnitPrice = *req.UnitPrice
	}
	if err := candidate.Validate(); err != nil {
		return nil, err
	}
	candidate.UpdatedAt = s.clock.Now()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateItem(ctx, orgID, item.ID, map[string]any{
			"description": candidate.Description,
			"quantity":    candidate.Quantity,
			"unit_price":  candidate.UnitPrice,
			"updated_at":  candidate.UpdatedAt,
		}); err != nil {
			return err
		}
		return s.refreshTotal(ctx, repo, *ticket)
	})
	if err != nil {
		return nil, err
	}
	return &candidate, nil
}

func (s *Service) RemoveItem(ctx context.Context, repairID, itemID string) error {
	orgID, ticketID, err := s.scope(ctx, repairID)
	if err != nil {
		return err
	}
	ticket, item, err := s.findItem(ctx, orgID, ticketID, itemID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeleteItem(ctx, orgID, item.ID); err != nil {
			return err
		}
		return s.refreshTotal(ctx, repo, *ticket)
	})
}

// CompleteItem marks the work done. Totals are unaffected.
func (s *Service) CompleteItem(ctx context.Context, repairID, itemID string) (*repairdomain.LineItem, error) {
	orgID, ticketID, err := s.scope(ctx, repairID)
	if err != nil {
		return nil, err
	}
	_, item, err := s.findItem(ctx, orgID, ticketID, itemID)
	if err != nil {
		return nil, err
	}
	if item.IsCompleted {
		return item, nil
	}

	item.IsCompleted = true
	item.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateItem(ctx, orgID, item.ID, map[string]any{
		"is_completed": true,
		"updated_at":   item.UpdatedAt,
	}); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) findItem(ctx context.Context, orgID, ticketID snowflake.ID, rawItemID string) (*repairdomain.Ticket, *repairdomain.LineItem, error) {
	ticket, err := s.findTicket(ctx, orgID, ticketID)
	if err != nil {
		return nil, nil, err
	}
	itemID, err := parseID(rawItemID)
	if err != nil {
		return nil, nil, err
	}
	item, err := s.repo.FindItem(ctx, orgID, ticketID, itemID)
	if err != nil {
		return nil, nil, err
	}
	if item == nil {
		return nil, nil, repairdomain.ErrItemNotFound
	}
	return ticket, item, nil
}

// refreshTotal recomputes the live total unless an invoice has fixed it.
func (s *Service) refreshTotal(ctx context.Context, repo repairdomain.Repository, ticket repairdomain.Ticket) error {
	if ticket.CostFinalized {
		s.log.Debug("ticket total finalized, skipping refresh", zap.String("ticket_id", ticket.ID.String()))
		return nil
	}
	items, err := repo.ListItems(ctx, ticket.OrgID, ticket.ID)
	if err != nil {
		return err
	}
	return repo.UpdateTicket(ctx, ticket.OrgID, ticket.ID, map[string]any{
		"total_cost": decimal.NewNullDecimal(repairdomain.Subtotal(items)),
		"updated_at": s.clock.Now(),
	})
}
