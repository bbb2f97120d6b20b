package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/repairdesk/internal/inventory/domain"
	"github.com/smallbiznis/repairdesk/internal/orgcontext"
	dbpkg "github.com/smallbiznis/repairdesk/pkg/db"
	"github.com/smallbiznis/repairdesk/pkg/db/option"
	pkgrepository "github.com/smallbiznis/repairdesk/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Store pkgrepository.Repository[domain.Item]
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	store pkgrepository.Repository[domain.Item]
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("inventory.service"),
		genID: p.GenID,
		store: p.Store,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Item, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.Item{}, domain.ErrInvalidOrganization
	}

	sku := strings.ToUpper(strings.TrimSpace(req.SKU))
	if sku == "" {
		return domain.Item{}, domain.ErrInvalidSKU
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Item{}, domain.ErrInvalidName
	}
	if req.UnitPrice.IsNegative() {
		return domain.Item{}, domain.ErrInvalidPrice
	}
	if req.QuantityOnHand < 0 {
		return domain.Item{}, domain.ErrInvalidQuantity
	}

	now := time.Now().UTC()
	item := domain.Item{
		ID:             s.genID.Generate(),
		OrgID:          orgID,
		SKU:            sku,
		Name:           name,
		UnitPrice:      req.UnitPrice,
		QuantityOnHand: req.QuantityOnHand,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.Create(ctx, &item); err != nil {
		if dbpkg.IsDuplicateKeyErr(err) {
			return domain.Item{}, domain.ErrDuplicateSKU
		}
		return domain.Item{}, err
	}
	return item, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Item, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}
	items, err := s.store.Find(ctx, &domain.Item{OrgID: orgID},
		option.WithSortBy(option.QuerySortBy{Field: "sku", Allow: map[string]bool{"sku": true}}),
	)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Item, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Item, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.Item{}, domain.ErrInvalidOrganization
	}
	itemID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || itemID == 0 {
		return domain.Item{}, domain.ErrInvalidID
	}
	return s.GetForOrg(ctx, orgID, itemID)
}

func (s *Service) GetForOrg(ctx context.Context, orgID, id snowflake.ID) (domain.Item, error) {
	item, err := s.store.FindOne(ctx, &domain.Item{OrgID: orgID, ID: id})
	if err != nil {
		return domain.Item{}, err
	}
	if item == nil {
		return domain.Item{}, domain.ErrNotFound
	}
	return *item, nil
}

// AdjustStock adds delta to the on-hand quantity; stock never goes negative.
func (s *Service) AdjustStock(ctx context.Context, id string, delta int) (domain.Item, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return domain.Item{}, err
	}

	res := s.db.WithContext(ctx).Exec(
		`UPDATE inventory_items
		 SET quantity_on_hand = quantity_on_hand + ?, updated_at = ?
		 WHERE org_id = ? AND id = ? AND quantity_on_hand + ? >= 0`,
		delta,
		time.Now().UTC(),
		item.OrgID,
		item.ID,
		delta,
	)
	if res.Error != nil {
		return domain.Item{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.Item{}, domain.ErrInvalidQuantity
	}
	return s.GetForOrg(ctx, item.OrgID, item.ID)
}
