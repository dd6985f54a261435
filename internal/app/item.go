package app

import (
	"context"
	"time"

	"dibs-service/internal/domain/claim"
	"dibs-service/internal/domain/item"
	"dibs-service/internal/domain/shared"
	"dibs-service/internal/domain/unit"
	"dibs-service/internal/ports/inbound"
	"dibs-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// sectionPageSize caps how many items a browse section returns;
// households are small, pagination is not a concern here
const sectionPageSize = 200

// ItemService implements the item lifecycle use cases
type ItemService struct {
	itemRepo    outbound.ItemRepository
	claimRepo   outbound.ClaimRepository
	profileRepo outbound.ProfileRepository
	notifier    outbound.ChangeNotifier
	claimWindow time.Duration
	now         func() time.Time
	logger      zerolog.Logger
}

type ItemServiceParams struct {
	ItemRepo    outbound.ItemRepository
	ClaimRepo   outbound.ClaimRepository
	ProfileRepo outbound.ProfileRepository
	Notifier    outbound.ChangeNotifier
	ClaimWindow time.Duration
	Now         func() time.Time
	Logger      zerolog.Logger
}

// NewItemService creates a new item service
func NewItemService(params ItemServiceParams) *ItemService {
	now := params.Now
	if now == nil {
		now = time.Now
	}
	claimWindow := params.ClaimWindow
	if claimWindow == 0 {
		claimWindow = 7 * 24 * time.Hour
	}

	return &ItemService{
		itemRepo:    params.ItemRepo,
		claimRepo:   params.ClaimRepo,
		profileRepo: params.ProfileRepo,
		notifier:    params.Notifier,
		claimWindow: claimWindow,
		now:         now,
		logger:      params.Logger.With().Str("component", "item_service").Logger(),
	}
}

// CreateItem uploads a new item and opens its claim window. Without an
// explicit deadline the item expires the configured window later, at 7pm.
func (service *ItemService) CreateItem(ctx context.Context, req inbound.CreateItemRequest) (*item.Item, error) {
	service.logger.Info().
		Str("name", req.Name).
		Str("uploaded_by", req.UploadedBy.String()).
		Msg("Attempting to create item")

	if req.Name == "" {
		return nil, shared.ErrItemNameRequired
	}

	uploader, err := service.profileRepo.GetByID(ctx, req.UploadedBy)
	if err != nil {
		service.logger.Error().Err(err).Str("uploaded_by", req.UploadedBy.String()).Msg("Uploader not found")
		return nil, shared.ErrProfileNotFound
	}

	now := service.now()
	expiresAt := item.DefaultExpiresAt(now, service.claimWindow)
	if req.ExpiresAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			service.logger.Error().Err(err).Str("expires_at", req.ExpiresAt).Msg("Invalid expiration time format")
			return nil, shared.ErrInvalidTimeFormat
		}
		if parsed.Before(now) {
			return nil, shared.ErrInvalidExpiresAt
		}
		expiresAt = parsed
	}

	newItem := &item.Item{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		UploadedBy:  uploader.ID,
		Status:      item.StatusActive,
		ExpiresAt:   expiresAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := service.itemRepo.Create(ctx, newItem); err != nil {
		service.logger.Error().Err(err).Str("item_id", newItem.ID.String()).Msg("Failed to save item")
		return nil, err
	}

	service.logger.Info().
		Str("item_id", newItem.ID.String()).
		Time("expires_at", newItem.ExpiresAt).
		Msg("Item created")

	service.publishChange(ctx, outbound.ChangeInsert, newItem.ID)

	return newItem, nil
}

// GetItem retrieves an item by ID
func (service *ItemService) GetItem(ctx context.Context, itemID uuid.UUID) (*item.Item, error) {
	service.logger.Debug().Str("item_id", itemID.String()).Msg("Retrieving item")

	it, err := service.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		service.logger.Error().Err(err).Str("item_id", itemID.String()).Msg("Failed to retrieve item")
		return nil, err
	}

	return it, nil
}

// ListItems retrieves a list of items
func (service *ItemService) ListItems(ctx context.Context, req inbound.ListItemsRequest) ([]*item.Item, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 10
	}

	return service.itemRepo.List(ctx, req.Status, req.Page, req.PageSize)
}

// ListSection retrieves the items a user sees in a browse section:
// everything active, the user's dibs or passes, contested dibs, items
// their unit has won, or the donation pile.
func (service *ItemService) ListSection(ctx context.Context, userID uuid.UUID, section inbound.Section) ([]*item.Item, error) {
	switch section {
	case inbound.SectionMyStuff:
		return service.listWon(ctx, userID)
	case inbound.SectionDonation:
		status := item.StatusDonated
		return service.itemRepo.List(ctx, &status, 1, sectionPageSize)
	case inbound.SectionBrowse, "":
		status := item.StatusActive
		return service.itemRepo.List(ctx, &status, 1, sectionPageSize)
	case inbound.SectionDibbed:
		return service.listByClaimStatus(ctx, userID, claim.StatusInterested, false)
	case inbound.SectionPassed:
		return service.listByClaimStatus(ctx, userID, claim.StatusDeclined, false)
	case inbound.SectionConflicts:
		return service.listByClaimStatus(ctx, userID, claim.StatusInterested, true)
	default:
		return nil, shared.ErrInvalidRequest
	}
}

// listWon returns resolved items won by the user's decision unit. Wins
// are recorded under one partner's id, so both partners match.
func (service *ItemService) listWon(ctx context.Context, userID uuid.UUID) ([]*item.Item, error) {
	status := item.StatusResolved
	resolved, err := service.itemRepo.List(ctx, &status, 1, sectionPageSize)
	if err != nil {
		return nil, err
	}

	profiles, err := service.profileRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	partner := unit.Partner(userID, profiles)

	var won []*item.Item
	for _, it := range resolved {
		if it.WinnerID == nil {
			continue
		}
		if *it.WinnerID == userID || (partner != nil && *it.WinnerID == partner.ID) {
			won = append(won, it)
		}
	}

	return won, nil
}

// listByClaimStatus returns the active items the user holds a claim of
// the given status on, optionally only when the item is contested
func (service *ItemService) listByClaimStatus(ctx context.Context, userID uuid.UUID, status claim.Status, contestedOnly bool) ([]*item.Item, error) {
	active := item.StatusActive
	items, err := service.itemRepo.List(ctx, &active, 1, sectionPageSize)
	if err != nil {
		return nil, err
	}

	userClaims, err := service.claimRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	claimByItem := make(map[uuid.UUID]*claim.Claim, len(userClaims))
	for _, c := range userClaims {
		claimByItem[c.ItemID] = c
	}

	var profiles []*shared.Profile
	if contestedOnly {
		profiles, err = service.profileRepo.List(ctx)
		if err != nil {
			return nil, err
		}
	}

	var matched []*item.Item
	for _, it := range items {
		c, ok := claimByItem[it.ID]
		if !ok || c.Status != status {
			continue
		}

		if contestedOnly {
			itemClaims, err := service.claimRepo.GetByItemID(ctx, it.ID)
			if err != nil {
				return nil, err
			}
			if len(unit.GroupInterested(itemClaims, profiles)) <= 1 {
				continue
			}
		}

		matched = append(matched, it)
	}

	return matched, nil
}

func (service *ItemService) publishChange(ctx context.Context, kind outbound.ChangeKind, itemID uuid.UUID) {
	if service.notifier == nil {
		return
	}

	change := outbound.Change{
		Table:     outbound.TableItems,
		Kind:      kind,
		RecordID:  itemID,
		Timestamp: service.now().Unix(),
	}

	if err := service.notifier.Publish(ctx, change); err != nil {
		service.logger.Error().Err(err).Str("item_id", itemID.String()).Msg("Failed to publish change notification")
	}
}
