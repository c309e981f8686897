// Package card caches the payment cards issued against accounts.
package card

import (
	"context"
	"errors"
	"fmt"

	"finsync/internal/domain/cache"
	"finsync/internal/domain/reconcile"
	"finsync/internal/models"
)

var (
	ErrCardNotFound     = errors.New("card not found")
	ErrAccountRequired  = errors.New("account ID is required")
	ErrNicknameTooLong  = errors.New("nickname must be 64 characters or less")
	ErrUnknownCardState = errors.New("unknown card status")
)

const maxNicknameLength = 64

var cardStatuses = map[string]bool{
	"ACTIVE":   true,
	"INACTIVE": true,
	"LOCKED":   true,
	"LOST":     true,
	"STOLEN":   true,
}

// Service contains the card refresh and mutation operations.
type Service struct {
	cards  *reconcile.Collection[models.Card]
	remote reconcile.RemoteCollection[models.Card]
}

func NewService(engine *reconcile.Engine, remote reconcile.RemoteCollection[models.Card]) *Service {
	return &Service{
		cards:  reconcile.NewCollection(reconcile.Bind(engine, cache.CardSchema, engine.Stores.Cards, remote)),
		remote: remote,
	}
}

func validateRequest(req models.CardRequest, creating bool) error {
	if creating && req.AccountID == 0 {
		return ErrAccountRequired
	}
	if len(req.Nickname) > maxNicknameLength {
		return ErrNicknameTooLong
	}
	if req.Status != "" && !cardStatuses[req.Status] {
		return fmt.Errorf("%w %q", ErrUnknownCardState, req.Status)
	}
	return nil
}

func (s *Service) Card(ctx context.Context, id models.ID) (models.Card, error) {
	c, ok, err := s.cards.FetchOne(ctx, id)
	if err != nil {
		return c, err
	}
	if !ok {
		return c, fmt.Errorf("card %d: %w", id, ErrCardNotFound)
	}
	return c, nil
}

// Cards reads the cached cards, optionally those of one account.
func (s *Service) Cards(ctx context.Context, accountID models.ID) ([]models.Card, error) {
	var p cache.Predicate
	if accountID != 0 {
		p = cache.Where(cache.ColAccountID, accountID)
	}
	return s.cards.FetchAll(ctx, p)
}

// RefreshCards replaces the cached cards with the remote list.
func (s *Service) RefreshCards(ctx context.Context) reconcile.Result {
	return s.cards.RefreshAll(ctx)
}

func (s *Service) RefreshCard(ctx context.Context, id models.ID) reconcile.Result {
	return s.cards.RefreshOne(ctx, id)
}

// CreateCard requests a new card on an account.
func (s *Service) CreateCard(ctx context.Context, req models.CardRequest) reconcile.Result {
	if err := validateRequest(req, true); err != nil {
		return reconcile.Failed(reconcile.ValidationError("cards.create", err))
	}
	return s.cards.Mutate(ctx, func(ctx context.Context) (*models.Card, error) {
		return s.remote.Create(ctx, req)
	})
}

// UpdateCard changes the status or nickname of a card.
func (s *Service) UpdateCard(ctx context.Context, id models.ID, req models.CardRequest) reconcile.Result {
	if err := validateRequest(req, false); err != nil {
		return reconcile.Failed(reconcile.ValidationError("cards.update", err))
	}
	return s.cards.Mutate(ctx, func(ctx context.Context) (*models.Card, error) {
		return s.remote.Update(ctx, id, req)
	})
}
