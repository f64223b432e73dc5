package user

import (
	"context"
	"fmt"

	"github.com/bazaarhq/bazaar-backend/pkg/apperror"
	"github.com/bazaarhq/bazaar-backend/pkg/cache"
	"github.com/google/uuid"
)

type service struct {
	repo  Repository
	cache *cache.Cache
}

// NewService creates a new user service.
func NewService(repo Repository, c *cache.Cache) Service {
	return &service{repo: repo, cache: c}
}

func (s *service) Me(ctx context.Context, userID string) (*User, error) {
	return s.repo.GetByID(ctx, userID)
}

func (s *service) UpdateProfile(ctx context.Context, userID string, firstName, lastName, avatarURL string) (*User, error) {
	current, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := Profile{
		Email:     current.Email,
		FirstName: firstName,
		LastName:  lastName,
		AvatarURL: avatarURL,
		Role:      current.Role,
	}
	updated, err := s.repo.UpdateProfile(ctx, current.ExternalID, p)
	if err != nil {
		return nil, err
	}
	s.cache.DeletePattern(ctx, cache.UserPattern(userID))
	return updated, nil
}

func (s *service) ListAddresses(ctx context.Context, userID string) ([]*Address, error) {
	return s.repo.ListAddresses(ctx, userID)
}

func (s *service) AddAddress(ctx context.Context, a *Address) (*Address, error) {
	if a.Kind != "billing" && a.Kind != "shipping" {
		return nil, apperror.New(apperror.KindValidation, "kind must be billing or shipping")
	}
	if a.Line1 == "" || a.City == "" || a.PostalCode == "" || a.Country == "" {
		return nil, apperror.New(apperror.KindValidation, "line1, city, postal_code, and country are required")
	}
	a.ID = uuid.New()
	if err := s.repo.CreateAddress(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *service) CreateFromIdentity(ctx context.Context, externalID string, p Profile) (*User, bool, error) {
	if externalID == "" {
		return nil, false, apperror.New(apperror.KindValidation, "external id is required")
	}
	u := &User{
		ID:         uuid.New(),
		ExternalID: externalID,
		Email:      p.Email,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		AvatarURL:  p.AvatarURL,
		Role:       p.Role,
	}
	stored, created, err := s.repo.UpsertByExternalID(ctx, u)
	if err != nil {
		return nil, false, fmt.Errorf("create user from identity event: %w", err)
	}
	if stored.Role == RoleCustomer {
		if err := s.repo.EnsureCustomerProfile(ctx, stored.ID.String()); err != nil {
			return nil, false, err
		}
	}
	return stored, created, nil
}

func (s *service) UpdateFromIdentity(ctx context.Context, externalID string, p Profile) (*User, error) {
	u, err := s.repo.UpdateProfile(ctx, externalID, p)
	if err != nil {
		return nil, err
	}
	s.cache.DeletePattern(ctx, cache.UserPattern(u.ID.String()))
	return u, nil
}

func (s *service) DeactivateFromIdentity(ctx context.Context, externalID string) (*User, error) {
	u, err := s.repo.Deactivate(ctx, externalID)
	if err != nil {
		return nil, err
	}
	s.cache.DeletePattern(ctx, cache.UserPattern(u.ID.String()))
	return u, nil
}

func (s *service) RecordLogin(ctx context.Context, externalID string) (*User, error) {
	return s.repo.TouchLastLogin(ctx, externalID)
}
