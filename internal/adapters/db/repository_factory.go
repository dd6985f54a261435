package db

import (
	"dibs-service/internal/ports/outbound"
)

// RepositoryFactory creates and manages all database repositories
type RepositoryFactory struct {
	conn *Connection
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(conn *Connection) *RepositoryFactory {
	return &RepositoryFactory{conn: conn}
}

// GetItemRepository returns the item repository
func (f *RepositoryFactory) GetItemRepository() outbound.ItemRepository {
	return NewItemRepository(f.conn)
}

// GetClaimRepository returns the claim repository
func (f *RepositoryFactory) GetClaimRepository() outbound.ClaimRepository {
	return NewClaimRepository(f.conn)
}

// GetProfileRepository returns the profile repository
func (f *RepositoryFactory) GetProfileRepository() outbound.ProfileRepository {
	return NewProfileRepository(f.conn)
}
