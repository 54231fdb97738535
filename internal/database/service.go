package database

import (
	"github.com/chatguard/chatguard/internal/database/service"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Service provides access to all business logic services.
type Service struct {
	access *service.AccessService
}

// NewService creates a new service instance with all services.
func NewService(db *bun.DB, repository *Repository, logger *zap.Logger) *Service {
	return &Service{
		access: service.NewAccess(db, logger),
	}
}

// Access returns the access service.
func (s *Service) Access() *service.AccessService {
	return s.access
}
