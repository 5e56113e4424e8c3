package service

import (
	"context"

	"github.com/serenity-spa/spachat/internal/model"
)

type ServiceLister interface {
	List(ctx context.Context) ([]model.Service, error)
}

// CatalogService serves the treatment catalog the chat widget loads alongside
// the business config.
type CatalogService struct {
	services ServiceLister
}

func NewCatalogService(services ServiceLister) *CatalogService {
	return &CatalogService{services: services}
}

func (s *CatalogService) List(ctx context.Context) ([]model.Service, error) {
	return s.services.List(ctx)
}
