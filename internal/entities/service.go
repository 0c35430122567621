package entities

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-wms/internal/documents"
	"github.com/odyssey-erp/odyssey-wms/internal/strapi"
)

// CMS is the subset of the CMS client used for entities.
type CMS interface {
	List(ctx context.Context, collection string, q *strapi.Query, dest any) (strapi.Meta, error)
	Get(ctx context.Context, collection, id string, q *strapi.Query, dest any) error
	Create(ctx context.Context, collection string, payload any, dest any) error
	Update(ctx context.Context, collection, id string, payload any, dest any) error
	Delete(ctx context.Context, collection, id string) error
}

// ListParams narrows a listing.
type ListParams struct {
	Search   string
	Page     int
	PageSize int
	Sort     string
}

// Service runs generic CRUD for every registered entity kind.
type Service struct {
	cms      CMS
	registry Registry
	validate *validator.Validate
}

// NewService builds the service over the CMS with the given kinds.
func NewService(cms CMS, registry Registry) *Service {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Service{cms: cms, registry: registry, validate: validator.New()}
}

// Config exposes the strategy object of a kind, e.g. for form rendering.
func (s *Service) Config(name string) (Config, error) {
	return s.registry.Lookup(name)
}

// List returns one page of records.
func (s *Service) List(ctx context.Context, name string, params ListParams) ([]Record, *strapi.Pagination, error) {
	cfg, err := s.registry.Lookup(name)
	if err != nil {
		return nil, nil, err
	}
	q := strapi.NewQuery().Search(params.Search, cfg.SearchFields...).Page(params.Page, params.PageSize)
	if params.Sort != "" {
		q.Sort(params.Sort)
	} else {
		q.Sort(cfg.DefaultSort)
	}
	var records []Record
	meta, err := s.cms.List(ctx, cfg.Collection, q, &records)
	if err != nil {
		return nil, nil, fmt.Errorf("list %s: %w", name, err)
	}
	return records, meta.Pagination, nil
}

// Get returns one record.
func (s *Service) Get(ctx context.Context, name string, id int64) (Record, error) {
	cfg, err := s.registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := s.cms.Get(ctx, cfg.Collection, strconv.FormatInt(id, 10), nil, &rec); err != nil {
		return nil, mapErr(err)
	}
	return rec, nil
}

// Create validates and stores a new record.
func (s *Service) Create(ctx context.Context, name string, rec Record) (Record, error) {
	cfg, err := s.registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	clean, err := cfg.Clean(s.validate, rec, false)
	if err != nil {
		return nil, err
	}
	var created Record
	if err := s.cms.Create(ctx, cfg.Collection, clean, &created); err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}
	return created, nil
}

// Update validates and applies a partial update.
func (s *Service) Update(ctx context.Context, name string, id int64, rec Record) (Record, error) {
	cfg, err := s.registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	clean, err := cfg.Clean(s.validate, rec, true)
	if err != nil {
		return nil, err
	}
	var updated Record
	if err := s.cms.Update(ctx, cfg.Collection, strconv.FormatInt(id, 10), clean, &updated); err != nil {
		return nil, mapErr(err)
	}
	return updated, nil
}

// Delete removes a record.
func (s *Service) Delete(ctx context.Context, name string, id int64) error {
	cfg, err := s.registry.Lookup(name)
	if err != nil {
		return err
	}
	if err := s.cms.Delete(ctx, cfg.Collection, strconv.FormatInt(id, 10)); err != nil {
		return mapErr(err)
	}
	return nil
}

// CreateProduct stores a catalogue product, as done by spreadsheet imports.
func (s *Service) CreateProduct(ctx context.Context, p documents.Product) error {
	_, err := s.Create(ctx, Products.Name, Record{
		"code": p.Code,
		"name": p.Name,
		"unit": p.Unit,
	})
	return err
}

func mapErr(err error) error {
	if errors.Is(err, strapi.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
