package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-wms/internal/activity"
	"github.com/odyssey-erp/odyssey-wms/internal/entities"
	"github.com/odyssey-erp/odyssey-wms/internal/imports"
	"github.com/odyssey-erp/odyssey-wms/internal/invoice"
	"github.com/odyssey-erp/odyssey-wms/internal/orders"
	"github.com/odyssey-erp/odyssey-wms/internal/strapi"
)

// Services holds the domain services shared by the API and the worker.
type Services struct {
	CMS      *strapi.Client
	Activity *activity.Repository
	Orders   *orders.Service
	Imports  *imports.Service
	Entities *entities.Service
}

// ServiceDeps are the connections the services are built on. Enqueuer may
// be nil, in which case bulk actions and imports always run in-line.
type ServiceDeps struct {
	Config   *Config
	Logger   *slog.Logger
	Pool     *pgxpool.Pool
	Redis    *redis.Client
	Observer strapi.Observer
	Enqueuer interface {
		orders.BulkEnqueuer
		imports.Enqueuer
	}
}

// NewServices wires the domain services.
func NewServices(deps ServiceDeps) (*Services, error) {
	cfg := deps.Config
	var opts []strapi.Option
	if deps.Observer != nil {
		opts = append(opts, strapi.WithObserver(deps.Observer))
	}
	cms := strapi.NewClient(cfg.StrapiURL, cfg.StrapiToken, cfg.StrapiTimeout, opts...)

	taxes := invoice.DefaultTaxes()
	if cfg.TaxConfigPath != "" {
		loaded, err := invoice.LoadTaxes(cfg.TaxConfigPath)
		if err != nil {
			return nil, err
		}
		taxes = loaded
	}

	var recorder *activity.Repository
	if deps.Pool != nil {
		recorder = activity.NewRepository(deps.Pool)
	}

	var cache *orders.Cache
	if deps.Redis != nil {
		cache = orders.NewCache(deps.Redis, cfg.CacheTTL)
	}
	orderService := orders.NewService(orders.NewRepository(cms, deps.Logger), cache, orders.Config{
		Taxes:              taxes,
		AsyncBulkThreshold: cfg.BulkAsyncThreshold,
	}, deps.Logger)
	entityService := entities.NewService(cms, entities.DefaultRegistry())

	var importEnqueuer imports.Enqueuer
	if deps.Enqueuer != nil {
		importEnqueuer = deps.Enqueuer
		orderService.SetEnqueuer(deps.Enqueuer)
	}
	var importRecorder imports.Recorder
	if recorder != nil {
		importRecorder = recorder
		orderService.SetRecorder(recorder)
	}
	importService := imports.NewService(imports.Config{
		MaxBytes: cfg.ImportMaxBytes,
		Async:    cfg.AsyncImports,
	}, deps.Logger, importRecorder, importEnqueuer)
	importService.Register(imports.ProductSchema, imports.ProductRows(entityService))
	importService.Register(imports.PackingListSchema, imports.PackingListRows(orderService))

	return &Services{
		CMS:      cms,
		Activity: recorder,
		Orders:   orderService,
		Imports:  importService,
		Entities: entityService,
	}, nil
}
