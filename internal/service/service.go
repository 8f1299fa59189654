package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iurnickita/vendussync/internal/lock"
	"github.com/iurnickita/vendussync/internal/model"
	"github.com/iurnickita/vendussync/internal/saft"
	"github.com/iurnickita/vendussync/internal/service/config"
	"github.com/iurnickita/vendussync/internal/service/vendusclient"
	"github.com/iurnickita/vendussync/internal/store"
	"github.com/iurnickita/vendussync/internal/upsert"
	"github.com/iurnickita/vendussync/internal/vendus"
)

type Service interface {
	SyncProducts(ctx context.Context, page Page) (int, error)
	SyncCustomers(ctx context.Context, page Page) (int, error)
	SyncDocuments(ctx context.Context, page Page) (int, error)
	SyncInvoices(ctx context.Context, page Page) (int, error)
	SyncPaymentMethods(ctx context.Context, page Page) (int, error)
	SyncDocumentTypes(ctx context.Context, page Page) (int, error)
	SyncStores(ctx context.Context, page Page) (int, error)
	SyncSuppliers(ctx context.Context, page Page) (int, error)
	SyncRooms(ctx context.Context, page Page) (int, error)
	SyncTables(ctx context.Context, page Page) (int, error)
	SyncAll(ctx context.Context) (Summary, error)
	Sync(ctx context.Context, entity model.EntityType, page Page) (int, error)
	ImportSAFT(ctx context.Context, raw []byte, company model.Company) (saft.Result, error)
}

var ErrUnknownEntity = errors.New("unknown entity")

// Page - одна страница списка Vendus. Нулевые значения - страница 1, размер по умолчанию.
type Page struct {
	Page    int
	PerPage int
	Sort    string
}

func (p Page) values(defaultPerPage int) url.Values {
	page, perPage := p.Page, p.PerPage
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))
	if p.Sort != "" {
		params.Set("sort", p.Sort)
	}
	return params
}

// Summary - сколько записей применено по каждой сущности
type Summary map[model.EntityType]int

// Откуда берется каждая сущность
type endpoint struct {
	path   string
	key    string
	params url.Values
}

var endpoints = map[model.EntityType]endpoint{
	model.EntityProduct:       {path: vendusclient.EndpointProducts, key: "products"},
	model.EntityCustomer:      {path: vendusclient.EndpointCustomers, key: "customers"},
	model.EntityDocument:      {path: vendusclient.EndpointDocuments, key: "documents"},
	model.EntityInvoice:       {path: vendusclient.EndpointDocuments, key: "documents", params: url.Values{"type": {"FT"}}},
	model.EntityPaymentMethod: {path: vendusclient.EndpointPaymentMethods, key: "paymentmethods"},
	model.EntityDocumentType:  {path: vendusclient.EndpointDocumentTypes, key: "types"},
	model.EntityStore:         {path: vendusclient.EndpointStores, key: "stores"},
	model.EntitySupplier:      {path: vendusclient.EndpointSuppliers, key: "suppliers"},
	model.EntityRoom:          {path: vendusclient.EndpointRooms, key: "rooms"},
	model.EntityTable:         {path: vendusclient.EndpointTables, key: "tables"},
}

// Клиенты раньше документов: документы ссылаются на уже загруженных клиентов
var syncAllOrder = []model.EntityType{
	model.EntityProduct,
	model.EntityCustomer,
	model.EntityDocument,
	model.EntityPaymentMethod,
	model.EntityDocumentType,
	model.EntityStore,
	model.EntitySupplier,
	model.EntityRoom,
	model.EntityTable,
}

type service struct {
	cfg      config.Config
	store    store.Store
	client   vendusclient.VendusClient
	upserter *upsert.Upserter
	importer *saft.Importer
	locker   lock.Locker
	zaplog   *zap.Logger
}

func NewService(cfg config.Config, store store.Store, locker lock.Locker, zaplog *zap.Logger) (Service, error) {
	return newService(cfg, store, vendusclient.NewVendusClient(cfg.Vendus), locker, zaplog)
}

func newService(cfg config.Config, store store.Store, client vendusclient.VendusClient, locker lock.Locker, zaplog *zap.Logger) (*service, error) {
	if zaplog == nil {
		zaplog = zap.NewNop()
	}
	if locker == nil {
		locker = lock.Noop{}
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = config.DefaultPerPage
	}

	importer, err := saft.NewImporter(cfg.SAFT, store, zaplog.Named("saft"))
	if err != nil {
		return nil, err
	}

	service := service{
		cfg:      cfg,
		store:    store,
		client:   client,
		upserter: upsert.NewUpserter(store, zaplog.Named("upsert")),
		importer: importer,
		locker:   locker,
		zaplog:   zaplog,
	}
	return &service, nil
}

func (service *service) SyncProducts(ctx context.Context, page Page) (int, error) {
	return service.Sync(ctx, model.EntityProduct, page)
}

func (service *service) SyncCustomers(ctx context.Context, page Page) (int, error) {
	return service.Sync(ctx, model.EntityCustomer, page)
}

func (service *service) SyncDocuments(ctx context.Context, page Page) (int, error) {
	return service.Sync(ctx, model.EntityDocument, page)
}

// SyncInvoices - документы типа FT как счета. В SyncAll не входит.
func (service *service) SyncInvoices(ctx context.Context, page Page) (int, error) {
	return service.Sync(ctx, model.EntityInvoice, page)
}

func (service *service) SyncPaymentMethods(ctx context.Context, page Page) (int, error) {
	return service.Sync(ctx, model.EntityPaymentMethod, page)
}

// SyncDocumentTypes только запрашивает типы документов, они не сохраняются
func (service *service) SyncDocumentTypes(ctx context.Context, page Page) (int, error) {
	return service.Sync(ctx, model.EntityDocumentType, page)
}

func (service *service) SyncStores(ctx context.Context, page Page) (int, error) {
	return service.Sync(ctx, model.EntityStore, page)
}

func (service *service) SyncSuppliers(ctx context.Context, page Page) (int, error) {
	return service.Sync(ctx, model.EntitySupplier, page)
}

func (service *service) SyncRooms(ctx context.Context, page Page) (int, error) {
	return service.Sync(ctx, model.EntityRoom, page)
}

func (service *service) SyncTables(ctx context.Context, page Page) (int, error) {
	return service.Sync(ctx, model.EntityTable, page)
}

func (service *service) Sync(ctx context.Context, entity model.EntityType, page Page) (int, error) {
	log := service.zaplog.With(zap.String("run", uuid.NewString()))
	return service.syncPage(ctx, log, entity, page)
}

// SyncAll - первая страница каждой сущности по порядку, до первой ошибки
func (service *service) SyncAll(ctx context.Context) (Summary, error) {
	log := service.zaplog.With(zap.String("run", uuid.NewString()))
	log.Info("sync started")

	summary := Summary{}
	for _, entity := range syncAllOrder {
		applied, err := service.syncPage(ctx, log, entity, Page{})
		summary[entity] = applied
		if err != nil {
			log.Error("sync aborted", zap.String("entity", string(entity)), zap.Error(err))
			return summary, err
		}
	}

	if service.cfg.BackfillReferences {
		linked, err := service.store.BackfillCustomerLinks(ctx)
		if err != nil {
			return summary, fmt.Errorf("backfill customer links: %w", err)
		}
		log.Info("customer links backfilled", zap.Int64("linked", linked))
	}

	log.Info("sync finished")
	return summary, nil
}

// syncPage: одна страница, записи по очереди. Первая ошибка прерывает страницу,
// уже примененные записи остаются.
func (service *service) syncPage(ctx context.Context, log *zap.Logger, entity model.EntityType, page Page) (int, error) {
	src, ok := endpoints[entity]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}

	params := page.values(service.cfg.PerPage)
	for k, v := range src.params {
		params[k] = v
	}
	log = log.With(zap.String("entity", string(entity)), zap.String("page", params.Get("page")))

	raw, err := service.client.Request(ctx, http.MethodGet, src.path, params, nil)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", entity, err)
	}
	items, err := vendus.DecodeList(raw, src.key)
	if err != nil {
		return 0, err
	}

	handle, ok := service.upserter.Handler(entity)
	if !ok {
		log.Info("fetched, not stored", zap.Int("count", len(items)))
		return 0, nil
	}

	applied := 0
	for i, item := range items {
		if err := handle(ctx, item); err != nil {
			return applied, fmt.Errorf("sync %s: record %d: %w", entity, i, err)
		}
		applied++
	}
	log.Info("page synced", zap.Int("applied", applied))
	return applied, nil
}

// ImportSAFT - импорт под блокировкой компании, параллельные импорты одной компании исключены
func (service *service) ImportSAFT(ctx context.Context, raw []byte, company model.Company) (saft.Result, error) {
	if len(raw) == 0 {
		return saft.Result{}, saft.ErrMissingFile
	}

	release, err := service.locker.Obtain(ctx, "saft-import:"+strconv.FormatInt(company.ID, 10))
	if err != nil {
		return saft.Result{}, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			service.zaplog.Warn("release import lock", zap.Int64("company", company.ID), zap.Error(err))
		}
	}()

	return service.importer.Import(ctx, raw, company)
}
