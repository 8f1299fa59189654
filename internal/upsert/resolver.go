package upsert

import (
	"context"
	"strconv"

	"github.com/iurnickita/vendussync/internal/model"
)

type Lookuper interface {
	LookupID(ctx context.Context, entity model.EntityType, vendusID string) (int64, bool, error)
}

// Resolver переводит id Vendus в локальный id. Ничего не создает.
type Resolver struct {
	store Lookuper
}

func NewResolver(store Lookuper) *Resolver {
	return &Resolver{store: store}
}

// Resolve - не найдено: (0, false, nil)
func (r *Resolver) Resolve(ctx context.Context, entity model.EntityType, remoteID string) (int64, bool, error) {
	if remoteID == "" {
		return 0, false, nil
	}
	return r.store.LookupID(ctx, entity, remoteID)
}

// customer - ссылка на клиента или nil, если клиент еще не загружен
func (r *Resolver) customer(ctx context.Context, remoteID *int64) (*int64, error) {
	if remoteID == nil {
		return nil, nil
	}
	id, found, err := r.Resolve(ctx, model.EntityCustomer, strconv.FormatInt(*remoteID, 10))
	if err != nil || !found {
		return nil, err
	}
	return &id, nil
}
