package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tatoodenda/backend/internal/log"
	"github.com/tatoodenda/backend/internal/otel"
	"github.com/tatoodenda/backend/order/internal/repository"
)

const KeyOrder = "order:%d"

// OrderCache is a read-through cache for pedido rows. A miss or a cache error
// is never fatal; the caller falls back to the repository.
type OrderCache interface {
	GetOrder(c context.Context, orderID int64) (repository.Order, bool)
	SetOrder(c context.Context, order repository.Order)
}

type redisOrderCache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) OrderCache {
	return &redisOrderCache{client: client, ttl: ttl}
}

func (r *redisOrderCache) GetOrder(c context.Context, orderID int64) (repository.Order, bool) {
	c, span := otel.Tracer.Start(c, "OrderCache GetOrder")
	defer span.End()

	cacheKey := fmt.Sprintf(KeyOrder, orderID)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderCache GetOrder").
		Str(log.KeyCacheKey, cacheKey).
		Logger()

	raw, err := r.client.Get(c, cacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			err = fmt.Errorf("failed getting order from cache with error=%w", err)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
		}
		return repository.Order{}, false
	}

	order := repository.Order{}
	err = json.Unmarshal(raw, &order)
	if err != nil {
		err = fmt.Errorf("failed unmarshaling cached order with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return repository.Order{}, false
	}
	return order, true
}

func (r *redisOrderCache) SetOrder(c context.Context, order repository.Order) {
	c, span := otel.Tracer.Start(c, "OrderCache SetOrder")
	defer span.End()

	cacheKey := fmt.Sprintf(KeyOrder, order.ID)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderCache SetOrder").
		Str(log.KeyCacheKey, cacheKey).
		Logger()

	raw, err := json.Marshal(order)
	if err != nil {
		err = fmt.Errorf("failed marshaling order for cache with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}

	err = r.client.Set(c, cacheKey, raw, r.ttl).Err()
	if err != nil {
		err = fmt.Errorf("failed inserting order to cache with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
	}
}
