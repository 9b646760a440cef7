package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	inErrors "github.com/tatoodenda/backend/internal/errors"
	"github.com/tatoodenda/backend/internal/log"
	"github.com/tatoodenda/backend/internal/otel"
	"github.com/tatoodenda/backend/order/internal/cache"
	"github.com/tatoodenda/backend/order/internal/repository"
	"github.com/tatoodenda/backend/order/pkg/request"
)

// DocumentRenderer produces the delivery note PDF for an order.
type DocumentRenderer interface {
	Render(c context.Context, order repository.Order, lines []repository.OrderLine, user repository.User) ([]byte, error)
}

// DeliveryNoteDispatcher emails the delivery note to the order's customer.
type DeliveryNoteDispatcher interface {
	SendDeliveryNote(c context.Context, order repository.Order, lines []repository.OrderLine, user repository.User, pdf []byte) error
}

type OrderService struct {
	repo       repository.Repository
	renderer   DocumentRenderer
	dispatcher DeliveryNoteDispatcher
	cache      cache.OrderCache
}

func NewOrderService(
	repo repository.Repository,
	renderer DocumentRenderer,
	dispatcher DeliveryNoteDispatcher,
	orderCache cache.OrderCache,
) *OrderService {
	return &OrderService{
		repo:       repo,
		renderer:   renderer,
		dispatcher: dispatcher,
		cache:      orderCache,
	}
}

// CreateOrder persists the order under today's date, renders the delivery
// note and emails it when the customer has an email configured. A dispatch
// failure never fails the request; it is reported through the returned
// emailSent flag.
func (s *OrderService) CreateOrder(
	c context.Context,
	param request.CreateOrder,
) (repository.Order, bool, error) {
	c, span := otel.Tracer.Start(c, "OrderService CreateOrder")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderService CreateOrder").
		Int64(log.KeyUserID, param.UserID).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "validating order").Logger()
	logger.Info().Msg("validating order")
	if param.UserID <= 0 {
		err := inErrors.ErrUserRequired
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return repository.Order{}, false, err
	}
	if len(param.Lines) == 0 {
		err := inErrors.ErrEmptyOrder
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return repository.Order{}, false, err
	}
	logger.Info().Msg("validated order")

	logger = logger.With().Str(log.KeyProcess, "computing total").Logger()
	logger.Info().Msg("computing total")
	total := decimal.Zero
	lines := make([]repository.OrderLine, 0, len(param.Lines))
	for _, line := range param.Lines {
		total = total.Add(line.Price.Mul(decimal.NewFromInt32(line.Quantity)))
		lines = append(lines, repository.OrderLine{
			ProductID: line.ProductID,
			Color:     line.Color,
			Quantity:  line.Quantity,
			Name:      line.Name,
			Price:     line.Price,
		})
	}
	logger = logger.With().Str(log.KeyTotal, total.StringFixed(2)).Logger()
	logger.Info().Msg("computed total")

	logger = logger.With().Str(log.KeyProcess, "inserting order").Logger()
	logger.Info().Msg("inserting order")
	order, err := s.repo.InsertOrder(c, param.UserID, time.Now(), total, lines)
	if err != nil {
		err = fmt.Errorf("failed inserting order with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return repository.Order{}, false, err
	}
	s.cache.SetOrder(c, order)
	logger = logger.With().Int64(log.KeyOrderID, order.ID).Logger()
	logger.Info().Msg("inserted order")

	logger = logger.With().Str(log.KeyProcess, "finding user").Logger()
	logger.Info().Msg("finding user")
	user, err := s.repo.FindUserById(c, order.UserID)
	if err != nil {
		if !errors.Is(err, inErrors.ErrUserNotFound) {
			err = fmt.Errorf("failed finding user with error=%w", err)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return repository.Order{}, false, err
		}
		logger.Warn().Msg("user not found, order kept, email skipped")
		user = repository.User{}
	}
	logger.Info().Msg("found user")

	logger = logger.With().Str(log.KeyProcess, "rendering delivery note").Logger()
	logger.Info().Msg("rendering delivery note")
	pdf, err := s.renderer.Render(c, order, order.Lines, user)
	if err != nil {
		err = fmt.Errorf("failed rendering delivery note with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return repository.Order{}, false, err
	}
	logger.Info().Msg("rendered delivery note")

	emailSent := false
	if user.Email != "" {
		logger = logger.With().
			Str(log.KeyProcess, "dispatching delivery note").
			Str(log.KeyEmail, user.Email).
			Logger()
		logger.Info().Msg("dispatching delivery note")
		err = s.dispatcher.SendDeliveryNote(c, order, order.Lines, user, pdf)
		if err != nil {
			err = fmt.Errorf("failed dispatching delivery note with error=%w", err)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
		} else {
			emailSent = true
			logger.Info().Msg("dispatched delivery note")
		}
	} else {
		logger.Warn().Msg("user has no email configured, dispatch skipped")
	}

	return order, emailSent, nil
}

func (s *OrderService) FindOrdersByUserId(
	c context.Context,
	userID int64,
) ([]repository.Order, error) {
	c, span := otel.Tracer.Start(c, "OrderService FindOrdersByUserId")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderService FindOrdersByUserId").
		Int64(log.KeyUserID, userID).
		Str(log.KeyProcess, "finding orders").
		Logger()

	if userID <= 0 {
		err := inErrors.ErrUserRequired
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}

	logger.Info().Msg("finding orders")
	orders, err := s.repo.FindOrdersByUserId(c, userID)
	if err != nil {
		err = fmt.Errorf("failed finding orders by userId=%d with error=%w", userID, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msgf("found orders count=%d", len(orders))

	return orders, nil
}

// DeliveryNote renders the albarán for an existing order. When requesterID is
// non-zero it must match the order's owner.
func (s *OrderService) DeliveryNote(
	c context.Context,
	orderID int64,
	requesterID int64,
) (repository.Order, []byte, error) {
	c, span := otel.Tracer.Start(c, "OrderService DeliveryNote")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderService DeliveryNote").
		Int64(log.KeyOrderID, orderID).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "finding order").Logger()
	logger.Info().Msg("finding order")
	order, err := s.findOrderWithLines(c, orderID)
	if err != nil {
		if !errors.Is(err, inErrors.ErrOrderNotFound) {
			err = fmt.Errorf("failed finding order by id=%d with error=%w", orderID, err)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
		}
		return repository.Order{}, nil, err
	}
	logger.Info().Msg("found order")

	if requesterID != 0 && requesterID != order.UserID {
		err := inErrors.ErrOrderForbidden
		otel.RecordError(err, span)
		logger.Error().Err(err).Int64(log.KeyUserID, requesterID).Msg(err.Error())
		return repository.Order{}, nil, err
	}

	logger = logger.With().Str(log.KeyProcess, "finding user").Logger()
	logger.Info().Msg("finding user")
	user, err := s.repo.FindUserById(c, order.UserID)
	if err != nil {
		if !errors.Is(err, inErrors.ErrUserNotFound) {
			err = fmt.Errorf("failed finding user with error=%w", err)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return repository.Order{}, nil, err
		}
		user = repository.User{}
	}
	logger.Info().Msg("found user")

	logger = logger.With().Str(log.KeyProcess, "rendering delivery note").Logger()
	logger.Info().Msg("rendering delivery note")
	pdf, err := s.renderer.Render(c, order, order.Lines, user)
	if err != nil {
		err = fmt.Errorf("failed rendering delivery note with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return repository.Order{}, nil, err
	}
	logger.Info().Msg("rendered delivery note")

	return order, pdf, nil
}

// ResendDeliveryNote re-renders and re-emails the albarán. Unlike creation,
// the only point of a resend is a successful delivery, so a dispatch failure
// is a hard error here.
func (s *OrderService) ResendDeliveryNote(c context.Context, orderID int64) error {
	c, span := otel.Tracer.Start(c, "OrderService ResendDeliveryNote")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderService ResendDeliveryNote").
		Int64(log.KeyOrderID, orderID).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "finding order").Logger()
	logger.Info().Msg("finding order")
	order, err := s.findOrderWithLines(c, orderID)
	if err != nil {
		if !errors.Is(err, inErrors.ErrOrderNotFound) {
			err = fmt.Errorf("failed finding order by id=%d with error=%w", orderID, err)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
		}
		return err
	}
	logger.Info().Msg("found order")

	logger = logger.With().Str(log.KeyProcess, "finding user").Logger()
	logger.Info().Msg("finding user")
	user, err := s.repo.FindUserById(c, order.UserID)
	if err != nil {
		if errors.Is(err, inErrors.ErrUserNotFound) {
			err = inErrors.ErrUserNoEmail
		} else {
			err = fmt.Errorf("failed finding user with error=%w", err)
		}
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	if user.Email == "" {
		err := inErrors.ErrUserNoEmail
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("found user")

	logger = logger.With().Str(log.KeyProcess, "rendering delivery note").Logger()
	logger.Info().Msg("rendering delivery note")
	pdf, err := s.renderer.Render(c, order, order.Lines, user)
	if err != nil {
		err = fmt.Errorf("failed rendering delivery note with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("rendered delivery note")

	logger = logger.With().
		Str(log.KeyProcess, "dispatching delivery note").
		Str(log.KeyEmail, user.Email).
		Logger()
	logger.Info().Msg("dispatching delivery note")
	err = s.dispatcher.SendDeliveryNote(c, order, order.Lines, user, pdf)
	if err != nil {
		err = fmt.Errorf("failed dispatching delivery note with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("dispatched delivery note")

	return nil
}

func (s *OrderService) findOrderWithLines(
	c context.Context,
	orderID int64,
) (repository.Order, error) {
	if order, ok := s.cache.GetOrder(c, orderID); ok {
		return order, nil
	}

	order, err := s.repo.FindOrderById(c, orderID)
	if err != nil {
		return repository.Order{}, err
	}
	lines, err := s.repo.FindOrderLines(c, orderID)
	if err != nil {
		return repository.Order{}, err
	}
	order.Lines = lines

	s.cache.SetOrder(c, order)
	return order, nil
}
