package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	inErrors "github.com/tatoodenda/backend/internal/errors"
	inHttp "github.com/tatoodenda/backend/internal/http"
	"github.com/tatoodenda/backend/internal/log"
	"github.com/tatoodenda/backend/internal/otel"
	"github.com/tatoodenda/backend/order/internal/service"
	"github.com/tatoodenda/backend/order/pkg/request"
	"github.com/tatoodenda/backend/order/pkg/response"
)

type OrderController struct {
	service *service.OrderService
}

func AttachOrderController(router *mux.Router, service *service.OrderService) {
	controller := OrderController{service: service}

	sub := router.PathPrefix("/orders").Subrouter()
	sub.HandleFunc("", controller.CreateOrder).Methods(http.MethodPost)
	sub.HandleFunc("/user/{userId}", controller.FindUserOrders).Methods(http.MethodGet)
	sub.HandleFunc("/albaran/{orderId}", controller.DownloadAlbaran).Methods(http.MethodGet)
	sub.HandleFunc("/reenviar-albaran/{orderId}", controller.ResendAlbaran).
		Methods(http.MethodPost)
}

func (s *OrderController) CreateOrder(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "OrderController CreateOrder")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderController CreateOrder").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "decoding request body").Logger()
	logger.Info().Msg("decoding request body")
	param := request.CreateOrder{}
	err := json.NewDecoder(r.Body).Decode(&param)
	if err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusBadRequest,
			"message":    "request body is invalid",
		})
		return
	}
	logger.Info().Msg("decoded request body")

	logger = logger.With().Str(log.KeyProcess, "validating request body").Logger()
	logger.Info().Msg("validating request body")
	validate := validator.New(validator.WithRequiredStructEnabled())
	err = validate.StructCtx(c, param)
	if err != nil {
		err = fmt.Errorf("failed validating request body with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusBadRequest,
			"message":    "request body is invalid",
		})
		return
	}
	logger.Info().Msg("validated request body")

	logger = logger.With().
		Str(log.KeyProcess, "creating order").
		Int64(log.KeyUserID, param.UserID).
		Logger()
	logger.Info().Msg("creating order")
	c = logger.WithContext(c)
	order, emailSent, err := s.service.CreateOrder(c, param)
	if err != nil {
		err = fmt.Errorf("failed creating order with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": statusFromError(err),
			"message":    err.Error(),
		})
		return
	}
	logger.Info().Bool(log.KeyEmailSent, emailSent).Msg("created order")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusCreated,
		"message":    "order created",
		"data": map[string]interface{}{
			"order":     response.NewOrder(order),
			"emailSent": emailSent,
		},
	})
}

func (s *OrderController) FindUserOrders(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "OrderController FindUserOrders")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderController FindUserOrders").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "validating userId").Logger()
	logger.Info().Msg("validating userId")
	userID, err := strconv.ParseInt(mux.Vars(r)["userId"], 10, 64)
	if err != nil {
		err = fmt.Errorf("failed validating userId with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusBadRequest,
			"message":    "userId is invalid",
		})
		return
	}
	logger = logger.With().Int64(log.KeyUserID, userID).Logger()
	logger.Info().Msg("validated userId")

	logger = logger.With().Str(log.KeyProcess, "finding orders").Logger()
	logger.Info().Msg("finding orders")
	c = logger.WithContext(c)
	orders, err := s.service.FindOrdersByUserId(c, userID)
	if err != nil {
		err = fmt.Errorf("failed finding orders with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": statusFromError(err),
			"message":    err.Error(),
		})
		return
	}
	logger.Info().Msgf("found orders count=%d", len(orders))

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "found orders",
		"data": map[string]interface{}{
			"orders": response.NewOrders(orders),
		},
	})
}

func (s *OrderController) DownloadAlbaran(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "OrderController DownloadAlbaran")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderController DownloadAlbaran").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "validating orderId").Logger()
	logger.Info().Msg("validating orderId")
	orderID, err := strconv.ParseInt(mux.Vars(r)["orderId"], 10, 64)
	if err != nil {
		err = fmt.Errorf("failed validating orderId with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusBadRequest,
			"message":    "orderId is invalid",
		})
		return
	}
	logger = logger.With().Int64(log.KeyOrderID, orderID).Logger()
	logger.Info().Msg("validated orderId")

	// Ownership is only enforced when the caller identifies itself.
	requesterID := int64(0)
	if raw := r.URL.Query().Get("userId"); raw != "" {
		requesterID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			err = fmt.Errorf("failed validating userId with error=%w", err)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
				"status":     "failed",
				"statusCode": http.StatusBadRequest,
				"message":    "userId is invalid",
			})
			return
		}
	}

	logger = logger.With().Str(log.KeyProcess, "rendering delivery note").Logger()
	logger.Info().Msg("rendering delivery note")
	c = logger.WithContext(c)
	order, pdf, err := s.service.DeliveryNote(c, orderID, requesterID)
	if err != nil {
		err = fmt.Errorf("failed rendering delivery note with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": statusFromError(err),
			"message":    err.Error(),
		})
		return
	}
	logger.Info().Msg("rendered delivery note")

	inHttp.WritePdfResponse(c, w, fmt.Sprintf("Albaran_%d.pdf", order.ID), pdf)
}

func (s *OrderController) ResendAlbaran(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "OrderController ResendAlbaran")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderController ResendAlbaran").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "validating orderId").Logger()
	logger.Info().Msg("validating orderId")
	orderID, err := strconv.ParseInt(mux.Vars(r)["orderId"], 10, 64)
	if err != nil {
		err = fmt.Errorf("failed validating orderId with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusBadRequest,
			"message":    "orderId is invalid",
		})
		return
	}
	logger = logger.With().Int64(log.KeyOrderID, orderID).Logger()
	logger.Info().Msg("validated orderId")

	logger = logger.With().Str(log.KeyProcess, "resending delivery note").Logger()
	logger.Info().Msg("resending delivery note")
	c = logger.WithContext(c)
	err = s.service.ResendDeliveryNote(c, orderID)
	if err != nil {
		err = fmt.Errorf("failed resending delivery note with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": statusFromError(err),
			"message":    err.Error(),
		})
		return
	}
	logger.Info().Msg("resent delivery note")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "delivery note sent",
	})
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, inErrors.ErrUserRequired),
		errors.Is(err, inErrors.ErrEmptyOrder),
		errors.Is(err, inErrors.ErrUserNoEmail):
		return http.StatusBadRequest
	case errors.Is(err, inErrors.ErrOrderForbidden):
		return http.StatusForbidden
	case errors.Is(err, inErrors.ErrOrderNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
