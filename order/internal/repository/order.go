package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	inErrors "github.com/tatoodenda/backend/internal/errors"
	"github.com/tatoodenda/backend/internal/log"
	"github.com/tatoodenda/backend/internal/otel"
)

// Pool is the subset of pgxpool.Pool the repository needs; pgxmock satisfies
// it in tests.
type Pool interface {
	Exec(c context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(c context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(c context.Context, sql string, args ...any) pgx.Row
	BeginTx(c context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Ping(c context.Context) error
	Close()
}

type Repository interface {
	InsertOrder(c context.Context, userID int64, fecha time.Time, total decimal.Decimal, lines []OrderLine) (Order, error)
	FindOrderById(c context.Context, orderID int64) (Order, error)
	FindOrdersByUserId(c context.Context, userID int64) ([]Order, error)
	FindOrderLines(c context.Context, orderID int64) ([]OrderLine, error)
	FindUserById(c context.Context, userID int64) (User, error)
}

type orderRepository struct {
	pool Pool
}

func New(pool Pool) Repository {
	return &orderRepository{pool: pool}
}

const (
	queryInsertOrder = `INSERT INTO pedido (iduser, fecha, total) VALUES ($1, $2, $3) RETURNING id`
	queryInsertLine  = `INSERT INTO lineapedido (idpedido, idprod, color, cant, nombre, precio)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	queryFindOrder      = `SELECT id, iduser, fecha, total FROM pedido WHERE id = $1`
	queryFindUserOrders = `SELECT id, iduser, fecha, total FROM pedido WHERE iduser = $1 ORDER BY id`
	queryFindLines      = `SELECT id, idpedido, idprod, color, cant, nombre, precio
		FROM lineapedido WHERE idpedido = $1 ORDER BY id`
	queryFindUser = `SELECT id, nombre, email, direccion, ciudad, cp FROM usuario WHERE id = $1`
)

func (r *orderRepository) InsertOrder(
	c context.Context,
	userID int64,
	fecha time.Time,
	total decimal.Decimal,
	lines []OrderLine,
) (Order, error) {
	c, span := otel.Tracer.Start(c, "OrderRepository InsertOrder")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderRepository InsertOrder").
		Int64(log.KeyUserID, userID).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "initializing transaction").Logger()
	logger.Info().Msg("initializing transaction")
	tx, err := r.pool.BeginTx(c, pgx.TxOptions{})
	if err != nil {
		err = fmt.Errorf("failed initializing transaction with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return Order{}, err
	}
	logger.Info().Msg("initialized transaction")
	defer func() {
		err := tx.Rollback(c)
		if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			err = fmt.Errorf("failed rolling back transaction with error=%w", err)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
		}
	}()

	logger = logger.With().Str(log.KeyProcess, "inserting order").Logger()
	logger.Info().Msg("inserting order")
	order := Order{UserID: userID, Fecha: fecha, Total: total}
	err = tx.QueryRow(c, queryInsertOrder, userID, fecha, numericFromDecimal(total)).
		Scan(&order.ID)
	if err != nil {
		err = fmt.Errorf("failed inserting order with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return Order{}, err
	}
	logger = logger.With().Int64(log.KeyOrderID, order.ID).Logger()
	logger.Info().Msg("inserted order")

	logger = logger.With().Str(log.KeyProcess, "inserting order lines").Logger()
	logger.Info().Msg("inserting order lines")
	order.Lines = make([]OrderLine, 0, len(lines))
	for _, line := range lines {
		line.OrderID = order.ID
		name := pgtype.Text{String: line.Name, Valid: line.Name != ""}
		err = tx.QueryRow(
			c,
			queryInsertLine,
			order.ID,
			line.ProductID,
			line.Color,
			line.Quantity,
			name,
			numericFromDecimal(line.Price),
		).Scan(&line.ID)
		if err != nil {
			err = fmt.Errorf("failed inserting order line with error=%w", err)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return Order{}, err
		}
		order.Lines = append(order.Lines, line)
	}
	logger.Info().Msgf("inserted order lines count=%d", len(order.Lines))

	logger = logger.With().Str(log.KeyProcess, "committing transaction").Logger()
	logger.Info().Msg("committing transaction")
	err = tx.Commit(c)
	if err != nil {
		err = fmt.Errorf("failed committing transaction with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return Order{}, err
	}
	logger.Info().Msg("committed transaction")

	return order, nil
}

func (r *orderRepository) FindOrderById(c context.Context, orderID int64) (Order, error) {
	c, span := otel.Tracer.Start(c, "OrderRepository FindOrderById")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderRepository FindOrderById").
		Int64(log.KeyOrderID, orderID).
		Logger()

	order, err := scanOrder(r.pool.QueryRow(c, queryFindOrder, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, inErrors.ErrOrderNotFound
		}
		err = fmt.Errorf("failed finding order by id=%d with error=%w", orderID, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return Order{}, err
	}
	return order, nil
}

func (r *orderRepository) FindOrdersByUserId(c context.Context, userID int64) ([]Order, error) {
	c, span := otel.Tracer.Start(c, "OrderRepository FindOrdersByUserId")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderRepository FindOrdersByUserId").
		Int64(log.KeyUserID, userID).
		Logger()

	rows, err := r.pool.Query(c, queryFindUserOrders, userID)
	if err != nil {
		err = fmt.Errorf("failed finding orders by userId=%d with error=%w", userID, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			err = fmt.Errorf("failed scanning order with error=%w", err)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		err = fmt.Errorf("failed iterating orders with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}

	for i := range orders {
		lines, err := r.FindOrderLines(c, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Lines = lines
	}
	return orders, nil
}

func (r *orderRepository) FindOrderLines(c context.Context, orderID int64) ([]OrderLine, error) {
	c, span := otel.Tracer.Start(c, "OrderRepository FindOrderLines")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderRepository FindOrderLines").
		Int64(log.KeyOrderID, orderID).
		Logger()

	rows, err := r.pool.Query(c, queryFindLines, orderID)
	if err != nil {
		err = fmt.Errorf("failed finding lines by orderId=%d with error=%w", orderID, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	defer rows.Close()

	lines := []OrderLine{}
	for rows.Next() {
		var line OrderLine
		var name pgtype.Text
		var price pgtype.Numeric
		err := rows.Scan(
			&line.ID,
			&line.OrderID,
			&line.ProductID,
			&line.Color,
			&line.Quantity,
			&name,
			&price,
		)
		if err != nil {
			err = fmt.Errorf("failed scanning order line with error=%w", err)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return nil, err
		}
		line.Name = name.String
		line.Price = decimalFromNumeric(price)
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		err = fmt.Errorf("failed iterating order lines with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	return lines, nil
}

func (r *orderRepository) FindUserById(c context.Context, userID int64) (User, error) {
	c, span := otel.Tracer.Start(c, "OrderRepository FindUserById")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderRepository FindUserById").
		Int64(log.KeyUserID, userID).
		Logger()

	var user User
	var email, direccion, ciudad, cp pgtype.Text
	err := r.pool.QueryRow(c, queryFindUser, userID).
		Scan(&user.ID, &user.Nombre, &email, &direccion, &ciudad, &cp)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, inErrors.ErrUserNotFound
		}
		err = fmt.Errorf("failed finding user by id=%d with error=%w", userID, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return User{}, err
	}
	user.Email = email.String
	user.Direccion = direccion.String
	user.Ciudad = ciudad.String
	user.CP = cp.String
	return user, nil
}

func scanOrder(row pgx.Row) (Order, error) {
	var order Order
	var fecha pgtype.Date
	var total pgtype.Numeric
	err := row.Scan(&order.ID, &order.UserID, &fecha, &total)
	if err != nil {
		return Order{}, err
	}
	order.Fecha = fecha.Time
	order.Total = decimalFromNumeric(total)
	return order, nil
}

func numericFromDecimal(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{
		Int:              d.Coefficient(),
		Exp:              d.Exponent(),
		InfinityModifier: pgtype.Finite,
		Valid:            true,
	}
}

func decimalFromNumeric(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
