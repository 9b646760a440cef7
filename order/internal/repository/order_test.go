package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inErrors "github.com/tatoodenda/backend/internal/errors"
)

func newMockRepository(t *testing.T) (Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	return New(mock), mock
}

func TestInsertOrderCommitsOrderAndLines(t *testing.T) {
	repo, mock := newMockRepository(t)
	defer mock.Close()

	fecha := time.Date(2025, 8, 14, 0, 0, 0, 0, time.UTC)
	total := decimal.RequireFromString("26.00")
	lines := []OrderLine{
		{ProductID: 1, Color: "negro", Quantity: 2, Name: "Camiseta calavera", Price: decimal.RequireFromString("10.50")},
		{ProductID: 2, Color: "rosa", Quantity: 1, Price: decimal.RequireFromString("5.00")},
	}

	mock.ExpectBeginTx(pgx.TxOptions{})
	mock.ExpectQuery(queryInsertOrder).
		WithArgs(int64(7), fecha, numericFromDecimal(total)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectQuery(queryInsertLine).
		WithArgs(
			int64(42),
			int64(1),
			"negro",
			int32(2),
			pgtype.Text{String: "Camiseta calavera", Valid: true},
			numericFromDecimal(lines[0].Price),
		).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(100)))
	mock.ExpectQuery(queryInsertLine).
		WithArgs(
			int64(42),
			int64(2),
			"rosa",
			int32(1),
			pgtype.Text{},
			numericFromDecimal(lines[1].Price),
		).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(101)))
	mock.ExpectCommit()
	mock.ExpectRollback()

	order, err := repo.InsertOrder(context.Background(), 7, fecha, total, lines)
	require.NoError(t, err)
	assert.Equal(t, int64(42), order.ID)
	assert.Equal(t, int64(7), order.UserID)
	assert.True(t, order.Total.Equal(total))
	require.Len(t, order.Lines, 2)
	assert.Equal(t, int64(100), order.Lines[0].ID)
	assert.Equal(t, int64(42), order.Lines[0].OrderID)
	assert.Equal(t, int64(101), order.Lines[1].ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertOrderRollsBackOnLineFailure(t *testing.T) {
	repo, mock := newMockRepository(t)
	defer mock.Close()

	fecha := time.Date(2025, 8, 14, 0, 0, 0, 0, time.UTC)
	lines := []OrderLine{{ProductID: 1, Color: "negro", Quantity: 1, Price: decimal.RequireFromString("4.00")}}

	mock.ExpectBeginTx(pgx.TxOptions{})
	mock.ExpectQuery(queryInsertOrder).
		WithArgs(int64(7), fecha, numericFromDecimal(decimal.RequireFromString("4.00"))).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectQuery(queryInsertLine).
		WithArgs(
			int64(42),
			int64(1),
			"negro",
			int32(1),
			pgtype.Text{},
			numericFromDecimal(lines[0].Price),
		).
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	_, err := repo.InsertOrder(
		context.Background(),
		7,
		fecha,
		decimal.RequireFromString("4.00"),
		lines,
	)
	require.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOrderByIdNotFound(t *testing.T) {
	repo, mock := newMockRepository(t)
	defer mock.Close()

	mock.ExpectQuery(queryFindOrder).
		WithArgs(int64(42)).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.FindOrderById(context.Background(), 42)
	assert.ErrorIs(t, err, inErrors.ErrOrderNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOrderById(t *testing.T) {
	repo, mock := newMockRepository(t)
	defer mock.Close()

	fecha := time.Date(2025, 8, 14, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(queryFindOrder).
		WithArgs(int64(42)).
		WillReturnRows(
			pgxmock.NewRows([]string{"id", "iduser", "fecha", "total"}).
				AddRow(
					int64(42),
					int64(7),
					pgtype.Date{Time: fecha, Valid: true},
					numericFromDecimal(decimal.RequireFromString("26.00")),
				),
		)

	order, err := repo.FindOrderById(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), order.ID)
	assert.Equal(t, int64(7), order.UserID)
	assert.True(t, order.Fecha.Equal(fecha))
	assert.Equal(t, "26.00", order.Total.StringFixed(2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOrdersByUserIdLoadsLines(t *testing.T) {
	repo, mock := newMockRepository(t)
	defer mock.Close()

	fecha := time.Date(2025, 8, 14, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(queryFindUserOrders).
		WithArgs(int64(7)).
		WillReturnRows(
			pgxmock.NewRows([]string{"id", "iduser", "fecha", "total"}).
				AddRow(
					int64(42),
					int64(7),
					pgtype.Date{Time: fecha, Valid: true},
					numericFromDecimal(decimal.RequireFromString("26.00")),
				),
		)
	mock.ExpectQuery(queryFindLines).
		WithArgs(int64(42)).
		WillReturnRows(
			pgxmock.NewRows([]string{"id", "idpedido", "idprod", "color", "cant", "nombre", "precio"}).
				AddRow(
					int64(100),
					int64(42),
					int64(1),
					"negro",
					int32(2),
					pgtype.Text{String: "Camiseta calavera", Valid: true},
					numericFromDecimal(decimal.RequireFromString("10.50")),
				).
				AddRow(
					int64(101),
					int64(42),
					int64(2),
					"rosa",
					int32(1),
					pgtype.Text{},
					numericFromDecimal(decimal.RequireFromString("5.00")),
				),
		)

	orders, err := repo.FindOrdersByUserId(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Len(t, orders[0].Lines, 2)
	assert.Equal(t, "Camiseta calavera", orders[0].Lines[0].Name)
	assert.Equal(t, "10.50", orders[0].Lines[0].Price.StringFixed(2))
	assert.Empty(t, orders[0].Lines[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindUserByIdNotFound(t *testing.T) {
	repo, mock := newMockRepository(t)
	defer mock.Close()

	mock.ExpectQuery(queryFindUser).
		WithArgs(int64(9)).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.FindUserById(context.Background(), 9)
	assert.ErrorIs(t, err, inErrors.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindUserById(t *testing.T) {
	repo, mock := newMockRepository(t)
	defer mock.Close()

	mock.ExpectQuery(queryFindUser).
		WithArgs(int64(7)).
		WillReturnRows(
			pgxmock.NewRows([]string{"id", "nombre", "email", "direccion", "ciudad", "cp"}).
				AddRow(
					int64(7),
					"Ane",
					pgtype.Text{String: "ane@example.com", Valid: true},
					pgtype.Text{String: "Calle Mayor 1", Valid: true},
					pgtype.Text{String: "Bilbao", Valid: true},
					pgtype.Text{String: "48001", Valid: true},
				),
		)

	user, err := repo.FindUserById(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Ane", user.Nombre)
	assert.Equal(t, "ane@example.com", user.Email)
	assert.Equal(t, "48001", user.CP)
	assert.NoError(t, mock.ExpectationsWereMet())
}
