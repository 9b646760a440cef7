package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inErrors "github.com/tatoodenda/backend/internal/errors"
	"github.com/tatoodenda/backend/order/internal/repository"
	"github.com/tatoodenda/backend/order/pkg/request"
)

type mockRepository struct {
	insertOrderFn        func(c context.Context, userID int64, fecha time.Time, total decimal.Decimal, lines []repository.OrderLine) (repository.Order, error)
	findOrderByIdFn      func(c context.Context, orderID int64) (repository.Order, error)
	findOrdersByUserIdFn func(c context.Context, userID int64) ([]repository.Order, error)
	findOrderLinesFn     func(c context.Context, orderID int64) ([]repository.OrderLine, error)
	findUserByIdFn       func(c context.Context, userID int64) (repository.User, error)
}

func (m *mockRepository) InsertOrder(
	c context.Context,
	userID int64,
	fecha time.Time,
	total decimal.Decimal,
	lines []repository.OrderLine,
) (repository.Order, error) {
	return m.insertOrderFn(c, userID, fecha, total, lines)
}

func (m *mockRepository) FindOrderById(c context.Context, orderID int64) (repository.Order, error) {
	return m.findOrderByIdFn(c, orderID)
}

func (m *mockRepository) FindOrdersByUserId(
	c context.Context,
	userID int64,
) ([]repository.Order, error) {
	return m.findOrdersByUserIdFn(c, userID)
}

func (m *mockRepository) FindOrderLines(
	c context.Context,
	orderID int64,
) ([]repository.OrderLine, error) {
	return m.findOrderLinesFn(c, orderID)
}

func (m *mockRepository) FindUserById(c context.Context, userID int64) (repository.User, error) {
	return m.findUserByIdFn(c, userID)
}

type mockRenderer struct {
	renderFn func(c context.Context, order repository.Order, lines []repository.OrderLine, user repository.User) ([]byte, error)
	calls    int
}

func (m *mockRenderer) Render(
	c context.Context,
	order repository.Order,
	lines []repository.OrderLine,
	user repository.User,
) ([]byte, error) {
	m.calls++
	if m.renderFn != nil {
		return m.renderFn(c, order, lines, user)
	}
	return []byte("%PDF-1.4 fake"), nil
}

type mockDispatcher struct {
	sendFn  func(c context.Context, order repository.Order, lines []repository.OrderLine, user repository.User, pdf []byte) error
	calls   int
	lastPdf []byte
}

func (m *mockDispatcher) SendDeliveryNote(
	c context.Context,
	order repository.Order,
	lines []repository.OrderLine,
	user repository.User,
	pdf []byte,
) error {
	m.calls++
	m.lastPdf = pdf
	if m.sendFn != nil {
		return m.sendFn(c, order, lines, user, pdf)
	}
	return nil
}

type mockCache struct {
	orders map[int64]repository.Order
	sets   int
}

func newMockCache() *mockCache {
	return &mockCache{orders: map[int64]repository.Order{}}
}

func (m *mockCache) GetOrder(c context.Context, orderID int64) (repository.Order, bool) {
	order, ok := m.orders[orderID]
	return order, ok
}

func (m *mockCache) SetOrder(c context.Context, order repository.Order) {
	m.sets++
	m.orders[order.ID] = order
}

func newLine(productID int64, quantity int32, price string) request.OrderLine {
	return request.OrderLine{
		ProductID: productID,
		Color:     "negro",
		Quantity:  quantity,
		Price:     decimal.RequireFromString(price),
	}
}

func TestCreateOrderComputesTotalFromLines(t *testing.T) {
	var gotTotal decimal.Decimal
	var gotFecha time.Time
	repo := &mockRepository{
		insertOrderFn: func(c context.Context, userID int64, fecha time.Time, total decimal.Decimal, lines []repository.OrderLine) (repository.Order, error) {
			gotTotal = total
			gotFecha = fecha
			order := repository.Order{ID: 1, UserID: userID, Fecha: fecha, Total: total, Lines: lines}
			return order, nil
		},
		findUserByIdFn: func(c context.Context, userID int64) (repository.User, error) {
			return repository.User{ID: userID, Nombre: "Ane", Email: "ane@example.com"}, nil
		},
	}
	renderer := &mockRenderer{}
	dispatcher := &mockDispatcher{}
	svc := NewOrderService(repo, renderer, dispatcher, newMockCache())

	order, emailSent, err := svc.CreateOrder(context.Background(), request.CreateOrder{
		UserID: 7,
		Lines:  []request.OrderLine{newLine(1, 2, "10.50"), newLine(2, 1, "5.00")},
	})

	require.NoError(t, err)
	assert.True(t, emailSent)
	assert.Equal(t, int64(7), order.UserID)
	assert.True(t, gotTotal.Equal(decimal.RequireFromString("26.00")), "total=%s", gotTotal)
	assert.WithinDuration(t, time.Now(), gotFecha, time.Minute)
	assert.Equal(t, 1, renderer.calls)
	assert.Equal(t, 1, dispatcher.calls)
	assert.NotEmpty(t, dispatcher.lastPdf)
}

func TestCreateOrderRejectsInvalidInput(t *testing.T) {
	inserted := false
	repo := &mockRepository{
		insertOrderFn: func(c context.Context, userID int64, fecha time.Time, total decimal.Decimal, lines []repository.OrderLine) (repository.Order, error) {
			inserted = true
			return repository.Order{}, nil
		},
	}
	svc := NewOrderService(repo, &mockRenderer{}, &mockDispatcher{}, newMockCache())

	tests := []struct {
		name    string
		param   request.CreateOrder
		wantErr error
	}{
		{
			name:    "missing user",
			param:   request.CreateOrder{Lines: []request.OrderLine{newLine(1, 1, "1.00")}},
			wantErr: inErrors.ErrUserRequired,
		},
		{
			name:    "empty lines",
			param:   request.CreateOrder{UserID: 7},
			wantErr: inErrors.ErrEmptyOrder,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.CreateOrder(context.Background(), tt.param)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, inserted, "order must not be persisted")
		})
	}
}

func TestCreateOrderKeepsOrderWhenUserMissing(t *testing.T) {
	repo := &mockRepository{
		insertOrderFn: func(c context.Context, userID int64, fecha time.Time, total decimal.Decimal, lines []repository.OrderLine) (repository.Order, error) {
			return repository.Order{ID: 3, UserID: userID, Fecha: fecha, Total: total, Lines: lines}, nil
		},
		findUserByIdFn: func(c context.Context, userID int64) (repository.User, error) {
			return repository.User{}, inErrors.ErrUserNotFound
		},
	}
	dispatcher := &mockDispatcher{}
	svc := NewOrderService(repo, &mockRenderer{}, dispatcher, newMockCache())

	order, emailSent, err := svc.CreateOrder(context.Background(), request.CreateOrder{
		UserID: 9,
		Lines:  []request.OrderLine{newLine(1, 1, "4.00")},
	})

	require.NoError(t, err)
	assert.False(t, emailSent)
	assert.Equal(t, int64(3), order.ID)
	assert.Zero(t, dispatcher.calls, "dispatch must be skipped without a user")
}

func TestCreateOrderSkipsDispatchWithoutEmail(t *testing.T) {
	repo := &mockRepository{
		insertOrderFn: func(c context.Context, userID int64, fecha time.Time, total decimal.Decimal, lines []repository.OrderLine) (repository.Order, error) {
			return repository.Order{ID: 4, UserID: userID, Lines: lines}, nil
		},
		findUserByIdFn: func(c context.Context, userID int64) (repository.User, error) {
			return repository.User{ID: userID, Nombre: "Ane"}, nil
		},
	}
	dispatcher := &mockDispatcher{}
	svc := NewOrderService(repo, &mockRenderer{}, dispatcher, newMockCache())

	_, emailSent, err := svc.CreateOrder(context.Background(), request.CreateOrder{
		UserID: 9,
		Lines:  []request.OrderLine{newLine(1, 1, "4.00")},
	})

	require.NoError(t, err)
	assert.False(t, emailSent)
	assert.Zero(t, dispatcher.calls)
}

func TestCreateOrderToleratesDispatchFailure(t *testing.T) {
	repo := &mockRepository{
		insertOrderFn: func(c context.Context, userID int64, fecha time.Time, total decimal.Decimal, lines []repository.OrderLine) (repository.Order, error) {
			return repository.Order{ID: 5, UserID: userID, Lines: lines}, nil
		},
		findUserByIdFn: func(c context.Context, userID int64) (repository.User, error) {
			return repository.User{ID: userID, Email: "ane@example.com"}, nil
		},
	}
	dispatcher := &mockDispatcher{
		sendFn: func(c context.Context, order repository.Order, lines []repository.OrderLine, user repository.User, pdf []byte) error {
			return errors.New("smtp connection refused")
		},
	}
	svc := NewOrderService(repo, &mockRenderer{}, dispatcher, newMockCache())

	order, emailSent, err := svc.CreateOrder(context.Background(), request.CreateOrder{
		UserID: 9,
		Lines:  []request.OrderLine{newLine(1, 1, "4.00")},
	})

	require.NoError(t, err, "dispatch failure must not fail the creation")
	assert.False(t, emailSent)
	assert.Equal(t, int64(5), order.ID)
	assert.Equal(t, 1, dispatcher.calls)
}

func TestCreateOrderFailsWhenRenderFails(t *testing.T) {
	repo := &mockRepository{
		insertOrderFn: func(c context.Context, userID int64, fecha time.Time, total decimal.Decimal, lines []repository.OrderLine) (repository.Order, error) {
			return repository.Order{ID: 6, UserID: userID, Lines: lines}, nil
		},
		findUserByIdFn: func(c context.Context, userID int64) (repository.User, error) {
			return repository.User{ID: userID, Email: "ane@example.com"}, nil
		},
	}
	renderer := &mockRenderer{
		renderFn: func(c context.Context, order repository.Order, lines []repository.OrderLine, user repository.User) ([]byte, error) {
			return nil, errors.New("font missing")
		},
	}
	dispatcher := &mockDispatcher{}
	svc := NewOrderService(repo, renderer, dispatcher, newMockCache())

	_, _, err := svc.CreateOrder(context.Background(), request.CreateOrder{
		UserID: 9,
		Lines:  []request.OrderLine{newLine(1, 1, "4.00")},
	})

	require.Error(t, err)
	assert.Zero(t, dispatcher.calls)
}

func TestFindOrdersByUserId(t *testing.T) {
	repo := &mockRepository{
		findOrdersByUserIdFn: func(c context.Context, userID int64) ([]repository.Order, error) {
			return []repository.Order{{ID: 1, UserID: userID}, {ID: 2, UserID: userID}}, nil
		},
	}
	svc := NewOrderService(repo, &mockRenderer{}, &mockDispatcher{}, newMockCache())

	orders, err := svc.FindOrdersByUserId(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	_, err = svc.FindOrdersByUserId(context.Background(), 0)
	assert.ErrorIs(t, err, inErrors.ErrUserRequired)
}

func TestDeliveryNoteNotFound(t *testing.T) {
	renderer := &mockRenderer{}
	repo := &mockRepository{
		findOrderByIdFn: func(c context.Context, orderID int64) (repository.Order, error) {
			return repository.Order{}, inErrors.ErrOrderNotFound
		},
	}
	svc := NewOrderService(repo, renderer, &mockDispatcher{}, newMockCache())

	_, _, err := svc.DeliveryNote(context.Background(), 42, 0)
	assert.ErrorIs(t, err, inErrors.ErrOrderNotFound)
	assert.Zero(t, renderer.calls, "nothing must be rendered for a missing order")
}

func TestDeliveryNoteOwnership(t *testing.T) {
	repo := &mockRepository{
		findOrderByIdFn: func(c context.Context, orderID int64) (repository.Order, error) {
			return repository.Order{ID: orderID, UserID: 7}, nil
		},
		findOrderLinesFn: func(c context.Context, orderID int64) ([]repository.OrderLine, error) {
			return []repository.OrderLine{{ID: 1, OrderID: orderID, ProductID: 1, Quantity: 1}}, nil
		},
		findUserByIdFn: func(c context.Context, userID int64) (repository.User, error) {
			return repository.User{ID: userID, Nombre: "Ane"}, nil
		},
	}
	svc := NewOrderService(repo, &mockRenderer{}, &mockDispatcher{}, newMockCache())

	_, _, err := svc.DeliveryNote(context.Background(), 42, 8)
	assert.ErrorIs(t, err, inErrors.ErrOrderForbidden)

	order, pdf, err := svc.DeliveryNote(context.Background(), 42, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(42), order.ID)
	assert.NotEmpty(t, pdf)

	_, pdf, err = svc.DeliveryNote(context.Background(), 42, 0)
	require.NoError(t, err, "anonymous download skips the ownership check")
	assert.NotEmpty(t, pdf)
}

func TestDeliveryNoteUsesCachedOrder(t *testing.T) {
	repoCalls := 0
	repo := &mockRepository{
		findOrderByIdFn: func(c context.Context, orderID int64) (repository.Order, error) {
			repoCalls++
			return repository.Order{}, inErrors.ErrOrderNotFound
		},
		findUserByIdFn: func(c context.Context, userID int64) (repository.User, error) {
			return repository.User{ID: userID}, nil
		},
	}
	orderCache := newMockCache()
	orderCache.SetOrder(context.Background(), repository.Order{ID: 42, UserID: 7})
	svc := NewOrderService(repo, &mockRenderer{}, &mockDispatcher{}, orderCache)

	order, _, err := svc.DeliveryNote(context.Background(), 42, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(42), order.ID)
	assert.Zero(t, repoCalls, "cached order must not hit the repository")
}

func TestResendDeliveryNote(t *testing.T) {
	order := repository.Order{ID: 42, UserID: 7}
	lines := []repository.OrderLine{{ID: 1, OrderID: 42, ProductID: 1, Quantity: 2, Price: decimal.RequireFromString("10.50")}}
	repo := &mockRepository{
		findOrderByIdFn: func(c context.Context, orderID int64) (repository.Order, error) {
			return order, nil
		},
		findOrderLinesFn: func(c context.Context, orderID int64) ([]repository.OrderLine, error) {
			return lines, nil
		},
		findUserByIdFn: func(c context.Context, userID int64) (repository.User, error) {
			return repository.User{ID: userID, Nombre: "Ane", Email: "ane@example.com"}, nil
		},
	}
	renderer := &mockRenderer{}
	dispatcher := &mockDispatcher{}
	svc := NewOrderService(repo, renderer, dispatcher, newMockCache())

	err := svc.ResendDeliveryNote(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 1, renderer.calls)
	assert.Equal(t, 1, dispatcher.calls)
	assert.NotEmpty(t, dispatcher.lastPdf)
}

func TestResendDeliveryNoteWithoutEmail(t *testing.T) {
	repo := &mockRepository{
		findOrderByIdFn: func(c context.Context, orderID int64) (repository.Order, error) {
			return repository.Order{ID: orderID, UserID: 7}, nil
		},
		findOrderLinesFn: func(c context.Context, orderID int64) ([]repository.OrderLine, error) {
			return nil, nil
		},
		findUserByIdFn: func(c context.Context, userID int64) (repository.User, error) {
			return repository.User{ID: userID, Nombre: "Ane"}, nil
		},
	}
	dispatcher := &mockDispatcher{}
	svc := NewOrderService(repo, &mockRenderer{}, dispatcher, newMockCache())

	err := svc.ResendDeliveryNote(context.Background(), 42)
	assert.ErrorIs(t, err, inErrors.ErrUserNoEmail)
	assert.Zero(t, dispatcher.calls)
}

func TestResendDeliveryNoteDispatchFailureIsHard(t *testing.T) {
	repo := &mockRepository{
		findOrderByIdFn: func(c context.Context, orderID int64) (repository.Order, error) {
			return repository.Order{ID: orderID, UserID: 7}, nil
		},
		findOrderLinesFn: func(c context.Context, orderID int64) ([]repository.OrderLine, error) {
			return nil, nil
		},
		findUserByIdFn: func(c context.Context, userID int64) (repository.User, error) {
			return repository.User{ID: userID, Email: "ane@example.com"}, nil
		},
	}
	dispatcher := &mockDispatcher{
		sendFn: func(c context.Context, order repository.Order, lines []repository.OrderLine, user repository.User, pdf []byte) error {
			return errors.New("smtp connection refused")
		},
	}
	svc := NewOrderService(repo, &mockRenderer{}, dispatcher, newMockCache())

	err := svc.ResendDeliveryNote(context.Background(), 42)
	require.Error(t, err, "a failed resend must surface to the caller")
}
