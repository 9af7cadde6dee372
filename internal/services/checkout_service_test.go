package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"shop-backend/internal/domain"
	"shop-backend/internal/infra/hyp"
	rabbit "shop-backend/internal/infra/rabbitmq"
	"shop-backend/internal/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func validCheckoutRequest() *CheckoutRequest {
	return &CheckoutRequest{
		CustomerDetails: domain.CustomerDetails{
			Fullname:    "Israel Israeli",
			Phone:       "0501234567",
			Email:       "israel@example.com",
			City:        "Tel Aviv",
			Street:      "Herzl",
			HouseNumber: "12",
		},
		Cart: []domain.CartItem{
			{Title: "Canvas A", Category: domain.CategoryStandard, Quantity: 2},
		},
	}
}

// newTestService takes the publisher as the interface type: passing a nil
// *mocks.MockPublisher through a concrete parameter would wrap it into a
// non-nil interface and defeat the orchestrator's nil-publisher guard.
func newTestService(repo *mocks.MockOrderRepository, gw *mocks.MockGateway, notifier *mocks.MockNotifier, pub rabbit.PublisherInterface) *CheckoutService {
	redirects := BuildReturnURLs("https://shop.example.com/", "/payment/success", "/payment/failure", "/payment/cancel")
	return NewCheckoutService(repo, gw, notifier, pub, redirects)
}

func TestCheckoutService_Checkout(t *testing.T) {
	tests := []struct {
		name          string
		request       *CheckoutRequest
		setupMocks    func(*mocks.MockOrderRepository, *mocks.MockGateway, *mocks.MockPublisher)
		expectedError string
		wantOrder     bool
	}{
		{
			name:    "successful checkout",
			request: validCheckoutRequest(),
			setupMocks: func(repo *mocks.MockOrderRepository, gw *mocks.MockGateway, pub *mocks.MockPublisher) {
				repo.On("Create", mock.AnythingOfType("*domain.Order")).Return(nil).Run(func(args mock.Arguments) {
					order := args.Get(0).(*domain.Order)
					order.ID = 1
				})
				gw.On("Sign", mock.Anything, mock.AnythingOfType("hyp.SignRequest")).Return(&hyp.SignResult{
					RedirectURL: "https://pay.hyp.co.il/p/?Masof=1&signature=abc",
					RawQuery:    "Masof=1&signature=abc",
					Fields:      map[string]string{"signature": "abc"},
				}, nil)
				pub.On("Publish", mock.Anything, "order.created", mock.Anything).Return(nil).Maybe()
			},
			wantOrder: true,
		},
		{
			name: "empty cart",
			request: &CheckoutRequest{
				CustomerDetails: validCheckoutRequest().CustomerDetails,
			},
			setupMocks:    func(*mocks.MockOrderRepository, *mocks.MockGateway, *mocks.MockPublisher) {},
			expectedError: "cart is empty",
		},
		{
			name: "missing customer field",
			request: func() *CheckoutRequest {
				r := validCheckoutRequest()
				r.CustomerDetails.Phone = "  "
				return r
			}(),
			setupMocks:    func(*mocks.MockOrderRepository, *mocks.MockGateway, *mocks.MockPublisher) {},
			expectedError: "missing customer field: phone",
		},
		{
			name: "zero total",
			request: func() *CheckoutRequest {
				r := validCheckoutRequest()
				r.Cart = []domain.CartItem{{Title: "Freebie", Category: domain.CategoryOther, Quantity: 1, Price: 0}}
				return r
			}(),
			setupMocks:    func(*mocks.MockOrderRepository, *mocks.MockGateway, *mocks.MockPublisher) {},
			expectedError: "order total must be positive",
		},
		{
			name:    "gateway failure leaves pending order",
			request: validCheckoutRequest(),
			setupMocks: func(repo *mocks.MockOrderRepository, gw *mocks.MockGateway, pub *mocks.MockPublisher) {
				repo.On("Create", mock.AnythingOfType("*domain.Order")).Return(nil).Run(func(args mock.Arguments) {
					args.Get(0).(*domain.Order).ID = 1
				})
				gw.On("Sign", mock.Anything, mock.Anything).Return(nil, &hyp.GatewayError{Op: "sign", Err: errors.New("connection refused")})
			},
			expectedError: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mocks.MockOrderRepository)
			gw := new(mocks.MockGateway)
			notifier := new(mocks.MockNotifier)
			pub := new(mocks.MockPublisher)

			tt.setupMocks(repo, gw, pub)

			service := newTestService(repo, gw, notifier, pub)
			result, err := service.Checkout(context.Background(), tt.request)

			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				assert.Nil(t, result)
			} else {
				require.NoError(t, err)
				require.NotNil(t, result)
				assert.NotEmpty(t, result.OrderID)
				assert.LessOrEqual(t, len(result.OrderID), 64)
				assert.Contains(t, result.PaymentURL, "signature=abc")
				assert.Equal(t, float64(400), result.Totals.Total)
				assert.Equal(t, "https://shop.example.com/payment/success", result.Redirects.Success)
			}

			if tt.wantOrder || tt.expectedError == "connection refused" {
				repo.AssertCalled(t, "Create", mock.Anything)
			} else {
				repo.AssertNotCalled(t, "Create", mock.Anything)
				gw.AssertNotCalled(t, "Sign", mock.Anything, mock.Anything)
			}

			time.Sleep(50 * time.Millisecond)
			repo.AssertExpectations(t)
			gw.AssertExpectations(t)
		})
	}
}

func TestCheckoutService_CheckoutPersistsPendingOrder(t *testing.T) {
	repo := new(mocks.MockOrderRepository)
	gw := new(mocks.MockGateway)
	notifier := new(mocks.MockNotifier)
	pub := new(mocks.MockPublisher)

	var created *domain.Order
	repo.On("Create", mock.AnythingOfType("*domain.Order")).Return(nil).Run(func(args mock.Arguments) {
		created = args.Get(0).(*domain.Order)
		created.ID = 7
	})
	gw.On("Sign", mock.Anything, mock.Anything).Return(&hyp.SignResult{RedirectURL: "u", Fields: map[string]string{"signature": "s"}}, nil)
	pub.On("Publish", mock.Anything, "order.created", mock.Anything).Return(nil).Maybe()

	service := newTestService(repo, gw, notifier, pub)
	result, err := service.Checkout(context.Background(), validCheckoutRequest())

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, domain.StatusPendingPayment, created.Status)
	assert.Equal(t, "hyp", created.Payment.Provider)
	assert.Equal(t, result.OrderID, created.Payment.OrderID)
	assert.Empty(t, created.Payment.CCode)

	// amount sent to the gateway is the total in agorot
	signReq := gw.Calls[0].Arguments.Get(1).(hyp.SignRequest)
	assert.Equal(t, int64(40000), signReq.Amount)
	assert.Equal(t, result.OrderID, signReq.OrderID)

	time.Sleep(50 * time.Millisecond)
}

func pendingOrder(orderID string) *domain.Order {
	return &domain.Order{
		ID:     3,
		Source: "site",
		CustomerDetails: domain.CustomerDetails{
			Fullname:    "Israel Israeli",
			Phone:       "0501234567",
			Email:       "israel@example.com",
			City:        "Tel Aviv",
			Street:      "Herzl",
			HouseNumber: "12",
		},
		Cart:    []domain.CartItem{{Title: "Canvas A", Category: domain.CategoryStandard, Quantity: 2}},
		Totals:  domain.ComputeTotals([]domain.CartItem{{Title: "Canvas A", Category: domain.CategoryStandard, Quantity: 2}}),
		Payment: domain.PaymentInfo{Provider: "hyp", OrderID: orderID},
		Status:  domain.StatusPendingPayment,
	}
}

func TestCheckoutService_Confirm(t *testing.T) {
	callback := func(ccode string) map[string]string {
		return map[string]string{"Order": "ORD-1", "CCode": ccode, "Id": "555"}
	}

	tests := []struct {
		name            string
		params          map[string]string
		setupMocks      func(*mocks.MockOrderRepository, *mocks.MockGateway, *mocks.MockNotifier)
		expectedError   error
		expectedErrText string
		expectedSuccess bool
		expectedStatus  domain.OrderStatus
	}{
		{
			name:   "approved payment",
			params: callback("0"),
			setupMocks: func(repo *mocks.MockOrderRepository, gw *mocks.MockGateway, n *mocks.MockNotifier) {
				gw.On("Verify", mock.Anything, mock.Anything).Return(&hyp.VerifyResult{
					CCode: "0", OrderID: "ORD-1", TransactionID: "555",
					Raw: map[string]string{"CCode": "0", "Order": "ORD-1", "Id": "555"},
				}, nil)
				repo.On("FindByGatewayOrderID", "ORD-1").Return(pendingOrder("ORD-1"), nil)
				repo.On("Save", mock.AnythingOfType("*domain.Order")).Return(nil)
				n.On("NotifyPaid", mock.AnythingOfType("*domain.Order")).Once()
			},
			expectedSuccess: true,
			expectedStatus:  domain.StatusPaid,
		},
		{
			name:   "declined payment records audit and sends nothing",
			params: callback("902"),
			setupMocks: func(repo *mocks.MockOrderRepository, gw *mocks.MockGateway, n *mocks.MockNotifier) {
				gw.On("Verify", mock.Anything, mock.Anything).Return(&hyp.VerifyResult{
					CCode: "902", OrderID: "ORD-1",
					Raw: map[string]string{"CCode": "902", "Order": "ORD-1"},
				}, nil)
				repo.On("FindByGatewayOrderID", "ORD-1").Return(pendingOrder("ORD-1"), nil)
				repo.On("Save", mock.AnythingOfType("*domain.Order")).Return(nil)
			},
			expectedSuccess: false,
			expectedStatus:  domain.StatusFailed,
		},
		{
			name:   "unknown order",
			params: callback("0"),
			setupMocks: func(repo *mocks.MockOrderRepository, gw *mocks.MockGateway, n *mocks.MockNotifier) {
				gw.On("Verify", mock.Anything, mock.Anything).Return(&hyp.VerifyResult{CCode: "0", OrderID: "ORD-1"}, nil)
				repo.On("FindByGatewayOrderID", "ORD-1").Return(nil, nil)
			},
			expectedError: ErrOrderNotFound,
		},
		{
			name:            "missing order parameter",
			params:          map[string]string{"CCode": "0"},
			setupMocks:      func(*mocks.MockOrderRepository, *mocks.MockGateway, *mocks.MockNotifier) {},
			expectedErrText: "missing Order parameter",
		},
		{
			name:            "missing result code",
			params:          map[string]string{"Order": "ORD-1"},
			setupMocks:      func(*mocks.MockOrderRepository, *mocks.MockGateway, *mocks.MockNotifier) {},
			expectedErrText: "missing CCode parameter",
		},
		{
			name:   "gateway transport failure",
			params: callback("0"),
			setupMocks: func(repo *mocks.MockOrderRepository, gw *mocks.MockGateway, n *mocks.MockNotifier) {
				gw.On("Verify", mock.Anything, mock.Anything).Return(nil, &hyp.GatewayError{Op: "verify", Err: errors.New("timeout")})
			},
			expectedErrText: "timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mocks.MockOrderRepository)
			gw := new(mocks.MockGateway)
			notifier := new(mocks.MockNotifier)
			pub := new(mocks.MockPublisher)
			pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

			tt.setupMocks(repo, gw, notifier)

			service := newTestService(repo, gw, notifier, pub)
			result, err := service.Confirm(context.Background(), tt.params)

			switch {
			case tt.expectedError != nil:
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedError)
				repo.AssertNotCalled(t, "Save", mock.Anything)
			case tt.expectedErrText != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedErrText)
				repo.AssertNotCalled(t, "Save", mock.Anything)
			default:
				require.NoError(t, err)
				assert.Equal(t, "ORD-1", result.OrderID)
				assert.Equal(t, tt.expectedSuccess, result.Success)
				assert.Equal(t, tt.expectedStatus, result.Status)

				saved := repo.Calls[len(repo.Calls)-1].Arguments.Get(0).(*domain.Order)
				assert.Equal(t, tt.params["CCode"], saved.Payment.CCode)
				assert.NotNil(t, saved.Payment.VerifiedAt)
				assert.Equal(t, tt.expectedStatus, saved.Status)
			}

			if !tt.expectedSuccess {
				notifier.AssertNotCalled(t, "NotifyPaid", mock.Anything)
			}

			time.Sleep(50 * time.Millisecond)
			repo.AssertExpectations(t)
			gw.AssertExpectations(t)
			notifier.AssertExpectations(t)
		})
	}
}

func TestCheckoutService_ConfirmAgainOnPaidOrder(t *testing.T) {
	repo := new(mocks.MockOrderRepository)
	gw := new(mocks.MockGateway)
	notifier := new(mocks.MockNotifier)

	paid := pendingOrder("ORD-1")
	paid.Status = domain.StatusPaid
	paid.AdminMailSent = true
	paid.CustomerMailSent = true

	gw.On("Verify", mock.Anything, mock.Anything).Return(&hyp.VerifyResult{
		CCode: "0", OrderID: "ORD-1", TransactionID: "555",
		Raw: map[string]string{"CCode": "0"},
	}, nil)
	repo.On("FindByGatewayOrderID", "ORD-1").Return(paid, nil)
	repo.On("Save", mock.AnythingOfType("*domain.Order")).Return(nil)
	// re-dispatch is expected; the dispatcher's own sent flags stop mail
	notifier.On("NotifyPaid", mock.AnythingOfType("*domain.Order")).Once()

	service := newTestService(repo, gw, notifier, nil)
	result, err := service.Confirm(context.Background(), map[string]string{"Order": "ORD-1", "CCode": "0"})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, domain.StatusPaid, result.Status)

	// nil publisher: the paid-event goroutine must not touch the broker
	time.Sleep(50 * time.Millisecond)

	repo.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestCheckoutService_ConfirmSuccessAfterDeclineKeepsFailed(t *testing.T) {
	repo := new(mocks.MockOrderRepository)
	gw := new(mocks.MockGateway)
	notifier := new(mocks.MockNotifier)

	declined := pendingOrder("ORD-1")
	declined.Status = domain.StatusFailed
	declined.Payment.CCode = "902"

	gw.On("Verify", mock.Anything, mock.Anything).Return(&hyp.VerifyResult{
		CCode: "0", OrderID: "ORD-1", TransactionID: "556",
		Raw: map[string]string{"CCode": "0", "Order": "ORD-1", "Id": "556"},
	}, nil)
	repo.On("FindByGatewayOrderID", "ORD-1").Return(declined, nil)
	repo.On("Save", mock.AnythingOfType("*domain.Order")).Return(nil)

	service := newTestService(repo, gw, notifier, nil)
	result, err := service.Confirm(context.Background(), map[string]string{"Order": "ORD-1", "CCode": "0"})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, domain.StatusFailed, result.Status)

	// the stored order stays failed, so no confirmation mail goes out
	saved := repo.Calls[len(repo.Calls)-1].Arguments.Get(0).(*domain.Order)
	assert.Equal(t, domain.StatusFailed, saved.Status)
	assert.Equal(t, "0", saved.Payment.CCode)
	assert.NotNil(t, saved.Payment.VerifiedAt)
	notifier.AssertNotCalled(t, "NotifyPaid", mock.Anything)

	time.Sleep(50 * time.Millisecond)
	repo.AssertExpectations(t)
	gw.AssertExpectations(t)
}

func TestCheckoutService_MarkPaid(t *testing.T) {
	repo := new(mocks.MockOrderRepository)
	notifier := new(mocks.MockNotifier)

	repo.On("FindByGatewayOrderID", "ORD-1").Return(pendingOrder("ORD-1"), nil)
	repo.On("Save", mock.AnythingOfType("*domain.Order")).Return(nil)
	notifier.On("NotifyPaid", mock.AnythingOfType("*domain.Order")).Once()

	service := newTestService(repo, new(mocks.MockGateway), notifier, nil)
	result, err := service.MarkPaid(context.Background(), "ORD-1")

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, domain.StatusPaid, result.Status)
	repo.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestCheckoutService_StatusNotFound(t *testing.T) {
	repo := new(mocks.MockOrderRepository)
	repo.On("FindByGatewayOrderID", "ORD-missing").Return(nil, nil)

	service := newTestService(repo, new(mocks.MockGateway), new(mocks.MockNotifier), nil)
	_, err := service.Status("ORD-missing")

	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestCheckoutService_ListOrdersClampsPaging(t *testing.T) {
	tests := []struct {
		name           string
		page           int
		limit          int
		expectedLimit  int
		expectedOffset int
	}{
		{name: "limit below floor", page: 1, limit: 1, expectedLimit: 5, expectedOffset: 0},
		{name: "limit above ceiling", page: 2, limit: 100, expectedLimit: 50, expectedOffset: 50},
		{name: "zero page", page: 0, limit: 20, expectedLimit: 20, expectedOffset: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mocks.MockOrderRepository)
			repo.On("List", tt.expectedLimit, tt.expectedOffset).Return([]domain.Order{}, nil)
			repo.On("Count").Return(int64(0), nil)

			service := newTestService(repo, new(mocks.MockGateway), new(mocks.MockNotifier), nil)
			_, _, err := service.ListOrders(tt.page, tt.limit)

			require.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}
}

func TestBuildReturnURLs(t *testing.T) {
	urls := BuildReturnURLs("https://shop.example.com///", "/payment/success", "/payment/failure", "/payment/cancel")

	assert.Equal(t, "https://shop.example.com/payment/success", urls.Success)
	assert.Equal(t, "https://shop.example.com/payment/failure", urls.Failure)
	assert.Equal(t, "https://shop.example.com/payment/cancel", urls.Cancel)
}
