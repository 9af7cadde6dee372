package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"shop-backend/internal/domain"
	"shop-backend/internal/infra/hyp"
	rabbit "shop-backend/internal/infra/rabbitmq"
	"shop-backend/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

type CheckoutRequest struct {
	CustomerDetails domain.CustomerDetails
	Cart            []domain.CartItem
	Source          string
	Section         string
}

type CheckoutResult struct {
	OrderID    string
	PaymentURL string
	Totals     domain.Totals
	Redirects  ReturnURLs
}

type ConfirmResult struct {
	OrderID string
	Success bool
	Status  domain.OrderStatus
}

// ReturnURLs are the storefront pages the gateway sends the customer back to.
type ReturnURLs struct {
	Success string `json:"successUrl"`
	Failure string `json:"failureUrl"`
	Cancel  string `json:"cancelUrl"`
}

func BuildReturnURLs(appBaseURL, successPath, failurePath, cancelPath string) ReturnURLs {
	base := strings.TrimRight(appBaseURL, "/")
	return ReturnURLs{
		Success: base + successPath,
		Failure: base + failurePath,
		Cancel:  base + cancelPath,
	}
}

// CheckoutService drives an order from cart to paid: it prices the cart,
// persists a pending order, obtains the signed payment redirect, and later
// reconciles the gateway's confirmation callback against the stored order.
type CheckoutService struct {
	repo      repository.OrderRepository
	gateway   hyp.ClientInterface
	notifier  NotifierInterface
	publisher rabbit.PublisherInterface
	redirects ReturnURLs

	// confirms collapses concurrent confirmation callbacks for the same
	// gateway order id so status and mail flags are never saved from two
	// goroutines at once. Different order ids proceed independently.
	confirms singleflight.Group
}

// NewCheckoutService wires the orchestrator. pub may be nil when no broker
// is configured; it must then be a true nil interface, not a typed nil.
func NewCheckoutService(r repository.OrderRepository, g hyp.ClientInterface, n NotifierInterface, pub rabbit.PublisherInterface, redirects ReturnURLs) *CheckoutService {
	return &CheckoutService{
		repo:      r,
		gateway:   g,
		notifier:  n,
		publisher: pub,
		redirects: redirects,
	}
}

// Checkout validates the request, stores a pending order and returns the
// gateway redirect URL. A gateway failure after the order was stored leaves
// the order pending, which is harmless: it is the same state an abandoned
// payment page produces.
func (s *CheckoutService) Checkout(ctx context.Context, req *CheckoutRequest) (*CheckoutResult, error) {
	if err := validateCheckout(req); err != nil {
		return nil, err
	}

	totals := domain.ComputeTotals(req.Cart)
	if totals.Total <= 0 {
		return nil, validationErr("order total must be positive")
	}

	orderID := newGatewayOrderID()

	source := req.Source
	if source == "" {
		source = "site"
	}

	order := &domain.Order{
		Source:          source,
		Section:         req.Section,
		CustomerDetails: req.CustomerDetails,
		Cart:            req.Cart,
		Totals:          totals,
		Payment: domain.PaymentInfo{
			Provider: "hyp",
			OrderID:  orderID,
		},
		Status: domain.StatusPendingPayment,
	}

	if err := s.repo.Create(order); err != nil {
		return nil, err
	}

	signed, err := s.gateway.Sign(ctx, s.buildSignRequest(order))
	if err != nil {
		return nil, err
	}

	go s.publishOrderEvent(context.Background(), "order.created", order)

	return &CheckoutResult{
		OrderID:    orderID,
		PaymentURL: signed.RedirectURL,
		Totals:     totals,
		Redirects:  s.redirects,
	}, nil
}

// Confirm handles the gateway's asynchronous callback. The verified result
// is recorded on the order unconditionally so declined transactions stay
// auditable; mails go out only for approved payments and at most once per
// recipient. Safe to call repeatedly for the same order.
func (s *CheckoutService) Confirm(ctx context.Context, callbackParams map[string]string) (*ConfirmResult, error) {
	orderID := strings.TrimSpace(callbackParams["Order"])
	if orderID == "" {
		return nil, validationErr("missing Order parameter")
	}
	if strings.TrimSpace(callbackParams["CCode"]) == "" {
		return nil, validationErr("missing CCode parameter")
	}

	v, err, _ := s.confirms.Do(orderID, func() (interface{}, error) {
		return s.confirmOne(ctx, orderID, callbackParams)
	})
	if err != nil {
		return nil, err
	}
	return v.(*ConfirmResult), nil
}

func (s *CheckoutService) confirmOne(ctx context.Context, orderID string, callbackParams map[string]string) (*ConfirmResult, error) {
	verified, err := s.gateway.Verify(ctx, callbackParams)
	if err != nil {
		return nil, err
	}
	success := hyp.Approved(verified.CCode)

	order, err := s.repo.FindByGatewayOrderID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	now := time.Now()
	order.Payment.CCode = verified.CCode
	order.Payment.TransactionID = verified.TransactionID
	order.Payment.Raw = verified.Raw
	order.Payment.VerifiedAt = &now

	if !order.Status.IsTerminal() {
		if success {
			order.Status = domain.StatusPaid
		} else {
			order.Status = domain.StatusFailed
		}
	}

	if err := s.repo.Save(order); err != nil {
		return nil, err
	}

	// Dispatch only when the durable status actually is paid. A success
	// callback can arrive for an order already terminal in failed (the
	// customer retried after a decline under the same order id); mails must
	// track the stored status, not the callback alone.
	if success && order.Status == domain.StatusPaid {
		s.notifier.NotifyPaid(order)
		go s.publishOrderEvent(context.Background(), "order.paid", order)
	}

	return &ConfirmResult{
		OrderID: orderID,
		Success: success,
		Status:  order.Status,
	}, nil
}

// MarkPaid forces a paid transition without a gateway round-trip. Reachable
// only through the secret-gated dev endpoint.
func (s *CheckoutService) MarkPaid(ctx context.Context, orderID string) (*ConfirmResult, error) {
	order, err := s.repo.FindByGatewayOrderID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	now := time.Now()
	order.Payment.CCode = "0"
	order.Payment.VerifiedAt = &now
	if !order.Status.IsTerminal() {
		order.Status = domain.StatusPaid
	}

	if err := s.repo.Save(order); err != nil {
		return nil, err
	}

	s.notifier.NotifyPaid(order)
	return &ConfirmResult{OrderID: orderID, Success: true, Status: order.Status}, nil
}

// Status returns the order for the status endpoint.
func (s *CheckoutService) Status(orderID string) (*domain.Order, error) {
	order, err := s.repo.FindByGatewayOrderID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *CheckoutService) GetOrder(id uint64) (*domain.Order, error) {
	order, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *CheckoutService) ListOrders(page, limit int) ([]domain.Order, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 5 {
		limit = 5
	}
	if limit > 50 {
		limit = 50
	}

	items, err := s.repo.List(limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count()
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *CheckoutService) buildSignRequest(order *domain.Order) hyp.SignRequest {
	cd := order.CustomerDetails
	return hyp.SignRequest{
		OrderID:    order.Payment.OrderID,
		Info:       fmt.Sprintf("Shop order %s", order.Payment.OrderID),
		Amount:     int64(math.Round(order.Totals.Total * 100)),
		Coin:       1,
		PageLang:   "HEB",
		MoreData:   true,
		UserID:     "000000000",
		ClientName: cd.Fullname,
		Phone:      cd.Phone,
		Email:      cd.Email,
		Street:     strings.TrimSpace(cd.Street + " " + cd.HouseNumber),
		City:       cd.City,
		Zip:        cd.Zip,
	}
}

func (s *CheckoutService) publishOrderEvent(ctx context.Context, routingKey string, order *domain.Order) {
	if s.publisher == nil {
		return
	}
	evt := map[string]any{
		"orderId":   order.Payment.OrderID,
		"status":    order.Status,
		"total":     order.Totals.Total,
		"createdAt": order.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, routingKey, evt); err != nil {
		log.Printf("Failed to publish %s event: %v", routingKey, err)
	}
}

func validateCheckout(req *CheckoutRequest) error {
	if req == nil || len(req.Cart) == 0 {
		return validationErr("cart is empty")
	}

	cd := req.CustomerDetails
	required := map[string]string{
		"fullname":    cd.Fullname,
		"phone":       cd.Phone,
		"city":        cd.City,
		"street":      cd.Street,
		"houseNumber": cd.HouseNumber,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			return validationErr("missing customer field: " + field)
		}
	}
	return nil
}

// newGatewayOrderID builds a key that is unique per checkout attempt, query
// string safe, and well under the gateway's 64 char limit.
func newGatewayOrderID() string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("ORD-%d-%s", time.Now().UnixMilli(), suffix)
}
