package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/slicehouse/pizzeria/internal/domain"
	"github.com/slicehouse/pizzeria/internal/events"
	"github.com/slicehouse/pizzeria/internal/observability"
	"github.com/slicehouse/pizzeria/internal/repository"
	apperrors "github.com/slicehouse/pizzeria/pkg/util/errorutil"
)

const (
	WebhookPaymentCaptured = "payment.captured"
	WebhookPaymentFailed   = "payment.failed"
)

// PaymentService records outcomes from the mocked payment gateway.
type PaymentService struct {
	store         repository.UnitOfWork
	webhookSecret string
	metrics       *observability.Metrics
	logger        *zap.Logger
	events        publisher
}

// PaymentDependencies bundles requirements for the payment service.
type PaymentDependencies struct {
	Store         repository.UnitOfWork
	WebhookSecret string
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
	Logger        *zap.Logger
	Now           func() time.Time
}

// PaymentResult describes a completed payment.
type PaymentResult struct {
	Order        *domain.Order
	PointsEarned int
	Balance      int
	Tier         domain.MembershipTier
	TierUpgraded bool
}

// webhookEvent is the subset of the gateway payload that is read.
type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string            `json:"id"`
				OrderID string            `json:"order_id"`
				Notes   map[string]string `json:"notes"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

func NewPaymentService(deps PaymentDependencies) *PaymentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		store:         deps.Store,
		webhookSecret: deps.WebhookSecret,
		metrics:       deps.Metrics,
		logger:        logger,
		events:        newPublisher(deps.Dispatcher, deps.Now),
	}
}

// ProcessPayment marks the caller's order as paid and credits loyalty points in one transaction.
func (s *PaymentService) ProcessPayment(ctx context.Context, userID, orderID, paymentID string) (*PaymentResult, error) {
	return s.complete(ctx, orderID, paymentID, func(order *domain.Order) error {
		if order.UserID != userID {
			return apperrors.NewForbidden("order belongs to another user")
		}
		return nil
	})
}

// HandleWebhook verifies and applies a gateway callback. Unknown events are ignored.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if s.webhookSecret != "" && !validSignature(s.webhookSecret, body, signature) {
		return apperrors.NewUnauthorized("invalid webhook signature")
	}

	var evt webhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return apperrors.NewValidationError("invalid webhook payload", nil)
	}
	entity := evt.Payload.Payment.Entity
	orderID := entity.Notes["order_id"]
	if orderID == "" {
		orderID = entity.OrderID
	}

	switch evt.Event {
	case WebhookPaymentCaptured:
		if orderID == "" {
			return apperrors.NewValidationError("webhook payload has no order id", nil)
		}
		_, err := s.complete(ctx, orderID, entity.ID, nil)
		if apperrors.IsStatus(err, http.StatusConflict) {
			s.logger.Info("webhook for settled order ignored", zap.String("order_id", orderID))
			return nil
		}
		return err
	case WebhookPaymentFailed:
		if orderID == "" {
			return apperrors.NewValidationError("webhook payload has no order id", nil)
		}
		return s.fail(ctx, orderID, entity.ID)
	default:
		s.logger.Debug("ignoring webhook event", zap.String("event", evt.Event))
		return nil
	}
}

func (s *PaymentService) complete(ctx context.Context, orderID, paymentID string, authorize func(*domain.Order) error) (*PaymentResult, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		paymentID = "pay_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	}

	var result *PaymentResult
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		order, err := repos.Orders.GetByID(ctx, orderID)
		if err != nil {
			return notFound(err, "order")
		}
		if authorize != nil {
			if err := authorize(order); err != nil {
				return err
			}
		}
		if !order.Payable() {
			return apperrors.NewConflict("order is already paid or cancelled", map[string]any{
				"status":         order.Status,
				"payment_status": order.PaymentStatus,
			})
		}

		order.PaymentStatus = domain.PaymentCompleted
		order.PaymentID = &paymentID
		if order.Status == domain.OrderStatusPending {
			order.Status = domain.OrderStatusReceived
		}
		if err := repos.Orders.Update(ctx, order); err != nil {
			return err
		}

		user, err := repos.Users.GetByID(ctx, order.UserID)
		if err != nil {
			return notFound(err, "user")
		}
		earned := domain.EarnedPoints(order.FinalAmount)
		balance, tier, upgraded, err := creditPoints(ctx, repos, user, earned)
		if err != nil {
			return err
		}

		result = &PaymentResult{
			Order:        order,
			PointsEarned: earned,
			Balance:      balance,
			Tier:         tier,
			TierUpgraded: upgraded,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PaymentRecorded(string(domain.PaymentCompleted))
	s.metrics.PointsEarned(result.PointsEarned)
	s.events.publish(ctx, events.Event{
		Type:      events.EventPaymentRecorded,
		UserID:    result.Order.UserID,
		SubjectID: result.Order.ID,
		Payload: events.PaymentRecordedPayload{
			PaymentID:    paymentID,
			Status:       domain.PaymentCompleted,
			Amount:       result.Order.FinalAmount,
			PointsEarned: result.PointsEarned,
		},
	})
	if result.PointsEarned > 0 {
		s.events.publish(ctx, events.Event{
			Type:      events.EventLoyaltyChanged,
			UserID:    result.Order.UserID,
			SubjectID: result.Order.ID,
			Payload: events.LoyaltyChangedPayload{
				Delta:   result.PointsEarned,
				Balance: result.Balance,
				Tier:    result.Tier,
				Upgrade: result.TierUpgraded,
			},
		})
	}
	return result, nil
}

func (s *PaymentService) fail(ctx context.Context, orderID, paymentID string) error {
	var order *domain.Order
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		order, err = repos.Orders.GetByID(ctx, orderID)
		if err != nil {
			return notFound(err, "order")
		}
		if order.PaymentStatus == domain.PaymentCompleted {
			return nil
		}
		order.PaymentStatus = domain.PaymentFailed
		if paymentID != "" {
			order.PaymentID = &paymentID
		}
		return repos.Orders.Update(ctx, order)
	})
	if err != nil {
		return err
	}
	if order.PaymentStatus != domain.PaymentFailed {
		return nil
	}

	s.metrics.PaymentRecorded(string(domain.PaymentFailed))
	s.events.publish(ctx, events.Event{
		Type:      events.EventPaymentRecorded,
		UserID:    order.UserID,
		SubjectID: order.ID,
		Payload: events.PaymentRecordedPayload{
			PaymentID: paymentID,
			Status:    domain.PaymentFailed,
			Amount:    order.FinalAmount,
		},
	})
	return nil
}

// SignWebhook returns the hex HMAC-SHA256 of body, as sent in the signature header.
func SignWebhook(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func validSignature(secret string, body []byte, signature string) bool {
	want := SignWebhook(secret, body)
	return hmac.Equal([]byte(want), []byte(strings.ToLower(strings.TrimSpace(signature))))
}
