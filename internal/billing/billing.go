// Package billing creates subscription checkouts and applies payment webhooks.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/ZWieseDev/TaskSenseiOverview/internal/common"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/logger"
)

const (
	DefaultPlan        = "pro"
	PaymentStatusPaid  = "paid"
	SubscriptionActive = "active"
)

type CheckoutCreator interface {
	CreateCheckout(ctx context.Context, userID, plan string) (sessionID string, err error)
}

type SubscriptionStore interface {
	UpdateSubscription(ctx context.Context, userID, plan, status string) error
}

type Service struct {
	checkout      CheckoutCreator
	store         SubscriptionStore
	webhookSecret string
	log           logger.Interface
}

func NewService(checkout CheckoutCreator, store SubscriptionStore, webhookSecret string, log logger.Interface) *Service {
	return &Service{
		checkout:      checkout,
		store:         store,
		webhookSecret: webhookSecret,
		log:           log.Named("billing"),
	}
}

func (s *Service) Checkout(ctx context.Context, userID, plan string) (string, error) {
	if userID == "" {
		return "", common.BadRequest("Missing user_id")
	}
	if plan == "" {
		plan = DefaultPlan
	}
	id, err := s.checkout.CreateCheckout(ctx, userID, plan)
	if err != nil {
		return "", common.Upstream(fmt.Errorf("create checkout for %s: %w", userID, err))
	}
	return id, nil
}

// HandleWebhook applies a payment event. Only a paid checkout.session.completed
// changes state. When a signing secret is configured the signature must verify.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	var ev stripe.Event
	if s.webhookSecret != "" {
		verified, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
			webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
		if err != nil {
			return &common.Error{Kind: common.KindBadRequest, Message: "Invalid signature", Err: err}
		}
		ev = verified
	} else if err := json.Unmarshal(payload, &ev); err != nil {
		return common.BadRequest("Invalid payload")
	}

	if ev.Type != stripe.EventTypeCheckoutSessionCompleted || ev.Data == nil {
		s.log.Debugw("webhook ignored", "type", ev.Type)
		return nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
		return common.BadRequest("Invalid payload")
	}
	if !checkoutPaid(&cs) {
		s.log.Debugw("webhook ignored", "type", ev.Type, "status", cs.Status, "payment_status", cs.PaymentStatus)
		return nil
	}

	userID := cs.Metadata["user_id"]
	if userID == "" {
		s.log.Warnw("paid checkout without user_id metadata")
		return nil
	}
	plan := cs.Metadata["plan"]
	if plan == "" {
		plan = "unknown_plan"
	}

	if err := s.store.UpdateSubscription(ctx, userID, plan, SubscriptionActive); err != nil {
		return common.Upstream(fmt.Errorf("update subscription for %s: %w", userID, err))
	}
	s.log.Infow("subscription activated", "user_id", userID, "plan", plan)
	return nil
}

// checkoutPaid accepts either the session's payment_status or a status
// field carrying "paid".
func checkoutPaid(cs *stripe.CheckoutSession) bool {
	return cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid ||
		string(cs.Status) == PaymentStatusPaid
}

// planTitle turns "pro" into "Pro".
func planTitle(plan string) string {
	r, size := utf8.DecodeRuneInString(plan)
	if size == 0 {
		return ""
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(plan[size:])
}
