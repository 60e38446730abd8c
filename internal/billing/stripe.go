package billing

import (
	"context"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
)

const productName = "TaskSensei Subscription"

type StripeConfig struct {
	SecretKey  string
	SuccessURL string
	CancelURL  string
	UnitAmount int64
}

// StripeCheckout creates monthly subscription checkout sessions.
type StripeCheckout struct {
	sessions   *session.Client
	successURL string
	cancelURL  string
	unitAmount int64
}

// NewStripeCheckout uses backend when non-nil, the default API backend otherwise.
func NewStripeCheckout(cfg StripeConfig, backend stripe.Backend) *StripeCheckout {
	if backend == nil {
		backend = stripe.GetBackend(stripe.APIBackend)
	}
	amount := cfg.UnitAmount
	if amount <= 0 {
		amount = 3900
	}
	return &StripeCheckout{
		sessions:   &session.Client{B: backend, Key: cfg.SecretKey},
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
		unitAmount: amount,
	}
}

func (s *StripeCheckout) CreateCheckout(ctx context.Context, userID, plan string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		ClientReferenceID:  stripe.String(userID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(string(stripe.CurrencyUSD)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(productName),
					Description: stripe.String(planTitle(plan) + " Plan Subscription"),
				},
				UnitAmount: stripe.Int64(s.unitAmount),
				Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
					Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		SuccessURL: stripe.String(s.successURL + "?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(s.cancelURL),
	}
	params.Context = ctx
	params.AddMetadata("user_id", userID)
	params.AddMetadata("plan", plan)

	cs, err := s.sessions.New(params)
	if err != nil {
		return "", err
	}
	return cs.ID, nil
}
