package lib

import (
	"context"
	"log"
	"strconv"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"natours/src/types"
)

// StripeGateway creates hosted checkout sessions and verifies webhook
// deliveries.
type StripeGateway struct {
	client        *stripe.Client
	webhookSecret string
}

func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	return &StripeGateway{client: stripe.NewClient(secretKey), webhookSecret: webhookSecret}
}

// NewStripeGatewayWithClient uses a preconfigured client, e.g. one pointed at
// a stub backend.
func NewStripeGatewayWithClient(c *stripe.Client, webhookSecret string) *StripeGateway {
	return &StripeGateway{client: c, webhookSecret: webhookSecret}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, p *types.CheckoutSessionParams) (*types.CheckoutSession, error) {
	bookingID := strconv.FormatUint(uint64(p.BookingID), 10)
	params := &stripe.CheckoutSessionCreateParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(p.SuccessURL),
		CancelURL:          stripe.String(p.CancelURL),
		CustomerEmail:      stripe.String(p.CustomerEmail),
		ClientReferenceID:  stripe.String(p.ReferenceID),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency:   stripe.String(p.Currency),
					UnitAmount: stripe.Int64(p.UnitAmount),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name:        stripe.String(p.ProductName),
						Description: stripe.String(p.Description),
						Images:      stripe.StringSlice(p.Images),
					},
				},
			},
		},
		Metadata: map[string]string{"bookingId": bookingID},
	}
	cs, err := g.client.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		log.Printf("[Stripe] CreateCheckoutSession failed: %s\n", err.Error())
		return nil, err
	}
	log.Printf("[Stripe] CheckoutSessionID: %s\n", cs.ID)
	return &types.CheckoutSession{ID: cs.ID, URL: cs.URL}, nil
}

// ExpireCheckoutSession closes a session that must no longer accept a
// payment.
func (g *StripeGateway) ExpireCheckoutSession(ctx context.Context, id string) error {
	_, err := g.client.V1CheckoutSessions.Expire(ctx, id, &stripe.CheckoutSessionExpireParams{})
	if err != nil {
		log.Printf("[Stripe] Error expiring session %s: %s\n", id, err.Error())
	}
	return err
}

// ConstructEvent checks the Stripe-Signature header of a webhook payload.
func (g *StripeGateway) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, signature, g.webhookSecret)
}
