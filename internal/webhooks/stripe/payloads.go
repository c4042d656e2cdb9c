package stripewebhook

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/oficinaflow/oficinaflow-backend/internal/payments"
	"github.com/oficinaflow/oficinaflow-backend/internal/resolver"
	"github.com/oficinaflow/oficinaflow-backend/internal/subscriptions"
	"github.com/oficinaflow/oficinaflow-backend/pkg/enums"
	pkgerrors "github.com/oficinaflow/oficinaflow-backend/pkg/errors"
)

type contactDetails struct {
	Email string
	Name  string
}

func customerID(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}

func subscriptionID(s *stripe.Subscription) string {
	if s == nil {
		return ""
	}
	return s.ID
}

func errorMessage(e *stripe.Error) string {
	if e == nil {
		return ""
	}
	return e.Msg
}

// checkoutTenantID reads the correlation id embedded at checkout creation.
func checkoutTenantID(sess *stripe.CheckoutSession) (uuid.UUID, error) {
	raw := strings.TrimSpace(sess.Metadata[payments.MetadataTenantID])
	if raw == "" {
		raw = strings.TrimSpace(sess.ClientReferenceID)
	}
	if raw == "" {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrMalformedEvent, "checkout session missing tenantId metadata")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrMalformedEvent, "checkout session tenantId is not a uuid")
	}
	return id, nil
}

func checkoutPlan(sess *stripe.CheckoutSession, fallback enums.Plan) enums.Plan {
	if plan, err := enums.ParsePlan(sess.Metadata[payments.MetadataPlan]); err == nil {
		return plan
	}
	return fallback
}

func checkoutBillingCycle(sess *stripe.CheckoutSession) enums.BillingCycle {
	if cycle, err := enums.ParseBillingCycle(sess.Metadata[payments.MetadataBillingCycle]); err == nil {
		return cycle
	}
	return enums.BillingCycleMonthly
}

func checkoutContact(sess *stripe.CheckoutSession) contactDetails {
	var details contactDetails
	if sess.CustomerDetails != nil {
		details = contactDetails{Email: sess.CustomerDetails.Email, Name: sess.CustomerDetails.Name}
	}
	if details.Email == "" {
		details.Email = sess.CustomerEmail
	}
	if details.Email == "" {
		details.Email = sess.Metadata[payments.MetadataEmail]
	}
	return details
}

// invoiceSubscriptionID reads parent.subscription_details, where invoices
// reference the subscription that generated them.
func invoiceSubscriptionID(inv *stripe.Invoice) string {
	if inv.Parent == nil || inv.Parent.SubscriptionDetails == nil {
		return ""
	}
	return subscriptionID(inv.Parent.SubscriptionDetails.Subscription)
}

func invoiceQuery(inv *stripe.Invoice) resolver.Query {
	return resolver.Query{
		CustomerID:     customerID(inv.Customer),
		SubscriptionID: invoiceSubscriptionID(inv),
		BillingEmail:   inv.CustomerEmail,
		BillingName:    inv.CustomerName,
	}
}

func firstItem(sub *stripe.Subscription) *stripe.SubscriptionItem {
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return nil
	}
	return sub.Items.Data[0]
}

func subscriptionPlan(sub *stripe.Subscription) enums.Plan {
	if plan, err := enums.ParsePlan(sub.Metadata[payments.MetadataPlan]); err == nil {
		return plan
	}
	if item := firstItem(sub); item != nil && item.Price != nil {
		if plan, err := enums.ParsePlan(item.Price.Metadata[payments.MetadataPlan]); err == nil {
			return plan
		}
	}
	return ""
}

func subscriptionBillingCycle(sub *stripe.Subscription) enums.BillingCycle {
	if item := firstItem(sub); item != nil && item.Price != nil && item.Price.Recurring != nil {
		if cycle, ok := enums.BillingCycleFromInterval(string(item.Price.Recurring.Interval)); ok {
			return cycle
		}
	}
	if cycle, err := enums.ParseBillingCycle(sub.Metadata[payments.MetadataBillingCycle]); err == nil {
		return cycle
	}
	return ""
}

// subscriptionSyncInput takes the billing period from the first item; the
// subscription object itself no longer carries one.
func subscriptionSyncInput(sub *stripe.Subscription) subscriptions.SyncInput {
	var start, end int64
	if item := firstItem(sub); item != nil {
		start, end = item.CurrentPeriodStart, item.CurrentPeriodEnd
	}
	return subscriptions.SyncInput{
		Plan:           subscriptionPlan(sub),
		BillingCycle:   subscriptionBillingCycle(sub),
		ProviderStatus: string(sub.Status),
		CustomerID:     customerID(sub.Customer),
		SubscriptionID: sub.ID,
		PeriodStart:    subscriptions.UnixToTime(start),
		PeriodEnd:      subscriptions.UnixToTime(end),
		TrialEnd:       subscriptions.UnixToTime(sub.TrialEnd),
	}
}

func intentContact(intent *stripe.PaymentIntent) contactDetails {
	details := contactDetails{Email: intent.ReceiptEmail}
	if intent.LastPaymentError == nil || intent.LastPaymentError.PaymentMethod == nil {
		return details
	}
	if billing := intent.LastPaymentError.PaymentMethod.BillingDetails; billing != nil {
		if details.Email == "" {
			details.Email = billing.Email
		}
		details.Name = billing.Name
	}
	return details
}

func chargeContact(charge *stripe.Charge) contactDetails {
	details := contactDetails{Email: charge.ReceiptEmail}
	if billing := charge.BillingDetails; billing != nil {
		if details.Email == "" {
			details.Email = billing.Email
		}
		details.Name = billing.Name
	}
	return details
}

func decode(event *stripe.Event, target any) error {
	if event == nil || event.Data == nil || len(event.Data.Raw) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	if err := json.Unmarshal(event.Data.Raw, target); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode "+string(event.Type)+" payload")
	}
	return nil
}
