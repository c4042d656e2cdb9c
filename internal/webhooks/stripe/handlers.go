package stripewebhook

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/oficinaflow/oficinaflow-backend/internal/notifications"
	"github.com/oficinaflow/oficinaflow-backend/internal/resolver"
	"github.com/oficinaflow/oficinaflow-backend/internal/subscriptions"
	"github.com/oficinaflow/oficinaflow-backend/internal/users"
	"github.com/oficinaflow/oficinaflow-backend/pkg/db"
	"github.com/oficinaflow/oficinaflow-backend/pkg/db/models"
	"github.com/oficinaflow/oficinaflow-backend/pkg/enums"
	pkgerrors "github.com/oficinaflow/oficinaflow-backend/pkg/errors"
	"github.com/oficinaflow/oficinaflow-backend/pkg/security"
)

// errAlreadyActivated aborts the checkout transaction when a concurrent
// delivery activated the tenant first.
var errAlreadyActivated = errors.New("tenant already activated")

func (s *Service) handleCheckoutCompleted(ctx context.Context, event *stripe.Event) error {
	var session stripe.CheckoutSession
	if err := decode(event, &session); err != nil {
		return err
	}
	tenantID, err := checkoutTenantID(&session)
	if err != nil {
		return err
	}
	ctx = s.logg.WithFields(s.logg.WithTenantID(ctx, tenantID.String()), map[string]any{
		"customer_id":     customerID(session.Customer),
		"subscription_id": subscriptionID(session.Subscription),
	})

	tenant, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		return err
	}
	if tenant.Status != enums.TenantStatusPending {
		s.logg.Info(ctx, "checkout already processed; ignoring duplicate delivery")
		return nil
	}

	plan := checkoutPlan(&session, tenant.Plan)
	cycle := checkoutBillingCycle(&session)
	var welcome *notifications.WelcomeMessage

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		activated, err := s.tenants.WithTx(tx).ActivateOnCheckout(ctx, tenant.ID, plan)
		if err != nil {
			return err
		}
		if !activated {
			return errAlreadyActivated
		}

		if _, _, err := s.subscriptions.WithTx(tx).UpsertForCheckout(ctx, subscriptions.CheckoutInput{
			TenantID:       tenant.ID,
			Plan:           plan,
			BillingCycle:   cycle,
			CustomerID:     customerID(session.Customer),
			SubscriptionID: subscriptionID(session.Subscription),
		}); err != nil {
			return err
		}

		admin, err := s.createAdminIfMissing(ctx, s.users.WithTx(tx), tenant, checkoutContact(&session))
		if err != nil || admin == nil {
			return err
		}
		tenant.Plan = plan
		welcome = &notifications.WelcomeMessage{
			Recipient:    users.NewPersisted(admin.user),
			Tenant:       notificationTenant(tenant),
			TempPassword: admin.credential.Plain,
		}
		return nil
	})
	if errors.Is(err, errAlreadyActivated) {
		s.logg.Info(ctx, "tenant activated by a concurrent delivery")
		return nil
	}
	if err != nil {
		return err
	}

	s.logg.Info(ctx, "tenant activated from checkout")
	if welcome != nil {
		if err := s.notifier.Welcome(ctx, *welcome); err != nil {
			s.logg.Error(ctx, "send welcome notification", err)
		}
	}
	return nil
}

type createdAdmin struct {
	user       *models.User
	credential security.Credential
}

// createAdminIfMissing creates the tenant's single ADMIN user. It returns nil
// when one already exists.
func (s *Service) createAdminIfMissing(ctx context.Context, repo *users.Repository, tenant *models.Tenant, contact contactDetails) (*createdAdmin, error) {
	if _, err := repo.FindAdminByTenant(ctx, tenant.ID); err == nil {
		s.logg.Info(ctx, "tenant already has an admin user")
		return nil, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup admin user")
	}

	credential, err := security.ResolveCredential(deref(tenant.AdminPasswordHash), s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "prepare admin credential")
	}

	email := users.NormalizeEmail(deref(tenant.AdminEmail))
	if email == "" {
		email = users.NormalizeEmail(contact.Email)
	}
	if email == "" {
		email = users.PlaceholderEmail(tenant.Subdomain, s.placeholderDomain)
	}
	name := firstNonEmpty(deref(tenant.AdminName), contact.Name, tenant.Name)

	user, err := repo.Create(ctx, users.CreateUserDTO{
		TenantID:     tenant.ID,
		Email:        email,
		Name:         name,
		PasswordHash: credential.Hash,
		Role:         enums.UserRoleAdmin,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "admin user already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create admin user")
	}
	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "admin user created")
	return &createdAdmin{user: user, credential: credential}, nil
}

func (s *Service) handleCheckoutAsyncPaymentFailed(ctx context.Context, event *stripe.Event) error {
	var session stripe.CheckoutSession
	if err := decode(event, &session); err != nil {
		return err
	}
	contact := checkoutContact(&session)
	res, err := s.resolve(ctx, resolver.Query{
		CustomerID:     customerID(session.Customer),
		SubscriptionID: subscriptionID(session.Subscription),
		BillingEmail:   contact.Email,
		BillingName:    contact.Name,
	})
	if err != nil || res == nil {
		return err
	}
	s.notifyPaymentFailed(ctx, res, "")
	return nil
}

func (s *Service) handlePaymentIntentFailed(ctx context.Context, event *stripe.Event) error {
	var intent stripe.PaymentIntent
	if err := decode(event, &intent); err != nil {
		return err
	}
	contact := intentContact(&intent)
	res, err := s.resolve(ctx, resolver.Query{
		CustomerID:   customerID(intent.Customer),
		BillingEmail: contact.Email,
		BillingName:  contact.Name,
	})
	if err != nil || res == nil {
		return err
	}
	s.notifyPaymentFailed(ctx, res, errorMessage(intent.LastPaymentError))
	return nil
}

func (s *Service) handleChargeFailed(ctx context.Context, event *stripe.Event) error {
	var charge stripe.Charge
	if err := decode(event, &charge); err != nil {
		return err
	}
	contact := chargeContact(&charge)
	res, err := s.resolve(ctx, resolver.Query{
		CustomerID:   customerID(charge.Customer),
		BillingEmail: contact.Email,
		BillingName:  contact.Name,
	})
	if err != nil || res == nil {
		return err
	}
	s.notifyPaymentFailed(ctx, res, charge.FailureMessage)
	return nil
}

func (s *Service) handleInvoicePaymentFailed(ctx context.Context, event *stripe.Event) error {
	var invoice stripe.Invoice
	if err := decode(event, &invoice); err != nil {
		return err
	}
	res, err := s.resolve(ctx, invoiceQuery(&invoice))
	if err != nil || res == nil {
		return err
	}
	if _, err := s.subscriptions.MarkPastDue(ctx, res.Tenant.ID); err != nil {
		return err
	}
	s.notifyPaymentFailed(ctx, res, errorMessage(invoice.LastFinalizationError))
	return nil
}

func (s *Service) handleInvoicePaymentSucceeded(ctx context.Context, event *stripe.Event) error {
	var invoice stripe.Invoice
	if err := decode(event, &invoice); err != nil {
		return err
	}
	res, err := s.resolve(ctx, invoiceQuery(&invoice))
	if err != nil || res == nil {
		return err
	}
	_, err = s.subscriptions.MarkActive(ctx, res.Tenant.ID)
	return err
}

func (s *Service) handleInvoiceUpcoming(ctx context.Context, event *stripe.Event) error {
	var invoice stripe.Invoice
	if err := decode(event, &invoice); err != nil {
		return err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"customer_id":     customerID(invoice.Customer),
		"subscription_id": invoiceSubscriptionID(&invoice),
		"amount_due":      invoice.AmountDue,
	}), "upcoming invoice")
	return nil
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, event *stripe.Event) error {
	var sub stripe.Subscription
	if err := decode(event, &sub); err != nil {
		return err
	}
	res, err := s.resolve(ctx, resolver.Query{CustomerID: customerID(sub.Customer), SubscriptionID: sub.ID})
	if err != nil || res == nil {
		return err
	}
	tenantID := res.Tenant.ID

	var suspended, cancelled bool
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		if suspended, err = s.tenants.WithTx(tx).SuspendOnSubscriptionDeleted(ctx, tenantID); err != nil {
			return err
		}
		cancelled, err = s.subscriptions.WithTx(tx).MarkCancelled(ctx, tenantID)
		return err
	})
	if err != nil {
		return err
	}

	alreadyCancelled := res.Subscription != nil && res.Subscription.Status == enums.SubscriptionStatusCancelled
	if !suspended && (alreadyCancelled || !cancelled) {
		s.logg.Info(s.logg.WithTenantID(ctx, tenantID.String()), "subscription already cancelled; skipping notification")
		return nil
	}
	s.notify(ctx, func(ctx context.Context) error {
		return s.notifier.SubscriptionChanged(ctx, notifications.SubscriptionChangedMessage{
			Recipient:    res.Admin,
			Tenant:       notificationTenant(res.Tenant),
			PreviousPlan: res.Tenant.Plan,
			Cancelled:    true,
		})
	})
	return nil
}

func (s *Service) handleSubscriptionUpdated(ctx context.Context, event *stripe.Event) error {
	var sub stripe.Subscription
	if err := decode(event, &sub); err != nil {
		return err
	}
	res, err := s.resolve(ctx, resolver.Query{CustomerID: customerID(sub.Customer), SubscriptionID: sub.ID})
	if err != nil || res == nil {
		return err
	}

	input := subscriptionSyncInput(&sub)
	input.TenantID = res.Tenant.ID
	result, err := s.subscriptions.SyncFromProviderSubscription(ctx, input)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			s.logg.Info(s.logg.WithTenantID(ctx, res.Tenant.ID.String()), "subscription updated before checkout completed; nothing to sync")
			return nil
		}
		return err
	}
	if !result.PlanChanged {
		return nil
	}

	tenant := notificationTenant(res.Tenant)
	tenant.Plan = result.Subscription.Plan
	s.notify(ctx, func(ctx context.Context) error {
		return s.notifier.SubscriptionChanged(ctx, notifications.SubscriptionChangedMessage{
			Recipient:    res.Admin,
			Tenant:       tenant,
			PreviousPlan: result.PreviousPlan,
		})
	})
	return nil
}

func (s *Service) handleTrialWillEnd(ctx context.Context, event *stripe.Event) error {
	var sub stripe.Subscription
	if err := decode(event, &sub); err != nil {
		return err
	}
	res, err := s.resolve(ctx, resolver.Query{CustomerID: customerID(sub.Customer), SubscriptionID: sub.ID})
	if err != nil || res == nil {
		return err
	}
	s.notify(ctx, func(ctx context.Context) error {
		return s.notifier.TrialEnding(ctx, notifications.TrialEndingMessage{
			Recipient: res.Admin,
			Tenant:    notificationTenant(res.Tenant),
			TrialEnd:  subscriptions.UnixToTime(sub.TrialEnd),
		})
	})
	return nil
}

// resolve returns (nil, nil) when no tenant matches; the event is then dropped.
func (s *Service) resolve(ctx context.Context, q resolver.Query) (*resolver.Result, error) {
	res, err := s.resolver.Resolve(ctx, q)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			s.logg.Info(s.logg.WithFields(ctx, map[string]any{
				"customer_id":     q.CustomerID,
				"subscription_id": q.SubscriptionID,
			}), "no tenant matches stripe event; dropping")
			return nil, nil
		}
		return nil, err
	}
	return res, nil
}

func (s *Service) notifyPaymentFailed(ctx context.Context, res *resolver.Result, reason string) {
	s.notify(ctx, func(ctx context.Context) error {
		return s.notifier.PaymentFailed(ctx, notifications.PaymentFailedMessage{
			Recipient: res.Admin,
			Tenant:    notificationTenant(res.Tenant),
			Reason:    reason,
		})
	})
}

// notify is fire-and-forget: a delivery failure never fails the event.
func (s *Service) notify(ctx context.Context, send func(context.Context) error) {
	if err := send(ctx); err != nil {
		s.logg.Error(ctx, "send notification", err)
	}
}

func notificationTenant(tenant *models.Tenant) notifications.Tenant {
	return notifications.Tenant{
		Name:      tenant.Name,
		Subdomain: tenant.Subdomain,
		Plan:      tenant.Plan,
	}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
