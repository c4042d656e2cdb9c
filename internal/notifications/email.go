package notifications

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/oficinaflow/oficinaflow-backend/internal/users"
	"github.com/oficinaflow/oficinaflow-backend/pkg/config"
	"github.com/oficinaflow/oficinaflow-backend/pkg/email"
	pkgerrors "github.com/oficinaflow/oficinaflow-backend/pkg/errors"
	"github.com/oficinaflow/oficinaflow-backend/pkg/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

var subjects = map[Kind]string{
	KindWelcome:             "Bem-vindo ao OficinaFlow",
	KindPaymentFailed:       "Não conseguimos processar seu pagamento",
	KindSubscriptionChanged: "Sua assinatura foi alterada",
	KindTrialEnding:         "Seu período de teste está acabando",
}

// EmailDispatcher renders notifications with html/template and hands them to an email.Sender.
type EmailDispatcher struct {
	sender       email.Sender
	templates    *template.Template
	hostSuffix   string
	appBaseURL   string
	supportEmail string
	logg         *logger.Logger
}

// NewEmailDispatcher parses the embedded templates once.
func NewEmailDispatcher(sender email.Sender, cfg config.Config, logg *logger.Logger) (*EmailDispatcher, error) {
	if sender == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "email sender required")
	}
	tmpl, err := template.New("notifications").Funcs(template.FuncMap{
		"date": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.Format("02/01/2006")
		},
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "parse notification templates")
	}
	return &EmailDispatcher{
		sender:       sender,
		templates:    tmpl,
		hostSuffix:   cfg.Onboarding.TenantHostSuffix,
		appBaseURL:   cfg.Onboarding.AppBaseURL,
		supportEmail: cfg.Email.SupportEmail,
		logg:         logg,
	}, nil
}

type view struct {
	RecipientName string
	TenantName    string
	PlanName      string
	LoginURL      string
	BillingURL    string
	SupportEmail  string
	Data          any
}

func (d *EmailDispatcher) Welcome(ctx context.Context, msg WelcomeMessage) error {
	return d.send(ctx, KindWelcome, msg.Recipient, msg.Tenant, msg)
}

func (d *EmailDispatcher) PaymentFailed(ctx context.Context, msg PaymentFailedMessage) error {
	return d.send(ctx, KindPaymentFailed, msg.Recipient, msg.Tenant, msg)
}

func (d *EmailDispatcher) SubscriptionChanged(ctx context.Context, msg SubscriptionChangedMessage) error {
	return d.send(ctx, KindSubscriptionChanged, msg.Recipient, msg.Tenant, msg)
}

func (d *EmailDispatcher) TrialEnding(ctx context.Context, msg TrialEndingMessage) error {
	return d.send(ctx, KindTrialEnding, msg.Recipient, msg.Tenant, msg)
}

func (d *EmailDispatcher) send(ctx context.Context, kind Kind, recipient users.Admin, tenant Tenant, data any) error {
	if recipient == nil || strings.TrimSpace(recipient.Email()) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification recipient required")
	}

	name := recipient.Name()
	if name == "" {
		name = tenant.Name
	}
	v := view{
		RecipientName: name,
		TenantName:    tenant.Name,
		PlanName:      tenant.Plan.DisplayName(),
		LoginURL:      d.loginURL(tenant.Subdomain),
		BillingURL:    strings.TrimRight(d.appBaseURL, "/") + "/billing",
		SupportEmail:  d.supportEmail,
		Data:          data,
	}

	var body bytes.Buffer
	if err := d.templates.ExecuteTemplate(&body, string(kind)+".html", v); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("render %s notification", kind))
	}

	if err := d.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   recipient.Email(),
		Subject:  subjects[kind],
		BodyHTML: body.String(),
		Tag:      string(kind),
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("send %s notification", kind))
	}

	d.logg.Info(d.logg.WithFields(ctx, map[string]any{
		"notification": kind,
		"persisted":    users.IsPersisted(recipient),
	}), "notification sent")
	return nil
}

func (d *EmailDispatcher) loginURL(subdomain string) string {
	if subdomain == "" || d.hostSuffix == "" {
		return d.appBaseURL
	}
	return fmt.Sprintf("https://%s.%s", subdomain, d.hostSuffix)
}
