// Package bootstrap assembles the outreach components shared by the API,
// the scheduler worker and the operator CLI.
package bootstrap

import (
	"context"
	"time"

	"outreach_backend/internal/batches"
	"outreach_backend/internal/cadence"
	"outreach_backend/internal/crm"
	"outreach_backend/internal/crmsync"
	"outreach_backend/internal/cycle"
	"outreach_backend/internal/events"
	leadrepo "outreach_backend/internal/leads/repository"
	leadservice "outreach_backend/internal/leads/service"
	"outreach_backend/internal/mail"
	"outreach_backend/internal/notification"
	"outreach_backend/internal/oracle"
	"outreach_backend/internal/reconcile"
	"outreach_backend/platform/ai"
	"outreach_backend/platform/config"
	"outreach_backend/platform/google"
	"outreach_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/docs/v1"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const defaultPhoneRegion = "US"

// Outreach holds the wired components. Integrations that are not
// configured are replaced by their disabled variants and logged once.
type Outreach struct {
	Leads       *leadrepo.Repository
	Mail        mail.Transport
	Renderer    *mail.Renderer
	CRM         crm.Client
	Oracle      *oracle.Oracle
	CompanyInfo *oracle.CompanyInfo
	Slack       *notification.Slack
	Proposals   *batches.RedisStore
	Batches     *batches.Service
	LeadService *leadservice.Service
	Reconciler  *reconcile.Syncer
	Importer    *crmsync.Importer
	Cycle       *cycle.Runner

	redis *redis.Client
}

// Build wires every component against pool and bus.
func Build(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, bus events.Bus, log *logger.Logger) (*Outreach, error) {
	o := &Outreach{
		Leads: leadrepo.New(pool),
		Mail:  mail.Disabled{},
		CRM:   crm.New(cfg),
		Slack: notification.NewSlack(cfg, nil),
	}

	var docSource oracle.DocSource
	if httpClient, err := google.HTTPClient(ctx, cfg); err != nil {
		log.Warn("google integration disabled", "error", err)
	} else {
		gmailSvc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
		if err != nil {
			return nil, err
		}
		o.Mail = mail.NewGmail(gmailSvc, cfg.GetSenderName(), cfg.GetSenderAddress())

		if docID := cfg.GetCompanyInfoDocID(); docID != "" {
			docsSvc, err := docs.NewService(ctx, option.WithHTTPClient(httpClient))
			if err != nil {
				return nil, err
			}
			docSource = oracle.NewGoogleDoc(docsSvc, docID)
		}
	}

	llm, err := ai.NewModel(ctx, cfg)
	if err != nil {
		log.Warn("content generation disabled", "error", err)
	}
	o.CompanyInfo = oracle.NewCompanyInfo(docSource, cfg.GetSenderCompany(), 0)
	o.Oracle = oracle.New(llm, o.CompanyInfo, cfg.GetSenderCompany())

	o.Renderer, err = mail.NewRenderer(mail.Sender{
		Name:           cfg.GetSenderName(),
		Title:          cfg.GetSenderTitle(),
		Website:        cfg.GetSenderWebsite(),
		UnsubscribeURL: cfg.GetUnsubscribeURL(),
	})
	if err != nil {
		return nil, err
	}

	o.redis, err = batches.NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	o.Proposals = batches.NewRedisStore(o.redis, cfg.GetProposalTTL())

	o.Batches = batches.NewService(batches.Deps{
		Store:    o.Proposals,
		Cohorts:  cadence.NewResolver(o.Leads, time.Now),
		Content:  o.Oracle,
		Mail:     o.Mail,
		Renderer: o.Renderer,
		Leads:    o.Leads,
		CRM:      o.CRM,
		Reviewer: notification.NewBatchReviewer(o.Slack, cfg.GetSenderName()),
		Bus:      bus,
		Log:      log,
	})

	o.LeadService = leadservice.New(leadservice.Deps{
		Leads:       o.Leads,
		Oracle:      o.Oracle,
		Mail:        o.Mail,
		Renderer:    o.Renderer,
		CRM:         o.CRM,
		Log:         log,
		PhoneRegion: defaultPhoneRegion,
	})

	o.Reconciler = reconcile.New(reconcile.Deps{
		Leads:      o.Leads,
		Mail:       o.Mail,
		Classifier: o.Oracle,
		CRM:        o.CRM,
		Bus:        bus,
		Log:        log,
	})

	cycleDeps := cycle.Deps{
		Reconciler: o.Reconciler,
		Proposer:   o.Batches,
		Bus:        bus,
		Log:        log,
	}
	if cfg.IsCRMEnabled() {
		o.Importer = crmsync.New(o.CRM, o.Leads, bus, log)
		cycleDeps.Importer = o.Importer
	}
	o.Cycle = cycle.New(cycleDeps)

	return o, nil
}

// Close releases the proposal store connection.
func (o *Outreach) Close() error {
	if o.redis == nil {
		return nil
	}
	return o.redis.Close()
}
