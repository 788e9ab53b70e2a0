package app

import (
	"context"
	"fmt"
	"time"

	"docbridge/api/internal/auth"
	"docbridge/api/internal/config"
	"docbridge/api/internal/search"
	syncsvc "docbridge/api/internal/sync"
	"docbridge/api/internal/util"
	"docbridge/api/internal/webhook"
)

// Pinger reports backend connectivity for readiness checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Service glues the HTTP layer to the sync workflow and the webhook
// authentication machinery.
type Service struct {
	cfg             config.Config
	sync            *syncsvc.Service
	verifier        *webhook.Verifier
	seen            webhook.SeenStore
	searchSvc       *search.Service
	db              Pinger
	redis           Pinger
	serviceTokenKey []byte
}

func New(cfg config.Config, syncService *syncsvc.Service, db Pinger) (*Service, error) {
	serviceTokenKey, err := auth.DeriveKey(cfg.JWTSecret, auth.PurposeServiceToken)
	if err != nil {
		return nil, err
	}
	webhookKey, err := auth.DeriveKey(cfg.WebhookSecret, auth.PurposeWebhook)
	if err != nil {
		return nil, err
	}

	return &Service{
		cfg:             cfg,
		sync:            syncService,
		verifier:        webhook.NewVerifier(webhookKey, cfg.ReplayWindow),
		db:              db,
		serviceTokenKey: serviceTokenKey,
	}, nil
}

// WithSeenStore attaches the webhook replay cache. May be nil; signature and
// timestamp checks still apply without it.
func (s *Service) WithSeenStore(seen webhook.SeenStore, redis Pinger) *Service {
	s.seen = seen
	s.redis = redis
	return s
}

// WithSearch attaches the integration search facade. May be nil.
func (s *Service) WithSearch(searchSvc *search.Service) *Service {
	s.searchSvc = searchSvc
	return s
}

func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Service) PingRedis(ctx context.Context) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Ping(ctx)
}

// ServiceToken mints the short-lived credential used for webhook-triggered
// upstream calls, where no end-user token is available.
func (s *Service) ServiceToken(subject string) (string, error) {
	if subject == "" {
		subject = "docbridge"
	}
	token, err := auth.IssueToken(s.serviceTokenKey, auth.Claims{
		Sub:     subject,
		Service: "docbridge-webhook",
		JTI:     util.NewID("jti"),
		Exp:     time.Now().Add(s.cfg.ServiceTokenTTL).Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("issue service token: %w", err)
	}
	return token, nil
}

// Search queries the integration index; without a configured search backend
// it returns an empty result set.
func (s *Service) Search(ctx context.Context, q search.Query) search.Response {
	if s.searchSvc == nil {
		return search.Response{Results: []search.Record{}, Query: q.Text}
	}
	return s.searchSvc.Search(ctx, q)
}
