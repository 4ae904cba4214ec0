package catalog

import (
	"context"
	"io"
	"log/slog"

	"docgate/pkg/platform/audit"
	"docgate/pkg/requestcontext"
)

// Store is the rulebook persistence the service depends on. Mutations are
// per-flag commands; there is no whole-document write.
type Store interface {
	Source
	ListDocumentTypes(ctx context.Context) ([]DocumentType, error)
	ListProducts(ctx context.Context) ([]Product, error)
	SetDocumentRuleEnabled(ctx context.Context, docCode, ruleID string, enabled bool) error
	SetDocumentRuleRequired(ctx context.Context, docCode, ruleID string, required bool) error
	SetProductRuleEnabled(ctx context.Context, productCode, ruleID string, enabled bool) error
	SetProductRuleRequired(ctx context.Context, productCode, ruleID string, required bool) error
	SetDocumentTypeActive(ctx context.Context, docID string, active bool) error
	SetProductActive(ctx context.Context, productCode string, active bool) error
}

// Invalidator drops any cached snapshot after a rulebook change.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context) {}

// Service exposes rulebook reads and the rule-admin toggle commands.
type Service struct {
	store    Store
	cache    Invalidator
	logger   *slog.Logger
	auditPub audit.Publisher
}

type ServiceOption func(*Service)

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(pub audit.Publisher) ServiceOption {
	return func(s *Service) { s.auditPub = pub }
}

// WithCacheInvalidator wires the snapshot cache so toggles take effect
// immediately rather than after TTL expiry.
func WithCacheInvalidator(inv Invalidator) ServiceOption {
	return func(s *Service) { s.cache = inv }
}

func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		cache:  noopInvalidator{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the current point-in-time rulebook.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	return s.store.Snapshot(ctx)
}

// ListDocumentTypes returns every document type version for the admin view.
func (s *Service) ListDocumentTypes(ctx context.Context) ([]DocumentType, error) {
	return s.store.ListDocumentTypes(ctx)
}

// ListProducts returns every product for the admin view.
func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	return s.store.ListProducts(ctx)
}

// SetDocumentRuleEnabled toggles whether a document rule affects verdicts.
func (s *Service) SetDocumentRuleEnabled(ctx context.Context, docCode, ruleID string, enabled bool) error {
	if err := s.store.SetDocumentRuleEnabled(ctx, docCode, ruleID, enabled); err != nil {
		return err
	}
	s.afterToggle(ctx, "document", docCode, ruleID, "enabled", enabled)
	return nil
}

// SetDocumentRuleRequired toggles whether a document rule gates validity.
func (s *Service) SetDocumentRuleRequired(ctx context.Context, docCode, ruleID string, required bool) error {
	if err := s.store.SetDocumentRuleRequired(ctx, docCode, ruleID, required); err != nil {
		return err
	}
	s.afterToggle(ctx, "document", docCode, ruleID, "required", required)
	return nil
}

// SetProductRuleEnabled toggles whether a cross-document rule affects verdicts.
func (s *Service) SetProductRuleEnabled(ctx context.Context, productCode, ruleID string, enabled bool) error {
	if err := s.store.SetProductRuleEnabled(ctx, productCode, ruleID, enabled); err != nil {
		return err
	}
	s.afterToggle(ctx, "product", productCode, ruleID, "enabled", enabled)
	return nil
}

// SetProductRuleRequired toggles whether a cross-document rule gates validity.
func (s *Service) SetProductRuleRequired(ctx context.Context, productCode, ruleID string, required bool) error {
	if err := s.store.SetProductRuleRequired(ctx, productCode, ruleID, required); err != nil {
		return err
	}
	s.afterToggle(ctx, "product", productCode, ruleID, "required", required)
	return nil
}

// SetDocumentTypeActive activates or retires one document type version.
func (s *Service) SetDocumentTypeActive(ctx context.Context, docID string, active bool) error {
	if err := s.store.SetDocumentTypeActive(ctx, docID, active); err != nil {
		return err
	}
	s.afterEntryToggle(ctx, "document version", docID, active)
	return nil
}

// SetProductActive opens or closes a product for intake.
func (s *Service) SetProductActive(ctx context.Context, productCode string, active bool) error {
	if err := s.store.SetProductActive(ctx, productCode, active); err != nil {
		return err
	}
	s.afterEntryToggle(ctx, "product", productCode, active)
	return nil
}

func (s *Service) afterToggle(ctx context.Context, scope, code, ruleID, flag string, value bool) {
	s.cache.Invalidate(ctx)

	actor := requestcontext.ActorFrom(ctx)
	s.logger.InfoContext(ctx, "validation rule toggled",
		"scope", scope,
		"code", code,
		"rule_id", ruleID,
		"flag", flag,
		"value", value,
		"actor_id", actor.ID,
	)
	if s.auditPub == nil {
		return
	}
	if err := s.auditPub.Emit(ctx, audit.Event{
		Action:  string(audit.EventRuleToggled),
		Actor:   actor.Name,
		ActorID: actor.ID,
		Reason:  scope + " " + code + " rule " + ruleID + " " + flag,
		Status:  boolWord(value),
	}); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "error", err, "action", audit.EventRuleToggled)
	}
}

func (s *Service) afterEntryToggle(ctx context.Context, scope, code string, active bool) {
	s.cache.Invalidate(ctx)

	actor := requestcontext.ActorFrom(ctx)
	s.logger.InfoContext(ctx, "catalog entry toggled",
		"scope", scope,
		"code", code,
		"active", active,
		"actor_id", actor.ID,
	)
	if s.auditPub == nil {
		return
	}
	if err := s.auditPub.Emit(ctx, audit.Event{
		Action:  string(audit.EventCatalogEntryToggled),
		Actor:   actor.Name,
		ActorID: actor.ID,
		Reason:  scope + " " + code,
		Status:  boolWord(active),
	}); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "error", err, "action", audit.EventCatalogEntryToggled)
	}
}

func boolWord(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
