package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	stdsync "sync"

	"go-paystack-sync/internal/config"
	"go-paystack-sync/internal/features/document"
	"go-paystack-sync/internal/logger"
	"go-paystack-sync/internal/mapping"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrMissingSignature = errors.New("missing webhook signature or body")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

type WebhookService interface {
	Verify(body []byte, signature string) error
	// Dispatch routes a verified delivery to native sync and then to custom handlers.
	Dispatch(ctx context.Context, body []byte) error
	// Handle registers a handler for one exact event name.
	Handle(event string, h Handler)
	// HandleAll registers a handler invoked for every event.
	HandleAll(h Handler)
}

type WebhookServiceImpl struct {
	Config *config.Config
	Docs   document.DocumentService
	log    *logger.PluginLogger

	mu       stdsync.RWMutex
	byEvent  map[string][]Handler
	catchAll []Handler
}

func NewWebhookService(cfg *config.Config, docs document.DocumentService, log *zap.Logger) WebhookService {
	s := &WebhookServiceImpl{
		Config:  cfg,
		Docs:    docs,
		log:     logger.NewPluginLogger(log, cfg.Paystack.Logs).With("webhook"),
		byEvent: make(map[string][]Handler),
	}
	s.registerBuiltins(cfg.Paystack.WebhookHandlers)
	return s
}

// Sign returns the hex HMAC-SHA512 of body under secret, as Paystack computes it.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *WebhookServiceImpl) Verify(body []byte, signature string) error {
	secret := s.Config.Paystack.WebhookSecret
	if secret == "" {
		return nil
	}
	if len(body) == 0 || signature == "" {
		return ErrMissingSignature
	}
	if !hmac.Equal([]byte(Sign(secret, body)), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

func (s *WebhookServiceImpl) Handle(event string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byEvent[event] = append(s.byEvent[event], h)
}

func (s *WebhookServiceImpl) HandleAll(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catchAll = append(s.catchAll, h)
}

func (s *WebhookServiceImpl) Dispatch(ctx context.Context, body []byte) error {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil || event.Event == "" {
		// acknowledged anyway: Paystack retrying an unreadable payload cannot help
		s.log.Warn("Ignoring malformed webhook payload", zap.Error(err))
		return nil
	}
	s.log.Debug("received event", zap.String("event", event.Event))

	var errs []error
	if err := s.route(ctx, event); err != nil {
		s.log.Error("Native webhook sync failed", zap.String("event", event.Event), zap.Error(err))
		errs = append(errs, err)
	}
	for _, h := range s.handlersFor(event.Event) {
		if err := h(ctx, event); err != nil {
			s.log.Error("Custom webhook handler failed", zap.String("event", event.Event), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *WebhookServiceImpl) handlersFor(event string) []Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Handler, 0, len(s.catchAll)+len(s.byEvent[event]))
	out = append(out, s.catchAll...)
	return append(out, s.byEvent[event]...)
}

func (s *WebhookServiceImpl) route(ctx context.Context, event Event) error {
	resource, action := event.Split()
	sc, ok := s.Config.Paystack.SyncForResource(resource)
	if !ok {
		s.log.Debug("no sync configured for resource", zap.String("resource", resource))
		return nil
	}

	switch Classify(action) {
	case ActionUpsert:
		return s.upsert(ctx, sc, resource, event.Data)
	case ActionDelete:
		return s.remove(ctx, sc, resource, event.Data)
	default:
		s.log.Info("Unhandled webhook event", zap.String("event", event.Event))
		return nil
	}
}

func (s *WebhookServiceImpl) upsert(ctx context.Context, sc *config.SyncConfig, resource string, data map[string]any) error {
	ids, reference := identifiers(resource, data)
	if len(ids) == 0 && reference == "" {
		s.log.Warn("Webhook payload has no identifier", zap.String("resource", resource))
		return nil
	}

	existing, err := s.findLocal(ctx, sc, ids, reference)
	if err != nil {
		return err
	}

	fields := document.Document(mapping.Unflatten(sc.Fields, data))
	fields[document.FieldSkipSync] = true

	if existing != nil {
		fields[document.FieldSyncState] = string(existing.SyncState().Next(document.EventInbound))
		if existing.RemoteID() == "" && len(ids) > 0 {
			fields[document.FieldRemoteID] = ids[0]
		}
		patch := mapping.Overlay(existing, mapping.Deepen(fields))
		if _, err := s.Docs.Update(ctx, sc.Collection, existing.ID(), document.Document(patch)); err != nil {
			return fmt.Errorf("update %s %s: %w", sc.Collection, existing.ID(), err)
		}
		s.log.Info("Updated document from webhook", zap.String("collection", sc.Collection), zap.String("id", existing.ID()))
		return nil
	}

	fields[document.FieldSyncState] = string(document.StateUnsynced.Next(document.EventInbound))
	if len(ids) > 0 {
		fields[document.FieldRemoteID] = ids[0]
	}
	if refField := referenceField(sc); reference != "" {
		if _, ok := fields[refField]; !ok {
			fields[refField] = reference
		}
	}

	var opts []document.CreateOption
	if s.Docs.IsAuthCollection(sc.Collection) {
		password := uuid.NewString()
		fields[document.FieldPassword] = password
		fields[document.FieldPasswordConfirm] = password
		opts = append(opts, document.WithoutVerificationEmail())
	}

	created, err := s.Docs.Create(ctx, sc.Collection, document.Document(mapping.Deepen(fields)), opts...)
	if err != nil {
		return fmt.Errorf("create %s: %w", sc.Collection, err)
	}
	s.log.Info("Created document from webhook", zap.String("collection", sc.Collection), zap.String("id", created.ID()))
	return nil
}

func (s *WebhookServiceImpl) remove(ctx context.Context, sc *config.SyncConfig, resource string, data map[string]any) error {
	ids, reference := identifiers(resource, data)
	if len(ids) == 0 && reference == "" {
		s.log.Warn("Webhook payload has no identifier", zap.String("resource", resource))
		return nil
	}

	existing, err := s.findLocal(ctx, sc, ids, reference)
	if err != nil {
		return err
	}
	if existing == nil {
		s.log.Info("No local document to delete", zap.String("collection", sc.Collection), zap.Strings("ids", ids))
		return nil
	}

	if err := s.Docs.Delete(document.WithoutSync(ctx), sc.Collection, existing.ID()); err != nil {
		return fmt.Errorf("delete %s %s: %w", sc.Collection, existing.ID(), err)
	}
	s.log.Info("Deleted document from webhook", zap.String("collection", sc.Collection), zap.String("id", existing.ID()))
	return nil
}

// findLocal tries every identifier candidate, then the reference. Nil means no match.
func (s *WebhookServiceImpl) findLocal(ctx context.Context, sc *config.SyncConfig, ids []string, reference string) (document.Document, error) {
	for _, id := range ids {
		res, err := s.Docs.Find(ctx, sc.Collection, map[string]any{document.FieldRemoteID: id}, 1)
		if err != nil {
			return nil, fmt.Errorf("find %s by %s: %w", sc.Collection, document.FieldRemoteID, err)
		}
		if len(res.Docs) > 0 {
			return res.Docs[0], nil
		}
	}
	if reference == "" {
		return nil, nil
	}

	refField := referenceField(sc)
	res, err := s.Docs.Find(ctx, sc.Collection, map[string]any{refField: reference}, 1)
	if err != nil {
		return nil, fmt.Errorf("find %s by %s: %w", sc.Collection, refField, err)
	}
	if len(res.Docs) > 0 {
		return res.Docs[0], nil
	}
	return nil, nil
}

// identifiers returns the candidate identifiers found in data, in priority order,
// and the reference when the resource kind correlates on one.
func identifiers(resource string, data map[string]any) ([]string, string) {
	rule := ruleFor(resource)

	var ids []string
	seen := make(map[string]bool)
	for _, path := range rule.candidates {
		v, ok := mapping.Lookup(data, path)
		if !ok {
			continue
		}
		if id := formatID(v); id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	var reference string
	if rule.reference {
		if v, ok := mapping.Lookup(data, "reference"); ok {
			reference = formatID(v)
		}
	}
	return ids, reference
}

// referenceField is the local field mapped to the Paystack reference, "reference" by default.
func referenceField(sc *config.SyncConfig) string {
	for _, f := range sc.Fields {
		if f.PaystackProperty == "reference" {
			return f.FieldPath
		}
	}
	return "reference"
}

func formatID(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}
