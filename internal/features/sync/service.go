package sync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"go-paystack-sync/internal/config"
	"go-paystack-sync/internal/features/document"
	"go-paystack-sync/internal/logger"
	"go-paystack-sync/internal/mapping"
	"go-paystack-sync/internal/paystack"

	"go.uber.org/zap"
)

var (
	ErrNotSynced = errors.New("collection is not synced with Paystack")
	ErrTestMode  = errors.New("test mode is on, nothing is sent to Paystack")
)

// remote answers that mean the record is gone and should be created again
var notFoundPattern = regexp.MustCompile(`(?i)not found|does not exist|invalid`)

type SyncService interface {
	// Register attaches the outbound hooks to every configured collection.
	Register()
	BeforeCreate(ctx context.Context, args *document.HookArgs) error
	BeforeUpdate(ctx context.Context, args *document.HookArgs) error
	ToggleBlacklist(ctx context.Context, args *document.HookArgs) error
	AfterDelete(ctx context.Context, args *document.HookArgs) error
	Push(ctx context.Context, collection, id string) (*PushResult, error)
	Status(ctx context.Context) ([]CollectionStatus, error)
	UpdateProductsCurrency(ctx context.Context) (int, error)
}

type SyncServiceImpl struct {
	Config *config.Config
	Client paystack.Caller
	Docs   document.DocumentService
	log    *logger.PluginLogger
}

func NewSyncService(cfg *config.Config, client paystack.Caller, docs document.DocumentService, log *zap.Logger) SyncService {
	return &SyncServiceImpl{
		Config: cfg,
		Client: client,
		Docs:   docs,
		log:    logger.NewPluginLogger(log, cfg.Paystack.Logs),
	}
}

func (s *SyncServiceImpl) Register() {
	if !s.Config.Paystack.Enabled {
		return
	}
	for _, sc := range s.Config.Paystack.Sync {
		hooks := document.Hooks{
			BeforeCreate: []document.Hook{s.BeforeCreate, clearSkipSync},
			BeforeUpdate: []document.Hook{s.BeforeUpdate},
			AfterDelete:  []document.Hook{s.AfterDelete},
		}
		if sc.Singular() == "customer" && s.Config.Paystack.Blacklist.Enabled {
			hooks.BeforeUpdate = append(hooks.BeforeUpdate, s.ToggleBlacklist)
		}
		hooks.BeforeUpdate = append(hooks.BeforeUpdate, clearSkipSync)
		s.Docs.Use(sc.Collection, hooks)
	}
}

// clearSkipSync runs last: the flag only governs the write that carried it.
func clearSkipSync(_ context.Context, args *document.HookArgs) error {
	delete(args.Data, document.FieldSkipSync)
	return nil
}

func (s *SyncServiceImpl) BeforeCreate(ctx context.Context, args *document.HookArgs) error {
	log := s.log.With("create")
	sc, ok := s.Config.Paystack.SyncFor(args.Collection)
	if !ok || args.Operation != document.OperationCreate {
		return nil
	}
	if !document.ShouldPush(args.Data) {
		log.Debug("skipSync set, not calling Paystack", zap.String("collection", args.Collection))
		return nil
	}
	if s.Config.Paystack.TestMode {
		log.Debug("test mode, not calling Paystack", zap.String("collection", args.Collection))
		return nil
	}

	s.create(ctx, log, sc, args.Data, args.Data)
	return nil
}

func (s *SyncServiceImpl) BeforeUpdate(ctx context.Context, args *document.HookArgs) error {
	log := s.log.With("update")
	sc, ok := s.Config.Paystack.SyncFor(args.Collection)
	if !ok || args.Operation != document.OperationUpdate {
		return nil
	}
	if !document.ShouldPush(args.Data) {
		log.Debug("skipSync set, not calling Paystack", zap.String("collection", args.Collection), zap.String("id", args.Original.ID()))
		return nil
	}
	if s.Config.Paystack.TestMode {
		log.Debug("test mode, not calling Paystack", zap.String("collection", args.Collection))
		return nil
	}

	merged := args.Original.Merge(args.Data)
	remoteID := args.Original.RemoteID()
	if remoteID == "" {
		if args.Original.ID() == "" {
			return nil
		}
		log.Info("Document has no Paystack identifier yet, creating it", zap.String("collection", args.Collection), zap.String("id", args.Original.ID()))
		s.create(ctx, log, sc, merged, args.Data)
		return nil
	}

	diff := mapping.Diff(sc.Fields, args.Original, merged)
	if len(diff) == 0 {
		log.Debug("no mapped field changed", zap.String("collection", args.Collection), zap.String("id", args.Original.ID()))
		return nil
	}

	state := args.Original.SyncState().Next(document.EventLocalChange)
	resp := s.Client.Call(ctx, paystack.Request{
		Path:   paystack.BuildPath(sc.ResourceType, remoteID),
		Method: http.MethodPut,
		Body:   mapping.Deepen(diff),
	})

	switch {
	case resp.OK():
		args.Data[document.FieldSyncState] = string(state.Next(document.EventRemoteAck))
		log.Info("Updated Paystack "+sc.Singular(), zap.String("paystack_id", remoteID))
	case isNotFound(resp):
		log.Warn("Paystack "+sc.Singular()+" not found, creating it again", zap.String("paystack_id", remoteID), zap.String("message", resp.Message))
		s.create(ctx, log, sc, merged, args.Data)
	case resp.Unreachable:
		log.Error("Paystack unreachable during update, attempting create", zap.String("paystack_id", remoteID), zap.String("message", resp.Message))
		s.create(ctx, log, sc, merged, args.Data)
	default:
		args.Data[document.FieldSyncState] = string(state.Next(document.EventRemoteFailure))
		log.Error("Failed to update Paystack "+sc.Singular(), zap.String("paystack_id", remoteID), zap.Int("status", resp.Status), zap.String("message", resp.Message))
	}
	return nil
}

// ToggleBlacklist mirrors a changed blacklisted flag onto the customer's risk action.
func (s *SyncServiceImpl) ToggleBlacklist(ctx context.Context, args *document.HookArgs) error {
	if args.Operation != document.OperationUpdate || !document.ShouldPush(args.Data) || s.Config.Paystack.TestMode {
		return nil
	}
	want, ok := args.Data[document.FieldBlacklisted].(bool)
	if !ok || want == args.Original.Blacklisted() {
		return nil
	}

	log := s.log.With("blacklist")
	remoteID := args.Data.RemoteID()
	if remoteID == "" {
		remoteID = args.Original.RemoteID()
	}
	if remoteID == "" {
		log.Warn("Cannot change risk action for a customer without a Paystack code", zap.String("id", args.Original.ID()))
		return nil
	}

	action := paystack.RiskActionDefault
	if want {
		action = paystack.RiskActionDeny
	}
	resp := s.setRiskAction(ctx, remoteID, action)
	if !resp.OK() {
		log.Error("Failed to set risk action", zap.String("customer", remoteID), zap.String("risk_action", action), zap.String("message", resp.Message))
		return nil
	}
	log.Info("Risk action updated", zap.String("customer", remoteID), zap.String("risk_action", action))
	return nil
}

func (s *SyncServiceImpl) AfterDelete(ctx context.Context, args *document.HookArgs) error {
	log := s.log.With("delete")
	sc, ok := s.Config.Paystack.SyncFor(args.Collection)
	if !ok {
		return nil
	}
	if document.SyncSuppressed(ctx) || args.Original.SkipSync() {
		log.Debug("delete originated from Paystack, not calling it back", zap.String("collection", args.Collection))
		return nil
	}
	if s.Config.Paystack.TestMode {
		log.Debug("test mode, not calling Paystack", zap.String("collection", args.Collection))
		return nil
	}
	remoteID := args.Original.RemoteID()
	if remoteID == "" {
		log.Debug("deleted document was never synced", zap.String("collection", args.Collection), zap.String("id", args.Original.ID()))
		return nil
	}

	// Paystack cannot delete customers; blacklisting is the closest equivalent.
	if sc.Singular() == "customer" {
		resp := s.setRiskAction(ctx, remoteID, paystack.RiskActionDeny)
		if !resp.OK() {
			log.Warn("Failed to blacklist deleted customer", zap.String("customer", remoteID), zap.String("message", resp.Message))
			return nil
		}
		log.Info("Blacklisted deleted customer", zap.String("customer", remoteID))
		return nil
	}

	resp := s.Client.Call(ctx, paystack.Request{
		Path:   paystack.BuildPath(sc.ResourceType, remoteID),
		Method: http.MethodDelete,
	})
	if !resp.OK() {
		log.Warn("Paystack delete did not succeed", zap.String("resource", sc.ResourceType), zap.String("paystack_id", remoteID), zap.Int("status", resp.Status), zap.String("message", resp.Message))
		return nil
	}
	log.Info("Deleted Paystack "+sc.Singular(), zap.String("paystack_id", remoteID))
	return nil
}

// Push sends a stored document to Paystack again, typically after a failed sync.
func (s *SyncServiceImpl) Push(ctx context.Context, collection, id string) (*PushResult, error) {
	sc, ok := s.Config.Paystack.SyncFor(collection)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotSynced, collection)
	}
	if s.Config.Paystack.TestMode {
		return nil, ErrTestMode
	}
	doc, err := s.Docs.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}

	log := s.log.With("push")
	patch := document.Document{document.FieldSkipSync: true}
	var resp paystack.Response

	if remoteID := doc.RemoteID(); remoteID == "" {
		resp = s.create(ctx, log, sc, doc, patch)
	} else {
		state := doc.SyncState().Next(document.EventLocalChange)
		resp = s.Client.Call(ctx, paystack.Request{
			Path:   paystack.BuildPath(sc.ResourceType, remoteID),
			Method: http.MethodPut,
			Body:   mapping.Deepen(mapping.Flatten(sc.Fields, doc)),
		})
		switch {
		case resp.OK():
			patch[document.FieldSyncState] = string(state.Next(document.EventRemoteAck))
		case isNotFound(resp):
			resp = s.create(ctx, log, sc, doc, patch)
		default:
			patch[document.FieldSyncState] = string(state.Next(document.EventRemoteFailure))
		}
	}

	updated, err := s.Docs.Update(ctx, collection, id, patch)
	if err != nil {
		return nil, fmt.Errorf("record push outcome: %w", err)
	}
	result := &PushResult{
		Collection: collection,
		ID:         id,
		RemoteID:   updated.RemoteID(),
		State:      updated.SyncState(),
	}
	if !resp.OK() {
		result.Message = resp.Message
	}
	return result, nil
}

// Status counts documents per sync state for every configured collection.
func (s *SyncServiceImpl) Status(ctx context.Context) ([]CollectionStatus, error) {
	out := make([]CollectionStatus, 0, len(s.Config.Paystack.Sync))
	for _, sc := range s.Config.Paystack.Sync {
		total, err := s.Docs.Count(ctx, sc.Collection, nil)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", sc.Collection, err)
		}
		status := CollectionStatus{
			Collection: sc.Collection,
			Resource:   sc.ResourceType,
			Total:      total,
			States:     make(map[document.SyncState]int64),
		}
		var tracked int64
		for _, state := range []document.SyncState{document.StatePending, document.StateSynced, document.StateFailed} {
			n, err := s.Docs.Count(ctx, sc.Collection, map[string]any{document.FieldSyncState: string(state)})
			if err != nil {
				return nil, fmt.Errorf("count %s: %w", sc.Collection, err)
			}
			status.States[state] = n
			tracked += n
		}
		status.States[document.StateUnsynced] = total - tracked
		out = append(out, status)
	}
	return out, nil
}

// UpdateProductsCurrency sets the default currency on every Paystack product that differs.
func (s *SyncServiceImpl) UpdateProductsCurrency(ctx context.Context) (int, error) {
	p := s.Config.Paystack
	if !p.Enabled || !p.UpdateProductsCurrency || p.TestMode {
		return 0, nil
	}

	log := s.log.With("currency")
	const perPage = 100
	updated := 0
	for page := 1; ; page++ {
		resp := s.Client.Call(ctx, paystack.Request{Path: paystack.ListPath("product", page, perPage), Method: http.MethodGet})
		if !resp.OK() {
			return updated, fmt.Errorf("list products page %d: %s", page, resp.Message)
		}
		items, _ := resp.DataList()
		for _, item := range items {
			product := document.Document(asMap(item))
			id := product.String("id")
			if id == "" || product.String("currency") == p.DefaultCurrency {
				continue
			}
			r := s.Client.Call(ctx, paystack.Request{
				Path:   paystack.BuildPath("product", id),
				Method: http.MethodPut,
				Body:   map[string]any{"currency": p.DefaultCurrency},
			})
			if !r.OK() {
				log.Warn("Failed to update product currency", zap.String("product", id), zap.String("message", r.Message))
				continue
			}
			updated++
		}
		if len(items) < perPage {
			break
		}
	}
	log.Info("Product currency back-fill finished", zap.Int("updated", updated), zap.String("currency", p.DefaultCurrency))
	return updated, nil
}

// create posts source to Paystack and records the identifier and sync state on target.
func (s *SyncServiceImpl) create(ctx context.Context, log *logger.PluginLogger, sc *config.SyncConfig, source, target document.Document) paystack.Response {
	singular := sc.Singular()
	body := mapping.Deepen(mapping.Flatten(sc.Fields, source))
	if singular == "product" {
		if _, ok := body["currency"]; !ok {
			body["currency"] = s.Config.Paystack.DefaultCurrency
		}
	}

	state := source.SyncState().Next(document.EventLocalChange)
	resp := s.Client.Call(ctx, paystack.Request{
		Path:   paystack.BuildPath(sc.ResourceType, ""),
		Method: http.MethodPost,
		Body:   body,
	})
	if !resp.OK() {
		target[document.FieldSyncState] = string(state.Next(document.EventRemoteFailure))
		log.Error("Failed to create Paystack "+singular, zap.String("collection", sc.Collection), zap.Int("status", resp.Status), zap.String("message", resp.Message))
		return resp
	}

	remoteID := remoteIdentifier(singular, resp.DataMap())
	if remoteID == "" {
		log.Warn("Paystack response carried no identifier", zap.String("collection", sc.Collection))
	} else {
		target[document.FieldRemoteID] = remoteID
	}
	target[document.FieldSyncState] = string(state.Next(document.EventRemoteAck))
	log.Info("Created Paystack "+singular, zap.String("collection", sc.Collection), zap.String("paystack_id", remoteID))
	return resp
}

func (s *SyncServiceImpl) setRiskAction(ctx context.Context, customer, action string) paystack.Response {
	return s.Client.Call(ctx, paystack.Request{
		Path:   paystack.RiskActionPath,
		Method: http.MethodPost,
		Body:   map[string]any{"customer": customer, "risk_action": action},
	})
}

// remoteIdentifier picks the value a document correlates on: the numeric id for
// numericIdentity kinds, the <singular>_code otherwise.
func remoteIdentifier(singular string, data map[string]any) string {
	d := document.Document(data)
	if numericIdentity[singular] {
		if id := d.String("id"); id != "" {
			return id
		}
	}
	return d.String(singular + "_code")
}

func isNotFound(resp paystack.Response) bool {
	if resp.Status == http.StatusNotFound {
		return true
	}
	return !resp.OK() && !resp.Unreachable && notFoundPattern.MatchString(resp.Message)
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}
