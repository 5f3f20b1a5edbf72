package document

import (
	"context"
	"fmt"
	"sync"

	"go-paystack-sync/internal/config"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// DocumentService is the host side of the integration: CRUD over local collections with
// lifecycle callbacks fired around each write.
type DocumentService interface {
	Find(ctx context.Context, collection string, filter map[string]any, limit int64) (*FindResult, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	Create(ctx context.Context, collection string, data Document, opts ...CreateOption) (Document, error)
	Update(ctx context.Context, collection, id string, data Document) (Document, error)
	Delete(ctx context.Context, collection, id string) error
	Count(ctx context.Context, collection string, filter map[string]any) (int64, error)
	// Use registers callbacks for a collection; they run after any registered earlier.
	Use(collection string, hooks Hooks)
	IsAuthCollection(collection string) bool
}

type CreateOptions struct {
	DisableVerificationEmail bool
}

type CreateOption func(*CreateOptions)

// WithoutVerificationEmail marks an auth document as verified so no verification mail is due.
func WithoutVerificationEmail() CreateOption {
	return func(o *CreateOptions) { o.DisableVerificationEmail = true }
}

type DocumentServiceImpl struct {
	Store  Store
	Logger *zap.Logger

	mu    sync.RWMutex
	hooks map[string]*Hooks
	auth  map[string]bool
}

func NewDocumentService(store Store, cfg *config.Config, logger *zap.Logger) DocumentService {
	auth := make(map[string]bool)
	for _, sc := range cfg.Paystack.Sync {
		if sc.Auth {
			auth[sc.Collection] = true
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentServiceImpl{
		Store:  store,
		Logger: logger,
		hooks:  make(map[string]*Hooks),
		auth:   auth,
	}
}

func (s *DocumentServiceImpl) Use(collection string, hooks Hooks) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hooks[collection]
	if !ok {
		h = &Hooks{}
		s.hooks[collection] = h
	}
	h.append(hooks)
}

func (s *DocumentServiceImpl) IsAuthCollection(collection string) bool {
	return s.auth[collection]
}

func (s *DocumentServiceImpl) hooksFor(collection string) Hooks {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if h, ok := s.hooks[collection]; ok {
		return *h
	}
	return Hooks{}
}

func (s *DocumentServiceImpl) Find(ctx context.Context, collection string, filter map[string]any, limit int64) (*FindResult, error) {
	docs, err := s.Store.Find(ctx, collection, filter, limit)
	if err != nil {
		return nil, err
	}
	total := int64(len(docs))
	if limit > 0 && total == limit {
		if total, err = s.Store.Count(ctx, collection, filter); err != nil {
			return nil, err
		}
	}
	return &FindResult{Docs: docs, TotalDocs: total}, nil
}

func (s *DocumentServiceImpl) Get(ctx context.Context, collection, id string) (Document, error) {
	return s.Store.Get(ctx, collection, id)
}

func (s *DocumentServiceImpl) Count(ctx context.Context, collection string, filter map[string]any) (int64, error) {
	return s.Store.Count(ctx, collection, filter)
}

func (s *DocumentServiceImpl) Create(ctx context.Context, collection string, data Document, opts ...CreateOption) (Document, error) {
	var o CreateOptions
	for _, opt := range opts {
		opt(&o)
	}

	args := &HookArgs{
		Collection: collection,
		Operation:  OperationCreate,
		Data:       data.Clone(),
	}
	if err := runHooks(ctx, s.hooksFor(collection).BeforeCreate, args); err != nil {
		return nil, err
	}

	toStore := args.Data
	if s.IsAuthCollection(collection) {
		if err := prepareCredentials(toStore); err != nil {
			return nil, err
		}
		toStore[FieldVerified] = o.DisableVerificationEmail
		if !o.DisableVerificationEmail {
			s.Logger.Info("Verification required for new auth document", zap.String("collection", collection))
		}
	}

	return s.Store.Create(ctx, collection, toStore)
}

func (s *DocumentServiceImpl) Update(ctx context.Context, collection, id string, data Document) (Document, error) {
	original, err := s.Store.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}

	args := &HookArgs{
		Collection: collection,
		Operation:  OperationUpdate,
		Data:       data.Clone(),
		Original:   original,
	}
	if err := runHooks(ctx, s.hooksFor(collection).BeforeUpdate, args); err != nil {
		return nil, err
	}

	patch := args.Data
	if s.IsAuthCollection(collection) {
		if err := prepareCredentials(patch); err != nil {
			return nil, err
		}
	}
	return s.Store.Update(ctx, collection, id, patch)
}

func (s *DocumentServiceImpl) Delete(ctx context.Context, collection, id string) error {
	original, err := s.Store.Get(ctx, collection, id)
	if err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, collection, id); err != nil {
		return err
	}

	args := &HookArgs{
		Collection: collection,
		Operation:  OperationDelete,
		Original:   original,
	}
	if err := runHooks(ctx, s.hooksFor(collection).AfterDelete, args); err != nil {
		s.Logger.Warn("After-delete hook failed", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
	}
	return nil
}

// prepareCredentials hashes a plain password in place and drops the confirmation field.
func prepareCredentials(data Document) error {
	confirm, hasConfirm := data[FieldPasswordConfirm]
	delete(data, FieldPasswordConfirm)

	password, ok := data[FieldPassword].(string)
	if !ok || password == "" {
		return nil
	}
	if hasConfirm && confirm != password {
		return fmt.Errorf("password confirmation does not match")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	data[FieldPassword] = string(hash)
	return nil
}

// Public strips credential material before a document leaves the service boundary.
func Public(doc Document) Document {
	if doc == nil {
		return nil
	}
	out := doc.Clone()
	delete(out, FieldPassword)
	delete(out, FieldPasswordConfirm)
	return out
}
