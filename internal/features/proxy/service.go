package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go-paystack-sync/internal/config"
	"go-paystack-sync/internal/logger"
	"go-paystack-sync/internal/paystack"

	"go.uber.org/zap"
)

var (
	ErrUnknownResource = errors.New("unknown Paystack resource")
	ErrInvalidMethod   = errors.New("method must be GET, POST, PUT or DELETE")
	ErrTestMode        = errors.New("test mode is on, only GET requests are forwarded")
)

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodDelete: true,
}

type ProxyService interface {
	// Forward relays an arbitrary call to Paystack and returns its normalized response.
	Forward(ctx context.Context, req RestRequest) (paystack.Response, error)
	ListResource(ctx context.Context, resource string, page, perPage int) (*ResourceList, error)
	GetResource(ctx context.Context, resource, id string) (map[string]any, error)
}

type ProxyServiceImpl struct {
	Config *config.Config
	Client paystack.Caller
	log    *logger.PluginLogger
}

func NewProxyService(cfg *config.Config, client paystack.Caller, log *zap.Logger) ProxyService {
	return &ProxyServiceImpl{
		Config: cfg,
		Client: client,
		log:    logger.NewPluginLogger(log, cfg.Paystack.Logs).With("rest"),
	}
}

func (s *ProxyServiceImpl) Forward(ctx context.Context, req RestRequest) (paystack.Response, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	if !allowedMethods[method] {
		return paystack.Response{}, ErrInvalidMethod
	}
	if method != http.MethodGet && s.Config.Paystack.TestMode {
		return paystack.Response{}, ErrTestMode
	}

	path := req.Path
	if path == "" {
		if _, ok := paystack.Endpoints[req.Resource]; !ok {
			return paystack.Response{}, fmt.Errorf("%w: %q", ErrUnknownResource, req.Resource)
		}
		path = paystack.BuildPath(req.Resource, req.ID)
	}

	s.log.Debug("forwarding", zap.String("method", method), zap.String("path", path))
	resp := s.Client.Call(ctx, paystack.Request{
		Path:   path,
		Method: method,
		Body:   req.body(),
	})
	if !resp.OK() {
		s.log.Warn("REST proxy call failed", zap.String("path", path), zap.Int("status", resp.Status), zap.String("message", resp.Message))
	}
	return resp, nil
}

func (s *ProxyServiceImpl) ListResource(ctx context.Context, resource string, page, perPage int) (*ResourceList, error) {
	project, ok := projections[resource]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownResource, resource)
	}

	resp := s.Client.Call(ctx, paystack.Request{
		Path:   paystack.ListPath(resource, page, perPage),
		Method: http.MethodGet,
	})
	items, isList := resp.DataList()
	if resp.Status != http.StatusOK || !isList {
		return nil, remoteError(resp)
	}

	out := &ResourceList{Docs: make([]map[string]any, 0, len(items))}
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out.Docs = append(out.Docs, project(m))
		}
	}
	out.TotalDocs = len(out.Docs)
	return out, nil
}

func (s *ProxyServiceImpl) GetResource(ctx context.Context, resource, id string) (map[string]any, error) {
	project, ok := projections[resource]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownResource, resource)
	}

	resp := s.Client.Call(ctx, paystack.Request{
		Path:   paystack.BuildPath(resource, id),
		Method: http.MethodGet,
	})
	item := resp.DataMap()
	if resp.Status != http.StatusOK || item == nil {
		return nil, remoteError(resp)
	}
	return project(item), nil
}

func remoteError(resp paystack.Response) error {
	if resp.OK() {
		return &RemoteError{Status: http.StatusBadGateway, Message: "unexpected Paystack response shape"}
	}
	return &RemoteError{Status: resp.Status, Message: resp.Message}
}
