package polling

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	"go-paystack-sync/internal/config"
	cron_feature "go-paystack-sync/internal/features/cron"
	"go-paystack-sync/internal/features/document"
	"go-paystack-sync/internal/logger"
	"go-paystack-sync/internal/paystack"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// JobName is the scheduler entry the blacklist reconciliation runs under.
const JobName = "paystack-blacklist"

var ErrDisabled = errors.New("blacklist polling is disabled")

type PollingService interface {
	// Run reconciles local blacklist flags with Paystack risk actions. Calls made while
	// a run is in flight wait for it and share its summary.
	Run(ctx context.Context) (*Summary, error)
	LastRun() *Summary
	// Register schedules Run on the configured interval when polling is enabled.
	Register(scheduler cron_feature.CronService) error
}

type PollingServiceImpl struct {
	Config *config.Config
	Client paystack.Caller
	Docs   document.DocumentService
	log    *logger.PluginLogger

	mu   stdsync.Mutex
	last *Summary
	runs singleflight.Group
}

func NewPollingService(cfg *config.Config, client paystack.Caller, docs document.DocumentService, log *zap.Logger) PollingService {
	return &PollingServiceImpl{
		Config: cfg,
		Client: client,
		Docs:   docs,
		log:    logger.NewPluginLogger(log, cfg.Paystack.Logs).With("polling"),
	}
}

func (s *PollingServiceImpl) Register(scheduler cron_feature.CronService) error {
	p := s.Config.Paystack
	if !p.Enabled || !p.Blacklist.Enabled || !p.Blacklist.Polling {
		return nil
	}
	if _, ok := p.SyncForResource("customer"); !ok {
		s.log.Warn("Blacklist polling enabled but no collection is synced with customers")
		return nil
	}
	s.log.Info("Scheduling blacklist polling",
		zap.Duration("interval", p.Blacklist.Interval),
		zap.Bool("run_immediately", p.Blacklist.RunImmediately))

	return scheduler.RegisterJob(cron_feature.Job{
		Name:           JobName,
		Interval:       p.Blacklist.Interval,
		RunImmediately: p.Blacklist.RunImmediately,
		Run: func(ctx context.Context) error {
			_, err := s.Run(ctx)
			return err
		},
	})
}

func (s *PollingServiceImpl) LastRun() *Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	last := *s.last
	return &last
}

func (s *PollingServiceImpl) Run(ctx context.Context) (*Summary, error) {
	v, err, shared := s.runs.Do(JobName, func() (any, error) {
		return s.reconcile(ctx)
	})
	if shared {
		s.log.Debug("joined in-flight blacklist run")
	}
	summary, _ := v.(*Summary)
	return summary, err
}

func (s *PollingServiceImpl) reconcile(ctx context.Context) (*Summary, error) {
	p := s.Config.Paystack
	if !p.Enabled || !p.Blacklist.Enabled {
		return nil, ErrDisabled
	}
	sc, ok := p.SyncForResource("customer")
	if !ok {
		return nil, fmt.Errorf("%w: no collection is synced with customers", ErrDisabled)
	}

	summary := &Summary{StartedAt: time.Now()}
	defer func() {
		summary.FinishedAt = time.Now()
		s.mu.Lock()
		s.last = summary
		s.mu.Unlock()
	}()

	if p.TestMode {
		summary.Skipped = true
		s.log.Info("Test mode is on, skipping blacklist polling")
		return summary, nil
	}

	pageSize := p.Blacklist.PageSize
	for page := 1; page <= p.Blacklist.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			summary.Error = err.Error()
			return summary, err
		}

		resp := s.Client.Call(ctx, paystack.Request{
			Path:   paystack.ListPath(sc.ResourceType, page, pageSize),
			Method: "GET",
		})
		items, isList := resp.DataList()
		if resp.Status != 200 || !isList {
			if resp.Status != 200 {
				summary.Error = fmt.Sprintf("page %d: status %d: %s", page, resp.Status, resp.Message)
				s.log.Warn("Stopping blacklist polling", zap.Int("page", page), zap.Int("status", resp.Status), zap.String("message", resp.Message))
			}
			break
		}
		summary.Pages++

		for _, item := range items {
			remote, ok := parseCustomer(item)
			if !ok {
				continue
			}
			summary.Checked++
			s.correct(ctx, sc, remote, summary)
		}

		if len(items) < pageSize {
			break
		}
	}

	s.log.Info("Blacklist polling finished",
		zap.Int("pages", summary.Pages),
		zap.Int("checked", summary.Checked),
		zap.Int("corrected", summary.Corrected))
	return summary, nil
}

// correct updates the local customer when its flag disagrees with the remote risk action.
func (s *PollingServiceImpl) correct(ctx context.Context, sc *config.SyncConfig, remote remoteCustomer, summary *Summary) {
	local, err := s.findLocal(ctx, sc.Collection, remote.candidates())
	if err != nil {
		summary.Failed++
		s.log.Error("Failed to look up customer", zap.Strings("ids", remote.candidates()), zap.Error(err))
		return
	}
	if local == nil {
		summary.Unmatched++
		return
	}

	want := remote.RiskAction == paystack.RiskActionDeny
	if local.Blacklisted() == want {
		return
	}

	patch := document.Document{
		document.FieldBlacklisted: want,
		document.FieldSkipSync:    true,
		document.FieldSyncState:   string(local.SyncState().Next(document.EventInbound)),
	}
	if _, err := s.Docs.Update(ctx, sc.Collection, local.ID(), patch); err != nil {
		summary.Failed++
		s.log.Error("Failed to correct blacklist flag", zap.String("id", local.ID()), zap.Error(err))
		return
	}
	summary.Corrected++
	s.log.Debug("corrected blacklist flag", zap.String("id", local.ID()), zap.Bool("blacklisted", want))
}

func (s *PollingServiceImpl) findLocal(ctx context.Context, collection string, ids []string) (document.Document, error) {
	for _, id := range ids {
		res, err := s.Docs.Find(ctx, collection, map[string]any{document.FieldRemoteID: id}, 1)
		if err != nil {
			return nil, err
		}
		if len(res.Docs) > 0 {
			return res.Docs[0], nil
		}
	}
	return nil, nil
}

func parseCustomer(item any) (remoteCustomer, bool) {
	m, ok := item.(map[string]any)
	if !ok {
		return remoteCustomer{}, false
	}
	d := document.Document(m)
	c := remoteCustomer{
		Code:       d.String("customer_code"),
		ID:         d.String("id"),
		RiskAction: d.String("risk_action"),
	}
	return c, c.Code != "" || c.ID != ""
}
