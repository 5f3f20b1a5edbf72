package logger

import (
	"go-paystack-sync/internal/config"

	"go.uber.org/zap"
)

// NewLogger builds the process logger; production encoding outside development.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.Environment == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	// Important: Enable Caller to get Function Name
	zapConfig.EncoderConfig.FunctionKey = "func"

	baseLogger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}
	return baseLogger, nil
}

// LogStartup writes the effective Paystack configuration once per service lifecycle.
func LogStartup(log *zap.Logger, cfg *config.Config) {
	p := cfg.Paystack
	collections := make([]string, 0, len(p.Sync))
	for _, sc := range p.Sync {
		collections = append(collections, sc.Collection+"->"+sc.ResourceType)
	}
	NewPluginLogger(log, p.Logs).With("init").Info("configuration loaded",
		zap.Bool("enabled", p.Enabled),
		zap.String("secret_key", config.MaskSecret(p.SecretKey)),
		zap.Bool("test_key", p.IsTestKey()),
		zap.Bool("test_mode", p.TestMode),
		zap.Bool("rest", p.Rest),
		zap.String("default_currency", p.DefaultCurrency),
		zap.Strings("sync", collections),
		zap.Bool("blacklist", p.Blacklist.Enabled),
		zap.Bool("polling", p.Blacklist.Polling),
		zap.Duration("polling_interval", p.Blacklist.Interval),
		zap.String("store", cfg.StoreDriver),
	)
}
