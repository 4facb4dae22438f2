package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"offer-desk/amount"
	"offer-desk/catalog"
	"offer-desk/infrastructure/logger"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env      string          `yaml:"env"`
	Log      logger.Config   `yaml:"log"`
	Ledger   LedgerConfig    `yaml:"ledger"`
	Gateways []GatewayConfig `yaml:"gateways"`
	Alert    AlertConfig     `yaml:"alert"`
	Metrics  MetricsConfig   `yaml:"metrics"`
}

// LedgerConfig 账本服务器连接与签名账户。
type LedgerConfig struct {
	URL        string  `yaml:"url"`        // wss://... websocket 地址
	Account    string  `yaml:"account"`    // 下单账户地址
	Secret     string  `yaml:"secret"`     // 账户密钥，推荐用环境变量覆盖
	TimeoutMs  int     `yaml:"timeoutMs"`  // 单次请求超时，0 表示不设超时
	SubmitRate float64 `yaml:"submitRate"` // 每秒最多提交次数，0 表示不限
	DryRun     bool    `yaml:"dryRun"`     // 只记录日志，不连接账本
}

// GatewayConfig 钱包中配置的网关及其发行的币种。
type GatewayConfig struct {
	Name       string   `yaml:"name"`
	Issuer     string   `yaml:"issuer"`
	Currencies []string `yaml:"currencies"`
}

type AlertConfig struct {
	ThrottleSeconds int `yaml:"throttleSeconds"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"` // 留空则不启动 metrics 服务
}

// Timeout returns the per-request ledger timeout.
func (c LedgerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// Throttle returns the alert de-duplication window.
func (c AlertConfig) Throttle() time.Duration {
	return time.Duration(c.ThrottleSeconds) * time.Second
}

// CatalogGateways converts the gateway list for catalog.New / Replace.
func (c AppConfig) CatalogGateways() []catalog.Gateway {
	out := make([]catalog.Gateway, 0, len(c.Gateways))
	for _, gw := range c.Gateways {
		codes := make([]string, 0, len(gw.Currencies))
		for _, code := range gw.Currencies {
			codes = append(codes, strings.ToUpper(strings.TrimSpace(code)))
		}
		out = append(out, catalog.Gateway{Name: gw.Name, Issuer: gw.Issuer, Currencies: codes})
	}
	return out
}

// Load reads YAML config from path and applies basic validation.
func Load(path string) (AppConfig, error) {
	cfg, err := read(path)
	if err != nil {
		return cfg, err
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func read(path string) (AppConfig, error) {
	cfg := AppConfig{Log: logger.DefaultConfig()}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides ledger credentials from env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := ReadWithEnvOverrides(path)
	if err != nil {
		return cfg, err
	}
	return cfg, Validate(cfg)
}

// ReadWithEnvOverrides is LoadWithEnvOverrides without validation, for callers that
// apply command line overrides first.
func ReadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := read(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("OD_LEDGER_URL"); v != "" {
		cfg.Ledger.URL = v
	}
	if v := os.Getenv("OD_LEDGER_ACCOUNT"); v != "" {
		cfg.Ledger.Account = v
	}
	if v := os.Getenv("OD_LEDGER_SECRET"); v != "" {
		cfg.Ledger.Secret = v
	}
	return cfg, nil
}

// Validate ensures required fields are present.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if !cfg.Ledger.DryRun {
		if cfg.Ledger.URL == "" {
			return errors.New("ledger.url is required (or ledger.dryRun)")
		}
		if cfg.Ledger.Account == "" || cfg.Ledger.Secret == "" {
			return errors.New("ledger.account/secret is required (or env overrides)")
		}
	}
	if cfg.Ledger.TimeoutMs < 0 {
		return errors.New("ledger.timeoutMs must be >= 0")
	}
	if cfg.Ledger.SubmitRate < 0 {
		return errors.New("ledger.submitRate must be >= 0")
	}
	if cfg.Alert.ThrottleSeconds < 0 {
		return errors.New("alert.throttleSeconds must be >= 0")
	}
	for i, gw := range cfg.Gateways {
		if gw.Issuer == "" {
			return fmt.Errorf("gateways[%d] %s issuer is required", i, gw.Name)
		}
		if len(gw.Currencies) == 0 {
			return fmt.Errorf("gateways[%d] %s currencies is required", i, gw.Name)
		}
		for _, code := range gw.Currencies {
			code = strings.ToUpper(strings.TrimSpace(code))
			if code == "" {
				return fmt.Errorf("gateways[%d] %s has an empty currency code", i, gw.Name)
			}
			if code == amount.NativeCode {
				return fmt.Errorf("gateways[%d] %s cannot issue %s", i, gw.Name, amount.NativeCode)
			}
		}
	}
	return nil
}
