package container

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"offer-desk/catalog"
	"offer-desk/config"
	"offer-desk/gateway"
	"offer-desk/infrastructure/alert"
	"offer-desk/infrastructure/logger"
	"offer-desk/infrastructure/monitor"
	"offer-desk/order"
)

// reloadCooldown 配置文件连续写入时的最小重载间隔
const reloadCooldown = 500 * time.Millisecond

// Options 命令行层面的覆盖项
type Options struct {
	ConfigPath  string
	DryRun      bool      // 强制 dry run，忽略 ledger 配置
	MetricsAddr string    // 非空时覆盖 metrics.addr
	Out         io.Writer // 控制台提示输出，nil 为 stdout
	Watch       bool      // 是否热加载配置
}

// Container 依赖注入容器，管理所有组件的生命周期
type Container struct {
	cfg  config.AppConfig
	opts Options

	// 基础设施
	logger  *logger.Logger
	monitor *monitor.Monitor
	alerts  *alert.Manager

	// 账本网关
	client *gateway.Client
	books  order.Books

	// 核心服务
	catalog   *catalog.Catalog
	lifecycle *order.Lifecycle

	metricsServer *httpServerComponent
	components    *LifecycleManager
}

// New 加载配置并创建 Container
func New(opts Options) (*Container, error) {
	cfg, err := config.ReadWithEnvOverrides(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	c := NewWithConfig(cfg, opts)
	if err := config.Validate(c.cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

// NewWithConfig 使用已加载的配置创建 Container
func NewWithConfig(cfg config.AppConfig, opts Options) *Container {
	if opts.DryRun {
		cfg.Ledger.DryRun = true
	}
	if opts.MetricsAddr != "" {
		cfg.Metrics.Addr = opts.MetricsAddr
	}
	return &Container{
		cfg:        cfg,
		opts:       opts,
		components: NewLifecycleManager(),
	}
}

// Build 构建所有组件
func (c *Container) Build() error {
	if err := c.buildInfrastructure(); err != nil {
		return fmt.Errorf("build infrastructure failed: %w", err)
	}

	c.buildGateway()
	c.buildCoreServices()
	c.registerLifecycleComponents()

	c.logger.Info("container built",
		zap.String("env", c.cfg.Env),
		zap.Bool("dryRun", c.cfg.Ledger.DryRun),
		zap.Strings("currencies", c.catalog.Currencies()),
	)
	return nil
}

func (c *Container) buildInfrastructure() error {
	var err error
	c.logger, err = logger.New(c.cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger failed: %w", err)
	}

	c.monitor = monitor.New(monitor.DefaultConfig())

	c.alerts = alert.NewManager([]alert.Channel{
		alert.NewConsoleChannel("console", c.opts.Out),
		alert.NewLogChannel("log", c.logger.Logger),
	}, c.cfg.Alert.Throttle())

	return nil
}

func (c *Container) buildGateway() {
	if c.cfg.Ledger.DryRun {
		c.books = gateway.DryRunBooks{Logger: c.logger.Named("dryrun")}
		return
	}
	c.client = gateway.NewClient(c.cfg.Ledger.URL, c.cfg.Ledger.Secret, c.cfg.Ledger.Timeout(), c.cfg.Ledger.SubmitRate)
	c.client.Logger = c.logger.Named("ledger")
	c.client.Metrics = c.monitor
	c.books = gateway.NewBooks(c.client, c.cfg.Ledger.Account, c.logger.Named("books"))
}

func (c *Container) buildCoreServices() {
	c.catalog = catalog.New(c.cfg.CatalogGateways())

	form := order.NewForm(c.catalog)
	c.lifecycle = order.NewLifecycle(form, c.books)
	c.lifecycle.SetLogger(c.logger.Named("lifecycle"))
	c.lifecycle.SetRecorder(c.monitor)
	c.lifecycle.SetNotifier(alert.NewSink(c.alerts, c.logger.Logger))
}

func (c *Container) registerLifecycleComponents() {
	if c.cfg.Metrics.Addr != "" {
		c.metricsServer = &httpServerComponent{
			name:    "metrics_server",
			handler: c.monitor.Handler(),
			addr:    c.cfg.Metrics.Addr,
			logger:  c.logger,
		}
		c.components.Register(c.metricsServer)
	}
	if c.opts.Watch && c.opts.ConfigPath != "" {
		c.components.Register(&watcherComponent{
			watcher: config.Watcher{
				Path:     c.opts.ConfigPath,
				Cooldown: reloadCooldown,
				Logger:   c.logger.Named("config"),
			},
			onUpdate: c.Reload,
			logger:   c.logger,
		})
	}
}

// Reload 应用热加载的配置；只替换币种目录，网关连接与日志配置需要重启。
func (c *Container) Reload(cfg config.AppConfig) {
	c.catalog.Replace(cfg.CatalogGateways())
	c.monitor.RecordCatalogReload()
	c.logger.Info("catalog reloaded", zap.Strings("currencies", c.catalog.Currencies()))
}

func (c *Container) Start(ctx context.Context) error {
	c.logger.Info("starting container...")

	if err := c.components.StartAll(ctx); err != nil {
		return fmt.Errorf("start failed: %w", err)
	}

	c.logger.Info("container started")
	return nil
}

func (c *Container) Stop() error {
	c.logger.Info("stopping container...")

	err := c.components.StopAll()
	if err != nil {
		c.logger.LogError(err, map[string]interface{}{"action": "stop"})
	}
	if c.client != nil {
		_ = c.client.Close()
	}
	_ = c.logger.Close()
	return err
}

func (c *Container) HealthCheck() error {
	return c.components.CheckHealth()
}

func (c *Container) Lifecycle() *order.Lifecycle { return c.lifecycle }
func (c *Container) Catalog() *catalog.Catalog   { return c.catalog }
func (c *Container) Logger() *logger.Logger      { return c.logger }
func (c *Container) Monitor() *monitor.Monitor   { return c.monitor }

// MetricsAddr metrics 服务实际监听地址，未启用时为空
func (c *Container) MetricsAddr() string {
	if c.metricsServer == nil {
		return ""
	}
	return c.metricsServer.Addr()
}
