package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"offer-desk/internal/console"
	"offer-desk/internal/container"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	dryRun := flag.Bool("dryRun", false, "仅日志输出，不连接账本")
	metricsAddr := flag.String("metricsAddr", "", "Prometheus metrics 监听地址，覆盖配置文件")
	watch := flag.Bool("watch", true, "配置文件变化时重新加载币种目录")
	flag.Parse()

	c, err := container.New(container.Options{
		ConfigPath:  *cfgPath,
		DryRun:      *dryRun,
		MetricsAddr: *metricsAddr,
		Out:         os.Stdout,
		Watch:       *watch,
	})
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if err := c.Build(); err != nil {
		log.Fatalf("初始化失败: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := c.Start(ctx); err != nil {
		log.Fatalf("启动失败: %v", err)
	}

	fmt.Println("offer desk ready, type help for commands")
	desk := console.New(c.Lifecycle(), c.Catalog(), os.Stdout, c.Logger())

	// stdin 阻塞读取，收到信号时不等待它结束
	done := make(chan error, 1)
	go func() { done <- desk.Run(ctx, os.Stdin) }()

	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		c.Logger().LogError(err, map[string]interface{}{"action": "console"})
	}
	if err := c.Stop(); err != nil {
		os.Exit(1)
	}
}
