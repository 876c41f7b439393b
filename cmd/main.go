package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ZhaoYaoJing/internal/config"
	"ZhaoYaoJing/internal/cvedb"
	"ZhaoYaoJing/internal/lookup"
	"ZhaoYaoJing/internal/model"
	"ZhaoYaoJing/internal/query"
	"ZhaoYaoJing/internal/utils"
	"ZhaoYaoJing/internal/web"
	"ZhaoYaoJing/pkg/cli"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// 解析命令行参数
	parser := cli.NewParser(os.Stderr)
	if err := parser.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "错误: %v\n\n", err)
		fmt.Fprintf(os.Stderr, "使用 -help 查看完整帮助信息\n")
		return 2
	}
	options := parser.Options

	cfg, err := loadConfig(options)
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		return 1
	}

	// 单次查询时结果写到stdout，日志改写到stderr
	var logOut io.Writer = os.Stdout
	if parser.OneShot() {
		logOut = os.Stderr
	}
	if err := utils.ConfigureLogging(cfg.LogLevel, cfg.LogFormat, logOut); err != nil {
		fmt.Fprintf(os.Stderr, "错误: 日志级别无效: %v\n", err)
		return 1
	}

	logger := utils.NewLogger("main")
	logger.Info("启动照妖镜 v1.0")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 本地镜像：显式指定 -db、离线模式或导入文件时打开
	var mirror *cvedb.CVEDatabase
	if options.Database != "" || cfg.Offline || len(options.ImportFiles) > 0 {
		mirror, err = cvedb.NewCVEDatabase(cfg.Database)
		if err != nil {
			logger.Error("初始化本地镜像失败: %v", err)
			return 1
		}
		defer mirror.Close()
		logger.Debug("本地镜像: %s", cfg.Database)
	}

	if len(options.ImportFiles) > 0 {
		logger.Info("正在导入 %d 个NVD文件到 %s ...", len(options.ImportFiles), cfg.Database)
		total, err := mirror.ImportFiles(options.ImportFiles)
		if err != nil {
			logger.Error("导入失败: %v", err)
			return 1
		}
		cveCount, _ := mirror.GetCveCount()
		cpeCount, _ := mirror.GetCpeCount()
		logger.Info("导入 %d 条记录，镜像共有 %d 个CVE, %d 个CPE", total, cveCount, cpeCount)

		// 只导入时到此结束
		if !parser.OneShot() && options.Listen == "" {
			return 0
		}
	}

	source, err := chooseSource(cfg, mirror, logger)
	if err != nil {
		logger.Error("%v", err)
		return 1
	}

	service := lookup.NewService(source, lookup.Options{
		FanOut:      cfg.FanOut,
		MatchPolicy: cfg.MatchPolicy,
		Targets:     cfg.Targets,
	})

	if parser.OneShot() {
		return runOnce(ctx, service, options, logger)
	}
	return serve(ctx, service, cfg, logger)
}

// loadConfig 默认值 < 配置文件 < 环境变量 < 命令行
func loadConfig(options model.Options) (*config.Config, error) {
	cfg, err := config.Load(options.ConfigFile)
	if err != nil {
		return nil, err
	}
	if options.Listen != "" {
		cfg.Listen = options.Listen
	}
	if options.Database != "" {
		cfg.Database = options.Database
	}
	if options.Offline {
		cfg.Offline = true
	}
	if options.Verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func chooseSource(cfg *config.Config, mirror *cvedb.CVEDatabase, logger *utils.Logger) (lookup.Source, error) {
	if cfg.Offline {
		hasData, err := mirror.HasData()
		if err != nil {
			return nil, fmt.Errorf("读取本地镜像失败: %w", err)
		}
		if !hasData {
			logger.Warn("本地镜像 %s 为空，请先使用 -import 导入NVD数据", cfg.Database)
		}
		logger.Info("离线模式，使用本地镜像查询")
		return mirror, nil
	}

	timeout, err := cfg.RequestTimeout()
	if err != nil {
		return nil, err
	}
	if cfg.NVD.APIKey == "" {
		logger.Debug("未配置NVD API密钥，请求速率受NVD公共限制")
	}
	return cvedb.NewNVDClient(cvedb.ClientConfig{
		BaseURL: cfg.NVD.BaseURL,
		APIKey:  cfg.NVD.APIKey,
		Timeout: timeout,
	}), nil
}

func runOnce(ctx context.Context, service *lookup.Service, options model.Options, logger *utils.Logger) int {
	var report model.QueryReport
	var err error

	if options.Software != "" {
		var q model.SoftwareQuery
		q, err = query.ParseSoftware(options.Software)
		if err == nil {
			report, err = service.LookupSoftware(ctx, q)
		}
	} else {
		report, err = service.LookupKeywords(ctx, query.ParseKeywords(options.Keywords))
	}
	if err != nil {
		logger.Error("查询失败: %v", err)
		return 1
	}

	formatter := cli.NewOutputFormatter(options.OutputFormat, os.Stdout)
	if err := formatter.PrintReport(report, options.OutputFile); err != nil {
		logger.Error("输出结果失败: %v", err)
		return 1
	}
	if options.OutputFile != "" {
		logger.Info("结果已写入 %s", options.OutputFile)
	}
	return 0
}

func serve(ctx context.Context, service *lookup.Service, cfg *config.Config, logger *utils.Logger) int {
	app := web.NewApp(web.Deps{Searcher: service})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP服务监听 %s", cfg.Listen)
		errCh <- app.Listen(cfg.Listen)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP服务启动失败: %v", err)
			return 1
		}
		return 0
	case <-ctx.Done():
	}

	logger.Info("正在关闭HTTP服务...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("关闭HTTP服务失败: %v", err)
		return 1
	}
	return 0
}
