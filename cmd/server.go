package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"exhale/internal/api"
	"exhale/internal/calendar"
	"exhale/internal/dashboard"
	"exhale/internal/notifier"
	"exhale/internal/recommend"
	"exhale/internal/risk"
	"exhale/internal/scheduler"
	"exhale/internal/session"
	"exhale/internal/storage"
)

// AppConfig 应用配置。
type AppConfig struct {
	Server    ServerConfig         `yaml:"server"`
	Database  DatabaseConfig       `yaml:"database"`
	Session   session.TokenConfig  `yaml:"session"`
	Email     notifier.EmailConfig `yaml:"email"`
	Scheduler scheduler.Config     `yaml:"scheduler"`
	Calendar  calendar.HTTPConfig  `yaml:"calendar"`
	Risk      RiskConfig           `yaml:"risk"`
	Recommend recommend.Config     `yaml:"recommend"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// RiskConfig 允许覆盖评分权重与职业压力表，缺省取产品内置值。
type RiskConfig struct {
	Weights   *risk.Weights       `yaml:"weights"`
	JobStress risk.JobStressTable `yaml:"job_stress"`
}

// httpServer 抽象 http.Server，便于测试替换。
type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// reminderScheduler 抽象提醒调度器。
type reminderScheduler interface {
	Start(ctx context.Context) error
	RunOnce(ctx context.Context) (int, error)
}

// appDeps 汇总启动所需的依赖。
type appDeps struct {
	handler http.Handler
	sched   reminderScheduler
}

func main() {
	once := flag.Bool("once", false, "run a single reminder sweep and exit")
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		log.Printf("load config error: %v", err)
		return
	}

	if *once {
		sent, err := runOnceManual(context.Background(), cfg, buildDeps)
		if err != nil {
			log.Printf("reminder sweep error: %v", err)
			return
		}
		log.Printf("reminder sweep sent %d reminders", sent)
		return
	}

	deps, cleanup, err := buildDeps(cfg)
	if err != nil {
		log.Printf("init error: %v", err)
		return
	}
	defer cleanup()

	addr := cfg.Server.Addr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{Addr: addr, Handler: deps.handler}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("listening on %s", addr)
	if err := runServer(ctx, srv, deps.sched, 5*time.Second); err != nil {
		log.Printf("server error: %v", err)
	}
}

// runServer 同时运行 HTTP 服务与调度器，上下文取消时优雅关闭。
func runServer(ctx context.Context, srv httpServer, sched reminderScheduler, shutdownTimeout time.Duration) error {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	schedErr := make(chan error, 1)
	go func() {
		schedErr <- sched.Start(ctx)
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	if err := <-schedErr; err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("scheduler: %w", err)
	}
	return nil
}

// runOnceManual 构建依赖并执行一次提醒扫描，用于命令行手动触发。
func runOnceManual(ctx context.Context, cfg AppConfig, build func(AppConfig) (appDeps, func(), error)) (int, error) {
	deps, cleanup, err := build(cfg)
	if err != nil {
		return 0, fmt.Errorf("build deps: %w", err)
	}
	defer cleanup()
	return deps.sched.RunOnce(ctx)
}

// buildDeps 按配置装配存储、会话、仪表盘、排程与提醒调度。
func buildDeps(cfg AppConfig) (appDeps, func(), error) {
	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath = "exhale.db"
	}
	store, err := storage.NewStore(dbPath)
	if err != nil {
		return appDeps{}, nil, fmt.Errorf("init store: %w", err)
	}
	cleanup := func() { _ = store.Close() }

	tokenCfg := cfg.Session
	if tokenCfg.Secret == "" {
		log.Printf("session secret missing, using insecure development secret")
		tokenCfg.Secret = "dev-secret"
	}
	tokens, err := session.NewTokenManager(tokenCfg)
	if err != nil {
		cleanup()
		return appDeps{}, nil, fmt.Errorf("init tokens: %w", err)
	}
	sess := session.NewService(store, store, store, tokens)

	weights := risk.DefaultWeights()
	if cfg.Risk.Weights != nil {
		weights = *cfg.Risk.Weights
	}
	table := cfg.Risk.JobStress
	if len(table) == 0 {
		table = risk.DefaultJobStressTable()
	}
	scorer := risk.NewScorer(weights, table)

	catalogue := recommend.NewCatalogue(cfg.Recommend)
	planner := calendar.NewPlanner(buildCalendarClient(cfg.Calendar), store)
	dash := dashboard.NewService(store, store, store, scorer, catalogue, planner)

	sched := scheduler.NewScheduler(store, buildNotifier(cfg.Email), cfg.Scheduler)
	handler := api.NewHandler(sess, dash, store, planner, catalogue)

	return appDeps{handler: handler, sched: sched}, cleanup, nil
}

func loadConfig() (AppConfig, error) {
	path := os.Getenv("CONFIG_FILE")
	explicit := path != ""
	if path == "" {
		path = "config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return AppConfig{}, nil
		}
		return AppConfig{}, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// buildCalendarClient 配置了日历服务地址时走 HTTP，否则退回内存日志实现。
func buildCalendarClient(cfg calendar.HTTPConfig) calendar.Client {
	if cfg.BaseURL == "" {
		log.Printf("calendar service disabled: missing base_url")
		return calendar.NewLogClient(nil)
	}
	return calendar.NewHTTPClient(cfg, nil)
}

// buildNotifier 邮件配置齐全时在日志提醒之外叠加 SMTP，否则只留日志提醒。
func buildNotifier(cfg notifier.EmailConfig) notifier.Notifier {
	if cfg.Host == "" || cfg.Port == 0 || cfg.From == "" {
		log.Printf("email notifier disabled: missing host/port/from")
		return notifier.NewLogNotifier(nil)
	}
	return notifier.NewMultiNotifier(notifier.NewLogNotifier(nil), notifier.NewEmailNotifier(cfg, nil))
}
