package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"example.com/dayof/internal/config"
	"example.com/dayof/internal/delivery"
	"example.com/dayof/internal/directory"
	"example.com/dayof/internal/dispatch"
	"example.com/dayof/internal/domain"
	"example.com/dayof/internal/hotline"
	"example.com/dayof/internal/logging"
	"example.com/dayof/internal/metrics"
	"example.com/dayof/internal/schedule"
	"example.com/dayof/internal/storage"
	spg "example.com/dayof/internal/storage/postgres"
	redisstore "example.com/dayof/internal/storage/redis"
	"example.com/dayof/internal/telegram"
	transport "example.com/dayof/internal/transport/http"
	"example.com/dayof/internal/valentine"
)

func main() {
	boot := logging.New("info", "dayof-bot")
	config.LoadEnv(boot)
	cfg := config.Parse()
	log := logging.New(cfg.LogLevel, "dayof-bot")
	log.WithField("backend", cfg.StoreBackend).WithField("port", cfg.Port).Info("config loaded")

	if cfg.BotToken == "" || cfg.Chat == 0 {
		log.Fatal("BOT_TOKEN and SCOPE_CHAT_ID are required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	store, closeStore, err := openStore(ctx, g, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("store")
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	loc := cfg.Location()
	chat := domain.ChatID(cfg.Chat)
	dir := directory.New(store, 0)
	client, err := telegram.NewClient(cfg.TelegramAPIURL, cfg.BotToken, &http.Client{Timeout: 15 * time.Second})
	if err != nil {
		log.WithError(err).Fatal("telegram")
	}
	exec := delivery.NewExecutor(client, log, m, delivery.RetryConfig{
		MaxRetries: cfg.DeliveryMaxRetries,
		BaseDelay:  cfg.DeliveryBaseDelay,
		MaxDelay:   delivery.DefaultRetryConfig().MaxDelay,
	})
	queue := delivery.NewQueue(exec, log, cfg.DeliveryQueueSize)

	hl := hotline.New(hotline.Config{
		Chat:        chat,
		Window:      domain.Window{Day: cfg.HotlineDay, CloseDay: cfg.HotlineCloseDay, Force: cfg.ForceActive, Location: loc},
		TTL:         cfg.EventTTL,
		BotUsername: cfg.BotUsername,
		BreakHour:   cfg.HotlineBreakHour,
	}, store, dir, exec, log, m)
	vl := valentine.New(valentine.Config{
		Chat:        chat,
		Window:      domain.Window{Day: cfg.ValentineDay, CloseDay: cfg.ValentineCloseDay, Force: cfg.ForceActive, Location: loc},
		TTL:         cfg.EventTTL,
		Cooldown:    cfg.PublishCooldown,
		BotUsername: cfg.BotUsername,
	}, store, dir, exec, log, m)
	d := dispatch.New(chat, dir, exec, log, m, hl, vl)

	trigger := schedule.New(store, queue, loc, log)
	for _, s := range []struct {
		event, slot, at string
		a               schedule.Announcer
	}{
		{hotline.Name, hotline.SlotMidnight, "00:00", hl},
		{valentine.Name, valentine.SlotMidnight, "00:00", vl},
		{valentine.Name, valentine.SlotAfternoon, "15:00", vl},
	} {
		if err := trigger.Register(s.event, s.slot, s.at, s.a); err != nil {
			log.WithError(err).Fatal("schedule")
		}
	}

	deps := &transport.ServerDeps{
		Cfg:        cfg,
		Dispatcher: d,
		Cards:      vl,
		Store:      store,
		Metrics:    m,
		Gatherer:   reg,
		Log:        log,
		Now:        func() time.Time { return time.Now().UTC() },
	}
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           deps.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g.Go(func() error { return queue.Run(ctx) })
	g.Go(func() error { return trigger.Run(ctx) })
	g.Go(func() error {
		log.Infof("listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel2()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("exited")
		os.Exit(1)
	}
	log.Info("bye")
}

// openStore connects the configured backend. The postgres backend also
// applies the schema and starts the expiry sweeper on g.
func openStore(ctx context.Context, g *errgroup.Group, cfg config.Config, log logging.Logger) (storage.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		db, err := spg.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Info("db: migration applied")
		store := spg.NewStore(db)
		g.Go(func() error { return purgeLoop(ctx, store, cfg.PurgeEvery, log) })
		return store, db.Close, nil
	case config.BackendRedis:
		client, err := redisstore.NewClientFromURL(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return redisstore.NewStore(client), func() { _ = client.Close() }, nil
	default:
		return nil, nil, errors.New("unknown STORE_BACKEND " + cfg.StoreBackend)
	}
}

func purgeLoop(ctx context.Context, store *spg.Store, every time.Duration, log logging.Logger) error {
	if every <= 0 {
		return nil
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			res, err := store.Purge(ctx)
			if err != nil {
				log.WithError(err).Warn("purge")
				continue
			}
			if res.Sum() > 0 {
				log.WithField("values", res.Values).WithField("counters", res.Counters).WithField("members", res.Members).Debug("purged expired rows")
			}
		}
	}
}
