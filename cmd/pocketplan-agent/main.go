package main

import (
	"context"
	"crypto/tls"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"pocketplan/backend"
	"pocketplan/logging"
	"pocketplan/notify"
	"pocketplan/tasklist"
)

func main() {
	_ = godotenv.Load()
	logging.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down")
		cancel()
	}()

	var rc *redis.Client
	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		rc = redis.NewClient(redisOptions(redisConn))
		defer rc.Close()
	}

	var store backend.Backend
	switch mode := os.Getenv("TASKS_BACKEND"); mode {
	case "remote":
		base := os.Getenv("API_BASE_URL")
		if base == "" {
			log.Fatal("missing API_BASE_URL")
		}
		store = backend.NewRemote(base)
	case "", "local":
		if rc == nil {
			log.Fatal("missing redis config")
		}
		key := os.Getenv("TASKS_KEY")
		if key == "" {
			key = backend.DefaultKey
		}
		store = backend.NewLocal(rc, key)
	default:
		log.Fatalf("invalid TASKS_BACKEND: %s", mode)
	}

	var notifier notify.Notifier = notify.LogNotifier{}
	if channel := os.Getenv("NOTIFICATIONS_CHANNEL"); channel != "" {
		if rc == nil {
			log.Fatal("missing redis config")
		}
		notifier = notify.NewRedisNotifier(rc, channel)
	}

	window := notify.DefaultDueSoonWindow
	if v := os.Getenv("DUE_SOON_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			log.Fatalf("invalid DUE_SOON_WINDOW: %v", err)
		}
		window = d
	}
	interval := time.Minute
	if v := os.Getenv("SYNC_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			log.Fatalf("invalid SYNC_INTERVAL: %v", err)
		}
		interval = d
	}

	list := tasklist.New(store, func(msg string) { log.Warn(msg) })
	sched := notify.NewScheduler(notifier, list, window)
	list.AttachReminder(sched)
	defer sched.Stop()

	if _, err := list.Load(ctx); err != nil {
		log.Errorf("initial load: %v", err)
	}

	log.WithFields(log.Fields{"interval": interval, "window": window}).Info("task agent started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("task agent stopped")
			return
		case <-ticker.C:
			if _, err := list.Load(ctx); err != nil {
				log.Errorf("sync: %v", err)
			}
		}
	}
}

func redisOptions(connStr string) *redis.Options {
	opts, err := redis.ParseURL(connStr)
	if err != nil {
		parts := strings.Split(connStr, ",")
		opts = &redis.Options{Addr: parts[0]}
		for _, p := range parts[1:] {
			kv := strings.SplitN(p, "=", 2)
			if len(kv) != 2 {
				continue
			}
			switch strings.ToLower(kv[0]) {
			case "password":
				opts.Password = kv[1]
			case "ssl":
				if strings.ToLower(kv[1]) == "true" {
					opts.TLSConfig = &tls.Config{}
				}
			}
		}
	}
	return opts
}
