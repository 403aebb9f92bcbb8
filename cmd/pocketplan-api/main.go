package main

import (
	"crypto/tls"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"pocketplan/api"
	"pocketplan/logging"
	"pocketplan/storage"
)

func main() {
	_ = godotenv.Load()
	logging.Setup()

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	tableName := os.Getenv("TASKS_TABLE")
	if connStr == "" || tableName == "" {
		log.Fatal("missing storage config")
	}
	partition := os.Getenv("TASKS_PARTITION")
	if partition == "" {
		partition = "tasks"
	}
	store, err := storage.New(connStr, tableName, partition)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	var handlerStore api.Storage = store
	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		ttl := 30 * time.Second
		if v := os.Getenv("CACHE_TTL"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				log.Fatalf("invalid CACHE_TTL: %v", err)
			}
			ttl = d
		}
		rc := redis.NewClient(redisOptions(redisConn))
		handlerStore = storage.NewCache(store, rc, ttl)
	}

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	logger := log.New()
	api.Register(e, handlerStore, logger)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
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
