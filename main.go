package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskboard-api/api"
	"taskboard-api/board"
	"taskboard-api/events"
	"taskboard-api/seed"
	"taskboard-api/storage"
	"taskboard-api/stream"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	logger := log.New()
	logger.SetLevel(log.GetLevel())

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	tasksTableName := os.Getenv("TASKS_TABLE")
	usersTableName := os.Getenv("USERS_TABLE")
	if connStr == "" || tasksTableName == "" || usersTableName == "" {
		log.Fatal("missing storage config")
	}
	boardID := os.Getenv("BOARD_ID")
	if boardID == "" {
		boardID = "default"
	}
	store, err := storage.New(connStr, tasksTableName, usersTableName, boardID)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	redisConn := os.Getenv("REDIS_CONNECTION_STRING")
	if redisConn == "" {
		log.Fatal("missing redis config")
	}
	redisOpts, err := redis.ParseURL(redisConn)
	if err != nil {
		parts := strings.Split(redisConn, ",")
		redisOpts = &redis.Options{Addr: parts[0]}
		for _, p := range parts[1:] {
			kv := strings.SplitN(p, "=", 2)
			if len(kv) != 2 {
				continue
			}
			switch strings.ToLower(kv[0]) {
			case "password":
				redisOpts.Password = kv[1]
			case "ssl":
				if strings.ToLower(kv[1]) == "true" {
					redisOpts.TLSConfig = &tls.Config{}
				}
			}
		}
	}
	rc := redis.NewClient(redisOpts)

	cacheTTL := 5 * time.Minute
	if v := os.Getenv("CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			log.Fatalf("invalid CACHE_TTL: %v", err)
		}
		cacheTTL = d
	}
	cached := storage.NewCache(store, rc, cacheTTL, boardID)

	channel := os.Getenv("EVENTS_CHANNEL")
	if channel == "" {
		channel = "board-events"
	}
	publisher := events.NewPublisher(rc, channel, boardID, logger)
	broker := events.NewBroker()
	relayCtx, stopRelay := context.WithCancel(context.Background())
	defer stopRelay()
	go events.Relay(relayCtx, logger, rc, channel, broker)

	var auth *api.Auth
	jwtAudience := os.Getenv("AUTH0_AUDIENCE")
	authDomain := os.Getenv("AUTH0_DOMAIN")
	if jwtAudience != "" && authDomain != "" {
		jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", authDomain)
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		auth = api.NewAuth(jwks, jwtAudience, "https://"+authDomain+"/")
	} else {
		auth = api.NewAuth(nil, "", "")
		logger.Info("auth not configured, running anonymous")
	}

	svc := board.New(cached, publisher, logger)
	seeder := seed.New(cached, publisher, logger)

	if os.Getenv("APP_ENV") == "development" {
		n, err := store.CountTasks(context.Background())
		if err != nil {
			logger.Warnf("startup seed check failed: %v", err)
		} else if n == 0 {
			if _, err := seeder.Seed(context.Background()); err != nil {
				logger.Warnf("startup seed failed: %v", err)
			}
		}
	}

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(api.DecompressRequests())
	if log.GetLevel() == log.DebugLevel {
		pprof.Register(e)
	}

	api.Register(e, svc, seeder, auth, logger)
	stream.Register(e, broker, boardID, logger)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}
