package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"board-sync/api"
	"board-sync/board"
	"board-sync/client"
	"board-sync/storage"
)

// logNotifier surfaces board outcomes as structured log events. A UI layer
// would swap in its own toast implementation.
type logNotifier struct {
	logger *log.Logger
}

func (n logNotifier) Success(msg string) {
	n.logger.WithField("notification", "success").Info(msg)
}

func (n logNotifier) Error(msg string) {
	n.logger.WithField("notification", "error").Warn(msg)
}

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	logger := log.New()
	logger.SetLevel(log.GetLevel())

	backendURL := os.Getenv("BACKEND_BASE_URL")
	projectID := os.Getenv("PROJECT_ID")
	backendToken := os.Getenv("BACKEND_TOKEN")
	if backendURL == "" || projectID == "" || backendToken == "" {
		log.Fatal("missing backend config")
	}

	var cache board.SnapshotCache
	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
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
		ttl := 24 * time.Hour
		if v := os.Getenv("SNAPSHOT_TTL"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				log.Fatalf("invalid SNAPSHOT_TTL: %v", err)
			}
			ttl = d
		}
		cache = storage.NewCache(redis.NewClient(redisOpts), ttl)
	}

	var auth *api.Auth
	if os.Getenv("AUTH_TEST_MODE") == "1" {
		secret := os.Getenv("TEST_JWT_SECRET")
		if secret == "" {
			log.Fatal("TEST_JWT_SECRET must be set when AUTH_TEST_MODE=1")
		}
		auth = api.NewTestAuth([]byte(secret))
	} else {
		jwtAudience := os.Getenv("AUTH_AUDIENCE")
		domain := os.Getenv("AUTH_DOMAIN")
		if jwtAudience == "" || domain == "" {
			log.Fatal("missing auth config")
		}
		jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", domain)
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		auth = api.NewAuth(jwks, jwtAudience, "https://"+domain+"/")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens := client.StaticTokenSource(backendToken)
	remote := client.New(backendURL, tokens, logger)
	notify := logNotifier{logger: logger}

	engine := board.NewEngine(ctx, projectID, remote, cache, notify, logger)
	if err := engine.Refresh(ctx); err != nil {
		logger.WithField("error", err.Error()).Warn("initial fetch failed, serving warm or empty board")
	}

	sub := client.NewSubscriber(backendURL, tokens, logger)
	go sub.Run(ctx, projectID, engine)

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echoprometheus.NewMiddleware("boardsync"))
	e.GET("/metrics", echoprometheus.NewHandler())

	api.Register(e, engine, auth, logger)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("LISTEN_PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}
