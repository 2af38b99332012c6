package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/db"
	httpapi "github.com/andreasstove999/ecommerce-system/storefront-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/notify"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "[storefront] ", log.LstdFlags|log.Lmicroseconds)

	if cfg.DatabaseDSN == "" {
		logger.Fatal("DATABASE_DSN not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- DB ---
	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			logger.Fatalf("db migrate: %v", err)
		}
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()

	pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Printf("redis ping failed, anonymous carts unavailable until it recovers: %v", err)
	}
	pingCancel()

	// --- Notifications ---
	consumer := notify.NewConsumer(notify.LogMailer{Logger: logger}, logger)

	var (
		conn      *amqp.Connection
		publisher notify.Publisher = notify.LoopbackPublisher{Handle: consumer.Handle}
	)
	if cfg.RabbitMQURL != "" {
		conn, err = amqp.Dial(cfg.RabbitMQURL)
		if err != nil {
			logger.Fatalf("connect to RabbitMQ: %v", err)
		}
		defer conn.Close()

		amqpPub, err := notify.NewAMQPPublisher(conn)
		if err != nil {
			logger.Fatalf("create publisher: %v", err)
		}
		defer amqpPub.Close()
		publisher = amqpPub
	} else {
		logger.Println("RABBITMQ_URL not set, delivering notifications in-process")
	}
	dispatcher := notify.NewDispatcher(publisher, cfg.NotifyQueueSize, logger)

	// --- Domain ---
	products := catalog.NewPostgresRepository(pool)
	cartRepo := cart.NewPostgresRepository(pool)
	sessions := cart.NewRedisSessionStore(rdb, cfg.SessionCartTTL)

	carts := cart.NewService(pool, cartRepo, sessions, products)
	orders := order.NewService(pool, order.NewRepository(pool), products, cartRepo, dispatcher,
		order.WithReturnWindowDays(cfg.ReturnWindowDays))

	// --- HTTP ---
	h := httpapi.NewHandler(products, carts, orders, logger, cfg.RequestTimeout)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(h, cfg.CORSAllowOrigins, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Printf("http listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// stopped by the shutdown goroutine once the HTTP server has drained
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()
	g.Go(func() error {
		return dispatcher.Run(dispatchCtx)
	})

	if conn != nil {
		g.Go(func() error {
			return consumer.Run(gctx, conn)
		})
	}

	// --- graceful shutdown ---
	g.Go(func() error {
		<-gctx.Done()
		logger.Println("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		stopDispatch()
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Printf("fatal error: %v", err)
	}
	logger.Println("shutdown complete")
}
