// cmd/server/main.go
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

	"preorder-storefront/internal/api"
	"preorder-storefront/internal/auth"
	"preorder-storefront/internal/config"
	"preorder-storefront/internal/credential"
	"preorder-storefront/internal/order"
	"preorder-storefront/internal/order/client"
	"preorder-storefront/internal/order/handler"
	"preorder-storefront/internal/order/repository"
	"preorder-storefront/internal/order/service"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/streadway/amqp"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func main() {
	log.Println("Starting storefront companion...")
	cfg := config.Load()
	ctx := context.Background()

	// === 1. DATABASE (snapshot pesanan) ===
	db, err := openDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Database connection established.")

	log.Println("Running AutoMigration...")
	if err := db.AutoMigrate(&order.Order{}); err != nil {
		log.Fatalf("AutoMigration failed: %v", err)
	}

	// === 2. CACHE (Redis, opsional) ===
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
		log.Println("Redis connection established.")
	}

	// === 3. CREDENTIAL STORE ===
	creds, err := openCredentials(cfg, db, rdb)
	if err != nil {
		log.Fatalf("Failed to open credential store: %v", err)
	}

	// === 4. EVENT BROKER ===
	publisher, closeBroker, err := openBroker(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to event broker: %v", err)
	}
	defer closeBroker()

	// === 5. Repository -> Service -> Handler ===
	apiClient := api.NewClient(cfg.APIBaseURL, cfg.APITimeout, creds)

	orderRepo := repository.NewOrderRepository(db)
	orderService := service.NewOrderService(client.New(apiClient), orderRepo, rdb, publisher)
	session := auth.NewSession(apiClient, creds)

	orderHandler := handler.NewOrderHandler(orderService, orderRepo, session, cfg.PageLimit)
	defer orderHandler.Close()

	// data akun lama tidak boleh terbawa ke login berikutnya
	apiClient.OnUnauthenticated = func() {
		log.Println("Sesi berakhir (401), token dihapus. Silakan login kembali.")
		orderHandler.ResetSession(context.Background())
	}

	// === 6. Gin Router ===
	router := gin.Default()
	_ = router.SetTrustedProxies(nil)
	orderHandler.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	go func() {
		log.Printf("Storefront companion is running on %s (API: %s)", cfg.HTTPAddr, cfg.APIBaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// openDatabase memilih driver dari DATABASE_URL: postgres:// atau file sqlite.
func openDatabase(cfg config.Config) (*gorm.DB, error) {
	if cfg.Postgres() {
		return gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	}
	return gorm.Open(sqlite.Open(cfg.DatabaseURL), &gorm.Config{})
}

func openCredentials(cfg config.Config, db *gorm.DB, rdb *redis.Client) (credential.Provider, error) {
	switch cfg.CredentialStore {
	case "redis":
		if rdb == nil {
			return nil, errors.New("CREDENTIAL_STORE=redis membutuhkan REDIS_ADDR")
		}
		return credential.NewRedisStore(rdb, "", 0), nil
	case "sql":
		return credential.NewSQLStore(db)
	default:
		return credential.NewMemoryStore(), nil
	}
}

// openBroker mengembalikan publisher dan fungsi penutupnya.
func openBroker(cfg config.Config) (service.Publisher, func(), error) {
	switch cfg.EventBroker {
	case "amqp":
		conn, err := amqp.Dial(cfg.RabbitMQURL)
		if err != nil {
			return nil, nil, err
		}
		ch, err := conn.Channel()
		if err != nil {
			conn.Close()
			return nil, nil, err
		}
		if err := service.DeclareExchange(ch); err != nil {
			ch.Close()
			conn.Close()
			return nil, nil, err
		}
		log.Println("RabbitMQ connection established.")

		// listener terpisah agar publish tidak berbagi channel dengan consumer
		logCh, err := conn.Channel()
		if err == nil {
			err = service.StartEventLogger(logCh)
		}
		if err != nil {
			log.Printf("PERINGATAN: event logger tidak berjalan: %v", err)
		}

		return service.NewPublisherImpl(ch), func() {
			ch.Close()
			conn.Close()
		}, nil
	case "kafka":
		pub := service.NewKafkaPublisher(cfg.KafkaBrokers)
		log.Printf("Kafka publisher ready (%v).", cfg.KafkaBrokers)
		return pub, func() {
			if err := pub.Close(); err != nil {
				log.Printf("kafka close: %v", err)
			}
		}, nil
	default:
		return service.NopPublisher{}, func() {}, nil
	}
}
