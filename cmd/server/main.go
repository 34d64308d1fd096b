package main

import (
	"context"
	"time"

	"github.com/devacunetixtech/acucommerce/internal/config"
	controllers "github.com/devacunetixtech/acucommerce/internal/controllers/http"
	"github.com/devacunetixtech/acucommerce/internal/infra/mysql"
	"github.com/devacunetixtech/acucommerce/internal/infra/paystack"
	"github.com/devacunetixtech/acucommerce/internal/infra/rabbitmq"
	"github.com/devacunetixtech/acucommerce/internal/metrics"
	mysqlrepo "github.com/devacunetixtech/acucommerce/internal/repository/mysql"
	"github.com/devacunetixtech/acucommerce/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

func main() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := mysql.New(cfg.Database)
	if err != nil {
		log.Fatalf("db: connect: %v", err)
	}

	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetMaxIdleConns(20)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	orderRepo := mysqlrepo.NewOrderRepository(db)
	productRepo := mysqlrepo.NewProductRepository(db)
	cartRepo := mysqlrepo.NewCartRepository(db)
	userRepo := mysqlrepo.NewUserRepository(db)

	publisher, err := rabbitmq.NewPublisher(cfg.AmqpURL, cfg.Exchange)
	if err != nil {
		log.Fatalf("failed to init publisher: %v", err)
	}
	defer publisher.Close()

	gateway := paystack.New(cfg.Paystack.BaseURL, cfg.Paystack.SecretKey, 10*time.Second)

	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		DB:           0,
		PoolSize:     50,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})

	authService := services.NewAuthService(userRepo, cfg.JWTSecret)
	orderService := services.NewOrderService(orderRepo, productRepo, cartRepo, publisher)
	orderService.SetRedisClient(redisClient)
	paymentService := services.NewPaymentService(orderRepo, gateway, publisher, cfg.Paystack.SecretKey, cfg.AppURL)
	cartService := services.NewCartService(cartRepo, productRepo)
	productService := services.NewProductService(productRepo)

	if len(cfg.WarmupProductIDs) > 0 {
		go func() {
			time.Sleep(5 * time.Second)
			if err := orderService.WarmupProductCache(context.Background(), cfg.WarmupProductIDs); err != nil {
				log.Warnf("Failed to warm up cache: %v", err)
			}
		}()
	}

	handler := controllers.NewHandler(authService, orderService, paymentService, cartService, productService)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.Middleware())

	handler.RegisterRoutes(r)

	log.Infof("Starting acucommerce server on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server run: %v", err)
	}
}
