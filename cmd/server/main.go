package main

import (
	"log"
	"time"

	"shop-backend/internal/config"
	"shop-backend/internal/controllers/http"
	"shop-backend/internal/infra/hyp"
	mmysql "shop-backend/internal/infra/mysql"
	"shop-backend/internal/infra/rabbitmq"
	"shop-backend/internal/mail"
	mysqlrepo "shop-backend/internal/repository/mysql"
	"shop-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := mmysql.NewMySQL(cfg)
	if err != nil {
		log.Fatalf("db: connect: %v", err)
	}

	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetMaxIdleConns(20)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(1 * time.Minute)

	repo := mysqlrepo.NewOrderRepository(db)

	gateway := hyp.NewClient(hyp.Config{
		BaseURL: cfg.HypBaseURL,
		Masof:   cfg.HypMasof,
		PassP:   cfg.HypPassP,
		Key:     cfg.HypKey,
	}, 15*time.Second)

	var sender mail.Sender
	if mailer, err := mail.NewSMTPMailer(mail.Config{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
		From: cfg.SMTPFrom,
	}); err != nil {
		log.Printf("mail disabled: %v", err)
	} else {
		sender = mailer
	}

	notifier := services.NewNotifier(repo, sender, cfg.AdminEmail)

	var publisher rabbitmq.PublisherInterface
	if cfg.RabbitURL != "" {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			log.Fatalf("failed to init publisher: %v", err)
		}
		defer pub.Close()
		publisher = pub
	}

	redirects := services.BuildReturnURLs(cfg.AppBaseURL, cfg.HypSuccessPath, cfg.HypFailurePath, cfg.HypCancelPath)

	s := services.NewCheckoutService(repo, gateway, notifier, publisher, redirects)

	var redisClient *redis.Client
	if cfg.RedisHost != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:         cfg.RedisHost + ":6379",
			DB:           0,
			PoolSize:     50,
			MinIdleConns: 5,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
		})
	}

	handler := http.NewHandler(s, redisClient, cfg.DevSecret)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	handler.RegisterRoutes(r)

	log.Printf("Starting shop backend on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server run: %v", err)
	}
}
