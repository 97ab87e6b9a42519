package main

import (
	"context"
	"fmt"
	"log/slog"

	"Med_Community/internal/config"
	"Med_Community/internal/pkg"
	"Med_Community/internal/projection"
	"Med_Community/internal/repository/mysql"
	rdb "Med_Community/internal/repository/redis"
	"Med_Community/internal/router"
	"Med_Community/internal/service"
	"Med_Community/internal/storage"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type App struct {
	DB         *gorm.DB
	Router     *gin.Engine
	Relayer    *service.OutboxRelayer
	Reconciler *service.CounterReconciler

	closers []func() error
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

// buildApp 组装依赖：MySQL 账本、Redis 锁与缓存、GCS、Kafka
func buildApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	app := &App{}

	db, err := mysql.InitDB(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	app.DB = db
	if sqlDB, err := db.DB(); err == nil {
		app.closers = append(app.closers, sqlDB.Close)
	}

	client, err := rdb.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	app.closers = append(app.closers, client.Close)

	var objects service.ObjectStore = storage.Disabled{}
	if cfg.GCSBucket != "" {
		gcs, err := storage.NewGCS(ctx, cfg.GCSBucket, cfg.GCSCredentialsFile)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.closers = append(app.closers, gcs.Close)
		objects = gcs
	} else {
		log.Warn("GCS_BUCKET not set; image uploads disabled")
	}

	sender := service.LogSender(log)
	if brokers := cfg.KafkaBrokerList(); len(brokers) > 0 {
		producer, err := pkg.NewKafkaProducer(pkg.KafkaConfig{Brokers: brokers, Topic: cfg.KafkaTopic})
		if err != nil {
			app.Close()
			return nil, err
		}
		app.closers = append(app.closers, producer.Close)
		sender = service.KafkaSender(producer)
	}

	var notifier service.Notifier
	var mail service.MailSender
	smtp := pkg.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}
	if smtp.Enabled() {
		notifier = service.NewMailNotifier(smtp)
		mail = service.SMTPSender(smtp)
	} else {
		log.Warn("SMTP_HOST not set; email verification disabled, no user can become admin")
	}
	codes := rdb.NewEmailCodeRepository(client)
	emails := service.NewEmailService(codes, mail, codes.TTL, log)

	ledger := mysql.NewLedger(db, cfg.LedgerMaxAttempts)
	guard := rdb.NewDistLock(client, cfg.GuardTTL)
	counts := rdb.NewVoteCacheRepository(client)
	sessions := projection.NewRegistry()
	tokens := pkg.NewTokenManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret)

	communityRepo := mysql.NewCommunityRepository(ledger)
	voteRepo := mysql.NewVoteRepository(ledger)
	membershipRepo := mysql.NewMembershipRepository(ledger)

	posts := service.NewPostService(mysql.NewPostRepository(ledger), communityRepo, voteRepo, counts, objects, guard, sessions, log)
	svc := router.Services{
		Users:       service.NewUserService(mysql.NewUserRepository(db), rdb.NewTokenRepository(client), membershipRepo, emails, tokens, cfg.AdminEmailList(), sessions, log),
		Votes:       service.NewVoteService(voteRepo, counts, guard, sessions, log),
		Membership:  service.NewMembershipService(membershipRepo, guard, sessions, log),
		Communities: service.NewCommunityService(communityRepo, mysql.NewRequestRepository(ledger), objects, notifier, guard, sessions, log),
		Posts:       posts,
		Comments:    service.NewCommentService(mysql.NewCommentRepository(ledger), sessions, log),
		Articles:    service.NewArticleService(mysql.NewArticleRepository(db), posts),
		Sessions:    sessions,
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	app.Router = router.InitRouter(svc, cfg.AllowedOriginList(), log)
	app.Relayer = service.NewOutboxRelayer(mysql.NewOutboxRepository(db), sender, cfg.OutboxInterval, log)
	app.Reconciler = service.NewCounterReconciler(mysql.NewCounterReconcilerRepo(ledger), counts, cfg.ReconcileInterval, log)
	return app, nil
}
