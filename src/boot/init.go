package boot

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"natours/src/common"
	"natours/src/config"
	"natours/src/db"
	"natours/src/lib"
	awslib "natours/src/lib/aws"
	"natours/src/middlewares"
	"natours/src/models"
	"natours/src/services"
)

const (
	expiryJobName     = "expire-pending-bookings"
	expiryJobInterval = 10 * time.Minute
	rateLimitWindow   = time.Hour
)

func InitDb(cfg *config.Config) (*gorm.DB, error) {
	gdb, err := db.Open(cfg.DSN, cfg.IsProd())
	if err != nil {
		return nil, err
	}
	err = gdb.AutoMigrate(
		&models.User{},
		&models.Tour{},
		&models.Review{},
		&models.Booking{},
	)
	if err != nil {
		log.Printf("Error migration: %s\n", err.Error())
		return nil, err
	}
	if n, err := common.BackfillTourSlugs(gdb); err == nil && n > 0 {
		log.Printf("[Tours] Backfilled %d slugs\n", n)
	}
	return gdb, nil
}

// InitScheduler registers the pending booking expiry job and starts the
// scheduler.
func InitScheduler(bookings common.BookingExpirer) error {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return err
	}
	_, err = lib.CreateCronJob(expiryJobName, expiryJobInterval, func() {
		common.ExpireStaleBookings(bookings, expiryJobInterval)
	})
	if err != nil {
		log.Printf("Error running job: %s\n", err.Error())
		return err
	}
	log.Println("Jobs in queue:", len(sched.Jobs()))
	sched.Start()
	return nil
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("Error retrieving Scheduler. Check logs for info")
		return
	}
	if err := sched.Shutdown(); err != nil {
		log.Printf("An error has occurred while stopping Scheduler: %s\n", err.Error())
	}
}

// InitMailTransport picks the delivery channel named by MAIL_TRANSPORT.
func InitMailTransport(ctx context.Context, cfg *config.Config) (lib.MailTransport, error) {
	switch cfg.MailTransport {
	case "smtp":
		return lib.NewSMTPTransport(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	case "sendgrid":
		return lib.NewSendGridTransport(cfg.SMTPPort, cfg.SendGridUser, cfg.SendGridAPIKey)
	case "ses":
		awsCfg, err := awslib.LoadConfig(ctx)
		if err != nil {
			return nil, err
		}
		return awslib.NewSESTransport(awslib.NewSESClient(awsCfg)), nil
	}
	return nil, fmt.Errorf("unknown MAIL_TRANSPORT %q", cfg.MailTransport)
}

// InitImageStore stores uploads in S3_ASSETS_BUCKET when it is set and
// below PUBLIC_DIR otherwise.
func InitImageStore(ctx context.Context, cfg *config.Config) (services.ImageStore, error) {
	if cfg.S3AssetsBucket == "" {
		return lib.NewLocalImageStore(cfg.PublicDir), nil
	}
	awsCfg, err := awslib.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}
	return awslib.NewS3ImageStore(awslib.NewS3Client(awsCfg), cfg.S3AssetsBucket), nil
}

// InitRateLimiter returns nil, which disables rate limiting, when no redis
// is configured.
func InitRateLimiter(cfg *config.Config) (middlewares.Limiter, error) {
	if cfg.RedisURL == "" {
		log.Println("[RateLimit] REDIS_HOST is not set, rate limiting is disabled")
		return nil, nil
	}
	rdb, err := lib.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	return lib.NewRateLimiter(rdb, cfg.RateLimitMax, rateLimitWindow), nil
}
