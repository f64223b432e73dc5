package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/smtp"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/bazaarhq/bazaar-backend/internal/modules/inventory"
	"github.com/bazaarhq/bazaar-backend/internal/modules/payment"
	"github.com/bazaarhq/bazaar-backend/internal/modules/vendor"
	"github.com/bazaarhq/bazaar-backend/pkg/cache"
	"github.com/bazaarhq/bazaar-backend/pkg/config"
	"github.com/bazaarhq/bazaar-backend/pkg/logging"
	"github.com/bazaarhq/bazaar-backend/pkg/metrics"
	"github.com/bazaarhq/bazaar-backend/pkg/queue"
)

// reconcileInterval is how often the payment sweep runs.
const reconcileInterval = 5 * time.Minute

func main() {
	cfg := config.Load()
	log := logging.New("bazaar-worker", !cfg.Production())
	defer log.Sync()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal("database unreachable", zap.Error(err))
	}

	c := cache.New(cfg.RedisURL, log)
	defer c.Close()
	jobs := queue.NewProducer(cfg.KafkaBrokers, log)
	defer jobs.Close()

	vendorService := vendor.NewService(vendor.NewPostgresRepository(db))
	inventoryService := inventory.NewService(inventory.NewPostgresRepository(db), vendorService, c, jobs, log)
	gateway := payment.NewStripeGateway(cfg.StripeSecretKey)
	paymentService := payment.NewService(gateway, payment.NewPostgresRepository(db), inventoryService, jobs, log)

	m := newMailer(cfg, log)
	handlers := map[string]queue.Handler{
		queue.TopicEmail:        emailHandler(m, log),
		queue.TopicAnalytics:    analyticsHandler(log),
		queue.TopicNotification: notificationHandler(log),
	}

	w, err := queue.NewWorker(cfg.KafkaBrokers, cfg.KafkaGroup, handlers, log)
	if err != nil {
		log.Fatal("start worker", zap.Error(err))
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		http.Handle("/metrics", metrics.Handler())
		if err := http.ListenAndServe(":"+cfg.Port, nil); err != nil {
			log.Warn("metrics server stopped", zap.Error(err))
		}
	}()

	// The gateway is authoritative for payment outcomes; this sweep picks
	// up anything the synchronous confirm and the webhooks both missed.
	go func() {
		ticker := time.NewTicker(reconcileInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := paymentService.Reconcile(ctx); err != nil {
					log.Error("payment reconcile sweep failed", zap.Error(err))
				}
			}
		}
	}()

	log.Info("worker consuming", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("group", cfg.KafkaGroup))
	w.Run(ctx)
	log.Info("worker stopped")
}

// mailer sends through SMTP when configured and logs the message
// otherwise, so development runs without a mail relay.
type mailer struct {
	cfg config.Config
	log *zap.Logger
}

func newMailer(cfg config.Config, log *zap.Logger) *mailer {
	if cfg.SMTPHost == "" {
		log.Warn("SMTP_HOST not set, emails will be logged only")
	}
	return &mailer{cfg: cfg, log: log}
}

func (m *mailer) Send(to, subject, body string) error {
	if m.cfg.SMTPHost == "" {
		m.log.Info("email (dry run)", zap.String("to", to), zap.String("subject", subject))
		return nil
	}
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		m.cfg.SMTPFrom, to, subject, body))
	var auth smtp.Auth
	if m.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", m.cfg.SMTPUser, m.cfg.SMTPPass, m.cfg.SMTPHost)
	}
	return smtp.SendMail(m.cfg.SMTPHost+":"+m.cfg.SMTPPort, auth, m.cfg.SMTPFrom, []string{to}, msg)
}

func emailHandler(m *mailer, log *zap.Logger) queue.Handler {
	return func(ctx context.Context, job queue.Job) error {
		to := job.Data["email"]
		if to == "" {
			log.Warn("email job without recipient, skipping", zap.String("type", job.Type))
			return nil
		}
		switch job.Type {
		case queue.JobWelcomeEmail:
			name := job.Data["first_name"]
			if name == "" {
				name = "there"
			}
			return m.Send(to, "Welcome to Bazaar",
				fmt.Sprintf("Hi %s,\n\nYour account is ready. Happy shopping!", name))
		case queue.JobOrderConfirmation:
			return m.Send(to, fmt.Sprintf("Order %s confirmed", job.Data["order_number"]),
				fmt.Sprintf("Thanks for your order. We received your payment of $%s.", job.Data["total"]))
		case queue.JobOrderStatusEmail:
			return m.Send(to, fmt.Sprintf("Order %s update", job.Data["order_number"]),
				fmt.Sprintf("Your order is now %s.", job.Data["status"]))
		default:
			log.Warn("unknown email job type, skipping", zap.String("type", job.Type))
			return nil
		}
	}
}

func analyticsHandler(log *zap.Logger) queue.Handler {
	return func(ctx context.Context, job queue.Job) error {
		switch job.Type {
		case queue.JobOrderCompleted:
			log.Info("analytics: order completed",
				zap.String("order_number", job.Data["order_number"]),
				zap.String("vendor_id", job.Data["vendor_id"]))
		case queue.JobProductView:
			log.Info("analytics: product viewed", zap.String("product_id", job.Data["product_id"]))
		default:
			log.Warn("unknown analytics job type, skipping", zap.String("type", job.Type))
		}
		return nil
	}
}

func notificationHandler(log *zap.Logger) queue.Handler {
	return func(ctx context.Context, job queue.Job) error {
		switch job.Type {
		case queue.JobOrderStatusNotify:
			log.Info("notify: order status changed",
				zap.String("order_number", job.Data["order_number"]),
				zap.String("status", job.Data["status"]))
		case queue.JobLowStockAlert:
			log.Info("notify: low stock",
				zap.String("product_id", job.Data["product_id"]),
				zap.String("remaining", job.Data["remaining"]))
		default:
			log.Warn("unknown notification job type, skipping", zap.String("type", job.Type))
		}
		return nil
	}
}
