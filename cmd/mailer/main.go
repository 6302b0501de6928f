// Command mailer drains the outbound mail queue and delivers over SMTP.
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"yoga-studio/config"
	"yoga-studio/internal/infra/mailer"
	"yoga-studio/internal/infra/queue"
	"yoga-studio/internal/logging"

	"github.com/sirupsen/logrus"
)

const (
	sendTimeout  = 30 * time.Second
	retryBackoff = 5 * time.Second
)

func main() {
	cfg, err := config.LoadMailWorker()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	log := logging.New(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	smtp := &mailer.SMTP{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		User:     cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}
	handle := deliver(smtp, log)

	for {
		err := queue.Consume(ctx, cfg.Queue.URL, cfg.Queue.MailQueue, handle)
		if ctx.Err() != nil {
			log.Info("Mail worker stopped")
			return
		}
		log.WithError(err).Warn("Queue connection lost, reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(retryBackoff):
		}
	}
}

// deliver drops undecodable bodies instead of requeueing them.
func deliver(m mailer.Mailer, log *logrus.Logger) func(context.Context, []byte) error {
	return func(ctx context.Context, body []byte) error {
		msg, err := mailer.Decode(body)
		if err != nil {
			log.WithError(err).Error("Dropping malformed mail message")
			return nil
		}
		ctx, cancel := context.WithTimeout(ctx, sendTimeout)
		defer cancel()
		if err := m.Send(ctx, msg); err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"to": msg.To, "subject": msg.Subject}).Info("Mail delivered")
		return nil
	}
}
