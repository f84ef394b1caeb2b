// The scheduler binary runs the notification passes without the HTTP
// API, for deployments that want the sender isolated from request
// traffic. Run either this or the in-process runner of cmd/api, not
// both against the same database unless double sweeps are acceptable
// (the claim step keeps them from double-sending).
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"slotbook/internal/config"
	"slotbook/internal/database"
	"slotbook/internal/mail"
	"slotbook/internal/modules/mailer"
	"slotbook/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		log.Fatal(err)
	}

	sender := mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.MailTimeout)
	service := mailer.NewService(
		repository.NewEmailTemplateRepository(db),
		repository.NewEmailScheduleRepository(db),
		repository.NewEmailLogRepository(db),
		repository.NewReservationRepository(db),
		sender, cfg.Timezone, cfg.MailTimeout, cfg.RetryMaxAttempts,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mailer.NewRunner(service, cfg.SweepInterval, cfg.RetryInterval).Run(ctx)
}
