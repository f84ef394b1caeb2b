package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"slotbook/internal/config"
	"slotbook/internal/database"
	"slotbook/internal/gateway/googlecalendar"
	"slotbook/internal/mail"
	"slotbook/internal/middleware"
	"slotbook/internal/modules/auth"
	"slotbook/internal/modules/availability"
	"slotbook/internal/modules/calendarsync"
	"slotbook/internal/modules/mailer"
	"slotbook/internal/modules/reservation"
	jwtsvc "slotbook/internal/pkg/jwt"
	"slotbook/internal/repository"
	"slotbook/internal/ws"
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

	reservationRepo := repository.NewReservationRepository(db)
	hoursRepo := repository.NewBusinessHoursRepository(db)
	syncRepo := repository.NewCalendarSyncRepository(db)
	templateRepo := repository.NewEmailTemplateRepository(db)
	scheduleRepo := repository.NewEmailScheduleRepository(db)
	logRepo := repository.NewEmailLogRepository(db)
	userRepo := repository.NewUserRepository(db)

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)
	gcal := googlecalendar.New(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI, cfg.MirrorTimeout)
	sender := mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.MailTimeout)
	hub := ws.NewHub()

	syncService := calendarsync.NewService(syncRepo, hoursRepo, gcal)
	mailerService := mailer.NewService(
		templateRepo, scheduleRepo, logRepo, reservationRepo,
		sender, cfg.Timezone, cfg.MailTimeout, cfg.RetryMaxAttempts,
	)
	reservationService := reservation.NewService(
		reservationRepo, hoursRepo, syncService, gcal, mailerService, hub,
		cfg.Timezone, cfg.MirrorTimeout, cfg.ConfirmOnCreate,
	)
	availabilityService := availability.NewService(hoursRepo, reservationRepo, syncService, gcal, cfg.Timezone)

	authHandler := auth.NewHandler(auth.NewService(userRepo, j))
	availabilityHandler := availability.NewHandler(availabilityService, cfg.DefaultClientID, cfg.Timezone)
	reservationHandler := reservation.NewHandler(reservationService, cfg.DefaultClientID, cfg.Timezone)
	mailerHandler := mailer.NewHandler(mailerService)
	syncHandler := calendarsync.NewHandler(syncService)
	wsHandler := ws.NewHandler(hub, j)

	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.Use(middleware.ErrorLogger())

	v1 := r.Group("/api/v1")
	{
		// Widget endpoints are embedded on arbitrary customer sites.
		public := v1.Group("")
		public.Use(middleware.WidgetCORS())
		availabilityHandler.RegisterRoutes(public)

		// Dashboard endpoints with origin-checked CORS.
		dashboard := v1.Group("")
		dashboard.Use(middleware.CORS())

		admin := dashboard.Group("")
		admin.Use(middleware.JWTAuth(j))

		owner := admin.Group("")
		owner.Use(middleware.OwnerOnly())

		authHandler.RegisterRoutes(dashboard, admin)
		reservationHandler.RegisterRoutes(public, admin)
		mailerHandler.RegisterRoutes(admin, owner)
		syncHandler.RegisterRoutes(admin, owner)
		wsHandler.RegisterRoutes(v1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The notification scheduler runs in-process alongside the API.
	runner := mailer.NewRunner(mailerService, cfg.SweepInterval, cfg.RetryInterval)
	go runner.Run(ctx)

	go func() {
		if err := r.Run(":" + cfg.HTTPPort); err != nil {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")
}
