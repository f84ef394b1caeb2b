// Seed provisions a fresh database with a tenant, an admin account, and
// the three stock notification templates.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/google/uuid"

	"slotbook/internal/config"
	"slotbook/internal/database"
	"slotbook/internal/domain"
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

	ctx := context.Background()
	clientID := cfg.DefaultClientID

	hoursRepo := repository.NewBusinessHoursRepository(db)
	if _, err := hoursRepo.GetOrCreate(ctx, clientID); err != nil {
		log.Fatal(err)
	}
	log.Printf("seed: business hours ready client_id=%s", clientID)

	userRepo := repository.NewUserRepository(db)
	email := envOr("SEED_ADMIN_EMAIL", "admin@example.com")
	if _, err := userRepo.GetByEmail(ctx, email); err == nil {
		log.Printf("seed: admin already exists email=%s", email)
	} else {
		password := envOr("SEED_ADMIN_PASSWORD", "changeme")
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal(err)
		}
		admin := &domain.User{
			ClientID:     clientID,
			Email:        email,
			PasswordHash: string(hash),
			Role:         domain.RoleOwner,
			Name:         "Administrator",
		}
		if err := userRepo.Create(ctx, admin); err != nil {
			log.Fatal(err)
		}
		log.Printf("seed: admin created email=%s id=%d", email, admin.ID)
	}

	templateRepo := repository.NewEmailTemplateRepository(db)
	existing, err := templateRepo.ListByClient(ctx, clientID)
	if err != nil {
		log.Fatal(err)
	}
	if len(existing) > 0 {
		log.Printf("seed: templates already exist count=%d", len(existing))
		return
	}

	for _, tpl := range defaultTemplates(clientID) {
		if err := templateRepo.Create(ctx, &tpl); err != nil {
			log.Fatal(err)
		}
		log.Printf("seed: template created name=%q type=%s", tpl.Name, tpl.Type)
	}
}

func defaultTemplates(clientID string) []domain.EmailTemplate {
	now := time.Now()
	return []domain.EmailTemplate{
		{
			ID:       uuid.NewString(),
			ClientID: clientID,
			Name:     "Booking confirmation",
			Type:     domain.TemplateConfirmation,
			Subject:  "Your reservation on {{date}}",
			Body: "<p>Hi {{name}},</p>" +
				"<p>Your reservation is confirmed for {{date}} at {{time}}.</p>",
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:       uuid.NewString(),
			ClientID: clientID,
			Name:     "Reminder, day before",
			Type:     domain.TemplateReminder,
			Subject:  "Reminder: reservation tomorrow at {{time}}",
			Body: "<p>Hi {{name}},</p>" +
				"<p>A quick reminder about your reservation on {{date}} at {{time}}.</p>",
			Timing:    domain.Timing{Value: 1, Unit: domain.UnitDays},
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:       uuid.NewString(),
			ClientID: clientID,
			Name:     "Follow-up",
			Type:     domain.TemplateFollowup,
			Subject:  "Thanks for visiting us, {{name}}",
			Body: "<p>Hi {{name}},</p>" +
				"<p>Thank you for your visit on {{date}}. We would love to see you again.</p>",
			Timing:    domain.Timing{Value: -24, Unit: domain.UnitHours},
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
