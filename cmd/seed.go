package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/golang-sql/civil"
	"github.com/jmehdipour/reminder-dispatch/internal/calendar"
	"github.com/jmehdipour/reminder-dispatch/internal/config"
	"github.com/jmehdipour/reminder-dispatch/internal/db"
	"github.com/jmehdipour/reminder-dispatch/internal/model"
	"github.com/jmehdipour/reminder-dispatch/internal/repository"
	"github.com/spf13/cobra"
)

type upserter interface {
	Upsert(ctx context.Context, rec model.Recipient) error
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the configured store with demo recipients due tomorrow",
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1) load config
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		zones, err := calendar.NewZones(cfg.Reminders.ReferenceZone)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		// 2) connect the store
		var repo upserter
		switch cfg.Store.Backend {
		case repository.BackendMySQL:
			sqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
				MaxOpenConns:    cfg.MySQL.MaxOpenConns,
				MaxIdleConns:    cfg.MySQL.MaxIdleConns,
				ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
				ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
				PingTimeout:     cfg.MySQL.PingTimeout,
			})
			if err != nil {
				return fmt.Errorf("mysql connect: %w", err)
			}
			defer sqlDB.Close()
			repo = repository.NewRecipientsRepository(sqlDB)
		case repository.BackendFirebase:
			app, err := db.NewFirebaseApp(ctx, db.FirebaseOpts{
				CredentialsFile: cfg.Firebase.CredentialsFile,
				DatabaseURL:     cfg.Firebase.DatabaseURL,
			})
			if err != nil {
				return err
			}
			client, err := app.Database(ctx)
			if err != nil {
				return fmt.Errorf("firebase database: %w", err)
			}
			repo = repository.NewFirebaseRepository(repository.NewRTDBTree(client), nil)
		default:
			return fmt.Errorf("%w: %q", repository.ErrUnknownBackend, cfg.Store.Backend)
		}

		tomorrow := calendar.DateAfterDays(time.Now(), zones.Default(), 1)
		log.Printf(">> Seeding demo recipients (due %s)...", tomorrow)

		for _, rec := range demoRecipients(tomorrow) {
			if err := repo.Upsert(ctx, rec); err != nil {
				return err
			}
		}

		log.Println(">> Seed completed")
		return nil
	},
}

// demoRecipients covers each eligibility branch for a run on the same day.
func demoRecipients(due civil.Date) []model.Recipient {
	done := due
	return []model.Recipient{
		{
			ID:     "parent-001",
			Tokens: []string{"demo-token-001a", "demo-token-001b"},
			Events: []model.TrackedEvent{
				{ID: "child-01", Label: "Asha", Category: "MMR", DueDate: due},
				{ID: "child-02", Label: "Ravi", Category: "DTaP", DueDate: due},
			},
		},
		{
			ID:       "parent-002",
			Timezone: "Europe/London",
			Tokens:   []string{"demo-token-002"},
			Events: []model.TrackedEvent{
				{ID: "child-01", Label: "Mia", Category: "Hepatitis B", DueDate: due},
			},
		},
		{
			ID:     "parent-003",
			Muted:  true,
			Tokens: []string{"demo-token-003"},
			Events: []model.TrackedEvent{
				{ID: "child-01", Label: "Kabir", Category: "Polio", DueDate: due},
			},
		},
		{
			ID: "parent-004", // no devices
			Events: []model.TrackedEvent{
				{ID: "child-01", Label: "Zara", Category: "BCG", DueDate: due},
			},
		},
		{
			ID:     "parent-005",
			Tokens: []string{"demo-token-005"},
			Events: []model.TrackedEvent{
				{ID: "child-01", Label: "Leo", Category: "Rotavirus", DueDate: due, LastNotifiedDate: &done},
				{ID: "child-02", Label: "Ivy", DueDate: due.AddDays(30)},
			},
		},
	}
}
