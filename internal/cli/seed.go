package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"trivia-rooms/internal/config"
	"trivia-rooms/internal/domain"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// NewSeedCmd loads a question-bank JSON file into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file, bankID string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a question bank into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath, file, bankID)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to question bank JSON")
	cmd.Flags().StringVar(&bankID, "bank", "default", "bank id to seed")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runSeed(ctx context.Context, configPath, file, bankID string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}

	raw, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	// Accept either a full bank document or a bare question list.
	var bank domain.QuestionBank
	if err := json.Unmarshal(raw, &bank); err != nil || len(bank.Questions) == 0 {
		var questions []domain.QuestionRecord
		if err := json.Unmarshal(raw, &questions); err != nil {
			return fmt.Errorf("parse bank file: %w", err)
		}
		bank = domain.QuestionBank{Questions: questions}
	}
	bank.ID = bankID
	if err := bank.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(bank)
	if err != nil {
		return err
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	if _, err := db.ExecContext(ctx,
		`INSERT INTO question_banks (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`,
		bankID, string(data)); err != nil {
		return fmt.Errorf("seed bank: %w", err)
	}
	log.Printf("seeded bank %q with %d questions", bankID, len(bank.Questions))
	return nil
}
