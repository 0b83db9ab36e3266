package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/cinema-booking/internal/database"
	"github.com/iliyamo/cinema-booking/internal/repository"
	"github.com/iliyamo/cinema-booking/internal/seed"
)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Clear the database and load the demo catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer db.Close()
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			if err := database.Reset(ctx, db); err != nil {
				return err
			}
			res, err := seed.Run(ctx, seed.Stores{
				Users:    repository.NewUserRepo(db),
				Movies:   repository.NewMovieRepo(db),
				Theaters: repository.NewTheaterRepo(db),
				Shows:    repository.NewShowRepo(db),
			}, seed.Options{BcryptCost: cfg.BcryptCost, Log: log})
			if err != nil {
				return err
			}
			fmt.Printf("Admin: admin@cinebook.com / admin123\nUser: user@test.com / password123\n")
			fmt.Printf("Movies: %d  Theaters: %d  Shows: %d\n", res.Movies, res.Theaters, res.Shows)
			return nil
		},
	}
}
