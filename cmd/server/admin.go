package main

import (
	"fmt"

	"fieldops-api/internal/auth"
	"fieldops-api/internal/database"

	"github.com/spf13/cobra"
	"gorm.io/gorm/logger"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := database.Open(cfg.DBPath, logger.Warn)
			if err != nil {
				return err
			}
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			log.Info("schema is up to date", "path", cfg.DBPath)
			return nil
		},
	}
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage local staff accounts",
	}
	cmd.AddCommand(userCreateCmd())
	return cmd
}

func userCreateCmd() *cobra.Command {
	var in auth.NewAccount

	cmd := &cobra.Command{
		Use:   "create [username]",
		Short: "Create a local staff account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := database.Open(cfg.DBPath, logger.Warn)
			if err != nil {
				return err
			}
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			in.Username = args[0]
			user, err := auth.NewAccounts(db, nil).Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s user %s (%s)\n", user.Role, user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&in.Password, "password", "p", "", "Password (at least 8 characters)")
	cmd.Flags().StringVar(&in.DisplayName, "name", "", "Display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&in.Role, "role", "staff", "Role (admin or staff)")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
