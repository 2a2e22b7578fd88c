package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kuitang/yanote/internal/auth"
)

var (
	newUsername    string
	newPassword    string
	logoutUsername string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account without going through the signup page",
	Run: func(cmd *cobra.Command, args []string) {
		_, database, err := openDatabase("")
		if err != nil {
			fatal("Failed to open database", err)
		}
		defer database.Close()

		users := auth.NewUserService(database, nil)
		user, err := users.Register(cmd.Context(), auth.RegisterParams{
			Username:        newUsername,
			Password:        newPassword,
			PasswordConfirm: newPassword,
		})
		if err != nil {
			fatal("Failed to create user", err)
		}
		fmt.Printf("Created user %s (%s)\n", user.Username, user.ID)
	},
}

var userLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign an account out of every browser",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, database, err := openDatabase("")
		if err != nil {
			fatal("Failed to open database", err)
		}
		defer database.Close()

		user, err := auth.NewUserService(database, nil).GetByUsername(cmd.Context(), logoutUsername)
		if err != nil {
			fatal("Failed to find user", err)
		}
		sessions := auth.NewSessionService(database, nil, cfg.SessionDuration)
		if err := sessions.DeleteByUserID(cmd.Context(), user.ID); err != nil {
			fatal("Failed to revoke sessions", err)
		}
		fmt.Printf("Signed out %s everywhere\n", user.Username)
	},
}

func init() {
	userCreateCmd.Flags().StringVar(&newUsername, "username", "", "username (required)")
	userCreateCmd.Flags().StringVar(&newPassword, "password", "", "password (required)")
	_ = userCreateCmd.MarkFlagRequired("username")
	_ = userCreateCmd.MarkFlagRequired("password")

	userLogoutCmd.Flags().StringVar(&logoutUsername, "username", "", "username (required)")
	_ = userLogoutCmd.MarkFlagRequired("username")

	userCmd.AddCommand(userCreateCmd, userLogoutCmd)
	rootCmd.AddCommand(userCmd)
}
