package main

import (
	"fmt"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"bugboard/internal/domain"
	"bugboard/internal/service"
)

const (
	emailFlag    = "email"
	nameFlag     = "name"
	surnameFlag  = "surname"
	passwordFlag = "password"
)

var userFlags = map[string]cobraflags.Flag{
	emailFlag: &cobraflags.StringFlag{
		Name:  emailFlag,
		Usage: "Login email (required)",
	},
	nameFlag: &cobraflags.StringFlag{
		Name:  nameFlag,
		Usage: "Given name (required)",
	},
	surnameFlag: &cobraflags.StringFlag{
		Name:  surnameFlag,
		Usage: "Surname (required)",
	},
	passwordFlag: &cobraflags.StringFlag{
		Name:  passwordFlag,
		Usage: "Initial password, max 72 bytes (required)",
	},
}

func newUserCommand() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	var admin bool
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user; the first administrator is usually created this way",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, done := bootstrap()
			defer done()

			role := domain.RoleStandard
			if admin {
				role = domain.RoleAdmin
			}
			u, err := a.Svc.Users.Register(cmd.Context(), service.RegisterInput{
				Name:     userFlags[nameFlag].GetString(),
				Surname:  userFlags[surnameFlag].GetString(),
				Email:    userFlags[emailFlag].GetString(),
				Password: userFlags[passwordFlag].GetString(),
				Role:     role,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", u.Role, u.Email, u.ID)
			return nil
		},
	}
	cobraflags.RegisterMap(createCmd, userFlags)
	createCmd.Flags().BoolVar(&admin, "admin", false, "Grant the Administrator role")

	userCmd.AddCommand(createCmd)
	return userCmd
}
