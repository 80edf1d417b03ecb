package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/theater-seat-server/internal/model"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage the user directory",
}

var usersGrantCmd = &cobra.Command{
	Use:   "grant EMAIL ROLE",
	Short: "Assign a role (attendee, organizer, admin) to a user",
	Long: `Assign a role to a user, registering the user first if needed.

Self-registration over HTTP always creates attendees; organizers and admins
are appointed here.

Examples:
  theater users grant director@example.com organizer`,
	Args: cobra.ExactArgs(2),
	RunE: runUsersGrant,
}

func init() {
	usersCmd.AddCommand(usersGrantCmd)
}

func runUsersGrant(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.users.Grant(cmd.Context(), model.GrantRoleRequest{Email: args[0], Role: model.Role(args[1])})
	if err != nil {
		return err
	}
	a.log.Info().Str("email", user.Email).Str("role", string(user.Role)).Msg("role granted")
	fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", user.Email, user.Role)
	return nil
}
