package cmds

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newHistoryCommand() *cobra.Command {
	var asJSON bool
	var tail int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the persisted conversation of the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			msgs := app.Manager.Messages()
			if tail > 0 && len(msgs) > tail {
				msgs = msgs[len(msgs)-tail:]
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(msgs)
			}

			sess := app.Manager.Session()
			fmt.Fprintf(cmd.OutOrStdout(), "# session %s (visitor %s)\n", sess.SessionID, sess.VisitorID)
			for _, m := range msgs {
				if err := printMessage(cmd, m, false); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print messages as a JSON array")
	cmd.Flags().IntVar(&tail, "tail", 0, "Only print the last N messages")
	return cmd
}

func newClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the conversation and start a new session",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Manager.ClearHistory(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "new session %s\n", app.Manager.Session().SessionID)
			return nil
		},
	}
}
