package cmds

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/lexflow/pkg/ui"
	"github.com/go-go-golems/lexflow/pkg/ui/runtime"
)

func newChatCommand() *cobra.Command {
	var noAbandon bool
	var altScreen bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the interactive chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := NewApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			title := app.Tenant.UI.Title
			if title == "" {
				title = app.Tenant.Name
			}
			progOpts := []tea.ProgramOption{}
			if altScreen {
				progOpts = append(progOpts, tea.WithAltScreen())
			}

			cs, err := runtime.NewChatBuilder().
				WithContext(ctx).
				WithManager(app.Manager).
				WithSubscriber(app.Events.Subscriber, app.Sink.Topic()).
				WithProgramOptions(progOpts...).
				WithModelOptions(ui.ModelOptions{
					Title:    title,
					Subtitle: app.Tenant.UI.Subtitle,
					BotName:  app.Tenant.Name,
					Booking:  app.Booking(),
				}).
				BuildProgram()
			if err != nil {
				return err
			}

			runErr := cs.Run(ctx)

			if !noAbandon {
				bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				defer cancel()
				if err := app.SendAbandon(bctx); err != nil {
					log.Warn().Err(err).Msg("abandonment beacon failed")
				}
			}
			return runErr
		},
	}
	cmd.Flags().BoolVar(&noAbandon, "no-abandon", false, "Do not send the abandonment beacon on exit")
	cmd.Flags().BoolVar(&altScreen, "alt-screen", false, "Run in the terminal's alternate screen")
	return cmd
}
