package cmds

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/lexflow/pkg/chat"
	"github.com/go-go-golems/lexflow/pkg/session"
	"github.com/go-go-golems/lexflow/pkg/webhook"
)

func newSendCommand() *cobra.Command {
	var filePath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "send [text...]",
		Short: "Send one message and print the reply",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			text := strings.Join(args, " ")

			var f *webhook.File
			if strings.TrimSpace(filePath) != "" {
				var err error
				f, err = webhook.FileFromPath(filePath)
				if err != nil {
					return err
				}
			}

			app, err := NewApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			res := app.Manager.SendMessage(ctx, text, f)
			switch res.Outcome {
			case session.OutcomeIgnored:
				if res.Err != nil {
					return res.Err
				}
				return errors.New("nothing to send")
			case session.OutcomeAborted:
				return errors.New("request aborted")
			}

			if res.Reply != nil {
				if err := printMessage(cmd, *res.Reply, asJSON); err != nil {
					return err
				}
			}
			if res.Outcome == session.OutcomeRejected || res.Outcome == session.OutcomeFailed {
				return res.Err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "Attach a file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the reply as JSON")
	return cmd
}

func printMessage(cmd *cobra.Command, m chat.Message, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	}

	who := "bot"
	if m.IsUser() {
		who = "you"
	}
	fmt.Fprintf(out, "[%s %s] %s\n", m.Timestamp.Local().Format("15:04"), who, m.Text)
	if m.Attachment != nil {
		fmt.Fprintf(out, "  adjunto: %s (%s)\n", m.Attachment.Name, m.Attachment.Type)
	}
	for i, o := range m.Options {
		fmt.Fprintf(out, "  %d) %s\n", i+1, o)
	}
	if m.PaymentLink != "" {
		fmt.Fprintf(out, "  pago: %s %s\n", m.PaymentAmount, m.PaymentLink)
	}
	return nil
}
