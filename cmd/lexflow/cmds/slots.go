package cmds

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/lexflow/pkg/booking"
)

func newSlotsCommand() *cobra.Command {
	var date string
	var days int

	cmd := &cobra.Command{
		Use:   "slots",
		Short: "List free appointment slots",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := NewApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			client := app.Booking()
			if client == nil {
				client = booking.NewClient(app.Tenant.WebhookURL, app.Tenant.BusinessHours, app.HTTPClient)
			}

			var dates []time.Time
			if strings.TrimSpace(date) != "" {
				d, err := booking.ParseDate(date, time.Local)
				if err != nil {
					return err
				}
				dates = []time.Time{d}
			} else {
				dates = booking.Window(timeNow(), days)
			}

			sid := app.Manager.Session().SessionID
			out := cmd.OutOrStdout()
			for _, d := range dates {
				if !client.Hours.IsBusinessDay(d) {
					continue
				}
				slots, err := client.Availability(ctx, d, sid)
				if err != nil {
					return errors.Wrapf(err, "availability for %s", booking.FormatDate(d))
				}
				free := make([]string, 0, len(slots))
				for _, s := range slots {
					if s.Available {
						free = append(free, s.Time)
					}
				}
				fmt.Fprintf(out, "%s %s: %s\n", d.Format("Mon"), booking.FormatDate(d), strings.Join(free, " "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Date to query (YYYY-MM-DD); defaults to the booking window")
	cmd.Flags().IntVar(&days, "days", booking.WindowDays, "Number of days in the booking window")
	return cmd
}

func newAbandonCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "abandon",
		Short: "Send the abandonment beacon for the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			return app.SendAbandon(cmd.Context())
		},
	}
}
