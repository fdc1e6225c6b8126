package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"stickyboard/models"
	"stickyboard/reminder"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cleanupDays int

var remindCmd = &cobra.Command{
	Use:     "remind",
	Aliases: []string{"reminders"},
	Short:   "Schedule note reminders and watch for them",
}

func reminders(opts ...reminder.Option) *reminder.Service {
	base := []reminder.Option{
		reminder.WithInterval(rt.cfg.Reminder.Interval),
		reminder.WithInitialDelay(rt.cfg.Reminder.InitialDelay),
		reminder.WithLogger(rt.log),
	}
	return reminder.New(rt.store, append(base, opts...)...)
}

var remindSetCmd = &cobra.Command{
	Use:   "set <note-id> <when>",
	Short: "Set or move a note's reminder",
	Long: `Set or move a note's reminder. <when> is an RFC 3339 timestamp,
a local "2006-01-02 15:04" time, or a duration from now such as 90m or +2h.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		at, err := parseWhen(strings.Join(args[1:], " "), time.Now())
		if err != nil {
			return err
		}
		if err := rt.requireLogin(); err != nil {
			return err
		}
		if _, err := rt.api.GetNote(ctx, id); err != nil {
			return describe(err)
		}
		if err := reminders().Set(ctx, id, at); err != nil {
			return err
		}
		return rt.printer().message("Reminder for note %d set to %s", id, at.Local().Format("2006-01-02 15:04"))
	},
}

var remindRemoveCmd = &cobra.Command{
	Use:     "remove <note-id>",
	Aliases: []string{"rm"},
	Short:   "Drop a note's reminder",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := reminders().Remove(cmd.Context(), id); err != nil {
			return err
		}
		return rt.printer().message("Reminder for note %d removed", id)
	},
}

var remindResetCmd = &cobra.Command{
	Use:   "reset <note-id>",
	Short: "Re-arm a reminder that already went off",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := reminders().Reset(cmd.Context(), id); err != nil {
			return err
		}
		return rt.printer().message("Reminder for note %d re-armed", id)
	},
}

var remindListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored reminders",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := reminders().List(cmd.Context())
		if err != nil {
			return err
		}
		return rt.printer().reminders(records)
	},
}

var remindCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Forget reminders that went off more than --days ago",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		days := cleanupDays
		if !cmd.Flags().Changed("days") {
			days = rt.cfg.Reminder.CleanupDays
		}
		n, err := reminders().Cleanup(cmd.Context(), days)
		if err != nil {
			return err
		}
		return rt.printer().message("Removed %d reminders", n)
	},
}

var remindWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stay in the foreground and raise reminders as they come due",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// a fresh mirror lets reminders on notes edited elsewhere fire with current titles
		if rt.api.Token() != "" {
			if _, err := rt.holder(cmd, 0); err != nil {
				rt.log.Warn("could not refresh notes mirror", zap.Error(err))
			}
		}

		svc := reminders(reminder.WithNotifier(reminder.NotifierFunc(alert)))
		if n, err := svc.Cleanup(ctx, rt.cfg.Reminder.CleanupDays); err != nil {
			rt.log.Warn("reminder cleanup failed", zap.Error(err))
		} else if n > 0 {
			rt.log.Debug("cleaned up reminders", zap.Int("count", n))
		}

		fmt.Fprintln(rt.out, rt.theme.Styles().Muted.Render("Watching for reminders, Ctrl+C to stop"))
		return svc.Run(ctx)
	},
}

// alert prints the reminder banner; a terminal bell goes with it.
func alert(_ context.Context, note models.Note) error {
	_, err := fmt.Fprintf(rt.out, "\a%s\n", rt.theme.Styles().ReminderAlert(note.Title))
	return err
}

// parseWhen accepts an absolute timestamp or an offset from now.
func parseWhen(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(strings.TrimPrefix(s, "+")); err == nil {
		if d <= 0 {
			return time.Time{}, fmt.Errorf("offset %q must be positive", s)
		}
		return now.Add(d), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot read %q as a time or duration", s)
}

func init() {
	rootCmd.AddCommand(remindCmd)
	remindCleanupCmd.Flags().IntVar(&cleanupDays, "days", reminder.DefaultCleanupDays, "age in days of triggered reminders to drop")
	remindCmd.AddCommand(remindSetCmd, remindRemoveCmd, remindResetCmd, remindListCmd, remindCleanupCmd, remindWatchCmd)
}
