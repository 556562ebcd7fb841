package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"visa-rescheduler/internal/bootstrap"
	"visa-rescheduler/internal/config"
)

var (
	Version   = "dev"
	CommitSHA = "none"
)

type flags struct {
	username      string
	password      string
	appointmentID string
	facilityID    string
	cutoffDate    string
	retrySeconds  int
	group         bool
	region        string
	telegramToken string
	telegramChat  string
}

func newRootCmd() (*cobra.Command, *flags) {
	f := &flags{}

	root := &cobra.Command{
		Use:           "rescheduler",
		Short:         "Watches the visa appointment site and moves the appointment to an earlier date",
		Version:       fmt.Sprintf("%s (%s)", Version, CommitSHA),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.GetConfig()
			if err != nil {
				return err
			}

			applyFlags(cmd, f, cfg)

			if err := cfg.Validate(); err != nil {
				return err
			}

			bootstrap.NewApp(cfg).Run()

			return nil
		},
	}

	fs := root.Flags()
	fs.StringVarP(&f.username, "username", "u", "", "account email")
	fs.StringVarP(&f.password, "password", "p", "", "account password")
	fs.StringVarP(&f.appointmentID, "appointment", "a", "", "appointment id")
	fs.StringVarP(&f.facilityID, "facility", "c", "", "consular facility id")
	fs.StringVarP(&f.cutoffDate, "date", "d", "", "current appointment date (YYYY-MM-DD); only earlier dates are taken")
	fs.IntVarP(&f.retrySeconds, "retry", "t", 0, "seconds between attempts")
	fs.BoolVarP(&f.group, "group", "g", false, "the appointment is a group appointment")
	fs.StringVarP(&f.region, "region", "r", "", "site region code, e.g. ca")
	fs.StringVarP(&f.telegramToken, "telegram-token", "n", "", "Telegram bot token")
	fs.StringVarP(&f.telegramChat, "telegram-chat", "m", "", "Telegram group id; the leading '-' of group chats is added when missing")

	return root, f
}

// applyFlags overrides env values with the flags the user actually set.
func applyFlags(cmd *cobra.Command, f *flags, cfg *config.Config) {
	changed := cmd.Flags().Changed
	s := cfg.ScheduleConfig

	if changed("username") {
		s.Username = f.username
	}

	if changed("password") {
		s.Password = f.password
	}

	if changed("appointment") {
		s.AppointmentID = f.appointmentID
	}

	if changed("facility") {
		s.FacilityID = f.facilityID
	}

	if changed("date") {
		s.CutoffDate = f.cutoffDate
	}

	if changed("retry") {
		s.RetryInterval = time.Duration(f.retrySeconds) * time.Second
	}

	if changed("group") {
		s.GroupAppointment = f.group
	}

	if changed("region") {
		s.Region = f.region
	}

	if changed("telegram-token") {
		cfg.NotifierConfig.TelegramToken = f.telegramToken
	}

	if changed("telegram-chat") {
		cfg.NotifierConfig.TelegramChatID = groupChatID(f.telegramChat)
	}
}

// groupChatID turns a group id given without its sign into the negative chat
// id the Bot API expects for groups.
func groupChatID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || strings.HasPrefix(id, "-") || strings.HasPrefix(id, "@") {
		return id
	}

	return "-" + id
}

func main() {
	cmd, _ := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
