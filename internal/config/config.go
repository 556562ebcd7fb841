package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"visa-rescheduler/internal/entity"
)

type Config struct {
	AppConfig       *AppConfig
	BrowserConfig   *BrowserConfig
	ScheduleConfig  *ScheduleConfig
	TimingConfig    *TimingConfig
	NotifierConfig  *NotifierConfig
	PauseConfig     *PauseConfig
	SelectorsConfig *SelectorsConfig
}

type AppConfig struct {
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	Debug        bool   `envconfig:"DEBUG" default:"false"`
	TraceEnabled bool   `envconfig:"TRACE_ENABLED" default:"false"`
}

type BrowserConfig struct {
	Headless          bool          `envconfig:"BROWSER_HEADLESS" default:"true"`
	SlowMo            int           `envconfig:"BROWSER_SLOW_MO" default:"0"`
	StepTimeout       time.Duration `envconfig:"BROWSER_STEP_TIMEOUT" default:"5s"`
	NavigationTimeout time.Duration `envconfig:"BROWSER_NAVIGATION_TIMEOUT" default:"60s"`
	ViewportWidth     int           `envconfig:"BROWSER_VIEWPORT_WIDTH" default:"2078"`
	ViewportHeight    int           `envconfig:"BROWSER_VIEWPORT_HEIGHT" default:"1479"`
	UserAgent         string        `envconfig:"BROWSER_USER_AGENT" default:"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36"`
	SkipInstall       bool          `envconfig:"BROWSER_SKIP_INSTALL" default:"false"`
}

type ScheduleConfig struct {
	Username         string        `envconfig:"SCHEDULE_USERNAME"`
	Password         string        `envconfig:"SCHEDULE_PASSWORD"`
	AppointmentID    string        `envconfig:"SCHEDULE_APPOINTMENT_ID"`
	FacilityID       string        `envconfig:"SCHEDULE_FACILITY_ID"`
	CutoffDate       string        `envconfig:"SCHEDULE_CUTOFF_DATE"`
	RetryInterval    time.Duration `envconfig:"SCHEDULE_RETRY_INTERVAL" default:"60s"`
	GroupAppointment bool          `envconfig:"SCHEDULE_GROUP_APPOINTMENT" default:"false"`
	Region           string        `envconfig:"SCHEDULE_REGION" default:"ca"`
	BaseURL          string        `envconfig:"SCHEDULE_BASE_URL" default:"https://ais.usvisa-info.com"`

	Cutoff time.Time `ignored:"true"`
}

type TimingConfig struct {
	CalendarScanTimeout time.Duration `envconfig:"CALENDAR_SCAN_TIMEOUT" default:"100ms"`
	CalendarMaxAdvances int           `envconfig:"CALENDAR_MAX_ADVANCES" default:"36"`
	SettleDelay         time.Duration `envconfig:"SETTLE_DELAY" default:"100ms"`
	SubmitSettleDelay   time.Duration `envconfig:"SUBMIT_SETTLE_DELAY" default:"1s"`
	ConfirmSettleDelay  time.Duration `envconfig:"CONFIRM_SETTLE_DELAY" default:"5s"`
}

type NotifierConfig struct {
	TelegramToken  string        `envconfig:"TELEGRAM_TOKEN"`
	TelegramChatID string        `envconfig:"TELEGRAM_CHAT_ID"`
	TelegramAPIURL string        `envconfig:"TELEGRAM_API_URL" default:"https://api.telegram.org"`
	Timeout        time.Duration `envconfig:"TELEGRAM_TIMEOUT" default:"10s"`
}

type PauseConfig struct {
	Path string `envconfig:"PAUSE_FILE" default:"PAUSE"`
}

type SelectorsConfig struct {
	// Path overrides the embedded selector catalogue when set.
	Path string `envconfig:"SELECTORS_FILE"`
}

func GetConfig() (*Config, error) {
	_ = godotenv.Load()

	var conf Config

	if err := envconfig.Process("", &conf); err != nil {
		return nil, fmt.Errorf("read config from env vars: %w", err)
	}

	return &conf, nil
}

// Validate checks the fields the workflow cannot run without and parses the
// cutoff date.
func (c *Config) Validate() error {
	s := c.ScheduleConfig

	var missing []string

	for name, v := range map[string]string{
		"username":       s.Username,
		"password":       s.Password,
		"appointment id": s.AppointmentID,
		"facility id":    s.FacilityID,
		"cutoff date":    s.CutoffDate,
		"region":         s.Region,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		slices.Sort(missing)

		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}

	cutoff, err := time.Parse(entity.DateLayout, s.CutoffDate)
	if err != nil {
		return fmt.Errorf("parse cutoff date %q: %w", s.CutoffDate, err)
	}

	s.Cutoff = cutoff

	if s.RetryInterval < 0 {
		return errors.New("retry interval must not be negative")
	}

	if c.TimingConfig.CalendarMaxAdvances <= 0 {
		return errors.New("calendar max advances must be positive")
	}

	return nil
}

func (c *Config) Identity() entity.Identity {
	return entity.Identity{
		Username: c.ScheduleConfig.Username,
		Password: c.ScheduleConfig.Password,
	}
}

func (c *Config) Window() entity.AppointmentWindow {
	return entity.AppointmentWindow{
		FacilityID:    c.ScheduleConfig.FacilityID,
		AppointmentID: c.ScheduleConfig.AppointmentID,
		Region:        c.ScheduleConfig.Region,
		Cutoff:        c.ScheduleConfig.Cutoff,
	}
}
