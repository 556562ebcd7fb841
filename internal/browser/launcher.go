package browser

import (
	"context"
	"sync"

	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"visa-rescheduler/internal/config"
	"visa-rescheduler/internal/ports"
	"visa-rescheduler/pkg/apperr"
	"visa-rescheduler/pkg/logg"
	"visa-rescheduler/pkg/tracing"
)

const (
	launcherName  = "BrowserLauncher"
	browserTracer = "browser.launcher"
)

// Launcher owns the Playwright driver process and hands out one fresh
// browser per attempt.
type Launcher struct {
	config *config.Config
	logger *zap.Logger
	tracer trace.Tracer

	mu         sync.Mutex
	playwright *playwright.Playwright
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewLauncher(params Params) *Launcher {
	return &Launcher{
		config: params.Config,
		logger: params.Logger.With(zap.String(logg.Layer, launcherName)),
		tracer: otel.Tracer(browserTracer),
	}
}

// Start installs (unless disabled) and runs the Playwright driver.
func (l *Launcher) Start(ctx context.Context) (err error) {
	const op = "Start"
	logger := l.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, l.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.playwright != nil {
		return nil
	}

	if !l.config.BrowserConfig.SkipInstall {
		step.AddEvent("installing playwright")

		if err = playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
				apperr.MetaReason: "playwright_install_failed",
				apperr.MetaStage:  apperr.StageBrowser,
			})
		}
	}

	step.AddEvent("starting playwright")

	pw, err := playwright.Run()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_start_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	l.playwright = pw
	logger.Info("Playwright driver started")

	return nil
}

func (l *Launcher) Stop(ctx context.Context) error {
	const op = "Stop"
	logger := l.logger.With(zap.String(logg.Operation, op))

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.playwright == nil {
		return nil
	}

	err := l.playwright.Stop()
	l.playwright = nil

	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_stop_failed",
		})
	}

	logger.Info("Playwright driver stopped")

	return nil
}

// Launch starts a new headless Chromium with its own browser context.
func (l *Launcher) Launch(ctx context.Context) (_ ports.Session, err error) {
	const op = "Launch"
	logger := l.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, l.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	l.mu.Lock()
	pw := l.playwright
	l.mu.Unlock()

	if pw == nil {
		return nil, apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "driver_not_started")
	}

	bc := l.config.BrowserConfig

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(bc.Headless),
		SlowMo:   playwright.Float(float64(bc.SlowMo)),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
		},
	})
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "browser_launch_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	browserContext, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  bc.ViewportWidth,
			Height: bc.ViewportHeight,
		},
		UserAgent:         playwright.String(bc.UserAgent),
		JavaScriptEnabled: playwright.Bool(true),
	})
	if err != nil {
		if cerr := browser.Close(); cerr != nil {
			logger.Warn("Failed to close browser after context error", zap.Error(cerr))
		}

		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "context_create_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	logger.Debug("Browser launched")

	return &session{
		config:         l.config,
		logger:         l.logger,
		browser:        browser,
		browserContext: browserContext,
	}, nil
}
