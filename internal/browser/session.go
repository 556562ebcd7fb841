package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"visa-rescheduler/internal/config"
	"visa-rescheduler/internal/entity"
	"visa-rescheduler/internal/ports"
	"visa-rescheduler/pkg/apperr"
)

type session struct {
	config         *config.Config
	logger         *zap.Logger
	browser        playwright.Browser
	browserContext playwright.BrowserContext
}

func (s *session) NewPage(ctx context.Context) (ports.Page, error) {
	const op = "NewPage"

	p, err := s.browserContext.NewPage()
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "page_create_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	p.SetDefaultTimeout(float64(s.config.BrowserConfig.StepTimeout.Milliseconds()))
	p.SetDefaultNavigationTimeout(float64(s.config.BrowserConfig.NavigationTimeout.Milliseconds()))

	return &page{page: p, config: s.config}, nil
}

// Close closes every open page, then the context and the browser. All
// failures are collected; none stops the remaining teardown.
func (s *session) Close(ctx context.Context) error {
	const op = "CloseSession"

	var errs []error

	for _, p := range s.browserContext.Pages() {
		if p.IsClosed() {
			continue
		}

		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close page: %w", err))
		}
	}

	if err := s.browserContext.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close context: %w", err))
	}

	if err := s.browser.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close browser: %w", err))
	}

	if len(errs) > 0 {
		return apperr.Wrap(op, apperr.CodeInternal, errors.Join(errs...), map[string]any{
			apperr.MetaReason: "session_close_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	return nil
}

type page struct {
	page   playwright.Page
	config *config.Config
}

func (p *page) QuerySelector(ctx context.Context, selector string) (ports.Element, error) {
	h, err := p.page.QuerySelector(selector)
	if err != nil {
		return nil, err
	}

	if h == nil {
		return nil, nil
	}

	return &element{handle: h}, nil
}

func (p *page) Goto(ctx context.Context, url string) (*entity.PageResponse, error) {
	const op = "Goto"

	resp, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "goto_failed",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    url,
		})
	}

	out := &entity.PageResponse{URL: url}
	if resp == nil {
		return out, nil
	}

	out.Status = resp.Status()

	body, err := resp.Body()
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "read_body_failed",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    url,
		})
	}

	out.Body = body

	return out, nil
}

func (p *page) SetExtraHTTPHeaders(ctx context.Context, headers map[string]string) error {
	return p.page.SetExtraHTTPHeaders(headers)
}

func (p *page) SelectOption(ctx context.Context, selector, value string) error {
	_, err := p.page.SelectOption(selector, playwright.SelectOptionValues{Values: &[]string{value}})

	return err
}

func (p *page) ChooseOptionAt(ctx context.Context, selector string, index int) error {
	res, err := p.page.Evaluate(chooseOptionScript, map[string]any{
		"selector": selector,
		"index":    index,
	})
	if err != nil {
		return err
	}

	if ok, _ := res.(bool); !ok {
		return fmt.Errorf("no option %d in %s", index, selector)
	}

	return nil
}

func (p *page) PressKey(ctx context.Context, key string) error {
	kb := p.page.Keyboard()
	if err := kb.Down(key); err != nil {
		return err
	}

	return kb.Up(key)
}

func (p *page) ClickAndWaitForNavigation(ctx context.Context, el ports.Element, offset *entity.Offset) error {
	_, err := p.page.ExpectNavigation(func() error {
		return el.Click(ctx, offset)
	})

	return err
}
