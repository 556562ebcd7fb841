package browser

import (
	"context"

	"github.com/playwright-community/playwright-go"

	"visa-rescheduler/internal/entity"
	"visa-rescheduler/internal/ports"
)

type element struct {
	handle playwright.ElementHandle
}

func (e *element) QuerySelector(ctx context.Context, selector string) (ports.Element, error) {
	h, err := e.handle.QuerySelector(selector)
	if err != nil {
		return nil, err
	}

	if h == nil {
		return nil, nil
	}

	return &element{handle: h}, nil
}

func (e *element) ShadowScope(ctx context.Context) (ports.Scope, error) {
	js, err := e.handle.EvaluateHandle(shadowScopeScript)
	if err != nil {
		return nil, err
	}

	if h := js.AsElement(); h != nil {
		return &element{handle: h}, nil
	}

	return e, nil
}

func (e *element) IsVisible(ctx context.Context) (bool, error) {
	return e.handle.IsVisible()
}

func (e *element) IsConnected(ctx context.Context) (bool, error) {
	prop, err := e.handle.GetProperty("isConnected")
	if err != nil {
		return false, err
	}

	v, err := prop.JSONValue()
	if err != nil {
		return false, err
	}

	connected, _ := v.(bool)

	return connected, nil
}

func (e *element) IsInViewport(ctx context.Context) (bool, error) {
	return e.evalBool(inViewportScript)
}

func (e *element) ScrollIntoCenter(ctx context.Context) error {
	_, err := e.handle.Evaluate(scrollIntoCenterScript)

	return err
}

func (e *element) Click(ctx context.Context, offset *entity.Offset) error {
	opts := playwright.ElementHandleClickOptions{}
	if offset != nil {
		opts.Position = &playwright.Position{X: offset.X, Y: offset.Y}
	}

	return e.handle.Click(opts)
}

func (e *element) Focus(ctx context.Context) error {
	return e.handle.Focus()
}

func (e *element) Type(ctx context.Context, text string) error {
	return e.handle.Type(text)
}

func (e *element) InputType(ctx context.Context) (string, error) {
	v, err := e.handle.Evaluate(inputTypeScript)
	if err != nil {
		return "", err
	}

	s, _ := v.(string)

	return s, nil
}

func (e *element) SetValue(ctx context.Context, value string) error {
	_, err := e.handle.Evaluate(setValueScript, value)

	return err
}

func (e *element) Text(ctx context.Context) (string, error) {
	return e.handle.TextContent()
}

func (e *element) ParentAttribute(ctx context.Context, name string) (string, error) {
	v, err := e.handle.Evaluate(parentAttributeScript, name)
	if err != nil {
		return "", err
	}

	s, _ := v.(string)

	return s, nil
}

func (e *element) evalBool(script string) (bool, error) {
	v, err := e.handle.Evaluate(script)
	if err != nil {
		return false, err
	}

	b, _ := v.(bool)

	return b, nil
}
