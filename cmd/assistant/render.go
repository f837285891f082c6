package main

import (
	"fmt"
	"os"

	"github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/ui"
	"github.com/goliatone/go-assistant/ui/text"
	"github.com/goliatone/go-errors"
)

// RenderCmd renders a descriptor file to the terminal.
type RenderCmd struct {
	File   string `arg:"" help:"JSON component descriptor." type:"existingfile"`
	Width  int    `help:"Wrap width, 0 disables wrapping." default:"100"`
	Strict bool   `help:"Drop nodes whose props fail their schema."`
}

func (c *RenderCmd) Run(g *globals) error {
	raw, err := os.ReadFile(c.File)
	if err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "read descriptor").
			WithMetadata(map[string]any{"path": c.File})
	}
	component, err := assistant.ParseComponent(raw)
	if err != nil {
		return err
	}

	renderer := ui.NewRenderer(
		ui.WithLogger(g.logger),
		ui.WithMaxDepth(g.cfg.Render.MaxDepth),
		ui.WithStrictProps(c.Strict || g.cfg.Render.Strict),
	)
	node := renderer.Render(component, assistant.NopActionSink)
	if node == nil {
		fmt.Fprintf(g.out, "nothing to render for type %q\n", component.Type)
		return nil
	}
	fmt.Fprintln(g.out, text.NewPrinter(c.Width).Print(node))
	return nil
}
