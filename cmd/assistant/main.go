// Command assistant runs the console assistant demo: an HTTP API, a terminal
// REPL and script tooling.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/config"
)

// CLI is the kong command tree.
type CLI struct {
	Config   string `help:"YAML config file." type:"path" short:"c" env:"ASSISTANT_CONFIG"`
	LogLevel string `help:"Override log.level." name:"log-level"`

	Serve   ServeCmd   `cmd:"" help:"Run the HTTP API."`
	Repl    ReplCmd    `cmd:"" help:"Talk to the assistant in the terminal."`
	Scripts ScriptsCmd `cmd:"" help:"Inspect demo scripts."`
	Render  RenderCmd  `cmd:"" help:"Render a component descriptor file."`
}

// globals is bound into every command's Run.
type globals struct {
	cfg    config.Config
	logger assistant.Logger
	in     io.Reader
	out    io.Writer
}

func (c *CLI) globals(in io.Reader, out, logOut io.Writer) (*globals, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	if c.LogLevel != "" {
		cfg.Log.Level = c.LogLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return &globals{
		cfg:    cfg,
		logger: newLogger(cfg.Log, logOut),
		in:     in,
		out:    out,
	}, nil
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("assistant"),
		kong.Description("Conversational console assistant demo."),
		kong.UsageOnError(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, err := cli.globals(os.Stdin, os.Stdout, os.Stderr)
	kctx.FatalIfErrorf(err)

	kctx.BindTo(ctx, (*context.Context)(nil))
	kctx.FatalIfErrorf(kctx.Run(g))
}
