package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-assistant/ui"
	"github.com/goliatone/go-assistant/ui/text"
	"github.com/goliatone/go-assistant/workflow"
	"github.com/goliatone/go-errors"
)

const replHelp = `commands:
  <text>            send a prompt
  <n>               pick suggestion n
  /next             run the next scripted step (an empty line does the same)
  /start <option>   start create, import or migrate
  /confirm          confirm the pending review
  /action <id>      fire an action by id
  /click <n>        click button n of the rendered components
  /set <field> <v>  change a form field
  /state            show sections, progress and the resource
  /end              end the conversation
  /quit             leave`

// ReplCmd talks to one session in the terminal.
type ReplCmd struct {
	Option    string `help:"Conversation option to start (create, import, migrate)."`
	Auto      bool   `help:"Advance until the next prompt after every input." default:"true" negatable:""`
	Downloads string `help:"Directory for files saved by download buttons." default:"downloads"`
	Width     int    `help:"Wrap width, 0 disables wrapping." default:"100"`
}

func (c *ReplCmd) Run(ctx context.Context, g *globals) error {
	cfg := g.cfg
	cfg.Session.AutoAdvance = c.Auto

	a, err := newApp(cfg, g.logger, withDownloads(newFileDownloader(c.Downloads, g.logger)))
	if err != nil {
		return err
	}
	defer a.Close()

	session, err := a.manager.Create(ctx, c.Option)
	if err != nil {
		return err
	}
	r := newRepl(session, text.NewPrinter(c.Width), g.out)
	return r.run(ctx, g.in)
}

type repl struct {
	session *workflow.Session
	printer *text.Printer
	out     io.Writer
	lastID  string
	buttons []*ui.Node
}

func newRepl(session *workflow.Session, printer *text.Printer, out io.Writer) *repl {
	return &repl{session: session, printer: printer, out: out}
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(r.out, "type /help for commands")
	r.flush()

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}
		quit, err := r.handle(ctx, strings.TrimSpace(scanner.Text()))
		if err != nil {
			fmt.Fprintf(r.out, "error: %s\n", describe(err))
		}
		if quit {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return nil
		}
		r.flush()
	}
}

func (r *repl) handle(ctx context.Context, line string) (bool, error) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		fmt.Fprintln(r.out, replHelp)
		return false, nil
	case "", "/next":
		_, err := r.session.Continue(ctx)
		return false, err
	case "/start":
		_, err := r.session.Start(ctx, arg)
		return false, err
	case "/end":
		r.session.End()
		r.session.Open()
		return false, nil
	case "/confirm":
		return false, r.confirm(ctx)
	case "/action":
		_, err := r.session.Action(ctx, workflow.ActionRequest{ID: arg})
		return false, err
	case "/click":
		return false, r.click(ctx, arg)
	case "/set":
		field, value, ok := strings.Cut(arg, " ")
		if !ok || field == "" {
			return false, errors.New("usage: /set <field> <value>", errors.CategoryBadInput)
		}
		r.session.SetFormValue(field, strings.TrimSpace(value))
		return false, nil
	case "/state":
		r.printState()
		return false, nil
	}

	if strings.HasPrefix(cmd, "/") {
		return false, errors.New("unknown command "+cmd, errors.CategoryBadInput)
	}

	prompt := workflow.Prompt{Text: line}
	if n, err := strconv.Atoi(line); err == nil {
		offered := r.session.Snapshot().Suggestions
		if n < 1 || n > len(offered) {
			return false, errors.New("no suggestion "+line, errors.CategoryBadInput)
		}
		prompt = workflow.Prompt{SuggestionID: offered[n-1].ID}
	}
	_, err := r.session.Submit(ctx, prompt)
	return false, err
}

func (r *repl) confirm(ctx context.Context) error {
	snap := r.session.Snapshot()
	for i := len(snap.Messages) - 1; i >= 0; i-- {
		msg := snap.Messages[i]
		if msg.RequiresConfirmation && !r.session.Confirmed(msg.ID) {
			_, err := r.session.Confirm(ctx, msg.ID)
			return err
		}
	}
	return errors.New("nothing to confirm", errors.CategoryBadInput)
}

func (r *repl) click(ctx context.Context, arg string) error {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(r.buttons) {
		return errors.New("no button "+arg, errors.CategoryBadInput)
	}
	return r.buttons[n-1].Click(ctx)
}

// flush prints messages added since the last call, then the buttons and
// suggestions on offer.
func (r *repl) flush() {
	snap := r.session.Snapshot()
	start := 0
	if r.lastID != "" {
		start = -1
		for i, msg := range snap.Messages {
			if msg.ID == r.lastID {
				start = i + 1
				break
			}
		}
		if start < 0 {
			// the conversation was reset
			start = 0
			r.buttons = nil
		}
	}
	for _, msg := range snap.Messages[start:] {
		node := r.session.Render(msg)
		fmt.Fprintln(r.out, r.printer.PrintMessage(msg, node))
		r.collectButtons(node)
		r.lastID = msg.ID
	}

	for i, s := range snap.Suggestions {
		fmt.Fprintf(r.out, "  %d) %s\n", i+1, s.Text)
	}
}

func (r *repl) collectButtons(node *ui.Node) {
	node.Walk(func(n *ui.Node) bool {
		if _, ok := n.Props[ui.PropOnClick].(ui.ClickHandler); ok {
			r.buttons = append(r.buttons, n)
			fmt.Fprintf(r.out, "  /click %d  %s\n", len(r.buttons), n.Text())
		}
		return true
	})
}

func (r *repl) printState() {
	snap := r.session.Snapshot()
	fmt.Fprintf(r.out, "path=%s view=%s progress=%d/%d\n", snap.Path, snap.View, snap.Progress, len(snap.Steps))
	for _, step := range snap.Steps {
		fmt.Fprintf(r.out, "  step %-14s %s\n", step.ID, step.Status)
	}
	for _, section := range snap.Sections {
		fmt.Fprintf(r.out, "  %-24s %s\n", section.Title, section.Status)
		for _, k := range sortedKeys(section.Values) {
			fmt.Fprintf(r.out, "    %s: %s\n", k, section.Values[k])
		}
	}
	if res := snap.Resource; res != nil {
		fmt.Fprintf(r.out, "resource %s (%s) %s\n", res.Name, res.Type, res.Status)
	}
	if len(snap.Form) > 0 {
		fmt.Fprintf(r.out, "form %v\n", snap.Form)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// describe returns the message of a go-errors error without its category
// prefix.
func describe(err error) string {
	var ge *errors.Error
	if errors.As(err, &ge) {
		return ge.Message
	}
	return err.Error()
}
