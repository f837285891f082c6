package main

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-assistant/data"
	"github.com/goliatone/go-errors"
)

// ScriptsCmd groups the script tooling.
type ScriptsCmd struct {
	List     ScriptsListCmd     `cmd:"" default:"withargs" help:"List scripts and canned responses."`
	Validate ScriptsValidateCmd `cmd:"" help:"Validate scripts and report ignored references."`
}

// ScriptsListCmd prints the loaded scripts.
type ScriptsListCmd struct {
	Dir string `help:"Read scripts from this directory instead of script.dir." type:"existingdir"`
}

func (c *ScriptsListCmd) Run(g *globals) error {
	dir := firstNonEmpty(c.Dir, g.cfg.Script.Dir)
	repo, err := loadScripts(dir)
	if err != nil {
		return err
	}
	if dir == "" {
		fmt.Fprintf(g.out, "source: embedded (%s)\n", strings.Join(data.ScriptFiles(), ", "))
	} else {
		fmt.Fprintf(g.out, "source: %s\n", dir)
	}
	for _, name := range repo.Names() {
		s, err := repo.Lookup(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(g.out, "%-20s option=%-10s steps=%-3d %s\n", s.ID, s.Option, s.Len(), s.Title)
	}
	canned := repo.CannedIDs()
	fmt.Fprintf(g.out, "canned responses: %d\n", len(canned))
	for _, id := range canned {
		fmt.Fprintf(g.out, "  %s\n", id)
	}
	if _, ok := repo.Opening(); ok {
		fmt.Fprintln(g.out, "opening: yes")
	}
	return nil
}

// ScriptsValidateCmd loads and checks every script.
type ScriptsValidateCmd struct {
	Dir    string `help:"Read scripts from this directory instead of script.dir." type:"existingdir"`
	Strict bool   `help:"Treat lint warnings as errors."`
}

func (c *ScriptsValidateCmd) Run(g *globals) error {
	repo, err := loadScripts(firstNonEmpty(c.Dir, g.cfg.Script.Dir))
	if err != nil {
		return err
	}
	var failed []string
	warnings := 0
	for _, name := range repo.Names() {
		s, err := repo.Lookup(name)
		if err != nil {
			return err
		}
		if err := s.Validate(); err != nil {
			fmt.Fprintf(g.out, "%s: invalid: %v\n", name, err)
			failed = append(failed, name)
			continue
		}
		lint := s.Lint()
		for _, w := range lint {
			fmt.Fprintf(g.out, "%s: warning: %s\n", name, w)
		}
		warnings += len(lint)
		if c.Strict && len(lint) > 0 {
			failed = append(failed, name)
			continue
		}
		fmt.Fprintf(g.out, "%s: ok (%d steps)\n", name, s.Len())
	}
	if len(failed) > 0 {
		return errors.New("script validation failed", errors.CategoryValidation).
			WithMetadata(map[string]any{"scripts": strings.Join(failed, ","), "warnings": warnings})
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
