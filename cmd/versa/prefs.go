package main

import (
	"context"
	"flag"
	"fmt"
)

type prefsCmd struct {
	*env
	fs      *flag.FlagSet
	lang    string
	quality string
	compare string
}

func parsePrefsCmd(args []string, e *env) (*prefsCmd, error) {
	cmd := &prefsCmd{env: e, fs: newFlagSet("prefs", e)}
	cmd.fs.StringVar(&cmd.lang, "lang", "", "interface language (en or ar)")
	cmd.fs.StringVar(&cmd.quality, "quality", "", "default quality: standard, high or ultra")
	cmd.fs.StringVar(&cmd.compare, "compare", "", "default comparison: slider, stacked or toggle")
	if err := cmd.fs.Parse(args); err != nil {
		return nil, err
	}
	if cmd.fs.NArg() > 0 {
		return nil, &UsageError{msg: fmt.Sprintf("prefs: unexpected argument %q", cmd.fs.Arg(0))}
	}
	return cmd, nil
}

func (c *prefsCmd) Run(ctx context.Context) error {
	if c.lang != "" {
		if err := c.prefs.SetLanguage(ctx, c.lang); err != nil {
			return fmt.Errorf("set language: %w", err)
		}
	}
	if c.quality != "" {
		if err := c.prefs.SetQuality(ctx, c.quality); err != nil {
			return fmt.Errorf("set quality: %w", err)
		}
	}
	if c.compare != "" {
		if err := c.prefs.SetCompareMode(ctx, c.compare); err != nil {
			return fmt.Errorf("set comparison mode: %w", err)
		}
	}
	p := c.prefs.Get()
	fmt.Fprintf(c.stdout, "language\t%s\nquality\t%s\ncompare\t%s\n", p.Language, p.Quality, p.CompareMode)
	return nil
}
