// Command versa runs selection-scoped image transforms against the Versa
// service or the in-process filter engine.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/Knouxai/Knoux-versa-sub002/internal/i18n"
	"github.com/Knouxai/Knoux-versa-sub002/internal/infra"
)

type runnable interface{ Run(ctx context.Context) error }

// env is what every subcommand shares.
type env struct {
	cfg    *infra.ClientConfig
	logger infra.Logger
	prefs  *i18n.Preferences
	stdout io.Writer
	stderr io.Writer
}

// UsageError reports bad command line input.
type UsageError struct{ msg string }

func (e *UsageError) Error() string { return e.msg }

func usage(w io.Writer) {
	fmt.Fprint(w, `usage: versa <command> [flags]

commands:
  tools       list the available tools
  vip         exchange a VIP key for a session token
  transform   run a transform on an image
  prefs       show or change language, quality and comparison defaults
`)
}

func main() {
	_ = godotenv.Load()
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		var ue *UsageError
		if errors.As(err, &ue) {
			fmt.Fprintln(os.Stderr, ue.msg)
			usage(os.Stderr)
			os.Exit(2)
		}
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return &UsageError{msg: "missing command"}
	}
	cfg, err := infra.LoadClientConfig()
	if err != nil {
		return err
	}
	prefs, err := i18n.LoadPreferences(ctx, i18n.NewFileStore(cfg.PrefsPath))
	if err != nil {
		return fmt.Errorf("load preferences: %w", err)
	}
	e := &env{
		cfg:    cfg,
		logger: infra.NewConsoleLogger(stderr, cfg.LogLevel),
		prefs:  prefs,
		stdout: stdout,
		stderr: stderr,
	}

	var cmd runnable
	switch name := strings.ToLower(args[0]); name {
	case "tools":
		cmd, err = parseToolsCmd(args[1:], e)
	case "vip":
		cmd, err = parseVIPCmd(args[1:], e)
	case "transform":
		cmd, err = parseTransformCmd(args[1:], e)
	case "prefs":
		cmd, err = parsePrefsCmd(args[1:], e)
	case "help", "-h", "-help", "--help":
		usage(stdout)
		return nil
	default:
		return &UsageError{msg: fmt.Sprintf("unknown command %q", name)}
	}
	if err != nil {
		return err
	}
	return cmd.Run(ctx)
}

func (e *env) httpClient() *http.Client {
	return &http.Client{}
}

func newFlagSet(name string, e *env) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}
