package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/Knouxai/Knoux-versa-sub002/internal/domain"
	"github.com/Knouxai/Knoux-versa-sub002/internal/execution"
	"github.com/Knouxai/Knoux-versa-sub002/internal/transform"
)

type toolsCmd struct {
	*env
	fs     *flag.FlagSet
	local  bool
	asJSON bool
	apiURL string
}

func parseToolsCmd(args []string, e *env) (*toolsCmd, error) {
	cmd := &toolsCmd{env: e, fs: newFlagSet("tools", e)}
	cmd.fs.BoolVar(&cmd.local, "local", false, "list the built-in catalog instead of asking the service")
	cmd.fs.BoolVar(&cmd.asJSON, "json", false, "print the catalog as JSON")
	cmd.fs.StringVar(&cmd.apiURL, "api", e.cfg.APIURL, "service base URL")
	if err := cmd.fs.Parse(args); err != nil {
		return nil, err
	}
	return cmd, nil
}

func (c *toolsCmd) Run(ctx context.Context) error {
	var catalog domain.CatalogResponse
	if c.local {
		catalog = transform.DefaultCatalog().Response()
	} else {
		t, err := execution.NewHTTPTransport(execution.HTTPOptions{
			BaseURL:        c.apiURL,
			HTTPClient:     c.httpClient(),
			RequestTimeout: c.cfg.RequestTimeout,
			Logger:         &c.logger,
		})
		if err != nil {
			return err
		}
		if catalog, err = t.Catalog(ctx); err != nil {
			return fmt.Errorf("%s", c.prefs.Localizer().Message(err))
		}
	}
	if c.asJSON {
		enc := json.NewEncoder(c.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(catalog)
	}
	return printCatalog(c.env, catalog)
}

func printCatalog(e *env, catalog domain.CatalogResponse) error {
	arabic := e.prefs.Localizer().RTL()
	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tNEEDS")
	for _, t := range catalog.Tools {
		name := t.Name
		if arabic && t.NameAR != "" {
			name = t.NameAR
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, name, t.Category, needs(t))
	}
	return tw.Flush()
}

func needs(t domain.Tool) string {
	var parts []string
	if t.RequiresPrompt {
		parts = append(parts, "prompt")
	}
	if t.RequiresSelection {
		parts = append(parts, "selection")
	}
	if t.RequiresSecondImage {
		parts = append(parts, "second image")
	}
	if t.VIPOnly {
		parts = append(parts, "vip")
	}
	for _, s := range t.Settings {
		parts = append(parts, "-set "+s.Key)
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

type vipCmd struct {
	*env
	fs     *flag.FlagSet
	key    string
	apiURL string
}

func parseVIPCmd(args []string, e *env) (*vipCmd, error) {
	cmd := &vipCmd{env: e, fs: newFlagSet("vip", e)}
	cmd.fs.StringVar(&cmd.key, "key", "", "VIP key to exchange")
	cmd.fs.StringVar(&cmd.apiURL, "api", e.cfg.APIURL, "service base URL")
	if err := cmd.fs.Parse(args); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cmd.key) == "" {
		return nil, &UsageError{msg: "vip: -key is required"}
	}
	return cmd, nil
}

func (c *vipCmd) Run(ctx context.Context) error {
	t, err := execution.NewHTTPTransport(execution.HTTPOptions{
		BaseURL:        c.apiURL,
		HTTPClient:     c.httpClient(),
		RequestTimeout: c.cfg.RequestTimeout,
		Logger:         &c.logger,
	})
	if err != nil {
		return err
	}
	token, err := t.AuthenticateVIP(ctx, c.key)
	if err != nil {
		var remote *execution.RemoteError
		if errors.As(err, &remote) && remote.Message != "" {
			return fmt.Errorf("%s", remote.Message)
		}
		return fmt.Errorf("%s", c.prefs.Localizer().Message(err))
	}
	fmt.Fprintln(c.stdout, token)
	return nil
}
