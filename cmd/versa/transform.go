package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/Knouxai/Knoux-versa-sub002/internal/execution"
	"github.com/Knouxai/Knoux-versa-sub002/internal/i18n"
	"github.com/Knouxai/Knoux-versa-sub002/internal/present"
	"github.com/Knouxai/Knoux-versa-sub002/internal/selection"
	"github.com/Knouxai/Knoux-versa-sub002/internal/storage"
	"github.com/Knouxai/Knoux-versa-sub002/internal/transform"
)

// settingFlags collects repeated -set key=value pairs.
type settingFlags map[string]any

func (s settingFlags) String() string {
	parts := make([]string, 0, len(s))
	for k, v := range s {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(parts, ",")
}

func (s settingFlags) Set(v string) error {
	key, value, ok := strings.Cut(v, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return fmt.Errorf("expected key=value, got %q", v)
	}
	s[key] = value
	return nil
}

type transformCmd struct {
	*env
	fs *flag.FlagSet

	in, second, tool, prompt string
	quality, vipToken        string
	settings                 settingFlags
	gesture                  *gesture
	local                    bool
	apiURL                   string

	outDir   string
	compare  string
	position float64
	archive  string
	overlay  string
	mask     string
}

func parseTransformCmd(args []string, e *env) (*transformCmd, error) {
	prefs := e.prefs.Get()
	cmd := &transformCmd{env: e, fs: newFlagSet("transform", e), settings: settingFlags{}}
	var rect, circle, brush string
	cmd.fs.StringVar(&cmd.in, "in", "", "input image `path` (required)")
	cmd.fs.StringVar(&cmd.second, "second", "", "second image path for tools that blend two images")
	cmd.fs.StringVar(&cmd.tool, "tool", "", "tool id (required)")
	cmd.fs.StringVar(&cmd.prompt, "prompt", "", "prompt text")
	cmd.fs.StringVar(&rect, "rect", "", "rectangle selection `x,y,w,h` in image pixels")
	cmd.fs.StringVar(&circle, "circle", "", "circle selection `cx,cy,r` in image pixels")
	cmd.fs.StringVar(&brush, "brush", "", "brush stroke `x,y;x,y;...` in image pixels")
	cmd.fs.StringVar(&cmd.quality, "quality", string(prefs.Quality), "standard, high or ultra")
	cmd.fs.StringVar(&cmd.vipToken, "vip-token", os.Getenv("VERSA_VIP_TOKEN"), "VIP session token")
	cmd.fs.Var(cmd.settings, "set", "tool setting `key=value` (repeatable)")
	cmd.fs.BoolVar(&cmd.local, "local", false, "run in-process instead of calling the service")
	cmd.fs.StringVar(&cmd.apiURL, "api", e.cfg.APIURL, "service base URL")
	cmd.fs.StringVar(&cmd.outDir, "out", ".", "directory for saved images")
	cmd.fs.StringVar(&cmd.compare, "compare", string(prefs.CompareMode), "also save a slider, stacked or toggle comparison; none to skip")
	cmd.fs.Float64Var(&cmd.position, "position", 50, "slider position in percent")
	cmd.fs.StringVar(&cmd.archive, "archive", "", "write original and result into this zip `path`")
	cmd.fs.StringVar(&cmd.overlay, "overlay", "", "write the selection preview to this PNG `path`")
	cmd.fs.StringVar(&cmd.mask, "mask", "", "write the selection mask to this PNG `path`")
	if err := cmd.fs.Parse(args); err != nil {
		return nil, err
	}
	if cmd.in == "" {
		return nil, &UsageError{msg: "transform: -in is required"}
	}
	if cmd.tool == "" {
		return nil, &UsageError{msg: "transform: -tool is required"}
	}
	g, err := parseGesture(rect, circle, brush)
	if err != nil {
		return nil, &UsageError{msg: "transform: " + err.Error()}
	}
	cmd.gesture = g
	if cmd.compare != "none" {
		if _, err := present.ParseMode(cmd.compare); err != nil {
			return nil, &UsageError{msg: "transform: " + err.Error()}
		}
	}
	return cmd, nil
}

func readDataURL(path string) (string, transform.ImageInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", transform.ImageInfo{}, err
	}
	info, err := transform.CheckImage(data, transform.ImageLimits{})
	if err != nil {
		return "", transform.ImageInfo{}, err
	}
	return transform.EncodeDataURL(info.MIMEType(), data), info, nil
}

func (c *transformCmd) input() (transform.Input, error) {
	loc := c.prefs.Localizer()
	ref, info, err := readDataURL(c.in)
	if err != nil {
		return transform.Input{}, fmt.Errorf("%s: %s", c.in, loc.Message(err))
	}
	in := transform.Input{
		ImageRef: ref,
		Prompt:   c.prompt,
		ToolID:   c.tool,
		Quality:  c.quality,
		Settings: c.settings,
		Scale:    1,
	}
	if c.second != "" {
		if in.SecondImageRef, _, err = readDataURL(c.second); err != nil {
			return transform.Input{}, fmt.Errorf("%s: %s", c.second, loc.Message(err))
		}
	}
	if c.vipToken != "" {
		// The service verifies the token and decides VIP access itself.
		token := c.vipToken
		in.IsVIP = true
		in.VIPSessionToken = &token
	}
	if c.gesture == nil {
		return in, nil
	}

	src := selection.ImageSource{Ref: c.in, Width: info.Width, Height: info.Height}
	var overlay *selection.RasterOverlay
	var drawOn selection.Overlay
	if c.overlay != "" {
		if overlay, err = selection.NewRasterOverlay(selection.DefaultTint, 0.5, selection.DefaultBrushWidth); err != nil {
			return transform.Input{}, err
		}
		drawOn = overlay
	}
	sel, display, err := c.gesture.draw(src, drawOn)
	if err != nil {
		return transform.Input{}, err
	}
	if overlay != nil {
		if err := writeOverlay(c.overlay, overlay); err != nil {
			return transform.Input{}, fmt.Errorf("write overlay: %w", err)
		}
	}
	in.Selection = sel.Shape
	in.Scale = display.Scale

	if c.mask != "" {
		native := &selection.Selection{Shape: display.ShapeToImage(sel.Shape)}
		data, err := selection.EncodeMaskPNG(native, info.Width, info.Height, selection.DefaultBrushWidth)
		if err != nil {
			return transform.Input{}, err
		}
		if err := os.WriteFile(c.mask, data, 0o644); err != nil {
			return transform.Input{}, fmt.Errorf("write mask: %w", err)
		}
	}
	return in, nil
}

func (c *transformCmd) transport() (execution.Transport, execution.ProgressSource, error) {
	if c.local {
		t := execution.NewLocalTransport(execution.LocalOptions{Logger: &c.logger})
		return t, t.Progress(), nil
	}
	t, err := execution.NewHTTPTransport(execution.HTTPOptions{
		BaseURL:        c.apiURL,
		HTTPClient:     c.httpClient(),
		RequestTimeout: c.cfg.RequestTimeout,
		Logger:         &c.logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return t, t.Progress(execution.NewSimulatedProgress(250 * time.Millisecond)), nil
}

func (c *transformCmd) Run(ctx context.Context) error {
	loc := c.prefs.Localizer()
	in, err := c.input()
	if err != nil {
		return err
	}
	transport, progress, err := c.transport()
	if err != nil {
		return err
	}
	client, err := execution.NewClient(execution.Options{
		Transport: transport,
		Progress:  progress,
		Messages:  loc.Message,
		Logger:    &c.logger,
	})
	if err != nil {
		return err
	}

	last := -1
	unsubscribe := client.Subscribe(func(s execution.Snapshot) {
		if s.State != execution.StateRunning {
			return
		}
		pct := int(s.Job.Progress * 100)
		if pct != last {
			last = pct
			fmt.Fprintf(c.stderr, "\r%s", loc.Text(i18n.KeyProgress, pct))
		}
	})
	defer unsubscribe()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	if _, err := client.Submit(ctx, in); err != nil {
		return errors.New(loc.Message(err))
	}
	go func() {
		<-ctx.Done()
		_ = client.Cancel()
	}()
	snap, err := client.Wait(context.Background())
	if last >= 0 {
		fmt.Fprintln(c.stderr)
	}
	if err != nil {
		return err
	}
	if snap.State != execution.StateSucceeded {
		return errors.New(snap.Message)
	}
	fmt.Fprintln(c.stdout, loc.Text(i18n.KeySucceeded, snap.ProcessingTime.Seconds()))
	return c.save(ctx, in.ImageRef, snap.Job.ResultRef)
}

func (c *transformCmd) save(ctx context.Context, original, result string) error {
	loc := c.prefs.Localizer()
	store, err := storage.NewFileStore(c.outDir)
	if err != nil {
		return err
	}
	actions := present.NewActions(store, "", c.fetch, &c.logger)
	cmp := present.NewComparison(original, result)
	cmp.SetPosition(c.position)

	key, err := actions.Download(ctx, cmp)
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	fmt.Fprintln(c.stdout, loc.Text(i18n.KeySaved, filepath.Join(c.outDir, key)))

	if c.compare != "none" {
		cmp.Mode, _ = present.ParseMode(c.compare)
		key, err := actions.DownloadComparison(ctx, cmp)
		if err != nil {
			return fmt.Errorf("save comparison: %w", err)
		}
		fmt.Fprintln(c.stdout, loc.Text(i18n.KeySaved, filepath.Join(c.outDir, key)))
	}

	if c.archive != "" {
		f, err := os.Create(c.archive)
		if err != nil {
			return err
		}
		if err := actions.Archive(ctx, cmp, f); err != nil {
			f.Close()
			return fmt.Errorf("archive: %w", err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintln(c.stdout, loc.Text(i18n.KeySaved, c.archive))
	}
	return nil
}

// fetch downloads result images the service returns by URL.
func (c *transformCmd) fetch(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", ref, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 64<<20))
}
