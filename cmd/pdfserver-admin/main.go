package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/webcloud7/wcs.pdfserver/config"
	"github.com/webcloud7/wcs.pdfserver/internal/bootstrap"
	"github.com/webcloud7/wcs.pdfserver/internal/domain/model"
	"github.com/webcloud7/wcs.pdfserver/internal/util"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Stdout io.Writer
	Getenv func(string) string
}

const (
	defaultServerURL     = "http://localhost:8040"
	serverURLEnv         = "PDFSERVER_URL"
	defaultClientTimeout = 3 * time.Minute
)

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmdCtx := &commandContext{
		Ctx:    ctx,
		Logger: logger,
		Config: cfg,
		Stdout: os.Stdout,
		Getenv: os.Getenv,
	}
	runErr := cmd.run(cmdCtx, os.Args[2:])
	stop()
	if runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"convert": {
			name:        "convert",
			description: "Submit an asynchronous conversion; with -o wait for it and save the PDF",
			run:         runConvert,
		},
		"status": {
			name:        "status",
			description: "Show the state of a conversion job",
			run:         runStatus,
		},
		"download": {
			name:        "download",
			description: "Save the PDF of a completed job",
			run:         runDownload,
		},
		"convert-sync": {
			name:        "convert-sync",
			description: "Render a document on the server synchronously and save the PDF",
			run:         runConvertSync,
		},
		"render": {
			name:        "render",
			description: "Render a document locally with the configured WeasyPrint, bypassing the server",
			run:         runRender,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: pdfserver-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(w, "Available commands:\n"); err != nil {
		return err
	}
	names := make([]string, 0, len(commands()))
	for name := range commands() {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := commands()[name]
		if err := writef(w, "  %-12s %s\n", c.name, c.description); err != nil {
			return err
		}
	}
	return writef(w, "\nThe server defaults to $%s or %s.\n", serverURLEnv, defaultServerURL)
}

// stringList collects a repeatable flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type clientOptions struct {
	Server  string
	Timeout time.Duration
}

func (o *clientOptions) register(fs *flag.FlagSet, getenv func(string) string) {
	server := defaultServerURL
	if getenv != nil {
		if v := strings.TrimSpace(getenv(serverURLEnv)); v != "" {
			server = v
		}
	}
	fs.StringVar(&o.Server, "server", server, "Base URL of the pdfserver")
	fs.DurationVar(&o.Timeout, "timeout", defaultClientTimeout, "Per-request timeout")
}

func (o *clientOptions) client() (*apiClient, error) {
	return newAPIClient(o.Server, o.Timeout)
}

type convertOptions struct {
	clientOptions

	URL      string
	CSS      stringList
	Filename string
	Output   string
}

func parseConvertFlags(name string, args []string, getenv func(string) string) (convertOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts convertOptions
	opts.register(fs, getenv)
	fs.StringVar(&opts.URL, "url", "", "Document URL to convert (required)")
	fs.Var(&opts.CSS, "css", "Stylesheet URL (repeatable)")
	fs.StringVar(&opts.Filename, "filename", "", "Download filename reported by the server")
	fs.StringVar(&opts.Output, "o", "", "Write the PDF to this path (- for stdout)")

	if err := fs.Parse(args); err != nil {
		return convertOptions{}, err
	}

	opts.URL = strings.TrimSpace(opts.URL)
	if opts.URL == "" {
		return convertOptions{}, errors.New("--url is required")
	}

	return opts, nil
}

func (o *convertOptions) request() model.ConvertRequest {
	return model.ConvertRequest{URL: o.URL, CSS: o.CSS, Filename: o.Filename}
}

type jobOptions struct {
	clientOptions

	ID     string
	Wait   time.Duration
	Output string
}

func parseJobFlags(name string, args []string, getenv func(string) string) (jobOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts jobOptions
	opts.register(fs, getenv)
	fs.StringVar(&opts.ID, "id", "", "Job ID (required)")
	switch name {
	case "status":
		fs.DurationVar(&opts.Wait, "wait", 0, "Hold the request until the job finishes, up to 30s")
	case "download":
		fs.StringVar(&opts.Output, "o", "", "Write the PDF to this path (- for stdout; defaults to the job filename)")
	}

	if err := fs.Parse(args); err != nil {
		return jobOptions{}, err
	}

	opts.ID = strings.TrimSpace(opts.ID)
	if opts.ID == "" {
		return jobOptions{}, errors.New("--id is required")
	}
	if opts.Wait < 0 {
		return jobOptions{}, errors.New("--wait must not be negative")
	}

	return opts, nil
}

func runConvert(ctx *commandContext, args []string) error {
	opts, err := parseConvertFlags("convert", args, ctx.Getenv)
	if err != nil {
		return err
	}
	client, err := opts.client()
	if err != nil {
		return err
	}

	job, err := client.Convert(ctx.Ctx, opts.request())
	if err != nil {
		return fmt.Errorf("submit conversion: %w", err)
	}
	ctx.Logger.InfoContext(ctx.Ctx, "conversion submitted", "uid", job.UID, "filename", job.Filename)

	if opts.Output == "" {
		return writeln(ctx.Stdout, job.UID)
	}

	st, err := client.WaitForCompletion(ctx.Ctx, job.UID)
	if err != nil {
		return fmt.Errorf("wait for job %s: %w", job.UID, err)
	}
	if st.Status != model.JobStatusCompleted {
		return fmt.Errorf("job %s %s: %s", st.UID, st.Status, st.Message)
	}

	return saveOutput(ctx, opts.Output, func(w io.Writer) (int64, error) {
		return client.Download(ctx.Ctx, job.UID, w)
	})
}

func runStatus(ctx *commandContext, args []string) error {
	opts, err := parseJobFlags("status", args, ctx.Getenv)
	if err != nil {
		return err
	}
	client, err := opts.client()
	if err != nil {
		return err
	}

	st, err := client.Status(ctx.Ctx, opts.ID, opts.Wait)
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("job %s not found (unknown or expired)", opts.ID)
		}
		return err
	}
	return printStatus(ctx.Stdout, st)
}

func printStatus(out io.Writer, st statusResult) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	elapsed := util.JobElapsed(st.CreatedAt, st.UpdatedAt, st.Status == model.JobStatusRunning, time.Now())
	if err := writef(w, "UID\tSTATUS\tFILENAME\tUPDATED\tELAPSED\tMESSAGE\n"); err != nil {
		return err
	}
	if err := writef(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		st.UID, st.Status, st.Filename, st.UpdatedAt.Format(time.RFC3339), util.FormatElapsed(elapsed), st.Message); err != nil {
		return err
	}
	return w.Flush()
}

func runDownload(ctx *commandContext, args []string) error {
	opts, err := parseJobFlags("download", args, ctx.Getenv)
	if err != nil {
		return err
	}
	client, err := opts.client()
	if err != nil {
		return err
	}

	output := opts.Output
	if output == "" {
		st, serr := client.Status(ctx.Ctx, opts.ID, 0)
		if serr != nil {
			return serr
		}
		output = filepath.Base(st.Filename)
	}

	return saveOutput(ctx, output, func(w io.Writer) (int64, error) {
		return client.Download(ctx.Ctx, opts.ID, w)
	})
}

func runConvertSync(ctx *commandContext, args []string) error {
	opts, err := parseConvertFlags("convert-sync", args, ctx.Getenv)
	if err != nil {
		return err
	}
	client, err := opts.client()
	if err != nil {
		return err
	}

	output := opts.Output
	if output == "" {
		output = opts.Filename
	}
	if output == "" {
		output = model.DefaultFilename
	}

	return saveOutput(ctx, output, func(w io.Writer) (int64, error) {
		return client.ConvertSync(ctx.Ctx, opts.request(), w)
	})
}

type renderOptions struct {
	URL    string
	CSS    stringList
	Output string
}

func parseRenderFlags(args []string) (renderOptions, error) {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts renderOptions
	fs.StringVar(&opts.URL, "url", "", "Document URL to render (required)")
	fs.Var(&opts.CSS, "css", "Stylesheet URL (repeatable)")
	fs.StringVar(&opts.Output, "o", model.DefaultFilename, "Write the PDF to this path (- for stdout)")

	if err := fs.Parse(args); err != nil {
		return renderOptions{}, err
	}

	opts.URL = strings.TrimSpace(opts.URL)
	if opts.URL == "" {
		return renderOptions{}, errors.New("--url is required")
	}

	return opts, nil
}

func runRender(ctx *commandContext, args []string) error {
	opts, err := parseRenderFlags(args)
	if err != nil {
		return err
	}

	renderCfg := ctx.Config.Render
	renderCfg.Sanitize()
	renderer, err := bootstrap.NewRenderer(bootstrap.RendererConfig{Config: renderCfg, Logger: ctx.Logger})
	if err != nil {
		return err
	}

	renderCtx, cancel := context.WithTimeout(ctx.Ctx, renderCfg.Timeout)
	defer cancel()

	req := model.ConvertRequest{URL: opts.URL, CSS: opts.CSS}
	req.Normalize()
	pdf, err := renderer.Render(renderCtx, req.RenderRequest())
	if err != nil {
		return fmt.Errorf("%s: %w", model.FailureMessage(err), err)
	}

	return saveOutput(ctx, opts.Output, func(w io.Writer) (int64, error) {
		n, werr := w.Write(pdf)
		return int64(n), werr
	})
}

// saveOutput streams a PDF to path, or to stdout for "-". A failed download
// removes the partial file.
func saveOutput(ctx *commandContext, path string, fetch func(io.Writer) (int64, error)) error {
	if path == "-" {
		_, err := fetch(ctx.Stdout)
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	n, err := fetch(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return err
	}

	ctx.Logger.InfoContext(ctx.Ctx, "pdf saved", "path", path, "bytes", n)
	return nil
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	_, err := fmt.Fprintln(w, args...)
	return err
}
