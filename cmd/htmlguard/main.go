// Command htmlguard sanitizes HTML from files or standard input.
//
// Usage:
//
//	htmlguard sanitize [flags] [file]   sanitize markup and print it
//	htmlguard strip [file]              print the text content only
//	htmlguard policy [flags]            list what the selected policy allows
//
// Flag defaults come from HTMLGUARD_* environment variables, optionally
// set in a .env file.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/njchilds90/htmlguard"
	"github.com/njchilds90/htmlguard/internal/config"
	"github.com/njchilds90/htmlguard/internal/logger"
	"github.com/njchilds90/htmlguard/internal/markdown"
	"github.com/njchilds90/htmlguard/internal/policyfile"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type app struct {
	cfg    config.Config
	log    *slog.Logger
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr)
		return 2
	}

	var cfg config.Config
	if err := config.Load(&cfg); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	log, err := logger.New(stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	a := &app{cfg: cfg, log: log, stdin: stdin, stdout: stdout, stderr: stderr}

	cmd := args[0]
	switch cmd {
	case "sanitize":
		err = a.sanitizeCmd(args[1:])
	case "strip":
		err = a.stripCmd(args[1:])
	case "policy":
		err = a.policyCmd(args[1:])
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	default:
		usage(stderr)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	}
	log.Error("command failed", logger.Component(cmd), logger.Error(err))
	return 1
}

func usage(w io.Writer) {
	exe := filepath.Base(os.Args[0])
	fmt.Fprintf(w, "Usage: %s <command> [options] [file]\n", exe)
	fmt.Fprintf(w, "\nCommands:\n")
	fmt.Fprintf(w, "  sanitize   Sanitize HTML (or Markdown with -markdown) and print it\n")
	fmt.Fprintf(w, "  strip      Print the text content with all markup removed\n")
	fmt.Fprintf(w, "  policy     List the elements and attributes the selected policy allows\n")
}

// policyFlags selects the effective policy. Defaults come from the
// environment.
type policyFlags struct {
	opts       htmlguard.Options
	all        bool
	linkify    bool
	policyFile string
}

func (f *policyFlags) register(fs *flag.FlagSet, cfg config.Config) {
	f.opts = cfg.Options()
	fs.BoolVar(&f.opts.AllowBlocks, "blocks", f.opts.AllowBlocks, "allow block elements")
	fs.BoolVar(&f.opts.AllowFormatting, "formatting", f.opts.AllowFormatting, "allow inline formatting")
	fs.BoolVar(&f.opts.AllowLinks, "links", f.opts.AllowLinks, "allow links")
	fs.BoolVar(&f.opts.AllowStyles, "styles", f.opts.AllowStyles, "allow filtered inline styles and class")
	fs.BoolVar(&f.opts.AllowImages, "images", f.opts.AllowImages, "allow images")
	fs.BoolVar(&f.opts.AllowTables, "tables", f.opts.AllowTables, "allow tables")
	fs.BoolVar(&f.opts.AllowMedia, "media", f.opts.AllowMedia, "allow video, audio and iframes")
	fs.BoolVar(&f.all, "all", false, "allow every fragment")
	fs.BoolVar(&f.linkify, "linkify", cfg.Linkify, "turn bare URLs into links where links are allowed")
	fs.StringVar(&f.policyFile, "policy", cfg.PolicyFile, "YAML policy file composed with the selected fragments")
}

func (f *policyFlags) policy() (*htmlguard.Policy, error) {
	opts := f.opts
	if f.all {
		opts = htmlguard.AllOptions
	}
	p := htmlguard.EffectivePolicy(opts)
	if f.policyFile == "" && !f.linkify {
		return p, nil
	}

	b := htmlguard.NewBuilder()
	if f.policyFile != "" {
		extra, err := policyfile.Load(f.policyFile)
		if err != nil {
			return nil, err
		}
		// Included first so the file's depth limit is kept.
		b.Include(extra)
	}
	b.Include(p)
	if f.linkify {
		b.Linkify()
	}
	return b.Build()
}

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// input opens the single optional file argument, or stdin.
func (a *app) input(fs *flag.FlagSet) (io.ReadCloser, string, error) {
	switch fs.NArg() {
	case 0:
		return io.NopCloser(a.stdin), "", nil
	case 1:
		path := fs.Arg(0)
		f, err := os.Open(path)
		if err != nil {
			return nil, "", fmt.Errorf("open input: %w", err)
		}
		return f, path, nil
	}
	return nil, "", fmt.Errorf("expected at most one input file, got %d", fs.NArg())
}

func (a *app) sanitizeCmd(args []string) error {
	fs := a.flagSet("sanitize")
	var pf policyFlags
	pf.register(fs, a.cfg)
	md := fs.Bool("markdown", a.cfg.Markdown, "render Markdown input to HTML first")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := pf.policy()
	if err != nil {
		return err
	}
	in, path, err := a.input(fs)
	if err != nil {
		return err
	}
	defer in.Close()

	start := time.Now()
	var src io.Reader = in
	if *md {
		raw, err := io.ReadAll(in)
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		rendered, err := markdown.Render(string(raw))
		if err != nil {
			return err
		}
		src = strings.NewReader(rendered)
	}

	out, err := htmlguard.SanitizeReader(src, p)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	if _, err := io.WriteString(a.stdout, out); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	a.log.Debug("sanitized",
		logger.Component("sanitize"),
		logger.Path(path),
		logger.Bytes("bytes_out", len(out)),
		logger.Elapsed(start),
	)
	return nil
}

func (a *app) stripCmd(args []string) error {
	fs := a.flagSet("strip")
	if err := fs.Parse(args); err != nil {
		return err
	}
	in, path, err := a.input(fs)
	if err != nil {
		return err
	}
	defer in.Close()

	raw, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	out := htmlguard.StripTags(string(raw))
	if _, err := io.WriteString(a.stdout, out); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	a.log.Debug("stripped",
		logger.Component("strip"),
		logger.Path(path),
		logger.Bytes("bytes_in", len(raw)),
		logger.Bytes("bytes_out", len(out)),
	)
	return nil
}

func (a *app) policyCmd(args []string) error {
	fs := a.flagSet("policy")
	var pf policyFlags
	pf.register(fs, a.cfg)
	if err := fs.Parse(args); err != nil {
		return err
	}
	p, err := pf.policy()
	if err != nil {
		return err
	}

	var b strings.Builder
	for _, name := range p.Elements() {
		e, _ := p.Element(name)
		b.WriteString(name)
		for _, attr := range e.Attributes() {
			b.WriteByte(' ')
			b.WriteString(attr)
		}
		b.WriteByte('\n')
	}
	if global := p.GlobalAttributes(); len(global) > 0 {
		fmt.Fprintf(&b, "* %s\n", strings.Join(global, " "))
	}
	fmt.Fprintf(&b, "safe-rel=%t linkify=%t max-depth=%d\n",
		p.SafeRelOnTargetLinks(), p.LinkifyEnabled(), p.MaxNestingDepth())

	_, err = io.WriteString(a.stdout, b.String())
	return err
}
