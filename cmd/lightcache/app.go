package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/urfave/cli"

	"github.com/gogpu/lightcache"
	"github.com/gogpu/lightcache/internal/blend"
	"github.com/gogpu/lightcache/internal/dds"
)

// runner carries the state shared by all subcommands of one invocation.
type runner struct {
	stdout io.Writer
	stderr io.Writer
	runID  string
	log    *slog.Logger
}

func newApp(stdout, stderr io.Writer) *cli.App {
	r := &runner{stdout: stdout, stderr: stderr}

	app := cli.NewApp()
	app.Name = "lightcache"
	app.Usage = "extract baked EEVEE light caches from Blender files"
	app.Version = version
	app.Writer = stdout
	app.ErrWriter = stderr

	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:   "verbose, v",
			Usage:  "log texture shapes and byte counts",
			EnvVar: "LIGHTCACHE_VERBOSE",
		},
		cli.StringFlag{
			Name:   "log-format",
			Value:  "text",
			Usage:  "log record format: text or json",
			EnvVar: "LIGHTCACHE_LOG_FORMAT",
		},
	}
	app.Before = r.setup

	app.Commands = []cli.Command{
		{
			Name:      "extract",
			Usage:     "write the light cache of every scene as DDS files under <output>/<scene ID name>",
			ArgsUsage: "<file.blend>",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:   "output, o",
					Value:  "lightcache_out",
					Usage:  "output directory",
					EnvVar: "LIGHTCACHE_OUTPUT",
				},
				cli.StringFlag{
					Name:  "manifest",
					Usage: "write a JSON manifest of the written textures to `FILE`",
				},
				cli.BoolFlag{
					Name:  "strip-id-code",
					Usage: "drop the two-letter ID code from scene directory names (SCScene becomes Scene)",
				},
			},
			Action: r.extract,
		},
		{
			Name:      "dump",
			Usage:     "print the record structure of a .blend file",
			ArgsUsage: "<file.blend>",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "output, o",
					Usage: "write to `FILE` instead of stdout",
				},
			},
			Action: r.dump,
		},
		{
			Name:      "info",
			Usage:     "print the headers of DDS files",
			ArgsUsage: "<file.dds>...",
			Action:    r.info,
		},
	}

	return app
}

// setup builds the logger shared by the library and the commands.
func (r *runner) setup(c *cli.Context) error {
	level := slog.LevelInfo
	if c.GlobalBool("verbose") {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch format := c.GlobalString("log-format"); format {
	case "text", "":
		h = slog.NewTextHandler(r.stderr, opts)
	case "json":
		h = slog.NewJSONHandler(r.stderr, opts)
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	r.runID = uuid.NewString()
	base := slog.New(h)
	lightcache.SetLogger(base)
	r.log = base.With("run", r.runID)
	return nil
}

func oneArg(c *cli.Context, what string) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("%s: expected one %s argument, got %d", c.Command.Name, what, c.NArg())
	}
	return c.Args().First(), nil
}

func (r *runner) extract(c *cli.Context) error {
	in, err := oneArg(c, ".blend file")
	if err != nil {
		return err
	}
	out := c.String("output")

	store, err := lightcache.OpenStore(in)
	if err != nil {
		return err
	}

	rep, err := lightcache.New(store,
		lightcache.WithDiagnostics(r.stdout),
		lightcache.WithRunID(r.runID),
		lightcache.WithIDCodeStripping(c.Bool("strip-id-code")),
	).Run(out)
	if err != nil {
		return err
	}

	if path := c.String("manifest"); path != "" {
		if err := writeManifest(path, rep); err != nil {
			return err
		}
		r.log.Info("manifest written", "path", path)
	}

	r.log.Info("extraction finished",
		"input", in,
		"output", out,
		"textures", len(rep.Textures),
		"skipped", len(rep.Skipped()))
	return nil
}

func writeManifest(path string, rep *lightcache.Report) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	if err := lightcache.WriteManifest(f, rep); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (r *runner) dump(c *cli.Context) error {
	in, err := oneArg(c, ".blend file")
	if err != nil {
		return err
	}
	f, err := blend.Open(in)
	if err != nil {
		return err
	}

	path := c.String("output")
	if path == "" {
		return f.Dump(r.stdout)
	}

	out, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("create dump file: %w", err)
	}
	if err := f.Dump(out); err != nil {
		_ = out.Close()
		return err
	}
	r.log.Info("structure dumped", "input", in, "output", path, "blocks", len(f.Blocks))
	return out.Close()
}

func (r *runner) info(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("info: expected at least one .dds file")
	}
	for _, path := range c.Args() {
		h, err := readDDSHeader(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.stdout, "%s: %s\n", path, h)
	}
	return nil
}

func readDDSHeader(path string) (*dds.Header, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h, err := dds.ReadHeader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return h, nil
}
