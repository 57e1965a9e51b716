// Command tablegen generates entity declarations from a YAML entity
// description.
//
//	tablegen -config tablekit.yaml -target ./internal/store
//	tablegen -config tablekit.yaml -target ./internal/store -watch
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/syssam/tablekit/compiler/gen"
	"github.com/syssam/tablekit/compiler/load"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stderr))
}

// run executes the command and returns the process exit code.
func run(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("tablegen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		cfgPath  = fs.String("config", "tablekit.yaml", "entity description path")
		target   = fs.String("target", ".", "output directory")
		pkg      = fs.String("package", "", "generated package name (default: description package, then target base name)")
		dialect  = fs.String("dialect", "", "dialect override: postgres, mysql or sqlite")
		header   = fs.String("header", "", "header comment of generated files")
		workers  = fs.Int("workers", 0, "parallel file writers (default: GOMAXPROCS)")
		watching = fs.Bool("watch", false, "regenerate whenever the description changes")
		verbose  = fs.Bool("v", false, "enable debug logs")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	opts := []gen.Option{gen.WithTarget(*target)}
	if *pkg != "" {
		opts = append(opts, gen.WithPackage(*pkg))
	}
	if *dialect != "" {
		opts = append(opts, gen.WithDialect(*dialect))
	}
	if *header != "" {
		opts = append(opts, gen.WithHeader(*header))
	}
	if *workers != 0 {
		opts = append(opts, gen.WithWorkers(*workers))
	}
	if _, err := gen.NewConfig(opts...); err != nil {
		log.Error("invalid flags", "err", err)
		return 2
	}

	path, err := filepath.Abs(*cfgPath)
	if err != nil {
		log.Error("resolve config path", "err", err)
		return 1
	}
	generate := func() error {
		d, err := load.Load(path)
		if err != nil {
			return err
		}
		g, err := gen.NewGenerator(d, opts...)
		if err != nil {
			return err
		}
		m, err := g.Generate(ctx)
		if err != nil {
			return err
		}
		log.Info("generated", "files", m.FilesGenerated, "bytes", m.TotalBytes, "target", g.Config().Target)
		log.Debug("timings", "render", m.RenderTime, "format", m.FormatTime, "write", m.WriteTime)
		return nil
	}

	if err := generate(); err != nil {
		log.Error("generate failed", "config", path, "err", err)
		if !*watching {
			return 1
		}
	}
	if !*watching {
		return 0
	}
	log.Info("watching", "config", path)
	if err := watch(ctx, path, log, generate); err != nil {
		log.Error("watch failed", "err", err)
		return 1
	}
	return 0
}
