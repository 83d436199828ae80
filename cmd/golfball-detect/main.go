package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ironsheep/golfball-detect/internal/config"
	"github.com/ironsheep/golfball-detect/internal/detect"
	"github.com/ironsheep/golfball-detect/internal/imaging"
	"github.com/ironsheep/golfball-detect/internal/server"
	"github.com/ironsheep/golfball-detect/internal/upload"
	"github.com/ironsheep/golfball-detect/internal/web"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and --help before flag parsing
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("golfball-detect %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printUsage()
			return
		}
	}

	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if err := run(os.Args[1:]); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("golfball-detect - find golf balls in a photo using the detection service")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  golfball-detect [options] <image>   Detect once and write the annotated image")
	fmt.Println("  golfball-detect serve [options]     Serve the upload page API")
	fmt.Println("  golfball-detect mcp [options]       Speak MCP over stdin/stdout")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -api URL         Detection service root (overrides environment)")
	fmt.Println("  -out PATH        Output file (default <image>.detected.jpg)")
	fmt.Println("  -timeout DUR     Per-request timeout, e.g. 30s (default none)")
	fmt.Println("  -addr ADDR       Listen address for serve (default :8080)")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  GOLFBALL_PRODUCTION_API_URL   Production service root (wins over GOLFBALL_API_URL)")
	fmt.Println("  GOLFBALL_API_URL              Service root (default " + config.LocalBaseURL + ")")
	fmt.Println("  GOLFBALL_TIMEOUT              Default request timeout")
	fmt.Println("  GOLFBALL_LISTEN_ADDR          Default listen address for serve")
	fmt.Println("  GOLFBALL_LOG_LEVEL=debug      Enable debug logging")
	fmt.Println()
	fmt.Println("A .env file in the working directory is read if present.")
}

func run(args []string) error {
	mode := "detect"
	if len(args) > 0 && (args[0] == "serve" || args[0] == "mcp") {
		mode, args = args[0], args[1:]
	}

	fs := flag.NewFlagSet("golfball-detect", flag.ContinueOnError)
	apiURL := fs.String("api", "", "detection service root")
	out := fs.String("out", "", "output file")
	timeout := fs.Duration("timeout", 0, "per-request timeout")
	addr := fs.String("addr", "", "listen address for serve")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Load(*apiURL)
	if *timeout > 0 {
		cfg.Timeout = *timeout
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if cfg.Debug {
		log.Printf("golfball-detect v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
		log.Printf("Detection service: %s (timeout %v)", cfg.BaseURL, cfg.Timeout)
	}

	client := detect.NewClient(cfg.BaseURL, detect.WithTimeout(cfg.Timeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch mode {
	case "serve":
		if fs.NArg() != 0 {
			return fmt.Errorf("serve takes no arguments, got %q", fs.Args())
		}
		srv := web.New(upload.NewController(client), log.Default())
		return srv.Run(ctx, cfg.ListenAddr)
	case "mcp":
		// stdout carries the protocol; logs stay on stderr
		srv := server.New(upload.NewController(client), client, Version)
		return srv.Run(ctx, os.Stdin, os.Stdout)
	}

	if fs.NArg() != 1 {
		printUsage()
		return errors.New("expected exactly one image path")
	}
	return detectOnce(ctx, cfg, client, fs.Arg(0), *out)
}

// detectOnce drives one select-and-submit cycle and writes the result.
func detectOnce(ctx context.Context, cfg *config.Config, client *detect.Client, path, out string) error {
	f, err := upload.OpenFile(path)
	if err != nil {
		return err
	}

	ctrl := upload.NewController(client)
	if err := ctrl.SelectFile(f); err != nil {
		return err
	}
	if err := ctrl.WaitPreview(ctx); err != nil {
		return err
	}

	if cfg.Debug {
		logImageInfo(f)
		hctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := client.Health(hctx); err != nil {
			log.Printf("Health check failed (continuing): %v", err)
		}
		cancel()
	}

	if err := ctrl.Submit(ctx); err != nil {
		if msg := ctrl.State().ErrorMessage; msg != "" {
			return fmt.Errorf("%s: %w", msg, err)
		}
		return err
	}

	st := ctrl.State()
	_, data, err := imaging.DecodeDataURI(st.ResultDataURI)
	if err != nil {
		return fmt.Errorf("invalid result image: %w", err)
	}

	if out == "" {
		out = defaultOutput(path)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	log.Printf("Found %d detections, annotated image written to %s", len(st.Detections), out)
	return nil
}

func logImageInfo(f *upload.File) {
	rc, err := f.Open()
	if err != nil {
		return
	}
	defer rc.Close()

	buf := make([]byte, f.Size)
	if _, err := io.ReadFull(rc, buf); err != nil {
		return
	}
	info, err := imaging.Inspect(buf)
	if err != nil {
		log.Printf("Could not inspect %s: %v", f.Name, err)
		return
	}
	log.Printf("Selected %s: %dx%d %s, %d bytes (%s)", f.Name, info.Width, info.Height, info.Format, info.SizeBytes, f.Type)
}

// defaultOutput maps "dir/ball.png" to "dir/ball.detected.jpg".
func defaultOutput(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".detected.jpg"
}
