// cmd/confctl/main.go
//
// confctl – configuration resolution tooling.
//
// Commands
// --------
//
//	resolve  – run the full pipeline once and print a provenance report.
//	doctor   – resolve, then probe the relational database from the result.
//	serve    – expose /healthz, /metrics, and /configz over HTTP.
//
// Boot sequence: optional dotenv file, structured logger (teed to the
// console when on a TTY), then the selected command.  A resolution
// failure at startup is fatal; running with an incomplete configuration
// is worse than not running.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/chatforge/confcore"
	"github.com/chatforge/confcore/internal/database"
	"github.com/chatforge/confcore/internal/logger"
	"github.com/chatforge/confcore/internal/opsserver"
)

func main() {
	app := kingpin.New("confctl", "Configuration resolution tooling for the chatforge platform")

	dir := app.Flag("dir", "Config directory holding defaults.yaml and .env files").String()
	force := app.Flag("context", "Force a deployment context instead of classifying").
		Enum("build-time", "local", "managed-runtime")
	noValidate := app.Flag("no-validate", "Skip schema validation (diagnostics only)").Bool()
	quiet := app.Flag("quiet", "Suppress per-stage logging").Bool()
	authoritative := app.Flag("authoritative", "Treat the remote store as authoritative").Bool()

	resolveCmd := app.Command("resolve", "Resolve once and print a provenance report")
	asJSON := resolveCmd.Flag("json", "Emit the annotated result as JSON").Bool()

	doctorCmd := app.Command("doctor", "Resolve, then probe the relational database")

	serveCmd := app.Command("serve", "Serve /healthz, /metrics, and /configz")
	listen := serveCmd.Flag("listen", "Listen address").Default(":9090").String()

	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	loadEnv()
	zlog, err := logger.New(".", runningInTTY())
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}

	opts := confcore.Options{
		ForceContext:        confcore.Context(*force),
		SkipValidation:      *noValidate,
		Quiet:               *quiet,
		RemoteAuthoritative: *authoritative,
		Dir:                 *dir,
	}

	ctx := context.Background()
	if _, err := confcore.Load(ctx, opts); err != nil {
		zlog.Fatalw("configuration resolution failed", "err", err)
	}
	ann := confcore.Annotations()

	switch cmd {
	case resolveCmd.FullCommand():
		if *asJSON {
			out, _ := json.MarshalIndent(ann, "", "  ")
			fmt.Println(string(out))
			return
		}
		printReport(ann)

	case doctorCmd.FullCommand():
		printReport(ann)
		runDoctor(ctx, zlog, ann.Config)

	case serveCmd.FullCommand():
		serve(zlog, *listen)
	}
}

// loadEnv makes a repo-root .env visible to classification and the local
// loader before anything else runs.  Absence is fine.
func loadEnv() { _ = godotenv.Load() }

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// printReport writes the human-readable resolution summary.
func printReport(ann *confcore.Annotated) {
	fmt.Printf("context:   %s\n", ann.Context)
	fmt.Printf("stage:     %s\n", ann.Config.Stage)
	fmt.Printf("port:      %d\n", ann.Config.Port)
	fmt.Printf("resolved:  %s in %s\n", ann.ResolvedAt.Format(time.RFC3339), ann.Duration.Round(time.Microsecond))

	keys := make([]string, 0, len(ann.Provenance))
	for k := range ann.Provenance {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Println("\nprovenance:")
	for _, k := range keys {
		fmt.Printf("  %-26s %s\n", k, ann.Provenance[k])
	}

	fmt.Println("\nby source:")
	for _, src := range []confcore.Source{
		confcore.SourceEnvironment, confcore.SourceLocalFile,
		confcore.SourceRemoteStore, confcore.SourceFallback,
	} {
		if n := ann.Counts[src]; n > 0 {
			fmt.Printf("  %-18s %d\n", src, n)
		}
	}
}

// runDoctor opens and pings the relational database named by the
// resolved configuration.
func runDoctor(ctx context.Context, zlog *zap.SugaredLogger, cfg *confcore.AppConfig) {
	fmt.Println("\nprobing relational database …")
	db, err := database.Open(cfg.DatabaseURL.Reveal())
	if err != nil {
		zlog.Fatalw("database probe failed", "err", err)
	}
	defer db.Close()

	if err := database.Check(ctx, db); err != nil {
		zlog.Fatalw("database ping failed", "err", err)
	}
	fmt.Println("database reachable")
}

// serve runs the ops server until SIGINT or SIGTERM.
func serve(zlog *zap.SugaredLogger, addr string) {
	srv := opsserver.New(addr)

	go func() {
		zlog.Infow("ops server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatalw("ops server failed", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	zlog.Infow("ops server stopped")
}
