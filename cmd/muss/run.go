package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muss-lang/muss/internal/collab/analysis"
	"github.com/muss-lang/muss/internal/collab/fsdb"
	"github.com/muss-lang/muss/internal/collab/mpd"
	"github.com/muss-lang/muss/internal/collab/sqldb"
	"github.com/muss-lang/muss/internal/interp"
	"github.com/muss-lang/muss/internal/runtime"
)

var (
	runPlaylistOut string
	runDSN         string
	runMpdAddr     string
	runCacheAddr   string
	runCacheTTL    time.Duration
	runVerbose     bool
)

func init() {
	runCmd.Flags().StringVar(&runPlaylistOut, "playlist", "", "write an m3u8 playlist of collected filename fields to this path")
	runCmd.Flags().StringVar(&runDSN, "db", "", "database DSN, equivalent to running sql_init(dsn=...) as the script's first statement")
	runCmd.Flags().StringVar(&runMpdAddr, "mpd", "", "MPD daemon address (host:port) for the mpd source and radio sorter")
	runCmd.Flags().StringVar(&runCacheAddr, "cache", "", "redis address to memoize sql()/simple_sql() result sets by query text")
	runCmd.Flags().DurationVar(&runCacheTTL, "cache-ttl", 5*time.Minute, "how long a cached query result stays valid")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "enable debug logging of each executed statement")
}

var runCmd = &cobra.Command{
	Use:   "run <script.muss|->",
	Short: "Run a Muss script",
	Long:  "Tokenize, parse and execute a Muss script one statement at a time, printing the resulting items.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := readSource(args[0])
		if err != nil {
			return err
		}

		logger, err := newLogger(runVerbose)
		if err != nil {
			return fmt.Errorf("setting up logger: %w", err)
		}
		defer logger.Sync()

		ctx, closeCtx, err := buildContext()
		if err != nil {
			return err
		}
		defer closeCtx()

		if runDSN != "" {
			if db, ok := ctx.Database.(*sqldb.Querier); ok {
				if err := db.Open("", runDSN); err != nil {
					return fmt.Errorf("connecting to --db: %w", err)
				}
			}
		}
		if runCacheAddr != "" {
			if db, ok := ctx.Database.(*sqldb.Querier); ok {
				if err := db.EnableCache(runCacheAddr, runCacheTTL); err != nil {
					return fmt.Errorf("connecting to --cache: %w", err)
				}
			}
		}
		if runMpdAddr != "" {
			if client, ok := ctx.Mpd.(*mpd.Client); ok {
				if err := client.Connect(runMpdAddr); err != nil {
					return fmt.Errorf("connecting to --mpd: %w", err)
				}
			}
		}

		runner := interp.NewRunner(logger)
		result, err := runner.Run(source, ctx)
		if err != nil {
			return fmt.Errorf("script failed: %w", err)
		}

		warn := color.New(color.FgYellow).FprintfFunc()
		for _, w := range result.Warnings {
			warn(os.Stderr, "warning: %s\n", w.Error())
		}
		for _, item := range result.Items {
			fmt.Println(formatItem(item))
		}

		if runPlaylistOut != "" {
			if err := writeM3U8(runPlaylistOut, result.Items); err != nil {
				return fmt.Errorf("writing playlist: %w", err)
			}
		}

		if len(result.Warnings) > 0 {
			return fmt.Errorf("%d runtime error(s) during script execution", len(result.Warnings))
		}
		return nil
	},
}

// readSource reads a script from path, or from stdin when path is "-"; a
// path that does not exist on disk is taken as the inline script text.
func readSource(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return path, nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %q: %w", path, err)
	}
	return string(data), nil
}

// newLogger mirrors the zap-with-Nop-fallback pattern: verbose runs get a
// development logger, quiet runs get a no-op one rather than failing the
// whole command over a logging setup error.
func newLogger(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop(), nil
	}
	return logger, nil
}

// buildContext wires every collaborator backend into a fresh runtime.Context.
// Analysis and Mpd are always present (the analysis stub needs no
// connection; the mpd source and radio sorter report a runtime error until
// --mpd connects the client), the database starts unconnected until
// sql_init or --db supplies a DSN.
func buildContext() (*runtime.Context, func(), error) {
	db := sqldb.New()
	fs := fsdb.New()
	az := analysis.New()
	mp := mpd.New()

	ctx := runtime.NewContext(db, fs, az, mp)
	closer := func() {
		db.Close()
		mp.Close()
	}
	return ctx, closer, nil
}

// formatItem renders an item's fields in sorted-key order, since Item
// deliberately doesn't keep insertion order.
func formatItem(item runtime.Item) string {
	var b strings.Builder
	b.WriteString("Item(")
	for i, k := range item.Keys() {
		if i > 0 {
			b.WriteString(", ")
		}
		v, _ := item.Field(k)
		fmt.Fprintf(&b, "%s=%s", k, v.AsStr())
	}
	b.WriteString(")")
	return b.String()
}

// writeM3U8 writes every item's "filename" field as a playlist entry,
// skipping items that have none (the item wasn't filesystem-derived).
func writeM3U8(path string, items []runtime.Item) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, "#EXTM3U"); err != nil {
		return err
	}
	for _, item := range items {
		field, ok := item.Field("filename")
		if !ok {
			continue
		}
		name, ok := field.Str()
		if !ok {
			continue
		}
		if _, err := fmt.Fprintln(f, name); err != nil {
			return err
		}
	}
	return nil
}
