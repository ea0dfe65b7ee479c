package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/gops/agent"

	"github.com/viant/biglist/biglist"
	"github.com/viant/biglist/externalbiglist"
	"github.com/viant/biglist/multiplexer"
	"github.com/viant/biglist/upath"
)

func main() {
	startGops()
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "append":
		appendCmd(os.Args[2:])
	case "cat":
		catCmd(os.Args[2:])
	case "stat":
		statCmd(os.Args[2:])
	case "gc":
		gcCmd(os.Args[2:])
	case "external":
		externalCmd(os.Args[2:])
	case "mux":
		muxCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: biglist <command> [options]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  append    Append lines of stdin as strings into a list")
	fmt.Fprintln(os.Stderr, "  cat       Print every element of a list, one per line")
	fmt.Fprintln(os.Stderr, "  stat      Print a list's manifest summary")
	fmt.Fprintln(os.Stderr, "  gc        Report (and optionally delete) orphan data files")
	fmt.Fprintln(os.Stderr, "  external  Discover externally-written Parquet files into a read-only list")
	fmt.Fprintln(os.Stderr, "  mux       Demo a single-session work-distribution run over stdin lines")
}

func appendCmd(args []string) {
	flags := flag.NewFlagSet("append", flag.ExitOnError)
	root := flags.String("root", "", "store root path (required)")
	batchSize := flags.Int("batch", 1000, "implicit flush threshold")
	format := flags.String("format", "", "storage format (new store only, default pickle-zstd)")
	debugSleep := flags.Int("debug-sleep", 0, "debug: sleep N seconds before execution (for gops)")
	flags.Parse(args)

	if *root == "" {
		flags.Usage()
		os.Exit(2)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	maybeDebugSleep("append", *debugSleep)

	rootPath := upath.New(*root)
	bl, err := openOrCreate(ctx, rootPath, *batchSize, *format)
	if err != nil {
		log.Fatalf("append: %v", err)
	}

	scanner := bufio.NewScanner(os.Stdin)
	var n int
	for scanner.Scan() {
		if err := bl.Append(ctx, scanner.Text()); err != nil {
			log.Fatalf("append: %v", err)
		}
		n++
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("append: read stdin: %v", err)
	}
	if err := bl.Close(ctx); err != nil {
		log.Fatalf("append: flush: %v", err)
	}
	log.Printf("append: wrote %d lines to %s", n, *root)
}

func openOrCreate(ctx context.Context, root upath.Path, batchSize int, format string) (*biglist.BigList[string], error) {
	exists, err := root.Join("info.json").Exists(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		return biglist.Open[string](ctx, root, biglist.WithBatchSize(batchSize))
	}
	opts := []biglist.Option{biglist.WithBatchSize(batchSize)}
	if format != "" {
		opts = append(opts, biglist.WithStorageFormat(format))
	}
	return biglist.New[string](ctx, root, opts...)
}

func catCmd(args []string) {
	flags := flag.NewFlagSet("cat", flag.ExitOnError)
	root := flags.String("root", "", "store root path (required)")
	debugSleep := flags.Int("debug-sleep", 0, "debug: sleep N seconds before execution (for gops)")
	flags.Parse(args)

	if *root == "" {
		flags.Usage()
		os.Exit(2)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	maybeDebugSleep("cat", *debugSleep)

	bl, err := biglist.Open[string](ctx, upath.New(*root))
	if err != nil {
		log.Fatalf("cat: %v", err)
	}
	for line, err := range bl.Each(ctx) {
		if err != nil {
			log.Fatalf("cat: %v", err)
		}
		fmt.Println(line)
	}
}

func statCmd(args []string) {
	flags := flag.NewFlagSet("stat", flag.ExitOnError)
	root := flags.String("root", "", "store root path (required)")
	debugSleep := flags.Int("debug-sleep", 0, "debug: sleep N seconds before execution (for gops)")
	flags.Parse(args)

	if *root == "" {
		flags.Usage()
		os.Exit(2)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	maybeDebugSleep("stat", *debugSleep)

	bl, err := biglist.Open[string](ctx, upath.New(*root))
	if err != nil {
		log.Fatalf("stat: %v", err)
	}
	fmt.Printf("root=%s format=%s batch=%d len=%d\n", *root, bl.StorageFormat(), bl.BatchSize(), bl.Len())
}

func gcCmd(args []string) {
	flags := flag.NewFlagSet("gc", flag.ExitOnError)
	root := flags.String("root", "", "store root path (required)")
	deleteOrphans := flags.Bool("delete", false, "delete orphan data files instead of only reporting them")
	debugSleep := flags.Int("debug-sleep", 0, "debug: sleep N seconds before execution (for gops)")
	flags.Parse(args)

	if *root == "" {
		flags.Usage()
		os.Exit(2)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	maybeDebugSleep("gc", *debugSleep)

	orphans, err := biglist.GC(ctx, upath.New(*root),
		biglist.WithDeleteOrphans(*deleteOrphans),
		biglist.WithGCLogf(log.Printf),
	)
	if err != nil {
		log.Fatalf("gc: %v", err)
	}
	log.Printf("gc: %d orphan file(s)", len(orphans))
}

func externalCmd(args []string) {
	flags := flag.NewFlagSet("external", flag.ExitOnError)
	dataRoot := flags.String("data", "", "directory of externally-written data files (required)")
	meta := flags.String("meta", "", "path to persist discovery metadata (required)")
	format := flags.String("format", "parquet", "storage format of the discovered files")
	debugSleep := flags.Int("debug-sleep", 0, "debug: sleep N seconds before execution (for gops)")
	flags.Parse(args)

	if *dataRoot == "" || *meta == "" {
		flags.Usage()
		os.Exit(2)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	maybeDebugSleep("external", *debugSleep)

	ebl, err := externalbiglist.Open(ctx, []upath.Path{upath.New(*dataRoot)}, upath.New(*meta), *format)
	if err != nil {
		log.Fatalf("external: %v", err)
	}
	log.Printf("external: files=%d len=%d indexed=%t", ebl.NumFiles(), ebl.Len(), ebl.SupportsIndexing())
}

func muxCmd(args []string) {
	flags := flag.NewFlagSet("mux", flag.ExitOnError)
	path := flags.String("path", "", "multiplexer store path (required)")
	workerID := flags.String("worker", "", "worker id (optional, random if empty)")
	debugSleep := flags.Int("debug-sleep", 0, "debug: sleep N seconds before execution (for gops)")
	flags.Parse(args)

	if *path == "" {
		flags.Usage()
		os.Exit(2)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	maybeDebugSleep("mux", *debugSleep)

	muxPath := upath.New(*path)
	mux, sessionID, err := openOrSeedMultiplexer(ctx, muxPath)
	if err != nil {
		log.Fatalf("mux: %v", err)
	}

	session, err := mux.OpenSession(ctx, sessionID, *workerID)
	if err != nil {
		log.Fatalf("mux: open session: %v", err)
	}
	for item, err := range session.Iter(ctx) {
		if err != nil {
			log.Fatalf("mux: %v", err)
		}
		fmt.Printf("worker=%s item=%s\n", session.WorkerID(), item)
	}
}

// openOrSeedMultiplexer reads stdin lines into a fresh multiplexer the
// first time *path is used, or attaches a new read session to an
// existing one otherwise.
func openOrSeedMultiplexer(ctx context.Context, path upath.Path) (*multiplexer.Multiplexer[string], string, error) {
	exists, err := path.Join("info.json").Exists(ctx)
	if err != nil {
		return nil, "", err
	}
	if exists {
		mux, err := multiplexer.Open[string](ctx, path)
		if err != nil {
			return nil, "", err
		}
		sessionID, err := mux.CreateReadSession(ctx)
		return mux, sessionID, err
	}

	scanner := bufio.NewScanner(os.Stdin)
	var items []string
	for scanner.Scan() {
		items = append(items, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, "", fmt.Errorf("read stdin: %w", err)
	}
	mux, err := multiplexer.New[string](ctx, items, path)
	if err != nil {
		return nil, "", err
	}
	sessionID, err := mux.CreateReadSession(ctx)
	return mux, sessionID, err
}

func maybeDebugSleep(cmd string, seconds int) {
	if seconds <= 0 {
		seconds = debugSleepFromEnv()
	}
	if seconds <= 0 {
		return
	}
	log.Printf("debug: cmd=%s pid=%d sleep=%ds", cmd, os.Getpid(), seconds)
	time.Sleep(time.Duration(seconds) * time.Second)
}

func startGops() {
	if err := agent.Listen(agent.Options{ShutdownCleanup: true}); err != nil {
		log.Printf("gops: %v", err)
	}
}

func debugSleepFromEnv() int {
	val := strings.TrimSpace(os.Getenv("BIGLIST_DEBUG_SLEEP"))
	if val == "" {
		return 0
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
