// Command sheetcore starts the spreadsheet evaluation core's Edit RPC
// server: a websocket endpoint plus, if configured, a ZeroMQ publisher
// for out-of-process observers and an autosave batcher subscribed to the
// in-process event stream.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"sheetcore/autosave"
	"sheetcore/seed"
	"sheetcore/spreadsheet"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("sheetcore", flag.ContinueOnError)
	addr := fs.String("addr", "", "listen address, e.g. :8080 (overrides config/env)")
	configPath := fs.String("config", "", "path to a JSON config file")
	demo := fs.String("demo", "intro", "seed demo to load on startup: intro, matrix, or none")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := spreadsheet.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sheetcore: %v\n", err)
		return 1
	}
	if *addr != "" {
		cfg.ListenAddr = normalizeAddr(*addr)
	}

	cells, err := newCellStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sheetcore: %v\n", err)
		return 1
	}

	workbooks := spreadsheet.NewMemWorkbookStore(cells)
	notifier := spreadsheet.NewNotifier()
	if cfg.ZMQPubAddr != "" {
		if err := notifier.EnableZMQ(context.Background(), cfg.ZMQPubAddr); err != nil {
			fmt.Fprintf(os.Stderr, "sheetcore: %v\n", err)
			return 1
		}
	}
	coordinator := spreadsheet.NewCoordinator(cells, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wb, err := workbooks.CreateWorkbook(ctx, "default")
	if err != nil {
		fmt.Fprintf(os.Stderr, "sheetcore: %v\n", err)
		return 1
	}
	sheet, err := workbooks.CreateSheet(ctx, wb.ID, "Sheet1", spreadsheet.DefaultRowCount, spreadsheet.DefaultColumnCount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sheetcore: %v\n", err)
		return 1
	}

	if err := loadDemo(ctx, *demo, coordinator, sheet); err != nil {
		fmt.Fprintf(os.Stderr, "sheetcore: seed: %v\n", err)
		return 1
	}

	if cfg.Autosave.Enabled {
		sink := &logSink{}
		batcher := autosave.NewBatcher(sheet.ID, cells, notifier, sink, cfg.Autosave.IntervalMs, cfg.Autosave.BatchSize)
		go batcher.Run(ctx)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
	}()

	srv := spreadsheet.NewServer(workbooks, cells, coordinator, notifier)
	if err := srv.Start(cfg.ListenAddr); err != nil {
		fmt.Fprintf(os.Stderr, "sheetcore: server error: %v\n", err)
		return 1
	}
	return 0
}

// newCellStore picks Postgres when a DSN is configured, in-memory
// otherwise — the default embedding most tests and local runs use.
func newCellStore(cfg spreadsheet.Config) (spreadsheet.CellStore, error) {
	if cfg.DatabaseDSN == "" {
		return spreadsheet.NewMemStore(), nil
	}
	return spreadsheet.NewPostgresStore(context.Background(), cfg.DatabaseDSN)
}

func loadDemo(ctx context.Context, name string, coordinator *spreadsheet.Coordinator, sheet spreadsheet.Sheet) error {
	switch name {
	case "", "none":
		return nil
	case "intro":
		return seed.LoadIntro(ctx, coordinator, sheet)
	case "matrix":
		return seed.LoadMatrix(ctx, coordinator, sheet, 10)
	default:
		return fmt.Errorf("unknown demo %q", name)
	}
}

// normalizeAddr binds to all interfaces rather than "localhost" and
// accepts a bare port number.
func normalizeAddr(addr string) string {
	addr = strings.Replace(addr, "localhost", "", 1)
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}
	return addr
}

// logSink is the autosave.Sink used when no external persistence target
// is configured; it exists so autosave.enabled has an observable effect
// out of the box instead of silently doing nothing.
type logSink struct{}

func (logSink) Save(_ context.Context, cells []spreadsheet.Cell) error {
	fmt.Fprintf(os.Stderr, "autosave: flushed %d cell(s)\n", len(cells))
	return nil
}
