// Command gbstub runs a GDB remote serial protocol stub in front of a
// bare Game Boy CPU/memory model, for attaching gdb over TCP to debug
// a loaded ROM image one instruction at a time.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/flagbot/gbstub/internal/acceptor"
	"github.com/flagbot/gbstub/internal/gbcpu"
	"github.com/flagbot/gbstub/internal/rsp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	listenAddr string
	romPath    string
	verbose    bool
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gbstub",
		Short: "GDB remote serial protocol stub for a Game Boy CPU core",
		RunE:  run,
	}
	cmd.Flags().StringVarP(&listenAddr, "listen", "l", "0.0.0.0:55555", "address to listen for gdb connections on")
	cmd.Flags().StringVarP(&romPath, "rom", "r", "", "path to a Game Boy ROM image to load")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")
	return cmd
}

// newLogger builds the stub's logger: development config (human
// readable, debug level) when -v is set or GBSTUB_WIRE_LOG is set in
// the environment, production config (JSON, info level) otherwise.
func newLogger() (*zap.Logger, error) {
	if verbose || os.Getenv("GBSTUB_WIRE_LOG") != "" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to construct logger: %w", err)
	}
	defer log.Sync()

	cpu := gbcpu.New()
	if romPath != "" {
		data, err := os.ReadFile(romPath)
		if err != nil {
			return fmt.Errorf("failed to read rom image: %w", err)
		}
		cpu.LoadROM(data)
		log.Info("loaded rom", zap.String("path", romPath), zap.Int("bytes", len(data)))
	}

	debugger := rsp.NewDebugger(cpu, log.Named("rsp"))
	acc := acceptor.New(listenAddr, debugger, log.Named("acceptor"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go runCPU(ctx, cpu, log)

	if err := acc.Serve(ctx); err != nil {
		return fmt.Errorf("failed to start gdb server: %w", err)
	}
	return nil
}

// runCPU drives the CPU's instruction loop until ctx is canceled. The
// loop itself has nothing to do with the protocol; it exists purely
// to give the debugger's step hook a thread to halt and resume.
func runCPU(ctx context.Context, cpu *gbcpu.CPU, log *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			cpu.Step()
		}
	}
}
