package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/ruediste/micro-blocks/bytecode"
	"github.com/ruediste/micro-blocks/config"
	"github.com/ruediste/micro-blocks/image"
	"github.com/ruediste/micro-blocks/machine"
	"github.com/ruediste/micro-blocks/modules"
	"github.com/ruediste/micro-blocks/modules/pin"
	"github.com/ruediste/micro-blocks/modules/rgbled"
	"github.com/ruediste/micro-blocks/modules/wasmext"
	"github.com/ruediste/micro-blocks/resource"
)

func main() {
	var (
		imageFile   = flag.String("image", "", "Path to code image")
		configFile  = flag.String("config", "", "Path to TOML host configuration")
		ticks       = flag.Int("ticks", 0, "Run this many scheduler ticks, then stop")
		duration    = flag.Duration("duration", 0, "Run in real time for this long (0 until interrupted)")
		disasm      = flag.Bool("disasm", false, "Disassemble every thread and exit")
		dump        = flag.String("dump", "", "Write the final machine status as CBOR to this file")
		triggers    = flag.String("trigger", "", "Callback thread ids to trigger after load (1,2,...)")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *imageFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: run -image <file.mb> [-config host.toml] [-ticks n | -duration d] [-dump status.cbor]")
		fmt.Fprintln(os.Stderr, "       run -image <file.mb> -disasm")
		fmt.Fprintln(os.Stderr, "       run -image <file.mb> -i  (interactive mode)")
		os.Exit(1)
	}

	data, err := os.ReadFile(*imageFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: read image: %v\n", err)
		os.Exit(1)
	}

	if *disasm {
		if err := disassemble(data); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg := config.Default()
	if *configFile != "" {
		if cfg, err = config.Load(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*imageFile, data, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(data, cfg, *ticks, *duration, *triggers, *dump); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// host is a machine with the standard modules and configured extensions.
type host struct {
	m      *machine.Machine
	set    *modules.Set
	driver *pin.SimDriver
	engine *wasmext.Engine
	log    *zap.Logger
}

type hostOptions struct {
	out     io.Writer
	printer func(string)
	onFault func(thread uint16, err error)
	quiet   bool
}

func newHost(ctx context.Context, cfg *config.Config, opts hostOptions) (*host, error) {
	log, err := cfg.Logger()
	if err != nil {
		return nil, err
	}
	if opts.quiet {
		log = zap.NewNop()
	}
	machine.SetLogger(log)
	resource.SetLogger(log)

	driver, err := cfg.SimDriver()
	if err != nil {
		return nil, err
	}

	mo := modules.Options{
		Pins: driver,
		OnShow: func(f rgbled.Frame) {
			log.Debug("rgb frame", zap.Uint16("strip", f.ID), zap.Int("pixels", len(f.Pixels)))
		},
	}
	if opts.printer != nil {
		mo.Out = lineWriter(opts.printer)
	} else {
		mo.Out = opts.out
	}
	set := modules.Standard(mo)

	mc := cfg.MachineConfig()
	mc.OnFault = opts.onFault
	m := machine.New(mc)
	if err := m.Use(set.Modules()...); err != nil {
		return nil, err
	}

	h := &host{m: m, set: set, driver: driver, log: log}
	if len(cfg.Extensions) > 0 {
		h.engine = wasmext.NewEngine(ctx, wasmext.Config{})
		for _, e := range cfg.Extensions {
			wasm, err := os.ReadFile(e.Path)
			if err != nil {
				h.close(ctx)
				return nil, fmt.Errorf("read extension: %w", err)
			}
			name := e.Name
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(e.Path), filepath.Ext(e.Path))
			}
			x, err := h.engine.Load(ctx, name, wasm)
			if err != nil {
				h.close(ctx)
				return nil, err
			}
			if err := m.Use(x); err != nil {
				h.close(ctx)
				return nil, err
			}
		}
	}
	return h, nil
}

func (h *host) close(ctx context.Context) {
	if h.engine != nil {
		_ = h.engine.Close(ctx)
	}
	_ = h.log.Sync()
}

// lineWriter passes every write to fn without its trailing newline.
type lineWriter func(string)

func (w lineWriter) Write(p []byte) (int, error) {
	w(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}

func run(data []byte, cfg *config.Config, ticks int, duration time.Duration, triggers, dump string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	h, err := newHost(ctx, cfg, hostOptions{
		out: os.Stdout,
		onFault: func(thread uint16, err error) {
			fmt.Fprintf(os.Stderr, "thread %d halted: %v\n", thread, err)
		},
	})
	if err != nil {
		return err
	}
	defer h.close(ctx)

	if err := h.m.Load(data); err != nil {
		h.log.Error("load failed", zap.Error(err))
		return fmt.Errorf("load image: %w", err)
	}

	ids, err := parseIDs(triggers)
	if err != nil {
		return err
	}
	for _, id := range ids {
		h.m.TriggerCallback(id)
	}

	switch {
	case ticks > 0:
		for i := 0; i < ticks && ctx.Err() == nil; i++ {
			h.m.Tick(ctx)
		}
	default:
		if duration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, duration)
			defer cancel()
		}
		_ = h.m.Run(ctx)
	}

	printStatus(h.m.Status())

	if dump != "" {
		enc, err := machine.EncodeStatus(h.m.Status())
		if err != nil {
			return err
		}
		if err := os.WriteFile(dump, enc, 0o644); err != nil {
			return fmt.Errorf("write status: %w", err)
		}
	}
	return nil
}

func parseIDs(s string) ([]uint16, error) {
	if s == "" {
		return nil, nil
	}
	var ids []uint16
	for _, f := range strings.Split(s, ",") {
		v, err := strconv.ParseUint(strings.TrimSpace(f), 10, 16)
		if err != nil {
			return nil, fmt.Errorf("trigger id %q: %w", f, err)
		}
		ids = append(ids, uint16(v))
	}
	return ids, nil
}

func printStatus(s *machine.Status) {
	fmt.Printf("\nGeneration %d, memory %d bytes, %d live resources\n", s.Generation, s.MemorySize, s.Resources)
	for _, t := range s.Threads {
		fmt.Printf("  thread %d: %-8s pc=0x%04x sp=0x%04x", t.ID, t.State, t.PC, t.SP)
		if t.Fault != "" {
			fmt.Printf(" fault: %s", t.Fault)
		}
		fmt.Println()
	}
}

func disassemble(data []byte) error {
	im, err := image.Parse(data)
	if err != nil {
		return err
	}
	fmt.Printf("Image: %d threads, memory %d bytes, %d bytes\n",
		im.Header.ThreadCount, im.Header.MemorySize, im.Len())

	for i, e := range im.Threads {
		start := int(e.CodeOffset)
		end := threadEnd(im, start)
		fmt.Printf("\nthread %d (code 0x%04x, stack 0x%04x):\n", i, e.CodeOffset, e.StackOffset)
		fmt.Print(bytecode.Disassemble(im.Code(), start, end))
	}
	return nil
}

// threadEnd returns the next higher code offset, or the end of the image.
func threadEnd(im *image.Image, start int) int {
	offsets := make([]int, 0, len(im.Threads))
	for _, e := range im.Threads {
		offsets = append(offsets, int(e.CodeOffset))
	}
	slices.Sort(offsets)
	for _, o := range offsets {
		if o > start {
			return o
		}
	}
	return im.Len()
}
