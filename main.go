package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"strings"
	"syscall"

	"github.com/cterence/uartemu/internal/endpoint"
	"github.com/cterence/uartemu/internal/log"
	"github.com/cterence/uartemu/internal/machine"
	"github.com/cterence/uartemu/internal/machine/components/bus"
	"github.com/cterence/uartemu/internal/machine/components/program"
	"github.com/cterence/uartemu/internal/machine/components/uart"
	"github.com/urfave/cli/v3"
)

const (
	PPROF_FILE = "./profile.tar.gz"

	DEFAULT_PORT_BAUD = 115200
)

type settings struct {
	endpoints endpoint.Config

	divisor      uint16
	setDivisor   bool
	peripheralHz int
	hostHz       int
	maxCycles    uint64
	tracePath    string
	uartStart    uint16
}

func main() {
	var pprofChan chan struct{}

	s := settings{
		divisor:      uart.DEFAULT_DIVISOR,
		peripheralHz: uart.DEFAULT_PERIPHERAL_HZ,
		hostHz:       uart.DEFAULT_HOST_HZ,
		uartStart:    bus.DEFAULT_UART_START,
	}

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:    "pprof",
			Aliases: []string{"p"},
			Usage:   "create pprof file on exit at " + PPROF_FILE,
			Action: func(ctx context.Context, _ *cli.Command, b bool) error {
				pprofChan = make(chan struct{})

				go func() {
					defer close(pprofChan)

					f, err := os.Create(PPROF_FILE)
					if err != nil {
						fmt.Printf("failed to create pprof file: %v\n", err)
						return
					}

					defer func() {
						if err := f.Close(); err != nil {
							fmt.Printf("failed to close pprof file: %v\n", err)
						}
					}()

					if err := pprof.StartCPUProfile(f); err != nil {
						fmt.Printf("failed to start CPU profile: %v\n", err)
						return
					}

					defer pprof.StopCPUProfile()

					<-ctx.Done()
				}()

				return nil
			},
		},

		&cli.BoolFlag{
			Name:    "debug",
			Aliases: []string{"d"},
			Usage:   "print emulator debug logs",
			Sources: cli.EnvVars("UARTEMU_DEBUG"),
			Action: func(_ context.Context, _ *cli.Command, b bool) error {
				log.DebugEnabled = b

				return nil
			},
		},

		&cli.StringFlag{
			Name:        "in",
			Aliases:     []string{"i"},
			Usage:       "receive bytes from `FILE` (.zip, .7z and .gz are decompressed, - for stdin)",
			TakesFile:   true,
			Sources:     cli.EnvVars("UARTEMU_IN"),
			Destination: &s.endpoints.In,
		},

		&cli.StringFlag{
			Name:        "out",
			Aliases:     []string{"o"},
			Usage:       "transmit bytes to `FILE` (- for stdout)",
			Value:       "-",
			TakesFile:   true,
			Sources:     cli.EnvVars("UARTEMU_OUT"),
			Destination: &s.endpoints.Out,
		},

		&cli.StringFlag{
			Name:        "port",
			Usage:       "bridge the UART to the host serial `DEVICE` instead of files",
			Sources:     cli.EnvVars("UARTEMU_PORT"),
			Destination: &s.endpoints.Port,
		},

		&cli.IntFlag{
			Name:        "port-baud",
			Usage:       "baud rate of the host serial device",
			Value:       DEFAULT_PORT_BAUD,
			Destination: &s.endpoints.PortBaud,
		},

		&cli.StringFlag{
			Name:        "ws",
			Usage:       "serve the UART to websocket clients on `ADDR` at " + endpoint.WEBSOCKET_PATH,
			Sources:     cli.EnvVars("UARTEMU_WS"),
			Destination: &s.endpoints.WS,
		},

		&cli.UintFlag{
			Name:  "divisor",
			Usage: "baud divisor programmed through the divisor registers, baud = uart-hz / (divisor + 1)",
			Value: uart.DEFAULT_DIVISOR,
			Action: func(_ context.Context, _ *cli.Command, v uint) error {
				if v > 0xFFFF {
					return fmt.Errorf("divisor out of range: %d", v)
				}

				s.divisor = uint16(v)
				s.setDivisor = true

				return nil
			},
		},

		&cli.IntFlag{
			Name:        "uart-hz",
			Usage:       "UART peripheral clock",
			Value:       uart.DEFAULT_PERIPHERAL_HZ,
			Destination: &s.peripheralHz,
		},

		&cli.IntFlag{
			Name:        "host-hz",
			Usage:       "host CPU clock, one UART step per host cycle",
			Value:       uart.DEFAULT_HOST_HZ,
			Destination: &s.hostHz,
		},

		&cli.Uint64Flag{
			Name:        "cycles",
			Aliases:     []string{"c"},
			Usage:       "stop after this many host cycles (0 runs until done)",
			Destination: &s.maxCycles,
		},

		&cli.StringFlag{
			Name:        "trace",
			Usage:       "write UART register accesses to `FILE`",
			TakesFile:   true,
			Destination: &s.tracePath,
		},

		&cli.UintFlag{
			Name:  "uart-addr",
			Usage: "address of the first UART register",
			Value: bus.DEFAULT_UART_START,
			Action: func(_ context.Context, _ *cli.Command, v uint) error {
				if v > 0xFFFC {
					return fmt.Errorf("uart address out of range: %x", v)
				}

				s.uartStart = uint16(v)

				return nil
			},
		},
	}

	cmd := &cli.Command{
		Name:  "uartemu",
		Usage: "cycle-timed UART peripheral emulator, echoes every received byte",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(ctx, &s, func(opts []program.Option) machine.Option {
				return machine.WithEcho(opts...)
			})
		},
		Commands: []*cli.Command{
			{
				Name:      "send",
				Usage:     "transmit a message through the UART",
				ArgsUsage: "<text>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-poll",
						Usage: "write without waiting for the transmitter, dropping bytes sent while busy",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					text := strings.Join(cmd.Args().Slice(), " ")

					if text == "" {
						fmt.Printf("error: no message given\n\n")
						return cli.ShowSubcommandHelp(cmd)
					}

					poll := !cmd.Bool("no-poll")

					return run(ctx, &s, func(opts []program.Option) machine.Option {
						return machine.WithTransmit([]uint8(text), poll, opts...)
					})
				},
			},
			{
				Name:  "timing",
				Usage: "print baud rate and transfer timing for the configured clocks",
				Action: func(_ context.Context, _ *cli.Command) error {
					if err := uart.CheckClocks(s.peripheralHz, s.hostHz); err != nil {
						return err
					}

					u := &uart.UART{}
					u.Init(uart.WithClocks(s.peripheralHz, s.hostHz), uart.WithDivisor(s.divisor))

					fmt.Printf("divisor:        %d\n", u.Divisor())
					fmt.Printf("baud:           %d\n", u.Baud())
					fmt.Printf("steps per byte: %d\n", u.StepsPerByte())

					return nil
				},
			},
		},
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.Run(ctx, os.Args)

	cancel()

	// Stop profiling if active
	if pprofChan != nil {
		<-pprofChan
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "runtime error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, s *settings, programOption func([]program.Option) machine.Option) (err error) {
	if err := uart.CheckClocks(s.peripheralHz, s.hostHz); err != nil {
		return err
	}

	ends, err := endpoint.Open(ctx, s.endpoints)
	if err != nil {
		return fmt.Errorf("failed to open endpoints: %w", err)
	}

	defer func() {
		err = errors.Join(err, ends.Close())
	}()

	digest := endpoint.NewDigestSink(ends.Sink)

	var progOpts []program.Option
	if s.setDivisor {
		progOpts = append(progOpts, program.WithDivisor(s.divisor))
	}

	opts := []machine.Option{
		machine.WithClocks(s.peripheralHz, s.hostHz),
		machine.WithUARTOptions(uart.WithSource(ends.Source), uart.WithSink(digest)),
		machine.WithUARTStart(s.uartStart),
		machine.WithMaxCycles(s.maxCycles),
		programOption(progOpts),
	}

	if s.endpoints.Port != "" || s.endpoints.WS != "" || s.endpoints.In == "-" {
		opts = append(opts, machine.WithRealtime())
	}

	if s.tracePath != "" {
		f, err := os.Create(s.tracePath)
		if err != nil {
			return fmt.Errorf("failed to create trace file: %w", err)
		}

		defer f.Close()

		opts = append(opts, machine.WithTrace(f))
	}

	res, err := machine.New(opts...).Run(ctx)
	if err != nil {
		return err
	}

	log.Debug("[main] cycles: %d, tx: %d, rx: %d, overruns: %d, digest: %016x",
		res.Cycles, res.UART.Transmitted, res.UART.Received, res.UART.Overruns, digest.Sum64())

	return nil
}
