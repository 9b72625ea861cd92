// Command clearlinkd drives a ClearLink motor controller from a line-oriented console.
//
// Each stdin line is one command, for example:
//
//	drive 100,0,-50,0
//	stop
//	enable 1,2
//	clear all
//	status
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/arloliu/go-clearlink/cip"
	"github.com/arloliu/go-clearlink/clearlink"
	"github.com/arloliu/go-clearlink/config"
	"github.com/arloliu/go-clearlink/control"
	"github.com/arloliu/go-clearlink/logger"
	"github.com/arloliu/go-clearlink/node"
	"github.com/arloliu/go-clearlink/simulator"
)

var log logger.Logger

func main() {
	app := &cli.App{
		Name:  "clearlinkd",
		Usage: "control a ClearLink step/direction motor controller",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML configuration file",
			},
			&cli.StringFlag{
				Name:    "address",
				Aliases: []string{"a"},
				Usage:   "controller address, overrides device.address",
			},
			&cli.IntFlag{
				Name:  "axes",
				Usage: "number of axes, overrides device.num_axes",
			},
			&cli.BoolFlag{
				Name:  "simulate",
				Usage: "run against the in-memory simulator instead of a device",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn, error or fatal",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "json or console",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	if c.IsSet("address") {
		cfg.Device.Address = c.String("address")
	}
	if c.IsSet("axes") {
		cfg.Device.NumAxes = c.Int("axes")
	}
	if c.IsSet("simulate") {
		cfg.Simulate = c.Bool("simulate")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Log.Format = c.String("log-format")
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func newLogger(cfg config.LogConfig) logger.Logger {
	// both were validated by loadConfig
	level, _ := logger.ParseLevel(cfg.Level)
	format, _ := logger.ParseFormat(cfg.Format)

	return logger.NewSlogWithOptions(logger.SlogOptions{
		Level:  level,
		Format: format,
		Output: os.Stderr,
	})
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	log = newLogger(cfg.Log)
	logger.SetLogger(log)

	n, err := newNode(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	n.Start()
	defer n.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return n.Run(ctx) })
	g.Go(func() error {
		// EOF on stdin ends the session like a signal does.
		defer stop()
		return console(ctx, n, os.Stdin, os.Stdout)
	})

	return g.Wait()
}

func newNode(cfg *config.Config) (*node.Node, error) {
	var transport cip.Transport = cip.GologixTransport{}
	if cfg.Simulate {
		regMap, err := clearlink.RegisterMapByName(cfg.Device.RegisterMap)
		if err != nil {
			return nil, err
		}
		transport = simulator.NewDevice(
			simulator.WithNumAxes(cfg.Device.NumAxes),
			simulator.WithRegisterMap(regMap),
		)
		log.Info("using simulated controller")
	}

	opts, err := cfg.DriverOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts, clearlink.WithLogger(log))

	driverCfg, err := clearlink.NewConfig(cfg.Device.Endpoint(), opts...)
	if err != nil {
		return nil, err
	}

	driver, err := clearlink.NewDriver(driverCfg, transport)
	if err != nil {
		return nil, err
	}

	ctrl, err := control.NewController(driver, log)
	if err != nil {
		return nil, err
	}

	return node.New(ctrl,
		node.WithLogger(log),
		node.WithLoopInterval(cfg.Node.LoopInterval()),
		node.WithReconnectInterval(cfg.Node.ReconnectInterval),
		node.WithDeadman(cfg.Node.Deadman),
		node.WithAutoEnable(cfg.Node.AutoEnable),
		node.WithDefaultAccel(cfg.Node.DefaultAccel),
		node.WithPublisher(node.PublisherFunc(func(st node.Status) {
			log.Debug("status", "connected", st.Connected, "faulted", st.Faulted())
		})),
	)
}

func console(ctx context.Context, n *node.Node, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}

			cmd, err := node.ParseCommand(line)
			if errors.Is(err, node.ErrEmptyCommand) {
				continue
			}
			if err != nil {
				fmt.Fprintln(out, "error:", err)
				continue
			}

			res, err := n.Submit(ctx, cmd)
			if err != nil {
				return nil
			}
			fmt.Fprintln(out, res.Message)
		}
	}
}
