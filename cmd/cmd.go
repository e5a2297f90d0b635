package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/netmesh/peerq/internal/config"
	"github.com/netmesh/peerq/internal/dashboard"
)

const (
	ServiceName      = "peerqd"
	ServiceNamespace = "netmesh"
)

var (
	version        = "0.0.0"
	commit         = "hash"
	commitDate     = time.Now().String()
	branch         = "branch"
	buildTimestamp = ""
)

// Run builds the peerqd CLI app: `server` boots the daemon, `stats` attaches
// a live terminal dashboard to a running one.
func Run() error {
	app := &cli.App{
		Name:  ServiceName,
		Usage: "Per-peer outbound message queue daemon",
		Commands: []*cli.Command{
			serverCmd(),
			statsCmd(),
		},
	}

	return app.Run(os.Args)
}

func serverCmd() *cli.Command {
	return &cli.Command{
		Name:    "server",
		Aliases: []string{"s"},
		Usage:   "Run the peerqd daemon",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config_file",
				Usage: "Path to the configuration file",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config_file"))
			if err != nil {
				return err
			}
			app := NewApp(cfg)

			if err := app.Start(c.Context); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			slog.Info("shutting down")
			return app.Stop(context.Background())
		},
	}
}

func statsCmd() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Attach a live terminal dashboard to a running peerqd's diagnostics surface",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Base URL of the peerqd HTTP diagnostics surface",
				Value: "http://localhost:8080",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Poll interval",
				Value: time.Second,
			},
		},
		Action: func(c *cli.Context) error {
			return dashboard.Run(dashboard.Config{
				BaseURL:      c.String("addr"),
				PollInterval: c.Duration("interval"),
			})
		},
	}
}
