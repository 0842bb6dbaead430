// Command fablechain-tracker runs the stateless peer-directory service
// described in spec.md §4.1.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"gopkg.in/urfave/cli.v1"

	"github.com/fablechain/fablechain/internal/config"
	"github.com/fablechain/fablechain/internal/tracker"
	"github.com/fablechain/fablechain/log"
)

var (
	hostFlag = cli.StringFlag{
		Name:  "host",
		Usage: "address to listen on",
		Value: "127.0.0.1",
	}
	portFlag = cli.IntFlag{
		Name:  "port",
		Usage: "port to listen on",
		Value: 5500,
	}
	livenessTTLFlag = cli.IntFlag{
		Name:  "liveness-ttl",
		Usage: "seconds a registered node is considered live without a heartbeat",
		Value: int(tracker.DefaultLivenessTTL / time.Second),
	}
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "optional TOML defaults file",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "fablechain-tracker"
	app.Usage = "run the fablechain peer-directory tracker"
	app.Flags = []cli.Flag{hostFlag, portFlag, livenessTTLFlag, configFlag}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if coder, ok := err.(cli.ExitCoder); ok {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	host := ctx.String(hostFlag.Name)
	port := ctx.Int(portFlag.Name)
	livenessTTL := time.Duration(ctx.Int(livenessTTLFlag.Name)) * time.Second

	if file := ctx.String(configFlag.Name); file != "" {
		var fileCfg config.TrackerFile
		if err := config.LoadTracker(file, &fileCfg); err != nil {
			return cli.NewExitError(fmt.Sprintf("loading config: %v", err), 2)
		}
		if !ctx.IsSet(hostFlag.Name) && fileCfg.Host != "" {
			host = fileCfg.Host
		}
		if !ctx.IsSet(portFlag.Name) && fileCfg.Port != 0 {
			port = fileCfg.Port
		}
		if !ctx.IsSet(livenessTTLFlag.Name) && fileCfg.LivenessTTLSeconds != 0 {
			livenessTTL = time.Duration(fileCfg.LivenessTTLSeconds) * time.Second
		}
	}

	dir := tracker.NewDirectory(livenessTTL)
	srv := tracker.NewServer(dir)

	addr := fmt.Sprintf("%s:%d", host, port)
	log.Info("tracker listening", "address", addr, "liveness_ttl", livenessTTL)

	if err := http.ListenAndServe(addr, srv); err != nil {
		return cli.NewExitError(fmt.Sprintf("cannot bind %s: %v", addr, err), 1)
	}
	return nil
}
