// Command fablechain-node runs a single fablechain participant: the HTTP
// server, mining worker, sync worker, mempool, and persisted chain
// described in spec.md §4.2.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/urfave/cli.v1"

	"github.com/fablechain/fablechain/internal/config"
	"github.com/fablechain/fablechain/internal/consensus/powmine"
	"github.com/fablechain/fablechain/internal/node"
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
		Value: 5501,
	}
	trackerFlag = cli.StringFlag{
		Name:  "tracker",
		Usage: "tracker base URL, e.g. http://127.0.0.1:5500",
	}
	autoMineFlag = cli.BoolFlag{
		Name:  "auto-mine",
		Usage: "mine continuously whenever the mempool is non-empty",
	}
	mineIntervalFlag = cli.IntFlag{
		Name:  "mine-interval",
		Usage: "seconds between auto-mine attempts",
		Value: int(node.DefaultMineInterval / time.Second),
	}
	difficultyFlag = cli.IntFlag{
		Name:  "difficulty",
		Usage: "number of leading hex-zero characters required in a valid block hash",
		Value: powmine.DefaultDifficulty,
	}
	syncIntervalFlag = cli.IntFlag{
		Name:  "sync-interval",
		Usage: "seconds between peer-refresh and chain-sync passes",
		Value: int(node.DefaultSyncInterval / time.Second),
	}
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Usage: "directory persisted chain files are written under",
	}
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "optional TOML defaults file",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "fablechain-node"
	app.Usage = "run a fablechain node"
	app.Flags = []cli.Flag{
		hostFlag, portFlag, trackerFlag, autoMineFlag,
		mineIntervalFlag, difficultyFlag, syncIntervalFlag, dataDirFlag, configFlag,
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if coder, ok := err.(cli.ExitCoder); ok {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg := node.Config{
		Host:         c.String(hostFlag.Name),
		Port:         c.Int(portFlag.Name),
		TrackerURL:   c.String(trackerFlag.Name),
		AutoMine:     c.Bool(autoMineFlag.Name),
		MineInterval: time.Duration(c.Int(mineIntervalFlag.Name)) * time.Second,
		Difficulty:   c.Int(difficultyFlag.Name),
		SyncInterval: time.Duration(c.Int(syncIntervalFlag.Name)) * time.Second,
		DataDir:      c.String(dataDirFlag.Name),
	}

	if file := c.String(configFlag.Name); file != "" {
		var fileCfg config.NodeFile
		if err := config.LoadNode(file, &fileCfg); err != nil {
			return cli.NewExitError(fmt.Sprintf("loading config: %v", err), 2)
		}
		applyFileDefaults(c, &cfg, &fileCfg)
	}

	if cfg.Host == "" || cfg.Port == 0 {
		return cli.NewExitError("invalid --host/--port", 2)
	}

	n, err := node.New(cfg)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("bootstrap failed: %v", err), 1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	if err := n.Run(ctx); err != nil {
		return cli.NewExitError(fmt.Sprintf("node exited with error: %v", err), 1)
	}
	return nil
}

// applyFileDefaults fills in cfg fields from fileCfg wherever the
// corresponding CLI flag was not explicitly set, per SPEC_FULL.md §2's
// "CLI flags always win over file defaults."
func applyFileDefaults(c *cli.Context, cfg *node.Config, fileCfg *config.NodeFile) {
	if !c.IsSet(hostFlag.Name) && fileCfg.Host != "" {
		cfg.Host = fileCfg.Host
	}
	if !c.IsSet(portFlag.Name) && fileCfg.Port != 0 {
		cfg.Port = fileCfg.Port
	}
	if !c.IsSet(trackerFlag.Name) && fileCfg.TrackerURL != "" {
		cfg.TrackerURL = fileCfg.TrackerURL
	}
	if !c.IsSet(autoMineFlag.Name) {
		cfg.AutoMine = fileCfg.AutoMine
	}
	if !c.IsSet(mineIntervalFlag.Name) && fileCfg.MineIntervalSeconds != 0 {
		cfg.MineInterval = time.Duration(fileCfg.MineIntervalSeconds) * time.Second
	}
	if !c.IsSet(difficultyFlag.Name) && fileCfg.Difficulty != 0 {
		cfg.Difficulty = fileCfg.Difficulty
	}
	if !c.IsSet(syncIntervalFlag.Name) && fileCfg.SyncIntervalSeconds != 0 {
		cfg.SyncInterval = time.Duration(fileCfg.SyncIntervalSeconds) * time.Second
	}
	if !c.IsSet(dataDirFlag.Name) && fileCfg.DataDir != "" {
		cfg.DataDir = fileCfg.DataDir
	}
}
