package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"time"

	"tx-composer/lib/logger"
	"tx-composer/modules/aggregate"
	"tx-composer/modules/builder"
	"tx-composer/modules/chain"
	"tx-composer/modules/common"
	systemconfig "tx-composer/modules/common/system-config"
	"tx-composer/modules/keyring"
	"tx-composer/modules/schema"
	"tx-composer/modules/tui"

	"github.com/moznion/go-optional"
)

const (
	ringCapacity = 64
	setupTimeout = 30 * time.Second
	logFileName  = "tx-composer.log"
)

func main() {
	if err := run(); err != nil {
		fmt.Println("error is", err)
		os.Exit(1)
	}
}

func run() error {
	args, err := ParseArgs()
	if err != nil {
		return err
	}

	level, err := logger.ParseLevel(args.logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	sysConf, err := systemconfig.FromNetwork(args.network)
	if err != nil {
		return err
	}

	conf := common.NewComposerConfig(sysConf, args.dataDir)
	if err := conf.Init(); err != nil {
		return err
	}
	if args.rpc != "" {
		if err := conf.SetRpcURL(args.rpc); err != nil {
			return fmt.Errorf("invalid rpc url: %w", err)
		}
	}
	if args.isInit {
		fmt.Println("config written to", conf.FilePath())
		return nil
	}

	// the terminal belongs to the editor, so records go to the ring,
	// of which only the latest one is drawn, and to a file
	ring := logger.NewRing(ringCapacity, level)
	logFile, err := os.OpenFile(path.Join(conf.DataDir(), logFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()
	log := slog.New(logger.Multi(
		ring,
		slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: level}),
	)).With("service", "tx-composer")
	if args.dump {
		log = logger.New("tx-composer", level, os.Stderr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()
	s, err := openSession(ctx, log, conf, sysConf, args.schema)
	if err != nil {
		return err
	}

	ids, err := keyring.New(log, s.ss58, keyring.DefaultEntries())
	if err != nil {
		return err
	}
	b, err := builder.New(log, ids, schema.NewConstructor(s.registry, s.env, log), s.ss58)
	if err != nil {
		return err
	}

	if args.dump {
		if s.client.IsSome() {
			s.client.Unwrap().Close()
		}
		return dump(os.Stdout, b)
	}

	plugins := make([]aggregate.Plugin, 0)
	watcher := optional.None[tui.Chain]()
	if s.client.IsSome() {
		client := s.client.Unwrap()
		defer client.Close()

		tipInterval, nonceInterval, err := conf.Intervals()
		if err != nil {
			return err
		}
		w := chain.NewWatcher(log, client, chain.WatcherConfig{
			TipInterval:   tipInterval,
			NonceInterval: nonceInterval,
		}, s.ss58)
		plugins = append(plugins, w)
		watcher = optional.Some[tui.Chain](w)
	}

	title := fmt.Sprintf("tx-composer %s", sysConf.Network())
	model := tui.New(log, b, watcher, ring, title)
	plugins = append(plugins, tui.NewProgram(model, nil, nil))

	return aggregate.New(log, plugins).Run()
}
