package main

import (
	"flag"
	"fmt"
	"os"
)

type args struct {
	isInit   bool
	dump     bool
	network  string
	rpc      string
	schema   string
	dataDir  string
	logLevel string
}

func ParseArgs() (args, error) {
	flag.Usage = func() {
		fmt.Printf("tx-composer - build, sign and submit Substrate transactions from the terminal.\n\n")
		fmt.Printf("Usage: %s [options]\n", os.Args[0])
		flag.PrintDefaults()
	}
	isInit := flag.Bool("init", false, "Write the default config and exit")
	dump := flag.Bool("dump", false, "Print the cards of a new transaction and exit")
	network := flag.String("network", "westend", "Network preset: polkadot, kusama, westend or local")
	rpc := flag.String("rpc", "", "Node endpoint (http, https, ws or wss), overrides the config")
	schema := flag.String("schema", "", "YAML type catalogue used instead of the node metadata")
	dataDir := flag.String("data-dir", "data", "Directory for config and metadata cache")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn or error")

	flag.Parse()

	if flag.NArg() > 0 {
		return args{}, fmt.Errorf("unexpected arguments: %v", flag.Args())
	}

	return args{
		*isInit,
		*dump,
		*network,
		*rpc,
		*schema,
		*dataDir,
		*logLevel,
	}, nil
}
