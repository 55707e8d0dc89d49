package systemconfig

import (
	"errors"
	"fmt"
)

var ErrUnknownNetwork = errors.New("unknown network")

type SystemConfig interface {
	Network() string
	OnMainnet() bool
	OnTestnet() bool
	OnLocal() bool
	// endpoint used when neither the flag nor the config file name one
	DefaultRpc() string
	// address format used until the node reports its own
	SS58Prefix() uint16
}

type config struct {
	network    string
	mainnet    bool
	defaultRpc string
	ss58Prefix uint16
}

func (c *config) Network() string {
	return c.network
}

func (c *config) OnMainnet() bool {
	return c.mainnet
}

func (c *config) OnTestnet() bool {
	return !c.mainnet && c.network != "local"
}

func (c *config) OnLocal() bool {
	return c.network == "local"
}

func (c *config) DefaultRpc() string {
	return c.defaultRpc
}

func (c *config) SS58Prefix() uint16 {
	return c.ss58Prefix
}

func PolkadotConfig() SystemConfig {
	return &config{
		network:    "polkadot",
		mainnet:    true,
		defaultRpc: "wss://rpc.polkadot.io",
		ss58Prefix: 0,
	}
}

func KusamaConfig() SystemConfig {
	return &config{
		network:    "kusama",
		mainnet:    true,
		defaultRpc: "wss://kusama-rpc.polkadot.io",
		ss58Prefix: 2,
	}
}

func WestendConfig() SystemConfig {
	return &config{
		network:    "westend",
		defaultRpc: "wss://westend-rpc.polkadot.io",
		ss58Prefix: 42,
	}
}

func LocalConfig() SystemConfig {
	return &config{
		network:    "local",
		defaultRpc: "http://127.0.0.1:9944",
		ss58Prefix: 42,
	}
}

func FromNetwork(network string) (SystemConfig, error) {
	switch network {
	case "polkadot":
		return PolkadotConfig(), nil
	case "kusama":
		return KusamaConfig(), nil
	case "westend":
		return WestendConfig(), nil
	case "local":
		return LocalConfig(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNetwork, network)
	}
}
