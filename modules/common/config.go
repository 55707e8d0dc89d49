package common

import (
	"fmt"
	"os"
	"time"

	systemconfig "tx-composer/modules/common/system-config"
	"tx-composer/modules/config"
)

const RpcEnv = "TX_COMPOSER_RPC"

type ComposerConfig struct {
	// empty means the network preset endpoint
	RpcURL        string `validate:"omitempty,url"`
	PollInterval  string `validate:"required"`
	NonceInterval string `validate:"required"`
	// YAML catalogue used instead of the node's runtime metadata
	SchemaFile string
	CacheDir   string `validate:"required"`
	// address format forced over the one the node reports
	SS58Override *uint16
}

type composerConfigStruct struct {
	*config.Config[ComposerConfig]
	sysConf systemconfig.SystemConfig
}

type Config = *composerConfigStruct

func NewComposerConfig(sysConf systemconfig.SystemConfig, dataDir ...string) Config {
	var dataDirPtr *string
	if len(dataDir) > 0 {
		dataDirPtr = &dataDir[0]
	}

	return &composerConfigStruct{
		Config: config.New(ComposerConfig{
			PollInterval:  "6s",
			NonceInterval: "12s",
			CacheDir:      "metadata",
		}, dataDirPtr),
		sysConf: sysConf,
	}
}

func (c *composerConfigStruct) Init() error {
	if err := c.Config.Init(); err != nil {
		return fmt.Errorf("failed to init composer config: %w", err)
	}

	if url := os.Getenv(RpcEnv); url != "" {
		return c.SetRpcURL(url)
	}
	return nil
}

func (c *composerConfigStruct) SetRpcURL(url string) error {
	return c.Update(func(cc *ComposerConfig) {
		cc.RpcURL = url
	})
}

// Endpoint is the configured RPC url or the network default.
func (c *composerConfigStruct) Endpoint() string {
	if url := c.Get().RpcURL; url != "" {
		return url
	}
	return c.sysConf.DefaultRpc()
}

func (c *composerConfigStruct) Intervals() (tip time.Duration, nonce time.Duration, err error) {
	conf := c.Get()
	tip, err = time.ParseDuration(conf.PollInterval)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid poll interval: %w", err)
	}
	nonce, err = time.ParseDuration(conf.NonceInterval)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid nonce interval: %w", err)
	}
	return tip, nonce, nil
}

// CachePath resolves the metadata cache directory against the data dir.
func (c *composerConfigStruct) CachePath() string {
	dir := c.Get().CacheDir
	if dir == "" || dir[0] == '/' {
		return dir
	}
	return c.DataDir() + "/" + dir
}
