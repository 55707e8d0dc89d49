package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"tx-composer/modules/chain"
	"tx-composer/modules/common"
	systemconfig "tx-composer/modules/common/system-config"
	"tx-composer/modules/schema"

	"github.com/moznion/go-optional"
)

var ErrNoRuntime = errors.New("no runtime versions: the catalogue has no runtime section and the node is unreachable")

// session is everything resolved before the editor starts.
type session struct {
	client   optional.Option[*chain.Client]
	registry *schema.Registry
	env      schema.Env
	ss58     uint16
}

type nodeInfo struct {
	env   schema.Env
	props chain.Properties
}

func queryNode(ctx context.Context, c *chain.Client) (nodeInfo, error) {
	genesis, err := c.Genesis(ctx)
	if err != nil {
		return nodeInfo{}, err
	}
	version, err := c.RuntimeVersion(ctx)
	if err != nil {
		return nodeInfo{}, err
	}
	props, err := c.Properties(ctx)
	if err != nil {
		return nodeInfo{}, err
	}
	return nodeInfo{
		env: schema.Env{
			Genesis:     genesis,
			SpecVersion: version.SpecVersion,
			TxVersion:   version.TransactionVersion,
		},
		props: props,
	}, nil
}

// metadata reads the runtime metadata from the cache, downloading it
// from the node on a miss.
func metadata(ctx context.Context, log *slog.Logger, c *chain.Client, path string, env schema.Env) (*schema.Registry, error) {
	cache, err := schema.OpenCache(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata cache: %w", err)
	}
	defer cache.Close()

	raw, ok, err := cache.Get(ctx, env.Genesis, env.SpecVersion)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Info("downloading runtime metadata", "spec", env.SpecVersion)
		raw, err = c.Metadata(ctx)
		if err != nil {
			return nil, err
		}
		if err := cache.Put(ctx, env.Genesis, env.SpecVersion, raw); err != nil {
			log.Warn("failed to cache metadata", "err", err)
		}
	}
	return schema.FromMetadata(raw)
}

func openSession(ctx context.Context, log *slog.Logger, conf common.Config, sysConf systemconfig.SystemConfig, schemaPath string) (*session, error) {
	s := &session{client: optional.None[*chain.Client]()}

	var info optional.Option[nodeInfo]
	endpoint := conf.Endpoint()
	c, err := chain.Dial(ctx, endpoint)
	if err == nil {
		var ni nodeInfo
		ni, err = queryNode(ctx, c)
		if err != nil {
			c.Close()
		} else {
			s.client = optional.Some(c)
			info = optional.Some(ni)
		}
	}
	if err != nil {
		log.Warn("node unreachable, working offline", "endpoint", endpoint, "err", err)
	}

	if schemaPath == "" {
		schemaPath = conf.Get().SchemaFile
	}

	catalogueEnv := optional.None[schema.Env]()
	switch {
	case schemaPath != "":
		b, err := os.ReadFile(schemaPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalogue: %w", err)
		}
		s.registry, catalogueEnv, err = schema.LoadYAML(b)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalogue %s: %w", schemaPath, err)
		}
	case info.IsSome():
		s.registry, err = metadata(ctx, log, s.client.Unwrap(), conf.CachePath(), info.Unwrap().env)
		if err != nil {
			return nil, err
		}
	default:
		log.Warn("using the built-in sample catalogue")
		s.registry, catalogueEnv, err = schema.LoadYAML(schema.Sample)
		if err != nil {
			return nil, err
		}
	}

	switch {
	case info.IsSome():
		s.env = info.Unwrap().env
	case catalogueEnv.IsSome():
		s.env = catalogueEnv.Unwrap()
	default:
		return nil, ErrNoRuntime
	}

	s.ss58 = sysConf.SS58Prefix()
	if info.IsSome() && info.Unwrap().props.SS58Format.IsSome() {
		s.ss58 = info.Unwrap().props.SS58Format.Unwrap()
	}
	if override := conf.Get().SS58Override; override != nil {
		s.ss58 = *override
	}
	return s, nil
}
