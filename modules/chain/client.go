// Package chain talks to a Substrate node over JSON-RPC and keeps the
// latest block and account nonce available to the editor.
package chain

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/go-viper/mapstructure/v2"
	"github.com/moznion/go-optional"
)

var (
	ErrRPC               = errors.New("rpc error")
	ErrUnsupportedScheme = errors.New("unsupported endpoint scheme")
	ErrMalformed         = errors.New("malformed rpc result")
)

// Tip is the head of the chain as seen on the last poll.
type Tip struct {
	Number uint64
	Hash   [32]byte
}

type RuntimeVersion struct {
	SpecName           string `json:"specName"`
	SpecVersion        uint32 `json:"specVersion"`
	TransactionVersion uint32 `json:"transactionVersion"`
}

// Properties are the chain constants reported by system_properties.
// Token fields are a single value or a list depending on the chain.
type Properties struct {
	SS58Format    optional.Option[uint16]
	TokenSymbol   any
	TokenDecimals any
}

type rawProperties struct {
	SS58Format    *uint16 `mapstructure:"ss58Format"`
	TokenSymbol   any     `mapstructure:"tokenSymbol"`
	TokenDecimals any     `mapstructure:"tokenDecimals"`
}

type header struct {
	Number string `json:"number"`
}

type Client struct {
	url       string
	transport transport
	nextID    atomic.Uint64
}

// Dial picks a transport from the url scheme: http(s) posts every call,
// ws(s) keeps one connection open.
func Dial(ctx context.Context, endpoint string) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}

	c := &Client{url: endpoint}
	switch u.Scheme {
	case "http", "https":
		c.transport = &httpTransport{url: endpoint}
	case "ws", "wss":
		ws, err := dialWebsocket(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		c.transport = ws
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	return c, nil
}

func (c *Client) URL() string {
	return c.url
}

func (c *Client) Close() error {
	return c.transport.close()
}

func (c *Client) call(ctx context.Context, out any, method string, params ...any) error {
	if params == nil {
		params = []any{}
	}
	req := request{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}

	res, err := c.transport.roundTrip(ctx, req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if res.Error != nil {
		return fmt.Errorf("%w: %s: %d %s", ErrRPC, method, res.Error.Code, res.Error.Message)
	}
	if err := json.Unmarshal(res.Result, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, method, err)
	}
	return nil
}

func decodeHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return b, nil
}

func decodeHash(s string) ([32]byte, error) {
	var h [32]byte
	b, err := decodeHex(s)
	if err != nil {
		return h, err
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("%w: hash of %d bytes", ErrMalformed, len(b))
	}
	copy(h[:], b)
	return h, nil
}

func (c *Client) blockHash(ctx context.Context, params ...any) ([32]byte, error) {
	var s string
	if err := c.call(ctx, &s, "chain_getBlockHash", params...); err != nil {
		return [32]byte{}, err
	}
	return decodeHash(s)
}

func (c *Client) Genesis(ctx context.Context) ([32]byte, error) {
	return c.blockHash(ctx, 0)
}

// Tip fetches the best block hash and then its header for the number.
func (c *Client) Tip(ctx context.Context) (Tip, error) {
	hash, err := c.blockHash(ctx)
	if err != nil {
		return Tip{}, err
	}

	h := header{}
	if err := c.call(ctx, &h, "chain_getHeader", "0x"+hex.EncodeToString(hash[:])); err != nil {
		return Tip{}, err
	}
	number, err := strconv.ParseUint(strings.TrimPrefix(h.Number, "0x"), 16, 64)
	if err != nil {
		return Tip{}, fmt.Errorf("%w: block number %q", ErrMalformed, h.Number)
	}
	return Tip{Number: number, Hash: hash}, nil
}

func (c *Client) RuntimeVersion(ctx context.Context) (RuntimeVersion, error) {
	v := RuntimeVersion{}
	err := c.call(ctx, &v, "state_getRuntimeVersion")
	return v, err
}

func (c *Client) Properties(ctx context.Context) (Properties, error) {
	m := map[string]any{}
	if err := c.call(ctx, &m, "system_properties"); err != nil {
		return Properties{}, err
	}

	raw := rawProperties{}
	if err := mapstructure.Decode(m, &raw); err != nil {
		return Properties{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	p := Properties{
		SS58Format:    optional.None[uint16](),
		TokenSymbol:   raw.TokenSymbol,
		TokenDecimals: raw.TokenDecimals,
	}
	if raw.SS58Format != nil {
		p.SS58Format = optional.Some(*raw.SS58Format)
	}
	return p, nil
}

// Metadata returns the raw SCALE encoded runtime metadata.
func (c *Client) Metadata(ctx context.Context) ([]byte, error) {
	var s string
	if err := c.call(ctx, &s, "state_getMetadata"); err != nil {
		return nil, err
	}
	return decodeHex(s)
}

// AccountNextIndex is the nonce a new transaction from address should
// carry, pending pool transactions included.
func (c *Client) AccountNextIndex(ctx context.Context, address string) (uint64, error) {
	var n uint64
	err := c.call(ctx, &n, "system_accountNextIndex", address)
	return n, err
}

// Submit hands a finalized extrinsic to the node and returns its hash.
func (c *Client) Submit(ctx context.Context, extrinsic []byte) ([32]byte, error) {
	var s string
	if err := c.call(ctx, &s, "author_submitExtrinsic", "0x"+hex.EncodeToString(extrinsic)); err != nil {
		return [32]byte{}, err
	}
	return decodeHash(s)
}
