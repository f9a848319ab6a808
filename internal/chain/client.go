package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Caller is the read-only contract surface adapters depend on. *ethclient.Client
// satisfies it; tests substitute a stub.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

const erc20ABI = `[
  {"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"}
]`

// Client wraps an RPC connection with the small set of reads the quoting
// layer needs. Token decimals are cached for the client's lifetime.
type Client struct {
	ec   Caller
	eabi abi.ABI

	decimalsCache sync.Map // common.Address -> int
}

func Dial(rpcURL string) (*Client, error) {
	ec, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	return NewClient(ec), nil
}

func NewClient(ec Caller) *Client {
	eabi, _ := abi.JSON(strings.NewReader(erc20ABI))
	return &Client{ec: ec, eabi: eabi}
}

func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.ec.CallContract(ctx, msg, blockNumber)
}

func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return c.ec.SuggestGasPrice(ctx)
}

func (c *Client) Decimals(ctx context.Context, tok common.Address) (int, error) {
	if dec, ok := c.decimalsCache.Load(tok); ok {
		return dec.(int), nil
	}
	input, err := c.eabi.Pack("decimals")
	if err != nil {
		return 0, fmt.Errorf("pack decimals: %w", err)
	}
	res, err := c.ec.CallContract(ctx, ethereum.CallMsg{To: &tok, Data: input}, nil)
	if err != nil {
		return 0, fmt.Errorf("call decimals: %w", err)
	}
	outs, err := c.eabi.Methods["decimals"].Outputs.Unpack(res)
	if err != nil || len(outs) == 0 {
		if err == nil {
			err = fmt.Errorf("empty decimals output")
		}
		return 0, fmt.Errorf("decode decimals: %w", err)
	}

	var dec int
	switch v := outs[0].(type) {
	case uint8:
		dec = int(v)
	case *big.Int:
		dec = int(v.Int64())
	default:
		return 0, fmt.Errorf("unexpected decimals type %T", v)
	}
	c.decimalsCache.Store(tok, dec)
	return dec, nil
}
