package quoting

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/you/swap-router/internal/agg/core"
)

// Wire shape: big integers as decimal strings, calldata as 0x hex, the
// producing aggregator by name.

type txJSON struct {
	To       string `json:"to"`
	Data     string `json:"data"`
	Value    string `json:"value"`
	Gas      uint64 `json:"gas"`
	GasPrice string `json:"gasPrice"`
}

type quoteJSON struct {
	Timestamp             int64   `json:"timestamp"`
	AmountIn              string  `json:"amountIn"`
	AmountOut             string  `json:"amountOut"`
	Fee                   string  `json:"fee"`
	GasLimit              uint64  `json:"gasLimit"`
	Aggregator            string  `json:"aggregator"`
	Transaction           *txJSON `json:"transaction,omitempty"`
	GasUSD                string  `json:"gasUsd"`
	NetAmountOutUSD       string  `json:"netAmountOutUsd"`
	Fallback              bool    `json:"fallback"`
	ExecutionMilliseconds int64   `json:"executionMilliseconds"`
}

func (q Quote) MarshalJSON() ([]byte, error) {
	out := quoteJSON{
		Timestamp:             q.Timestamp.UnixMilli(),
		AmountIn:              q.AmountIn.String(),
		AmountOut:             q.AmountOut.String(),
		Fee:                   q.Fee.String(),
		GasLimit:              q.GasLimit,
		Aggregator:            q.Aggregator.Name(),
		GasUSD:                q.GasUSD.String(),
		NetAmountOutUSD:       q.NetAmountOutUSD.String(),
		Fallback:              q.Fallback,
		ExecutionMilliseconds: q.Elapsed.Milliseconds(),
	}
	if q.Tx != nil {
		out.Transaction = marshalTx(q.Tx)
	}
	return json.Marshal(out)
}

func marshalTx(tx *core.Transaction) *txJSON {
	gasPrice := "0"
	if tx.GasPrice != nil {
		gasPrice = tx.GasPrice.String()
	}
	value := "0"
	if tx.Value != nil {
		value = tx.Value.String()
	}
	return &txJSON{
		To:       tx.To.Hex(),
		Data:     hexutil.Encode(tx.Data),
		Value:    value,
		Gas:      tx.Gas,
		GasPrice: gasPrice,
	}
}
