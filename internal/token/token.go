package token

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// NativeAddress is the sentinel used by routing providers for the chain's
// native asset (ETH on mainnet/Arbitrum).
var NativeAddress = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

const NativeDecimals = 18

// Currency is immutable reference data for one asset.
type Currency struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Name     string         `json:"name"`
	Decimals int            `json:"decimals"`
}

func (c Currency) IsNative() bool { return c.Address == NativeAddress }

// Native returns the chain native asset with standard 18 decimals.
func Native(symbol, name string) Currency {
	return Currency{Address: NativeAddress, Symbol: symbol, Name: name, Decimals: NativeDecimals}
}

// ToDecimal converts a raw smallest-unit amount into a human-readable value.
func ToDecimal(amount *big.Int, decimals int) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -int32(decimals))
}

// WeiToUSD converts a wei amount into USD given the native asset price.
func WeiToUSD(wei *big.Int, nativeUSD decimal.Decimal) decimal.Decimal {
	return ToDecimal(wei, 18).Mul(nativeUSD)
}
