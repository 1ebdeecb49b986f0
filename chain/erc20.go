// Package chain reads the reward token's on-chain state.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

const erc20ABIJSON = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"}
]`

var erc20ABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		panic(fmt.Sprintf("failed to parse ERC20 ABI: %v", err))
	}
	erc20ABI = parsed
}

// BalanceOracle reports a holder's token balance in whole-token units.
type BalanceOracle interface {
	BalanceOf(ctx context.Context, holder string) (decimal.Decimal, error)
}

// ERC20Oracle reads balanceOf and decimals from a token contract.
type ERC20Oracle struct {
	caller   ethereum.ContractCaller
	contract common.Address

	mu       sync.Mutex
	decimals *int32
}

func NewERC20Oracle(caller ethereum.ContractCaller, contract string) (*ERC20Oracle, error) {
	if !common.IsHexAddress(contract) {
		return nil, fmt.Errorf("invalid token contract address %q", contract)
	}
	return &ERC20Oracle{caller: caller, contract: common.HexToAddress(contract)}, nil
}

// Dial connects to rpcURL and returns an oracle for contract.
func Dial(rpcURL, contract string) (*ERC20Oracle, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", rpcURL, err)
	}
	return NewERC20Oracle(client, contract)
}

func (o *ERC20Oracle) BalanceOf(ctx context.Context, holder string) (decimal.Decimal, error) {
	if !common.IsHexAddress(holder) {
		return decimal.Zero, fmt.Errorf("invalid holder address %q", holder)
	}
	dec, err := o.tokenDecimals(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	out, err := o.call(ctx, "balanceOf", common.HexToAddress(holder))
	if err != nil {
		return decimal.Zero, err
	}
	bal, ok := out[0].(*big.Int)
	if !ok {
		return decimal.Zero, fmt.Errorf("unexpected balanceOf output %T", out[0])
	}
	return decimal.NewFromBigInt(bal, -dec), nil
}

// tokenDecimals is fetched once; it never changes for a deployed token.
func (o *ERC20Oracle) tokenDecimals(ctx context.Context) (int32, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.decimals != nil {
		return *o.decimals, nil
	}

	out, err := o.call(ctx, "decimals")
	if err != nil {
		return 0, err
	}
	d, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected decimals output %T", out[0])
	}
	v := int32(d)
	o.decimals = &v
	return v, nil
}

func (o *ERC20Oracle) call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := erc20ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	raw, err := o.caller.CallContract(ctx, ethereum.CallMsg{To: &o.contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}
	out, err := erc20ABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s returned no values", method)
	}
	return out, nil
}
