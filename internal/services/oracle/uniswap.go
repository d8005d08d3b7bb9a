package oracle

import (
	"context"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/kurs/internal/domain"
	"github.com/vadiminshakov/kurs/internal/services/assets"
	"github.com/vadiminshakov/kurs/internal/services/penalty"
	"go.uber.org/zap"
)

const pairABIJSON = `[
{"constant":true,"inputs":[],"name":"getReserves","outputs":[{"name":"_reserve0","type":"uint112"},{"name":"_reserve1","type":"uint112"},{"name":"_blockTimestampLast","type":"uint32"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

// UniswapV2 reads prices straight from uniswap-like pool reserves. It
// is the only on-chain member of the current oracle rotation and also
// provides LP share pricing for pool-representation tokens.
type UniswapV2 struct {
	caller   ethereum.ContractCaller
	resolver assets.Resolver
	// pools maps "FROM_TO" identifier pairs to the pool contract whose
	// token0/token1 match that order.
	pools   map[string]common.Address
	pairABI abi.ABI
	policy  *penalty.Policy
	log     *zap.Logger
}

// NewUniswapV2 creates the on-chain reader. pools maps pair keys like
// "WETH_USDT" to pool contract addresses.
func NewUniswapV2(log *zap.Logger, caller ethereum.ContractCaller, resolver assets.Resolver, pools map[string]string) (*UniswapV2, error) {
	parsed, err := abi.JSON(strings.NewReader(pairABIJSON))
	if err != nil {
		return nil, errors.Wrap(err, "parse pair ABI")
	}

	addrs := make(map[string]common.Address, len(pools))
	for pair, addr := range pools {
		if !common.IsHexAddress(addr) {
			return nil, errors.Errorf("invalid pool address %s for pair %s", addr, pair)
		}
		addrs[pair] = common.HexToAddress(addr)
	}

	return &UniswapV2{
		caller:   caller,
		resolver: resolver,
		pools:    addrs,
		pairABI:  parsed,
		policy:   penalty.NewPolicy(),
		log:      log,
	}, nil
}

// QueryCurrentPrice computes from/to from the configured pool's reserves.
func (u *UniswapV2) QueryCurrentPrice(ctx context.Context, q Query) (domain.Price, bool, error) {
	pool, ok := u.pools[q.From.Identifier+"_"+q.To.Identifier]
	if !ok {
		return domain.ZeroPrice, false, &domain.UnsupportedAssetError{
			Oracle: string(domain.CurrentOracleUniswapV2),
			From:   q.From.Identifier,
			To:     q.To.Identifier,
		}
	}

	reserve0, reserve1, err := u.reserves(ctx, pool)
	if err != nil {
		u.policy.RecordFailure()
		return domain.ZeroPrice, false, err
	}

	amount0 := decimal.NewFromBigInt(reserve0, -int32(q.From.Decimals))
	amount1 := decimal.NewFromBigInt(reserve1, -int32(q.To.Decimals))
	if amount0.IsZero() {
		return domain.ZeroPrice, false, &domain.DefiPoolError{
			Token:  q.From.Identifier,
			Reason: "pool has zero reserves",
		}
	}

	u.policy.RecordSuccess()
	return domain.NewPrice(amount1.Div(amount0)), false, nil
}

// LPPrice values one share of a pool-representation token: reserves
// priced through priceUSD divided by total supply.
func (u *UniswapV2) LPPrice(ctx context.Context, token domain.Asset, priceUSD func(ctx context.Context, identifier string) (domain.Price, error)) (domain.Price, error) {
	if len(token.Underlying) != 2 {
		return domain.ZeroPrice, &domain.DefiPoolError{
			Token:  token.Identifier,
			Reason: "LP token must declare exactly two underlying assets",
		}
	}

	pool := common.HexToAddress(token.Address)
	reserve0, reserve1, err := u.reserves(ctx, pool)
	if err != nil {
		u.policy.RecordFailure()
		return domain.ZeroPrice, err
	}

	supplyRaw, err := u.totalSupply(ctx, pool)
	if err != nil {
		u.policy.RecordFailure()
		return domain.ZeroPrice, err
	}
	supply := decimal.NewFromBigInt(supplyRaw, -int32(token.Decimals))
	if supply.IsZero() {
		return domain.ZeroPrice, &domain.DefiPoolError{Token: token.Identifier, Reason: "zero total supply"}
	}

	value := decimal.Zero
	for i, raw := range []*big.Int{reserve0, reserve1} {
		underlying, err := u.resolver.Resolve(token.Underlying[i])
		if err != nil {
			return domain.ZeroPrice, errors.Wrapf(err, "resolve underlying of %s", token.Identifier)
		}

		price, err := priceUSD(ctx, underlying.Identifier)
		if err != nil {
			return domain.ZeroPrice, err
		}
		if !price.Known() {
			return domain.ZeroPrice, &domain.DefiPoolError{
				Token:  token.Identifier,
				Reason: "no price for underlying " + underlying.Identifier,
			}
		}

		amount := decimal.NewFromBigInt(raw, -int32(underlying.Decimals))
		value = value.Add(amount.Mul(price.Value()))
	}

	u.policy.RecordSuccess()
	return domain.NewPrice(value.Div(supply)), nil
}

// IsPenalized reports whether the reader is in a penalty window.
func (u *UniswapV2) IsPenalized() bool { return u.policy.IsPenalized() }

func (u *UniswapV2) reserves(ctx context.Context, pool common.Address) (*big.Int, *big.Int, error) {
	out, err := u.call(ctx, pool, "getReserves")
	if err != nil {
		return nil, nil, err
	}

	vals, err := u.pairABI.Unpack("getReserves", out)
	if err != nil || len(vals) < 2 {
		return nil, nil, &domain.DefiPoolError{Token: pool.Hex(), Reason: "undecodable getReserves result"}
	}

	reserve0, ok0 := vals[0].(*big.Int)
	reserve1, ok1 := vals[1].(*big.Int)
	if !ok0 || !ok1 {
		return nil, nil, &domain.DefiPoolError{Token: pool.Hex(), Reason: "unexpected reserve types"}
	}
	return reserve0, reserve1, nil
}

func (u *UniswapV2) totalSupply(ctx context.Context, pool common.Address) (*big.Int, error) {
	out, err := u.call(ctx, pool, "totalSupply")
	if err != nil {
		return nil, err
	}

	vals, err := u.pairABI.Unpack("totalSupply", out)
	if err != nil || len(vals) != 1 {
		return nil, &domain.DefiPoolError{Token: pool.Hex(), Reason: "undecodable totalSupply result"}
	}
	supply, ok := vals[0].(*big.Int)
	if !ok {
		return nil, &domain.DefiPoolError{Token: pool.Hex(), Reason: "unexpected supply type"}
	}
	return supply, nil
}

func (u *UniswapV2) call(ctx context.Context, pool common.Address, method string) ([]byte, error) {
	data, err := u.pairABI.Pack(method)
	if err != nil {
		return nil, errors.Wrapf(err, "pack %s", method)
	}

	out, err := u.caller.CallContract(ctx, ethereum.CallMsg{To: &pool, Data: data}, nil)
	if err != nil {
		return nil, &domain.RemoteError{Oracle: string(domain.CurrentOracleUniswapV2), Err: err}
	}
	return out, nil
}
