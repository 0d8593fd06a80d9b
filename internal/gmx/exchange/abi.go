package exchange

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// exchangeRouterABI covers the ExchangeRouter methods used to create orders.
const exchangeRouterABI = `[
  {"type":"function","name":"multicall","stateMutability":"payable",
   "inputs":[{"name":"data","type":"bytes[]"}],
   "outputs":[{"name":"results","type":"bytes[]"}]},
  {"type":"function","name":"sendWnt","stateMutability":"payable",
   "inputs":[{"name":"receiver","type":"address"},{"name":"amount","type":"uint256"}],
   "outputs":[]},
  {"type":"function","name":"sendTokens","stateMutability":"payable",
   "inputs":[{"name":"token","type":"address"},{"name":"receiver","type":"address"},{"name":"amount","type":"uint256"}],
   "outputs":[]},
  {"type":"function","name":"createOrder","stateMutability":"payable",
   "inputs":[{"name":"params","type":"tuple","components":[
     {"name":"addresses","type":"tuple","components":[
       {"name":"receiver","type":"address"},
       {"name":"callbackContract","type":"address"},
       {"name":"uiFeeReceiver","type":"address"},
       {"name":"market","type":"address"},
       {"name":"initialCollateralToken","type":"address"},
       {"name":"swapPath","type":"address[]"}
     ]},
     {"name":"numbers","type":"tuple","components":[
       {"name":"sizeDeltaUsd","type":"uint256"},
       {"name":"initialCollateralDeltaAmount","type":"uint256"},
       {"name":"triggerPrice","type":"uint256"},
       {"name":"acceptablePrice","type":"uint256"},
       {"name":"executionFee","type":"uint256"},
       {"name":"callbackGasLimit","type":"uint256"},
       {"name":"minOutputAmount","type":"uint256"}
     ]},
     {"name":"orderType","type":"uint8"},
     {"name":"decreasePositionSwapType","type":"uint8"},
     {"name":"isLong","type":"bool"},
     {"name":"shouldUnwrapNativeToken","type":"bool"},
     {"name":"referralCode","type":"bytes32"}
   ]}],
   "outputs":[{"name":"","type":"bytes32"}]}
]`

var (
	routerOnce sync.Once
	routerABI  abi.ABI
	routerErr  error
)

func parsedRouterABI() (abi.ABI, error) {
	routerOnce.Do(func() {
		routerABI, routerErr = abi.JSON(strings.NewReader(exchangeRouterABI))
	})
	return routerABI, routerErr
}
