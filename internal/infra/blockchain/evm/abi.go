package evm

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// poolEventsABI declares the pool events the monitor understands. The
// shapes follow the Aave v3 Pool interface, which the watched protocol
// implements behind its upgradeable proxy.
const poolEventsABI = `[
	{"type":"event","name":"Supply","inputs":[
		{"name":"reserve","type":"address","indexed":true},
		{"name":"user","type":"address","indexed":false},
		{"name":"onBehalfOf","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false},
		{"name":"referralCode","type":"uint16","indexed":true}]},
	{"type":"event","name":"Withdraw","inputs":[
		{"name":"reserve","type":"address","indexed":true},
		{"name":"user","type":"address","indexed":true},
		{"name":"to","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"Borrow","inputs":[
		{"name":"reserve","type":"address","indexed":true},
		{"name":"user","type":"address","indexed":false},
		{"name":"onBehalfOf","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false},
		{"name":"interestRateMode","type":"uint8","indexed":false},
		{"name":"borrowRate","type":"uint256","indexed":false},
		{"name":"referralCode","type":"uint16","indexed":true}]},
	{"type":"event","name":"Repay","inputs":[
		{"name":"reserve","type":"address","indexed":true},
		{"name":"user","type":"address","indexed":true},
		{"name":"repayer","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false},
		{"name":"useATokens","type":"bool","indexed":false}]},
	{"type":"event","name":"LiquidationCall","inputs":[
		{"name":"collateralAsset","type":"address","indexed":true},
		{"name":"debtAsset","type":"address","indexed":true},
		{"name":"user","type":"address","indexed":true},
		{"name":"debtToCover","type":"uint256","indexed":false},
		{"name":"liquidatedCollateralAmount","type":"uint256","indexed":false},
		{"name":"liquidator","type":"address","indexed":false},
		{"name":"receiveAToken","type":"bool","indexed":false}]},
	{"type":"event","name":"FlashLoan","inputs":[
		{"name":"target","type":"address","indexed":true},
		{"name":"initiator","type":"address","indexed":false},
		{"name":"asset","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false},
		{"name":"interestRateMode","type":"uint8","indexed":false},
		{"name":"premium","type":"uint256","indexed":false},
		{"name":"referralCode","type":"uint16","indexed":true}]}
]`

var (
	parsedABI    abi.ABI
	parsedABIErr error
	parseABIOnce sync.Once
)

// PoolABI returns the parsed pool events ABI.
func PoolABI() (abi.ABI, error) {
	parseABIOnce.Do(func() {
		parsedABI, parsedABIErr = abi.JSON(strings.NewReader(poolEventsABI))
	})
	return parsedABI, parsedABIErr
}

// indexedArguments filters an event's inputs down to the indexed ones, in
// declaration order.
func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}
