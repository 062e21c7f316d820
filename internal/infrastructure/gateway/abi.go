package gateway

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Minimal ABI of the membership contract: only the methods the engine calls.
const membershipABIJSON = `[
{"type":"function","name":"lastIndex","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"isPaused","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"index","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"position","stateMutability":"view","inputs":[{"name":"idx","type":"uint256"}],"outputs":[{"name":"isLeft","type":"bool"},{"name":"name","type":"string"},{"name":"hide","type":"bool"},{"name":"wallet","type":"address"},{"name":"time","type":"uint256"}]},
{"type":"function","name":"_tetherBalances","stateMutability":"view","inputs":[{"name":"idx","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"balance","stateMutability":"view","inputs":[{"name":"idx","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"totalRecived","stateMutability":"view","inputs":[{"name":"idx","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"left","stateMutability":"view","inputs":[{"name":"idx","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"right","stateMutability":"view","inputs":[{"name":"idx","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"getRunningUsers","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256[]"}]},
{"type":"function","name":"liquidity","stateMutability":"view","inputs":[{"name":"slot","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"entryAmount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"adminFeeAmount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"hideCount","stateMutability":"view","inputs":[{"name":"idx","type":"uint256"},{"name":"isLeft","type":"bool"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"tier1Amount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"tier2Amount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"tier3Amount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"hideActivationPeriod","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"getLeftChildren","stateMutability":"view","inputs":[{"name":"idx","type":"uint256"}],"outputs":[{"name":"","type":"uint256[]"}]},
{"type":"function","name":"getRightChildren","stateMutability":"view","inputs":[{"name":"idx","type":"uint256"}],"outputs":[{"name":"","type":"uint256[]"}]},
{"type":"function","name":"addressExists","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"join","stateMutability":"nonpayable","inputs":[{"name":"referral","type":"uint256"},{"name":"isLeft","type":"bool"},{"name":"amount","type":"uint256"}],"outputs":[]},
{"type":"function","name":"activeHide","stateMutability":"nonpayable","inputs":[{"name":"child","type":"address"},{"name":"isLeft","type":"bool"},{"name":"amount","type":"uint256"}],"outputs":[]}
]`

// Minimal ERC20 ABI.
const tokenABIJSON = `[
{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]}
]`

var (
	membershipABI  abi.ABI
	tokenABI       abi.ABI
	parsedABIsOnce sync.Once
)

func parsedABIs() (abi.ABI, abi.ABI) {
	parsedABIsOnce.Do(func() {
		var err error
		membershipABI, err = abi.JSON(strings.NewReader(membershipABIJSON))
		if err != nil {
			panic(fmt.Sprintf("failed to parse membership ABI: %v", err))
		}
		tokenABI, err = abi.JSON(strings.NewReader(tokenABIJSON))
		if err != nil {
			panic(fmt.Sprintf("failed to parse token ABI: %v", err))
		}
	})
	return membershipABI, tokenABI
}

// MembershipABI returns the parsed membership contract ABI.
func MembershipABI() abi.ABI {
	m, _ := parsedABIs()
	return m
}

// TokenABI returns the parsed token contract ABI.
func TokenABI() abi.ABI {
	_, t := parsedABIs()
	return t
}
