package verifier

import (
	"github.com/holiman/uint256"

	"inf1-verifier/internal/pkg/types"
)

const (
	KindTrade     = "trade"
	KindRebalance = "rebalance"
)

// Check 单个账户数量的前后对比
type Check struct {
	Quantity string
	Address  types.Pubkey
	Pre      uint64
	Post     uint64
	Expected *uint256.Int
	Actual   *uint256.Int
}

func (c Check) Passed() bool {
	return c.Expected.Eq(c.Actual)
}

func (c Check) assertionError(logs []string) *AssertionError {
	return &AssertionError{
		Quantity: c.Quantity,
		Address:  c.Address,
		Expected: formatSigned(c.Expected),
		Actual:   formatSigned(c.Actual),
		Logs:     logs,
	}
}

// Report 一次校验的完整结果，失败项也全部保留
type Report struct {
	Kind   string
	Checks []Check
	Logs   []string
	Tx     string
}

func (r *Report) Failed() []Check {
	var out []Check
	for _, c := range r.Checks {
		if !c.Passed() {
			out = append(out, c)
		}
	}
	return out
}

func (r *Report) Passed() bool {
	return len(r.Failed()) == 0
}

// Err 返回第一个失败项对应的 AssertionError，全部通过时为 nil
func (r *Report) Err() error {
	for _, c := range r.Checks {
		if !c.Passed() {
			return c.assertionError(r.Logs)
		}
	}
	return nil
}
