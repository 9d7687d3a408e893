package verifier

import (
	"errors"
	"fmt"
	"strings"

	"inf1-verifier/internal/pkg/types"
)

var ErrAssertion = errors.New("quote assertion failed")

// AssertionError 模拟后的账户变化与报价不一致
type AssertionError struct {
	Quantity string
	Address  types.Pubkey
	Expected string // 带符号的期望变化量
	Actual   string // 带符号的实际变化量
	Logs     []string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s (%s): expected delta %s, actual delta %s\nlogs:\n%s",
		e.Quantity, e.Address, e.Expected, e.Actual, strings.Join(e.Logs, "\n"))
}

func (e *AssertionError) Is(target error) bool {
	return target == ErrAssertion
}
