package verifier

import (
	"github.com/holiman/uint256"
)

// 变化量以 256 位补码表示，u64 范围内的加减不会溢出

func delta(pre, post uint64) *uint256.Int {
	return new(uint256.Int).Sub(uint256.NewInt(post), uint256.NewInt(pre))
}

func gain(amts ...uint64) *uint256.Int {
	sum := new(uint256.Int)
	for _, a := range amts {
		sum.Add(sum, uint256.NewInt(a))
	}
	return sum
}

func loss(amts ...uint64) *uint256.Int {
	return new(uint256.Int).Neg(gain(amts...))
}

func formatSigned(v *uint256.Int) string {
	if v.Sign() < 0 {
		return "-" + new(uint256.Int).Neg(v).Dec()
	}
	return v.Dec()
}
