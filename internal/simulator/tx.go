package simulator

import (
	"encoding/base64"
	"errors"

	solanatypes "github.com/blocto/solana-go-sdk/types"

	"inf1-verifier/internal/consts"
	"inf1-verifier/internal/pkg/types"
)

const signatureLen = 64

var ErrNoInstructions = errors.New("transaction has no instructions")

// BuildSimTx 组装只用于模拟的交易：fee payer 在首位，blockhash 为全零占位，签名全零（不签名、不广播）
func BuildSimTx(payer types.Pubkey, ixs ...solanatypes.Instruction) (solanatypes.Transaction, error) {
	if len(ixs) == 0 {
		return solanatypes.Transaction{}, ErrNoInstructions
	}
	msg := solanatypes.NewMessage(solanatypes.NewMessageParam{
		FeePayer:        payer.ToSdk(),
		Instructions:    ixs,
		RecentBlockhash: consts.NullBlockhashStr,
	})
	// Serialize 要求签名数与 header 一致
	sigs := make([]solanatypes.Signature, msg.Header.NumRequireSignatures)
	for i := range sigs {
		sigs[i] = make([]byte, signatureLen)
	}
	return solanatypes.Transaction{Signatures: sigs, Message: msg}, nil
}

// EncodeTx base64 wire 格式，用于诊断输出
func EncodeTx(tx solanatypes.Transaction) (string, error) {
	raw, err := tx.Serialize()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
