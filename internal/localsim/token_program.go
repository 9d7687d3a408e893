package localsim

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	sdktoken "github.com/blocto/solana-go-sdk/program/token"

	"inf1-verifier/internal/chain"
	"inf1-verifier/internal/codec"
	"inf1-verifier/internal/consts"
	"inf1-verifier/internal/pkg/types"
)

// 合约源代码:
// SplToken: https://github.com/solana-program/token/blob/main/program/src/processor.rs

var (
	ErrInvalidInstruction = errors.New("invalid instruction data")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrOwnerMismatch      = errors.New("owner does not match")
	ErrMintMismatch       = errors.New("account not associated with this Mint")
	ErrMintDecimals       = errors.New("mint decimals mismatch")
	ErrFrozen             = errors.New("account is frozen")
	ErrOverflow           = errors.New("operation overflowed")
	ErrNoMintAuthority    = errors.New("mint has no authority")
	ErrIllegalOwner       = errors.New("account not owned by token program")
)

// TokenProgram 支持 Transfer / TransferChecked / MintTo / MintToChecked / Burn / BurnChecked
type TokenProgram struct{}

func (TokenProgram) Process(ic *InvokeContext) error {
	if len(ic.Data) < 9 {
		return ErrInvalidInstruction
	}
	amount := binary.LittleEndian.Uint64(ic.Data[1:9])

	switch sdktoken.Instruction(ic.Data[0]) {
	// Transfer: [0]=instr, [1:9]=amount
	// accounts = [src_account, dest_account, authority_wallet]
	case sdktoken.InstructionTransfer:
		ic.Log("Instruction: Transfer")
		return transfer(ic, amount, 0, 1, 2, -1, 0)

	// TransferChecked: [0]=instr, [1:9]=amount, [9]=decimals
	// accounts = [src_account, mint, dest_account, authority_wallet]
	case sdktoken.InstructionTransferChecked:
		ic.Log("Instruction: TransferChecked")
		if len(ic.Data) < 10 {
			return ErrInvalidInstruction
		}
		return transfer(ic, amount, 0, 2, 3, 1, ic.Data[9])

	// MintTo: [0]=instr, [1:9]=amount, [9]=decimals (Checked)
	// accounts = [mint, dest_token_account, authority_wallet]
	case sdktoken.InstructionMintTo:
		ic.Log("Instruction: MintTo")
		return mintTo(ic, amount, -1)
	case sdktoken.InstructionMintToChecked:
		ic.Log("Instruction: MintToChecked")
		if len(ic.Data) < 10 {
			return ErrInvalidInstruction
		}
		return mintTo(ic, amount, int(ic.Data[9]))

	// Burn: [0]=instr, [1:9]=amount, [9]=decimals (Checked)
	// accounts = [src_account, mint, authority_wallet]
	case sdktoken.InstructionBurn:
		ic.Log("Instruction: Burn")
		return burn(ic, amount, -1)
	case sdktoken.InstructionBurnChecked:
		ic.Log("Instruction: BurnChecked")
		if len(ic.Data) < 10 {
			return ErrInvalidInstruction
		}
		return burn(ic, amount, int(ic.Data[9]))
	}
	return fmt.Errorf("%w: unsupported token instruction %d", ErrInvalidInstruction, ic.Data[0])
}

type loadedToken struct {
	addr types.Pubkey
	rec  chain.AccountRecord
	acc  codec.TokenAccount
}

type loadedMint struct {
	addr types.Pubkey
	rec  chain.AccountRecord
	mint codec.Mint
}

func loadTokenAccount(ic *InvokeContext, idx int) (*loadedToken, error) {
	meta, err := ic.Account(idx)
	if err != nil {
		return nil, err
	}
	rec, ok := ic.Load(meta.Pubkey)
	if !ok {
		return nil, fmt.Errorf("%w: token account %s", ErrNotEnoughAccountKeys, meta.Pubkey)
	}
	if rec.Owner != consts.TokenProgram {
		return nil, fmt.Errorf("%w: %s", ErrIllegalOwner, meta.Pubkey)
	}
	acc, err := codec.DecodeTokenAccount(rec.Data)
	if err != nil {
		return nil, err
	}
	if acc.State == codec.AccountStateFrozen {
		return nil, fmt.Errorf("%w: %s", ErrFrozen, meta.Pubkey)
	}
	return &loadedToken{addr: meta.Pubkey, rec: rec, acc: acc}, nil
}

func loadMint(ic *InvokeContext, idx int) (*loadedMint, error) {
	meta, err := ic.Account(idx)
	if err != nil {
		return nil, err
	}
	rec, ok := ic.Load(meta.Pubkey)
	if !ok {
		return nil, fmt.Errorf("%w: mint %s", ErrNotEnoughAccountKeys, meta.Pubkey)
	}
	if rec.Owner != consts.TokenProgram {
		return nil, fmt.Errorf("%w: %s", ErrIllegalOwner, meta.Pubkey)
	}
	m, err := codec.DecodeMint(rec.Data)
	if err != nil {
		return nil, err
	}
	return &loadedMint{addr: meta.Pubkey, rec: rec, mint: m}, nil
}

func requireSigner(ic *InvokeContext, idx int, want types.Pubkey) error {
	meta, err := ic.Account(idx)
	if err != nil {
		return err
	}
	if meta.Pubkey != want {
		return fmt.Errorf("%w: want %s, got %s", ErrOwnerMismatch, want, meta.Pubkey)
	}
	if !meta.IsSigner {
		return fmt.Errorf("%w: %s", ErrMissingSignature, meta.Pubkey)
	}
	return nil
}

func storeBalance(ic *InvokeContext, t *loadedToken, amount uint64) error {
	data, err := codec.SetTokenAccountBalance(t.rec.Data, amount)
	if err != nil {
		return err
	}
	rec := t.rec
	rec.Data = data
	return ic.Store(t.addr, rec)
}

func storeSupply(ic *InvokeContext, m *loadedMint, supply uint64) error {
	data, err := codec.SetMintSupply(m.rec.Data, supply)
	if err != nil {
		return err
	}
	rec := m.rec
	rec.Data = data
	return ic.Store(m.addr, rec)
}

// mintIdx < 0 表示非 Checked 版本
func transfer(ic *InvokeContext, amount uint64, srcIdx, dstIdx, authIdx, mintIdx int, decimals uint8) error {
	src, err := loadTokenAccount(ic, srcIdx)
	if err != nil {
		return err
	}
	dst, err := loadTokenAccount(ic, dstIdx)
	if err != nil {
		return err
	}
	if src.acc.Mint != dst.acc.Mint {
		return ErrMintMismatch
	}
	if mintIdx >= 0 {
		m, err := loadMint(ic, mintIdx)
		if err != nil {
			return err
		}
		if m.addr != src.acc.Mint {
			return ErrMintMismatch
		}
		if m.mint.Decimals != decimals {
			return ErrMintDecimals
		}
	}
	if err := requireSigner(ic, authIdx, src.acc.Owner); err != nil {
		return err
	}
	if src.acc.Amount < amount {
		return ErrInsufficientFunds
	}
	if src.addr == dst.addr {
		return nil
	}
	if dst.acc.Amount > math.MaxUint64-amount {
		return ErrOverflow
	}
	if err := storeBalance(ic, src, src.acc.Amount-amount); err != nil {
		return err
	}
	return storeBalance(ic, dst, dst.acc.Amount+amount)
}

func mintTo(ic *InvokeContext, amount uint64, decimals int) error {
	m, err := loadMint(ic, 0)
	if err != nil {
		return err
	}
	dst, err := loadTokenAccount(ic, 1)
	if err != nil {
		return err
	}
	if dst.acc.Mint != m.addr {
		return ErrMintMismatch
	}
	if decimals >= 0 && int(m.mint.Decimals) != decimals {
		return ErrMintDecimals
	}
	if !m.mint.MintAuthority.IsSome() {
		return ErrNoMintAuthority
	}
	if err := requireSigner(ic, 2, m.mint.MintAuthority.Key); err != nil {
		return err
	}
	if m.mint.Supply > math.MaxUint64-amount || dst.acc.Amount > math.MaxUint64-amount {
		return ErrOverflow
	}
	if err := storeSupply(ic, m, m.mint.Supply+amount); err != nil {
		return err
	}
	return storeBalance(ic, dst, dst.acc.Amount+amount)
}

func burn(ic *InvokeContext, amount uint64, decimals int) error {
	src, err := loadTokenAccount(ic, 0)
	if err != nil {
		return err
	}
	m, err := loadMint(ic, 1)
	if err != nil {
		return err
	}
	if src.acc.Mint != m.addr {
		return ErrMintMismatch
	}
	if decimals >= 0 && int(m.mint.Decimals) != decimals {
		return ErrMintDecimals
	}
	if err := requireSigner(ic, 2, src.acc.Owner); err != nil {
		return err
	}
	if src.acc.Amount < amount {
		return ErrInsufficientFunds
	}
	if m.mint.Supply < amount {
		return ErrOverflow
	}
	if err := storeBalance(ic, src, src.acc.Amount-amount); err != nil {
		return err
	}
	return storeSupply(ic, m, m.mint.Supply-amount)
}
