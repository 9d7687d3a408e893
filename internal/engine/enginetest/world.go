package enginetest

import (
	"github.com/blocto/solana-go-sdk/common"

	"inf1-verifier/internal/chain"
	"inf1-verifier/internal/consts"
	"inf1-verifier/internal/engine"
	"inf1-verifier/internal/fixtures"
	"inf1-verifier/internal/localsim"
	"inf1-verifier/internal/pda"
	"inf1-verifier/internal/pkg/types"
)

const (
	DefaultReserves    uint64 = 1_000_000_000_000
	DefaultUserBalance uint64 = 100_000_000_000
	DefaultLpSupply    uint64 = 5_000_000_000_000
)

// User 所有 "<lst>-token-acc" 快照的 owner
var User = types.PubkeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")

// LaineSOLStakePool 测试用的 laineSOL stake pool 地址
var LaineSOLStakePool = mustPda([]byte("stake-pool"), consts.LaineSOLMint[:])

type lst struct {
	name     string
	mint     types.Pubkey
	decimals uint8
}

var lsts = []lst{
	{"wsol", consts.WSOLMint, 9},
	{"msol", consts.MSOLMint, 9},
	{"stsol", consts.STSOLMint, 9},
	{"jupsol", consts.JupSOLMint, 9},
	{"lainesol", consts.LaineSOLMint, 9},
}

func mustPda(seeds ...[]byte) types.Pubkey {
	pk, _, err := common.FindProgramAddress(seeds, consts.SplStakePoolProgram.ToSdk())
	if err != nil {
		panic(err)
	}
	return types.PubkeyFromSdk(pk)
}

// SplLsts 全部 SPL LST 的 stake pool 数据
func SplLsts() engine.SplLsts {
	return engine.SplLsts{
		consts.JupSOLMint:   consts.JupSOLStakePool,
		consts.LaineSOLMint: LaineSOLStakePool,
	}
}

// UserTokenAcc User 在 mint 上的 ATA
func UserTokenAcc(mint types.Pubkey) types.Pubkey {
	pk, _, err := common.FindAssociatedTokenAddress(User.ToSdk(), mint.ToSdk())
	if err != nil {
		panic(err)
	}
	return types.PubkeyFromSdk(pk)
}

// World INF 池及用户账户的完整链上状态，命名账户可写出为快照目录
type World struct {
	accounts map[types.Pubkey]chain.AccountRecord
	named    map[string]types.Pubkey
}

func NewWorld() *World {
	w := &World{
		accounts: map[types.Pubkey]chain.AccountRecord{},
		named:    map[string]types.Pubkey{},
	}
	std := pda.NewStd()

	w.put("pool-state", consts.PoolState, chain.AccountRecord{Data: make([]byte, 256), Owner: consts.InfProgram, Lamports: 1})
	w.put("lst-state-list", consts.LstStateList, chain.AccountRecord{Data: make([]byte, 80*len(lsts)), Owner: consts.InfProgram, Lamports: 1})
	w.put("inf-mint", consts.InfMint, localsim.MintRecord(consts.PoolState, DefaultLpSupply, 9))
	w.put("inf-token-acc", UserTokenAcc(consts.InfMint), localsim.TokenAccountRecord(consts.InfMint, User, DefaultUserBalance))
	infAccum, _, _ := std.FindProtocolFeeAccumulatorAta(consts.InfMint)
	w.put("inf-protocol-fee-accum", infAccum, localsim.TokenAccountRecord(consts.InfMint, consts.ProtocolFee, 0))

	for _, l := range lsts {
		reserves, _, _ := std.FindPoolReservesAta(l.mint)
		accum, _, _ := std.FindProtocolFeeAccumulatorAta(l.mint)
		w.put(l.name+"-mint", l.mint, localsim.MintRecord(consts.PoolState, DefaultReserves*10, l.decimals))
		w.put(l.name+"-reserves", reserves, localsim.TokenAccountRecord(l.mint, consts.PoolState, DefaultReserves))
		w.put(l.name+"-protocol-fee-accum", accum, localsim.TokenAccountRecord(l.mint, consts.ProtocolFee, 0))
		w.put(l.name+"-token-acc", UserTokenAcc(l.mint), localsim.TokenAccountRecord(l.mint, User, DefaultUserBalance))
	}
	w.put("jupsol-stake-pool", consts.JupSOLStakePool, chain.AccountRecord{Data: make([]byte, 611), Owner: consts.SplStakePoolProgram, Lamports: 1})
	w.put("lainesol-stake-pool", LaineSOLStakePool, chain.AccountRecord{Data: make([]byte, 611), Owner: consts.SplStakePoolProgram, Lamports: 1})
	return w
}

func (w *World) put(name string, addr types.Pubkey, rec chain.AccountRecord) {
	w.accounts[addr] = rec
	w.named[name] = addr
}

// Set 覆盖单个账户
func (w *World) Set(addr types.Pubkey, rec chain.AccountRecord) {
	w.accounts[addr] = rec
}

func (w *World) Delete(addr types.Pubkey) {
	delete(w.accounts, addr)
}

func (w *World) Addr(name string) types.Pubkey {
	return w.named[name]
}

// SetReserves 修改某个 LST 的池子余额
func (w *World) SetReserves(mint types.Pubkey, amount uint64) {
	reserves, _, _ := pda.NewStd().FindPoolReservesAta(mint)
	w.accounts[reserves] = localsim.TokenAccountRecord(mint, consts.PoolState, amount)
}

func (w *World) AccountMap() chain.AccountMap {
	return chain.NewAccountMap(w.accounts)
}

// Bank 基于当前状态的本地 bank，已注册 INF 程序
func (w *World) Bank() *localsim.Bank {
	return NewBank(w.AccountMap())
}

// NewBank 基于任意账户集合（如从快照目录加载）的本地 bank，已注册 INF 程序
func NewBank(accs chain.AccountMap) *localsim.Bank {
	b := localsim.NewBank(accs)
	b.Register(consts.InfProgram, Program{})
	return b
}

// WriteFixtures 把命名账户写成 <dir>/<name>.json
func (w *World) WriteFixtures(dir string) error {
	named := make(map[string]fixtures.Record, len(w.named))
	for name, addr := range w.named {
		rec, ok := w.accounts[addr]
		if !ok {
			continue
		}
		named[name] = fixtures.FromAccount(addr, rec)
	}
	return fixtures.WriteDir(dir, named)
}
