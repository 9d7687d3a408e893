package recorded

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	solanatypes "github.com/blocto/solana-go-sdk/types"
	"gopkg.in/yaml.v3"

	"inf1-verifier/internal/engine"
	"inf1-verifier/internal/pkg/types"
)

// 指令账户里的占位符，构造指令时替换为调用方传入的账户
const (
	PlaceholderSigner      = "$signer"
	PlaceholderInpTokenAcc = "$inp_token_acc"
	PlaceholderOutTokenAcc = "$out_token_acc"
	PlaceholderWithdrawTo  = "$withdraw_to"
)

// Cases 由 Recorder 从被包装的引擎录制的报价、指令与错误
type Cases struct {
	LpMint    types.Pubkey    `yaml:"lp_mint"`
	InitPks   []types.Pubkey  `yaml:"init_pks"`
	SplMints  []types.Pubkey  `yaml:"spl_mints,omitempty"`
	Trade     []TradeCase     `yaml:"trade,omitempty"`
	Rebalance []RebalanceCase `yaml:"rebalance,omitempty"`
}

type TradeCase struct {
	Mints            engine.Pair    `yaml:"mints"`
	AccountsToUpdate []types.Pubkey `yaml:"accounts_to_update,omitempty"`
	Err              string         `yaml:"err,omitempty"` // AccountsToUpdateForTrade 的错误
	ExactIn          []TradeEntry   `yaml:"exact_in,omitempty"`
	ExactOut         []TradeEntry   `yaml:"exact_out,omitempty"`
}

type TradeEntry struct {
	Amt   uint64      `yaml:"amt"`
	Quote QuoteRecord `yaml:"quote,omitempty"`
	Ix    *IxRecord   `yaml:"ix,omitempty"`
	Err   string      `yaml:"err,omitempty"`

	err *engine.InfErr
}

type QuoteRecord struct {
	Inp         uint64         `yaml:"inp"`
	Out         uint64         `yaml:"out"`
	ProtocolFee uint64         `yaml:"protocol_fee"`
	FeeMint     engine.FeeMint `yaml:"fee_mint"`
}

type RebalanceCase struct {
	Mints            engine.Pair      `yaml:"mints"`
	AccountsToUpdate []types.Pubkey   `yaml:"accounts_to_update,omitempty"`
	Err              string           `yaml:"err,omitempty"`
	Entries          []RebalanceEntry `yaml:"entries,omitempty"`
}

type RebalanceEntry struct {
	Out            uint64    `yaml:"out"`
	Inp            uint64    `yaml:"inp,omitempty"`
	StartingOutLst uint64    `yaml:"starting_out_lst,omitempty"`
	StartingInpLst uint64    `yaml:"starting_inp_lst,omitempty"`
	Start          *IxRecord `yaml:"start,omitempty"`
	End            *IxRecord `yaml:"end,omitempty"`
	Err            string    `yaml:"err,omitempty"`

	err *engine.InfErr
}

type IxRecord struct {
	ProgramID types.Pubkey `yaml:"program_id"`
	Accounts  []MetaRecord `yaml:"accounts"`
	Data      string       `yaml:"data"` // base64

	data []byte
}

type MetaRecord struct {
	Pubkey   string `yaml:"pubkey"` // base58 或占位符
	Signer   bool   `yaml:"signer,omitempty"`
	Writable bool   `yaml:"writable,omitempty"`
}

func LoadCases(path string) (*Cases, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cases %s: %w", path, err)
	}
	return ParseCases(raw)
}

// ParseCases 解析并预先校验全部错误字符串与指令，未知错误码直接失败
func ParseCases(raw []byte) (*Cases, error) {
	var c Cases
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse cases: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Marshal 输出的 YAML 可由 ParseCases 原样读回
func (c *Cases) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func (c *Cases) validate() error {
	for i := range c.Trade {
		tc := &c.Trade[i]
		if err := checkErr(tc.Err); err != nil {
			return fmt.Errorf("trade %s -> %s: %w", tc.Mints.Inp, tc.Mints.Out, err)
		}
		for _, entries := range [][]TradeEntry{tc.ExactIn, tc.ExactOut} {
			for j := range entries {
				if err := entries[j].prepare(); err != nil {
					return fmt.Errorf("trade %s -> %s amt %d: %w", tc.Mints.Inp, tc.Mints.Out, entries[j].Amt, err)
				}
			}
		}
	}
	for i := range c.Rebalance {
		rc := &c.Rebalance[i]
		if err := checkErr(rc.Err); err != nil {
			return fmt.Errorf("rebalance %s -> %s: %w", rc.Mints.Inp, rc.Mints.Out, err)
		}
		for j := range rc.Entries {
			if err := rc.Entries[j].prepare(); err != nil {
				return fmt.Errorf("rebalance %s -> %s out %d: %w", rc.Mints.Inp, rc.Mints.Out, rc.Entries[j].Out, err)
			}
		}
	}
	return nil
}

func checkErr(s string) error {
	if s == "" {
		return nil
	}
	_, err := engine.ParseInfErr(s)
	return err
}

func (e *TradeEntry) prepare() error {
	if e.Err != "" {
		ie, err := engine.ParseInfErr(e.Err)
		if err != nil {
			return err
		}
		e.err = ie
		return nil
	}
	if e.Ix == nil {
		return fmt.Errorf("missing ix")
	}
	return e.Ix.prepare()
}

func (e *RebalanceEntry) prepare() error {
	if e.Err != "" {
		ie, err := engine.ParseInfErr(e.Err)
		if err != nil {
			return err
		}
		e.err = ie
		return nil
	}
	if e.Start == nil || e.End == nil {
		return fmt.Errorf("missing start or end ix")
	}
	if err := e.Start.prepare(); err != nil {
		return err
	}
	return e.End.prepare()
}

func (r *IxRecord) prepare() error {
	data, err := base64.StdEncoding.DecodeString(r.Data)
	if err != nil {
		return fmt.Errorf("ix data: %w", err)
	}
	r.data = data
	for _, m := range r.Accounts {
		if strings.HasPrefix(m.Pubkey, "$") {
			if !knownPlaceholder(m.Pubkey) {
				return fmt.Errorf("unknown placeholder %s", m.Pubkey)
			}
			continue
		}
		if _, err := types.TryPubkeyFromBase58(m.Pubkey); err != nil {
			return fmt.Errorf("ix account %s: %w", m.Pubkey, err)
		}
	}
	return nil
}

func knownPlaceholder(s string) bool {
	switch s {
	case PlaceholderSigner, PlaceholderInpTokenAcc, PlaceholderOutTokenAcc, PlaceholderWithdrawTo:
		return true
	}
	return false
}

// build 替换占位符得到可执行的指令
func (r *IxRecord) build(subst map[string]types.Pubkey) (solanatypes.Instruction, error) {
	metas := make([]solanatypes.AccountMeta, len(r.Accounts))
	for i, m := range r.Accounts {
		var pk types.Pubkey
		if strings.HasPrefix(m.Pubkey, "$") {
			v, ok := subst[m.Pubkey]
			if !ok {
				return solanatypes.Instruction{}, &engine.InfErr{Code: engine.InternalErr, Detail: "placeholder " + m.Pubkey + " not available"}
			}
			pk = v
		} else {
			pk = types.PubkeyFromBase58(m.Pubkey)
		}
		metas[i] = solanatypes.AccountMeta{PubKey: pk.ToSdk(), IsSigner: m.Signer, IsWritable: m.Writable}
	}
	data := make([]byte, len(r.data))
	copy(data, r.data)
	return solanatypes.Instruction{ProgramID: r.ProgramID.ToSdk(), Accounts: metas, Data: data}, nil
}

// RecordIx 把指令记录为 IxRecord，names 中的账户写成占位符
func RecordIx(ix solanatypes.Instruction, names map[types.Pubkey]string) IxRecord {
	r := IxRecord{
		ProgramID: types.PubkeyFromSdk(ix.ProgramID),
		Accounts:  make([]MetaRecord, len(ix.Accounts)),
		Data:      base64.StdEncoding.EncodeToString(ix.Data),
	}
	for i, a := range ix.Accounts {
		pk := types.PubkeyFromSdk(a.PubKey)
		name, ok := names[pk]
		if !ok {
			name = pk.String()
		}
		r.Accounts[i] = MetaRecord{Pubkey: name, Signer: a.IsSigner, Writable: a.IsWritable}
	}
	return r
}
