package fixtures

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeromicro/go-zero/core/jsonx"

	"inf1-verifier/internal/chain"
	"inf1-verifier/internal/codec"
	"inf1-verifier/internal/pkg/types"
	"inf1-verifier/internal/tools"
)

const (
	encodingBase64 = "base64"
	fileExt        = ".json"
)

var ErrBadEncoding = errors.New("unsupported fixture data encoding")

// Account solana-test-validator --account 使用的 JSON 格式
// 数值字段直接解析为 uint64（rentEpoch 可能为 u64::MAX），不经过 float
type Account struct {
	Lamports   uint64       `json:"lamports"`
	Data       [2]string    `json:"data"` // [base64 数据, "base64"]
	Owner      types.Pubkey `json:"owner"`
	Executable bool         `json:"executable"`
	RentEpoch  uint64       `json:"rentEpoch"`
	Space      uint64       `json:"space"`
}

type Record struct {
	Pubkey  types.Pubkey `json:"pubkey"`
	Account Account      `json:"account"`
}

func Parse(data []byte) (Record, error) {
	var r Record
	if err := jsonx.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("parse fixture: %w", err)
	}
	return r, nil
}

func (r Record) Marshal() ([]byte, error) {
	return jsonx.Marshal(r)
}

// ToAccount 解码 base64 数据，得到地址与账户快照
func (r Record) ToAccount() (types.Pubkey, chain.AccountRecord, error) {
	if r.Account.Data[1] != encodingBase64 {
		return types.Pubkey{}, chain.AccountRecord{}, fmt.Errorf("%w: %q (%s)", ErrBadEncoding, r.Account.Data[1], r.Pubkey)
	}
	data, err := base64.StdEncoding.DecodeString(r.Account.Data[0])
	if err != nil {
		return types.Pubkey{}, chain.AccountRecord{}, fmt.Errorf("decode fixture data %s: %w", r.Pubkey, err)
	}
	return r.Pubkey, chain.AccountRecord{
		Data:       data,
		Owner:      r.Account.Owner,
		Lamports:   r.Account.Lamports,
		Executable: r.Account.Executable,
		RentEpoch:  r.Account.RentEpoch,
	}, nil
}

func FromAccount(addr types.Pubkey, rec chain.AccountRecord) Record {
	return Record{
		Pubkey: addr,
		Account: Account{
			Lamports:   rec.Lamports,
			Data:       [2]string{base64.StdEncoding.EncodeToString(rec.Data), encodingBase64},
			Owner:      rec.Owner,
			Executable: rec.Executable,
			RentEpoch:  rec.RentEpoch,
			Space:      uint64(len(rec.Data)),
		},
	}
}

// Path 快照文件路径：<dir>/<name>.json
func Path(dir, name string) string {
	return filepath.Join(dir, name+fileExt)
}

func Load(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	r, err := Parse(data)
	if err != nil {
		return Record{}, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func LoadNamed(dir, name string) (Record, error) {
	return Load(Path(dir, name))
}

// LoadDir 加载目录下所有 .json 快照
func LoadDir(dir string) (chain.AccountMap, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return chain.AccountMap{}, err
	}
	m := make(map[types.Pubkey]chain.AccountRecord, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		r, err := Load(filepath.Join(dir, e.Name()))
		if err != nil {
			return chain.AccountMap{}, err
		}
		addr, rec, err := r.ToAccount()
		if err != nil {
			return chain.AccountMap{}, err
		}
		m[addr] = rec
	}
	return chain.NewAccountMap(m), nil
}

func Write(path string, r Record) error {
	data, err := r.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// WriteDir 按 name -> 账户 写出一组快照
func WriteDir(dir string, named map[string]Record) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for name, r := range named {
		if err := Write(Path(dir, name), r); err != nil {
			return err
		}
	}
	return nil
}

// TokenAcc token 账户快照的地址、owner 与 mint
type TokenAcc struct {
	Addr  types.Pubkey
	Owner types.Pubkey
	Mint  types.Pubkey
}

func LoadTokenAcc(dir, name string) (TokenAcc, error) {
	r, err := LoadNamed(dir, name)
	if err != nil {
		return TokenAcc{}, err
	}
	addr, rec, err := r.ToAccount()
	if err != nil {
		return TokenAcc{}, err
	}
	if !tools.IsTokenAccount(rec) {
		return TokenAcc{}, fmt.Errorf("fixture %s: %s is not a token account (owner %s)", name, addr, rec.Owner)
	}
	owner, err := codec.TokenAccountOwner(rec.Data)
	if err != nil {
		return TokenAcc{}, fmt.Errorf("fixture %s: %w", name, err)
	}
	mint, err := codec.TokenAccountMint(rec.Data)
	if err != nil {
		return TokenAcc{}, fmt.Errorf("fixture %s: %w", name, err)
	}
	return TokenAcc{Addr: addr, Owner: owner, Mint: mint}, nil
}
