package types

import (
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/mr-tron/base58"
	"gopkg.in/yaml.v3"
)

// Pubkey 表示 32 字节的链上地址（mint、账户、程序、签名者均使用该类型）
type Pubkey [32]byte

func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

func (p Pubkey) Equals(other Pubkey) bool {
	return p == other
}

func (p Pubkey) IsZero() bool {
	return p == Pubkey{}
}

// ToSdk 转换为 blocto sdk 的公钥类型，底层同为 [32]byte，零拷贝
func (p Pubkey) ToSdk() common.PublicKey {
	return common.PublicKey(p)
}

func PubkeyFromSdk(pk common.PublicKey) Pubkey {
	return Pubkey(pk)
}

// TryPubkeyFromBase58 解析 base58 字符串为 Pubkey，失败时返回 error（用于不信任输入路径）
func TryPubkeyFromBase58(s string) (Pubkey, error) {
	data, err := base58.Decode(s)
	if err != nil {
		return Pubkey{}, fmt.Errorf("failed to decode base58 pubkey %q: %w", s, err)
	}
	if len(data) != 32 {
		return Pubkey{}, fmt.Errorf("invalid pubkey length: got %d, want 32, input=%q", len(data), s)
	}
	var p Pubkey
	copy(p[:], data)
	return p, nil
}

func PubkeyFromBase58(s string) Pubkey {
	p, err := TryPubkeyFromBase58(s)
	if err != nil {
		panic(err)
	}
	return p
}

func PubkeysFromBase58(strs []string) []Pubkey {
	result := make([]Pubkey, 0, len(strs))
	for _, s := range strs {
		result = append(result, PubkeyFromBase58(s))
	}
	return result
}

// PubkeysToBase58 用于 RPC 请求参数（如 simulateTransaction 的 accounts.addresses）
func PubkeysToBase58(keys []Pubkey) []string {
	result := make([]string, 0, len(keys))
	for _, k := range keys {
		result = append(result, k.String())
	}
	return result
}

// MarshalText / UnmarshalText 让 Pubkey 在 JSON 中以 base58 字符串出现
func (p Pubkey) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Pubkey) UnmarshalText(text []byte) error {
	pk, err := TryPubkeyFromBase58(string(text))
	if err != nil {
		return err
	}
	*p = pk
	return nil
}

// UnmarshalYAML 支持 scenario / cases 文件中直接写 base58 地址
func (p *Pubkey) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return p.UnmarshalText([]byte(s))
}
