package chain

import (
	"context"
	"fmt"
	"sort"

	"inf1-verifier/internal/pkg/types"
)

// AccountRecord 单个账户在某一时刻的快照
type AccountRecord struct {
	Data       []byte
	Owner      types.Pubkey
	Lamports   uint64
	Executable bool
	RentEpoch  uint64
}

// Clone 深拷贝 Data，避免快照之间共享底层数组
func (r AccountRecord) Clone() AccountRecord {
	out := r
	if r.Data != nil {
		out.Data = append([]byte(nil), r.Data...)
	}
	return out
}

// AccountMap 不可变的 address -> AccountRecord 快照
// 构造后不再修改；覆盖写入通过 With 产生新 map
type AccountMap struct {
	m map[types.Pubkey]AccountRecord
}

func NewAccountMap(m map[types.Pubkey]AccountRecord) AccountMap {
	cp := make(map[types.Pubkey]AccountRecord, len(m))
	for k, v := range m {
		cp[k] = v.Clone()
	}
	return AccountMap{m: cp}
}

func EmptyAccountMap() AccountMap {
	return AccountMap{m: map[types.Pubkey]AccountRecord{}}
}

func (am AccountMap) Get(addr types.Pubkey) (AccountRecord, bool) {
	r, ok := am.m[addr]
	if !ok {
		return AccountRecord{}, false
	}
	return r.Clone(), true
}

func (am AccountMap) MustGet(addr types.Pubkey) AccountRecord {
	r, ok := am.Get(addr)
	if !ok {
		panic(fmt.Sprintf("account %s not in map", addr))
	}
	return r
}

func (am AccountMap) Has(addr types.Pubkey) bool {
	_, ok := am.m[addr]
	return ok
}

func (am AccountMap) Len() int {
	return len(am.m)
}

// Addresses 按 base58 排序返回，输出顺序稳定
func (am AccountMap) Addresses() []types.Pubkey {
	out := make([]types.Pubkey, 0, len(am.m))
	for k := range am.m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Range 遍历所有账户，fn 返回 false 时停止
func (am AccountMap) Range(fn func(addr types.Pubkey, rec AccountRecord) bool) {
	for k, v := range am.m {
		if !fn(k, v.Clone()) {
			return
		}
	}
}

// With 返回叠加 overrides 后的新 map，原 map 不变
func (am AccountMap) With(overrides map[types.Pubkey]AccountRecord) AccountMap {
	cp := make(map[types.Pubkey]AccountRecord, len(am.m)+len(overrides))
	for k, v := range am.m {
		cp[k] = v
	}
	for k, v := range overrides {
		cp[k] = v.Clone()
	}
	return AccountMap{m: cp}
}

// Merge 合并两个快照，other 覆盖同名地址
func (am AccountMap) Merge(other AccountMap) AccountMap {
	return am.With(other.m)
}

// AccountSource 链上账户读取接口，found=false 表示账户不存在
type AccountSource interface {
	GetAccount(ctx context.Context, addr types.Pubkey) (rec AccountRecord, found bool, err error)
}
