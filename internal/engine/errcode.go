package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCode 引擎错误码，封闭集合，顺序固定
type ErrCode uint8

const (
	AccDeserErr ErrCode = iota
	InternalErr
	MissingAccErr
	MissingSplDataErr
	MissingSvcDataErr
	NoValidPdaErr
	PoolErr
	UnknownPpErr
	UnknownSvcErr
	UnsupportedMintErr
	SizeTooSmallErr
	SizeTooLargeErr

	errCodeCount
)

var errCodeNames = [errCodeCount]string{
	AccDeserErr:        "AccDeserErr",
	InternalErr:        "InternalErr",
	MissingAccErr:      "MissingAccErr",
	MissingSplDataErr:  "MissingSplDataErr",
	MissingSvcDataErr:  "MissingSvcDataErr",
	NoValidPdaErr:      "NoValidPdaErr",
	PoolErr:            "PoolErr",
	UnknownPpErr:       "UnknownPpErr",
	UnknownSvcErr:      "UnknownSvcErr",
	UnsupportedMintErr: "UnsupportedMintErr",
	SizeTooSmallErr:    "SizeTooSmallErr",
	SizeTooLargeErr:    "SizeTooLargeErr",
}

var ErrUnknownErrCode = errors.New("unknown inf error code")

func (c ErrCode) String() string {
	if c >= errCodeCount {
		return fmt.Sprintf("ErrCode(%d)", uint8(c))
	}
	return errCodeNames[c]
}

func (c ErrCode) Valid() bool {
	return c < errCodeCount
}

// AllErrCodes 按固定顺序返回全部错误码
func AllErrCodes() []ErrCode {
	out := make([]ErrCode, 0, errCodeCount)
	for c := ErrCode(0); c < errCodeCount; c++ {
		out = append(out, c)
	}
	return out
}

func ParseErrCode(s string) (ErrCode, error) {
	for c := ErrCode(0); c < errCodeCount; c++ {
		if errCodeNames[c] == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownErrCode, s)
}

func (c ErrCode) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownErrCode, uint8(c))
	}
	return []byte(c.String()), nil
}

func (c *ErrCode) UnmarshalText(text []byte) error {
	code, err := ParseErrCode(string(text))
	if err != nil {
		return err
	}
	*c = code
	return nil
}

// InfErr 引擎返回的结构化错误，字符串形式为 "<code>:<detail>"
type InfErr struct {
	Code   ErrCode
	Detail string
}

func (e *InfErr) Error() string {
	return e.Code.String() + ":" + e.Detail
}

// Is 同错误码即视为相同，便于 errors.Is(err, &InfErr{Code: PoolErr})
func (e *InfErr) Is(target error) bool {
	t, ok := target.(*InfErr)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// ParseInfErr 按第一个冒号切分，未知错误码直接失败
func ParseInfErr(msg string) (*InfErr, error) {
	codeStr, detail, _ := strings.Cut(msg, ":")
	code, err := ParseErrCode(codeStr)
	if err != nil {
		return nil, err
	}
	return &InfErr{Code: code, Detail: detail}, nil
}

// AsInfErr 从错误链中提取 InfErr；链上没有结构化错误时退化为解析错误消息
func AsInfErr(err error) (*InfErr, error) {
	if err == nil {
		return nil, errors.New("nil error")
	}
	var ie *InfErr
	if errors.As(err, &ie) {
		return ie, nil
	}
	return ParseInfErr(err.Error())
}
