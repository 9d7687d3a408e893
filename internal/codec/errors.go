package codec

import (
	"errors"
	"fmt"
)

var ErrDecode = errors.New("account decode error")

// DecodeError 表示账户数据长度不足以读取某字段
type DecodeError struct {
	Field  string
	Offset int
	Width  int
	Len    int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: need %d bytes at offset %d, data len %d", e.Field, e.Width, e.Offset, e.Len)
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

func checkLen(data []byte, field string, offset, width int) error {
	if len(data) < offset+width {
		return &DecodeError{Field: field, Offset: offset, Width: width, Len: len(data)}
	}
	return nil
}
