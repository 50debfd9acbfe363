// Package script encodes ordered stack items as push operations terminated
// by the OP_CHECKZKP verification opcode, and derives the script-hash
// address of the result.
package script

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// StackItem is one bounded byte string destined for a push operation.
type StackItem []byte

const (
	OP_0         byte = 0x00
	OP_PUSHDATA1 byte = 0x4c
	OP_PUSHDATA2 byte = 0x4d
	// OP_CHECKZKP lives in the repurposed OP_NOP10 slot.
	OP_CHECKZKP byte = 0xb9
)

// MAX_STACK_ITEM_BYTES is the validator's stack element bound.
const MAX_STACK_ITEM_BYTES = 520

// MAX_BARE_PUSH_BYTES is the longest item encoded with a bare length prefix.
const MAX_BARE_PUSH_BYTES = 75

var ErrItemSize = errors.New("script: stack item exceeds the push size limit")

// ItemOrder pins the iteration order of Assemble. Protocol variants that
// consume items by popping need the reverse order: the last push sits on
// top of the stack, so reversing makes the validator pop the list head
// first.
type ItemOrder int

const (
	OrderForward ItemOrder = iota
	OrderReverse
)

// AppendPush appends the push operation encoding item to dst. A one-byte
// zero item (and the degenerate empty item) is the reserved empty push, not
// a length-prefixed push of a zero byte.
func AppendPush(dst []byte, item StackItem) ([]byte, error) {
	switch n := len(item); {
	case n == 0, n == 1 && item[0] == 0x00:
		return append(dst, OP_0), nil
	case n <= MAX_BARE_PUSH_BYTES:
		dst = append(dst, byte(n))
	case n <= 0xff:
		dst = append(dst, OP_PUSHDATA1, byte(n))
	case n <= MAX_STACK_ITEM_BYTES:
		dst = append(dst, OP_PUSHDATA2)
		dst = binary.LittleEndian.AppendUint16(dst, uint16(n))
	default:
		return nil, fmt.Errorf("%w: %d bytes", ErrItemSize, n)
	}
	return append(dst, item...), nil
}

// Assemble emits one push per item in the pinned order, then the terminal
// verification opcode.
func Assemble(items []StackItem, order ItemOrder) ([]byte, error) {
	var prog []byte
	var err error
	switch order {
	case OrderForward:
		for i := 0; i < len(items); i++ {
			if prog, err = AppendPush(prog, items[i]); err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
		}
	case OrderReverse:
		for i := len(items) - 1; i >= 0; i-- {
			if prog, err = AppendPush(prog, items[i]); err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
		}
	default:
		return nil, fmt.Errorf("unknown item order %d", order)
	}
	return append(prog, OP_CHECKZKP), nil
}
