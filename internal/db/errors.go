package db

import (
	"errors"
	"fmt"
)

// ErrKeyNotFound is returned when a record key is absent.
var ErrKeyNotFound = errors.New("db: key not found")

// Op names the store command that failed.
type Op string

const (
	OpPing    Op = "PING"
	OpGet     Op = "GET"
	OpSet     Op = "SET"
	OpDel     Op = "DEL"
	OpExists  Op = "EXISTS"
	OpHSet    Op = "HSET"
	OpHGetAll Op = "HGETALL"
	OpScan    Op = "SCAN"
)

// Error is a failed store command. Key is empty for multi-key commands.
type Error struct {
	Op  Op
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("db %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("db %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
