package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound = errors.New("db: key not found")
)

// Op constants map to Valkey/Redis command names for error context.
const (
	OpDel     = "DEL"
	OpHGetAll = "HGETALL"
	OpHSet    = "HSET"
	OpHSetIf  = "HSETIF"
	OpExists  = "EXISTS"
	OpGet     = "GET"
	OpSet     = "SET"
	OpZAdd    = "ZADD"
	OpZRange  = "ZRANGE"
	OpZRem    = "ZREM"
	OpRPush   = "RPUSH"
	OpLRange  = "LRANGE"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
