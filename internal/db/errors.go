package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrKeyExists     = errors.New("db: key already exists")
	ErrIndexNotFound = errors.New("db: index not found")
	ErrIndexExists   = errors.New("db: index already exists")
	ErrInvalidCursor = errors.New("db: invalid scan cursor")
	// ErrUnavailable is returned once transient transport failures exhausted the retry budget.
	ErrUnavailable = errors.New("db: store unavailable")
)

// Op constants map to Valkey/Redis command names for error context.
const (
	OpCreateIndex = "FT.CREATE"
	OpDropIndex   = "FT.DROPINDEX"
	OpIndexInfo   = "FT.INFO"
	OpSearch      = "FT.SEARCH"
	OpJSONSet     = "JSON.SET"
	OpJSONGet     = "JSON.GET"
	OpJSONMGet    = "JSON.MGET"
	// Element edits run as scripts; the op names what the script does.
	OpJSONArrAdd    = "JSON.ARRAPPEND"
	OpJSONArrRemove = "JSON.ARRPOP"
	OpDel           = "DEL"
	OpExists        = "EXISTS"
	OpScan          = "SCAN"
	OpSAdd          = "SADD"
	OpSRem          = "SREM"
	OpSMembers      = "SMEMBERS"
	OpPing          = "PING"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
