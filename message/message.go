package message

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Command types understood by the worker.
const (
	// TypeSkipWaiting activates an installed instance immediately instead of
	// waiting for the previous one to wind down.
	TypeSkipWaiting = "skip-waiting"

	// TypeClearCache drops every named cache unconditionally.
	TypeClearCache = "clear-cache"

	// TypeCacheURLs prefetches the listed URLs into the dynamic cache.
	TypeCacheURLs = "cache-urls"
)

// ErrBadCommand reports an envelope that could not be decoded at all.
var ErrBadCommand = errors.New("message: bad command")

// Command is one instruction from the host application.
type Command struct {
	Type string   `json:"type"`
	URLs []string `json:"urls,omitempty"`
}

// Known reports whether the command type is one the worker acts on.
// Unknown types are valid commands; the worker ignores them.
func (c Command) Known() bool {
	switch c.Type {
	case TypeSkipWaiting, TypeClearCache, TypeCacheURLs:
		return true
	}
	return false
}

// Decode parses a raw command envelope. Malformed JSON and envelopes
// without a type wrap ErrBadCommand; an unrecognized type is not an error.
func Decode(raw []byte) (Command, error) {
	var c Command
	if err := json.Unmarshal(raw, &c); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrBadCommand, err)
	}
	if c.Type == "" {
		return Command{}, fmt.Errorf("%w: missing type", ErrBadCommand)
	}
	return c, nil
}
