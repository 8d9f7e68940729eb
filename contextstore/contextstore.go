// Package contextstore defines the per-session keyed storage consumed by the
// stage execution pipeline: a sliding-window turn store and a general-purpose
// item store, both addressed by session id and key with optional TTL.
package contextstore

import (
	"context"
	"strconv"
	"time"
)

// Turn is one entry in a session's bounded conversation history.
type Turn struct {
	Role    string
	Content string
}

// TurnStore is the bounded conversation-history façade. Implementations
// prepend new turns to a per-session list and serve the newest N on read.
type TurnStore interface {
	// SaveTurn prepends turn to the list keyed by sessionID, resetting the
	// key's TTL. ttl == 0 uses the store's configured default; a negative
	// ttl fails with orcherr.InvalidInput.
	SaveTurn(ctx context.Context, sessionID string, turn Turn, ttl time.Duration) error

	// LoadTurns returns the newest maxTurns entries, index 0 newest. Missing
	// or expired sessions return an empty slice, never an error. maxTurns
	// must be > 0.
	LoadTurns(ctx context.Context, sessionID string, maxTurns int) ([]Turn, error)
}

// ItemStore is the general-purpose session KV used by the pipeline to store
// and recall arbitrary JSON-encodable values under a session+key pair.
type ItemStore interface {
	// SaveItem stores value under sessionID+key, JSON-encoded. ttl == 0 uses
	// the store's configured default; a negative ttl fails with
	// orcherr.InvalidInput.
	SaveItem(ctx context.Context, sessionID, key string, value any, ttl time.Duration) error

	// LoadItem loads the value stored under sessionID+key into dst (a
	// pointer). ok is false when the key is absent or expired; dst is left
	// untouched in that case.
	LoadItem(ctx context.Context, sessionID, key string, dst any) (ok bool, err error)

	// LoadItemString returns the raw string form of the value stored under
	// sessionID+key, or "" if absent. Used by the placeholder resolver,
	// which only ever needs the string form of a context entry.
	LoadItemString(ctx context.Context, sessionID, key string) (string, bool, error)
}

// Store combines both façades; most backends implement both over shared
// storage.
type Store interface {
	TurnStore
	ItemStore
}

// KeyBuilder composes the canonical, bit-exact context keys documented in the
// key schema. stageKey is always "{stageID}-{turnIndex+1}".
type KeyBuilder struct{}

// StageKey returns "{stageID}-{turnIndex+1}".
func (KeyBuilder) StageKey(stageID int, turnIndex int) string {
	return strconv.Itoa(stageID) + "-" + strconv.Itoa(turnIndex+1)
}

// Input returns "stage:{stageKey}:input:{name}".
func (KeyBuilder) Input(stageKey, name string) string {
	return "stage:" + stageKey + ":input:" + name
}

// InputParam returns "stage:{stageKey}:input:params:{name}".
func (KeyBuilder) InputParam(stageKey, name string) string {
	return "stage:" + stageKey + ":input:params:" + name
}

// Metadata returns "stage:{stageKey}:metadata:{name}".
func (KeyBuilder) Metadata(stageKey, name string) string {
	return "stage:" + stageKey + ":metadata:" + name
}

// Tool returns "stage:{stageKey}:tool:{toolName}:{callID}".
func (KeyBuilder) Tool(stageKey, toolName, callID string) string {
	return "stage:" + stageKey + ":tool:" + toolName + ":" + callID
}

// Output returns "stage:{stageKey}:output".
func (KeyBuilder) Output(stageKey string) string {
	return "stage:" + stageKey + ":output"
}

// OutputParam returns "stage:{stageKey}:output:params:{name}".
func (KeyBuilder) OutputParam(stageKey, name string) string {
	return "stage:" + stageKey + ":output:params:" + name
}

// OutputLog returns "stage:{stageKey}:output:{logType}".
func (KeyBuilder) OutputLog(stageKey, logType string) string {
	return "stage:" + stageKey + ":output:" + logType
}
