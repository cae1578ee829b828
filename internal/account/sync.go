// Package account runs the tunnel client's sync mode and parses its output.
//
// Sync mode is the client's non-interactive account query: it prints a
// JSON array to stdout and exits. The array carries at least three
// elements: user info (whose optional "subscription" field marks a Plus
// account), the exit list for the Plus tier, and the exit list for the
// free tier. Anything malformed here is unrecoverable: without a valid
// exit list there is nothing to probe.
package account

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os/exec"
	"time"

	"github.com/tidwall/gjson"
)

// ErrBadSyncOutput wraps every parse failure of the sync-mode document.
var ErrBadSyncOutput = errors.New("bad sync output")

// Exit describes one exit server from the sync document.
type Exit struct {
	Hostname string
}

// Info is the parsed account state: the entitlement tier and the exit
// list applicable to it.
type Info struct {
	Plus  bool
	Exits []Exit
}

// PickExit returns a uniformly random exit hostname. A nil rng uses the
// package-global source.
func (i *Info) PickExit(rng *rand.Rand) string {
	n := len(i.Exits)
	if rng != nil {
		return i.Exits[rng.Intn(n)].Hostname
	}
	return i.Exits[rand.Intn(n)].Hostname
}

// SyncRunner builds the sync-mode command. Satisfied by process.GephRunner.
type SyncRunner interface {
	BuildSyncCommand(ctx context.Context) *exec.Cmd
}

// DefaultSyncTimeout bounds the sync-mode invocation. The command is a
// single API round trip; a minute means something is wrong.
const DefaultSyncTimeout = 60 * time.Second

// Sync runs the client in sync mode and parses the result. Failure to
// execute the binary, a non-zero exit, or unparseable output are all
// fatal to the probe cycle.
func Sync(ctx context.Context, runner SyncRunner) (*Info, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultSyncTimeout)
	defer cancel()

	cmd := runner.BuildSyncCommand(ctx)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("run sync mode: %w", err)
	}

	return ParseSyncOutput(out)
}

// ParseSyncOutput parses the sync-mode JSON document.
func ParseSyncOutput(out []byte) (*Info, error) {
	if !gjson.ValidBytes(out) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrBadSyncOutput)
	}

	doc := gjson.ParseBytes(out)
	if !doc.IsArray() {
		return nil, fmt.Errorf("%w: top level is %s, want array", ErrBadSyncOutput, doc.Type)
	}
	parts := doc.Array()
	if len(parts) < 3 {
		return nil, fmt.Errorf("%w: %d elements, want at least 3", ErrBadSyncOutput, len(parts))
	}

	// A "subscription" field that is present and non-null marks Plus.
	sub := parts[0].Get("subscription")
	plus := sub.Exists() && sub.Type != gjson.Null

	// Plus accounts use the privileged exit list, free accounts the
	// default one.
	list := parts[2]
	if plus {
		list = parts[1]
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("%w: exit list is %s, want array", ErrBadSyncOutput, list.Type)
	}

	var exits []Exit
	for _, e := range list.Array() {
		hostname := e.Get("hostname")
		if !hostname.Exists() || hostname.String() == "" {
			return nil, fmt.Errorf("%w: exit entry missing hostname", ErrBadSyncOutput)
		}
		exits = append(exits, Exit{Hostname: hostname.String()})
	}
	if len(exits) == 0 {
		return nil, fmt.Errorf("%w: exit list is empty", ErrBadSyncOutput)
	}

	return &Info{Plus: plus, Exits: exits}, nil
}
