package account

import (
	"context"
	"errors"
	"math/rand"
	"os/exec"
	"testing"
)

const syncPlus = `[
	{"username": "prober", "subscription": {"level": "plus", "expires": 1999999999}},
	[{"hostname": "plus-1.exits.geph.io"}, {"hostname": "plus-2.exits.geph.io"}],
	[{"hostname": "free-1.exits.geph.io"}]
]`

const syncFree = `[
	{"username": "prober", "subscription": null},
	[{"hostname": "plus-1.exits.geph.io"}],
	[{"hostname": "free-1.exits.geph.io"}, {"hostname": "free-2.exits.geph.io"}]
]`

func TestParsePlusAccountUsesPrivilegedList(t *testing.T) {
	info, err := ParseSyncOutput([]byte(syncPlus))
	if err != nil {
		t.Fatalf("ParseSyncOutput: %v", err)
	}
	if !info.Plus {
		t.Error("Plus = false for account with subscription")
	}
	if len(info.Exits) != 2 || info.Exits[0].Hostname != "plus-1.exits.geph.io" {
		t.Errorf("exits = %v, want the plus list", info.Exits)
	}
}

func TestParseFreeAccountUsesDefaultList(t *testing.T) {
	info, err := ParseSyncOutput([]byte(syncFree))
	if err != nil {
		t.Fatalf("ParseSyncOutput: %v", err)
	}
	if info.Plus {
		t.Error("Plus = true for account with null subscription")
	}
	if len(info.Exits) != 2 || info.Exits[0].Hostname != "free-1.exits.geph.io" {
		t.Errorf("exits = %v, want the free list", info.Exits)
	}
}

func TestParseMissingSubscriptionFieldIsFree(t *testing.T) {
	doc := `[{"username": "prober"}, [], [{"hostname": "free-1.exits.geph.io"}]]`
	info, err := ParseSyncOutput([]byte(doc))
	if err != nil {
		t.Fatalf("ParseSyncOutput: %v", err)
	}
	if info.Plus {
		t.Error("Plus = true with no subscription field")
	}
}

func TestParseRejectsShortArray(t *testing.T) {
	doc := `[{"username": "prober"}, [{"hostname": "a"}]]`
	_, err := ParseSyncOutput([]byte(doc))
	if !errors.Is(err, ErrBadSyncOutput) {
		t.Errorf("err = %v, want ErrBadSyncOutput for 2-element array", err)
	}
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	_, err := ParseSyncOutput([]byte(`{"oops": `))
	if !errors.Is(err, ErrBadSyncOutput) {
		t.Errorf("err = %v, want ErrBadSyncOutput", err)
	}
}

func TestParseRejectsNonArrayTopLevel(t *testing.T) {
	_, err := ParseSyncOutput([]byte(`{"hostname": "x"}`))
	if !errors.Is(err, ErrBadSyncOutput) {
		t.Errorf("err = %v, want ErrBadSyncOutput", err)
	}
}

func TestParseRejectsMissingHostname(t *testing.T) {
	doc := `[{"username": "p"}, [], [{"address": "1.2.3.4"}]]`
	_, err := ParseSyncOutput([]byte(doc))
	if !errors.Is(err, ErrBadSyncOutput) {
		t.Errorf("err = %v, want ErrBadSyncOutput", err)
	}
}

func TestParseRejectsEmptyExitList(t *testing.T) {
	doc := `[{"username": "p"}, [], []]`
	_, err := ParseSyncOutput([]byte(doc))
	if !errors.Is(err, ErrBadSyncOutput) {
		t.Errorf("err = %v, want ErrBadSyncOutput", err)
	}
}

func TestPickExitIsFromList(t *testing.T) {
	info := &Info{Exits: []Exit{{"a"}, {"b"}, {"c"}}}
	rng := rand.New(rand.NewSource(1))

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		seen[info.PickExit(rng)] = true
	}
	for _, want := range []string{"a", "b", "c"} {
		if !seen[want] {
			t.Errorf("exit %q never picked in 100 draws", want)
		}
	}
}

type scriptSyncRunner struct{ script string }

func (s *scriptSyncRunner) BuildSyncCommand(ctx context.Context) *exec.Cmd {
	return exec.CommandContext(ctx, "bash", "-c", s.script)
}

func TestSyncRunsCommandAndParses(t *testing.T) {
	r := &scriptSyncRunner{script: `printf '%s' '` + syncFree + `'`}
	info, err := Sync(context.Background(), r)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if info.Plus || len(info.Exits) != 2 {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestSyncCommandFailureIsFatal(t *testing.T) {
	r := &scriptSyncRunner{script: `exit 3`}
	_, err := Sync(context.Background(), r)
	if err == nil {
		t.Fatal("Sync succeeded despite command failure")
	}
}
