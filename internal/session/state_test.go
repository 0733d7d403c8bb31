package session

import (
	"os"
	"testing"

	json "github.com/json-iterator/go"
	"github.com/krellwind/tether/internal/statestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStorageStateCapturesViaTempFile(t *testing.T) {
	want := statestore.StorageState{
		Cookies: []statestore.Cookie{{Name: "sid", Value: "tok", Domain: "example.com"}},
		Origins: []statestore.Origin{{
			Origin:       "https://example.com",
			LocalStorage: []statestore.KV{{Name: "k", Value: "v"}},
		}},
	}

	var dumpPath string
	c, _ := connectedClient(t, func(cmd map[string]any) map[string]any {
		require.Equal(t, "state_save", cmd["action"])
		dumpPath, _ = cmd["path"].(string)
		require.NotEmpty(t, dumpPath)
		payload, err := json.Marshal(want)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(dumpPath, payload, 0o600))
		return map[string]any{"id": cmd["id"], "success": true}
	})

	got, err := c.StorageState()
	require.NoError(t, err)
	assert.Equal(t, want.Cookies, got.Cookies)
	assert.Equal(t, want.Origins, got.Origins)

	_, err = os.Stat(dumpPath)
	assert.True(t, os.IsNotExist(err), "temp dump must be deleted after capture")
}

func TestStorageStateDistinctTempPathsPerCapture(t *testing.T) {
	var paths []string
	c, _ := connectedClient(t, func(cmd map[string]any) map[string]any {
		p, _ := cmd["path"].(string)
		paths = append(paths, p)
		require.NoError(t, os.WriteFile(p, []byte(`{"cookies":[],"origins":[]}`), 0o600))
		return map[string]any{"id": cmd["id"], "success": true}
	})

	_, err := c.StorageState()
	require.NoError(t, err)
	_, err = c.StorageState()
	require.NoError(t, err)

	require.Len(t, paths, 2)
	assert.NotEqual(t, paths[0], paths[1])
}

func TestSetStorageStateReplayOrder(t *testing.T) {
	c, daemon := connectedClient(t, okHandler)

	state := &statestore.StorageState{
		Cookies: []statestore.Cookie{
			{Name: "a", Value: "1"},
			{Name: "b", Value: "2"},
		},
		Origins: []statestore.Origin{
			{
				Origin:         "https://one.example",
				LocalStorage:   []statestore.KV{{Name: "lk", Value: "lv"}},
				SessionStorage: []statestore.KV{{Name: "sk", Value: "sv"}},
			},
			{Origin: "https://empty.example"},
			{
				Origin:       "https://two.example",
				LocalStorage: []statestore.KV{{Name: "x", Value: "y"}},
			},
		},
	}
	require.NoError(t, c.SetStorageState(state))

	var trace []string
	for _, cmd := range daemon.received() {
		action, _ := cmd["action"].(string)
		switch action {
		case "navigate":
			trace = append(trace, "navigate:"+cmd["url"].(string))
		case "storage_set":
			trace = append(trace, "set:"+cmd["type"].(string)+":"+cmd["key"].(string))
		default:
			trace = append(trace, action)
		}
	}

	assert.Equal(t, []string{
		"cookies_set",
		"navigate:https://one.example",
		"set:local:lk",
		"set:session:sk",
		"navigate:https://two.example",
		"set:local:x",
	}, trace, "origins without storage are skipped entirely")
}

func TestSetStorageStateBatchesCookies(t *testing.T) {
	c, daemon := connectedClient(t, okHandler)

	state := &statestore.StorageState{
		Cookies: []statestore.Cookie{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}},
	}
	require.NoError(t, c.SetStorageState(state))

	cmds := daemon.received()
	require.Len(t, cmds, 1)
	cookies, ok := cmds[0]["cookies"].([]any)
	require.True(t, ok)
	assert.Len(t, cookies, 2)
}

func TestSetStorageStateNilIsNoop(t *testing.T) {
	c, daemon := connectedClient(t, okHandler)
	require.NoError(t, c.SetStorageState(nil))
	assert.Empty(t, daemon.received())
}

func TestSaveStateAsPersistsUnderIdentity(t *testing.T) {
	store, err := statestore.New(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	c, _ := connectedClient(t, func(cmd map[string]any) map[string]any {
		p, _ := cmd["path"].(string)
		require.NoError(t, os.WriteFile(p,
			[]byte(`{"cookies":[{"name":"sid","value":"tok"}],"origins":[]}`), 0o600))
		return map[string]any{"id": cmd["id"], "success": true}
	})

	require.NoError(t, c.SaveStateAs(store, "work"))

	got, err := store.Load("work")
	require.NoError(t, err)
	require.Len(t, got.Cookies, 1)
	assert.Equal(t, "sid", got.Cookies[0].Name)
}
