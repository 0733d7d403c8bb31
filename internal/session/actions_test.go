package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loginSnapshot = `- document "Sign in - Google Accounts"
  - textbox "Email or phone" [ref=e1]
  - button "Next" [ref=e2]
  - link "Forgot email?" [ref=e3]`

const appSnapshot = `- document "Dashboard"
  - text: "keeps cookies and login state across restarts"
  - button "New Item" [ref=e7]
  - button "Settings" [ref=e8]
  - textbox "Search" [ref=e9]`

func TestFindRefByRole(t *testing.T) {
	ref, ok := FindRefByRole(loginSnapshot, "button", "next")
	require.True(t, ok)
	assert.Equal(t, "e2", ref)

	ref, ok = FindRefByRole(appSnapshot, "button", "")
	require.True(t, ok)
	assert.Equal(t, "e7", ref, "empty hint matches the first element of the role")

	_, ok = FindRefByRole(appSnapshot, "checkbox", "")
	assert.False(t, ok)
}

func TestFindRefsByRole(t *testing.T) {
	assert.Equal(t, []string{"e7", "e8"}, FindRefsByRole(appSnapshot, "button"))
	assert.Empty(t, FindRefsByRole(appSnapshot, "combobox"))
}

func TestLooksLikeLoginDetectsCredentialFields(t *testing.T) {
	assert.True(t, LooksLikeLogin(loginSnapshot))
	assert.True(t, LooksLikeLogin(`- link "continue" [ref=e1]`+"\n"+`  - text: "accounts.google.com"`))
}

func TestLooksLikeLoginIgnoresLoginInPageText(t *testing.T) {
	// Plain content mentioning login must not read as a credential prompt.
	assert.False(t, LooksLikeLogin(appSnapshot))
	assert.False(t, LooksLikeLogin(""))
}

func TestActionsUseRefSelectorSyntax(t *testing.T) {
	c, daemon := connectedClient(t, okHandler)

	require.NoError(t, c.Click("e2"))
	require.NoError(t, c.Fill("e1", "user@example.com"))
	require.NoError(t, c.Upload("e5", "/tmp/a.png", "/tmp/b.png"))

	cmds := daemon.received()
	require.Len(t, cmds, 3)
	assert.Equal(t, "@e2", cmds[0]["selector"])
	assert.Equal(t, "@e1", cmds[1]["selector"])
	assert.Equal(t, "user@example.com", cmds[1]["value"])
	assert.Equal(t, "@e5", cmds[2]["selector"])
	assert.Equal(t, []any{"/tmp/a.png", "/tmp/b.png"}, cmds[2]["files"])
}

func TestTypeWithSubmitPressesEnter(t *testing.T) {
	c, daemon := connectedClient(t, okHandler)

	require.NoError(t, c.Type("e9", "hello", true))

	cmds := daemon.received()
	require.Len(t, cmds, 2)
	assert.Equal(t, "type", cmds[0]["action"])
	assert.Equal(t, "hello", cmds[0]["text"])
	assert.Equal(t, "press", cmds[1]["action"])
	assert.Equal(t, "Enter", cmds[1]["key"])
}

func TestWaitSendsMilliseconds(t *testing.T) {
	c, daemon := connectedClient(t, okHandler)

	require.NoError(t, c.Wait(1500*time.Millisecond))

	cmds := daemon.received()
	require.Len(t, cmds, 1)
	assert.EqualValues(t, 1500, cmds[0]["timeout"])
}

func TestSnapshotReturnsTreeText(t *testing.T) {
	c, _ := connectedClient(t, func(cmd map[string]any) map[string]any {
		return map[string]any{"id": cmd["id"], "success": true,
			"data": map[string]any{"snapshot": appSnapshot}}
	})

	snap, err := c.Snapshot(true, true)
	require.NoError(t, err)
	assert.Equal(t, appSnapshot, snap)
}

func TestClickByRoleSnapshotsThenClicks(t *testing.T) {
	c, daemon := connectedClient(t, func(cmd map[string]any) map[string]any {
		data := map[string]any{}
		if cmd["action"] == "snapshot" {
			data["snapshot"] = appSnapshot
		}
		return map[string]any{"id": cmd["id"], "success": true, "data": data}
	})

	require.NoError(t, c.ClickByRole("button", "settings"))

	cmds := daemon.received()
	require.Len(t, cmds, 2)
	assert.Equal(t, "snapshot", cmds[0]["action"])
	assert.Equal(t, "click", cmds[1]["action"])
	assert.Equal(t, "@e8", cmds[1]["selector"])
}

func TestClickByRoleFailsWhenNothingMatches(t *testing.T) {
	c, _ := connectedClient(t, func(cmd map[string]any) map[string]any {
		return map[string]any{"id": cmd["id"], "success": true,
			"data": map[string]any{"snapshot": appSnapshot}}
	})

	err := c.ClickByRole("button", "nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no button")
}
