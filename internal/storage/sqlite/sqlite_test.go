package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intentbot/backend/internal/storage/models"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	require.NoError(t, c.InitSchema())
	return c
}

func TestIntentCRUD(t *testing.T) {
	c := testClient(t)

	intent := &models.Intent{
		Tag:       "greeting",
		Patterns:  []string{"hello", "hi"},
		Responses: []string{"Hello!"},
	}
	require.NoError(t, c.CreateIntent(intent))

	got, err := c.GetIntent("greeting")
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "hi"}, got.Patterns)
	assert.Equal(t, []string{"Hello!"}, got.Responses)

	// Only the patterns change; nil responses stay untouched.
	require.NoError(t, c.UpdateIntent("greeting", []string{"howdy"}, nil))
	got, err = c.GetIntent("greeting")
	require.NoError(t, err)
	assert.Equal(t, []string{"howdy"}, got.Patterns)
	assert.Equal(t, []string{"Hello!"}, got.Responses)

	require.NoError(t, c.DeleteIntent("greeting"))
	_, err = c.GetIntent("greeting")
	assert.ErrorIs(t, err, ErrIntentNotFound)
}

func TestCreateIntentRejectsInvalid(t *testing.T) {
	c := testClient(t)

	assert.Error(t, c.CreateIntent(&models.Intent{Tag: "", Patterns: []string{"x"}, Responses: []string{"y"}}))
	assert.Error(t, c.CreateIntent(&models.Intent{Tag: "a", Patterns: nil, Responses: []string{"y"}}))
	assert.Error(t, c.CreateIntent(&models.Intent{Tag: "a", Patterns: []string{"x"}, Responses: nil}))

	require.NoError(t, c.CreateIntent(&models.Intent{Tag: "a", Patterns: []string{"x"}, Responses: []string{"y"}}))
	assert.Error(t, c.CreateIntent(&models.Intent{Tag: "a", Patterns: []string{"x"}, Responses: []string{"y"}}), "duplicate tag")
}

func TestUpdateMissingIntent(t *testing.T) {
	c := testClient(t)
	assert.ErrorIs(t, c.UpdateIntent("ghost", []string{"x"}, nil), ErrIntentNotFound)
	assert.ErrorIs(t, c.DeleteIntent("ghost"), ErrIntentNotFound)
}

func TestListIntentsIsStable(t *testing.T) {
	c := testClient(t)

	require.NoError(t, c.CreateIntent(&models.Intent{Tag: "b", Patterns: []string{"p1", "p2"}, Responses: []string{"r"}}))
	require.NoError(t, c.CreateIntent(&models.Intent{Tag: "a", Patterns: []string{"p"}, Responses: []string{"r1", "r2"}}))

	intents, err := c.ListIntents()
	require.NoError(t, err)
	require.Len(t, intents, 2)

	// Insertion order, and text order within each intent, is preserved.
	assert.Equal(t, "b", intents[0].Tag)
	assert.Equal(t, []string{"p1", "p2"}, intents[0].Patterns)
	assert.Equal(t, "a", intents[1].Tag)
	assert.Equal(t, []string{"r1", "r2"}, intents[1].Responses)
}

func TestImportCorpusReplacesAll(t *testing.T) {
	c := testClient(t)

	require.NoError(t, c.CreateIntent(&models.Intent{Tag: "old", Patterns: []string{"p"}, Responses: []string{"r"}}))

	err := c.ImportCorpus([]models.Intent{
		{Tag: "greeting", Patterns: []string{"hello"}, Responses: []string{"Hello!"}},
		{Tag: "goodbye", Patterns: []string{"bye"}, Responses: []string{"Bye!"}},
	})
	require.NoError(t, err)

	intents, err := c.ListIntents()
	require.NoError(t, err)
	require.Len(t, intents, 2)
	assert.Equal(t, "greeting", intents[0].Tag)

	_, err = c.GetIntent("old")
	assert.ErrorIs(t, err, ErrIntentNotFound)
}

func TestConversationRoundTrip(t *testing.T) {
	c := testClient(t)

	convID, err := c.EnsureConversation("", "user-1")
	require.NoError(t, err)
	require.NotEmpty(t, convID)

	// A known id is reused, an unknown one starts fresh.
	same, err := c.EnsureConversation(convID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, convID, same)

	other, err := c.EnsureConversation("no-such-id", "user-1")
	require.NoError(t, err)
	assert.NotEqual(t, "no-such-id", other)

	require.NoError(t, c.AppendTurn(convID, "hello", "greeting", "Hello!"))
	require.NoError(t, c.AppendTurn(convID, "bye", "goodbye", "Bye!"))

	history, err := c.GetHistory("user-1", 50)
	require.NoError(t, err)
	require.Len(t, history, 4)

	assert.Equal(t, models.SenderUser, history[0].Sender)
	assert.Equal(t, "hello", history[0].Content)
	assert.Equal(t, "greeting", history[0].Intent)
	assert.Equal(t, models.SenderBot, history[1].Sender)
	assert.Equal(t, "Hello!", history[1].Content)
	assert.Equal(t, "Bye!", history[3].Content)
}

func TestGetHistoryEmptyUser(t *testing.T) {
	c := testClient(t)
	history, err := c.GetHistory("nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}
