package scopestore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/effective-security/mcphub/scopestore"
)

func Test_MemoryStore(t *testing.T) {
	ctx := context.Background()
	st := scopestore.NewMemoryStore()

	// empty store
	scope, err := st.GetScope(ctx, "knowledge")
	require.NoError(t, err)
	assert.Empty(t, scope)

	servers, err := st.ListServers(ctx)
	require.NoError(t, err)
	assert.Empty(t, servers)
	require.NoError(t, st.Reset(ctx, "knowledge"))

	tools := []string{"retrieve_scm_knowledge", "get_web_search_data"}
	require.NoError(t, st.SaveScope(ctx, "knowledge", tools))
	require.NoError(t, st.SaveScope(ctx, "mail", []string{"get_mails"}))

	scope, err = st.GetScope(ctx, "knowledge")
	require.NoError(t, err)
	assert.Equal(t, tools, scope)

	// mutating the caller's slice does not affect the stored snapshot
	tools[0] = "mutated"
	scope, err = st.GetScope(ctx, "knowledge")
	require.NoError(t, err)
	assert.Equal(t, "retrieve_scm_knowledge", scope[0])

	// mutating a returned snapshot does not affect the store
	scope[0] = "mutated"
	scope, err = st.GetScope(ctx, "knowledge")
	require.NoError(t, err)
	assert.Equal(t, "retrieve_scm_knowledge", scope[0])

	servers, err = st.ListServers(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"knowledge", "mail"}, servers)

	// save replaces the snapshot wholesale
	require.NoError(t, st.SaveScope(ctx, "knowledge", []string{"get_events"}))
	scope, err = st.GetScope(ctx, "knowledge")
	require.NoError(t, err)
	assert.Equal(t, []string{"get_events"}, scope)

	require.NoError(t, st.Reset(ctx, "knowledge"))
	scope, err = st.GetScope(ctx, "knowledge")
	require.NoError(t, err)
	assert.Empty(t, scope)

	servers, err = st.ListServers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"mail"}, servers)
}
