package docstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testResources struct {
	CPU int    `json:"cpu"`
	RAM string `json:"ram"`
}

type testDoc struct {
	ID        string        `json:"id"`
	Parent    string        `json:"parent"`
	Resources testResources `json:"resources"`
	Members   []string      `json:"members"`
}

func openTestCollection(t *testing.T) Collection {
	t.Helper()
	c, err := NewMemory().Collection(context.Background(), "things", "id")
	require.NoError(t, err)
	return c
}

func TestMemoryInsertRejectsDuplicateKey(t *testing.T) {
	ctx := context.Background()
	c := openTestCollection(t)

	require.NoError(t, c.InsertOne(ctx, testDoc{ID: "a", Parent: "p1"}))
	err := c.InsertOne(ctx, testDoc{ID: "a", Parent: "p2"})
	require.ErrorIs(t, err, ErrDuplicateKey)

	var got testDoc
	require.NoError(t, c.FindOne(ctx, Filter{"id": "a"}, &got))
	assert.Equal(t, "p1", got.Parent)
}

func TestMemoryFindOneMissing(t *testing.T) {
	c := openTestCollection(t)
	var got testDoc
	err := c.FindOne(context.Background(), Filter{"id": "nope"}, &got)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryDottedSetMergesEmbeddedFields(t *testing.T) {
	ctx := context.Background()
	c := openTestCollection(t)
	require.NoError(t, c.InsertOne(ctx, testDoc{ID: "a", Resources: testResources{CPU: 2, RAM: "2GB"}}))

	var got testDoc
	err := c.FindOneAndUpdate(ctx, Filter{"id": "a"}, Update{Set: Fields{"resources.cpu": 4}}, &got)
	require.NoError(t, err)
	assert.Equal(t, testResources{CPU: 4, RAM: "2GB"}, got.Resources)
}

func TestMemoryAddToSetAndPull(t *testing.T) {
	ctx := context.Background()
	c := openTestCollection(t)
	require.NoError(t, c.InsertOne(ctx, testDoc{ID: "a", Members: []string{}}))

	var got testDoc
	for i := 0; i < 2; i++ {
		require.NoError(t, c.FindOneAndUpdate(ctx, Filter{"id": "a"}, Update{AddToSet: Fields{"members": "m1"}}, &got))
	}
	assert.Equal(t, []string{"m1"}, got.Members)

	require.NoError(t, c.FindOneAndUpdate(ctx, Filter{"id": "a"}, Update{AddToSet: Fields{"members": "m2"}}, &got))
	require.NoError(t, c.FindOneAndUpdate(ctx, Filter{"id": "a"}, Update{Pull: Fields{"members": "m1"}}, &got))
	assert.Equal(t, []string{"m2"}, got.Members)
}

func TestMemoryAddToSetCreatesMissingArray(t *testing.T) {
	ctx := context.Background()
	c := openTestCollection(t)
	require.NoError(t, c.InsertOne(ctx, map[string]any{"id": "a"}))

	var got testDoc
	require.NoError(t, c.FindOneAndUpdate(ctx, Filter{"id": "a"}, Update{AddToSet: Fields{"members": "m1"}}, &got))
	assert.Equal(t, []string{"m1"}, got.Members)
}

func TestMemoryUpdateRejectsKeyChange(t *testing.T) {
	ctx := context.Background()
	c := openTestCollection(t)
	require.NoError(t, c.InsertOne(ctx, testDoc{ID: "a"}))

	var got testDoc
	err := c.FindOneAndUpdate(ctx, Filter{"id": "a"}, Update{Set: Fields{"id": "b"}}, &got)
	require.ErrorIs(t, err, ErrImmutableKey)
}

func TestMemoryFindFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	c := openTestCollection(t)
	for _, d := range []testDoc{
		{ID: "c", Parent: "p1"},
		{ID: "a", Parent: "p1"},
		{ID: "b", Parent: "p2"},
	} {
		require.NoError(t, c.InsertOne(ctx, d))
	}

	var all []testDoc
	require.NoError(t, c.Find(ctx, nil, &all))
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].ID)

	var p1 []testDoc
	require.NoError(t, c.Find(ctx, Filter{"parent": "p1"}, &p1))
	ids := []string{p1[0].ID, p1[1].ID}
	assert.Equal(t, []string{"a", "c"}, ids)

	var none []testDoc
	require.NoError(t, c.Find(ctx, Filter{"parent": "zz"}, &none))
	assert.Empty(t, none)
}

func TestMemoryDeleteOne(t *testing.T) {
	ctx := context.Background()
	c := openTestCollection(t)
	require.NoError(t, c.InsertOne(ctx, testDoc{ID: "a"}))

	require.NoError(t, c.DeleteOne(ctx, Filter{"id": "a"}))
	require.ErrorIs(t, c.DeleteOne(ctx, Filter{"id": "a"}), ErrNotFound)
}

func TestMemoryCollectionKeyFieldConflict(t *testing.T) {
	db := NewMemory()
	_, err := db.Collection(context.Background(), "things", "id")
	require.NoError(t, err)
	_, err = db.Collection(context.Background(), "things", "other")
	require.Error(t, err)
}
