//go:build integration
// +build integration

package docstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startMongoContainer(t *testing.T, ctx context.Context) (testcontainers.Container, string) {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)
	return container, fmt.Sprintf("mongodb://%s:%s", host, port.Port())
}

func TestMongoCollectionRoundTrip(t *testing.T) {
	ctx := context.Background()
	container, uri := startMongoContainer(t, ctx)
	defer container.Terminate(ctx)

	db, err := NewMongo(ctx, MongoConfig{URI: uri, Database: "meshmeta_test"})
	require.NoError(t, err)
	defer db.Close(ctx)

	c, err := db.Collection(ctx, "things", "id")
	require.NoError(t, err)

	type doc struct {
		ID      string   `bson:"id"`
		Parent  string   `bson:"parent"`
		Members []string `bson:"members"`
	}

	require.NoError(t, c.InsertOne(ctx, doc{ID: "a", Parent: "p", Members: []string{}}))
	require.ErrorIs(t, c.InsertOne(ctx, doc{ID: "a"}), ErrDuplicateKey)

	var got doc
	require.NoError(t, c.FindOneAndUpdate(ctx, Filter{"id": "a"}, Update{AddToSet: Fields{"members": "m1"}}, &got))
	require.NoError(t, c.FindOneAndUpdate(ctx, Filter{"id": "a"}, Update{AddToSet: Fields{"members": "m1"}}, &got))
	assert.Equal(t, []string{"m1"}, got.Members)

	var all []doc
	require.NoError(t, c.Find(ctx, Filter{"parent": "p"}, &all))
	assert.Len(t, all, 1)

	require.NoError(t, c.DeleteOne(ctx, Filter{"id": "a"}))
	require.ErrorIs(t, c.FindOne(ctx, Filter{"id": "a"}, &got), ErrNotFound)
}
