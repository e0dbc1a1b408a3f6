package proto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryRegisterIdempotent(t *testing.T) {
	r := NewRegistry()

	id1 := r.Register("http", DirToServer)
	id2 := r.Register("http", DirToClient)
	assert.Equal(t, id1, id2, "re-registering the same name must return the existing id")
	assert.Equal(t, DirToServer, r.FirstDataDir(id1), "first registration's firstDataDir wins")
}

func TestRegistryByNameAndToString(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, Unknown, r.ByName("nonexistent"))
	assert.Equal(t, "unknown", r.ToString(Unknown))

	id := r.Register("tls", DirToServer)
	assert.Equal(t, id, r.ByName("tls"))
	assert.Equal(t, "tls", r.ToString(id))
}

func TestRegistryFirstDataDirUnknownID(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, DirNone, r.FirstDataDir(AppProto(99)))
	assert.Equal(t, "unknown", r.ToString(AppProto(99)))
}

func TestRegistryDistinctNamesGetDistinctIDs(t *testing.T) {
	r := NewRegistry()
	http := r.Register("http", DirToServer)
	tls := r.Register("tls", DirToServer)
	assert.NotEqual(t, http, tls)
}
