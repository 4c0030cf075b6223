package mazecache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "maze-swarm:maze:21x11:42", Key(defaultPrefix, 21, 11, 42))
	assert.Equal(t, Key("p", 20, 10, 7), Key("p", 21, 11, 7))
	assert.Equal(t, "p:maze:3x3:1", Key("p", 0, -5, 1))
	assert.NotEqual(t, Key("p", 21, 21, 1), Key("p", 21, 21, 2))
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
