package room

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/land-relay-go/pkg/util/merr"
)

func TestJoinAndRemove(t *testing.T) {
	p := NewPool(0)
	assert.Equal(t, DefaultSize, p.Size())

	require.NoError(t, p.Join(1, "bob"))
	assert.ErrorIs(t, p.Join(0, "bob"), merr.ErrPlayerAlreadyInRoom)
	assert.ErrorIs(t, p.Join(1, "bob"), merr.ErrPlayerAlreadyInRoom)
	assert.ErrorIs(t, p.Join(5, "amy"), merr.ErrRoomNotFound)
	assert.ErrorIs(t, p.Join(-1, "amy"), merr.ErrRoomNotFound)
	assert.ErrorIs(t, p.Join(0, ""), merr.ErrParameterMissing)

	index, ok := p.Locate("bob")
	assert.True(t, ok)
	assert.Equal(t, 1, index)

	index, ok = p.Remove("bob")
	assert.True(t, ok)
	assert.Equal(t, 1, index)
	_, ok = p.Remove("bob")
	assert.False(t, ok)
	_, ok = p.Locate("bob")
	assert.False(t, ok)
}

func TestJoinLeastPopulated(t *testing.T) {
	p := NewPool(3)
	require.NoError(t, p.Join(0, "a"))
	require.NoError(t, p.Join(0, "b"))
	require.NoError(t, p.Join(2, "c"))

	index, err := p.JoinLeastPopulated("d")
	require.NoError(t, err)
	assert.Equal(t, 1, index)

	index, err = p.JoinLeastPopulated("e")
	require.NoError(t, err)
	assert.Equal(t, 1, index)

	index, err = p.JoinLeastPopulated("a")
	assert.ErrorIs(t, err, merr.ErrPlayerAlreadyInRoom)
	assert.Equal(t, 0, index)
}

func TestPlayersAndSnapshot(t *testing.T) {
	p := NewPool(2)
	require.NoError(t, p.Join(0, "zed"))
	require.NoError(t, p.Join(0, "amy"))

	players, err := p.Players(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"amy", "zed"}, players)
	_, err = p.Players(2)
	assert.ErrorIs(t, err, merr.ErrRoomNotFound)

	assert.Equal(t, []Snapshot{
		{Index: 0, Players: []string{"amy", "zed"}},
		{Index: 1, Players: []string{}},
	}, p.Snapshot())
}

func TestAtMostOneRoomUnderConcurrency(t *testing.T) {
	p := NewPool(4)
	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = p.Join(i, "same")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)

	total := 0
	for _, snap := range p.Snapshot() {
		total += len(snap.Players)
	}
	assert.Equal(t, 1, total)

	for i := 0; i < 20; i++ {
		_, err := p.JoinLeastPopulated(fmt.Sprintf("p%d", i))
		require.NoError(t, err)
	}
	for _, snap := range p.Snapshot() {
		assert.GreaterOrEqual(t, len(snap.Players), 5)
	}
}
