package router

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/land-relay-go/internal/network/event"
	"github.com/lk2023060901/land-relay-go/pkg/util/merr"
)

func echo(_ context.Context, ev event.Event) (*event.Event, error) {
	return &ev, nil
}

func TestRegisterAndHandle(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(event.Message, echo))
	assert.ErrorIs(t, r.Register(event.Message, echo), merr.ErrRouteDuplicated)
	assert.ErrorIs(t, r.Register("", echo), merr.ErrParameterMissing)
	assert.ErrorIs(t, r.Register("Move", nil), merr.ErrParameterMissing)
	assert.ElementsMatch(t, []event.Name{event.Message}, r.Routes())

	in := event.Must(3, event.Message, "hi")
	resp, err := r.Handle(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, in.ID, resp.ID)
}

func TestUnknownIgnoredWithoutFallback(t *testing.T) {
	r := New()
	resp, err := r.Handle(context.Background(), event.Must(1, "Move", nil))
	assert.NoError(t, err)
	assert.Nil(t, resp)
}

func TestFallback(t *testing.T) {
	r := New()
	boom := errors.New("boom")
	var seen event.Name
	r.SetFallback(func(_ context.Context, ev event.Event) (*event.Event, error) {
		seen = ev.Name
		return nil, boom
	})

	_, err := r.Handle(context.Background(), event.Must(1, "Move", nil))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, event.Name("Move"), seen)

	r.SetFallback(nil)
	_, err = r.Handle(context.Background(), event.Must(1, "Move", nil))
	assert.NoError(t, err)
}
