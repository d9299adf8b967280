package system

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	name    string
	events  *[]string
	failErr error
}

func (r recorder) Name() string { return r.name }

func (r recorder) Start(context.Context) error {
	if r.failErr != nil {
		return r.failErr
	}
	*r.events = append(*r.events, "start "+r.name)
	return nil
}

func (r recorder) Stop(context.Context) error {
	*r.events = append(*r.events, "stop "+r.name)
	return nil
}

func TestManagerOrder(t *testing.T) {
	var events []string
	m := NewManager()
	require.NoError(t, m.Register(recorder{name: "a", events: &events}))
	require.NoError(t, m.Register(recorder{name: "b", events: &events}))
	assert.Error(t, m.Register(recorder{name: "a", events: &events}))

	require.NoError(t, m.Start(context.Background()))
	assert.Error(t, m.Register(recorder{name: "c", events: &events}))
	require.NoError(t, m.Stop(context.Background()))

	assert.Equal(t, []string{"start a", "start b", "stop b", "stop a"}, events)
}

func TestManagerUnwindsOnStartFailure(t *testing.T) {
	var events []string
	m := NewManager()
	require.NoError(t, m.Register(recorder{name: "a", events: &events}))
	require.NoError(t, m.Register(recorder{name: "b", events: &events, failErr: errors.New("boom")}))
	require.NoError(t, m.Register(recorder{name: "c", events: &events}))

	err := m.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start b: boom")
	assert.Equal(t, []string{"start a", "stop a"}, events)

	require.NoError(t, m.Stop(context.Background()))
	assert.Len(t, events, 2)
}
