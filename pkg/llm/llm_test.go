package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	name      string
	err       error
	transient bool
	calls     int
	debug     bool
}

func (c *stubClient) Provider() string { return c.name }

func (c *stubClient) Complete(context.Context, Request) (*Completion, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &Completion{
		Content:    []ContentBlock{NewTextBlock("from " + c.name)},
		StopReason: StopReasonStop,
	}, nil
}

func (c *stubClient) IsTransientError(error) bool { return c.transient }
func (c *stubClient) SetDebug(enabled bool)       { c.debug = enabled }

func TestFallbackClient_FirstClientWins(t *testing.T) {
	a := &stubClient{name: "a"}
	b := &stubClient{name: "b"}
	f := &FallbackClient{Clients: []Client{a, b}, MaxRetries: 3}

	completion, err := f.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "from a", completion.Content[0].Text)
	assert.Equal(t, 1, a.calls)
	assert.Zero(t, b.calls)
}

func TestFallbackClient_FallsThroughOnFailure(t *testing.T) {
	a := &stubClient{name: "a", err: errors.New("quota exceeded")}
	b := &stubClient{name: "b"}
	f := &FallbackClient{Clients: []Client{a, b}, MaxRetries: 3}

	completion, err := f.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "from b", completion.Content[0].Text)
	// Non-transient error moves on without retrying the same client
	assert.Equal(t, 1, a.calls)
}

func TestFallbackClient_RetriesTransientErrors(t *testing.T) {
	a := &stubClient{name: "a", err: errors.New("503"), transient: true}
	b := &stubClient{name: "b"}
	f := &FallbackClient{Clients: []Client{a, b}, MaxRetries: 3}

	completion, err := f.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "from b", completion.Content[0].Text)
	assert.Equal(t, 3, a.calls)
}

func TestFallbackClient_AllFailed(t *testing.T) {
	a := &stubClient{name: "a", err: errors.New("down")}
	b := &stubClient{name: "b", err: errors.New("also down")}
	f := &FallbackClient{Clients: []Client{a, b}, MaxRetries: 1}

	_, err := f.Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "also down")
	assert.False(t, f.IsTransientError(err))
}

func TestFallbackClient_SetDebugFansOut(t *testing.T) {
	a := &stubClient{name: "a"}
	b := &stubClient{name: "b"}
	f := &FallbackClient{Clients: []Client{a, b}}

	f.SetDebug(true)
	assert.True(t, a.debug)
	assert.True(t, b.debug)
}
