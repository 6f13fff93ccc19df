package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/workspace-api/internal/models"
)

func TestBus_Publish(t *testing.T) {
	bus := NewBus()
	var got []string

	bus.SubscribeAll(func(_ context.Context, e Event) error {
		got = append(got, "all:"+string(e.Name))
		return nil
	})
	bus.Subscribe(InviteCreated, func(_ context.Context, e Event) error {
		got = append(got, "invite:"+string(e.Name))
		return errors.New("mailer down")
	})

	err := bus.Publish(context.Background(), New(InviteCreated, nil))
	require.Error(t, err)
	require.Equal(t, []string{"all:invite.created", "invite:invite.created"}, got)

	got = nil
	require.NoError(t, bus.Publish(context.Background(), New(WorkspaceCreated, nil)))
	require.Equal(t, []string{"all:workspace.created"}, got)
}

func TestMulti_ContinuesPastFailures(t *testing.T) {
	first, second := &Recorder{}, &Recorder{}
	failing := NewBus()
	failing.SubscribeAll(func(context.Context, Event) error { return errors.New("boom") })

	err := Multi{first, failing, second}.Publish(context.Background(), New(WorkspaceDeleted, nil))
	require.Error(t, err)
	require.Len(t, first.Events(), 1)
	require.Len(t, second.Events(), 1)
}

type fakeRedis struct {
	channel string
	message []byte
	err     error
}

func (f *fakeRedis) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.message = message.([]byte)
	return redis.NewIntResult(1, f.err)
}

func TestRedisPublisher(t *testing.T) {
	client := &fakeRedis{}
	pub := &RedisPublisher{client: client, channel: "workspaces:events"}

	event := New(WorkspaceRoleUpdated, WorkspaceRolePayload{WorkspaceID: 1, UserID: 2, Role: models.RoleWorkspaceAdmin})
	require.NoError(t, pub.Publish(context.Background(), event))
	assert.Equal(t, "workspaces:events", client.channel)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(client.message, &decoded))
	assert.Equal(t, "workspace.role.updated", decoded["name"])
	assert.Equal(t, event.ID, decoded["id"])

	client.err = errors.New("connection refused")
	require.Error(t, pub.Publish(context.Background(), event))
}
