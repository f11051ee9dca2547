package provider

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/livebridge/natsclient"
	"github.com/c360/livebridge/subject"
)

func TestIntegration_NATSFactory_StaticBeforeFrames(t *testing.T) {
	tc := natsclient.NewTestClient(t, natsclient.WithJetStream())
	ctx := context.Background()

	var (
		mu  sync.Mutex
		got []*Envelope
	)
	require.NoError(t, tc.Client.Subscribe(ctx, All(""), func(_ context.Context, data []byte) {
		env, err := DecodeEnvelope(data)
		if err != nil {
			return
		}
		mu.Lock()
		got = append(got, env)
		mu.Unlock()
	}))
	require.NoError(t, tc.Client.Flush(ctx))

	factory := NewNATSFactory(tc.Client, WithStaticBucket("livebridge_static_test"))
	src, err := factory.NewSource(ctx, IssueToken(time.Now()), "sim")
	require.NoError(t, err)

	require.NoError(t, src.PublishStatic(ctx, subject.KindTransform, "Forklift_01", nil))
	tr := subject.IdentityTransform()
	for i := 0; i < 3; i++ {
		require.NoError(t, src.PublishFrame(ctx, Frame{Kind: subject.KindTransform, Name: "Forklift_01", Transform: &tr}))
	}

	bucket, err := tc.Client.GetKeyValueBucket(ctx, "livebridge_static_test")
	require.NoError(t, err)
	kv := tc.Client.NewKVStore(bucket)
	assert.Eventually(t, func() bool {
		keys, err := kv.Keys(ctx, "")
		return err == nil && len(keys) == 1 && keys[0] == "transform.Forklift_01"
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, src.Close(ctx))
	require.NoError(t, tc.Client.Flush(ctx))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 6
	}, 5*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	want := []EventType{EventHello, EventStatic, EventFrame, EventFrame, EventFrame, EventGoodbye}
	for i, env := range got {
		assert.Equal(t, want[i], env.Type)
		assert.Equal(t, src.ID(), env.SourceID)
	}
	assert.Equal(t, uint64(3), got[4].Seq)

	keys, err := kv.Keys(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys, "static bucket purged on close")
}
