package viewer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/livebridge/natsclient"
	"github.com/c360/livebridge/provider"
	"github.com/c360/livebridge/subject"
)

func TestIntegration_LateJoinAndLiveFrames(t *testing.T) {
	tc := natsclient.NewTestClient(t, natsclient.WithJetStream())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const bucket = "viewer_static_test"
	factory := provider.NewNATSFactory(tc.Client, provider.WithStaticBucket(bucket))
	src, err := factory.NewSource(ctx, provider.IssueToken(time.Now()), "FlexSim")
	require.NoError(t, err)

	// registered before the viewer exists
	require.NoError(t, src.PublishStatic(ctx, subject.KindData, "Conveyor", subject.NewSchema([]string{"Level", "Speed"})))

	kvBucket, err := tc.Client.GetKeyValueBucket(ctx, bucket)
	require.NoError(t, err)
	kv := tc.Client.NewKVStore(kvBucket)
	require.Eventually(t, func() bool {
		keys, err := kv.Keys(ctx, "")
		return err == nil && len(keys) == 1
	}, 5*time.Second, 20*time.Millisecond)

	v := New(tc.Client, WithStaticBucket(bucket))
	defer v.Close()
	require.NoError(t, v.Start(ctx))

	e, ok := v.State().Get("FlexSim", subject.KindData, "Conveyor")
	require.True(t, ok, "schema recovered from the bucket")
	assert.Equal(t, []string{"Level", "Speed"}, e.Properties.Names())
	assert.Equal(t, src.ID(), e.SourceID)

	require.NoError(t, src.PublishFrame(ctx, provider.Frame{
		Kind: subject.KindData, Name: "Conveyor", Values: []float32{0.5, 1.25},
	}))
	require.NoError(t, tc.Client.Flush(ctx))

	assert.Eventually(t, func() bool {
		e, ok := v.State().Get("FlexSim", subject.KindData, "Conveyor")
		return ok && e.Frames == 1 && len(e.Values) == 2 && e.Values[1] == 1.25
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, src.Close(ctx))
	require.NoError(t, tc.Client.Flush(ctx))

	assert.Eventually(t, func() bool { return v.State().Len() == 0 }, 5*time.Second, 20*time.Millisecond)
	assert.Empty(t, v.State().Sources())
}
