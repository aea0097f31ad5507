package runtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/chatflow/internal/runtime"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(id string, kind domain.Kind, text string) domain.Node {
	return domain.Node{ID: id, Kind: kind, Text: text}
}

func conn(id, from, to string) domain.Connection {
	return domain.Connection{ID: id, From: from, To: to}
}

func greetingGraph() domain.Graph {
	return domain.Graph{
		Nodes: []domain.Node{
			node("1", domain.KindStart, ""),
			node("2", domain.KindMessage, "Hi"),
			node("3", domain.KindQuestion, "Name?"),
		},
		Connections: []domain.Connection{conn("a", "1", "2"), conn("b", "2", "3")},
	}
}

func newRun(t *testing.T, g domain.Graph, opts ...runtime.RunOption) *runtime.Run {
	t.Helper()
	r := runtime.NewRun(g, append([]runtime.RunOption{runtime.WithDelay(0)}, opts...)...)
	t.Cleanup(r.Close)
	return r
}

func texts(events []domain.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, string(e.Kind)+":"+e.Text)
	}
	return out
}

func TestRun_GreetingSuspendsAndTerminatesAfterReply(t *testing.T) {
	ctx := context.Background()
	r := newRun(t, greetingGraph())

	require.NoError(t, r.Reset(ctx))
	assert.Equal(t, []string{"message:Hi", "message:Name?"}, texts(r.Transcript()))
	assert.Equal(t, domain.StatusSuspended, r.Status())
	assert.Equal(t, "3", r.Current())

	require.NoError(t, r.SubmitReply(ctx, "Ana"))
	assert.Equal(t, []string{"message:Hi", "message:Name?", "user:Ana"}, texts(r.Transcript()))
	assert.Equal(t, domain.StatusTerminal, r.Status())
}

func TestRun_SequenceNumbersAreContiguous(t *testing.T) {
	ctx := context.Background()
	r := newRun(t, greetingGraph())
	require.NoError(t, r.Reset(ctx))
	require.NoError(t, r.SubmitReply(ctx, "Ana"))

	for i, e := range r.Transcript() {
		assert.Equal(t, i+1, e.Seq)
	}
}

func TestRun_EmissionTable(t *testing.T) {
	g := domain.Graph{
		Nodes: []domain.Node{
			node("s", domain.KindStart, "Welcome"),
			node("c", domain.KindCondition, "If paid"),
			node("a", domain.KindAction, "Send invoice"),
			node("i", domain.KindInput, "Email?"),
		},
		Connections: []domain.Connection{conn("1", "s", "c"), conn("2", "c", "a"), conn("3", "a", "i")},
	}
	r := newRun(t, g)
	require.NoError(t, r.Reset(context.Background()))

	assert.Equal(t, []string{
		"message:Welcome",
		"annotation:If paid",
		"annotation:[Action] Send invoice",
		"message:Email?",
	}, texts(r.Transcript()))
	assert.Equal(t, domain.StatusSuspended, r.Status())
}

func TestRun_ResetWithoutStartStaysIdle(t *testing.T) {
	g := domain.Graph{Nodes: []domain.Node{node("m", domain.KindMessage, "orphan")}}
	r := newRun(t, g)

	require.NoError(t, r.Reset(context.Background()))
	assert.Equal(t, domain.StatusIdle, r.Status())
	assert.Empty(t, r.Transcript())
}

func TestRun_StartWithoutConnectionsTerminates(t *testing.T) {
	g := domain.Graph{Nodes: []domain.Node{node("s", domain.KindStart, "")}}
	r := newRun(t, g)

	require.NoError(t, r.Reset(context.Background()))
	assert.Equal(t, domain.StatusTerminal, r.Status())
	assert.Empty(t, r.Transcript())
}

func TestRun_ResetClearsTranscript(t *testing.T) {
	ctx := context.Background()
	r := newRun(t, greetingGraph())

	require.NoError(t, r.Reset(ctx))
	require.NoError(t, r.SubmitReply(ctx, "Ana"))
	require.NoError(t, r.Reset(ctx))

	assert.Equal(t, []string{"message:Hi", "message:Name?"}, texts(r.Transcript()))
	assert.Equal(t, domain.StatusSuspended, r.Status())
}

func TestRun_ReplyIgnoredUnlessSuspended(t *testing.T) {
	ctx := context.Background()
	r := newRun(t, greetingGraph())

	require.NoError(t, r.SubmitReply(ctx, "too early"))
	assert.Empty(t, r.Transcript())
	assert.Equal(t, domain.StatusIdle, r.Status())

	require.NoError(t, r.Reset(ctx))
	require.NoError(t, r.SubmitReply(ctx, "Ana"))
	require.NoError(t, r.SubmitReply(ctx, "too late"))
	assert.Len(t, r.Transcript(), 3)
}

func TestRun_AdvanceIgnoredWhenSuspendedOrTerminal(t *testing.T) {
	ctx := context.Background()
	r := newRun(t, greetingGraph())
	require.NoError(t, r.Reset(ctx))

	require.NoError(t, r.Advance(ctx, "1"))
	assert.Len(t, r.Transcript(), 2)

	require.NoError(t, r.SubmitReply(ctx, "Ana"))
	require.NoError(t, r.Advance(ctx, "1"))
	assert.Len(t, r.Transcript(), 3)
}

func TestRun_DanglingConnectionTerminatesSilently(t *testing.T) {
	g := domain.Graph{
		Nodes:       []domain.Node{node("s", domain.KindStart, ""), node("m", domain.KindMessage, "Hello")},
		Connections: []domain.Connection{conn("1", "s", "m"), conn("2", "m", "ghost")},
	}
	r := newRun(t, g)

	require.NoError(t, r.Reset(context.Background()))
	assert.Equal(t, []string{"message:Hello"}, texts(r.Transcript()))
	assert.Equal(t, domain.StatusTerminal, r.Status())
}

func TestRun_BranchingReachesEveryTarget(t *testing.T) {
	g := domain.Graph{
		Nodes: []domain.Node{
			node("1", domain.KindStart, ""),
			node("2", domain.KindMessage, "Pick"),
			node("3", domain.KindMessage, "Left"),
			node("4", domain.KindMessage, "Right"),
		},
		Connections: []domain.Connection{conn("a", "1", "2"), conn("b", "2", "3"), conn("c", "2", "4")},
	}

	reached := map[string]bool{}
	for i := 0; i < 200 && len(reached) < 2; i++ {
		r := runtime.NewRun(g, runtime.WithDelay(0))
		require.NoError(t, r.Reset(context.Background()))
		reached[r.Current()] = true
		r.Close()
	}

	assert.True(t, reached["3"], "node 3 never reached")
	assert.True(t, reached["4"], "node 4 never reached")
}

func TestRun_BranchSelectorIsHonoured(t *testing.T) {
	g := domain.Graph{
		Nodes: []domain.Node{
			node("1", domain.KindStart, ""),
			node("2", domain.KindCondition, "If VIP"),
			node("3", domain.KindMessage, "Yes"),
			node("4", domain.KindMessage, "No"),
		},
		Connections: []domain.Connection{conn("a", "1", "2"), conn("b", "2", "3"), conn("c", "2", "4")},
	}
	last := func(c []domain.Connection) int { return len(c) - 1 }
	r := newRun(t, g, runtime.WithBranchSelector(last))

	require.NoError(t, r.Reset(context.Background()))
	assert.Equal(t, "4", r.Current())
}

func TestRun_OutOfRangeSelectorFallsBackToFirst(t *testing.T) {
	g := domain.Graph{
		Nodes: []domain.Node{
			node("1", domain.KindStart, ""),
			node("3", domain.KindMessage, "Yes"),
			node("4", domain.KindMessage, "No"),
		},
		Connections: []domain.Connection{conn("b", "1", "3"), conn("c", "1", "4")},
	}
	r := newRun(t, g, runtime.WithBranchSelector(func([]domain.Connection) int { return 99 }))

	require.NoError(t, r.Reset(context.Background()))
	assert.Equal(t, "3", r.Current())
}

func TestRun_RunawayCycleIsAborted(t *testing.T) {
	g := domain.Graph{
		Nodes: []domain.Node{
			node("s", domain.KindStart, ""),
			node("a", domain.KindMessage, "ping"),
			node("b", domain.KindMessage, "pong"),
		},
		Connections: []domain.Connection{conn("1", "s", "a"), conn("2", "a", "b"), conn("3", "b", "a")},
	}
	r := newRun(t, g, runtime.WithMaxSteps(10))

	err := r.Reset(context.Background())
	require.ErrorIs(t, err, domain.ErrRunawayFlow)
	assert.Equal(t, domain.StatusTerminal, r.Status())
	assert.Len(t, r.Transcript(), 10)
}

func TestRun_ChainAtStepLimitTerminatesCleanly(t *testing.T) {
	g := domain.Graph{
		Nodes: []domain.Node{
			node("s", domain.KindStart, ""),
			node("m1", domain.KindMessage, "one"),
			node("m2", domain.KindMessage, "two"),
			node("m3", domain.KindMessage, "three"),
		},
		Connections: []domain.Connection{conn("1", "s", "m1"), conn("2", "m1", "m2"), conn("3", "m2", "m3")},
	}
	r := newRun(t, g, runtime.WithMaxSteps(3))

	require.NoError(t, r.Reset(context.Background()))
	assert.Equal(t, domain.StatusTerminal, r.Status())
	assert.Equal(t, []string{"message:one", "message:two", "message:three"}, texts(r.Transcript()))
}

func TestRun_QuestionAtStepLimitSuspends(t *testing.T) {
	g := domain.Graph{
		Nodes: []domain.Node{
			node("s", domain.KindStart, ""),
			node("m1", domain.KindMessage, "one"),
			node("m2", domain.KindMessage, "two"),
			node("q", domain.KindQuestion, "Name?"),
		},
		Connections: []domain.Connection{conn("1", "s", "m1"), conn("2", "m1", "m2"), conn("3", "m2", "q")},
	}
	r := newRun(t, g, runtime.WithMaxSteps(2))

	require.NoError(t, r.Reset(context.Background()))
	assert.Equal(t, domain.StatusSuspended, r.Status())
	assert.Equal(t, "q", r.Current())
}

func TestRun_SnapshotIsolation(t *testing.T) {
	g := greetingGraph()
	r := newRun(t, g)

	g.Nodes[1].Text = "Changed"
	require.NoError(t, r.Reset(context.Background()))
	assert.Equal(t, "message:Hi", texts(r.Transcript())[0])
}

func TestRun_LifecycleHooks(t *testing.T) {
	ctx := context.Background()
	var entered, suspended, replied []string
	var terminalAt string

	hooks := domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) { entered = append(entered, e.NodeID) },
		OnSuspend:   func(_ context.Context, e *domain.NodeEvent) { suspended = append(suspended, e.NodeID) },
		OnReply:     func(_ context.Context, e *domain.NodeEvent) { replied = append(replied, e.NodeID) },
		OnTerminal:  func(_ context.Context, _ string, last string) { terminalAt = last },
	}
	r := newRun(t, greetingGraph(), runtime.WithLifecycleHooks(hooks), runtime.WithRunID("run-1"))

	require.NoError(t, r.Reset(ctx))
	require.NoError(t, r.SubmitReply(ctx, "Ana"))

	assert.Equal(t, "run-1", r.ID())
	assert.Equal(t, []string{"1", "2", "3"}, entered)
	assert.Equal(t, []string{"3"}, suspended)
	assert.Equal(t, []string{"3"}, replied)
	assert.Equal(t, "3", terminalAt)
}

func TestRun_EventsAreDeliveredInOrder(t *testing.T) {
	ctx := context.Background()
	r := runtime.NewRun(greetingGraph(), runtime.WithDelay(5*time.Millisecond))
	defer r.Close()

	require.NoError(t, r.Reset(ctx))
	require.NoError(t, r.SubmitReply(ctx, "Ana"))

	var got []domain.Event
	timeout := time.After(2 * time.Second)
	for len(got) < 3 {
		select {
		case e := <-r.Events():
			got = append(got, e)
		case <-timeout:
			t.Fatalf("timed out waiting for events, got %v", texts(got))
		}
	}

	assert.Equal(t, []string{"message:Hi", "message:Name?", "user:Ana"}, texts(got))
	assert.Equal(t, texts(got), texts(r.Visible()))
}

func TestRun_ResetDiscardsUnreadEvents(t *testing.T) {
	ctx := context.Background()
	r := newRun(t, greetingGraph())

	require.NoError(t, r.Reset(ctx))
	require.NoError(t, r.SubmitReply(ctx, "Ana"))
	require.Eventually(t, func() bool { return len(r.Visible()) == 3 }, 2*time.Second, 5*time.Millisecond)

	gen, _ := r.Delivered()
	require.NoError(t, r.Reset(ctx))

	var got []domain.Event
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case e := <-r.Events():
			got = append(got, e)
		case <-timeout:
			t.Fatalf("timed out waiting for events, got %v", texts(got))
		}
	}
	select {
	case e := <-r.Events():
		t.Fatalf("unexpected event %v", texts([]domain.Event{e}))
	case <-time.After(50 * time.Millisecond):
	}

	assert.Equal(t, []string{"message:Hi", "message:Name?"}, texts(got))
	assert.Equal(t, []int{1, 2}, []int{got[0].Seq, got[1].Seq})

	next, visible := r.Delivered()
	assert.Greater(t, next, gen)
	assert.Len(t, visible, 2)
}

func TestRun_BotEventsWaitForDelay(t *testing.T) {
	r := runtime.NewRun(greetingGraph(), runtime.WithDelay(50*time.Millisecond))
	defer r.Close()

	begin := time.Now()
	require.NoError(t, r.Reset(context.Background()))
	assert.Len(t, r.Transcript(), 2)

	select {
	case e := <-r.Events():
		assert.Equal(t, "Hi", e.Text)
		assert.GreaterOrEqual(t, time.Since(begin), 50*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first event")
	}
}

func TestRun_CloseEndsEventStream(t *testing.T) {
	r := runtime.NewRun(greetingGraph(), runtime.WithDelay(time.Hour))
	require.NoError(t, r.Reset(context.Background()))
	r.Close()
	r.Close()

	select {
	case _, ok := <-r.Events():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("event stream not closed")
	}
}

func TestRun_DetachedDeliveryIsPolled(t *testing.T) {
	r := newRun(t, greetingGraph(), runtime.WithDetachedDelivery())
	require.NoError(t, r.Reset(context.Background()))

	require.Eventually(t, func() bool {
		return len(r.Visible()) == 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"message:Hi", "message:Name?"}, texts(r.Visible()))
}
