package umlsm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simpleMachine(t *testing.T) *StateMachine[*trail] {
	b := NewBuilder[*trail]("simple")
	top := b.Region("top")
	top.Initial().To("A")
	logged(top, "A").To("end").On("go", "finish").Name("t1").Effect(effectLog("t1"))
	top.Final("end").Entry(enterLog("end"))
	return mustBuild(t, b)
}

func TestExecutor_SimpleTransition(t *testing.T) {
	e, tr := start(t, simpleMachine(t))
	assert.Equal(t, []string{"A"}, e.ActiveStates())
	assert.True(t, e.Started())

	send(t, e, "go")

	assert.Equal(t, []string{"end"}, e.ActiveStates())
	assert.Equal(t, []string{"enter A", "exit A", "effect t1", "enter end"}, tr.Steps)
}

func TestExecutor_AnyTriggerFires(t *testing.T) {
	e, _ := start(t, simpleMachine(t))
	send(t, e, "finish")
	assert.True(t, e.IsActive("end"))
}

func TestExecutor_UnmatchedEventIsDropped(t *testing.T) {
	obs := &stepObserver{}
	e, tr := start(t, simpleMachine(t), WithObserver(obs))

	send(t, e, "pass")

	assert.Equal(t, []string{"A"}, e.ActiveStates())
	assert.Equal(t, []string{"enter A"}, tr.Steps)
	assert.Contains(t, obs.Steps(), "rejected pass")
	assert.Empty(t, e.Deferred())
}

func TestExecutor_ExitBehaviorsRunInOrder(t *testing.T) {
	b := NewBuilder[*trail]("exits")
	top := b.Region("top")
	top.Initial().To("A")
	top.State("A").
		Exit(exitLog("foo"), exitLog("iak")).
		Exit(exitLog("bar"), exitLog("dir")).
		To("end")
	top.Final("end")

	e, tr := start(t, mustBuild(t, b))

	assert.Equal(t, []string{"exit foo", "exit iak", "exit bar", "exit dir"}, tr.Steps)
	assert.Equal(t, []string{"end"}, e.ActiveStates())
}

func TestExecutor_CompletionChain(t *testing.T) {
	b := NewBuilder[*trail]("chain")
	top := b.Region("top")
	top.Initial().To("A")
	logged(top, "A").To("B")
	logged(top, "B").To("C")
	logged(top, "C")

	e, tr := start(t, mustBuild(t, b))

	assert.Equal(t, []string{"C"}, e.ActiveStates())
	assert.Equal(t, []string{"enter A", "exit A", "enter B", "exit B", "enter C"}, tr.Steps)
}

func TestExecutor_CompletionCycleIsBounded(t *testing.T) {
	b := NewBuilder[*trail]("cycle")
	top := b.Region("top")
	top.Initial().To("A")
	top.State("A").To("B")
	top.State("B").To("A")
	m := mustBuild(t, b)

	e := NewExecutor(m, &trail{}, WithConfig(Config{MaxCompletionSteps: 50}))
	err := e.Go()

	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.True(t, e.Failed())
}

func TestExecutor_Lifecycle(t *testing.T) {
	m := simpleMachine(t)

	t.Run("take before go", func(t *testing.T) {
		e := NewExecutor(m, &trail{})
		err := e.Take(Signal("go"))
		assert.True(t, errors.Is(err, ErrNotStarted))
		assert.Equal(t, ErrCodeMachineNotStarted, GetErrorCode(err))
	})

	t.Run("go twice", func(t *testing.T) {
		e, tr := start(t, m)
		require.NoError(t, e.Go())
		assert.Equal(t, []string{"enter A"}, tr.Steps)
	})

	t.Run("nil event", func(t *testing.T) {
		e, _ := start(t, m)
		err := e.Take(nil)
		require.Error(t, err)
		assert.Equal(t, ErrCodeInvalidEvent, GetErrorCode(err))
		assert.False(t, e.Failed())
	})

	t.Run("paused", func(t *testing.T) {
		e, _ := start(t, m)
		_, err := e.Pause()
		require.NoError(t, err)
		assert.True(t, e.Paused())

		err = e.Take(Signal("go"))
		assert.True(t, errors.Is(err, ErrPaused))
		assert.Equal(t, []string{"A"}, e.ActiveStates())
	})

	t.Run("generated id", func(t *testing.T) {
		a := NewExecutor(m, &trail{})
		b := NewExecutor(m, &trail{})
		assert.NotEmpty(t, a.ID())
		assert.NotEqual(t, a.ID(), b.ID())
		assert.Equal(t, "fixed", NewExecutor(m, &trail{}, WithID("fixed")).ID())
	})
}

func TestExecutor_BehaviorFailure(t *testing.T) {
	b := NewBuilder[*trail]("failure")
	top := b.Region("top")
	top.Initial().To("A")
	top.State("A").To("B").On("go")
	top.State("B").Entry(failing("boom"))
	m := mustBuild(t, b)

	obs := &stepObserver{}
	e, _ := start(t, m, WithObserver(obs))
	before := e.Snapshot()

	err := e.Take(Signal("go"))
	require.Error(t, err)
	assert.True(t, IsActionError(err))
	assert.ErrorContains(t, err, "boom")
	assert.True(t, e.Failed())

	err = e.Take(Signal("go"))
	assert.True(t, errors.Is(err, ErrExecutorFailed))

	_, err = e.Pause()
	assert.True(t, errors.Is(err, ErrExecutorFailed))

	require.NoError(t, e.Resume(before))
	assert.False(t, e.Failed())
	assert.Equal(t, []string{"A"}, e.ActiveStates())

	var reported bool
	for _, step := range obs.Steps() {
		if strings.HasPrefix(step, "error action 'entry'") {
			reported = true
		}
	}
	assert.True(t, reported, "observer should see the failure")
}

func TestExecutor_PanickingEffect(t *testing.T) {
	b := NewBuilder[*trail]("panic")
	top := b.Region("top")
	top.Initial().To("A")
	top.State("A").To("B").On("go").Effect(func(*trail, Event) error {
		panic("effect exploded")
	})
	top.State("B")

	e, _ := start(t, mustBuild(t, b))
	err := e.Take(Signal("go"))

	require.Error(t, err)
	assert.True(t, IsActionError(err))
	assert.ErrorContains(t, err, "effect exploded")
	assert.True(t, e.Failed())
}

func TestExecutor_GuardPanicCountsAsFalse(t *testing.T) {
	b := NewBuilder[*trail]("guard")
	top := b.Region("top")
	top.Initial().To("A")
	top.State("A").To("B").On("go").When(func(*trail, Event) bool {
		panic("guard exploded")
	})
	top.State("B")

	obs := &stepObserver{}
	e, _ := start(t, mustBuild(t, b), WithObserver(obs))

	require.NoError(t, e.Take(Signal("go")))
	assert.Equal(t, []string{"A"}, e.ActiveStates())
	assert.False(t, e.Failed())

	var reported bool
	for _, step := range obs.Steps() {
		if strings.HasPrefix(step, "error guard of transition") {
			reported = true
		}
	}
	assert.True(t, reported)
}

func TestExecutor_InternalTransition(t *testing.T) {
	b := NewBuilder[*trail]("internal")
	top := b.Region("top")
	top.Initial().To("A")
	logged(top, "A").Internal().On("tick").Effect(effectLog("tick"))

	e, tr := start(t, mustBuild(t, b))
	send(t, e, "tick", "tick")

	assert.Equal(t, []string{"enter A", "effect tick", "effect tick"}, tr.Steps)
	assert.Equal(t, []string{"A"}, e.ActiveStates())
}

func TestExecutor_SelfTransition(t *testing.T) {
	b := NewBuilder[*trail]("self")
	top := b.Region("top")
	top.Initial().To("A")
	logged(top, "A").To("A").On("again")

	e, tr := start(t, mustBuild(t, b))
	send(t, e, "again")

	assert.Equal(t, []string{"enter A", "exit A", "enter A"}, tr.Steps)
}

func compositeMachine(t *testing.T, local bool) *StateMachine[*trail] {
	b := NewBuilder[*trail]("composite")
	top := b.Region("top")
	top.Initial().To("compo")
	compo := logged(top, "compo")
	jump := compo.To("Y").On("jump")
	if local {
		jump.Local()
	}
	compo.To("Z").On("go")
	logged(top, "Z")
	r := compo.Region("inner")
	r.Initial().To("X")
	logged(r, "X").To("Y").On("go").When(func(t *trail, _ Event) bool { return t.N == 0 })
	logged(r, "Y")
	return mustBuild(t, b)
}

func TestExecutor_LocalTransitionKeepsSource(t *testing.T) {
	e, tr := start(t, compositeMachine(t, true))
	tr.Steps = nil

	send(t, e, "jump")

	assert.Equal(t, []string{"exit X", "enter Y"}, tr.Steps)
	assert.Equal(t, []string{"compo", "Y"}, e.ActiveStates())
}

func TestExecutor_ExternalTransitionReentersSource(t *testing.T) {
	e, tr := start(t, compositeMachine(t, false))
	tr.Steps = nil

	send(t, e, "jump")

	assert.Equal(t, []string{"exit X", "exit compo", "enter compo", "enter Y"}, tr.Steps)
	assert.Equal(t, []string{"compo", "Y"}, e.ActiveStates())
}

func TestExecutor_InnermostTransitionWins(t *testing.T) {
	e, _ := start(t, compositeMachine(t, false))
	send(t, e, "go")
	assert.Equal(t, []string{"compo", "Y"}, e.ActiveStates())
}

func TestExecutor_OuterTransitionWhenInnerGuardFails(t *testing.T) {
	m := compositeMachine(t, false)
	e := NewExecutor(m, &trail{N: 1})
	require.NoError(t, e.Go())

	require.NoError(t, e.Take(Signal("go")))

	assert.Equal(t, []string{"Z"}, e.ActiveStates())
}

func orthogonalMachine(t *testing.T) *StateMachine[*trail] {
	b := NewBuilder[*trail]("orthogonal")
	top := b.Region("top")
	top.Initial().To("ortho")
	ortho := logged(top, "ortho")
	ortho.To("out").On("go", "leave")
	logged(top, "out")
	r1 := ortho.Region("r1")
	r1.Initial().To("A")
	logged(r1, "A").To("B").On("go").Name("ta").Effect(effectLog("ta"))
	logged(r1, "B")
	r2 := ortho.Region("r2")
	r2.Initial().To("C")
	logged(r2, "C").To("D").On("step").Name("tc").Effect(effectLog("tc"))
	logged(r2, "D")
	return mustBuild(t, b)
}

func TestExecutor_OrthogonalEntryOrder(t *testing.T) {
	e, tr := start(t, orthogonalMachine(t))

	assert.Equal(t, []string{"ortho", "A", "C"}, e.ActiveStates())
	assert.Equal(t, []string{"enter ortho", "enter A", "enter C"}, tr.Steps)

	conf := e.Configuration()
	require.Equal(t, 1, conf.Size())
	assert.Equal(t, OrthogonalConfiguration, conf.Children()[0].Kind())
}

func TestExecutor_ConflictingOuterTransitionIsDropped(t *testing.T) {
	e, tr := start(t, orthogonalMachine(t))
	tr.Steps = nil

	send(t, e, "go")

	assert.Equal(t, []string{"ortho", "B", "C"}, e.ActiveStates())
	assert.Equal(t, []string{"exit A", "effect ta", "enter B"}, tr.Steps)
}

func TestExecutor_OuterTransitionExitsEveryRegion(t *testing.T) {
	e, tr := start(t, orthogonalMachine(t))
	tr.Steps = nil

	send(t, e, "leave")

	assert.Equal(t, []string{"out"}, e.ActiveStates())
	assert.Equal(t, []string{"exit A", "exit C", "exit ortho", "enter out"}, tr.Steps)
}

func TestExecutor_SharedGuardEvaluatedOnce(t *testing.T) {
	calls := 0
	b := NewBuilder[*trail]("shared-guard")
	top := b.Region("top")
	top.Initial().To("ortho")
	ortho := top.State("ortho")
	ortho.To("done").On("x").When(func(*trail, Event) bool {
		calls++
		return true
	})
	top.State("done")
	r1 := ortho.Region("r1")
	r1.Initial().To("A")
	r1.State("A")
	r2 := ortho.Region("r2")
	r2.Initial().To("B")
	r2.State("B")

	e, _ := start(t, mustBuild(t, b))
	send(t, e, "x")

	assert.Equal(t, []string{"done"}, e.ActiveStates())
	assert.Equal(t, 1, calls)
}

func TestExecutor_DeferredEvents(t *testing.T) {
	b := NewBuilder[*trail]("deferred")
	top := b.Region("top")
	top.Initial().To("A")
	top.State("A").Defer("later", "drop").To("B").On("go")
	top.State("B").To("C").On("later")
	top.State("C")
	m := mustBuild(t, b)

	obs := &stepObserver{}
	e, _ := start(t, m, WithObserver(obs))

	send(t, e, "later", "drop")
	require.Len(t, e.Deferred(), 2)
	assert.Equal(t, "later", e.Deferred()[0].Name())

	send(t, e, "go")

	assert.Equal(t, []string{"C"}, e.ActiveStates())
	assert.Empty(t, e.Deferred())
	assert.Contains(t, obs.Steps(), "deferred later")
	assert.Contains(t, obs.Steps(), "rejected drop")
}

func TestExecutor_RedeferredEventIsReportedOnce(t *testing.T) {
	b := NewBuilder[*trail]("redefer")
	top := b.Region("top")
	top.Initial().To("A")
	top.State("A").Defer("x").To("B").On("next")
	top.State("B").Defer("x").To("C").On("other")
	top.State("C")

	obs := &stepObserver{}
	e, _ := start(t, mustBuild(t, b), WithObserver(obs))
	send(t, e, "x", "next")

	assert.Equal(t, []string{"B"}, e.ActiveStates())
	require.Len(t, e.Deferred(), 1)
	deferred := 0
	for _, s := range obs.Steps() {
		if s == "deferred x" {
			deferred++
		}
	}
	assert.Equal(t, 1, deferred)
}

func TestExecutor_TransitionBeatsDeferral(t *testing.T) {
	b := NewBuilder[*trail]("defer-priority")
	top := b.Region("top")
	top.Initial().To("A")
	top.State("A").Defer("go").To("B").On("go")
	top.State("B")

	e, _ := start(t, mustBuild(t, b))
	send(t, e, "go")

	assert.Equal(t, []string{"B"}, e.ActiveStates())
	assert.Empty(t, e.Deferred())
}

func TestExecutor_PauseDiscardsDeferred(t *testing.T) {
	b := NewBuilder[*trail]("defer-pause")
	top := b.Region("top")
	top.Initial().To("A")
	top.State("A").Defer("later")

	e, _ := start(t, mustBuild(t, b))
	send(t, e, "later")
	require.Len(t, e.Deferred(), 1)

	snap, err := e.Pause()
	require.NoError(t, err)
	assert.Empty(t, e.Deferred())

	require.NoError(t, e.Resume(snap))
	assert.Empty(t, e.Deferred())
}

func TestExecutor_Terminate(t *testing.T) {
	b := NewBuilder[*trail]("terminate")
	top := b.Region("top")
	top.Initial().To("A")
	a := logged(top, "A")
	a.To("kill").On("kill").Name("tk").Effect(effectLog("tk"))
	a.To("B").On("go")
	logged(top, "B")
	top.Terminate("kill")

	obs := &stepObserver{}
	e, tr := start(t, mustBuild(t, b), WithObserver(obs))

	require.NoError(t, e.Take(Signal("kill")))

	assert.True(t, e.Terminated())
	assert.False(t, e.Failed())
	assert.Equal(t, []string{"enter A", "effect tk"}, tr.Steps)
	assert.Equal(t, []string{"A"}, e.ActiveStates())
	assert.Contains(t, obs.Steps(), "terminated")

	require.NoError(t, e.Take(Signal("go")))
	assert.Equal(t, []string{"A"}, e.ActiveStates())
	assert.True(t, e.Snapshot().Terminated)
}

func TestExecutor_ConcurrentTakeIsSerialized(t *testing.T) {
	b := NewBuilder[*trail]("counter")
	top := b.Region("top")
	top.Initial().To("A")
	top.State("A").Internal().On("inc").Effect(func(t *trail, _ Event) error {
		t.N++
		return nil
	})
	e, tr := start(t, mustBuild(t, b))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = e.TakeContext(context.Background(), Signal("inc"))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 400, e.Context().N)
	assert.Same(t, tr, e.Context())
}

func TestRunAndSend(t *testing.T) {
	e, err := Run(simpleMachine(t), &trail{})
	require.NoError(t, err)
	require.NoError(t, Send(e, "pass", "go"))
	assert.Equal(t, []string{"end"}, e.ActiveStates())
}
