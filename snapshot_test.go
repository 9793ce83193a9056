package umlsm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_PauseResumeRoundTrip(t *testing.T) {
	m := historyMachine(t, true, "compo")
	e, _ := start(t, m)
	send(t, e, "next", "step", "pause")

	snap, err := e.Pause()
	require.NoError(t, err)

	other := NewExecutor(m, &trail{})
	require.NoError(t, other.Resume(snap))

	assert.Equal(t, snap, other.Snapshot())
	assert.Equal(t, e.ActiveStates(), other.ActiveStates())
}

func TestSnapshot_ResumeThroughHistoryAfterDecode(t *testing.T) {
	for _, codec := range []struct {
		name   string
		encode func(*Snapshot[*trail]) ([]byte, error)
		decode func([]byte) (*Snapshot[*trail], error)
	}{
		{"json", (*Snapshot[*trail]).EncodeJSON, DecodeJSON[*trail]},
		{"yaml", (*Snapshot[*trail]).EncodeYAML, DecodeYAML[*trail]},
	} {
		t.Run(codec.name, func(t *testing.T) {
			m := historyMachine(t, true, "compo")
			e, _ := start(t, m)
			send(t, e, "next", "step", "pause")

			snap, err := e.Pause()
			require.NoError(t, err)
			data, err := codec.encode(snap)
			require.NoError(t, err)
			decoded, err := codec.decode(data)
			require.NoError(t, err)
			assert.Equal(t, snap, decoded)

			restored := NewExecutor(m, &trail{})
			require.NoError(t, restored.Resume(decoded))
			assert.Equal(t, decoded.Context.Steps, restored.Context().Steps)

			send(t, restored, "resume")
			assert.Equal(t, []string{"compo", "B", "Bb"}, restored.ActiveStates())
		})
	}
}

func TestSnapshot_OrthogonalChildrenInRegionOrder(t *testing.T) {
	e, _ := start(t, forkMachine(t))
	send(t, e, "go2")

	snap := e.Snapshot()

	assert.Equal(t, Tree{Children: []*Tree{{
		State:    "ortho",
		Children: []*Tree{{State: "A"}, {State: "end2"}},
	}}}, snap.Active)
	assert.True(t, snap.Started)
	assert.False(t, snap.Terminated)
	assert.Equal(t, "fork", snap.StateMachine)
}

func TestSnapshot_ResumeContinuesExecution(t *testing.T) {
	m := forkMachine(t)
	e, _ := start(t, m)
	send(t, e, "go1")

	snap, err := e.Pause()
	require.NoError(t, err)
	data, err := snap.EncodeJSON()
	require.NoError(t, err)
	decoded, err := DecodeJSON[*trail](data)
	require.NoError(t, err)

	restored := NewExecutor(m, &trail{})
	require.NoError(t, restored.Resume(decoded))
	send(t, restored, "go2")

	assert.Equal(t, []string{"end"}, restored.ActiveStates())
}

func TestSnapshot_ResumeOnPausedExecutor(t *testing.T) {
	e, _ := start(t, simpleMachine(t))
	snap, err := e.Pause()
	require.NoError(t, err)

	require.NoError(t, e.Resume(snap))
	assert.False(t, e.Paused())

	send(t, e, "go")
	assert.Equal(t, []string{"end"}, e.ActiveStates())
}

func TestSnapshot_Mismatch(t *testing.T) {
	m := forkMachine(t)
	valid := func() *Snapshot[*trail] {
		e, _ := start(t, m)
		return e.Snapshot()
	}

	for name, mutate := range map[string]func(s *Snapshot[*trail]){
		"other machine": func(s *Snapshot[*trail]) {
			s.StateMachine = "history"
		},
		"unknown state": func(s *Snapshot[*trail]) {
			s.Active.Children[0].Children[0].State = "nowhere"
		},
		"pseudostate": func(s *Snapshot[*trail]) {
			s.Active.Children[0].Children[0].State = "split"
		},
		"wrong parent": func(s *Snapshot[*trail]) {
			s.Active.Children = append(s.Active.Children, &Tree{State: "B"})
		},
		"region occupied twice": func(s *Snapshot[*trail]) {
			s.Active.Children[0].Children = append(s.Active.Children[0].Children, &Tree{State: "B"})
		},
		"named root": func(s *Snapshot[*trail]) {
			s.Active.State = "ortho"
		},
		"unknown history region": func(s *Snapshot[*trail]) {
			s.History = map[string]*Tree{"nowhere": {State: "A"}}
		},
		"history of another region": func(s *Snapshot[*trail]) {
			s.History = map[string]*Tree{"r1": {State: "C"}}
		},
	} {
		t.Run(name, func(t *testing.T) {
			snap := valid()
			mutate(snap)

			e := NewExecutor(m, &trail{})
			err := e.Resume(snap)

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrSnapshotMismatch))
			assert.Empty(t, e.ActiveStates())
		})
	}

	t.Run("nil", func(t *testing.T) {
		err := NewExecutor(m, &trail{}).Resume(nil)
		assert.True(t, errors.Is(err, ErrSnapshotMismatch))
	})
}

func TestSnapshot_Clone(t *testing.T) {
	e, _ := start(t, historyMachine(t, true, "compo"))
	send(t, e, "step", "pause")
	snap := e.Snapshot()

	clone := snap.Clone()
	clone.Active.Children[0].State = "compo"
	clone.History["cr"].State = "C"

	assert.Equal(t, "P", snap.Active.Children[0].State)
	assert.Equal(t, "A", snap.History["cr"].State)
}

func TestSnapshot_DecodeErrors(t *testing.T) {
	_, err := DecodeJSON[*trail]([]byte("{"))
	assert.ErrorContains(t, err, "failed to decode snapshot")

	_, err = DecodeYAML[*trail]([]byte("active: ["))
	assert.ErrorContains(t, err, "failed to decode snapshot")
}

func TestSnapshot_VariablesContext(t *testing.T) {
	b := NewBuilder[*Variables]("vars")
	top := b.Region("top")
	top.Initial().To("A")
	top.State("A").Internal().On("inc").Effect(func(v *Variables, _ Event) error {
		v.Add("count", 1)
		return nil
	})
	m := mustBuild(t, b)

	vars := NewVariables()
	vars.Set("owner", "alice")
	e := NewExecutor(m, vars)
	require.NoError(t, e.Go())
	require.NoError(t, Send(e, "inc", "inc"))

	snap, err := e.Pause()
	require.NoError(t, err)

	for _, codec := range []struct {
		encode func() ([]byte, error)
		decode func([]byte) (*Snapshot[*Variables], error)
	}{
		{snap.EncodeJSON, DecodeJSON[*Variables]},
		{snap.EncodeYAML, DecodeYAML[*Variables]},
	} {
		data, err := codec.encode()
		require.NoError(t, err)
		decoded, err := codec.decode(data)
		require.NoError(t, err)

		restored := NewExecutor(m, NewVariables())
		require.NoError(t, restored.Resume(decoded))
		require.NoError(t, restored.Take(Signal("inc")))

		count, ok := restored.Context().GetInt("count")
		assert.True(t, ok)
		assert.Equal(t, 3, count)
		owner, _ := restored.Context().GetString("owner")
		assert.Equal(t, "alice", owner)
	}
}
