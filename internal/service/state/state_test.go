package state

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const photo = "data:image/jpeg;base64,AQID"

func apply(t *testing.T, s State, ev Event) State {
	t.Helper()
	next, ok := Reduce(s, ev)
	require.True(t, ok, "event %s rejected in %s", ev.Action, s.Phase)
	return next
}

func TestReduce_GenerateWithoutImageIsNoop(t *testing.T) {
	s := State{}
	next, ok := Reduce(s, Event{Action: StartGeneration})
	assert.False(t, ok)
	assert.Equal(t, s, next)
	assert.Equal(t, Idle, next.Phase)
}

func TestReduce_SecondGenerateRejected(t *testing.T) {
	s := apply(t, State{}, Event{Action: SelectImage, Image: photo})
	s = apply(t, s, Event{Action: StartGeneration})
	require.Equal(t, Generating, s.Phase)
	assert.False(t, CanGenerate(s))

	next, ok := Reduce(s, Event{Action: StartGeneration})
	assert.False(t, ok)
	assert.Equal(t, s, next)
	assert.Equal(t, uint64(1), next.Attempt)
}

func TestReduce_SuccessThenReset(t *testing.T) {
	s := apply(t, State{}, Event{Action: SelectImage, Image: photo})
	assert.Equal(t, Idle, s.Phase)
	assert.True(t, CanGenerate(s))

	s = apply(t, s, Event{Action: StartGeneration})
	assert.Equal(t, Generating, s.Phase)
	assert.Equal(t, photo, s.SourceImage)

	s = apply(t, s, Event{Action: GenerationSucceeded, Image: "data:image/png;base64,BAUG", Attempt: s.Attempt})
	assert.Equal(t, Success, s.Phase)
	assert.Equal(t, "data:image/png;base64,BAUG", s.ResultImage)

	s = apply(t, s, Event{Action: Reset})
	assert.Equal(t, Idle, s.Phase)
	assert.Empty(t, s.ResultImage)
	assert.Equal(t, photo, s.SourceImage)
}

func TestReduce_FailureThenRetry(t *testing.T) {
	s := apply(t, State{}, Event{Action: SelectImage, Image: photo})
	s = apply(t, s, Event{Action: StartGeneration})
	s = apply(t, s, Event{Action: GenerationFailed, Attempt: s.Attempt})
	assert.Equal(t, Error, s.Phase)
	assert.Equal(t, FailureMessage, s.Error)
	assert.Empty(t, s.ResultImage)
	assert.True(t, CanGenerate(s))

	s = apply(t, s, Event{Action: StartGeneration})
	assert.Equal(t, Generating, s.Phase)
	assert.Empty(t, s.Error)
	assert.Equal(t, uint64(2), s.Attempt)

	s = apply(t, s, Event{Action: GenerationSucceeded, Image: "data:image/png;base64,AA==", Attempt: s.Attempt})
	assert.Equal(t, Success, s.Phase)
}

func TestReduce_StaleCompletionIgnored(t *testing.T) {
	s := apply(t, State{}, Event{Action: SelectImage, Image: photo})
	s = apply(t, s, Event{Action: StartGeneration})
	stale := s.Attempt
	s = apply(t, s, Event{Action: RemoveImage})
	s = apply(t, s, Event{Action: SelectImage, Image: photo})
	s = apply(t, s, Event{Action: StartGeneration})

	next, ok := Reduce(s, Event{Action: GenerationSucceeded, Image: "data:image/png;base64,AA==", Attempt: stale})
	assert.False(t, ok)
	assert.Equal(t, s, next)

	next, ok = Reduce(s, Event{Action: GenerationFailed, Attempt: stale})
	assert.False(t, ok)
	assert.Equal(t, s, next)
}

func TestReduce_CompletionOutsideGeneratingIgnored(t *testing.T) {
	s := apply(t, State{}, Event{Action: SelectImage, Image: photo})
	_, ok := Reduce(s, Event{Action: GenerationSucceeded, Image: "x", Attempt: s.Attempt})
	assert.False(t, ok)
	_, ok = Reduce(s, Event{Action: GenerationFailed, Attempt: s.Attempt})
	assert.False(t, ok)
}

func TestReduce_RemoveImageClearsEverything(t *testing.T) {
	s := State{Phase: Success, SourceImage: photo, ResultImage: "r", Attempt: 3}
	s = apply(t, s, Event{Action: RemoveImage})
	assert.Equal(t, State{Phase: Idle, Attempt: 3}, s)
}

func TestReduce_ResetOnlyFromSuccess(t *testing.T) {
	for _, p := range []Phase{Idle, Generating, Error} {
		s := State{Phase: p, SourceImage: photo}
		_, ok := Reduce(s, Event{Action: Reset})
		assert.False(t, ok, p.String())
	}
}

func TestReduce_SelectImageClearsError(t *testing.T) {
	s := State{Phase: Error, SourceImage: photo, Error: FailureMessage, Attempt: 1}
	s = apply(t, s, Event{Action: SelectImage, Image: "data:image/jpeg;base64,BBBB"})
	assert.Empty(t, s.Error)
	assert.Equal(t, "data:image/jpeg;base64,BBBB", s.SourceImage)

	_, ok := Reduce(s, Event{Action: SelectImage})
	assert.False(t, ok)
}

func TestPhase_JSON(t *testing.T) {
	b, err := json.Marshal(State{Phase: Generating, Attempt: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"phase":"GENERATING","attempt":2}`, string(b))

	var s State
	require.NoError(t, json.Unmarshal([]byte(`{"phase":"SUCCESS","resultImage":"r"}`), &s))
	assert.Equal(t, Success, s.Phase)

	assert.Error(t, json.Unmarshal([]byte(`{"phase":"UPLOADING"}`), &s))
}

// Случайные последовательности событий не нарушают инварианты состояния.
func TestReduce_InvariantsHold(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := State{}
		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			ev := Event{
				Action: Action(rapid.IntRange(int(SelectImage), int(Reset)).Draw(t, "action")),
				Image:  rapid.SampledFrom([]string{"", photo, "data:image/png;base64,AA=="}).Draw(t, "image"),
			}
			// завершения чаще всего относятся к текущей попытке
			if rapid.IntRange(0, 3).Draw(t, "stale") == 0 && s.Attempt > 0 {
				ev.Attempt = s.Attempt - 1
			} else {
				ev.Attempt = s.Attempt
			}

			wasGenerating := s.Phase == Generating
			next, ok := Reduce(s, ev)
			if !ok && next != s {
				t.Fatalf("rejected event changed state: %+v -> %+v", s, next)
			}
			if ev.Action == StartGeneration && wasGenerating && ok {
				t.Fatalf("second generation accepted")
			}
			if next.ResultImage != "" && next.Phase != Success {
				t.Fatalf("result outside success: %+v", next)
			}
			if next.Error != "" && next.Phase != Error {
				t.Fatalf("error outside error phase: %+v", next)
			}
			if next.Phase == Generating && next.SourceImage == "" && s.Phase != Generating {
				t.Fatalf("generation started without source: %+v", next)
			}
			s = next
		}
	})
}
