package state

import "fmt"

// FailureMessage единственный текст ошибки, который видит пользователь.
const FailureMessage = "Failed to generate poster. Please try again later."

// Phase стадия жизненного цикла сессии.
type Phase int

const (
	Idle Phase = iota
	Generating
	Success
	Error
)

var phaseNames = [...]string{
	Idle:       "IDLE",
	Generating: "GENERATING",
	Success:    "SUCCESS",
	Error:      "ERROR",
}

func (p Phase) String() string {
	if int(p) < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

func (p Phase) MarshalText() ([]byte, error) {
	if int(p) < 0 || int(p) >= len(phaseNames) {
		return nil, fmt.Errorf("unknown phase %d", int(p))
	}
	return []byte(phaseNames[p]), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	for i, name := range phaseNames {
		if name == string(b) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", string(b))
}

// State состояние одной сессии. Меняется только через Reduce.
type State struct {
	Phase       Phase  `json:"phase"`
	SourceImage string `json:"sourceImage,omitempty"`
	ResultImage string `json:"resultImage,omitempty"`
	Error       string `json:"error,omitempty"`
	// Attempt номер последней запущенной генерации, нужен чтобы отбрасывать устаревшие ответы.
	Attempt uint64 `json:"attempt"`
}

type Action int

const (
	SelectImage Action = iota + 1
	RemoveImage
	StartGeneration
	GenerationSucceeded
	GenerationFailed
	Reset
)

func (a Action) String() string {
	switch a {
	case SelectImage:
		return "SelectImage"
	case RemoveImage:
		return "RemoveImage"
	case StartGeneration:
		return "StartGeneration"
	case GenerationSucceeded:
		return "GenerationSucceeded"
	case GenerationFailed:
		return "GenerationFailed"
	case Reset:
		return "Reset"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Event действие пользователя или результат вызова. Image используется SelectImage и GenerationSucceeded,
// Attempt только событиями завершения.
type Event struct {
	Action  Action
	Image   string
	Attempt uint64
}

// CanGenerate кнопка генерации доступна, только если есть фото и вызов не идёт.
func CanGenerate(s State) bool {
	return s.SourceImage != "" && s.Phase != Generating
}

// Reduce применяет событие. false означает, что охранное условие не выполнено и состояние не изменилось.
func Reduce(s State, ev Event) (State, bool) {
	switch ev.Action {
	case SelectImage:
		if ev.Image == "" {
			return s, false
		}
		s.SourceImage = ev.Image
		s.Error = ""
		return s, true

	case RemoveImage:
		return State{Phase: Idle, Attempt: s.Attempt}, true

	case StartGeneration:
		if !CanGenerate(s) {
			return s, false
		}
		s.Phase = Generating
		s.Error = ""
		s.ResultImage = ""
		s.Attempt++
		return s, true

	case GenerationSucceeded:
		if s.Phase != Generating || ev.Attempt != s.Attempt || ev.Image == "" {
			return s, false
		}
		s.Phase = Success
		s.ResultImage = ev.Image
		return s, true

	case GenerationFailed:
		if s.Phase != Generating || ev.Attempt != s.Attempt {
			return s, false
		}
		s.Phase = Error
		s.Error = FailureMessage
		return s, true

	case Reset:
		if s.Phase != Success {
			return s, false
		}
		s.Phase = Idle
		s.ResultImage = ""
		return s, true
	}
	return s, false
}
