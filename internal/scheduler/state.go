package scheduler

// State — состояние dispatcher'а.
type State int32

const (
	// StateWaitingForAny — очередь пуста, dispatcher ждёт любую entry.
	StateWaitingForAny State = iota

	// StateHaveCandidate — dispatcher держит извлечённую entry и решает, что с ней делать.
	StateHaveCandidate

	// StateSleepingUntilDue — кандидат возвращён в очередь, dispatcher спит
	// до ближайшего due_at или до новой entry.
	StateSleepingUntilDue

	// StateDispatching — entry передаётся в sink.
	StateDispatching

	// StateStopped — терминальное состояние после Shutdown.
	StateStopped
)

// String возвращает имя состояния.
func (s State) String() string {
	switch s {
	case StateWaitingForAny:
		return "WAITING_FOR_ANY"
	case StateHaveCandidate:
		return "HAVE_CANDIDATE"
	case StateSleepingUntilDue:
		return "SLEEPING_UNTIL_DUE"
	case StateDispatching:
		return "DISPATCHING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// MarshalText сериализует состояние как строку (для JSON).
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
