package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Direction é o sentido do tráfego no barramento.
type Direction int

const (
	// DirectionNone só aparece no estado, quando o barramento está vazio.
	DirectionNone Direction = iota
	Send
	Receive
)

// Directions lista as direções válidas para uma tarefa, na ordem usada em relatórios.
var Directions = [...]Direction{Send, Receive}

func (d Direction) String() string {
	switch d {
	case Send:
		return "send"
	case Receive:
		return "receive"
	case DirectionNone:
		return "none"
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

// Valid informa se d pode ser pedida por uma tarefa.
func (d Direction) Valid() bool { return d == Send || d == Receive }

// Opposite retorna a outra direção. Para DirectionNone retorna DirectionNone.
func (d Direction) Opposite() Direction {
	switch d {
	case Send:
		return Receive
	case Receive:
		return Send
	}
	return DirectionNone
}

func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "send", "sender":
		return Send, nil
	case "receive", "receiver":
		return Receive, nil
	case "none", "":
		return DirectionNone, nil
	}
	return DirectionNone, fmt.Errorf("%w: unknown direction %q", ErrInvalidTask, s)
}

// Priority é a classe da tarefa.
type Priority int

const (
	Normal Priority = iota
	High
)

func (p Priority) String() string {
	switch p {
	case Normal:
		return "normal"
	case High:
		return "high"
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

func (p Priority) Valid() bool { return p == Normal || p == High }

func (p Priority) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Priority) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "normal", "low":
		*p = Normal
	case "high":
		*p = High
	default:
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidTask, string(b))
	}
	return nil
}

// Task é efêmera: nasce quando o corpo da tarefa começa e é consumida por
// exatamente um par Acquire/Release.
type Task struct {
	ID        string    `json:"id"`
	Direction Direction `json:"direction"`
	Priority  Priority  `json:"priority"`
}

func NewTask(dir Direction, prio Priority) Task {
	return Task{ID: uuid.New().String(), Direction: dir, Priority: prio}
}

// Class identifica o tipo da tarefa, ex: "send/high".
func (t Task) Class() string { return t.Direction.String() + "/" + t.Priority.String() }

func (t Task) Validate() error {
	if !t.Direction.Valid() {
		return fmt.Errorf("%w: direction %s", ErrInvalidTask, t.Direction)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("%w: priority %s", ErrInvalidTask, t.Priority)
	}
	return nil
}

// State é uma fotografia consistente do barramento.
type State struct {
	Capacity           int       `json:"capacity"`
	Occupied           int       `json:"occupied"`
	Direction          Direction `json:"direction"`
	PendingHighSend    int       `json:"pendingHighSend"`
	PendingHighReceive int       `json:"pendingHighReceive"`
}

// PendingHigh retorna quantas tarefas de alta prioridade da direção d ainda
// não foram admitidas.
func (s State) PendingHigh(d Direction) int {
	switch d {
	case Send:
		return s.PendingHighSend
	case Receive:
		return s.PendingHighReceive
	}
	return 0
}

// GateOpen informa se tarefas normais da direção d já podem ser admitidas.
func (s State) GateOpen(d Direction) bool { return s.PendingHigh(d) == 0 }

// Admission é emitida no instante em que uma tarefa recebe a vaga.
// State já reflete a admissão.
type Admission struct {
	Task   Task
	Waited time.Duration
	State  State
}

// SlotArbiter representa o barramento com capacidade finita e sentido único.
//
// Acquire bloqueia até a tarefa poder ser admitida ou até o ctx encerrar.
// Cada Acquire bem sucedido deve ser seguido de exatamente um Release.
type SlotArbiter interface {
	Acquire(ctx context.Context, task Task) error
	Release()
}

// Transferer executa o trabalho da tarefa enquanto ela segura a vaga.
type Transferer interface {
	Transfer(ctx context.Context, task Task) error
}
