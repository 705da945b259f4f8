package infra

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bus-scheduler/bus/domain"

	"github.com/eapache/queue"
)

// Arbiter é o monitor do barramento: um semáforo limitado de sentido único,
// cujo sentido só troca com o barramento vazio, mais uma barreira de prioridade
// por direção (tarefas normais de D esperam enquanto houver alta prioridade de D
// pendente).
//
// Todo o estado (occupied, direction, pendingHigh) muda sob um único mutex.
// Cada tarefa que espera tem seu próprio canal; depois de qualquer mudança de
// estado o dispatch acorda somente quem pode ser admitido agora, entregando a
// vaga já contabilizada (handoff direto, sem broadcast e sem polling).
type Arbiter struct {
	mu sync.Mutex

	configured  bool
	capacity    int
	occupied    int
	direction   domain.Direction
	last        domain.Direction
	pendingHigh [2]int

	// waiters[direção][prioridade], FIFO por classe.
	waiters [2][2]*queue.Queue

	observer func(domain.Admission)
	now      func() time.Time
}

type waiter struct {
	task  domain.Task
	since time.Time
	ready chan struct{}

	granted   bool
	abandoned bool
}

type ArbiterOption func(*Arbiter)

// WithObserver registra fn para cada admissão. fn roda com o lock do Arbiter
// adquirido: deve ser rápida e não pode chamar o Arbiter.
func WithObserver(fn func(domain.Admission)) ArbiterOption {
	return func(a *Arbiter) { a.observer = fn }
}

func WithClock(now func() time.Time) ArbiterOption {
	return func(a *Arbiter) { a.now = now }
}

// NewArbiter cria e configura um Arbiter com `capacity` vagas e as quantidades
// fixas de tarefas de alta prioridade por direção.
func NewArbiter(capacity, highSend, highReceive int, opts ...ArbiterOption) (*Arbiter, error) {
	a := &Arbiter{}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.Configure(capacity, highSend, highReceive); err != nil {
		return nil, err
	}
	return a, nil
}

// Configure é a inicialização única, antes de qualquer tarefa rodar.
// Uma direção sem tarefas de alta prioridade já começa com a barreira aberta.
func (a *Arbiter) Configure(capacity, highSend, highReceive int) error {
	if capacity <= 0 {
		return fmt.Errorf("%w, got %d", domain.ErrInvalidCapacity, capacity)
	}
	if highSend < 0 || highReceive < 0 {
		return fmt.Errorf("%w, got send=%d receive=%d", domain.ErrInvalidHighCount, highSend, highReceive)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.configured {
		return domain.ErrAlreadyConfigured
	}
	a.capacity = capacity
	a.occupied = 0
	a.direction = domain.DirectionNone
	a.last = domain.DirectionNone
	a.pendingHigh[slot(domain.Send)] = highSend
	a.pendingHigh[slot(domain.Receive)] = highReceive
	for d := range a.waiters {
		for p := range a.waiters[d] {
			a.waiters[d][p] = queue.New()
		}
	}
	if a.now == nil {
		a.now = time.Now
	}
	a.configured = true
	return nil
}

// Acquire bloqueia até a tarefa ser admitida ou o ctx encerrar.
//
// Se o ctx encerrar antes da admissão nenhum estado é alterado e ctx.Err() é
// retornado. Se a admissão já tiver acontecido quando o cancelamento for
// observado, ela vale e Acquire retorna nil: o chamador deve chamar Release.
func (a *Arbiter) Acquire(ctx context.Context, task domain.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	if !a.configured {
		a.mu.Unlock()
		panic("bus: Acquire on unconfigured arbiter")
	}

	q := a.waitQueue(task)
	if a.head(q) == nil && a.admissible(task.Direction, task.Priority) {
		a.admit(task, 0)
		a.dispatch()
		a.mu.Unlock()
		return nil
	}

	w := &waiter{task: task, since: a.now(), ready: make(chan struct{})}
	q.Add(w)
	a.mu.Unlock()

	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
		a.mu.Lock()
		defer a.mu.Unlock()
		if w.granted {
			return nil
		}
		// removido preguiçosamente por head()
		w.abandoned = true
		return ctx.Err()
	}
}

// TryAcquire admite a tarefa somente se isso não exigir espera.
func (a *Arbiter) TryAcquire(task domain.Task) bool {
	if task.Validate() != nil {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.mustBeConfigured("TryAcquire")

	if a.head(a.waitQueue(task)) != nil || !a.admissible(task.Direction, task.Priority) {
		return false
	}
	a.admit(task, 0)
	a.dispatch()
	return true
}

// Release devolve uma vaga. Nunca bloqueia.
// Chamar sem um Acquire correspondente é violação de contrato e gera panic.
func (a *Arbiter) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mustBeConfigured("Release")

	if a.occupied == 0 {
		panic("bus: Release without a held slot")
	}
	a.occupied--
	if a.occupied == 0 {
		a.last = a.direction
		a.direction = domain.DirectionNone
	}
	a.dispatch()
}

func (a *Arbiter) Snapshot() domain.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// Waiting retorna quantas tarefas estão bloqueadas em Acquire.
func (a *Arbiter) Waiting() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := 0
	for d := range a.waiters {
		for p := range a.waiters[d] {
			q := a.waiters[d][p]
			if q == nil {
				continue
			}
			for i := 0; i < q.Length(); i++ {
				if !q.Get(i).(*waiter).abandoned {
					n++
				}
			}
		}
	}
	return n
}

// mustBeConfigured deve ser chamada com o lock adquirido e com Unlock em defer.
func (a *Arbiter) mustBeConfigured(op string) {
	if !a.configured {
		panic("bus: " + op + " on unconfigured arbiter")
	}
}

func (a *Arbiter) admissible(dir domain.Direction, prio domain.Priority) bool {
	if a.occupied >= a.capacity {
		return false
	}
	if a.direction != domain.DirectionNone && a.direction != dir {
		return false
	}
	if prio == domain.Normal && a.pendingHigh[slot(dir)] > 0 {
		return false
	}
	return true
}

func (a *Arbiter) admit(task domain.Task, waited time.Duration) {
	a.occupied++
	if a.direction == domain.DirectionNone {
		a.direction = task.Direction
	}
	// tarefas de alta prioridade além das configuradas não mexem no contador
	if task.Priority == domain.High && a.pendingHigh[slot(task.Direction)] > 0 {
		a.pendingHigh[slot(task.Direction)]--
	}
	if a.observer != nil {
		a.observer(domain.Admission{Task: task, Waited: waited, State: a.snapshotLocked()})
	}
}

// dispatch entrega vagas livres aos waiters elegíveis. Ao sair nenhum waiter
// na fila pode ser admitido, o que permite ao Acquire consultar apenas a
// cabeça da própria fila.
func (a *Arbiter) dispatch() {
	for a.occupied < a.capacity {
		w := a.next()
		if w == nil {
			return
		}
		a.admit(w.task, a.now().Sub(w.since))
		w.granted = true
		close(w.ready)
	}
}

func (a *Arbiter) next() *waiter {
	dirs := a.candidates()
	for _, prio := range [...]domain.Priority{domain.High, domain.Normal} {
		for _, dir := range dirs {
			q := a.waiters[slot(dir)][prio]
			w := a.head(q)
			if w == nil || !a.admissible(dir, prio) {
				continue
			}
			q.Remove()
			return w
		}
	}
	return nil
}

// candidates retorna as direções que podem receber vaga agora. Com o
// barramento vazio a direção oposta à última usada vem primeiro.
func (a *Arbiter) candidates() []domain.Direction {
	switch {
	case a.direction != domain.DirectionNone:
		return []domain.Direction{a.direction}
	case a.last != domain.DirectionNone:
		return []domain.Direction{a.last.Opposite(), a.last}
	}
	return []domain.Direction{domain.Send, domain.Receive}
}

// head descarta waiters abandonados do início da fila.
func (a *Arbiter) head(q *queue.Queue) *waiter {
	for q.Length() > 0 {
		w := q.Peek().(*waiter)
		if !w.abandoned {
			return w
		}
		q.Remove()
	}
	return nil
}

func (a *Arbiter) waitQueue(task domain.Task) *queue.Queue {
	return a.waiters[slot(task.Direction)][task.Priority]
}

func (a *Arbiter) snapshotLocked() domain.State {
	return domain.State{
		Capacity:           a.capacity,
		Occupied:           a.occupied,
		Direction:          a.direction,
		PendingHighSend:    a.pendingHigh[slot(domain.Send)],
		PendingHighReceive: a.pendingHigh[slot(domain.Receive)],
	}
}

func slot(d domain.Direction) int { return int(d) - 1 }
