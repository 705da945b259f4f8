package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"bus-scheduler/bus/domain"

	"github.com/google/uuid"
)

// ArbiterFactory cria um barramento novo para cada lote. observer deve ser
// repassado ao Arbiter para o relatório conseguir medir ocupação e trocas de
// direção.
type ArbiterFactory func(plan domain.Plan, observer func(domain.Admission)) (domain.SlotArbiter, error)

type TransferFactory func(plan domain.Plan) domain.Transferer

// BatchScheduler dispara uma goroutine por tarefa do plano e espera todas.
type BatchScheduler struct {
	NewArbiter  ArbiterFactory
	NewTransfer TransferFactory
	Stats       domain.StatsStore
	Logger      *slog.Logger
}

type ClassReport struct {
	Tasks    int             `json:"tasks"`
	Admitted int             `json:"admitted"`
	MeanWait domain.Duration `json:"meanWait"`
	MaxWait  domain.Duration `json:"maxWait"`
}

type Report struct {
	BatchID string          `json:"batchId"`
	Plan    domain.Plan     `json:"plan"`
	Started time.Time       `json:"started"`
	Elapsed domain.Duration `json:"elapsed"`

	Completed int `json:"completed"`
	TimedOut  int `json:"timedOut"`
	Cancelled int `json:"cancelled"`
	Failed    int `json:"failed"`

	PeakOccupancy  int                    `json:"peakOccupancy"`
	DirectionFlips int                    `json:"directionFlips"`
	ByClass        map[string]ClassReport `json:"byClass"`
	// AdmissionOrder lista a classe de cada tarefa na ordem em que foi admitida.
	AdmissionOrder []string `json:"admissionOrder"`
	Results        []Result `json:"results"`
}

var ErrNoArbiterFactory = errors.New("bus: batch scheduler without arbiter factory")

// ordem de criação das tarefas: alta prioridade primeiro, send antes de receive
var batchOrder = [...]struct {
	dir  domain.Direction
	prio domain.Priority
}{
	{domain.Send, domain.High},
	{domain.Receive, domain.High},
	{domain.Send, domain.Normal},
	{domain.Receive, domain.Normal},
}

func (b BatchScheduler) Run(ctx context.Context, plan domain.Plan) (Report, error) {
	if err := plan.Validate(); err != nil {
		return Report{}, err
	}
	if b.NewArbiter == nil {
		return Report{}, ErrNoArbiterFactory
	}

	rep := Report{BatchID: uuid.NewString(), Plan: plan, Started: time.Now()}
	log := b.logger().With("batch", rep.BatchID)

	obs := &admissionLog{}
	arb, err := b.NewArbiter(plan, obs.observe)
	if err != nil {
		return Report{}, err
	}
	var transfer domain.Transferer
	if b.NewTransfer != nil {
		transfer = b.NewTransfer(plan)
	}

	runner := Runner{
		Service: ArbiterService{
			Arbiter:        arb,
			AcquireTimeout: plan.AcquireTimeout.Std(),
			Stats:          b.Stats,
			BatchID:        rep.BatchID,
			Logger:         log,
		},
		Transfer: transfer,
	}

	log.Info("batch started",
		"capacity", plan.Capacity,
		"highSend", plan.HighSend, "highReceive", plan.HighReceive,
		"normalSend", plan.NormalSend, "normalReceive", plan.NormalReceive)

	results := make([]Result, plan.Total())
	var wg sync.WaitGroup
	i := 0
	for _, kind := range batchOrder {
		for range plan.Count(kind.dir, kind.prio) {
			wg.Add(1)
			go func(i int, task domain.Task) {
				defer wg.Done()
				results[i] = runner.Run(ctx, task)
			}(i, domain.NewTask(kind.dir, kind.prio))
			i++
		}
	}
	wg.Wait()

	rep.Elapsed = domain.Duration(time.Since(rep.Started))
	rep.Results = results
	rep.summarize(obs)

	log.Info("batch finished",
		"elapsed", rep.Elapsed.Std(),
		"completed", rep.Completed, "timedOut", rep.TimedOut, "cancelled", rep.Cancelled, "failed", rep.Failed,
		"peakOccupancy", rep.PeakOccupancy, "directionFlips", rep.DirectionFlips)
	return rep, nil
}

func (b BatchScheduler) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

func (r *Report) summarize(obs *admissionLog) {
	obs.mu.Lock()
	r.PeakOccupancy = obs.peak
	r.DirectionFlips = obs.flips
	r.AdmissionOrder = obs.order
	obs.mu.Unlock()

	r.ByClass = make(map[string]ClassReport, len(batchOrder))
	waits := make(map[string]time.Duration, len(batchOrder))
	for _, kind := range batchOrder {
		if n := r.Plan.Count(kind.dir, kind.prio); n > 0 {
			r.ByClass[domain.Task{Direction: kind.dir, Priority: kind.prio}.Class()] = ClassReport{}
		}
	}

	for _, res := range r.Results {
		class := res.Task.Class()
		c := r.ByClass[class]
		c.Tasks++
		switch {
		case res.Err == "":
			r.Completed++
		case !res.Admitted && errors.Is(res.Cause(), context.DeadlineExceeded):
			r.TimedOut++
		case !res.Admitted && errors.Is(res.Cause(), context.Canceled):
			r.Cancelled++
		default:
			r.Failed++
		}
		if res.Admitted {
			c.Admitted++
			waits[class] += res.Waited.Std()
			if res.Waited > c.MaxWait {
				c.MaxWait = res.Waited
			}
		}
		r.ByClass[class] = c
	}
	for class, c := range r.ByClass {
		if c.Admitted > 0 {
			c.MeanWait = domain.Duration(waits[class] / time.Duration(c.Admitted))
			r.ByClass[class] = c
		}
	}
}

// admissionLog é o observer do Arbiter. Roda sob o lock do Arbiter, por isso
// só acumula contadores.
type admissionLog struct {
	mu    sync.Mutex
	last  domain.Direction
	peak  int
	flips int
	order []string
}

func (l *admissionLog) observe(ad domain.Admission) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ad.State.Occupied > l.peak {
		l.peak = ad.State.Occupied
	}
	if l.last != domain.DirectionNone && ad.State.Direction != l.last {
		l.flips++
	}
	l.last = ad.State.Direction
	l.order = append(l.order, ad.Task.Class())
}
