package application

import (
	"context"
	"time"

	"bus-scheduler/bus/domain"
)

// Runner é o corpo de uma tarefa: pega a vaga, transfere e libera.
type Runner struct {
	Service  ArbiterService
	Transfer domain.Transferer
}

// Result é o desfecho de uma tarefa. Err vazio significa sucesso.
type Result struct {
	Task     domain.Task     `json:"task"`
	Admitted bool            `json:"admitted"`
	Waited   domain.Duration `json:"waited"`
	Held     domain.Duration `json:"held"`
	Err      string          `json:"error,omitempty"`

	err error
}

// Cause retorna o erro da aquisição ou da transferência (nil em caso de sucesso).
func (r Result) Cause() error { return r.err }

func (r Runner) Run(ctx context.Context, task domain.Task) Result {
	res := Result{Task: task}

	start := time.Now()
	release, err := r.Service.AcquireErr(ctx, task)
	res.Waited = domain.Duration(time.Since(start))
	if err != nil {
		return res.fail(err)
	}
	res.Admitted = true

	held := time.Now()
	defer release()
	if r.Transfer != nil {
		err = r.Transfer.Transfer(ctx, task)
	}
	res.Held = domain.Duration(time.Since(held))
	if err != nil {
		return res.fail(err)
	}
	return res
}

func (r Result) fail(err error) Result {
	r.err = err
	r.Err = err.Error()
	return r
}
