package bus

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"bus-scheduler/bus/application"
	"bus-scheduler/bus/domain"
	"bus-scheduler/bus/infra"

	"gopkg.in/yaml.v3"
)

const (
	defaultMaxTasks     = 10_000
	maxPlanBodyBytes    = 1 << 20
	headerBatchID       = "X-Batch-ID"
	headerBatchElapsed  = "X-Batch-Elapsed-Ms"
	headerPeakOccupancy = "X-Bus-Peak-Occupancy"
)

// BatchRunner é o que o Handler precisa do agendador.
type BatchRunner interface {
	Run(ctx context.Context, plan domain.Plan) (application.Report, error)
}

// StatsSnapshotter expõe os contadores atuais (ex: infra.MemoryStatsStore).
type StatsSnapshotter interface {
	Snapshot() infra.StatsSnapshot
}

type Options struct {
	Scheduler BatchRunner
	// Stats é opcional; sem ele GET /stats responde 404.
	Stats StatsSnapshotter
	// DefaultPlan é a base sobre a qual o corpo da requisição é decodificado.
	DefaultPlan domain.Plan
	// MaxConcurrentBatches <= 0 não limita.
	MaxConcurrentBatches int
	// MaxTasks limita o total de tarefas por lote. 0 usa 10000.
	MaxTasks int
	Logger   *slog.Logger
}

// Handler expõe:
//
//	POST /batches  roda um lote e responde o Report
//	GET  /plan     plano padrão
//	GET  /stats    contadores de admissão
//	GET  /healthz
func Handler(opts Options) http.Handler {
	if opts.MaxTasks <= 0 {
		opts.MaxTasks = defaultMaxTasks
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.DefaultPlan.Capacity == 0 {
		opts.DefaultPlan = domain.DefaultPlan()
	}

	var slots chan struct{}
	if opts.MaxConcurrentBatches > 0 {
		slots = make(chan struct{}, opts.MaxConcurrentBatches)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /batches", func(w http.ResponseWriter, r *http.Request) {
		if slots != nil {
			select {
			case slots <- struct{}{}:
				defer func() { <-slots }()
			default:
				writeError(w, http.StatusServiceUnavailable, errors.New("too many concurrent batches"))
				return
			}
		}

		plan, err := decodePlan(w, r, opts.DefaultPlan)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if n := plan.Total(); n > opts.MaxTasks {
			writeError(w, http.StatusBadRequest, errors.New("plan exceeds max tasks per batch"))
			return
		}

		rep, err := opts.Scheduler.Run(r.Context(), plan)
		switch {
		case errors.Is(err, domain.ErrInvalidPlan):
			writeError(w, http.StatusBadRequest, err)
			return
		case err != nil:
			opts.Logger.Error("batch failed", "err", err)
			writeError(w, http.StatusInternalServerError, err)
			return
		}

		if r.URL.Query().Get("results") == "false" {
			rep.Results = nil
		}
		w.Header().Set(headerBatchID, rep.BatchID)
		w.Header().Set(headerBatchElapsed, formatMillis(rep.Elapsed.Std()))
		w.Header().Set(headerPeakOccupancy, formatInt(rep.PeakOccupancy))
		writeJSON(w, http.StatusOK, rep)
	})
	mux.HandleFunc("GET /plan", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, opts.DefaultPlan)
	})
	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		if opts.Stats == nil {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, http.StatusOK, opts.Stats.Snapshot())
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok\n")
	})
	return mux
}

// decodePlan aplica o corpo (JSON ou YAML) sobre base. Corpo vazio usa base.
func decodePlan(w http.ResponseWriter, r *http.Request, base domain.Plan) (domain.Plan, error) {
	plan := base
	body := http.MaxBytesReader(w, r.Body, maxPlanBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var err error
	switch mediaType {
	case "application/yaml", "application/x-yaml", "text/yaml":
		dec := yaml.NewDecoder(body)
		dec.KnownFields(true)
		err = dec.Decode(&plan)
	default:
		dec := json.NewDecoder(body)
		dec.DisallowUnknownFields()
		err = dec.Decode(&plan)
	}
	if errors.Is(err, io.EOF) {
		return base, nil
	}
	if err != nil {
		return domain.Plan{}, err
	}
	return plan, plan.Validate()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
