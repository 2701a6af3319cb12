package metrics

import "github.com/prometheus/client_golang/prometheus"

// Tracker reúne os contadores da API e da captura. Os métodos têm a assinatura
// func(string) para serem ligados direto nos hooks OnX dos componentes.
type Tracker struct {
	Captures          *prometheus.CounterVec
	ProviderRequests  *prometheus.CounterVec
	ProviderRetries   *prometheus.CounterVec
	ProviderThrottled *prometheus.CounterVec
	RetriesQueued     prometheus.Counter
}

func NewTracker(reg prometheus.Registerer) *Tracker {
	t := &Tracker{
		Captures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prop_capture_total", Help: "capturas de estatísticas por resultado",
		}, []string{"outcome"}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stats_provider_requests_total", Help: "chamadas ao provedor por endpoint",
		}, []string{"endpoint"}),
		ProviderRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stats_provider_retries_total", Help: "novas tentativas após falha retryable",
		}, []string{"endpoint"}),
		ProviderThrottled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stats_provider_throttled_total", Help: "respostas 429 do provedor",
		}, []string{"endpoint"}),
		RetriesQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prop_capture_retries_queued_total", Help: "capturas enviadas para a fila de recaptura",
		}),
	}
	reg.MustRegister(t.Captures, t.ProviderRequests, t.ProviderRetries, t.ProviderThrottled, t.RetriesQueued)
	return t
}

func (t *Tracker) Capture(outcome string) { t.Captures.WithLabelValues(outcome).Inc() }
func (t *Tracker) ProviderRequest(endpoint string) { t.ProviderRequests.WithLabelValues(endpoint).Inc() }
func (t *Tracker) ProviderRetry(endpoint string) { t.ProviderRetries.WithLabelValues(endpoint).Inc() }
func (t *Tracker) ProviderThrottle(endpoint string) { t.ProviderThrottled.WithLabelValues(endpoint).Inc() }
func (t *Tracker) RetryQueued() { t.RetriesQueued.Inc() }

// Worker são os contadores do capture-retry-worker
type Worker struct {
	Consumed prometheus.Counter
	Results  *prometheus.CounterVec
	Errors   *prometheus.CounterVec
}

func NewWorker(reg prometheus.Registerer) *Worker {
	w := &Worker{
		Consumed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "capture_worker_messages_consumed_total", Help: "mensagens consumidas",
		}),
		Results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "capture_worker_results_total", Help: "resultado de cada mensagem (captured, requeued, dead_lettered, dropped)",
		}, []string{"result"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "capture_worker_errors_total", Help: "erros por estágio",
		}, []string{"stage"}),
	}
	reg.MustRegister(w.Consumed, w.Results, w.Errors)
	return w
}

func (w *Worker) OnConsumed() { w.Consumed.Inc() }
func (w *Worker) OnResult(r string) { w.Results.WithLabelValues(r).Inc() }
func (w *Worker) OnError(stage string) { w.Errors.WithLabelValues(stage).Inc() }
