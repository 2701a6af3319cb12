package statsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/radieske/prop-miss-tracker/internal/betting"
)

// RetryPolicy define quantas vezes e com qual espera uma chamada throttled é repetida
type RetryPolicy struct {
	MaxAttempts int           // total de tentativas, incluindo a primeira
	Backoff     time.Duration // espera antes da 2ª tentativa; dobra a cada nova tentativa
	MaxBackoff  time.Duration
}

// DefaultRetryPolicy: 3 tentativas, 1s -> 2s
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Backoff: time.Second, MaxBackoff: 8 * time.Second}

// Delay retorna a espera depois da tentativa n (1-based)
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := p.Backoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	return d
}

// ErrRejected marca respostas que não mudam numa nova tentativa: 4xx (exceto 429),
// corpo que não decodifica ou resposta sem o result set esperado
var ErrRejected = errors.New("stats provider rejected request")

// Pacer espaça chamadas entre processos; roda antes do limiter local
type Pacer interface {
	Wait(ctx context.Context) error
}

// Options configura o Client
type Options struct {
	BaseURL     string
	Timeout     time.Duration
	MinInterval time.Duration // intervalo mínimo entre chamadas (~600ms para stats.nba.com)
	Retry       RetryPolicy
	Breaker     gobreaker.Settings // base para o breaker de cada endpoint
	Pacer       Pacer
}

// Client fala com a API de estatísticas (formato resultSets do stats.nba.com).
// O limiter é compartilhado por todas as capturas que usam o mesmo Client;
// cada endpoint tem seu próprio breaker.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	pacer   Pacer
	retry   RetryPolicy
	log     *zap.Logger
	now     func() time.Time

	settings gobreaker.Settings
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker

	OnRequest  func(endpoint string) // métricas
	OnRetry    func(endpoint string) // métricas
	OnThrottle func(endpoint string) // métricas
}

func New(log *zap.Logger, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = DefaultRetryPolicy
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if opts.MinInterval > 0 {
		lim = rate.NewLimiter(rate.Every(opts.MinInterval), 1)
	}
	if opts.Breaker.Name == "" {
		opts.Breaker.Name = "stats-provider"
	}
	if opts.Breaker.ReadyToTrip == nil {
		opts.Breaker.ReadyToTrip = func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		}
	}
	if opts.Breaker.IsSuccessful == nil {
		// 4xx definitivo e cancelamento do chamador não contam como falha
		opts.Breaker.IsSuccessful = func(err error) bool {
			return err == nil || errors.Is(err, ErrRejected) || errors.Is(err, context.Canceled)
		}
	}
	opts.Breaker.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn("circuit breaker state changed",
			zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
	}
	return &Client{
		baseURL:  opts.BaseURL,
		http:     &http.Client{Timeout: opts.Timeout},
		limiter:  lim,
		pacer:    opts.Pacer,
		retry:    opts.Retry,
		log:      log,
		now:      time.Now,
		settings: opts.Breaker,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// breakerFor devolve o breaker do endpoint, criando na primeira chamada
func (c *Client) breakerFor(endpoint string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	cb, ok := c.breakers[endpoint]
	if !ok {
		s := c.settings
		s.Name = c.settings.Name + ":" + endpoint
		cb = gobreaker.NewCircuitBreaker(s)
		c.breakers[endpoint] = cb
	}
	return cb
}

// BreakerState expõe o estado do breaker de um endpoint
func (c *Client) BreakerState(endpoint string) gobreaker.State {
	return c.breakerFor(endpoint).State()
}

// statusError é uma resposta HTTP não-2xx do provedor
type statusError struct {
	Endpoint string
	Code     int
}

func (e *statusError) Error() string { return fmt.Sprintf("stats %s: http %d", e.Endpoint, e.Code) }

func (e *statusError) Is(target error) bool {
	return target == ErrRejected && e.Code >= 400 && e.Code < 500 && e.Code != http.StatusTooManyRequests
}

// retryable: throttling, 5xx e falhas de rede/timeout
func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// get executa uma chamada respeitando o intervalo mínimo, o breaker e a política de retry
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (*response, error) {
	cb := c.breakerFor(endpoint)
	for attempt := 1; ; attempt++ {
		if err := c.wait(ctx); err != nil {
			return nil, interrupted(ctx, endpoint, attempt-1, err)
		}
		if c.OnRequest != nil {
			c.OnRequest(endpoint)
		}

		out, err := cb.Execute(func() (interface{}, error) {
			return c.fetch(ctx, endpoint, params)
		})
		if err == nil {
			return out.(*response), nil
		}
		if ctx.Err() != nil {
			return nil, interrupted(ctx, endpoint, attempt, ctx.Err())
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &betting.ProviderUnavailableError{Endpoint: endpoint, Attempts: attempt, Err: err}
		}
		if !retryable(err) {
			return nil, err
		}

		var se *statusError
		if errors.As(err, &se) && se.Code == http.StatusTooManyRequests && c.OnThrottle != nil {
			c.OnThrottle(endpoint)
		}
		if attempt >= c.retry.MaxAttempts {
			return nil, &betting.ProviderUnavailableError{Endpoint: endpoint, Attempts: attempt, Err: err}
		}

		wait := c.retry.Delay(attempt)
		c.log.Warn("stats request failed, retrying",
			zap.String("endpoint", endpoint),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		if c.OnRetry != nil {
			c.OnRetry(endpoint)
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, interrupted(ctx, endpoint, attempt, ctx.Err())
		case <-t.C:
		}
	}
}

func (c *Client) wait(ctx context.Context) error {
	if c.pacer != nil {
		if err := c.pacer.Wait(ctx); err != nil {
			return err
		}
	}
	return c.limiter.Wait(ctx)
}

// interrupted: cancelamento do chamador volta cru; prazo estourado no meio das
// tentativas vira ProviderUnavailableError para a captura ir para a fila
func interrupted(ctx context.Context, endpoint string, attempts int, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	return &betting.ProviderUnavailableError{Endpoint: endpoint, Attempts: attempts, Err: err}
}

func (c *Client) fetch(ctx context.Context, endpoint string, params url.Values) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	// o stats.nba.com recusa requisições sem os cabeçalhos de navegador
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	req.Header.Set("Referer", "https://www.nba.com/")
	req.Header.Set("Origin", "https://www.nba.com")
	req.Header.Set("x-nba-stats-origin", "stats")
	req.Header.Set("x-nba-stats-token", "true")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return nil, &statusError{Endpoint: endpoint, Code: res.StatusCode}
	}

	var out response
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		var ne net.Error
		if errors.As(err, &ne) {
			return nil, err
		}
		return nil, fmt.Errorf("decode %s: %w: %w", endpoint, ErrRejected, err)
	}
	return &out, nil
}
