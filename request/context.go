package request

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-campaigns/campaign"
	"github.com/saiset-co/sai-campaigns/logger"
	"github.com/saiset-co/sai-campaigns/transient"
	"github.com/saiset-co/sai-campaigns/types"
	"github.com/saiset-co/sai-campaigns/utils"
)

const (
	CodeInvalidReferer = "invalid_referer"
	CodeInternalError  = "internal_error"

	debugField = "debug"
)

// Outcome is the single terminal result of a request.
type Outcome struct {
	Status int
	Body   []byte
}

func (o Outcome) Success() bool {
	return o.Status == http.StatusOK
}

type Dependencies struct {
	Store   campaign.TransientStore
	Trust   TrustChecker
	Logger  types.Logger
	Metrics types.MetricsManager
	Debug   bool
	Clock   func() time.Time
}

type Info struct {
	Referer string
	Host    string
}

// Context is owned by one request. It accumulates a response payload and
// concludes exactly once through Respond or Error; after that the payload is
// frozen and the repository is no longer handed out.
type Context struct {
	deps     Dependencies
	counters *transient.Counters
	payload  map[string]interface{}
	repo     *campaign.Repository
	outcome  *Outcome
}

// New evaluates the trust decision before anything else. An untrusted
// request is concluded with invalid_referer before any store is touched.
func New(deps Dependencies, info Info) *Context {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}

	c := &Context{
		deps:     deps,
		counters: transient.NewCounters(deps.Clock()),
		payload:  make(map[string]interface{}),
	}

	if deps.Trust == nil || !deps.Trust.Trusted(info.Referer, info.Host) {
		c.Error(CodeInvalidReferer)
		return c
	}

	c.repo = campaign.NewRepository(deps.Store, c.counters)
	return c
}

func (c *Context) Concluded() bool {
	return c.outcome != nil
}

// Campaigns returns the repository bound to this request's counters.
func (c *Context) Campaigns() (*campaign.Repository, error) {
	if c.Concluded() {
		return nil, types.ErrRequestConcluded
	}
	return c.repo, nil
}

func (c *Context) Set(key string, value interface{}) error {
	if c.Concluded() {
		return types.ErrRequestConcluded
	}
	c.payload[key] = value
	return nil
}

// Payload returns a shallow copy of the accumulated payload.
func (c *Context) Payload() map[string]interface{} {
	out := make(map[string]interface{}, len(c.payload))
	for k, v := range c.payload {
		out[k] = v
	}
	return out
}

func (c *Context) Counters() transient.Counters {
	return c.counters.Snapshot()
}

func (c *Context) Outcome() (Outcome, bool) {
	if c.outcome == nil {
		return Outcome{}, false
	}
	return *c.outcome, true
}

// Respond concludes with 200 and the payload, plus the counters under "debug"
// when debug mode is on. Once concluded, it returns the earlier outcome.
func (c *Context) Respond() Outcome {
	if c.outcome != nil {
		return *c.outcome
	}

	c.counters.Finish(c.deps.Clock())

	body := c.Payload()
	if c.deps.Debug {
		body[debugField] = c.counters.Snapshot()
	}

	data, err := utils.Marshal(body)
	if err != nil {
		c.deps.Logger.ErrorWithErrStack("Failed to serialize response payload",
			types.Errorf(types.ErrSerializationFailed, "%w", err))
		return c.conclude(errorOutcome(CodeInternalError))
	}

	return c.conclude(Outcome{Status: http.StatusOK, Body: data})
}

// Error concludes with 400 and {"error": code}. Once concluded, it returns
// the earlier outcome.
func (c *Context) Error(code string) Outcome {
	if c.outcome != nil {
		return *c.outcome
	}

	c.counters.Finish(c.deps.Clock())
	return c.conclude(errorOutcome(code))
}

func (c *Context) conclude(outcome Outcome) Outcome {
	c.outcome = &outcome
	c.recordMetrics(outcome)
	return outcome
}

func (c *Context) recordMetrics(outcome Outcome) {
	if c.deps.Metrics == nil {
		return
	}

	result := "success"
	if !outcome.Success() {
		result = "error"
	}
	c.deps.Metrics.Counter("requests_concluded_total", map[string]string{"result": result}).Inc()

	tally := map[string]int{
		"read_query_count":       c.counters.ReadQueryCount,
		"write_query_count":      c.counters.WriteQueryCount,
		"cache_count":            c.counters.CacheCount,
		"read_empty_transients":  c.counters.ReadEmptyTransients,
		"write_empty_transients": c.counters.WriteEmptyTransients,
	}
	for name, value := range tally {
		if value > 0 {
			c.deps.Metrics.Counter("transient_events_total", map[string]string{"counter": name}).Add(float64(value))
		}
	}

	c.deps.Metrics.Histogram("request_duration_seconds",
		[]float64{0.001, 0.005, 0.025, 0.1, 0.5, 2},
		map[string]string{"result": result},
	).Observe(c.counters.Duration)

	if !outcome.Success() {
		c.deps.Logger.Debug("Request concluded with error", zap.ByteString("body", outcome.Body))
	}
}

func errorOutcome(code string) Outcome {
	data, err := utils.Marshal(map[string]string{"error": code})
	if err != nil {
		data = []byte(`{"error":"` + CodeInternalError + `"}`)
	}
	return Outcome{Status: http.StatusBadRequest, Body: data}
}
