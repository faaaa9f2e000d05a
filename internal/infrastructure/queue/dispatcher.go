package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/medstargenx/accounts/internal/api/metrics"
	"github.com/medstargenx/accounts/internal/core/domain"
	"github.com/medstargenx/accounts/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	processTimeout = 5 * time.Second
)

// Dispatcher routes activity records to a fixed set of workers using
// consistent hashing on the account id, so the records of one account are
// persisted in the order they were emitted.
type Dispatcher struct {
	workers   []chan domain.ActivityRecord
	processor ports.ActivityProcessor
	log       zerolog.Logger
	wg        sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, processor ports.ActivityProcessor, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:   make([]chan domain.ActivityRecord, numWorkers),
		processor: processor,
		log:       log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.ActivityRecord, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. When ctx is cancelled each worker
// drains its buffered records and stops; Wait blocks until they have.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Record hands a record to the worker responsible for its account. It never
// blocks the request path: when the worker channel is full the record is
// dropped and counted.
func (d *Dispatcher) Record(rec domain.ActivityRecord) {
	idx := d.shardIndex(rec.AccountID)
	depth := metrics.ActivityQueueDepth.WithLabelValues(strconv.Itoa(idx))
	// Counted before the send so a fast worker cannot take the gauge below zero.
	depth.Inc()
	select {
	case d.workers[idx] <- rec:
	default:
		depth.Dec()
		metrics.ActivityDroppedTotal.Inc()
		d.log.Warn().
			Str("account_id", rec.AccountID).
			Str("event", string(rec.Event)).
			Int("worker_id", idx).
			Msg("activity queue full, record dropped")
	}
}

// shardIndex maps an account id deterministically to a worker index.
func (d *Dispatcher) shardIndex(accountID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(accountID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.ActivityRecord) {
	defer d.wg.Done()
	depth := metrics.ActivityQueueDepth.WithLabelValues(strconv.Itoa(id))

	for {
		select {
		case <-ctx.Done():
			d.drain(id, ch, depth)
			return
		case rec := <-ch:
			depth.Dec()
			d.process(ctx, id, rec)
		}
	}
}

// drain persists whatever is still buffered once the dispatcher is stopped.
func (d *Dispatcher) drain(id int, ch <-chan domain.ActivityRecord, depth prometheus.Gauge) {
	for {
		select {
		case rec := <-ch:
			depth.Dec()
			d.process(context.Background(), id, rec)
		default:
			return
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, id int, rec domain.ActivityRecord) {
	start := time.Now()
	pctx, cancel := context.WithTimeout(ctx, processTimeout)
	defer cancel()

	result := "ok"
	if err := d.processor.Process(pctx, rec); err != nil {
		result = "error"
		d.log.Error().Err(err).
			Str("account_id", rec.AccountID).
			Str("event", string(rec.Event)).
			Int("worker_id", id).
			Msg("activity processing failed")
	}
	metrics.ActivityProcessingDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
}

var _ ports.ActivityRecorder = (*Dispatcher)(nil)
