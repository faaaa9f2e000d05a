package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/medstargenx/accounts/internal/api/metrics"
	"github.com/medstargenx/accounts/internal/core/domain"
)

type recordingProcessor struct {
	mu      sync.Mutex
	seen    map[string][]domain.Event
	total   int
	failFor string
}

func (p *recordingProcessor) Process(_ context.Context, rec domain.ActivityRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total++
	if rec.AccountID == p.failFor {
		return errors.New("store down")
	}
	if p.seen == nil {
		p.seen = make(map[string][]domain.Event)
	}
	p.seen[rec.AccountID] = append(p.seen[rec.AccountID], rec.Event)
	return nil
}

func (p *recordingProcessor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}

func TestDispatcher_PreservesPerAccountOrder(t *testing.T) {
	proc := &recordingProcessor{}
	d := NewDispatcher(3, proc, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	order := []domain.Event{domain.ActivityRegistered, domain.EventApprove, domain.ActivityLogin, domain.EventDeactivate}
	for i := 0; i < 5; i++ {
		for _, ev := range order {
			d.Record(domain.ActivityRecord{AccountID: fmt.Sprintf("acc-%d", i), Event: ev, At: time.Now()})
		}
	}

	require.Eventually(t, func() bool { return proc.count() == 5*len(order) }, 2*time.Second, 5*time.Millisecond)
	cancel()
	d.Wait()

	for i := 0; i < 5; i++ {
		require.Equal(t, order, proc.seen[fmt.Sprintf("acc-%d", i)])
	}
}

func TestDispatcher_ProcessingErrorDoesNotStopWorker(t *testing.T) {
	proc := &recordingProcessor{failFor: "bad"}
	d := NewDispatcher(1, proc, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	d.Record(domain.ActivityRecord{AccountID: "bad", Event: domain.ActivityLogin})
	d.Record(domain.ActivityRecord{AccountID: "good", Event: domain.ActivityLogin})

	require.Eventually(t, func() bool { return proc.count() == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestDispatcher_RecordNeverBlocks(t *testing.T) {
	proc := &recordingProcessor{}
	d := NewDispatcher(1, proc, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		for i := 0; i < channelBuffer+10; i++ {
			d.Record(domain.ActivityRecord{AccountID: "acc-1", Event: domain.ActivityLogin})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on a full queue")
	}
	require.Len(t, d.workers[0], channelBuffer)
}

func TestDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewDispatcher(0, &recordingProcessor{}, zerolog.Nop())
	require.Len(t, d.workers, defaultWorkers)

	idx := d.shardIndex("acc-42")
	for i := 0; i < 10; i++ {
		require.Equal(t, idx, d.shardIndex("acc-42"))
	}
	require.GreaterOrEqual(t, idx, 0)
	require.Less(t, idx, defaultWorkers)
}

func TestDispatcher_DrainsBufferedRecordsOnStop(t *testing.T) {
	proc := &recordingProcessor{}
	d := NewDispatcher(2, proc, zerolog.Nop())

	for i := 0; i < 3; i++ {
		d.Record(domain.ActivityRecord{AccountID: fmt.Sprintf("acc-%d", i), Event: domain.ActivityLogin})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Start(ctx)
	d.Wait()

	require.Equal(t, 3, proc.count())
}

// depthProcessor records the lowest queue-depth reading seen by a worker.
type depthProcessor struct {
	mu       sync.Mutex
	gaugeFor string
	min      float64
	total    int
}

func (p *depthProcessor) Process(_ context.Context, _ domain.ActivityRecord) error {
	v := metricValue(metrics.ActivityQueueDepth.WithLabelValues(p.gaugeFor))
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.total == 0 || v < p.min {
		p.min = v
	}
	p.total++
	return nil
}

func (p *depthProcessor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}

func metricValue(m prometheus.Metric) float64 {
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		panic(err)
	}
	if g := out.GetGauge(); g != nil {
		return g.GetValue()
	}
	return out.GetCounter().GetValue()
}

func TestDispatcher_QueueDepthTracksBufferedRecords(t *testing.T) {
	gauge := metrics.ActivityQueueDepth.WithLabelValues("0")
	before := metricValue(gauge)
	dropped := metricValue(metrics.ActivityDroppedTotal)

	proc := &depthProcessor{gaugeFor: "0"}
	d := NewDispatcher(1, proc, zerolog.Nop())
	for i := 0; i < channelBuffer+5; i++ {
		d.Record(domain.ActivityRecord{AccountID: "acc-1", Event: domain.ActivityLogin})
	}

	require.Equal(t, before+channelBuffer, metricValue(gauge), "dropped records are not counted as queued")
	require.Equal(t, dropped+5, metricValue(metrics.ActivityDroppedTotal))

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	require.Eventually(t, func() bool { return proc.count() == channelBuffer }, 2*time.Second, 5*time.Millisecond)

	d.Record(domain.ActivityRecord{AccountID: "acc-1", Event: domain.ActivityLogin})
	require.Eventually(t, func() bool { return proc.count() == channelBuffer+1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	d.Wait()

	require.Equal(t, before, metricValue(gauge))
	require.GreaterOrEqual(t, proc.min, before)
}
