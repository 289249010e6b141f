package cda

import (
	"context"
	"github.com/shimmeringbee/cda/service"
	"github.com/shimmeringbee/logwrap"
	"math/rand"
	"sync"
	"time"
)

const pollerJitter = 1000 * time.Millisecond
const workerMaximumJobDuration = 15 * time.Second

// RecoveryInterval is how often a recovery-only job checks an offline device
// in push modes.
const RecoveryInterval = time.Minute

type poller struct {
	mode    Mode
	logger  logwrap.Logger
	metrics *Metrics
	jitter  time.Duration

	started   chan struct{}
	startOnce sync.Once
	done      chan struct{}
	stopOnce  sync.Once

	randLock *sync.Mutex
	rand     *rand.Rand
}

type pollerWork struct {
	gateway  *DeviceGateway
	interval time.Duration
	recovery bool
	fn       func(context.Context)
}

func newPoller(mode Mode, logger logwrap.Logger, metrics *Metrics) *poller {
	return &poller{
		mode:     mode,
		logger:   logger,
		metrics:  metrics,
		jitter:   pollerJitter,
		started:  make(chan struct{}),
		done:     make(chan struct{}),
		randLock: &sync.Mutex{},
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *poller) Start() {
	p.startOnce.Do(func() {
		close(p.started)
	})
}

func (p *poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
	})
}

// Schedule registers a periodic characteristic refresh against a device. It
// is ignored in push modes, where state arrives by event.
func (p *poller) Schedule(g *DeviceGateway, interval time.Duration, fn func(context.Context)) bool {
	if p.mode.Push() || interval <= 0 {
		return false
	}

	p.add(&pollerWork{gateway: g, interval: interval, fn: fn})
	return true
}

// ScheduleRecovery registers a job that only attempts recovery of an offline
// device, used where no characteristic polls exist to drive it.
func (p *poller) ScheduleRecovery(g *DeviceGateway, interval time.Duration) {
	p.add(&pollerWork{gateway: g, interval: interval, recovery: true})
}

func (p *poller) delay(interval time.Duration) time.Duration {
	p.randLock.Lock()
	defer p.randLock.Unlock()

	return interval + time.Duration(p.rand.Int63n(int64(p.jitter)+1))
}

// add arms a timer for the job's next tick. Each tick runs on its own timer
// goroutine, so a device with a hung request only delays its own jobs.
func (p *poller) add(work *pollerWork) {
	time.AfterFunc(p.delay(work.interval), func() {
		select {
		case <-p.started:
		case <-p.done:
			return
		}

		select {
		case <-p.done:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), workerMaximumJobDuration)
		p.run(ctx, work)
		cancel()

		select {
		case <-p.done:
		default:
			if !work.gateway.Removed() {
				p.add(work)
			}
		}
	})
}

func (p *poller) run(ctx context.Context, work *pollerWork) {
	g := work.gateway

	if g.Removed() {
		return
	}

	if !g.IsOnline() {
		p.metrics.pollTick("recovery")
		g.Recover(ctx)
		return
	}

	if work.recovery {
		return
	}

	if g.CommandSettling(CommandSettlingWindow) {
		p.metrics.pollTick("skipped")
		return
	}

	p.metrics.pollTick("polled")
	work.fn(ctx)
}

// devicePoller binds the poller to one device, letting services register
// their polls without knowing about the gateway.
type devicePoller struct {
	poller  *poller
	gateway *DeviceGateway
	sink    service.Sink
	logger  logwrap.Logger

	scheduled int
}

func (d *devicePoller) Add(s service.Service, poll service.Poll) {
	if d.poller.Schedule(d.gateway, poll.Interval, func(ctx context.Context) {
		d.refresh(ctx, s, poll.Characteristic, poll.Get)

		if poll.PairedGet != nil {
			d.refresh(ctx, s, poll.PairedCharacteristic, poll.PairedGet)
		}
	}) {
		d.scheduled++
	} else {
		d.logger.LogDebug(context.Background(), "Characteristic poll not scheduled.", logwrap.Datum("Characteristic", poll.Characteristic), logwrap.Datum("Mode", d.poller.mode.String()))
	}
}

func (d *devicePoller) refresh(ctx context.Context, s service.Service, characteristic string, get service.Getter) {
	v, err := get(ctx)
	if err != nil {
		d.logger.LogWarn(ctx, "Characteristic poll failed.", logwrap.Datum("Characteristic", characteristic), logwrap.Err(err))
		return
	}

	d.sink.Update(ctx, s, characteristic, v)
}

var _ service.Poller = (*devicePoller)(nil)
