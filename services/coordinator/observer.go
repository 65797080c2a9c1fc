package coordinator

import (
	"sync"

	"github.com/sourcegraph/conc"

	"scaletrack/models"
)

// Observer receives the full selected-user measurement list after every
// mutation. Active is consulted before each delivery; an observer whose
// backing UI context has gone away is skipped, not unregistered.
type Observer interface {
	OnMeasurementsChanged(list []models.Measurement)
	Active() bool
}

type deliverJob struct {
	target Observer // nil means every registered observer
	list   []models.Measurement
}

// registry is the ordered observer set plus the single delivery worker.
// One worker keeps deliveries in submission order while decoupling slow
// observers from the mutating caller.
type registry struct {
	mu        sync.Mutex
	observers []Observer

	jobs chan deliverJob
	wg   conc.WaitGroup

	closeOnce sync.Once
}

func newRegistry() *registry {
	r := &registry{jobs: make(chan deliverJob, 64)}
	r.wg.Go(r.run)
	return r
}

func (r *registry) run() {
	for job := range r.jobs {
		if job.target != nil {
			if job.target.Active() {
				job.target.OnMeasurementsChanged(job.list)
			}
			continue
		}

		r.mu.Lock()
		observers := append([]Observer(nil), r.observers...)
		r.mu.Unlock()

		for _, o := range observers {
			if o.Active() {
				o.OnMeasurementsChanged(job.list)
			}
		}
	}
}

// register appends the observer and queues a one-shot delivery of the
// current list to it alone.
func (r *registry) register(o Observer, snapshot []models.Measurement) {
	r.mu.Lock()
	r.observers = append(r.observers, o)
	r.mu.Unlock()
	r.jobs <- deliverJob{target: o, list: snapshot}
}

// broadcast queues a delivery of the list to every observer.
func (r *registry) broadcast(list []models.Measurement) {
	r.jobs <- deliverJob{list: list}
}

func (r *registry) close() {
	r.closeOnce.Do(func() {
		close(r.jobs)
		r.wg.Wait()
	})
}
