package inventory

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"
)

// SnapshotInterval is the cadence agents are expected to send reports at.
// Rate computations divide by this to turn "count observed in the window"
// into "items per second". This is the spec-mandated default; a server
// operator may override it per-deployment via internal/config.
const SnapshotInterval = 5 * time.Second

// Retention is how long the aggregator keeps snapshots before evicting
// them, regardless of whether any query window would still want them.
// This is the spec-mandated default; see SnapshotInterval.
const Retention = 30 * time.Minute

// entry is one ingested snapshot, newest-first in the Aggregator's deque.
type entry struct {
	at     time.Time
	report Report
}

// Aggregator is the process-wide InventoryAggregator: it ingests snapshot
// reports from many computers and answers per-computer windowed views. It
// outlives every individual session.
type Aggregator struct {
	mu      sync.RWMutex
	entries []entry // newest at index 0, oldest at the end
	seen    map[int64]bool

	snapshotInterval time.Duration
	retention        time.Duration

	ingest chan Report
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewAggregator creates an Aggregator; it does not start the ingest loop.
// Callers must call Run (typically in a goroutine started once at process startup,
// before the HTTP listener binds) and Close at shutdown.
//
// snapshotInterval and retention default to the package constants
// SnapshotInterval and Retention when zero, so existing callers that don't
// care about overriding them can pass 0, 0.
func NewAggregator(snapshotInterval, retention time.Duration) *Aggregator {
	if snapshotInterval <= 0 {
		snapshotInterval = SnapshotInterval
	}
	if retention <= 0 {
		retention = Retention
	}
	return &Aggregator{
		seen:             make(map[int64]bool),
		snapshotInterval: snapshotInterval,
		retention:        retention,
		ingest:           make(chan Report, 256),
		done:             make(chan struct{}),
	}
}

// Ingest queues a snapshot for processing. Non-blocking: once Close has
// been called (aggregator shut down), the report is logged and dropped
// rather than blocking the caller's reader loop, per spec.md §4.3.
func (a *Aggregator) Ingest(r Report) {
	select {
	case <-a.done:
		log.Printf("[Aggregator] dropped snapshot for computer %d: aggregator shut down", r.ComputerID)
		return
	default:
	}
	select {
	case a.ingest <- r:
	case <-a.done:
		log.Printf("[Aggregator] dropped snapshot for computer %d: aggregator shut down", r.ComputerID)
	default:
		log.Printf("[Aggregator] dropped snapshot for computer %d: ingest channel full", r.ComputerID)
	}
}

// Run processes queued snapshots until ctx is canceled or Close is called.
// Intended to run for the lifetime of the process in its own goroutine.
func (a *Aggregator) Run(ctx context.Context) {
	a.wg.Add(1)
	defer a.wg.Done()
	for {
		select {
		case r := <-a.ingest:
			a.ingestOne(r)
		case <-ctx.Done():
			return
		case <-a.done:
			return
		}
	}
}

// Close stops Run and waits for it to exit.
func (a *Aggregator) Close() {
	close(a.done)
	a.wg.Wait()
}

func (a *Aggregator) ingestOne(r Report) {
	now := time.Now()

	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := now.Add(-a.retention)
	for len(a.entries) > 0 && a.entries[len(a.entries)-1].at.Before(cutoff) {
		a.entries = a.entries[:len(a.entries)-1]
	}

	if !a.seen[r.ComputerID] {
		a.seen[r.ComputerID] = true
		reserved := make([]entry, len(a.entries), len(a.entries)+int(a.retention/a.snapshotInterval))
		copy(reserved, a.entries)
		a.entries = reserved
	}

	a.entries = append([]entry{{at: now, report: r}}, a.entries...)
}

// Rate is one item's throughput, in items per second, for an Input or
// Output report.
type Rate struct {
	Name         string
	RatePerSecond float64
}

// ReportView is the result of GetReport: exactly one of Rates or
// StorageItems is populated, matching which InventoryType the underlying
// snapshots carried.
type ReportView struct {
	Type         InventoryType
	Rates        []Rate // set for Input/Output
	StorageItems []Item // set for Storage
}

// GetReport scans entries newest-first for computerID within window,
// fixing the inventory type from the first (newest) matching entry and
// stopping the scan if a later entry's type differs (spec.md §4.4: "the
// agent reconfigured; don't mix regimes"). Returns false if nothing
// matched.
func (a *Aggregator) GetReport(computerID int64, window time.Duration) (ReportView, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	now := time.Now()
	var itype InventoryType
	sums := make(map[string]float64)
	names := make([]string, 0)
	n := 0

	for _, e := range a.entries {
		if now.Sub(e.at) > window {
			continue
		}
		if e.report.ComputerID != computerID {
			continue
		}
		if itype == nil {
			itype = e.report.InventoryType
		} else if !itype.Equal(e.report.InventoryType) {
			break
		}

		if _, isStorage := itype.(Storage); isStorage {
			return ReportView{Type: itype, StorageItems: sortedStorageItems(e.report.Items)}, true
		}

		for _, item := range e.report.Items {
			if _, ok := sums[item.Name]; !ok {
				names = append(names, item.Name)
			}
			sums[item.Name] += float64(item.Count)
		}
		n++
	}

	if itype == nil {
		return ReportView{}, false
	}
	if _, isStorage := itype.(Storage); isStorage {
		// Matched entries existed but none were accepted into the scan
		// (shouldn't happen: the first match always returns above), so
		// treat as no data.
		return ReportView{}, false
	}

	rates := make([]Rate, 0, len(names))
	for _, name := range names {
		rate := sums[name] / float64(n) / a.snapshotInterval.Seconds()
		rates = append(rates, Rate{Name: name, RatePerSecond: rate})
	}
	sortRatesDescending(rates)

	return ReportView{Type: itype, Rates: rates}, true
}

// GetStorageReport is a convenience wrapper over GetReport for callers that
// only care about the most recent storage snapshot and don't want to pick
// a window: it uses the full retention window, which always includes the
// latest snapshot if one exists.
func (a *Aggregator) GetStorageReport(computerID int64) ([]Item, bool) {
	view, ok := a.GetReport(computerID, a.retention)
	if !ok || view.StorageItems == nil {
		return nil, false
	}
	return view.StorageItems, true
}

// sortRatesDescending orders by rate descending, ties broken by name
// ascending, so the on-screen list is deterministic frame to frame.
func sortRatesDescending(rates []Rate) {
	sort.Slice(rates, func(i, j int) bool {
		if rates[i].RatePerSecond != rates[j].RatePerSecond {
			return rates[i].RatePerSecond > rates[j].RatePerSecond
		}
		return rates[i].Name < rates[j].Name
	})
}

// sortedStorageItems orders by count descending, ties broken by name
// ascending, without mutating the caller's slice.
func sortedStorageItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}
