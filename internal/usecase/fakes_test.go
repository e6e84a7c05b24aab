package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"FinAlert/internal/domain/models"
	drepo "FinAlert/internal/domain/repository"
)

type fakeSourceStore struct {
	mu      sync.Mutex
	order   []string
	sources map[string]models.Source
	patches map[string][]models.SourcePatch
	listErr error
	// updatePanics applies the patch and then panics for the listed sources
	updatePanics map[string]bool
}

func newFakeSourceStore(sources ...models.Source) *fakeSourceStore {
	s := &fakeSourceStore{sources: map[string]models.Source{}, patches: map[string][]models.SourcePatch{}}
	for _, src := range sources {
		src.Enabled = true
		s.order = append(s.order, src.ID)
		s.sources[src.ID] = src
	}
	return s
}

func (s *fakeSourceStore) patchCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.patches[id])
}

func (s *fakeSourceStore) ListEnabled(context.Context) ([]models.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]models.Source, 0, len(s.order))
	for _, id := range s.order {
		if src := s.sources[id]; src.Enabled {
			out = append(out, src)
		}
	}
	return out, nil
}

func (s *fakeSourceStore) Update(_ context.Context, id string, p models.SourcePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.sources[id]
	if !ok {
		return errors.New("unknown source")
	}
	if p.LastCollectedAt != nil {
		src.LastCollectedAt = p.LastCollectedAt
	}
	if p.Status != nil {
		src.Status = *p.Status
	}
	if p.LastError != nil {
		src.LastError = p.LastError
	}
	if p.ClearError {
		src.LastError = nil
	}
	src.TotalCollected += p.CollectedDelta
	s.sources[id] = src
	s.patches[id] = append(s.patches[id], p)
	if s.updatePanics[id] {
		panic("store update exploded")
	}
	return nil
}

func (s *fakeSourceStore) get(id string) models.Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sources[id]
}

// fakeFetcher stores items in a set keyed by (source, external id).
type fakeFetcher struct {
	mu       sync.Mutex
	items    map[string][]models.FeedItem
	fetchErr map[string]error
	panics   map[string]bool
	saveErr  map[string]error
	delay    time.Duration
	block    chan struct{}
	entered  chan string
	stored   map[string]struct{}
	order    []string
	inFlight int
	maxSeen  int
	spans    map[string]fetchSpan
}

type fetchSpan struct {
	start, end time.Time
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		items:    map[string][]models.FeedItem{},
		fetchErr: map[string]error{},
		panics:   map[string]bool{},
		saveErr:  map[string]error{},
		stored:   map[string]struct{}{},
		spans:    map[string]fetchSpan{},
	}
}

func (f *fakeFetcher) FetchAndParseFeed(_ context.Context, src models.Source) ([]models.FeedItem, error) {
	f.mu.Lock()
	f.inFlight++
	f.maxSeen = max(f.maxSeen, f.inFlight)
	f.order = append(f.order, src.ID)
	f.spans[src.ID] = fetchSpan{start: time.Now()}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		sp := f.spans[src.ID]
		sp.end = time.Now()
		f.spans[src.ID] = sp
		f.mu.Unlock()
	}()

	if f.entered != nil {
		f.entered <- src.ID
	}
	if f.block != nil {
		<-f.block
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.panics[src.ID] {
		panic("parser exploded")
	}
	if err := f.fetchErr[src.ID]; err != nil {
		return nil, err
	}
	return f.items[src.ID], nil
}

// SaveItems keeps only the first item of a source configured to fail and then errors.
func (f *fakeFetcher) SaveItems(_ context.Context, items []models.FeedItem) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var err error
	if len(items) > 0 {
		err = f.saveErr[items[0].SourceID]
	}
	n := 0
	for i, it := range items {
		if err != nil && i > 0 {
			break
		}
		key := it.SourceID + "|" + it.ExternalID
		if _, ok := f.stored[key]; ok {
			continue
		}
		f.stored[key] = struct{}{}
		n++
	}
	return n, err
}

type fakeAlertStore struct {
	mu       sync.Mutex
	alerts   []models.GeneratedAlert
	findErr  map[string]error
	createEr map[string]error
}

func newFakeAlertStore() *fakeAlertStore {
	return &fakeAlertStore{findErr: map[string]error{}, createEr: map[string]error{}}
}

func (s *fakeAlertStore) FindRecent(_ context.Context, symbol, alertType string, since time.Time) (*models.GeneratedAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.findErr[symbol]; err != nil {
		return nil, err
	}
	var found *models.GeneratedAlert
	for i := range s.alerts {
		a := s.alerts[i]
		if a.Symbol == symbol && a.AlertType == alertType && !a.CreatedAt.Before(since) {
			if found == nil || a.CreatedAt.After(found.CreatedAt) {
				found = &a
			}
		}
	}
	return found, nil
}

func (s *fakeAlertStore) Create(_ context.Context, a *models.GeneratedAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.createEr[a.Symbol]; err != nil {
		return err
	}
	s.alerts = append(s.alerts, *a)
	return nil
}

func (s *fakeAlertStore) ListRecent(context.Context, drepo.AlertFilter) ([]models.GeneratedAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.GeneratedAlert(nil), s.alerts...), nil
}

func (s *fakeAlertStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}

type fakeMarketStore struct {
	obs       []models.MarketObservation
	obsErr    error
	indicator *models.MarketIndicator
	indErr    error
	volumes   map[string][]models.VolumeSample
	volErr    map[string]error
}

func (m *fakeMarketStore) LatestObservations(context.Context) ([]models.MarketObservation, error) {
	return m.obs, m.obsErr
}

func (m *fakeMarketStore) LatestIndicator(context.Context) (*models.MarketIndicator, error) {
	return m.indicator, m.indErr
}

func (m *fakeMarketStore) VolumeHistory(_ context.Context, symbol string, _ time.Time) ([]models.VolumeSample, error) {
	if err := m.volErr[symbol]; err != nil {
		return nil, err
	}
	return m.volumes[symbol], nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	got  []models.GeneratedAlert
	fail bool
}

func (n *recordingNotifier) Notify(_ context.Context, a models.GeneratedAlert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, a)
	if n.fail {
		return errors.New("notifier down")
	}
	return nil
}

type fakeMarketWriter struct {
	obs []models.MarketObservation
	ind []models.MarketIndicator
	err error
}

func (w *fakeMarketWriter) StoreObservations(_ context.Context, obs []models.MarketObservation) error {
	if w.err != nil {
		return w.err
	}
	w.obs = append(w.obs, obs...)
	return nil
}

func (w *fakeMarketWriter) StoreIndicator(_ context.Context, ind models.MarketIndicator) error {
	if w.err != nil {
		return w.err
	}
	w.ind = append(w.ind, ind)
	return nil
}
