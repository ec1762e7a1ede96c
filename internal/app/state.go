// Package app provides the dashboard state, its events and the workflows
// that tie the loaders, processors and stores together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"biodash/internal/auth"
	"biodash/internal/chart"
	"biodash/internal/config"
	"biodash/internal/history"
	bioimage "biodash/internal/image"
	"biodash/internal/process"
	"biodash/internal/results"
	"biodash/internal/signal"
	"biodash/internal/tabular"
	"biodash/internal/volume"
)

// ChartSlots is the number of independent column charts.
const ChartSlots = 4

// Action names recorded in a session when a tool is opened.
const (
	ActionImages  = "Images"
	ActionSignals = "Signals"
	ActionCSV     = "CSV"
	ActionHistory = "History"
)

// State holds the logged-in user, the loaded data and the stores.
type State struct {
	mu sync.RWMutex

	cfg     *config.Config
	users   *auth.Store
	store   history.Store
	results *results.Writer

	// Session
	user    string
	session history.Session
	tracked bool // session exists in the store

	// Medical images
	volume     *volume.Volume
	sliceIndex [3]int
	image      *bioimage.Layer

	// Signals
	signal   *signal.Set
	dominant []signal.Dominant

	// Tables
	table  *tabular.Dataset
	slots  [ChartSlots]string
	charts [ChartSlots]*chart.Chart

	// Event listeners
	listeners map[EventType][]EventListener
}

// EventType identifies different application events.
type EventType int

const (
	EventLoggedIn EventType = iota
	EventLoggedOut
	EventActionRecorded
	EventVolumeLoaded
	EventSliceChanged
	EventImageLoaded
	EventImageProcessed
	EventSaved
	EventSignalLoaded
	EventTableLoaded
	EventChartsChanged
	EventHistoryChanged
	EventCredentialsReloaded
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// NewState creates the state. store may be nil when no history backend
// could be reached.
func NewState(cfg *config.Config, users *auth.Store, store history.Store) *State {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &State{
		cfg:       cfg,
		users:     users,
		store:     store,
		results:   results.NewWriter(cfg.ResultsDir),
		listeners: make(map[EventType][]EventListener),
	}
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := append([]EventListener(nil), s.listeners[event]...)
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// Config returns the configuration the state was built with.
func (s *State) Config() *config.Config {
	return s.cfg
}

// Results returns the writer for the results folder.
func (s *State) Results() *results.Writer {
	return s.results
}

// SetUsers swaps the credential store.
func (s *State) SetUsers(users *auth.Store) {
	s.mu.Lock()
	s.users = users
	s.mu.Unlock()
	s.Emit(EventCredentialsReloaded, users.Len())
}

// HistoryAvailable reports whether a history backend is connected.
func (s *State) HistoryAvailable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store != nil
}

// Login checks the credentials and opens a session. A store failure does
// not block the login: the user is logged in and the returned error wraps
// ErrHistoryUnavailable.
func (s *State) Login(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	s.mu.RLock()
	users, store := s.users, s.store
	s.mu.RUnlock()

	if users == nil || !users.Check(username, password) {
		slog.Info("Login rejected", "user", username)
		return ErrBadCredentials
	}

	sess := history.Session{User: username, Path: s.cfg.ResultsDir, Actions: []string{}}
	var histErr error
	tracked := false
	if store == nil {
		histErr = ErrHistoryUnavailable
	} else if created, err := store.Create(ctx, username, s.cfg.ResultsDir); err != nil {
		histErr = fmt.Errorf("%w: %v", ErrHistoryUnavailable, err)
	} else {
		sess, tracked = created, true
	}

	s.mu.Lock()
	s.user = username
	s.session = sess
	s.tracked = tracked
	s.mu.Unlock()

	if histErr != nil {
		slog.Warn("Session not recorded", "user", username, "error", histErr)
	}
	slog.Info("User logged in", "user", username, "session", sess.ID)
	s.Emit(EventLoggedIn, username)
	return histErr
}

// User returns the logged-in user name, or "".
func (s *State) User() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Session returns a copy of the current session.
func (s *State) Session() (history.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == "" {
		return history.Session{}, false
	}
	sess := s.session
	sess.Actions = append([]string(nil), s.session.Actions...)
	return sess, true
}

// RecordAction appends a tool name to the current session.
func (s *State) RecordAction(ctx context.Context, action string) error {
	s.mu.Lock()
	if s.user == "" {
		s.mu.Unlock()
		return ErrNotLoggedIn
	}
	s.session.Actions = append(s.session.Actions, action)
	id, tracked, store := s.session.ID, s.tracked, s.store
	s.mu.Unlock()

	s.Emit(EventActionRecorded, action)
	if !tracked || store == nil {
		return nil
	}
	if err := store.AppendAction(ctx, id, action); err != nil {
		slog.Warn("Failed to record action", "session", id, "action", action, "error", err)
		return err
	}
	slog.Debug("Recorded action", "session", id, "action", action)
	return nil
}

// Logout drops the session and every loaded dataset.
func (s *State) Logout() {
	s.mu.Lock()
	user := s.user
	s.user = ""
	s.session = history.Session{}
	s.tracked = false
	s.volume = nil
	s.image = nil
	s.signal = nil
	s.dominant = nil
	s.table = nil
	s.slots = [ChartSlots]string{}
	s.charts = [ChartSlots]*chart.Chart{}
	s.mu.Unlock()

	slog.Info("User logged out", "user", user)
	s.Emit(EventLoggedOut, user)
}

// LoadMedical loads a DICOM folder, a NIfTI file or a conventional image.
// Volumes have their metadata exported to the results folder on load.
func (s *State) LoadMedical(ctx context.Context, path string) error {
	switch {
	case volume.Supported(path):
		return s.loadVolume(ctx, path)
	case bioimage.Supported(path):
		return s.loadImage(path)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Base(path))
	}
}

func (s *State) loadVolume(ctx context.Context, path string) error {
	vol, err := volume.Load(ctx, path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.volume = vol
	s.image = nil
	for _, a := range volume.Axes {
		s.sliceIndex[a] = vol.Midpoint(a)
	}
	s.mu.Unlock()

	slog.Info("Loaded volume", "path", path, "shape", vol.Shape())
	s.Emit(EventVolumeLoaded, vol)

	if _, err := s.results.WriteMetadata(path, vol.Meta); err != nil {
		return fmt.Errorf("volume loaded but metadata export failed: %w", err)
	}
	if err := s.results.AppendStudy(path, vol.Meta); err != nil {
		return fmt.Errorf("volume loaded but study log failed: %w", err)
	}
	return nil
}

func (s *State) loadImage(path string) error {
	layer, err := bioimage.Load(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.image = layer
	s.volume = nil
	s.mu.Unlock()

	slog.Info("Loaded image", "path", path, "width", layer.Width(), "height", layer.Height())
	s.Emit(EventImageLoaded, layer)
	return nil
}

// SliceIndex returns the current index along an axis.
func (s *State) SliceIndex(a volume.Axis) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sliceIndex[a]
}

// SetSlice moves the view along an axis and returns the new plane.
func (s *State) SetSlice(a volume.Axis, index int) (*bioimage.Plane, error) {
	s.mu.Lock()
	vol := s.volume
	if vol == nil {
		s.mu.Unlock()
		return nil, ErrNoVolume
	}
	p, err := vol.Slice(a, index)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.sliceIndex[a] = index
	s.mu.Unlock()

	s.Emit(EventSliceChanged, a)
	return p, nil
}

// CurrentSlice returns the plane shown for an axis.
func (s *State) CurrentSlice(a volume.Axis) (*bioimage.Plane, error) {
	s.mu.RLock()
	vol, idx := s.volume, s.sliceIndex[a]
	s.mu.RUnlock()
	if vol == nil {
		return nil, ErrNoVolume
	}
	return vol.Slice(a, idx)
}

// ApplyOperation runs op on the displayed image and replaces it with the
// result, so repeated operations compound.
func (s *State) ApplyOperation(op process.Operation) (*bioimage.Plane, error) {
	s.mu.RLock()
	layer := s.image
	var current *bioimage.Plane
	if layer != nil {
		current = layer.Current.Clone()
	}
	s.mu.RUnlock()
	if layer == nil {
		return nil, ErrNoImage
	}

	out, err := process.Apply(op, current)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	layer.Replace(out, op.ID())
	s.mu.Unlock()

	slog.Info("Applied operation", "op", op.ID(), "path", layer.Path)
	s.Emit(EventImageProcessed, op)
	return out, nil
}

// ImageView returns a copy of the displayed image and the operations applied
// to it. ok is false when no conventional image is loaded.
func (s *State) ImageView() (current *bioimage.Plane, applied []string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.image == nil {
		return nil, nil, false
	}
	return s.image.Current.Clone(), append([]string(nil), s.image.Applied...), true
}

// ResetImage restores the image as it was decoded.
func (s *State) ResetImage() error {
	s.mu.Lock()
	layer := s.image
	if layer != nil {
		layer.Reset()
	}
	s.mu.Unlock()
	if layer == nil {
		return ErrNoImage
	}
	s.Emit(EventImageProcessed, nil)
	return nil
}

// SaveImage writes the processed image, or the three current slices when a
// volume is shown. It returns the files written.
func (s *State) SaveImage() ([]string, error) {
	s.mu.RLock()
	var processed *bioimage.Plane
	if s.image != nil && len(s.image.Applied) > 0 {
		processed = s.image.Current
	}
	vol, idx := s.volume, s.sliceIndex
	s.mu.RUnlock()

	var paths []string
	switch {
	case processed != nil:
		path, err := s.results.SaveProcessed(processed)
		if err != nil {
			return nil, err
		}
		paths = []string{path}
	case vol != nil:
		planes := make(map[volume.Axis]*bioimage.Plane, len(volume.Axes))
		for _, a := range volume.Axes {
			p, err := vol.Slice(a, idx[a])
			if err != nil {
				return nil, err
			}
			planes[a] = p
		}
		var err error
		if paths, err = s.results.SaveSlices(planes); err != nil {
			return nil, err
		}
	default:
		return nil, ErrNothingToSave
	}

	slog.Info("Saved images", "files", paths)
	s.Emit(EventSaved, paths)
	return paths, nil
}

// LoadSignal parses a .mat file and exports the dominant frequency of every
// channel. It returns the path of the exported table.
func (s *State) LoadSignal(path string) (string, error) {
	set, err := signal.Load(path)
	if err != nil {
		return "", err
	}
	doms := set.DominantAll(s.cfg.Signal.SampleRate)

	s.mu.Lock()
	s.signal = set
	s.dominant = doms
	s.mu.Unlock()

	slog.Info("Loaded signal", "path", path, "variable", set.Name,
		"channels", set.Channels(), "samples", set.Samples())
	s.Emit(EventSignalLoaded, set)

	out, err := s.results.WriteFFT(path, doms)
	if err != nil {
		return "", fmt.Errorf("signal loaded but FFT export failed: %w", err)
	}
	return out, nil
}

// Dominant returns the dominant frequency of every channel of the loaded
// signal.
func (s *State) Dominant() []signal.Dominant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]signal.Dominant(nil), s.dominant...)
}

// SignalView holds the charts and figures for one channel.
type SignalView struct {
	Channel   int
	Spectrum  *chart.Chart
	Histogram *chart.Chart
	Stats     signal.Stats
	Dominant  signal.Dominant
}

// ChannelView computes the spectrum, histogram and statistics of a channel.
func (s *State) ChannelView(ch int) (*SignalView, error) {
	s.mu.RLock()
	set := s.signal
	s.mu.RUnlock()
	if set == nil {
		return nil, ErrNoSignal
	}

	fs := s.cfg.Signal.SampleRate
	sp, err := set.Spectrum(ch, fs)
	if err != nil {
		return nil, err
	}
	st, err := set.Stats(ch)
	if err != nil {
		return nil, err
	}
	h, err := set.Histogram(ch)
	if err != nil {
		return nil, err
	}

	view := &SignalView{Channel: ch, Stats: st}
	view.Dominant.Channel = ch
	view.Dominant.Frequency, view.Dominant.Magnitude = sp.Dominant()

	name := fmt.Sprintf("Channel %d", ch)
	if view.Spectrum, err = chart.XY(name+" spectrum", "Frequency (Hz)", "Magnitude", sp.Freqs, sp.Magnitudes); err != nil {
		return nil, err
	}
	if view.Histogram, err = chart.Histogram(name+" histogram", "Amplitude", h.Edges, h.Counts); err != nil {
		return nil, err
	}
	return view, nil
}

// LoadTable reads a CSV file and clears every chart slot.
func (s *State) LoadTable(path string) error {
	ds, err := tabular.Load(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.table = ds
	s.slots = [ChartSlots]string{}
	s.charts = [ChartSlots]*chart.Chart{}
	s.mu.Unlock()

	slog.Info("Loaded table", "path", path, "rows", ds.Len(), "columns", len(ds.Columns))
	s.Emit(EventTableLoaded, ds)
	s.Emit(EventChartsChanged, nil)
	return nil
}

// SetSlot selects the column plotted in a slot. An empty column clears it.
func (s *State) SetSlot(slot int, column string) error {
	if slot < 0 || slot >= ChartSlots {
		return ErrSlotOutOfRange
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.table == nil {
		return ErrNoTable
	}
	if column != "" {
		if _, err := s.table.Column(column); err != nil {
			return err
		}
	}
	s.slots[slot] = column
	return nil
}

// Slots returns the selected column per slot.
func (s *State) Slots() [ChartSlots]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slots
}

// PlotSlots builds a chart for every slot with a column selected. Numeric
// columns are drawn as a line over row index, others as value counts. A slot
// whose column cannot be charted is left empty; an error is returned only
// when no slot could be drawn.
func (s *State) PlotSlots() (int, error) {
	s.mu.RLock()
	ds, slots := s.table, s.slots
	s.mu.RUnlock()
	if ds == nil {
		return 0, ErrNoTable
	}

	var charts [ChartSlots]*chart.Chart
	var errs []error
	n := 0
	for i, col := range slots {
		if col == "" {
			continue
		}
		c, err := columnChart(ds, col)
		if err != nil {
			slog.Warn("Skipping chart slot", "slot", i+1, "column", col, "error", err)
			errs = append(errs, fmt.Errorf("slot %d: %w", i+1, err))
			continue
		}
		charts[i] = c
		n++
	}
	if n == 0 {
		if len(errs) > 0 {
			return 0, errors.Join(errs...)
		}
		return 0, ErrNoSelection
	}

	s.mu.Lock()
	s.charts = charts
	s.mu.Unlock()
	s.Emit(EventChartsChanged, n)
	return n, nil
}

func columnChart(ds *tabular.Dataset, col string) (*chart.Chart, error) {
	values, numeric, err := ds.Numeric(col)
	if err != nil {
		return nil, err
	}
	if numeric {
		return chart.Series(col, "Index", col, values)
	}

	counts, err := ds.ValueCounts(col)
	if err != nil {
		return nil, err
	}
	if len(counts) == 0 {
		return nil, fmt.Errorf("column %q has no values", col)
	}
	labels := make([]string, len(counts))
	ns := make([]float64, len(counts))
	for i, c := range counts {
		labels[i] = c.Value
		ns[i] = float64(c.N)
	}
	return chart.Bars(col, "Count", labels, ns)
}

// Charts returns the chart in every slot, nil where empty.
func (s *State) Charts() [ChartSlots]*chart.Chart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.charts
}

// ClearCharts empties every slot.
func (s *State) ClearCharts() {
	s.mu.Lock()
	s.slots = [ChartSlots]string{}
	s.charts = [ChartSlots]*chart.Chart{}
	s.mu.Unlock()
	s.Emit(EventChartsChanged, 0)
}

// ExportCharts writes every drawn chart to the results folder.
func (s *State) ExportCharts() ([]string, error) {
	charts := s.Charts()
	var paths []string
	for i, c := range charts {
		if c == nil {
			continue
		}
		path, err := s.results.SaveChart(c, i+1)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	if len(paths) == 0 {
		return nil, ErrNothingToExport
	}
	slog.Info("Exported charts", "files", paths)
	s.Emit(EventSaved, paths)
	return paths, nil
}

// History lists every recorded session, oldest first.
func (s *State) History(ctx context.Context) ([]history.Session, error) {
	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()
	if store == nil {
		return nil, ErrHistoryUnavailable
	}
	return store.List(ctx)
}

// ClearHistory deletes every session. The current session stops being
// tracked since its record is gone.
func (s *State) ClearHistory(ctx context.Context) (int64, error) {
	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()
	if store == nil {
		return 0, ErrHistoryUnavailable
	}

	n, err := store.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.tracked = false
	s.mu.Unlock()

	slog.Info("Cleared history", "sessions", n)
	s.Emit(EventHistoryChanged, n)
	return n, nil
}

// Close releases the history store.
func (s *State) Close() error {
	s.mu.Lock()
	store := s.store
	s.store = nil
	s.mu.Unlock()
	if store == nil {
		return nil
	}
	return store.Close()
}

// IsHistoryUnavailable reports whether err only signals a missing store.
func IsHistoryUnavailable(err error) bool {
	return errors.Is(err, ErrHistoryUnavailable)
}
