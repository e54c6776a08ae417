// Package app drives the cell and background finders across a stack of
// pages, keeping per-page results and statistics.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"cell-tracker/internal/background"
	"cell-tracker/internal/blob"
	"cell-tracker/internal/cellbody"
	"cell-tracker/internal/config"
	"cell-tracker/internal/grid"
	"cell-tracker/internal/image"
	"cell-tracker/pkg/geometry"
	"cell-tracker/pkg/roierr"
)

// ErrNoPage is returned when no page is selected or an index is out of range.
var ErrNoPage = fmt.Errorf("no such page: %w", roierr.ErrArgument)

// PageStats are the measurements recorded when a page is accepted.
type PageStats struct {
	Page       int     `json:"page"`
	CellSize   int     `json:"cell_size"`
	CellMean   float64 `json:"cell_mean"`
	CellP50    float64 `json:"cell_p50"`
	CellP90    float64 `json:"cell_p90"`
	Threshold  int     `json:"threshold"`
	Background float64 `json:"background_mean"`
	// PIRatio is CellMean over Background, NaN without a background.
	PIRatio float64 `json:"pi_ratio"`
	// DPI is the page resolution and CellArea the cell area in square
	// micrometres; both are 0 when the page carries no resolution.
	DPI      float64 `json:"dpi,omitempty"`
	CellArea float64 `json:"cell_area_um2,omitempty"`
}

// pageState is everything the session knows about one page.
type pageState struct {
	page *image.Page
	grid *grid.Grid
	pool *grid.Pool
	cell *cellbody.Finder
	bg   *background.Finder

	accepted   bool
	cellResult *cellbody.CellBody
	bgResult   *background.Background
	stats      *PageStats
}

// Session is the single entry point to the engine. One mutex serializes
// every call; growth touches arbitrarily many cells, so there is no finer
// locking.
type Session struct {
	mu      sync.Mutex
	cfg     config.Config
	logger  *slog.Logger
	pages   []*pageState
	current int

	listeners map[EventType][]EventListener
	pending   []event
}

// NewSession creates an empty session.
func NewSession(cfg config.Config, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		cfg:       cfg,
		logger:    logger,
		current:   -1,
		listeners: make(map[EventType][]EventListener),
	}
}

// Open loads image files as pages and selects the first one if nothing is selected yet.
func (s *Session) Open(paths []string) error {
	pages, err := image.LoadStack(paths)
	if err != nil {
		return err
	}
	for _, p := range pages {
		s.AddPage(p)
	}
	s.mu.Lock()
	first := s.current < 0 && len(s.pages) > 0
	s.mu.Unlock()
	if first {
		return s.GoTo(0)
	}
	return nil
}

// AddPage appends a page to the stack.
func (s *Session) AddPage(p *image.Page) {
	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()
	p.Index = len(s.pages)
	s.pages = append(s.pages, &pageState{page: p})
	s.logger.Debug("page loaded", "index", p.Index, "path", p.Path)
	s.queue(EventPageLoaded, p.Index)
}

// PageCount returns the number of pages.
func (s *Session) PageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pages)
}

// Current returns the selected page index, or -1.
func (s *Session) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Page returns the selected page.
func (s *Session) Page() (*image.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, err := s.selected()
	if err != nil {
		return nil, err
	}
	return ps.page, nil
}

// GoTo selects a page. A page accepted before gets its regions marked
// again as they were; a fresh page inherits the regions accepted on the
// page before it. A failure to inherit is returned, but the page stays
// selected.
func (s *Session) GoTo(index int) error {
	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.pages) {
		return fmt.Errorf("page %d of %d: %w", index, len(s.pages), ErrNoPage)
	}
	ps := s.pages[index]
	if err := s.prepare(ps); err != nil {
		return err
	}
	s.current = index
	s.queue(EventPageChanged, index)

	var err error
	switch {
	case ps.accepted:
		err = s.restore(ps)
	case index > 0:
		err = s.follow(ps, s.pages[index-1])
	}
	s.logger.Info("page selected", "index", index, "accepted", ps.accepted)
	return err
}

func (s *Session) prepare(ps *pageState) error {
	if ps.grid != nil {
		return nil
	}
	g, err := ps.page.Grid()
	if err != nil {
		return err
	}
	ps.grid = g
	ps.pool = grid.NewPool()
	ps.cell = cellbody.NewFinder(g, ps.pool, s.cfg.CellBody, s.logger.With("page", ps.page.Index, "region", "cell"))
	ps.bg = background.NewFinder(g, ps.pool, s.logger.With("page", ps.page.Index, "region", "background"))
	return nil
}

func (s *Session) restore(ps *pageState) error {
	var errs []error
	if ps.cellResult != nil && !ps.cell.State().Live() {
		errs = append(errs, ps.cell.Restore(ps.cellResult))
		s.queue(EventCellChanged, ps.cellResult)
	}
	if ps.bgResult.Valid() && !ps.bg.State().Live() {
		errs = append(errs, ps.bg.Restore(ps.bgResult))
		s.queue(EventBackgroundChanged, ps.bgResult)
	}
	return errors.Join(errs...)
}

func (s *Session) follow(ps, prev *pageState) error {
	if ps.cell.State().Live() || !prev.accepted {
		return nil
	}
	var (
		errs []error
		cell *blob.Blob
	)
	if prev.cellResult != nil {
		body, err := ps.cell.Follow(prev.cellResult)
		if err != nil {
			s.logger.Warn("cell body not found from previous page", "error", err)
			errs = append(errs, err)
		} else {
			cell = body.Blob
			s.queue(EventCellChanged, body)
		}
	}
	if prev.bgResult != nil && !ps.bg.State().Live() {
		bg, pl, err := ps.bg.Follow(prev.bgResult, cell)
		if err != nil {
			errs = append(errs, err)
		} else {
			s.queueBackground(bg, pl)
		}
	}
	return errors.Join(errs...)
}

// SeedCell grows the cell body from the brightest free pixel in area, or
// anywhere on the page when area is nil. A live cell body is reseeded.
func (s *Session) SeedCell(area *geometry.Polygon) (*cellbody.CellBody, error) {
	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, err := s.selected()
	if err != nil {
		return nil, err
	}
	var body *cellbody.CellBody
	switch {
	case ps.cell.State().Live() && area != nil:
		body, err = ps.cell.Edit(cellbody.SeedArea{Area: *area})
	case ps.cell.State().Live():
		if err = ps.cell.Remove(); err == nil {
			body, err = ps.cell.Create()
		}
	case area != nil:
		body, err = ps.cell.Create(cellbody.SeedArea{Area: *area})
	default:
		body, err = ps.cell.Create()
	}
	if err != nil {
		return nil, err
	}
	s.queue(EventCellChanged, body)
	return body, nil
}

// ResizeCell regrows the cell body toward target pixels.
func (s *Session) ResizeCell(target int, policy cellbody.Policy) (*cellbody.CellBody, error) {
	return s.editCell(cellbody.Size{Target: target, Policy: policy})
}

// SetCellThreshold regrows the cell body at a fixed threshold.
func (s *Session) SetCellThreshold(threshold int) (*cellbody.CellBody, error) {
	return s.editCell(cellbody.Threshold{Value: threshold})
}

func (s *Session) editCell(c cellbody.Constraint) (*cellbody.CellBody, error) {
	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, err := s.selected()
	if err != nil {
		return nil, err
	}
	body, err := ps.cell.Edit(c)
	if err != nil {
		return nil, err
	}
	s.queue(EventCellChanged, body)
	return body, nil
}

// CellAxis returns the midpoint and direction of the cell body's longest
// diameter, the frame a background is usually defined against.
func (s *Session) CellAxis() (geometry.Point, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, err := s.selected()
	if err != nil {
		return geometry.Point{}, 0, err
	}
	body := ps.cell.Body()
	if body == nil {
		return geometry.Point{}, 0, cellbody.ErrNoBody
	}
	d := body.Blob.MaxDiameter()
	return d.Midpoint(), d.Angle(), nil
}

// DefineBackground sets the background shape, replacing any existing one.
func (s *Session) DefineBackground(area geometry.Polygon, origin geometry.Point, theta float64) (*background.Background, background.Placement, error) {
	shape := background.Shape{Area: area, Origin: origin, Theta: theta}
	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, err := s.selected()
	if err != nil {
		return nil, background.PlacementOK, err
	}
	var (
		bg *background.Background
		pl background.Placement
	)
	if ps.bg.State().Live() {
		bg, pl, err = ps.bg.Edit(shape)
	} else {
		bg, pl, err = ps.bg.Create(shape)
	}
	if err != nil {
		return nil, pl, err
	}
	s.queueBackground(bg, pl)
	return bg, pl, nil
}

// MoveBackground moves the background origin.
func (s *Session) MoveBackground(origin geometry.Point) (*background.Background, background.Placement, error) {
	return s.editBackground(background.Origin{Point: origin})
}

// RotateBackground sets the background orientation.
func (s *Session) RotateBackground(theta float64) (*background.Background, background.Placement, error) {
	return s.editBackground(background.Theta{Radians: theta})
}

func (s *Session) editBackground(c background.Constraint) (*background.Background, background.Placement, error) {
	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, err := s.selected()
	if err != nil {
		return nil, background.PlacementOK, err
	}
	bg, pl, err := ps.bg.Edit(c)
	if err != nil {
		return nil, pl, err
	}
	s.queueBackground(bg, pl)
	return bg, pl, nil
}

func (s *Session) queueBackground(bg *background.Background, pl background.Placement) {
	if pl != background.PlacementOK {
		s.queue(EventBackgroundInvalid, pl)
		return
	}
	s.queue(EventBackgroundChanged, bg)
}

// Accept accepts the cell body and, if present, the background on the
// selected page and records its statistics.
func (s *Session) Accept() (PageStats, error) {
	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, err := s.selected()
	if err != nil {
		return PageStats{}, err
	}
	if !ps.cell.State().Live() {
		return PageStats{}, cellbody.ErrNoBody
	}
	if ps.bg.State() == background.StateInvalid {
		return PageStats{}, background.ErrNoArea
	}
	var bg *background.Background
	if ps.bg.State() == background.StatePlaced {
		if bg, err = ps.bg.Accept(); err != nil {
			return PageStats{}, err
		}
	}
	body, err := ps.cell.Accept()
	if err != nil {
		if bg != nil {
			err = errors.Join(err, ps.bg.Restore(bg))
		}
		return PageStats{}, err
	}

	stats := measure(ps.page, body, bg)
	ps.accepted, ps.cellResult, ps.bgResult, ps.stats = true, body, bg, &stats
	s.logger.Info("page accepted", "index", stats.Page, "cell_size", stats.CellSize, "cell_mean", stats.CellMean, "pi_ratio", stats.PIRatio)
	s.queue(EventPageAccepted, stats)
	return stats, nil
}

// micronsPerInch converts a DPI resolution into a pixel pitch.
const micronsPerInch = 25400

func measure(page *image.Page, body *cellbody.CellBody, bg *background.Background) PageStats {
	st := PageStats{
		Page:       page.Index,
		CellSize:   body.Size(),
		CellMean:   body.Mean(),
		CellP50:    body.Percentile(50),
		CellP90:    body.Percentile(90),
		Threshold:  body.Threshold,
		Background: math.NaN(),
		PIRatio:    math.NaN(),
	}
	if page.DPI > 0 {
		pitch := micronsPerInch / page.DPI
		st.DPI = page.DPI
		st.CellArea = float64(st.CellSize) * pitch * pitch
	}
	if bg.Valid() {
		st.Background = bg.Mean()
		st.PIRatio = st.CellMean / st.Background
	}
	return st
}

// RemoveCell discards the marked cell body on the selected page and forgets
// any result accepted for it.
func (s *Session) RemoveCell() error {
	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, err := s.selected()
	if err != nil {
		return err
	}
	if err := ps.cell.Remove(); err != nil {
		return err
	}
	ps.cellResult, ps.stats, ps.accepted = nil, nil, false
	s.queue(EventCellRemoved, ps.page.Index)
	return nil
}

// RemoveBackground discards the background on the selected page.
func (s *Session) RemoveBackground() error {
	defer s.flush()
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, err := s.selected()
	if err != nil {
		return err
	}
	if err := ps.bg.Remove(); err != nil {
		return err
	}
	ps.bgResult = nil
	if ps.stats != nil {
		ps.stats.Background, ps.stats.PIRatio = math.NaN(), math.NaN()
	}
	s.queue(EventBackgroundRemoved, ps.page.Index)
	return nil
}

// Stats returns the statistics recorded for page index.
func (s *Session) Stats(index int) (PageStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.pages) || s.pages[index].stats == nil {
		return PageStats{}, false
	}
	return *s.pages[index].stats, true
}

// AllStats returns the statistics of every accepted page in page order.
func (s *Session) AllStats() []PageStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []PageStats
	for _, ps := range s.pages {
		if ps.stats != nil {
			out = append(out, *ps.stats)
		}
	}
	return out
}

// Regions returns the cell body and background currently held on the
// selected page, or the accepted ones when nothing is live.
func (s *Session) Regions() (*cellbody.CellBody, *background.Background, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, err := s.selected()
	if err != nil {
		return nil, nil, err
	}
	return ps.cell.Body(), ps.bg.Background(), nil
}

// Owner reports which region holds p on the selected page.
func (s *Session) Owner(p geometry.Point) (grid.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, err := s.selected()
	if err != nil {
		return grid.None, err
	}
	return ps.grid.Owner(p), nil
}

func (s *Session) selected() (*pageState, error) {
	if s.current < 0 || s.current >= len(s.pages) {
		return nil, ErrNoPage
	}
	return s.pages[s.current], nil
}
