package jobs

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"presstrack/internal/core"
	"presstrack/internal/recordstore"
)

// Events receives job lifecycle notifications after a successful write.
// The webhook sender implements this; a nil sink disables notifications.
type Events interface {
	ProgressRecorded(jobID string, qty, newLeft int64, machine string)
	JobFinished(jobID string)
	StatusChanged(jobID, status string)
	CartonsReceived(jobID string, count int64)
}

// Config carries the workflow knobs the service needs.
type Config struct {
	View              string
	DefaultRegion     string
	StrictTransitions bool
}

// Service implements the progress-ledger operations against the record
// store. It holds no job state of its own; the store is the sole source of
// truth between requests. Every read-modify-write cycle is serialized per
// record id so concurrent reports against one job can never both read the
// same remaining value and over-decrement it.
type Service struct {
	store   recordstore.Store
	view    string
	regions map[string]*core.Region
	defReg  string
	strict  bool
	loc     *time.Location
	events  Events
	log     *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(store recordstore.Store, cfg Config, loc *time.Location, events Events, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	defReg := cfg.DefaultRegion
	if defReg == "" {
		defReg = "north"
	}
	return &Service{
		store:   store,
		view:    cfg.View,
		regions: core.Regions(),
		defReg:  defReg,
		strict:  cfg.StrictTransitions,
		loc:     loc,
		events:  events,
		log:     logger,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Region resolves a region name, defaulting the empty string.
func (s *Service) Region(name string) (*core.Region, error) {
	if name == "" {
		name = s.defReg
	}
	r, ok := s.regions[name]
	if !ok {
		return nil, core.ErrUnknownRegion
	}
	return r, nil
}

func (s *Service) lockRecord(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	return m
}

// ListJobs reads the configured view and projects every record into the
// canonical shape for one region, ordered by stage weight with the stable
// status/job-id tie-break.
func (s *Service) ListJobs(ctx context.Context, regionName string) ([]core.JobRecord, error) {
	region, err := s.Region(regionName)
	if err != nil {
		return nil, err
	}

	records, err := s.store.ListRecords(ctx, s.view)
	if err != nil {
		return nil, err
	}

	jobs := make([]core.JobRecord, 0, len(records))
	for _, rec := range records {
		job, err := Project(rec, region)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	core.SortJobs(jobs)
	return jobs, nil
}

// ProgressOutcome reports the applied decrement.
type ProgressOutcome struct {
	NewLeft  int64
	Finished bool
}

// RecordProgress applies one production report: reads the record, runs the
// ledger, and writes the decremented counter plus the appended audit line in
// a single patch. When the counter reaches zero the region's finished stage
// is bundled into the same write.
func (s *Service) RecordProgress(ctx context.Context, regionName, id string, qty int64, machine core.Machine) (ProgressOutcome, error) {
	region, err := s.Region(regionName)
	if err != nil {
		return ProgressOutcome{}, err
	}
	if machine != core.MachineUnset && !machine.Valid() {
		return ProgressOutcome{}, core.ErrInvalidMachine
	}

	lock := s.lockRecord(id)
	lock.Lock()
	defer lock.Unlock()

	rec, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return ProgressOutcome{}, err
	}

	impressions, _ := core.ParseQuantity(rec.Fields[fieldImpressions])
	state := core.ProgressState{
		RawRemaining: rec.Fields[fieldImprLeft],
		Impressions:  impressions,
		Log:          stringField(rec.Fields, fieldImprLog),
		Machine:      stringField(rec.Fields, fieldMachine),
	}

	res, err := core.RecordProgress(state, qty, machine, time.Now().In(s.loc))
	if err != nil {
		return ProgressOutcome{}, err
	}

	base := map[string]interface{}{
		fieldImprLeft: res.NewRemaining,
		fieldImprLog:  res.NewLog,
	}
	if res.Finished {
		base[region.StatusField] = region.MustLabel(core.StageFinished)
	}

	primary := base
	var fallback map[string]interface{}
	if machine != core.MachineUnset {
		primary, fallback = withMachine(base, machine)
	}

	if _, err := patchWithSchemaFallback(ctx, s.store, id, primary, fallback); err != nil {
		return ProgressOutcome{}, err
	}

	s.log.Info("progress recorded",
		zap.String("record", id),
		zap.Int64("qty", qty),
		zap.Int64("new_left", res.NewRemaining),
		zap.Bool("finished", res.Finished))

	if s.events != nil {
		machineStr := stringField(rec.Fields, fieldMachine)
		if machine != core.MachineUnset {
			machineStr = machineString(machine)
		}
		s.events.ProgressRecorded(id, qty, res.NewRemaining, machineStr)
		if res.Finished {
			s.events.JobFinished(id)
		}
	}

	return ProgressOutcome{NewLeft: res.NewRemaining, Finished: res.Finished}, nil
}

// AssignMachine starts a job on one of the presses: writes the machine
// selection and advances the region status to its in-work stage.
func (s *Service) AssignMachine(ctx context.Context, regionName, id string, machine core.Machine) error {
	region, err := s.Region(regionName)
	if err != nil {
		return err
	}
	if !machine.Valid() {
		return core.ErrInvalidMachine
	}

	lock := s.lockRecord(id)
	lock.Lock()
	defer lock.Unlock()

	inWork := region.MustLabel(core.StageInWork)
	base := map[string]interface{}{
		region.StatusField: inWork,
	}
	primary, fallback := withMachine(base, machine)

	if _, err := patchWithSchemaFallback(ctx, s.store, id, primary, fallback); err != nil {
		return err
	}

	s.log.Info("machine assigned",
		zap.String("record", id),
		zap.String("machine", machineString(machine)),
		zap.String("region", region.Name))

	if s.events != nil {
		s.events.StatusChanged(id, inWork)
	}
	return nil
}

// SetStatus writes a status value for the region. By default the write is
// unconditional, matching the historical behavior where ordering was only
// enforced by which action the UI offered. With strict transitions enabled,
// the current record is read first and backward moves are rejected.
func (s *Service) SetStatus(ctx context.Context, regionName, id, status string) error {
	region, err := s.Region(regionName)
	if err != nil {
		return err
	}
	if status == "" {
		return core.ErrMissingStatus
	}

	lock := s.lockRecord(id)
	lock.Lock()
	defer lock.Unlock()

	if s.strict {
		rec, err := s.store.GetRecord(ctx, id)
		if err != nil {
			return err
		}
		current := stringField(rec.Fields, region.StatusField)
		from := region.Normalize(current)
		to := region.Normalize(status)
		if !region.CanTransition(from.Stage, to.Stage) {
			return &core.IllegalTransitionError{From: current, To: status}
		}
	}

	if _, err := s.store.PatchRecord(ctx, id, map[string]interface{}{
		region.StatusField: status,
	}); err != nil {
		return err
	}

	s.log.Info("status set",
		zap.String("record", id),
		zap.String("region", region.Name),
		zap.String("status", status))

	if s.events != nil {
		s.events.StatusChanged(id, status)
	}
	return nil
}

// ReceiveCartons records the packaging count and advances the job to the
// region's delivered stage. Zero is a valid count: the shipment arrived,
// nothing tallied yet.
func (s *Service) ReceiveCartons(ctx context.Context, regionName, id string, count int64) error {
	region, err := s.Region(regionName)
	if err != nil {
		return err
	}
	if count < 0 {
		return core.ErrInvalidCartons
	}

	lock := s.lockRecord(id)
	lock.Lock()
	defer lock.Unlock()

	if _, err := s.store.PatchRecord(ctx, id, map[string]interface{}{
		fieldCartonIn:      count,
		region.StatusField: region.MustLabel(core.StageDelivered),
	}); err != nil {
		return err
	}

	s.log.Info("cartons received",
		zap.String("record", id),
		zap.Int64("count", count),
		zap.String("region", region.Name))

	if s.events != nil {
		s.events.CartonsReceived(id, count)
	}
	return nil
}

// withMachine builds the numeric-first patch and its string-typed fallback.
func withMachine(base map[string]interface{}, machine core.Machine) (primary, fallback map[string]interface{}) {
	primary = make(map[string]interface{}, len(base)+1)
	fallback = make(map[string]interface{}, len(base)+1)
	for k, v := range base {
		primary[k] = v
		fallback[k] = v
	}
	primary[fieldMachine] = int(machine)
	fallback[fieldMachine] = machineString(machine)
	return primary, fallback
}

func machineString(m core.Machine) string {
	return strconv.Itoa(int(m))
}
