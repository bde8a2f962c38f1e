// Package statsig is the orchestration root: it owns every component in
// the evaluation pipeline for one SDK key and wires them together exactly
// once, at construction, following this module's startup idiom (config ->
// build components -> initial sync -> start servers -> signal-based
// graceful shutdown) and its conditional plug-in wiring style (wire a
// component only if its optional dependency is configured). Nothing here
// is package-level: two Statsig instances for two SDK keys never share
// state.
package statsig

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TimurManjosov/goflagship/internal/config"
	"github.com/TimurManjosov/goflagship/internal/db"
	"github.com/TimurManjosov/goflagship/internal/diagnostics"
	"github.com/TimurManjosov/goflagship/internal/dynamicvalue"
	"github.com/TimurManjosov/goflagship/internal/eventlogger"
	"github.com/TimurManjosov/goflagship/internal/evaluator"
	"github.com/TimurManjosov/goflagship/internal/hashing"
	"github.com/TimurManjosov/goflagship/internal/idlist"
	"github.com/TimurManjosov/goflagship/internal/network"
	"github.com/TimurManjosov/goflagship/internal/observability"
	"github.com/TimurManjosov/goflagship/internal/persistentstorage"
	"github.com/TimurManjosov/goflagship/internal/sampling"
	"github.com/TimurManjosov/goflagship/internal/scheduler"
	"github.com/TimurManjosov/goflagship/internal/specs"
	"github.com/TimurManjosov/goflagship/internal/specsadapter"
	"github.com/TimurManjosov/goflagship/internal/specstore"
	"github.com/TimurManjosov/goflagship/internal/statsiguser"
	"github.com/google/uuid"
)

const sdkType = "statsig-go-server"
const sdkVersion = "0.1.0"

// OverrideAdapter is spec.md §6's pre-evaluation override hook: it may
// substitute the result for any (spec, user) pair before the evaluator
// runs.
type OverrideAdapter interface {
	Override(specName string, user statsiguser.User) (evaluator.Result, bool)
}

// Option configures plug-ins the environment-driven config.Options table
// has no field for.
type Option func(*settings)

type settings struct {
	observability     observability.Client
	overrideAdapter   OverrideAdapter
	persistentStorage persistentstorage.Adapter
	bootstrapPayload  []byte
}

func WithObservabilityClient(c observability.Client) Option {
	return func(s *settings) { s.observability = c }
}

func WithOverrideAdapter(a OverrideAdapter) Option {
	return func(s *settings) { s.overrideAdapter = a }
}

func WithPersistentStorageAdapter(a persistentstorage.Adapter) Option {
	return func(s *settings) { s.persistentStorage = a }
}

// WithBootstrapPayload seeds the store from a caller-supplied DCS body
// before any network sync runs, per spec.md's bootstrap adapter.
func WithBootstrapPayload(body []byte) Option {
	return func(s *settings) { s.bootstrapPayload = body }
}

// Statsig is the facade: CheckGate/GetExperiment/GetConfig/GetLayer/
// GetClientInitializeResponse/LogEvent/Shutdown. User-visible calls never
// fail; internal errors degrade to default values and a Reason that
// encodes the cause (spec.md §9's error-propagation policy).
type Statsig struct {
	opts *config.Options

	store       *specstore.Store
	specAdapter specsadapter.Adapter
	idLists     *idlist.Adapter
	logger      *eventlogger.Logger
	scheduler   *scheduler.Scheduler
	sampler     *sampling.Processor
	eval        *evaluator.Evaluator
	diag        *diagnostics.Diagnostics
	obs         observability.Client
	override    OverrideAdapter
	persistent  persistentstorage.Adapter
	netClient   *network.Client
	pool        *pgxpool.Pool

	initialized atomic.Bool
	shutdown    sync.Once
}

// New builds the full component graph for opts.SDKKey but performs no I/O;
// call Initialize to run the first spec sync.
func New(opts *config.Options, options ...Option) (*Statsig, error) {
	if opts == nil {
		return nil, fmt.Errorf("statsig: opts must not be nil")
	}
	set := &settings{}
	for _, o := range options {
		o(set)
	}

	s := &Statsig{
		opts:       opts,
		store:      specstore.New(),
		scheduler:  scheduler.New(),
		sampler:    sampling.New(),
		override:   set.overrideAdapter,
		persistent: set.persistentStorage,
	}

	s.obs = set.observability
	if s.obs == nil {
		s.obs = observability.NewPrometheusClient(nil)
	}

	s.netClient = network.New(map[string]string{
		"STATSIG-SDK-TYPE":    sdkType,
		"STATSIG-SDK-VERSION": sdkVersion,
		"STATSIG-API-KEY":     opts.SDKKey,
	})

	logAdapter := &eventlogger.HTTPAdapter{
		Client:      s.netClient,
		LogEventURL: opts.LogEventURL,
		SDKKey:      opts.SDKKey,
	}
	s.logger = eventlogger.New(logAdapter, eventlogger.Options{
		MaxQueueSize:      opts.EventLoggingMaxQueueSize,
		MaxPendingBatches: opts.EventLoggingMaxPendingBatchQueueSize,
		FlushInterval:     opts.EventLoggingFlushInterval,
		SDKType:           sdkType,
		SDKVersion:        sdkVersion,
	}, func(dropped int64) {
		s.obs.Increment("statsig.sdk_exposures_dropped", map[string]string{"count": fmt.Sprint(dropped)})
	})

	s.diag = diagnostics.New(diagnosticsSink{s.logger})

	if opts.EnableIDLists {
		s.idLists = idlist.New(s.netClient, opts.IDListsURL, opts.IDListsSyncInterval)
	}

	s.eval = evaluator.New(s.store, evaluator.NewJSONLogicFunc(), idListCheckerOrNil(s.idLists))

	s.specAdapter = s.buildSpecAdapter(set.bootstrapPayload)

	return s, nil
}

// idListCheckerOrNil returns a typed-nil-safe evaluator.IDListChecker: a
// nil *idlist.Adapter must become a nil interface, not a non-nil interface
// wrapping a nil pointer.
func idListCheckerOrNil(a *idlist.Adapter) evaluator.IDListChecker {
	if a == nil {
		return nil
	}
	return a
}

func (s *Statsig) buildSpecAdapter(bootstrapPayload []byte) specsadapter.Adapter {
	var adapters []specsadapter.Adapter

	if len(bootstrapPayload) > 0 {
		adapters = append(adapters, &specsadapter.BootstrapAdapter{Body: bootstrapPayload})
	}

	if s.opts.DatabaseDSN != "" {
		if pool, err := db.NewPool(context.Background(), s.opts.DatabaseDSN); err == nil {
			s.pool = pool
			adapters = append(adapters, specsadapter.NewDataStoreAdapter(pool, s.opts.SDKKey, s.opts.SpecsSyncInterval))
		}
	}

	if !s.opts.DisableNetwork {
		http := specsadapter.NewHTTPAdapter(s.opts.SDKKey, s.opts.SpecsURL, int(s.opts.SpecsSyncInterval/time.Millisecond), s.netClient)
		adapters = append(adapters, specsadapter.NewFileAdapter(s.opts.SDKKey, ".", http))
	}

	return &specsadapter.CompositeAdapter{Adapters: adapters}
}

// Initialize runs the first spec sync and starts every background task
// (spec sync, id-list sync, event flushing is already running). Per
// spec.md §9, the return value only distinguishes "never received a
// ruleset" from "received one, from any source" — evaluation calls never
// block on this succeeding.
func (s *Statsig) Initialize(ctx context.Context) error {
	s.diag.SetContext(diagnostics.ContextInitialize)
	s.diag.AddMarker("", diagnostics.NewMarker(diagnostics.KeyOverall, diagnostics.ActionStart, nil))

	initCtx := ctx
	if s.opts.InitTimeout > 0 {
		var cancel context.CancelFunc
		initCtx, cancel = context.WithTimeout(ctx, s.opts.InitTimeout)
		defer cancel()
	}

	l := specAdapterListener{store: s.store, diag: s.diag}
	err := s.specAdapter.Start(initCtx, l)
	s.specAdapter.ScheduleBackgroundSync(ctx, l, s.scheduler.Spawn)

	if s.idLists != nil {
		_ = s.idLists.Start(initCtx)
		s.idLists.ScheduleBackgroundSync(ctx, s.scheduler.Spawn)
	}

	success := err == nil
	s.diag.AddMarker("", diagnostics.NewMarker(diagnostics.KeyOverall, diagnostics.ActionEnd, nil).WithSuccess(success))
	s.diag.Flush(diagnostics.ContextInitialize, diagnostics.KeyInitialize)

	if success {
		s.initialized.Store(true)
	}
	return err
}

// specAdapterListener bridges a specsadapter.Adapter's updates into the
// Store, matching the conditional-plug-in style: the listener
// itself carries no state beyond the two components it bridges.
type specAdapterListener struct {
	store *specstore.Store
	diag  *diagnostics.Diagnostics
}

func (l specAdapterListener) CurrentSpecsInfo() (int64, string) {
	info := l.store.CurrentInfo()
	return info.LCUT, info.Checksum
}

func (l specAdapterListener) DidReceiveSpecsUpdate(data specs.Data, source specs.Source, hasUpdates bool) {
	l.store.ApplyUpdate(data, source, hasUpdates)
	if hasUpdates && len(data.Diagnostics) > 0 {
		rates := make(map[string]float64, len(data.Diagnostics))
		for k, v := range data.Diagnostics {
			rates[k] = float64(v)
		}
		l.diag.SetSamplingRates(rates)
	}
}

// diagnosticsSink adapts eventlogger.Logger.Enqueue to diagnostics.Enqueuer
// without diagnostics importing eventlogger (see diagnostics.Enqueuer's
// doc comment for why).
type diagnosticsSink struct{ logger *eventlogger.Logger }

func (d diagnosticsSink) Enqueue(e diagnostics.EnqueueableEvent) {
	d.logger.Enqueue(eventlogger.Event{
		ID:        uuid.NewString(),
		EventName: e.EventName,
		Metadata:  e.Metadata,
		Time:      time.Now().UnixMilli(),
	})
}

// GateResult is CheckGate's richer sibling, for callers that need the
// reason/ruleID alongside the boolean.
type GateResult struct {
	Name   string
	Value  bool
	RuleID string
	Reason evaluator.Reason
}

// CheckGate evaluates a feature gate and logs an exposure.
func (s *Statsig) CheckGate(user statsiguser.User, gateName string) bool {
	return s.checkGateDetail(user, gateName).Value
}

func (s *Statsig) checkGateDetail(user statsiguser.User, gateName string) GateResult {
	res := s.evaluate(user, gateName)
	s.logExposure(eventlogger.EventGateExposure, gateName, user, res, map[string]any{"gate": gateName})
	return GateResult{Name: gateName, Value: res.BoolValue, RuleID: res.RuleID, Reason: res.Reason}
}

// ConfigResult is GetConfig/GetExperiment's return shape.
type ConfigResult struct {
	Name      string
	Value     dynamicvalue.Value
	RuleID    string
	GroupName string
	Reason    evaluator.Reason
}

// GetConfig evaluates a dynamic config and logs an exposure.
func (s *Statsig) GetConfig(user statsiguser.User, configName string) ConfigResult {
	res := s.evaluate(user, configName)
	s.logExposure(eventlogger.EventConfigExposure, configName, user, res, map[string]any{"config": configName})
	return ConfigResult{Name: configName, Value: res.JSONValue, RuleID: res.RuleID, GroupName: res.GroupName, Reason: res.Reason}
}

// GetExperiment is GetConfig with experiment-flavored sticky bucketing
// (spec.md §6's PersistentStorageAdapter: applied when the experiment is
// active, cleared when it is not).
func (s *Statsig) GetExperiment(user statsiguser.User, experimentName string, stickyKey string) ConfigResult {
	res := s.evaluate(user, experimentName)
	res = s.applySticky(stickyKey, experimentName, res)
	s.logExposure(eventlogger.EventConfigExposure, experimentName, user, res, map[string]any{"config": experimentName})
	return ConfigResult{Name: experimentName, Value: res.JSONValue, RuleID: res.RuleID, GroupName: res.GroupName, Reason: res.Reason}
}

func (s *Statsig) applySticky(stickyKey, configName string, res evaluator.Result) evaluator.Result {
	if s.persistent == nil || stickyKey == "" {
		return res
	}
	if res.IsExperimentActive {
		if sticky, ok := s.persistent.Load(stickyKey); ok {
			if v, ok := sticky[configName]; ok {
				res.JSONValue, res.RuleID, res.GroupName = v.Value, v.RuleID, v.GroupName
				res.ConfigDelegate, res.ExplicitParameters = v.ConfigDelegate, v.ExplicitParameters
				res.IsExperimentGroup, res.Version = v.IsExperimentGroup, v.Version
				return res
			}
		}
		s.persistent.Save(stickyKey, configName, persistentstorage.StickyValues{
			Value: res.JSONValue, RuleID: res.RuleID, GroupName: res.GroupName,
			ConfigDelegate: res.ConfigDelegate, ExplicitParameters: res.ExplicitParameters,
			IsExperimentActive: res.IsExperimentActive, IsExperimentGroup: res.IsExperimentGroup,
			Version: res.Version, Time: time.Now().UnixMilli(),
		})
		return res
	}
	if sticky, ok := s.persistent.Load(stickyKey); ok {
		if v, ok := sticky[configName]; ok {
			s.persistent.Delete(stickyKey, configName)
			return evaluator.Result{
				JSONValue: v.Value, RuleID: v.RuleID, GroupName: v.GroupName,
				ConfigDelegate: v.ConfigDelegate, ExplicitParameters: v.ExplicitParameters,
				IsExperimentActive: false, IsExperimentGroup: v.IsExperimentGroup,
				Version: v.Version, Reason: evaluator.ReasonDefault,
			}
		}
	}
	return res
}

// LayerResult is GetLayer's return shape; Get resolves one parameter,
// logging a layer exposure annotated per-parameter (spec.md §4.5).
type LayerResult struct {
	statsig   *Statsig
	user      statsiguser.User
	name      string
	res       evaluator.Result
}

// GetLayer evaluates a layer without logging: exposures are logged
// per-parameter by Get, matching spec.md's "isExplicitParameter"/
// "parameterName" metadata requirement.
func (s *Statsig) GetLayer(user statsiguser.User, layerName string) LayerResult {
	return LayerResult{statsig: s, user: user, name: layerName, res: s.evaluate(user, layerName)}
}

// Get resolves param from the layer's value and logs one layer_exposure
// event carrying the resolved allocated experiment and explicit-parameter
// flag.
func (l LayerResult) Get(param string) (dynamicvalue.Value, bool) {
	obj, ok := l.res.JSONValue.Object()
	var v dynamicvalue.Value
	if ok {
		v, ok = obj[param]
	}

	isExplicit := false
	for _, p := range l.res.ExplicitParameters {
		if p == param {
			isExplicit = true
			break
		}
	}

	meta := map[string]any{
		"config":              l.name,
		"parameterName":       param,
		"isExplicitParameter": isExplicit,
		"allocatedExperiment": "",
	}
	if l.res.ConfigDelegate != "" && isExplicit {
		meta["allocatedExperiment"] = l.res.ConfigDelegate
	}
	l.statsig.logExposure(eventlogger.EventLayerExposure, l.name, l.user, l.res, meta)
	return v, ok
}

// evaluate runs the evaluator, consulting the override adapter first.
func (s *Statsig) evaluate(user statsiguser.User, name string) evaluator.Result {
	if s.override != nil {
		if res, ok := s.override.Override(name, user); ok {
			return res
		}
	}
	return s.eval.Evaluate(user, name)
}

// logExposure builds and enqueues one exposure event, honoring the
// sampling processor's decision, per spec.md §4.4/§4.5.
func (s *Statsig) logExposure(eventName, specName string, user statsiguser.User, res evaluator.Result, extra map[string]any) {
	unitID, _ := user.UnitID(res.IDType)
	decision := s.sampler.GetDecision(sampling.Input{
		SpecName:            specName,
		RuleID:              res.RuleID,
		Value:               fmt.Sprintf("%x", res.JSONValue.Hash()),
		UserIDHash:          hashing.SegmentMember(unitID),
		RuleSamplingRate:    res.SamplingRate,
		ForwardAllExposures: res.ForwardAllExposures,
	})
	if !decision.ShouldSendExposure {
		return
	}

	info := s.store.CurrentInfo()
	metadata := map[string]any{
		"reason":       string(res.Reason),
		"lcut":         info.LCUT,
		"receivedAt":   info.ReceivedAt,
		"ruleID":       res.RuleID,
		"configVersion": res.Version,
		"rulePassed":   res.BoolValue,
	}
	for k, v := range extra {
		metadata[k] = v
	}
	if decision.SamplingRate != nil {
		metadata["samplingRate"] = sampling.RateLabel(decision.SamplingRate)
	}

	event := eventlogger.NewExposureEvent(eventName, user, metadata, res.SecondaryExposures)
	event.Sampling = eventlogger.EventSampling{
		Mode: string(decision.Mode),
		Rate: sampling.RateLabel(decision.SamplingRate),
	}
	if decision.Mode == sampling.ModeShadow {
		event.Sampling.ShadowLogged = string(decision.Status)
	}
	s.logger.Enqueue(event)
}

// LogEvent is the custom-event path: callers log their own named events
// alongside exposures, through the same bounded queue.
func (s *Statsig) LogEvent(user statsiguser.User, eventName string, value any, metadata map[string]any) {
	loggable := user.ForLogging()
	s.logger.Enqueue(eventlogger.Event{
		ID:        uuid.NewString(),
		EventName: eventName,
		User:      &loggable,
		Value:     value,
		Metadata:  metadata,
		Time:      time.Now().UnixMilli(),
	})
}

// InitializeResponse is GetClientInitializeResponse's shape: enough of the
// current snapshot, evaluated for one user, to bootstrap a client SDK
// without it making its own network call.
type InitializeResponse struct {
	Time           int64                  `json:"time"`
	FeatureGates   map[string]ClientEntry `json:"feature_gates"`
	DynamicConfigs map[string]ClientEntry `json:"dynamic_configs"`
	LayerConfigs   map[string]ClientEntry `json:"layer_configs"`
}

// ClientEntry is one evaluated spec in an InitializeResponse.
type ClientEntry struct {
	Name               string             `json:"name"`
	Value              dynamicvalue.Value `json:"value"`
	RuleID             string             `json:"rule_id"`
	GroupName          string             `json:"group_name,omitempty"`
	IsExperimentActive bool               `json:"is_experiment_active,omitempty"`
	IsExperimentGroup  bool               `json:"is_experiment_group,omitempty"`
	SecondaryExposures []evaluator.SecondaryExposure `json:"secondary_exposures,omitempty"`
}

// GetClientInitializeResponse evaluates every known spec for user without
// logging exposures (the client SDK logs its own once it reads a value),
// per spec.md §9's "never fails" call list. Holdout and segment entities
// are never emitted (spec.md §4.3), and a spec with a non-empty
// TargetAppIDs set is dropped when the caller's SDK key does not map to
// one of those app ids.
func (s *Statsig) GetClientInitializeResponse(user statsiguser.User) InitializeResponse {
	data := s.store.Load()
	appID := clientAppID(&data, s.opts.SDKKey)

	resp := InitializeResponse{
		Time:           data.Time,
		FeatureGates:   make(map[string]ClientEntry, len(data.FeatureGates)),
		DynamicConfigs: make(map[string]ClientEntry, len(data.DynamicConfigs)),
		LayerConfigs:   make(map[string]ClientEntry, len(data.LayerConfigs)),
	}
	for name, spec := range data.FeatureGates {
		if !includeInClientResponse(spec, appID) {
			continue
		}
		resp.FeatureGates[name] = toClientEntry(name, s.evaluate(user, name))
	}
	for name, spec := range data.DynamicConfigs {
		if !includeInClientResponse(spec, appID) {
			continue
		}
		resp.DynamicConfigs[name] = toClientEntry(name, s.evaluate(user, name))
	}
	for name, spec := range data.LayerConfigs {
		if !includeInClientResponse(spec, appID) {
			continue
		}
		resp.LayerConfigs[name] = toClientEntry(name, s.evaluate(user, name))
	}
	return resp
}

// clientAppID resolves the app id the caller's SDK key maps to, per
// data.SdkKeysToAppIDs/HashedSdkKeysToAppIDs. An empty result means "no
// mapping known", in which case target_app_ids filtering never excludes
// anything.
func clientAppID(data *specs.Data, sdkKey string) string {
	if appID, ok := data.SdkKeysToAppIDs[sdkKey]; ok {
		return appID
	}
	if appID, ok := data.HashedSdkKeysToAppIDs[hashing.DJB2(sdkKey)]; ok {
		return appID
	}
	return ""
}

// includeInClientResponse applies spec.md §4.3's two client-init filters:
// holdout/segment entities are never exposed to client SDKs, and a spec
// scoped to specific apps is dropped when appID isn't among them.
func includeInClientResponse(spec specs.Spec, appID string) bool {
	if spec.Entity == specs.EntitySegment || spec.Entity == specs.EntityHoldout {
		return false
	}
	if len(spec.TargetAppIDs) == 0 || appID == "" {
		return true
	}
	for _, id := range spec.TargetAppIDs {
		if id == appID {
			return true
		}
	}
	return false
}

func toClientEntry(name string, res evaluator.Result) ClientEntry {
	return ClientEntry{
		Name:               name,
		Value:              res.JSONValue,
		RuleID:             res.RuleID,
		GroupName:          res.GroupName,
		IsExperimentActive: res.IsExperimentActive,
		IsExperimentGroup:  res.IsExperimentGroup,
		SecondaryExposures: res.SecondaryExposures,
	}
}

// Store exposes the underlying specstore.Store read-only, for the optional
// controlplane debug surface.
func (s *Statsig) Store() *specstore.Store { return s.store }

// Initialized reports whether Initialize has completed successfully at
// least once.
func (s *Statsig) Initialized() bool { return s.initialized.Load() }

// Shutdown cascades a bounded-time shutdown through every owned component:
// scheduler tasks are canceled first (so no new events are enqueued),
// then the event logger drains its buffer, then the network client and
// any database pool are released.
func (s *Statsig) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdown.Do(func() {
		deadline := 10 * time.Second
		if d, ok := ctx.Deadline(); ok {
			deadline = time.Until(d)
		}

		s.scheduler.Shutdown()
		if err := s.specAdapter.Shutdown(deadline); err != nil {
			shutdownErr = err
		}
		s.logger.Shutdown(deadline)
		s.netClient.Shutdown()
		if s.pool != nil {
			s.pool.Close()
		}
	})
	return shutdownErr
}
