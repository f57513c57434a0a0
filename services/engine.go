package services

import (
	"context"
	"log"
	"time"

	"ip-tracking-api/events"
	"ip-tracking-api/metrics"
	"ip-tracking-api/repository"
)

// EngineConfig carries what the workflow core needs from the process.
type EngineConfig struct {
	Store             repository.Store
	Metrics           *metrics.Metrics
	Notifier          Notifier
	CertificatePrefix string
	TxTimeout         time.Duration
}

// Engine is the assembled workflow core. Every bus listener is registered
// here, once, when the engine is built.
type Engine struct {
	Store      repository.Store
	Bus        *events.Bus
	Ledger     *TrackingLedger
	Machine    *StateMachine
	Workflow   *WorkflowService
	Documents  *DocumentService
	Stages     *StageService
	Reconciler *StageReconciler
	StatusSync *DocumentStatusSync
}

func NewEngine(cfg EngineConfig) *Engine {
	store := cfg.Store
	if store == nil {
		store = repository.NewGormStore(nil)
	}
	bus := events.NewBus()
	ledger := NewTrackingLedger(store, cfg.Metrics)
	machine := NewStateMachine(NewCertificateIssuer(cfg.CertificatePrefix))

	e := &Engine{
		Store:      store,
		Bus:        bus,
		Ledger:     ledger,
		Machine:    machine,
		Workflow:   NewWorkflowService(store, bus, machine, ledger, cfg.Metrics, cfg.TxTimeout),
		Documents:  NewDocumentService(store, bus),
		Stages:     NewStageService(store, bus),
		Reconciler: NewStageReconciler(store, ledger, cfg.Metrics),
		StatusSync: NewDocumentStatusSync(),
	}
	e.register(cfg)
	return e
}

func (e *Engine) register(cfg EngineConfig) {
	bus := e.Bus

	bus.Subscribe("ledger.submission", events.EntitySubmission, e.Ledger.RecordSubmission)
	bus.Subscribe("ledger.submission_document", events.EntitySubmissionDocument, e.Ledger.RecordSubmissionDocument)
	bus.Subscribe("status_sync.submission_document", events.EntitySubmissionDocument, e.StatusSync.OnDocument)
	bus.Subscribe("status_sync.submission", events.EntitySubmission, e.StatusSync.OnSubmission)
	bus.Subscribe("stage_reconcile.enqueue", events.EntityWorkflowStage, e.Reconciler.Enqueue)

	if cfg.Notifier != nil {
		dispatcher := NewNotificationDispatcher(cfg.Notifier, cfg.Metrics)
		bus.SubscribeAfterCommit("notifications", events.EntitySubmission, dispatcher.Handle)
	}
	bus.SubscribeAfterCommit("stage_reconcile.trigger", events.EntityWorkflowStage, e.Reconciler.Trigger)

	for _, entity := range []events.Entity{
		events.EntitySubmission,
		events.EntitySubmissionDocument,
		events.EntityWorkflowStage,
		events.EntityDocument,
	} {
		bus.SubscribeAfterCommit("metrics."+string(entity), entity, countFact(cfg.Metrics))
	}
	bus.SubscribeAfterCommit("audit.document", events.EntityDocument, logDocumentChange)
}

func countFact(m *metrics.Metrics) events.Listener {
	return func(_ context.Context, fact events.ChangeFact) error {
		m.IncrementChangeFact(string(fact.Entity))
		return nil
	}
}

// Document metadata is display-only for the ledger; edits are logged.
func logDocumentChange(_ context.Context, fact events.ChangeFact) error {
	for _, c := range fact.Changes {
		log.Printf("document %d: %s %q -> %q by %s", fact.EntityID, c.Field, c.Old, c.New, actorLabel(fact.ActorID))
	}
	return nil
}

func actorLabel(actor string) string {
	if actor == "" {
		return "system"
	}
	return actor
}
