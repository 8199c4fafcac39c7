// Package orchestrator coordinates the runtime gateway, session negotiator
// and instance store to implement the sandbox lifecycle.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"sandplane/internal/catalog"
	"sandplane/internal/gateway"
	"sandplane/internal/logger"
	"sandplane/internal/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Identity is the requester of an operation. Admin identities may manage
// any instance.
type Identity struct {
	ID    string
	Admin bool
}

// Action is a lifecycle operation on an existing instance.
type Action string

const (
	ActionStart   Action = "start"
	ActionStop    Action = "stop"
	ActionRestart Action = "restart"
	ActionRemove  Action = "remove"
)

// Negotiator obtains a remote-shell endpoint from inside a running
// container.
type Negotiator interface {
	Negotiate(ctx context.Context, containerID string) (string, error)
}

// Config carries the immutable orchestration parameters.
type Config struct {
	// Quota is the maximum live instances per owner.
	Quota int

	// Limits are the resource caps applied to every container.
	Limits gateway.Limits
}

// Orchestrator is the state machine behind every instance operation. It
// owns all writes to the store and serializes operations per owner (for
// the quota check) and per instance id.
type Orchestrator struct {
	store      *store.FileStore
	gw         gateway.Gateway
	negotiator Negotiator
	catalog    *catalog.Catalog
	cfg        Config
	log        *slog.Logger

	locks  *keyedMutex
	tracer trace.Tracer
	ops    metric.Int64Counter
}

// New creates an Orchestrator.
func New(s *store.FileStore, gw gateway.Gateway, neg Negotiator, cat *catalog.Catalog, cfg Config, log *slog.Logger) *Orchestrator {
	if cfg.Quota <= 0 {
		cfg.Quota = 1
	}

	meter := otel.Meter("sandplane-orchestrator")
	ops, err := meter.Int64Counter("sandplane.operations",
		metric.WithDescription("Instance operations by kind and outcome"))
	if err != nil {
		log.Warn("failed to register operations counter", "error", err)
	}

	return &Orchestrator{
		store:      s,
		gw:         gw,
		negotiator: neg,
		catalog:    cat,
		cfg:        cfg,
		log:        log,
		locks:      newKeyedMutex(),
		tracer:     otel.Tracer("sandplane-orchestrator"),
		ops:        ops,
	}
}

// Quota returns the configured per-owner quota.
func (o *Orchestrator) Quota() int {
	return o.cfg.Quota
}

// Deployment is the result of a successful Deploy.
type Deployment struct {
	Owner    string
	Instance store.Instance
}

// Deploy provisions a new sandbox for the requester: quota and catalog
// checks, image ensure, container create, session negotiation, then the
// durable store append. A negotiation failure after the container exists
// triggers compensating cleanup so no orphan is left behind.
func (o *Orchestrator) Deploy(ctx context.Context, who Identity, imageKey string) (*Deployment, error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.Deploy",
		trace.WithAttributes(attribute.String("image", imageKey)))
	defer span.End()

	unlock := o.locks.lock("owner/" + who.ID)
	defer unlock()

	existing, err := o.store.ListByOwner(who.ID)
	if err != nil {
		return nil, o.done(ctx, "deploy", err)
	}
	if len(existing) >= o.cfg.Quota {
		return nil, o.done(ctx, "deploy", ErrQuotaExceeded)
	}

	img, ok := o.catalog.Get(imageKey)
	if !ok {
		return nil, o.done(ctx, "deploy", ErrUnknownImage)
	}

	log := logger.FromContext(ctx, o.log).With("owner", who.ID, "image", imageKey)

	if err := o.gw.EnsureImage(ctx, img.Ref); err != nil {
		log.Error("image ensure failed", "error", err)
		return nil, o.done(ctx, "deploy", fmt.Errorf("%w: %v", ErrProvisionFailed, err))
	}

	id, err := o.gw.CreateContainer(ctx, img.Ref, o.cfg.Limits)
	if err != nil {
		log.Error("container create failed", "error", err)
		return nil, o.done(ctx, "deploy", fmt.Errorf("%w: %v", ErrProvisionFailed, err))
	}
	log = log.With("container_id", id)

	endpoint, err := o.negotiator.Negotiate(ctx, id)
	if err != nil {
		// An unreachable container with no store record is the worst
		// failure mode; tear it down before reporting.
		log.Error("session negotiation failed, cleaning up container", "error", err)
		o.compensate(ctx, id, log)
		return nil, o.done(ctx, "deploy", fmt.Errorf("%w: %v", ErrSessionFailed, err))
	}

	inst := store.Instance{
		ID:              id,
		Image:           imageKey,
		SessionEndpoint: endpoint,
		Status:          store.StatusRunning,
		CreatedAt:       time.Now().UTC(),
	}
	if err := o.store.Append(who.ID, inst); err != nil {
		log.Error("store append failed, cleaning up container", "error", err)
		o.compensate(ctx, id, log)
		return nil, o.done(ctx, "deploy", err)
	}

	log.Info("instance deployed")
	return &Deployment{Owner: who.ID, Instance: inst}, o.done(ctx, "deploy", nil)
}

// compensate stops and removes a container best-effort. Errors are logged,
// never propagated; they must not mask the original failure.
func (o *Orchestrator) compensate(ctx context.Context, id string, log *slog.Logger) {
	if err := o.gw.StopContainer(ctx, id); err != nil && !errors.Is(err, gateway.ErrNotFound) {
		log.Warn("cleanup stop failed", "error", err)
	}
	if err := o.gw.RemoveContainer(ctx, id); err != nil && !errors.Is(err, gateway.ErrNotFound) {
		log.Warn("cleanup remove failed", "error", err)
	}
}

// ManageResult is the result of a successful lifecycle operation. Warning
// is set when the operation succeeded but the follow-up session
// renegotiation did not.
type ManageResult struct {
	Owner    string
	Instance store.Instance
	Warning  string
}

// Manage applies a lifecycle action to an existing instance after
// ownership checks. A gateway NotFound deletes the stale record and
// reports ErrAlreadyGone; other runtime errors leave the record unchanged.
func (o *Orchestrator) Manage(ctx context.Context, who Identity, ref string, action Action) (*ManageResult, error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.Manage",
		trace.WithAttributes(attribute.String("action", string(action))))
	defer span.End()

	op := string(action)

	found, err := o.resolve(ref)
	if err != nil {
		return nil, o.done(ctx, op, err)
	}
	id := found.Instance.ID

	unlock := o.locks.lock("instance/" + id)
	defer unlock()

	// Re-resolve under the lock; the record may have been removed while
	// we waited.
	found, err = o.resolve(id)
	if err != nil {
		return nil, o.done(ctx, op, err)
	}
	if found.Owner != who.ID && !who.Admin {
		return nil, o.done(ctx, op, ErrPermissionDenied)
	}

	log := logger.FromContext(ctx, o.log).With(
		"owner", found.Owner, "container_id", id, "action", op)

	var gwErr error
	switch action {
	case ActionStart:
		gwErr = o.gw.StartContainer(ctx, id)
	case ActionStop:
		gwErr = o.gw.StopContainer(ctx, id)
	case ActionRestart:
		gwErr = o.gw.RestartContainer(ctx, id)
	case ActionRemove:
		if gwErr = o.gw.StopContainer(ctx, id); gwErr == nil {
			gwErr = o.gw.RemoveContainer(ctx, id)
		}
	default:
		return nil, o.done(ctx, op, fmt.Errorf("invalid action %q", action))
	}

	if gwErr != nil {
		if errors.Is(gwErr, gateway.ErrNotFound) {
			return nil, o.done(ctx, op, o.reconcile(id, log))
		}
		log.Error("runtime operation failed", "error", gwErr)
		return nil, o.done(ctx, op, fmt.Errorf("%w: %v", ErrRuntime, gwErr))
	}

	result := &ManageResult{Owner: found.Owner, Instance: found.Instance}

	switch action {
	case ActionRemove:
		if err := o.store.RemoveByID(id); err != nil {
			return nil, o.done(ctx, op, err)
		}
		log.Info("instance removed")
		return result, o.done(ctx, op, nil)

	case ActionStop:
		if err := o.store.UpdateStatus(id, store.StatusStopped); err != nil {
			return nil, o.done(ctx, op, err)
		}
		result.Instance.Status = store.StatusStopped

	case ActionStart, ActionRestart:
		if err := o.store.UpdateStatus(id, store.StatusRunning); err != nil {
			return nil, o.done(ctx, op, err)
		}
		result.Instance.Status = store.StatusRunning

		// Reconnecting the session is best-effort; the container state
		// change stands either way.
		endpoint, nerr := o.negotiator.Negotiate(ctx, id)
		if nerr != nil {
			log.Warn("session renegotiation failed", "error", nerr)
			result.Warning = fmt.Sprintf("session renegotiation failed: %v", nerr)
		} else if err := o.store.UpdateSessionEndpoint(id, endpoint); err != nil {
			return nil, o.done(ctx, op, err)
		} else {
			result.Instance.SessionEndpoint = endpoint
		}
	}

	log.Info("lifecycle action applied")
	return result, o.done(ctx, op, nil)
}

// RegenerateSession negotiates a fresh session endpoint for an instance
// that is currently running according to the runtime, not the cached
// status.
func (o *Orchestrator) RegenerateSession(ctx context.Context, who Identity, ref string) (string, error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.RegenerateSession")
	defer span.End()

	found, err := o.resolve(ref)
	if err != nil {
		return "", o.done(ctx, "regenerate", err)
	}
	id := found.Instance.ID

	unlock := o.locks.lock("instance/" + id)
	defer unlock()

	found, err = o.resolve(id)
	if err != nil {
		return "", o.done(ctx, "regenerate", err)
	}
	if found.Owner != who.ID && !who.Admin {
		return "", o.done(ctx, "regenerate", ErrPermissionDenied)
	}

	log := logger.FromContext(ctx, o.log).With("owner", found.Owner, "container_id", id)

	running, err := o.gw.ContainerRunning(ctx, id)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return "", o.done(ctx, "regenerate", o.reconcile(id, log))
		}
		return "", o.done(ctx, "regenerate", fmt.Errorf("%w: %v", ErrRuntime, err))
	}
	if !running {
		return "", o.done(ctx, "regenerate", ErrNotRunning)
	}

	endpoint, err := o.negotiator.Negotiate(ctx, id)
	if err != nil {
		log.Error("session negotiation failed", "error", err)
		return "", o.done(ctx, "regenerate", fmt.Errorf("%w: %v", ErrSessionFailed, err))
	}

	if err := o.store.UpdateSessionEndpoint(id, endpoint); err != nil {
		return "", o.done(ctx, "regenerate", err)
	}

	log.Info("session regenerated")
	return endpoint, o.done(ctx, "regenerate", nil)
}

// Details merges a stored record with a live stats reading.
type Details struct {
	Owner    string
	Instance store.Instance
	Stats    gateway.Stats
}

// Describe returns the stored record merged with live stats. A runtime
// NotFound reconciles the store instead of returning stale data, and the
// advisory status is refreshed from the observed runtime state.
func (o *Orchestrator) Describe(ctx context.Context, who Identity, ref string) (*Details, error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.Describe")
	defer span.End()

	found, err := o.resolve(ref)
	if err != nil {
		return nil, o.done(ctx, "describe", err)
	}
	id := found.Instance.ID

	unlock := o.locks.lock("instance/" + id)
	defer unlock()

	found, err = o.resolve(id)
	if err != nil {
		return nil, o.done(ctx, "describe", err)
	}
	if found.Owner != who.ID && !who.Admin {
		return nil, o.done(ctx, "describe", ErrPermissionDenied)
	}

	log := logger.FromContext(ctx, o.log).With("owner", found.Owner, "container_id", id)

	stats, err := o.gw.Stats(ctx, id)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return nil, o.done(ctx, "describe", o.reconcile(id, log))
		}
		return nil, o.done(ctx, "describe", fmt.Errorf("%w: %v", ErrRuntime, err))
	}

	// Refresh the advisory status cache from the observed state.
	observed := store.StatusStopped
	if stats.Running {
		observed = store.StatusRunning
	}
	if found.Instance.Status != observed {
		if err := o.store.UpdateStatus(id, observed); err != nil {
			return nil, o.done(ctx, "describe", err)
		}
		found.Instance.Status = observed
	}

	return &Details{Owner: found.Owner, Instance: found.Instance, Stats: stats}, o.done(ctx, "describe", nil)
}

// List returns the requester's own instances.
func (o *Orchestrator) List(ctx context.Context, who Identity) ([]store.Instance, error) {
	instances, err := o.store.ListByOwner(who.ID)
	return instances, o.done(ctx, "list", err)
}

// ListAll returns the full table across all owners; admin only.
func (o *Orchestrator) ListAll(ctx context.Context, who Identity) (store.Table, error) {
	if !who.Admin {
		return nil, o.done(ctx, "list_all", ErrPermissionDenied)
	}
	table, err := o.store.Load()
	return table, o.done(ctx, "list_all", err)
}

// resolve maps a ref to its stored record: absent refs become ErrNotFound,
// ambiguity passes through.
func (o *Orchestrator) resolve(ref string) (*store.Owned, error) {
	found, err := o.store.FindByRef(ref)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

// reconcile deletes a record whose container vanished from the runtime and
// reports the disagreement.
func (o *Orchestrator) reconcile(id string, log *slog.Logger) error {
	log.Warn("container vanished from runtime, removing stale record")
	if err := o.store.RemoveByID(id); err != nil {
		log.Error("failed to remove stale record", "error", err)
	}
	return ErrAlreadyGone
}

// done records the operation outcome metric and passes the error through.
func (o *Orchestrator) done(ctx context.Context, op string, err error) error {
	if o.ops != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		o.ops.Add(ctx, 1, metric.WithAttributes(
			attribute.String("op", op),
			attribute.String("outcome", outcome),
		))
	}
	return err
}
