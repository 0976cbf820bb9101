package media

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var (
	// ErrPresetNotFound reports that the provider has no upload channel with
	// the given name.
	ErrPresetNotFound = errors.New("upload preset not found")
)

// ProviderAdmin is the slice of the provider's admin API needed to manage
// upload channels.
type ProviderAdmin interface {
	// DeletePreset removes the named upload channel; returns
	// ErrPresetNotFound when the channel does not exist.
	DeletePreset(ctx context.Context, name string) error
	CreatePreset(ctx context.Context, cfg PresetConfig) error
}

// Reconciler drives the provider's upload channels to their declared
// configuration. The provider's update API does not reliably allow changing
// the resource kind of an existing channel, so reconciliation recreates the
// channel: delete (tolerating absence) then create.
type Reconciler struct {
	admin  ProviderAdmin
	logger core.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per preset name
}

func NewReconciler(admin ProviderAdmin, logger core.Logger) *Reconciler {
	return &Reconciler{
		admin:  admin,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (r *Reconciler) nameLock(name string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.locks[name]
	if !ok {
		lock = new(sync.Mutex)
		r.locks[name] = lock
	}
	return lock
}

// EnsurePreset makes the named upload channel match cfg. Safe to re-run:
// the end state after any number of calls with the same cfg is one channel
// with that configuration. Never runs concurrently with itself for the same
// name; a delete/create race would leave the channel unpredictable.
func (r *Reconciler) EnsurePreset(ctx context.Context, cfg PresetConfig) error {
	lock := r.nameLock(cfg.Name)
	lock.Lock()
	defer lock.Unlock()

	r.logger.Info("reconciling upload preset " + cfg.Name)

	if err := r.admin.DeletePreset(ctx, cfg.Name); err != nil {
		if errors.Cause(err) != ErrPresetNotFound {
			return errors.Wrapf(err, "deleting preset %q", cfg.Name)
		}
		r.logger.Info("preset " + cfg.Name + " not found; nothing to delete")
	}

	if err := r.admin.CreatePreset(ctx, cfg); err != nil {
		// the old channel is already gone: report it absent, do not pretend success
		return errors.Wrapf(err, "creating preset %q (channel is now absent)", cfg.Name)
	}

	r.logger.Info("preset " + cfg.Name + " reconciled")
	return nil
}

// EnsureAll reconciles every declared upload channel.
func (r *Reconciler) EnsureAll(ctx context.Context) error {
	for _, cfg := range Presets() {
		if err := r.EnsurePreset(ctx, cfg); err != nil {
			return err
		}
	}
	return nil
}
