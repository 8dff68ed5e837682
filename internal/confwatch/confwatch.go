// Package confwatch owns the runtime-adjustable tracking settings (day
// start hour, macro goals). It applies them to the ledger config store and
// watches the YAML config file so edits take effect without a restart.
package confwatch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/pantry/internal/ledger"
	"github.com/starford/pantry/pkg/config"
)

// Tracking holds optional overrides applied to the ledger config table on
// startup and whenever the config file changes. Nil fields leave the stored
// value alone.
type Tracking struct {
	DayStartHour *int     `yaml:"day_start_hour"`
	GoalCalories *float64 `yaml:"goal_calories"`
	GoalCarbs    *float64 `yaml:"goal_carbs"`
	GoalFats     *float64 `yaml:"goal_fats"`
	GoalProtein  *float64 `yaml:"goal_protein"`
}

// Validate validates the tracking settings.
func (t *Tracking) Validate() error {
	if t.DayStartHour != nil && (*t.DayStartHour < 0 || *t.DayStartHour > 23) {
		return fmt.Errorf("tracking: day_start_hour must be 0-23, got %d", *t.DayStartHour)
	}
	return nil
}

// ApplyTracking writes the non-nil tracking settings into the ledger config
// table.
func ApplyTracking(store ledger.Store, t Tracking) error {
	set := func(key, value string) error {
		if err := store.SetConfig(key, value); err != nil {
			return fmt.Errorf("confwatch: set %s: %w", key, err)
		}
		return nil
	}

	if t.DayStartHour != nil {
		if err := set("day_start_hour", strconv.Itoa(*t.DayStartHour)); err != nil {
			return err
		}
	}
	goals := map[string]*float64{
		"goal_calories": t.GoalCalories,
		"goal_carbs":    t.GoalCarbs,
		"goal_fats":     t.GoalFats,
		"goal_protein":  t.GoalProtein,
	}
	for key, v := range goals {
		if v == nil {
			continue
		}
		if err := set(key, strconv.FormatFloat(*v, 'f', -1, 64)); err != nil {
			return err
		}
	}
	return nil
}

// fileConfig pulls just the tracking section out of the config file on
// reload; other sections require a restart anyway.
type fileConfig struct {
	Tracking Tracking `yaml:"tracking"`
}

// Watch starts an fsnotify watcher on the config file and reapplies the
// tracking section whenever the file changes, until ctx is cancelled.
// Events are debounced because editors often fire several writes per save.
func Watch(ctx context.Context, configFile string, store ledger.Store, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory rather than the file: many editors replace the
	// file on save, which drops a direct file watch.
	dir := filepath.Dir(configFile)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("confwatch: watch %s: %w", dir, err)
	}
	target := filepath.Clean(configFile)

	logger.Info("confwatch: started", slog.String("file", target))

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(200 * time.Millisecond)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("confwatch: stopped")
			return nil

		case <-reloadCh:
			reload(target, store, logger)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				scheduleReload()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("confwatch: error", slog.String("error", watchErr.Error()))
		}
	}
}

func reload(configFile string, store ledger.Store, logger *slog.Logger) {
	var cfg fileConfig
	if err := config.Load(configFile, &cfg); err != nil {
		logger.Warn("confwatch: reload failed", slog.String("error", err.Error()))
		return
	}
	if err := cfg.Tracking.Validate(); err != nil {
		logger.Warn("confwatch: invalid tracking settings", slog.String("error", err.Error()))
		return
	}
	if err := ApplyTracking(store, cfg.Tracking); err != nil {
		logger.Warn("confwatch: apply failed", slog.String("error", err.Error()))
		return
	}
	logger.Info("confwatch: tracking settings reapplied")
}
