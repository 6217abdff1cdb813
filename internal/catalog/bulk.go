package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"catalog-service/internal/models"
	"catalog-service/internal/util"

	"go.uber.org/zap"
)

// Bulk actions accepted by PerformBulkAction.
const (
	BulkActivate       = "activate"
	BulkDeactivate     = "deactivate"
	BulkFeature        = "feature"
	BulkUnfeature      = "unfeature"
	BulkCategory       = "category"
	BulkPriceUpdate    = "price-update"
	BulkDelete         = "delete"
	BulkClone          = "clone"
	BulkSettingsUpdate = "settings-update"
)

// BulkActionRequest applies one action to a set of records. Value carries the
// action's payload where one is needed: the category string, the new price,
// the clone name, or the settings map.
type BulkActionRequest struct {
	Action     string      `json:"action"`
	ServiceIDs []string    `json:"service_ids"`
	Value      interface{} `json:"value,omitempty"`
}

// BulkItemError attributes a failure to one target record.
type BulkItemError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// RollbackResult reports the outcome of unwinding a partially failed clone
// run.
type RollbackResult struct {
	RolledBack bool     `json:"rolled_back"`
	Errors     []string `json:"errors,omitempty"`
}

// BulkActionResult is the per-action outcome: how many records the action
// reached, which targets failed, and for clones the ids created plus any
// rollback report.
type BulkActionResult struct {
	UpdatedCount int             `json:"updated_count"`
	Errors       []BulkItemError `json:"errors"`
	CreatedIDs   []string        `json:"created_ids,omitempty"`
	Rollback     *RollbackResult `json:"rollback,omitempty"`
}

// PerformBulkAction dispatches one bulk action over the target ids. Simple
// field updates are batched and degrade to a zero count on store failure.
// Deletes propagate their error. Clones run sequentially with compensation:
// a partial failure hard-deletes the records created so far, newest first.
func (c *Catalog) PerformBulkAction(ctx context.Context, tenantID *string, req BulkActionRequest, actor string) (*BulkActionResult, error) {
	ctx, span := util.StartSpan(ctx, "Catalog.PerformBulkAction")
	defer span.End()

	tid := c.resolver.Resolve(tenantID)
	util.BulkActionsTotal.WithLabelValues(req.Action).Inc()

	result := &BulkActionResult{Errors: []BulkItemError{}}

	switch req.Action {
	case BulkActivate:
		result.UpdatedCount = c.bulkFields(ctx, tid, req.ServiceIDs, map[string]interface{}{
			"active": true, "status": models.StatusActive,
		})
	case BulkDeactivate:
		result.UpdatedCount = c.bulkFields(ctx, tid, req.ServiceIDs, map[string]interface{}{
			"active": false, "status": models.StatusInactive,
		})
	case BulkFeature:
		result.UpdatedCount = c.bulkFields(ctx, tid, req.ServiceIDs, map[string]interface{}{"featured": true})
	case BulkUnfeature:
		result.UpdatedCount = c.bulkFields(ctx, tid, req.ServiceIDs, map[string]interface{}{"featured": false})

	case BulkCategory:
		category, ok := req.Value.(string)
		if !ok || category == "" {
			c.failAll(result, req, "Invalid category value")
			break
		}
		result.UpdatedCount = c.bulkFields(ctx, tid, req.ServiceIDs, map[string]interface{}{"category": category})

	case BulkPriceUpdate:
		price, ok := toFloat(req.Value)
		if !ok || price < 0 {
			c.failAll(result, req, "Invalid price value")
			break
		}
		result.UpdatedCount = c.bulkFields(ctx, tid, req.ServiceIDs, map[string]interface{}{"price": price})

	case BulkDelete:
		count, err := c.store.UpdateServicesFields(ctx, tid, req.ServiceIDs, map[string]interface{}{
			"active": false, "status": models.StatusInactive,
		})
		if err != nil {
			return nil, fmt.Errorf("bulk delete: %w", err)
		}
		result.UpdatedCount = int(count)
		util.ServicesDeletedTotal.Add(float64(count))

	case BulkClone:
		c.bulkClone(ctx, tid, req, result)

	case BulkSettingsUpdate:
		settings, ok := toSettings(req.Value)
		if !ok {
			c.failAll(result, req, "Invalid settings payload")
			break
		}
		updates := make([]SettingsUpdate, len(req.ServiceIDs))
		for i, id := range req.ServiceIDs {
			updates[i] = SettingsUpdate{ID: id, Settings: settings}
		}
		sr, err := c.bulkUpdateSettings(ctx, tid, updates)
		if err != nil {
			return nil, err
		}
		result.UpdatedCount = sr.Updated
		result.Errors = append(result.Errors, sr.Errors...)

	default:
		c.failAll(result, req, "Unknown bulk action")
	}

	for range result.Errors {
		util.BulkItemErrorsTotal.WithLabelValues(req.Action).Inc()
	}

	c.invalidate(ctx, tid, req.ServiceIDs...)

	if result.UpdatedCount > 0 {
		if err := c.notifier.NotifyBulkAction(ctx, req.Action, result.UpdatedCount, actor); err != nil {
			c.logger.Warn("bulk action notification failed", zap.Error(err))
		}
	}
	if err := c.events.PublishBulkAction(ctx, tid, req.Action, result.UpdatedCount, actor); err != nil {
		c.logger.Warn("bulk action event failed", zap.Error(err))
	}

	return result, nil
}

// bulkFields runs one batched field update. Store failures are swallowed into
// a zero count so a single bad batch never fails the whole request.
func (c *Catalog) bulkFields(ctx context.Context, tid *string, ids []string, fields map[string]interface{}) int {
	count, err := c.store.UpdateServicesFields(ctx, tid, ids, fields)
	if err != nil {
		c.logger.Warn("bulk field update failed",
			zap.String("tenant", tenantKey(tid)), zap.Int("targets", len(ids)), zap.Error(err))
		return 0
	}
	return int(count)
}

// bulkClone clones each target sequentially, recording a compensation entry
// per created record. When some clones fail after others succeeded, the
// created records are hard-deleted in reverse creation order and the outcome
// reported alongside the per-item errors.
func (c *Catalog) bulkClone(ctx context.Context, tid *string, req BulkActionRequest, result *BulkActionResult) {
	settings, err := c.settings.Get(ctx, tid)
	if err != nil {
		c.logger.Warn("settings lookup failed, refusing bulk clone",
			zap.String("tenant", tenantKey(tid)), zap.Error(err))
		c.failAll(result, req, "Failed to verify settings")
		return
	}
	if settings != nil && !settings.Services.AllowCloning {
		c.failAll(result, req, "Cloning disabled by settings")
		return
	}

	explicitName, _ := req.Value.(string)

	type compensation struct {
		id   string
		undo func(context.Context) error
	}
	var undoLog []compensation

	for _, id := range req.ServiceIDs {
		src, err := c.store.GetService(ctx, tid, id)
		if err != nil {
			result.Errors = append(result.Errors, BulkItemError{ID: id, Error: err.Error()})
			continue
		}
		if src == nil {
			result.Errors = append(result.Errors, BulkItemError{ID: id, Error: ErrNotFound.Error()})
			continue
		}

		name := explicitName
		if name == "" {
			if src.Name != "" {
				name = src.Name + " (copy)"
			} else {
				name = fmt.Sprintf("Service copy %d", len(result.CreatedIDs)+1)
			}
		}

		clone, err := c.insertClone(ctx, src, tid, name)
		if err != nil {
			result.Errors = append(result.Errors, BulkItemError{ID: id, Error: err.Error()})
			continue
		}

		result.CreatedIDs = append(result.CreatedIDs, clone.ID)
		cloneID := clone.ID
		undoLog = append(undoLog, compensation{
			id: cloneID,
			undo: func(ctx context.Context) error {
				return c.store.HardDeleteService(ctx, cloneID)
			},
		})
	}

	result.UpdatedCount = len(result.CreatedIDs)

	if len(result.Errors) > 0 && len(result.CreatedIDs) > 0 {
		util.CloneRollbacksTotal.Inc()
		var rbErrors []string
		for i := len(undoLog) - 1; i >= 0; i-- {
			if err := undoLog[i].undo(ctx); err != nil {
				rbErrors = append(rbErrors, fmt.Sprintf("%s: %s", undoLog[i].id, err.Error()))
			}
		}
		result.Rollback = &RollbackResult{
			RolledBack: len(rbErrors) == 0,
			Errors:     rbErrors,
		}
	}
}

func (c *Catalog) failAll(result *BulkActionResult, req BulkActionRequest, msg string) {
	for _, id := range req.ServiceIDs {
		result.Errors = append(result.Errors, BulkItemError{ID: id, Error: msg})
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toSettings(v interface{}) (models.JSONMap, bool) {
	switch m := v.(type) {
	case models.JSONMap:
		return m, true
	case map[string]interface{}:
		return models.JSONMap(m), true
	default:
		return nil, false
	}
}
