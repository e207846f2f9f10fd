// Package trigger provides workflow trigger orchestration
package trigger

import (
	"context"
	"fmt"
	"sync"

	"github.com/gridflow/gridflow/internal/application/engine"
	"github.com/gridflow/gridflow/internal/application/observer"
	"github.com/gridflow/gridflow/internal/domain/repository"
	"github.com/gridflow/gridflow/internal/infrastructure/cache"
	"github.com/gridflow/gridflow/pkg/models"
)

// Manager orchestrates all trigger types
type Manager struct {
	// Dependencies
	triggerRepo     repository.TriggerRepository
	workflowRepo    repository.WorkflowRepository
	executionMgr    *engine.ExecutionManager
	coordinator     *engine.Coordinator
	formRepo        repository.FormRepository
	observerManager *observer.ObserverManager
	cache           *cache.RedisCache

	// Trigger handlers
	cronScheduler   *CronScheduler
	eventListener   *EventListener
	webhookRegistry *WebhookRegistry
	formRegistry    *FormRegistry

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
}

// ManagerConfig holds configuration for trigger manager
type ManagerConfig struct {
	TriggerRepo  repository.TriggerRepository
	WorkflowRepo repository.WorkflowRepository
	ExecutionMgr *engine.ExecutionManager
	Cache        *cache.RedisCache

	// Coordinator and FormRepo are optional: when both are set, the manager
	// also constructs a FormRegistry for form-driven triggers and in-flow
	// form resumption, which needs the durable Coordinator rather than the
	// legacy ExecutionMgr to support pause/resume.
	Coordinator     *engine.Coordinator
	FormRepo        repository.FormRepository
	ObserverManager *observer.ObserverManager
}

// NewManager creates a new trigger manager
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.TriggerRepo == nil {
		return nil, fmt.Errorf("trigger repository is required")
	}
	if cfg.WorkflowRepo == nil {
		return nil, fmt.Errorf("workflow repository is required")
	}
	if cfg.ExecutionMgr == nil {
		return nil, fmt.Errorf("execution manager is required")
	}
	if cfg.Cache == nil {
		return nil, fmt.Errorf("redis cache is required")
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		triggerRepo:     cfg.TriggerRepo,
		workflowRepo:    cfg.WorkflowRepo,
		executionMgr:    cfg.ExecutionMgr,
		coordinator:     cfg.Coordinator,
		formRepo:        cfg.FormRepo,
		observerManager: cfg.ObserverManager,
		cache:           cfg.Cache,
		ctx:             ctx,
		cancel:          cancel,
	}

	if err := m.initializeHandlers(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return m, nil
}

// initializeHandlers initializes all trigger type handlers
func (m *Manager) initializeHandlers() error {
	cronScheduler, err := NewCronScheduler(CronSchedulerConfig{
		TriggerRepo:  m.triggerRepo,
		WorkflowRepo: m.workflowRepo,
		ExecutionMgr: m.executionMgr,
		Cache:        m.cache,
	})
	if err != nil {
		return fmt.Errorf("failed to create cron scheduler: %w", err)
	}
	m.cronScheduler = cronScheduler

	eventListener, err := NewEventListener(EventListenerConfig{
		TriggerRepo:  m.triggerRepo,
		WorkflowRepo: m.workflowRepo,
		ExecutionMgr: m.executionMgr,
		Cache:        m.cache,
	})
	if err != nil {
		return fmt.Errorf("failed to create event listener: %w", err)
	}
	m.eventListener = eventListener

	webhookRegistry := NewWebhookRegistry(WebhookRegistryConfig{
		TriggerRepo:  m.triggerRepo,
		WorkflowRepo: m.workflowRepo,
		ExecutionMgr: m.executionMgr,
		Cache:        m.cache,
	})
	m.webhookRegistry = webhookRegistry

	if m.coordinator != nil && m.formRepo != nil {
		m.formRegistry = NewFormRegistry(FormRegistryConfig{
			FormRepo:        m.formRepo,
			WorkflowRepo:    m.workflowRepo,
			Coordinator:     m.coordinator,
			ObserverManager: m.observerManager,
		})
	}

	return nil
}

// Start starts all trigger handlers, reloading every enabled trigger from storage
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	triggers, err := m.triggerRepo.FindEnabled(m.ctx)
	if err != nil {
		return fmt.Errorf("failed to load enabled triggers: %w", err)
	}

	if err := m.cronScheduler.Start(m.ctx, triggers); err != nil {
		return fmt.Errorf("failed to start cron scheduler: %w", err)
	}

	if err := m.eventListener.Start(m.ctx, triggers); err != nil {
		return fmt.Errorf("failed to start event listener: %w", err)
	}

	if err := m.webhookRegistry.RegisterAll(m.ctx, triggers); err != nil {
		return fmt.Errorf("failed to register webhooks: %w", err)
	}

	return nil
}

// Stop gracefully shuts down all trigger handlers
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancel()

	if m.cronScheduler != nil {
		if err := m.cronScheduler.Stop(); err != nil {
			return fmt.Errorf("failed to stop cron scheduler: %w", err)
		}
	}

	if m.eventListener != nil {
		if err := m.eventListener.Stop(); err != nil {
			return fmt.Errorf("failed to stop event listener: %w", err)
		}
	}

	m.wg.Wait()

	return nil
}

// TriggerManual triggers a workflow manually, bypassing schedule/webhook/event matching
func (m *Manager) TriggerManual(ctx context.Context, triggerID, workflowID string, input map[string]any) (string, error) {
	execution, err := m.executionMgr.Execute(ctx, workflowID, input, nil)
	if err != nil {
		return "", fmt.Errorf("failed to execute workflow: %w", err)
	}

	if err := m.updateTriggerState(ctx, triggerID); err != nil {
		fmt.Printf("failed to update trigger state: %v\n", err)
	}

	return execution.ID, nil
}

// OnTriggerCreated handles trigger creation events
func (m *Manager) OnTriggerCreated(ctx context.Context, trigger *models.Trigger) error {
	if !trigger.Enabled {
		return nil
	}

	switch trigger.Type {
	case models.TriggerTypeCron:
		return m.cronScheduler.AddTrigger(ctx, trigger)
	case models.TriggerTypeEvent:
		return m.eventListener.AddTrigger(ctx, trigger)
	case models.TriggerTypeWebhook:
		return m.webhookRegistry.RegisterWebhook(ctx, trigger)
	case models.TriggerTypeInterval:
		return m.cronScheduler.AddTrigger(ctx, trigger)
	}

	return nil
}

// OnTriggerUpdated handles trigger update events
func (m *Manager) OnTriggerUpdated(ctx context.Context, trigger *models.Trigger) error {
	if err := m.OnTriggerDeleted(ctx, trigger.ID); err != nil {
		return err
	}

	if trigger.Enabled {
		return m.OnTriggerCreated(ctx, trigger)
	}

	return nil
}

// OnTriggerDeleted handles trigger deletion events
func (m *Manager) OnTriggerDeleted(ctx context.Context, triggerID string) error {
	if err := m.cronScheduler.RemoveTrigger(ctx, triggerID); err != nil {
		fmt.Printf("failed to remove cron trigger: %v\n", err)
	}

	if err := m.eventListener.RemoveTrigger(ctx, triggerID); err != nil {
		fmt.Printf("failed to remove event trigger: %v\n", err)
	}

	if err := m.webhookRegistry.UnregisterWebhook(ctx, triggerID); err != nil {
		fmt.Printf("failed to unregister webhook: %v\n", err)
	}

	if err := m.clearTriggerState(ctx, triggerID); err != nil {
		fmt.Printf("failed to clear trigger state: %v\n", err)
	}

	return nil
}

// Pause disables a schedule-backed trigger (cron or interval) without
// deleting it, so Resume can reattach it with its execution history intact.
func (m *Manager) Pause(ctx context.Context, triggerID string) error {
	return m.cronScheduler.Pause(ctx, triggerID)
}

// Resume re-attaches a previously paused schedule-backed trigger.
func (m *Manager) Resume(ctx context.Context, triggerID string) error {
	return m.cronScheduler.Resume(ctx, triggerID)
}

// TriggerNow fires a schedule-backed trigger immediately, regardless of its
// cron expression or interval, for manual testing from the API.
func (m *Manager) TriggerNow(ctx context.Context, triggerID string) (string, error) {
	return m.cronScheduler.TriggerNow(ctx, triggerID)
}

// updateTriggerState updates trigger state in Redis
func (m *Manager) updateTriggerState(ctx context.Context, triggerID string) error {
	state, err := LoadTriggerState(ctx, m.cache, triggerID)
	if err != nil {
		state = NewTriggerState(triggerID)
	}

	state.MarkExecuted()

	return state.Save(ctx, m.cache)
}

// clearTriggerState clears trigger state from Redis
func (m *Manager) clearTriggerState(ctx context.Context, triggerID string) error {
	return DeleteTriggerState(ctx, m.cache, triggerID)
}

// WebhookRegistry returns the webhook registry for HTTP webhook handling
func (m *Manager) WebhookRegistry() *WebhookRegistry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.webhookRegistry
}

// FormRegistry returns the form registry for HTTP form handling, or nil if
// the manager was constructed without a Coordinator/FormRepo.
func (m *Manager) FormRegistry() *FormRegistry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.formRegistry
}
