package trigger

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net"
	"regexp"

	"github.com/gridflow/gridflow/internal/application/engine"
	"github.com/gridflow/gridflow/internal/domain/repository"
	storagemodels "github.com/gridflow/gridflow/internal/infrastructure/storage/models"
	"github.com/gridflow/gridflow/pkg/models"
)

// PathWebhookMaxBody is the maximum accepted request body size for the
// path-addressed webhook ingress.
const PathWebhookMaxBody = 1 << 20 // 1 MiB

var pathWebhookPathPattern = regexp.MustCompile(`^[a-zA-Z0-9/_-]+$`)

// PathWebhookRegistry dispatches ANY /webhook/{path} requests by (path,
// method) to the WebhookModel registered for that pair, verifying the
// configured auth type before starting an execution of the webhook's
// workflow. It is a sibling of WebhookRegistry, which instead addresses
// legacy trigger-ID webhooks.
type PathWebhookRegistry struct {
	webhookRepo repository.WebhookRepository
	coordinator *engine.Coordinator
}

// PathWebhookRegistryConfig holds configuration for PathWebhookRegistry.
type PathWebhookRegistryConfig struct {
	WebhookRepo repository.WebhookRepository
	Coordinator *engine.Coordinator
}

// NewPathWebhookRegistry creates a new path-addressed webhook registry.
func NewPathWebhookRegistry(cfg PathWebhookRegistryConfig) *PathWebhookRegistry {
	return &PathWebhookRegistry{
		webhookRepo: cfg.WebhookRepo,
		coordinator: cfg.Coordinator,
	}
}

// ValidPath reports whether a path segment uses only the characters this
// registry accepts (alphanumerics, slash, underscore, hyphen).
func ValidPath(path string) bool {
	return path != "" && pathWebhookPathPattern.MatchString(path)
}

// Dispatch resolves the webhook registered for (path, method), authenticates
// the request, and starts an execution of its workflow. body is the raw,
// already size-capped request body; headers is case-sensitive as received.
func (r *PathWebhookRegistry) Dispatch(ctx context.Context, path, method string, body []byte, payload map[string]interface{}, headers map[string]string, sourceIP string) (*models.Execution, error) {
	if !ValidPath(path) {
		return nil, fmt.Errorf("%w: invalid path", models.ErrInvalidTriggerType)
	}

	webhook, err := r.webhookRepo.FindByPathAndMethod(ctx, path, method)
	if err != nil {
		return nil, fmt.Errorf("webhook not found for %s %s: %w", method, path, err)
	}
	if !webhook.Enabled {
		return nil, fmt.Errorf("webhook %s is disabled", webhook.ID)
	}

	if err := r.authenticate(webhook, body, headers); err != nil {
		return nil, err
	}
	if err := r.checkIPWhitelist(webhook, sourceIP); err != nil {
		return nil, err
	}

	input := make(map[string]interface{}, len(payload)+1)
	for k, v := range payload {
		input[k] = v
	}
	input["_webhook"] = map[string]interface{}{
		"path":      webhook.Path,
		"method":    webhook.Method,
		"headers":   headers,
		"source_ip": sourceIP,
	}

	execution, err := r.coordinator.StartExecution(ctx, webhook.WorkflowID.String(), input, &engine.ExecutionOptions{
		TriggerType: models.TriggerInputTypeWebhook,
		TriggerID:   webhook.TriggerID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start execution: %w", err)
	}
	return execution, nil
}

// authenticate checks the webhook's configured auth type.
func (r *PathWebhookRegistry) authenticate(webhook *storagemodels.WebhookModel, body []byte, headers map[string]string) error {
	switch {
	case webhook.RequiresSignature():
		signature := headers["X-Webhook-Signature"]
		if signature == "" {
			return models.ErrSignatureInvalid
		}
		mac := hmac.New(sha256.New, []byte(webhook.Secret))
		mac.Write(body)
		expected := hex.EncodeToString(mac.Sum(nil))
		if !hmac.Equal([]byte(signature), []byte(expected)) {
			return models.ErrSignatureInvalid
		}
		return nil
	case webhook.RequiresBearerToken():
		const prefix = "Bearer "
		auth := headers["Authorization"]
		if len(auth) <= len(prefix) || auth[:len(prefix)] != prefix {
			return models.ErrSignatureInvalid
		}
		token := auth[len(prefix):]
		if subtle.ConstantTimeCompare([]byte(token), []byte(webhook.Secret)) != 1 {
			return models.ErrSignatureInvalid
		}
		return nil
	default:
		return nil
	}
}

func (r *PathWebhookRegistry) checkIPWhitelist(webhook *storagemodels.WebhookModel, sourceIP string) error {
	if len(webhook.IPWhitelist) == 0 {
		return nil
	}
	ip := net.ParseIP(sourceIP)
	if ip == nil {
		return fmt.Errorf("unable to parse source IP %q", sourceIP)
	}
	for _, allowed := range webhook.IPWhitelist {
		if _, cidr, err := net.ParseCIDR(allowed); err == nil {
			if cidr.Contains(ip) {
				return nil
			}
			continue
		}
		if allowed == sourceIP {
			return nil
		}
	}
	return fmt.Errorf("source IP %s not whitelisted", sourceIP)
}
