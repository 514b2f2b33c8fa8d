package service

import "context"

// SecurityNotifier receives security events raised by the auth flow.
type SecurityNotifier interface {
	NotifyTokenReuse(ctx context.Context, data map[string]interface{})
}
