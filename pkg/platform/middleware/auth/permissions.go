package auth

import "context"

// Permissions the audit API understands. The read/details split mirrors the
// admin panel: the list view and the detail drawer are granted separately,
// and cleanup is reserved for super admins.
const (
	PermissionRead    = "audit-logs.read"
	PermissionDetails = "audit-logs.details"
	PermissionAdmin   = "admin"
)

type contextKeyPermissions struct{}

func withPermissions(ctx context.Context, permissions []string) context.Context {
	return context.WithValue(ctx, contextKeyPermissions{}, permissions)
}

func permissionsFrom(ctx context.Context) []string {
	if permissions, ok := ctx.Value(contextKeyPermissions{}).([]string); ok {
		return permissions
	}
	return nil
}

// WithPermissions injects permissions into a context. Useful for handler
// tests that don't run the full middleware chain.
func WithPermissions(ctx context.Context, permissions []string) context.Context {
	return withPermissions(ctx, permissions)
}
