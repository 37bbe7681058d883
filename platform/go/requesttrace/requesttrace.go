package requesttrace

import (
	"context"

	"go.uber.org/zap"

	platformauth "github.com/zenGate-Global/palmyra-gacha/platform/go/auth"
)

type contextKey string

const (
	ctxAuditInfo contextKey = "GACHA_REQUEST_TRACE"
)

// ActorKind represents who initiated a request.
type ActorKind string

const (
	ActorKindMaster     ActorKind = "master"
	ActorKindTenantUser ActorKind = "tenant_user"
	ActorKindAnonymous  ActorKind = "anonymous"
	ActorKindSystem     ActorKind = "system"
)

// AuditInfo captures request-scoped metadata needed for traceability and auditing.
// UserID, TenantID and TenantSlug are set only when a tenant user is logged in.
type AuditInfo struct {
	ActorKind  ActorKind
	UserID     *int64
	TenantID   *int64
	TenantSlug string
	RequestID  string
}

// IntoContext stores the AuditInfo in the provided context.
func IntoContext(ctx context.Context, audit AuditInfo) context.Context {
	return context.WithValue(ctx, ctxAuditInfo, audit)
}

// FromContext extracts the AuditInfo from context, returning false when not present.
func FromContext(ctx context.Context) (AuditInfo, bool) {
	if ctx == nil {
		return AuditInfo{}, false
	}
	v := ctx.Value(ctxAuditInfo)
	if v == nil {
		return AuditInfo{}, false
	}

	audit, ok := v.(AuditInfo)
	return audit, ok
}

// FromContextOrAnonymous returns the AuditInfo stored on the context, or an anonymous record when absent.
func FromContextOrAnonymous(ctx context.Context) AuditInfo {
	if audit, ok := FromContext(ctx); ok {
		return audit
	}
	return Anonymous("")
}

// FromPrincipal builds an AuditInfo from the request principal. A master
// session that also carries a tenant user keeps the tenant fields.
func FromPrincipal(p platformauth.Principal, requestID string) AuditInfo {
	audit := AuditInfo{ActorKind: ActorKind(p.Kind()), RequestID: requestID}
	if u, ok := p.TenantUser(); ok {
		audit.UserID = &u.UserID
		audit.TenantID = &u.TenantID
		audit.TenantSlug = u.Slug
	}
	return audit
}

// Anonymous builds an AuditInfo for unauthenticated requests such as public game calls.
func Anonymous(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindAnonymous, RequestID: requestID}
}

// System builds an AuditInfo for background/system operations (reaper, CLI).
func System(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindSystem, RequestID: requestID}
}

// Fields renders the audit record as zap fields.
func (a AuditInfo) Fields() []zap.Field {
	fields := []zap.Field{zap.String("actor_kind", string(a.ActorKind))}
	if a.UserID != nil {
		fields = append(fields, zap.Int64("user_id", *a.UserID))
	}
	if a.TenantSlug != "" {
		fields = append(fields, zap.String("tenant_slug", a.TenantSlug))
	}
	return fields
}
