package command

import (
	"context"

	"yuno-bot/internal/platform"
)

// Policy supplies the operator overrides. config.Config satisfies it.
type Policy interface {
	IsMasterUser(userID string) bool
	FormatInsufficientPermissions(mention string) string
}

type Gate struct {
	perms  platform.Permissions
	policy Policy
}

func NewGate(perms platform.Permissions, policy Policy) *Gate {
	return &Gate{perms: perms, policy: policy}
}

// Allow reports whether the invoker holds permission. Master users always pass.
func (g *Gate) Allow(ctx context.Context, inv *Invocation, permission int64) bool {
	if g.IsMaster(inv.Invoker.UserID) {
		return true
	}
	return g.perms.HasPermission(ctx, inv.Invoker, permission)
}

func (g *Gate) IsMaster(userID string) bool {
	return g.policy != nil && g.policy.IsMasterUser(userID)
}

func (g *Gate) Deny(inv *Invocation) platform.Response {
	return inv.Private(g.policy.FormatInsufficientPermissions(inv.Mention()))
}
