package postgres

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Resolver *CapabilityResolver
	Audit    *AuditRepository
	Groups   *GroupRepository
	Reviews  *ReviewRepository
	Follows  *FollowRepository
	Users    *UserDirectory
	Invites  *InviteRepository
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Resolver: NewCapabilityResolver(pool),
		Audit:    NewAuditRepository(pool),
		Groups:   NewGroupRepository(pool),
		Reviews:  NewReviewRepository(pool),
		Follows:  NewFollowRepository(pool),
		Users:    NewUserDirectory(pool),
		Invites:  NewInviteRepository(pool),
	}
}
