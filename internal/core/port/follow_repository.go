package port

import "context"

// FollowRepository reads the follow graph. The follow relation drives the
// home feed only; it is deliberately kept separate from group co-membership.
type FollowRepository interface {
	FolloweeIDs(ctx context.Context, followerID string) ([]string, error)
}
