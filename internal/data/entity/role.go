package entity

type Role string

const (
	RoleMember      Role = "member"
	RoleActivist    Role = "activist"
	RoleOrganizer   Role = "organizer"
	RoleTeamLeader  Role = "team_leader"
	RoleCoordinator Role = "coordinator"
	RoleStateLeader Role = "state_leader"
)

// roleThreshold is one rung of the progression ladder. Both counts must be
// met to hold the tier.
type roleThreshold struct {
	Role   Role
	Direct int64
	Team   int64
}

// roleLadder is ordered lowest to highest tier.
var roleLadder = []roleThreshold{
	{RoleMember, 0, 0},
	{RoleActivist, 5, 5},
	{RoleOrganizer, 10, 50},
	{RoleTeamLeader, 25, 250},
	{RoleCoordinator, 50, 1000},
	{RoleStateLeader, 100, 5000},
}

// Rank returns the position of the role in the ladder, -1 if unknown.
func (r Role) Rank() int {
	for i, t := range roleLadder {
		if t.Role == r {
			return i
		}
	}
	return -1
}

func (r Role) Valid() bool {
	return r.Rank() >= 0
}

// NextRole returns the highest tier whose direct and team thresholds are
// both met, never lower than current. An unknown current role is treated
// as member so corrupted records can still progress.
func NextRole(current Role, directCount, teamCount int64) Role {
	best := current.Rank()
	if best < 0 {
		best = 0
	}

	for i, t := range roleLadder {
		if directCount >= t.Direct && teamCount >= t.Team && i > best {
			best = i
		}
	}

	return roleLadder[best].Role
}
