package service

import (
	"github.com/google/uuid"
	"github.com/phrazzld/taskflow/internal/domain"
)

// systemActorName is shown when a change was made without a known actor,
// for example by the priority sweep.
const systemActorName = "System"

// Actor identifies the user performing an operation.
type Actor struct {
	ID   uuid.UUID
	Name string
	Role domain.Role
}

// ActorFromUser builds the Actor for a stored user.
func ActorFromUser(u *domain.User) *Actor {
	if u == nil {
		return nil
	}
	return &Actor{ID: u.ID, Name: u.Name, Role: u.Role}
}

// IsManager reports whether the actor has the manager role.
func (a *Actor) IsManager() bool {
	return a != nil && a.Role == domain.RoleManager
}

func actorID(a *Actor) uuid.UUID {
	if a == nil {
		return uuid.Nil
	}
	return a.ID
}

func actorName(a *Actor) string {
	if a == nil || a.Name == "" {
		return systemActorName
	}
	return a.Name
}
