package application

import (
	"context"

	"github.com/google/uuid"

	"github.com/roomline/service-booking/internal/domain/actor"
	"github.com/roomline/service-booking/pkg/domain"
)

// ClaimsDirectory resolves actors straight from verified token claims.
// Unknown authority names are dropped.
type ClaimsDirectory struct{}

// Resolve builds an Actor from p.
func (ClaimsDirectory) Resolve(_ context.Context, p actor.Principal) (actor.Actor, error) {
	id, err := uuid.Parse(p.Subject)
	if err != nil || id == uuid.Nil {
		return actor.Actor{}, domain.NewForbiddenError("principal has no valid subject")
	}
	authorities := make([]actor.Authority, 0, len(p.Authorities))
	for _, name := range p.Authorities {
		if a, ok := actor.ParseAuthority(name); ok {
			authorities = append(authorities, a)
		}
	}
	return actor.Actor{ID: id, Authorities: authorities}, nil
}
