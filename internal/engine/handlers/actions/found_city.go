package actions

import (
	"github.com/andresmonc/polyempire-sub000/internal/domain"
	"github.com/andresmonc/polyempire-sub000/internal/engine/handlers"
	"github.com/andresmonc/polyempire-sub000/pkg/api"
)

// HandleFoundCity превращает поселенца в город.
// Тип сущности меняется на city, мешок данных заменяется целиком.
func HandleFoundCity(ctx handlers.Context, p api.FoundCityPayload) (handlers.Result, error) {
	ent := ctx.Table.Get(p.EntityID)
	if ent == nil {
		return handlers.Result{}, domain.NotFoundf("Entity not found: %d", p.EntityID)
	}
	if ent.OwnerID != ctx.PlayerID {
		return handlers.Result{}, domain.Unauthorizedf("Entity %d is not owned by player %d", p.EntityID, ctx.PlayerID)
	}
	if ent.Type != domain.EntityTypeUnit {
		return handlers.Result{}, domain.Conflictf("Entity %d is not a unit", p.EntityID)
	}
	if ut, _ := ent.Str("unitType"); ut != "settler" {
		return handlers.Result{}, domain.Conflictf("Entity %d is not a settler", p.EntityID)
	}

	ent.Type = domain.EntityTypeCity
	ent.Data = domain.CityTemplate()
	if p.Name != "" {
		ent.Data["name"] = p.Name
	}

	return handlers.Result{Mutated: true}, nil
}
