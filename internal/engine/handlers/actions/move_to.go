package actions

import (
	"github.com/andresmonc/polyempire-sub000/internal/domain"
	"github.com/andresmonc/polyempire-sub000/internal/engine/handlers"
	"github.com/andresmonc/polyempire-sub000/pkg/api"
)

// HandleMoveTo перемещает сущность в целевой тайл.
// Стоимость фиксированная: ровно 1 mp за ход независимо от рельефа.
// Это сознательно упрощенная модель, она НЕ совпадает с клиентским
// поиском пути по стоимости местности.
func HandleMoveTo(ctx handlers.Context, p api.MoveToPayload) (handlers.Result, error) {
	ent := ctx.Table.Get(p.EntityID)
	if ent == nil {
		return handlers.Result{}, domain.NotFoundf("Entity not found: %d", p.EntityID)
	}
	if ent.OwnerID != ctx.PlayerID {
		return handlers.Result{}, domain.Unauthorizedf("Entity %d is not owned by player %d", p.EntityID, ctx.PlayerID)
	}

	mp, _ := ent.Number("mp")
	if mp <= 0 {
		return handlers.Result{}, domain.Conflictf("Entity %d has no movement points", p.EntityID)
	}

	ent.Position = p.Target
	ent.Data["mp"] = mp - 1

	return handlers.Result{Mutated: true}, nil
}
