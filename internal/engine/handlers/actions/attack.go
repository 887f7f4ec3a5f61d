package actions

import (
	"github.com/andresmonc/polyempire-sub000/internal/domain"
	"github.com/andresmonc/polyempire-sub000/internal/engine/handlers"
	"github.com/andresmonc/polyempire-sub000/pkg/api"
)

// HandleAttack наносит урон цели.
// health = max(0, health - attack); при нуле цель полностью удаляется
// из хранилища, последующий поиск вернет "not found".
func HandleAttack(ctx handlers.Context, p api.AttackPayload) (handlers.Result, error) {
	attacker := ctx.Table.Get(p.AttackerID)
	if attacker == nil {
		return handlers.Result{}, domain.NotFoundf("Entity not found: %d", p.AttackerID)
	}
	if attacker.OwnerID != ctx.PlayerID {
		return handlers.Result{}, domain.Unauthorizedf("Entity %d is not owned by player %d", p.AttackerID, ctx.PlayerID)
	}

	target := ctx.Table.Get(p.TargetID)
	if target == nil {
		return handlers.Result{}, domain.NotFoundf("Entity not found: %d", p.TargetID)
	}

	attack, _ := attacker.Number("attack")
	health, _ := target.Number("health")

	health -= attack
	if health <= 0 {
		target.Data["health"] = float64(0)
		ctx.Table.Remove(target.ID)
	} else {
		target.Data["health"] = health
	}

	return handlers.Result{Mutated: true}, nil
}
