package api

import "errors"

// Validator - интерфейс, который могут реализовать payload'ы намерений.
// Проверяется только форма данных: принадлежность сущностей и правила игры
// остаются на совести хранилища и сервиса.
type Validator interface {
	Validate() error
}

func (p MoveToPayload) Validate() error {
	if p.EntityID <= 0 {
		return errors.New("entityId is required")
	}
	if p.Target.TX < 0 || p.Target.TY < 0 {
		return errors.New("target is out of range")
	}
	return nil
}

func (p FoundCityPayload) Validate() error {
	if p.EntityID <= 0 {
		return errors.New("entityId is required")
	}
	return nil
}

func (p AttackPayload) Validate() error {
	if p.AttackerID <= 0 {
		return errors.New("attackerId is required")
	}
	if p.TargetID <= 0 {
		return errors.New("targetId is required")
	}
	if p.AttackerID == p.TargetID {
		return errors.New("attacker cannot target itself")
	}
	return nil
}

func (p BuildPayload) Validate() error {
	if p.CityID <= 0 {
		return errors.New("cityId is required")
	}
	if p.BuildingID == "" {
		return errors.New("buildingId is required")
	}
	return nil
}

func (p SetProductionPayload) Validate() error {
	if p.CityID <= 0 {
		return errors.New("cityId is required")
	}
	if p.Item == "" {
		return errors.New("item is required")
	}
	return nil
}

func (p SelectPayload) Validate() error {
	if p.EntityID <= 0 {
		return errors.New("entityId is required")
	}
	return nil
}
