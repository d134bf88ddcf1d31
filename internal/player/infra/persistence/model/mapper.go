package model

import (
	"Underworld/internal/player/entity"
	"Underworld/internal/shared/types"
)

func ToState(m *PlayerEconomy) entity.State {
	return entity.State{
		ID:              types.PlayerID(m.ID),
		Name:            m.Name,
		Level:           m.Level,
		Cash:            m.Cash,
		DirtyCash:       m.DirtyCash,
		Ammo:            m.Ammo,
		Wanted:          m.Wanted,
		GangSize:        m.GangSize,
		Energy:          m.Energy,
		Reputation:      m.Reputation,
		Skills:          m.Skills,
		LastRelocation:  m.LastRelocation,
		LastEnergyRegen: m.LastEnergyRegen,
		LastDailyTick:   m.LastDailyTick,
	}
}

func FromSnapshot(s *entity.PlayerPersistSnapshot) *PlayerEconomy {
	st := s.State
	return &PlayerEconomy{
		ID:              int64(st.ID),
		Name:            st.Name,
		Level:           st.Level,
		Cash:            st.Cash,
		DirtyCash:       st.DirtyCash,
		Ammo:            st.Ammo,
		Wanted:          st.Wanted,
		GangSize:        st.GangSize,
		Energy:          st.Energy,
		Reputation:      st.Reputation,
		Skills:          st.Skills,
		LastRelocation:  st.LastRelocation,
		LastEnergyRegen: st.LastEnergyRegen,
		LastDailyTick:   st.LastDailyTick,
		Version:         s.Version,
	}
}
