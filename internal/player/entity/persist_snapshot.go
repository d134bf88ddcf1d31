package entity

type PlayerPersistSnapshot struct {
	Version uint64
	State   State
}
