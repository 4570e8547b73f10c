package game

import "fmt"

// Confrontation is the outcome of one attacker/defender exchange.
type Confrontation struct {
	AttackerSide Side
	DefenderSide Side
	AttackerLoss int
	DefenderLoss int
}

// Confront computes both directions of an exchange at once. When
// rotateAttacker is set, the attacker's sides are turned 180 degrees before
// the lookup. Losses are never negative.
func Confront(attacker, defender *Card, rotateAttacker bool) (Confrontation, error) {
	if !attacker.IsOnBoard() || !defender.IsOnBoard() {
		return Confrontation{}, fmt.Errorf("confront %s vs %s: both cards must be on the board", attacker, defender)
	}
	side, ok := attacker.Coords.SideFacing(*defender.Coords)
	if !ok {
		return Confrontation{}, fmt.Errorf("confront %s vs %s: cards are not adjacent", attacker, defender)
	}

	atkStats := attacker.CurrentStats
	if rotateAttacker {
		atkStats = atkStats.Rotated()
	}
	atk := atkStats.Side(side)
	def := defender.CurrentStats.Side(side.Opposite())

	return Confrontation{
		AttackerSide: side,
		DefenderSide: side.Opposite(),
		AttackerLoss: max(def.Strength-atk.Defense, 0),
		DefenderLoss: max(atk.Strength-def.Defense, 0),
	}, nil
}

// Damage lowers a card's life and reports whether anything changed.
func (c *Card) Damage(amount int) bool {
	if amount <= 0 {
		return false
	}
	c.CurrentStats.Life -= amount
	return true
}

// Heal raises a card's life, never above its template life.
func (c *Card) Heal(amount int) int {
	if amount <= 0 {
		return 0
	}
	limit := c.Template.Stats.Life
	if c.CurrentStats.Life >= limit {
		return 0
	}
	healed := min(amount, limit-c.CurrentStats.Life)
	c.CurrentStats.Life += healed
	return healed
}
