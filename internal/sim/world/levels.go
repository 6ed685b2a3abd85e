package world

import "math"

const maxLevel = 99

// xpTable[l] is the experience needed for level l+1.
var xpTable = func() [maxLevel]int {
	var t [maxLevel]int
	points := 0
	for l := 1; l < maxLevel; l++ {
		points += int(float64(l) + 300*math.Pow(2, float64(l)/7))
		t[l] = points / 4
	}
	return t
}()

func LevelForXP(xp int) int {
	l := 1
	for l < maxLevel && xp >= xpTable[l] {
		l++
	}
	return l
}
