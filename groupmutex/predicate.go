package groupmutex

import "github.com/Adarsh-Kmt/FairGroupMutex/types"

func (fgm *FairGroupMutex) admissible(g types.Group) bool {
	return admissible(fgm.groups, fgm.turn, g)
}

/*
admissible reports whether a waiting worker of group g may enter.

  - the other group must not be inside.
  - if the other group has waiters, g yields when it already holds the resource
    (it should drain and hand over) or when the turn belongs to the other group.
*/
func admissible(groups [2]groupState, turn types.Group, g types.Group) bool {

	me := groups[g.Index()]
	opp := groups[g.Opposite().Index()]

	opponentActive := opp.active > 0
	mustYield := opp.waiting > 0 && (me.active > 0 || turn == g.Opposite())

	return !opponentActive && !mustYield
}
