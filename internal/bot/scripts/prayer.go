package scripts

import (
	"fmt"
	"time"

	"tickbot.dev/internal/bot"
	"tickbot.dev/internal/botapi"
)

// BuryProfile configures the prayer script.
type BuryProfile struct {
	Name    string
	BoneIDs []int
	// Collect picks up nearby bones before falling back to the bank.
	Collect bool
}

func Prayer() BuryProfile {
	return BuryProfile{Name: "Prayer Bot", BoneIDs: append([]int(nil), Bones...), Collect: true}
}

// Burier buries bones from the inventory, refilling from the ground or the
// bank.
type Burier struct {
	profile BuryProfile
	api     *botapi.API
	phase   Phase
	buried  int
}

func NewBurier(api *botapi.API, p BuryProfile) *Burier {
	return &Burier{profile: p, api: api, phase: PhaseIdle}
}

func NewBuryTask(env *bot.Env, api *botapi.API, p BuryProfile) (*bot.Task, *Burier) {
	b := NewBurier(api, p)
	t := bot.NewTask(env, p.Name, b, bot.Hooks{
		OnStart: func(t *bot.Task) {
			b.buried = 0
			b.phase = PhaseIdle
			t.Message("Prayer bot started! Will bury bones for XP.")
		},
		OnStop: func(t *bot.Task) {
			if api.IsBankOpen() {
				api.CloseBank()
			}
			t.Message(fmt.Sprintf("Prayer bot stopped. Total bones buried: %d", b.buried))
		},
	})
	return t, b
}

func (b *Burier) Buried() int  { return b.buried }
func (b *Burier) Phase() Phase { return b.phase }

func (b *Burier) Step(t *bot.Task) (bot.Outcome, error) {
	a := b.api
	if a.IsBusy() || a.IsMoving() {
		return bot.Continue(a.RandomDelay(300, 500)), nil
	}

	idx := a.FirstIndexOf(b.profile.BoneIDs...)
	if idx < 0 {
		if b.profile.Collect && !a.InventoryFull() {
			if it, ok := a.NearestGroundItem(b.profile.BoneIDs...); ok {
				return b.collect(it), nil
			}
		}
		b.phase = PhaseBanking
		return b.withdraw(t), nil
	}

	if a.IsBankOpen() {
		a.CloseBank()
		return bot.Continue(a.RandomDelay(300, 500)), nil
	}

	b.phase = PhaseWorking
	if a.UseItem(idx) {
		b.buried++
	}
	return bot.Continue(a.RandomDelay(600, 1000)), nil
}

func (b *Burier) collect(it botapi.GroundItem) bot.Outcome {
	a := b.api
	if a.DistanceToPos(it.Pos) > 1 {
		b.phase = PhaseWalking
		a.WalkTo(it.Pos.X, it.Pos.Y)
		return bot.Continue(a.RandomDelay(600, 1000))
	}
	a.PickupItem(it)
	return bot.Continue(a.RandomDelay(300, 500))
}

func (b *Burier) withdraw(t *bot.Task) bot.Outcome {
	a := b.api
	if !a.IsBankOpen() {
		a.OpenBank()
		return bot.Continue(a.RandomDelay(600, 800))
	}
	for _, id := range b.profile.BoneIDs {
		if a.BankCount(id) > 0 {
			a.WithdrawAll(id)
			a.CloseBank()
			b.phase = PhaseIdle
			return bot.Continue(a.RandomDelay(600, 800))
		}
	}
	t.Message("Out of bones! Please add more to your bank.")
	return bot.Continue(5*time.Second + a.RandomDelay(0, 1000))
}
