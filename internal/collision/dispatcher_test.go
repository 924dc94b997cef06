package collision

import (
	"fmt"
	"testing"

	"github.com/jacl-coder/PixelStorm-Arena/internal/lifecycle"
	"github.com/jacl-coder/PixelStorm-Arena/internal/models"
	"github.com/jacl-coder/PixelStorm-Arena/internal/physics"
	"github.com/jacl-coder/PixelStorm-Arena/internal/score"
	"github.com/jacl-coder/PixelStorm-Arena/internal/timer"
)

type arena struct {
	world       *physics.World
	timers      *timer.Manager
	scores      *score.Aggregator
	machine     *lifecycle.Machine
	projectiles *Projectiles
	dispatcher  *Dispatcher
	effects     []models.Effect
}

func newArena(t *testing.T) *arena {
	t.Helper()
	a := &arena{
		world:  physics.NewWorld(0, 0),
		timers: timer.NewManager(),
		scores: score.NewAggregator(0),
	}
	a.machine = lifecycle.NewMachine(a.world, a.timers, a.scores, lifecycle.DefaultRespawnDelay)
	a.projectiles = NewProjectiles(a.world)
	a.dispatcher = NewDispatcher(a.projectiles, a.machine, a.scores, func(e models.Effect) {
		a.effects = append(a.effects, e)
	})
	a.dispatcher.Register(a.world)

	ship := models.DefaultShipData()
	for _, s := range []struct {
		id    string
		owner models.ActorID
		pos   models.Vector2D
	}{
		{"ship-a", "alice", models.Vector2D{X: 0, Y: 0}},
		{"ship-b", "bob", models.Vector2D{X: 500, Y: 0}},
	} {
		err := a.machine.Spawn(lifecycle.Spec{
			ID: s.id, Template: ship.Template("ship"), Owner: s.owner, SpawnPoint: s.pos,
		})
		if err != nil {
			t.Fatalf("Spawn failed: %v", err)
		}
		a.scores.Register(s.owner)
	}
	return a
}

// fire 在 at 处放置一颗由 creator 发射的静止投射物
func (a *arena) fire(id, creator string, owner models.ActorID, at models.Vector2D) {
	a.scores.AddShotFired(owner)
	a.projectiles.Fire(Projectile{
		ID:      id,
		Creator: creator,
		By:      models.Attribution{Actor: owner, Category: models.CategoryShip},
		Damage:  1,
	}, at, models.Vector2D{}, 4)
}

func TestSelfHitIgnored(t *testing.T) {
	a := newArena(t)
	a.fire("p1", "ship-a", "alice", models.Vector2D{X: 1})

	a.world.Step(0)

	if _, ok := a.projectiles.Get("p1"); !ok {
		t.Fatalf("自伤不应移除投射物")
	}
	if e, _ := a.machine.Get("ship-a"); e.Health() != models.DefaultShipHitpoints {
		t.Fatalf("自伤不应造成伤害: %d", e.Health())
	}
	if r, _ := a.scores.Snapshot("alice"); r.ShotsHit != 0 {
		t.Fatalf("自伤不应计入命中")
	}
	if len(a.effects) != 0 {
		t.Fatalf("自伤不应产生特效")
	}
}

func TestDuplicateContactRemovesOnce(t *testing.T) {
	a := newArena(t)
	a.fire("p1", "ship-b", "bob", models.Vector2D{X: 1})

	c := physics.Contact{Point: models.Vector2D{X: 1}}
	if !a.dispatcher.HandleHit("p1", "ship-a", c) {
		t.Fatalf("首次命中应生效")
	}
	if a.dispatcher.HandleHit("p1", "ship-a", c) {
		t.Fatalf("重复接触应被忽略")
	}

	e, _ := a.machine.Get("ship-a")
	if e.Health() != models.DefaultShipHitpoints-1 {
		t.Fatalf("health = %d", e.Health())
	}
	r, _ := a.scores.Snapshot("bob")
	if r.ShotsHit != 1 {
		t.Fatalf("shots hit = %d", r.ShotsHit)
	}
	if len(a.effects) != 1 || a.effects[0].Size != models.EffectSmall || a.effects[0].Position != c.Point {
		t.Fatalf("effects = %+v", a.effects)
	}
}

func TestHitOnDeadEntityStillCountsShot(t *testing.T) {
	a := newArena(t)
	a.machine.Damage("ship-a", 100, models.Attribution{})
	a.fire("p1", "ship-b", "bob", models.Vector2D{X: 1})

	if !a.dispatcher.HandleHit("p1", "ship-a", physics.Contact{}) {
		t.Fatalf("命中应被处理")
	}
	if r, _ := a.scores.Snapshot("bob"); r.ShotsHit != 1 || r.Kills != 0 {
		t.Fatalf("bob = %+v", r)
	}
}

func TestHostileProjectileIsEnvironmental(t *testing.T) {
	a := newArena(t)
	a.projectiles.Fire(Projectile{
		ID: "h1", Creator: "ufo-1",
		By:     models.Attribution{Category: models.CategoryHostile},
		Damage: 100,
	}, models.Vector2D{X: 1}, models.Vector2D{}, 4)

	a.world.Step(0)

	r, _ := a.scores.Snapshot("alice")
	if r.Deaths != 1 || r.EnvironmentalDeaths != 1 {
		t.Fatalf("alice = %+v", r)
	}
	for _, rec := range a.scores.Snapshots() {
		if rec.Kills != 0 || rec.ShotsHit != 0 {
			t.Fatalf("敌对单位的命中不应计入任何玩家: %+v", rec)
		}
	}
}

func TestEndToEndKillAndRespawn(t *testing.T) {
	a := newArena(t)

	for i := 0; i < models.DefaultShipHitpoints; i++ {
		a.fire(fmt.Sprintf("p%d", i), "ship-b", "bob", models.Vector2D{X: 2})
		a.world.Step(0)

		e, _ := a.machine.Get("ship-a")
		want := models.DefaultShipHitpoints - i - 1
		if e.Health() != want {
			t.Fatalf("hit %d: health = %d, want %d", i, e.Health(), want)
		}
	}

	e, _ := a.machine.Get("ship-a")
	if e.State() != lifecycle.StateDead {
		t.Fatalf("state = %v, want dead", e.State())
	}
	bob, _ := a.scores.Snapshot("bob")
	if bob.Kills != 1 || bob.Score != score.DefaultKillBonus || bob.ShotsHit != models.DefaultShipHitpoints {
		t.Fatalf("bob = %+v", bob)
	}
	if !a.timers.Has(lifecycle.RespawnTimerName("ship-a")) {
		t.Fatalf("应安排重生计时器")
	}
	if a.projectiles.Len() != 0 {
		t.Fatalf("所有投射物应已移除")
	}

	// 帧顺序: 物理 -> 计时器 -> 消费/重生
	for i := 0; i < 10; i++ {
		a.world.Step(0.5)
		a.timers.Tick(0.5)
		for _, name := range a.timers.PollElapsed() {
			a.machine.HandleElapsed(name)
		}
	}

	e, _ = a.machine.Get("ship-a")
	if e.State() != lifecycle.StateAlive || e.Health() != models.DefaultShipHitpoints {
		t.Fatalf("entity = state %v health %d", e.State(), e.Health())
	}
	b, ok := a.world.BodyOf("ship-a")
	if !ok || b.Velocity != (models.Vector2D{}) {
		t.Fatalf("body = %+v", b)
	}
}

func TestExpire(t *testing.T) {
	a := newArena(t)
	a.projectiles.Fire(Projectile{ID: "old", Creator: "ship-a", LifeTime: 1}, models.Vector2D{X: 200, Y: 200}, models.Vector2D{}, 1)
	a.projectiles.Fire(Projectile{ID: "out", Creator: "ship-a", LifeTime: 10}, models.Vector2D{X: -5, Y: 200}, models.Vector2D{}, 1)
	a.projectiles.Fire(Projectile{ID: "fresh", Creator: "ship-a", LifeTime: 10}, models.Vector2D{X: 200, Y: 300}, models.Vector2D{}, 1)

	expired := a.projectiles.Expire(1, 1000, 1000)
	if len(expired) != 2 || expired[0] != "old" || expired[1] != "out" {
		t.Fatalf("expired = %v", expired)
	}
	if a.projectiles.Len() != 1 {
		t.Fatalf("len = %d", a.projectiles.Len())
	}
	if a.projectiles.Remove("old") {
		t.Fatalf("已过期的投射物重复移除应返回false")
	}
}
