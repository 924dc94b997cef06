package score

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/jacl-coder/PixelStorm-Arena/internal/models"
)

const (
	alice models.ActorID = "alice"
	bob   models.ActorID = "bob"
)

func TestAddKill(t *testing.T) {
	a := NewAggregator(0)
	if err := a.AddKill(bob, alice); err != nil {
		t.Fatalf("AddKill failed: %v", err)
	}

	b, _ := a.Snapshot(bob)
	if b.Kills != 1 || b.Score != DefaultKillBonus {
		t.Fatalf("killer = %+v", b)
	}
	v, _ := a.Snapshot(alice)
	if v.Deaths != 1 || v.EnvironmentalDeaths != 0 {
		t.Fatalf("victim = %+v", v)
	}
}

func TestEnvironmentalDeathIsNotAKill(t *testing.T) {
	a := NewAggregator(10)
	a.Register(bob)
	if err := a.AddEnvironmentalDeath(alice); err != nil {
		t.Fatalf("AddEnvironmentalDeath failed: %v", err)
	}

	v, _ := a.Snapshot(alice)
	if v.Deaths != 1 || v.EnvironmentalDeaths != 1 {
		t.Fatalf("victim = %+v", v)
	}
	if b, _ := a.Snapshot(bob); b.Kills != 0 || b.Score != 0 {
		t.Fatalf("其他参与者不应得分: %+v", b)
	}
}

func TestSelfKillCountsAsEnvironmental(t *testing.T) {
	a := NewAggregator(0)
	if err := a.AddKill(alice, alice); err != nil {
		t.Fatalf("AddKill failed: %v", err)
	}
	r, _ := a.Snapshot(alice)
	if r.Kills != 0 || r.Deaths != 1 || r.EnvironmentalDeaths != 1 {
		t.Fatalf("record = %+v", r)
	}
}

func TestKillDeathConservation(t *testing.T) {
	actors := []models.ActorID{"a", "b", "c", "d"}
	a := NewAggregator(0)
	rng := rand.New(rand.NewSource(3))

	kills, env := 0, 0
	for i := 0; i < 500; i++ {
		victim := actors[rng.Intn(len(actors))]
		if rng.Intn(3) == 0 {
			if err := a.AddEnvironmentalDeath(victim); err != nil {
				t.Fatalf("AddEnvironmentalDeath failed: %v", err)
			}
			env++
			continue
		}
		killer := actors[rng.Intn(len(actors))]
		if killer == victim {
			env++
		} else {
			kills++
		}
		if err := a.AddKill(killer, victim); err != nil {
			t.Fatalf("AddKill failed: %v", err)
		}
	}

	deaths, sumKills, sumEnv := 0, 0, 0
	for _, r := range a.Snapshots() {
		deaths += r.Deaths
		sumKills += r.Kills
		sumEnv += r.EnvironmentalDeaths
	}
	if deaths != sumKills+sumEnv {
		t.Fatalf("deaths=%d kills=%d env=%d", deaths, sumKills, sumEnv)
	}
	if sumKills != kills || sumEnv != env {
		t.Fatalf("kills=%d/%d env=%d/%d", sumKills, kills, sumEnv, env)
	}
}

func TestRejectsNegativeAmounts(t *testing.T) {
	a := NewAggregator(0)
	if err := a.AddScore(alice, -1); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("err = %v", err)
	}
	if err := a.AddDistance(alice, -1, 0); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("err = %v", err)
	}
	if err := a.AddDestroyed(alice, models.CategoryJunk, -5); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("err = %v", err)
	}
	if a.Score(alice) != 0 {
		t.Fatalf("拒绝的操作不应修改分数")
	}
}

func TestShotsHitNeverExceedFired(t *testing.T) {
	a := NewAggregator(0)
	if err := a.AddShotHit(alice); !errors.Is(err, ErrShotsExceeded) {
		t.Fatalf("err = %v", err)
	}
	a.AddShotFired(alice)
	a.AddShotFired(alice)
	if err := a.AddShotHit(alice); err != nil {
		t.Fatalf("AddShotHit failed: %v", err)
	}
	r, _ := a.Snapshot(alice)
	if r.ShotsHit != 1 || r.ShotsFired != 2 || r.Accuracy() != 0.5 {
		t.Fatalf("record = %+v accuracy=%v", r, r.Accuracy())
	}
}

func TestDestroyed(t *testing.T) {
	a := NewAggregator(0)
	a.AddDestroyed(alice, models.CategoryJunk, 0)
	a.AddDestroyed(alice, models.CategoryHostile, 10)
	if err := a.AddDestroyed(alice, models.CategoryShip, 1); err == nil {
		t.Fatalf("飞船不应走摧毁计数")
	}
	r, _ := a.Snapshot(alice)
	if r.JunkDestroyed != 1 || r.HostilesDestroyed != 1 || r.Score != 10 {
		t.Fatalf("record = %+v", r)
	}
}

func TestDistanceTracksHighestSpeed(t *testing.T) {
	a := NewAggregator(0)
	a.AddDistance(alice, 3, 30)
	a.AddDistance(alice, 1, 10)
	r, _ := a.Snapshot(alice)
	if r.Distance != 4 || r.HighestSpeed != 30 {
		t.Fatalf("record = %+v", r)
	}
}

func TestFreeze(t *testing.T) {
	a := NewAggregator(0)
	a.AddScore(alice, 3)
	a.Freeze()

	if !a.Frozen() {
		t.Fatalf("应已冻结")
	}
	checks := []error{
		a.AddKill(alice, bob),
		a.AddDeath(alice),
		a.AddEnvironmentalDeath(alice),
		a.AddScore(alice, 1),
		a.AddShotFired(alice),
		a.AddDistance(alice, 1, 1),
	}
	for i, err := range checks {
		if !errors.Is(err, ErrFrozen) {
			t.Fatalf("check %d: err = %v, want ErrFrozen", i, err)
		}
	}
	if a.Score(alice) != 3 {
		t.Fatalf("冻结后分数不应变化: %d", a.Score(alice))
	}
	if _, ok := a.Snapshot(bob); ok {
		t.Fatalf("冻结后不应创建新记录")
	}
}

func TestResult(t *testing.T) {
	tests := []struct {
		name   string
		scores map[models.ActorID]int
		winner models.ActorID
		tie    bool
	}{
		{"winner", map[models.ActorID]int{alice: 50, bob: 25}, alice, false},
		{"second wins", map[models.ActorID]int{alice: 0, bob: 25}, bob, false},
		{"tie", map[models.ActorID]int{alice: 25, bob: 25}, models.NoActor, true},
		{"scoreless tie", map[models.ActorID]int{alice: 0, bob: 0}, models.NoActor, true},
		{"single", map[models.ActorID]int{alice: 0}, alice, false},
	}

	for _, tt := range tests {
		a := NewAggregator(0)
		for _, actor := range []models.ActorID{alice, bob} {
			if s, ok := tt.scores[actor]; ok {
				a.Register(actor)
				a.AddScore(actor, s)
			}
		}
		got := a.Result()
		if got.Winner != tt.winner || got.Tie != tt.tie {
			t.Fatalf("%s: result = %+v", tt.name, got)
		}
		if got.Scores[alice] != tt.scores[alice] {
			t.Fatalf("%s: scores = %v", tt.name, got.Scores)
		}
	}
}
