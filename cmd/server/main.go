// main.go

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/jacl-coder/PixelStorm-Arena/config"
	"github.com/jacl-coder/PixelStorm-Arena/internal/game"
	"github.com/jacl-coder/PixelStorm-Arena/internal/gateway"
	"github.com/jacl-coder/PixelStorm-Arena/internal/models"
	"github.com/jacl-coder/PixelStorm-Arena/pkg/db"
)

func main() {
	// 解析命令行参数
	configPath := flag.String("config", "", "配置文件路径，为空时只使用默认值和环境变量")
	serviceType := flag.String("service", "all", "服务类型 (game, gateway, all)")
	flag.Parse()

	// 加载配置
	if err := config.LoadConfig(*configPath); err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	cfg := &config.GlobalConfig

	// 存储是可选的，连接失败时降级运行
	if cfg.Database.Enabled {
		if err := db.InitPostgres(); err != nil {
			log.Printf("初始化PostgreSQL失败，对局历史不可用: %v", err)
		} else {
			defer db.Close()
		}
	}
	if cfg.Redis.Enabled {
		if err := db.InitRedis(); err != nil {
			log.Printf("初始化Redis失败，排行榜和玩家资料不可用: %v", err)
		} else {
			defer db.CloseRedis()
		}
	}

	st := newStores()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	var gameServer *game.GameServer

	switch *serviceType {
	case "game", "all":
		gameServer = game.NewGameServer(cfg, st.profileSource(), st.recorder())
		g.Go(func() error { return gameServer.Run(ctx) })
	case "gateway":
	default:
		log.Fatalf("未知的服务类型: %s", *serviceType)
	}

	if *serviceType == "gateway" || *serviceType == "all" {
		deps := st.gatewayDeps()
		if gameServer != nil {
			deps.Rooms = gameServer
		}
		gw := gateway.NewGateway(cfg, deps)
		g.Go(func() error { return gw.Run(ctx) })
	}

	log.Printf("服务已启动: %s", *serviceType)
	if err := g.Wait(); err != nil {
		log.Printf("服务异常退出: %v", err)
		os.Exit(1)
	}
	log.Println("服务器已安全关闭")
}

// stores 已连接的存储，未启用的为nil
type stores struct {
	profiles    *models.ProfileStore
	leaderboard *models.RedisLeaderboard
	matches     *models.MatchRepository
}

func newStores() stores {
	var s stores
	if db.RedisClient != nil {
		s.profiles = models.NewProfileStore(db.RedisClient)
		s.leaderboard = models.NewRedisLeaderboard(db.RedisClient)
	}
	if db.DB != nil {
		s.matches = models.NewMatchRepository(db.DB)
	}
	return s
}

// profileSource 接口值只在存储存在时非nil
func (s stores) profileSource() game.ProfileSource {
	if s.profiles == nil {
		return nil
	}
	return s.profiles
}

// recorder 汇总所有已连接的对局记录方
func (s stores) recorder() game.Recorder {
	var rs game.Recorders
	if s.matches != nil {
		rs = append(rs, s.matches)
	}
	if s.leaderboard != nil {
		rs = append(rs, s.leaderboard)
	}
	if s.profiles != nil {
		rs = append(rs, s.profiles)
	}
	if len(rs) == 0 {
		return nil
	}
	return rs
}

func (s stores) gatewayDeps() gateway.Dependencies {
	var deps gateway.Dependencies
	if s.profiles != nil {
		deps.Profiles = s.profiles
	}
	if s.leaderboard != nil {
		deps.Leaderboard = s.leaderboard
	}
	if s.matches != nil {
		deps.History = s.matches
	}
	return deps
}
