// db_manager.go

package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/jacl-coder/PixelStorm-Arena/config"
	"github.com/jacl-coder/PixelStorm-Arena/internal/models"
	"github.com/jacl-coder/PixelStorm-Arena/pkg/db"
)

func main() {
	// 解析命令行参数
	configPath := flag.String("config", "", "配置文件路径")
	action := flag.String("action", "help", "操作类型: reset, init, seed, help")
	names := flag.String("players", "alice,bob", "seed 操作写入的玩家名，逗号分隔")
	flag.Parse()

	if *action == "help" {
		showHelp()
		return
	}

	if err := config.LoadConfig(*configPath); err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	switch *action {
	case "reset":
		withPostgres(func() {
			if err := db.DropAllTables(); err != nil {
				log.Fatalf("重置数据库失败: %v", err)
			}
			log.Println("数据库重置完成")
		})
	case "init":
		withPostgres(func() {
			if err := db.InitAllTables(); err != nil {
				log.Fatalf("初始化数据库表失败: %v", err)
			}
			log.Println("数据库初始化完成: match_records, player_match_records")
		})
	case "seed":
		seedProfiles(strings.Split(*names, ","))
	default:
		log.Fatalf("未知操作: %s", *action)
	}
}

// showHelp 显示帮助信息
func showHelp() {
	log.Println("PixelStorm Arena 数据库管理工具")
	log.Println("")
	log.Println("用法:")
	log.Println("  go run scripts/db_manager.go -action=<操作> [-config=<配置文件>]")
	log.Println("")
	log.Println("操作:")
	log.Println("  reset  - 删除对局记录表")
	log.Println("  init   - 创建对局记录表")
	log.Println("  seed   - 向Redis写入默认玩家资料")
	log.Println("  help   - 显示此帮助信息")
}

func withPostgres(fn func()) {
	if err := db.InitPostgres(); err != nil {
		log.Fatalf("初始化PostgreSQL失败: %v", err)
	}
	defer db.Close()
	fn()
}

// seedProfiles 写入默认飞船的玩家资料，已存在的跳过
func seedProfiles(names []string) {
	if err := db.InitRedis(); err != nil {
		log.Fatalf("初始化Redis失败: %v", err)
	}
	defer db.CloseRedis()

	store := models.NewProfileStore(db.RedisClient)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, err := store.Get(ctx, name); err == nil {
			log.Printf("玩家资料已存在，跳过: %s", name)
			continue
		}
		if err := store.Put(ctx, models.NewPlayerProfile(name)); err != nil {
			log.Fatalf("写入玩家资料失败: %v", err)
		}
		log.Printf("已写入玩家资料: %s", name)
	}
}
