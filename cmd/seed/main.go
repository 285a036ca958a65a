package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/sysu-ecnc-dev/evolver/backend/internal/config"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/repository"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/seed"
	"github.com/sysu-ecnc-dev/evolver/backend/internal/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var size int
	var file string

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机用户, 2: 插入随机巡游问题, 3: 插入随机排考问题, 4: 导入选课表)")
	flag.IntVar(&n, "n", 5, "要插入的记录数量")
	flag.IntVar(&size, "size", 20, "随机问题的规模（城市数量或科目数量）")
	flag.StringVar(&file, "file", "./internal/seed/data/exams.csv", "要导入的选课表路径")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	repo := repository.NewRepository(cfg, dbpool)

	// 随机生成的问题都记在初始管理员名下
	admin, err := repo.GetUserByUsername(cfg.InitialAdmin.Username)
	if err != nil && op > 1 {
		slog.Error("无法获取初始管理员，请先启动一次 api 服务", slog.String("error", err.Error()))
		return
	}

	if n <= 0 || size <= 0 {
		slog.Error("请输入合法的数量")
		return
	}

	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		cnt := 0
		for i := 0; i < n; i++ {
			user, err := utils.GenerateRandomUser(cfg.Seed.User.Password, cfg.Email.UserDomain)
			if err != nil {
				slog.Error("无法生成随机用户", slog.String("error", err.Error()))
				continue
			}

			if err := repo.CreateUser(user); err != nil {
				slog.Error("无法插入用户", slog.String("error", err.Error()))
				continue
			}

			cnt++
		}

		slog.Info("插入用户成功", slog.Int("count", cnt))
	case 2:
		cnt := 0
		for i := 0; i < n; i++ {
			rp := utils.GenerateRandomRoutingProblem(size, 100)
			rp.CreatedBy = admin.ID
			if err := repo.CreateRoutingProblem(rp); err != nil {
				slog.Error("无法插入巡游问题", slog.String("error", err.Error()))
				continue
			}

			cnt++
		}

		slog.Info("插入巡游问题成功", slog.Int("count", cnt))
	case 3:
		cnt := 0
		for i := 0; i < n; i++ {
			tp := utils.GenerateRandomTimetableProblem(size, size*5, 4)
			tp.CreatedBy = admin.ID
			if err := repo.CreateTimetableProblem(tp); err != nil {
				slog.Error("无法插入排考问题", slog.String("error", err.Error()))
				continue
			}

			cnt++
		}

		slog.Info("插入排考问题成功", slog.Int("count", cnt))
	case 4:
		seed.SeedTimetableCSV(repo, file, "导入的选课表", admin.ID)
	default:
		slog.Error("指定的操作非法")
	}
}
