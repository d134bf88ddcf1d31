package serverconfig

import (
	"os"
	"testing"
	"time"
)

func TestLoad_读取仓库配置(t *testing.T) {
	t.Setenv("JWT_SECRET", "preset")
	t.Setenv("UNDERWORLD_WORLD_STORE", "sqlite")

	if err := Load(""); err != nil {
		t.Fatalf("load: %v", err)
	}
	if Conf.World.SaveThrottle != 5*time.Second || Conf.World.TickEvery != time.Minute {
		t.Fatalf("world durations = %+v", Conf.World)
	}
	if Conf.World.Store != "sqlite" {
		t.Fatalf("env override not applied: store=%q", Conf.World.Store)
	}
	if got := Conf.HTTPServer.Addr(); got != "0.0.0.0:8080" {
		t.Fatalf("http addr = %q", got)
	}
	if Conf.Player.AskTimeout != 3*time.Second || Conf.Logic.ServerID != 1 {
		t.Fatalf("player/logic = %+v %+v", Conf.Player, Conf.Logic)
	}
	if os.Getenv("JWT_SECRET") != "preset" {
		t.Fatalf("JWT_SECRET from env must win over config")
	}
}

func TestLoad_文件不存在(t *testing.T) {
	if err := Load("no/such/conf.yml"); err == nil {
		t.Fatalf("expected error for missing config")
	}
}
