// ops 离线运维工具：查看、导出、转码世界存档，签发调试 token，探活 grpc。
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"Underworld/internal/shared/security"
	transportgrpc "Underworld/internal/shared/transport/grpc"
	"Underworld/internal/shared/types"
	"Underworld/internal/world/entity"
	"Underworld/internal/world/infra/persistence/file"
)

const usage = `usage: ops <command> [flags]

commands:
  describe  -f FILE                   print archive header
  dump      -f FILE [--secret S]      print normalized world state as JSON
  convert   -f FILE -o OUT [--codec zstd|lz4|none] [--secret S] [--out-secret S]
                                      re-encode an archive, or import a plain JSON document
  token     --pid N [--role player|scheduler] [--secret S] [--ttl 24h]
  health    [--addr 127.0.0.1:9090]
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "describe":
		err = runDescribe(os.Args[2:])
	case "dump":
		err = runDump(os.Args[2:])
	case "convert":
		err = runConvert(os.Args[2:])
	case "token":
		err = runToken(os.Args[2:])
	case "health":
		err = runHealth(os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "ops:", err)
		os.Exit(1)
	}
}

func runDescribe(args []string) error {
	fs := pflag.NewFlagSet("describe", pflag.ExitOnError)
	path := fs.StringP("file", "f", "data/world.state", "world archive")
	_ = fs.Parse(args)

	raw, err := os.ReadFile(*path)
	if err != nil {
		return err
	}
	desc, err := file.Describe(raw)
	if err != nil {
		return err
	}
	fmt.Println(desc)
	return nil
}

func runDump(args []string) error {
	fs := pflag.NewFlagSet("dump", pflag.ExitOnError)
	path := fs.StringP("file", "f", "data/world.state", "world archive")
	secret := fs.String("secret", os.Getenv("UNDERWORLD_WORLD_SECRET"), "archive secret")
	_ = fs.Parse(args)

	state, err := readState(*path, *secret)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(state)
}

func runConvert(args []string) error {
	fs := pflag.NewFlagSet("convert", pflag.ExitOnError)
	path := fs.StringP("file", "f", "", "source archive or plain JSON document")
	out := fs.StringP("out", "o", "", "destination archive")
	codecName := fs.String("codec", "zstd", "destination codec")
	secret := fs.String("secret", os.Getenv("UNDERWORLD_WORLD_SECRET"), "source secret")
	outSecret := fs.String("out-secret", "", "destination secret, empty keeps plaintext")
	_ = fs.Parse(args)
	if *path == "" || *out == "" {
		return fmt.Errorf("convert needs -f and -o")
	}

	codec, err := file.ParseCodec(*codecName)
	if err != nil {
		return err
	}
	state, err := readState(*path, *secret)
	if err != nil {
		return err
	}
	payload, err := entity.EncodeWorldState(state)
	if err != nil {
		return err
	}
	dst := file.NewWorldRepository(*out, file.WithCodec(codec), file.WithSecret(*outSecret))
	snap := &entity.WorldPersistSnapshot{Version: state.Version, SavedAt: time.Now(), Payload: payload}
	if err := dst.Save(context.Background(), snap); err != nil {
		return err
	}
	fmt.Printf("wrote %s (version=%d codec=%s encrypted=%t)\n", *out, state.Version, codec, *outSecret != "")
	return nil
}

// readState 存档读不出来时按纯 JSON 文档再试一次。
func readState(path, secret string) (entity.WorldState, error) {
	now := time.Now()
	raw, err := os.ReadFile(path)
	if err != nil {
		return entity.WorldState{}, err
	}
	if _, derr := file.Describe(raw); derr != nil {
		return entity.DecodeWorldState(raw, now)
	}
	payload, err := file.NewWorldRepository(path, file.WithSecret(secret)).LoadWorld(context.Background())
	if err != nil {
		return entity.WorldState{}, err
	}
	return entity.DecodeWorldState(payload, now)
}

func runToken(args []string) error {
	fs := pflag.NewFlagSet("token", pflag.ExitOnError)
	pid := fs.Int64("pid", 0, "player id")
	name := fs.String("name", "", "display name")
	role := fs.String("role", security.RolePlayer, "player or scheduler")
	secret := fs.String("secret", "", "jwt secret, falls back to JWT_SECRET")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	_ = fs.Parse(args)

	if *role == security.RolePlayer && !types.PlayerID(*pid).Valid() {
		return fmt.Errorf("player token needs --pid > 0")
	}
	iss, err := security.NewIssuer(*secret, *ttl)
	if err != nil {
		return err
	}
	if *name == "" {
		*name = "player-" + strconv.FormatInt(*pid, 10)
	}
	tok, err := iss.Award(types.PlayerID(*pid), *name, *role)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}

func runHealth(args []string) error {
	fs := pflag.NewFlagSet("health", pflag.ExitOnError)
	addr := fs.String("addr", "127.0.0.1:9090", "grpc address")
	timeout := fs.Duration("timeout", 3*time.Second, "check timeout")
	_ = fs.Parse(args)

	conn, client, err := transportgrpc.DialHealth(*addr)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()
	status, err := transportgrpc.Check(context.Background(), client, *timeout)
	if err != nil {
		return err
	}
	fmt.Println(status.String())
	return nil
}
