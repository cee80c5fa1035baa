// Command chordctl is an interactive console for inspecting and driving a
// running chordnode over its RPC surface: get/set/remove, dump-state,
// dump-db, ping, and switching which node to talk to mid-session.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/peterh/liner"

	"chordring/internal/transport"
)

func main() {
	addr := flag.String("addr", "localhost:8080", "address of the node to connect to")
	timeout := flag.Duration("timeout", 10*time.Second, "RPC timeout")
	flag.Parse()

	pool := transport.NewPool(*timeout, nil)
	defer pool.Close()

	fmt.Printf("chordring interactive console. Connected to %s\n", *addr)
	fmt.Println("Available commands: get/set/remove/has/dump-state/dump-db/ping/use/help/exit")
	fmt.Println("")

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	currentAddr := *addr

	for {
		input, err := line.Prompt(fmt.Sprintf("chordctl[%s]> ", currentAddr))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				fmt.Println("Aborted")
				continue
			}
			break
		}
		line.AppendHistory(input)

		args := strings.Fields(strings.TrimSpace(input))
		if len(args) == 0 {
			continue
		}
		cmd := args[0]

		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		cli, err := pool.Remote(currentAddr)
		if err != nil {
			fmt.Printf("dial failed: %v\n", err)
			cancel()
			continue
		}

		switch cmd {
		case "get":
			if len(args) < 2 {
				fmt.Println("usage: get <key>")
				break
			}
			v, err := cli.Get(ctx, args[1], nil)
			if err != nil {
				fmt.Printf("get failed: %v\n", err)
				break
			}
			fmt.Printf("%s\n", v)

		case "set":
			if len(args) < 3 {
				fmt.Println("usage: set <key> <value>")
				break
			}
			if err := cli.Set(ctx, args[1], []byte(strings.Join(args[2:], " "))); err != nil {
				fmt.Printf("set failed: %v\n", err)
				break
			}
			fmt.Println("ok")

		case "remove", "rm":
			if len(args) < 2 {
				fmt.Println("usage: remove <key>")
				break
			}
			if err := cli.Remove(ctx, args[1]); err != nil {
				fmt.Printf("remove failed: %v\n", err)
				break
			}
			fmt.Println("ok")

		case "has":
			if len(args) < 2 {
				fmt.Println("usage: has <key>")
				break
			}
			ok, err := cli.HasLocalKey(ctx, args[1])
			if err != nil {
				fmt.Printf("has failed: %v\n", err)
				break
			}
			fmt.Println(ok)

		case "dump-state":
			state, err := cli.DumpState(ctx)
			if err != nil {
				fmt.Printf("dump-state failed: %v\n", err)
				break
			}
			printJSON(state)

		case "dump-db":
			dump, err := cli.DumpDB(ctx)
			if err != nil {
				fmt.Printf("dump-db failed: %v\n", err)
				break
			}
			strItems := make(map[string]string, len(dump.Items))
			for k, v := range dump.Items {
				strItems[k] = string(v)
			}
			printJSON(strItems)

		case "ping":
			if err := cli.Ping(ctx); err != nil {
				fmt.Printf("ping failed: %v\n", err)
				break
			}
			fmt.Println("pong")

		case "use", "connect":
			if len(args) < 2 {
				fmt.Println("usage: use <addr>")
				break
			}
			currentAddr = args[1]
			fmt.Printf("switched to %s\n", currentAddr)

		case "help", "?":
			printHelp()

		case "exit", "quit", "q":
			cancel()
			fmt.Println("bye")
			return

		default:
			fmt.Printf("unknown command: %s (try 'help')\n", cmd)
		}
		cancel()
	}
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("encode failed: %v\n", err)
		return
	}
	fmt.Println(string(b))
}

func printHelp() {
	fmt.Println("Available commands:")
	fmt.Println("  get <key>              - fetch a value through the ring")
	fmt.Println("  set <key> <value>      - store a value through the ring")
	fmt.Println("  remove <key>           - delete a value through the ring")
	fmt.Println("  has <key>              - check local presence on the connected node")
	fmt.Println("  dump-state             - show the connected node's ring position")
	fmt.Println("  dump-db                - show the connected node's local store")
	fmt.Println("  ping                   - liveness check")
	fmt.Println("  use <addr>             - switch to a different node")
	fmt.Println("  help                   - show this help")
	fmt.Println("  exit                   - exit the console")
}
