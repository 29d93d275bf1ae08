package main

import (
	"encoding/json"
	"fmt"
	"os"

	cli "github.com/spf13/pflag"

	"scribe/internal/ipc"
)

func main() {
	socket := cli.StringP("socket", "s", ipc.DefaultSocket, "Control socket path")
	cli.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: scribe-ctl [--socket path] status|ping|stop")
		cli.PrintDefaults()
	}
	cli.Parse()

	cmd := ipc.CmdStatus
	if cli.NArg() > 0 {
		cmd = cli.Arg(0)
	}

	reply, err := ipc.SendCommand(*socket, cmd)
	if err != nil {
		fmt.Println("scribe-bot not running:", err)
		os.Exit(1)
	}
	if !reply.OK {
		fmt.Println("error:", reply.Error)
		os.Exit(1)
	}

	if len(reply.Data) == 0 {
		fmt.Println("ok")
		return
	}
	out, _ := json.MarshalIndent(reply.Data, "", "  ")
	fmt.Println(string(out))
}
