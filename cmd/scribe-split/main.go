// Command scribe-split prints how a text read on stdin would be delivered.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	cli "github.com/spf13/pflag"

	"scribe/internal/delivery"
)

func main() {
	platformMax := cli.IntP("max-message", "m", delivery.TelegramMaxMessage, "Platform message size")
	margin := cli.Int("margin", delivery.DefaultMargin, "Characters kept free below the platform size")
	threshold := cli.IntP("attach-after", "t", delivery.DefaultThreshold, "Send a file when a reply needs more parts than this")
	filename := cli.StringP("filename", "f", delivery.DefaultFilename, "Attachment name")
	cli.Parse()

	text, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read stdin:", err)
		os.Exit(1)
	}

	p := delivery.NewPlanner(delivery.LimitFor(*platformMax, *margin)).WithFilename(*filename)
	p.Threshold = *threshold

	plan, err := p.Plan(string(text))
	if err != nil {
		fmt.Fprintln(os.Stderr, "plan:", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(plan); err != nil {
		fmt.Fprintln(os.Stderr, "encode:", err)
		os.Exit(1)
	}
}
