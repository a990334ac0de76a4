package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/any2json/internal/client/client"
)

func (a *App) convert(ctx context.Context, args []string) error {
	var req client.ConvertRequest

	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&req.Type, "type", "", "media type: auto, image, video, audio or document")
	fs.IntVar(&req.MaxTokens, "max-tokens", 0, "token budget for the result")
	expand := fs.String("expand", "", "comma-separated element ids to expand")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if err := wantArgs(fs.Args(), 1); err != nil {
		return err
	}
	req.Input = fs.Arg(0)
	for _, id := range strings.Split(*expand, ",") {
		if id = strings.TrimSpace(id); id != "" {
			req.Expand = append(req.Expand, id)
		}
	}

	raw, err := a.client.Convert(ctx, req)
	if err != nil {
		return err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return fmt.Errorf("malformed result: %w", err)
	}
	pretty.WriteByte('\n')
	_, err = pretty.WriteTo(a.out)
	return err
}
