// Command photowall-fn serves one serverless invocation: it reads an event
// as JSON on stdin and writes the response as JSON on stdout.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/8848connie/drawing-room/internal/function"
	"github.com/8848connie/drawing-room/internal/server"
)

// invocationTimeout matches the longest call a handler makes.
const invocationTimeout = 6 * time.Minute

func main() {
	log.SetOutput(os.Stderr)

	ctx, cancel := context.WithTimeout(context.Background(), invocationTimeout)
	defer cancel()

	h := server.New(server.Config{
		Build: server.BuildInfo{Version: os.Getenv("PHOTOWALL_VERSION")},
		// Keep stdout for the response.
		Logger: server.LoggerFromEnv(os.Stderr, os.Getenv),
	}).Handler()

	if err := run(ctx, h, os.Stdin, os.Stdout); err != nil {
		log.Printf("service=photowall-fn msg=%q err=%v", "invoke_failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, h http.Handler, in io.Reader, out io.Writer) error {
	var ev function.Event
	if err := json.NewDecoder(in).Decode(&ev); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}

	res, err := function.Invoke(ctx, h, ev)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	return enc.Encode(res)
}
